// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// handler_test.go provides shared test infrastructure for handler tests.
// Unit tests run against in-memory repositories; integration tests are
// skipped when PostgreSQL or Valkey are unavailable.
package handlers

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/text/language"

	"campusboard/internal/auth"
	"campusboard/internal/board"
	"campusboard/internal/board/boardtest"
	"campusboard/internal/cache"
	"campusboard/internal/database"
	"campusboard/internal/i18n"
	"campusboard/internal/models"
	"campusboard/internal/render"
	"campusboard/internal/session"
	"campusboard/internal/store"
)

const testMasterEmail = "master@campusboard.test"

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func testRenderer(t *testing.T) *render.Renderer {
	t.Helper()
	bundle, err := i18n.Load("ko")
	if err != nil {
		t.Fatalf("i18n.Load: %v", err)
	}
	renderer, err := render.New(bundle)
	if err != nil {
		t.Fatalf("render.New: %v", err)
	}
	return renderer
}

// --------------------------------------------------------------------------
// In-memory fakes
// --------------------------------------------------------------------------

// memUsers implements auth.Users and TOTPUsers. Passwords are kept in the
// clear; hashing is covered by the store tests.
type memUsers struct {
	mu    sync.Mutex
	users map[uuid.UUID]*models.User
}

func newMemUsers() *memUsers {
	return &memUsers{users: make(map[uuid.UUID]*models.User)}
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			out := *u
			return &out, nil
		}
	}
	return nil, nil
}

func (m *memUsers) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		out := *u
		return &out, nil
	}
	return nil, nil
}

func (m *memUsers) Create(_ context.Context, email, password, nickname, affiliation string, role models.Role) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return nil, store.ErrEmailTaken
		}
	}
	u := &models.User{
		ID: uuid.New(), Email: email, PasswordHash: password,
		Nickname: nickname, Affiliation: affiliation, Role: role,
	}
	m.users[u.ID] = u
	out := *u
	return &out, nil
}

func (m *memUsers) CheckPassword(user *models.User, password string) bool {
	return user.PasswordHash == password
}

func (m *memUsers) SetRole(_ context.Context, id uuid.UUID, role models.Role) error {
	return m.update(id, func(u *models.User) { u.Role = role })
}

func (m *memUsers) SetTOTPSecret(_ context.Context, id uuid.UUID, secret string) error {
	return m.update(id, func(u *models.User) { u.TOTPSecret = &secret })
}

func (m *memUsers) EnableTOTP(_ context.Context, id uuid.UUID) error {
	return m.update(id, func(u *models.User) { u.TOTPEnabled = true })
}

func (m *memUsers) update(id uuid.UUID, fn func(*models.User)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return store.ErrNotFound
	}
	fn(u)
	return nil
}

// memSessions implements Sessions by remembering the last write.
type memSessions struct {
	created   *session.Data
	updated   *session.Data
	destroyed bool
}

func (m *memSessions) Create(_ context.Context, w http.ResponseWriter, data *session.Data) (string, error) {
	m.created = data
	http.SetCookie(w, &http.Cookie{Name: session.CookieName, Value: "test-session"})
	return "test-session", nil
}

func (m *memSessions) Update(_ context.Context, _ *http.Request, data *session.Data) error {
	m.updated = data
	return nil
}

func (m *memSessions) Destroy(context.Context, http.ResponseWriter, *http.Request) error {
	m.destroyed = true
	return nil
}

// memEnv wires the handlers to in-memory repositories.
type memEnv struct {
	Mem      *boardtest.Memory
	Users    *memUsers
	Sessions *memSessions
	Service  *board.Service
	Auth     *Auth
	Board    *Board
}

func newMemEnv(t *testing.T) *memEnv {
	t.Helper()

	renderer := testRenderer(t)
	mem := boardtest.NewMemory()
	users := newMemUsers()
	sessions := &memSessions{}
	master := auth.NewMaster(testMasterEmail)
	svc := board.New(mem.Categories(), mem.Posts(), mem.Comments(), board.Options{Cascade: true})

	return &memEnv{
		Mem:      mem,
		Users:    users,
		Sessions: sessions,
		Service:  svc,
		Auth:     NewAuth(renderer, sessions, auth.NewService(users, master), users),
		Board:    NewBoard(renderer, svc, master),
	}
}

// --------------------------------------------------------------------------
// Request helpers
// --------------------------------------------------------------------------

// memberSession returns a fully signed-in member.
func memberSession(nickname string) *session.Data {
	return &session.Data{
		UserID:      uuid.New(),
		Email:       nickname + "@knu.ac.kr",
		Nickname:    nickname,
		Affiliation: "KNU",
		Role:        string(models.RoleUser),
		TwoFADone:   true,
	}
}

// masterSession returns the master after 2FA.
func masterSession() *session.Data {
	return &session.Data{
		UserID:      uuid.New(),
		Email:       testMasterEmail,
		Nickname:    "master",
		Affiliation: "운영진",
		Role:        string(models.RoleAdmin),
		TwoFADone:   true,
	}
}

// actorOf mirrors Board.actor for direct service calls in tests.
func actorOf(sess *session.Data) *board.Actor {
	return &board.Actor{
		UserID:      sess.UserID,
		Email:       sess.Email,
		Nickname:    sess.Nickname,
		Affiliation: sess.Affiliation,
		Master:      sess.IsAdmin() && sess.TwoFADone && sess.Email == testMasterEmail,
	}
}

// newRequest builds a request carrying the session, English messages and
// chi URL params given as key/value pairs.
func newRequest(method, target string, form url.Values, sess *session.Data, params ...string) *http.Request {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}

	ctx := i18n.WithTag(req.Context(), language.English)
	if sess != nil {
		ctx = session.WithData(ctx, sess)
	}
	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for i := 0; i+1 < len(params); i += 2 {
			rctx.URLParams.Add(params[i], params[i+1])
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	return req.WithContext(ctx)
}

// --------------------------------------------------------------------------
// Integration environment
// --------------------------------------------------------------------------

// testDB connects to the test PostgreSQL through database.Connect and
// migrates it.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		envOr("POSTGRES_USER", "campusboard"),
		envOr("POSTGRES_PASSWORD", "changeme"),
		envOr("POSTGRES_HOST", "localhost"),
		envOr("POSTGRES_PORT", "5432"),
		envOr("POSTGRES_DB", "campusboard"))

	db, err := database.Connect(dsn)
	if err != nil {
		t.Skipf("skipping: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// testValkeyClient returns a Redis client for handler tests on DB 15.
func testValkeyClient(t *testing.T) *redis.Client {
	t.Helper()

	host := envOr("VALKEY_HOST", "localhost")
	port := envOr("VALKEY_PORT", "6379")
	password := os.Getenv("VALKEY_PASSWORD")

	client := redis.NewClient(&redis.Options{
		Addr:     host + ":" + port,
		Password: password,
		DB:       15,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("skipping: Valkey not reachable: %v", err)
	}

	t.Cleanup(func() {
		for _, pattern := range []string{"session:*", "registry:*"} {
			keys, _ := client.Keys(ctx, pattern).Result()
			if len(keys) > 0 {
				client.Del(ctx, keys...)
			}
		}
		client.Close()
	})

	return client
}

// testEnv holds all dependencies for handler integration tests.
type testEnv struct {
	DB        *sql.DB
	Valkey    *redis.Client
	Sessions  *session.Store
	UserStore *store.UserStore
	Service   *board.Service
	Auth      *Auth
	Board     *Board
}

// newTestEnv creates a complete test environment backed by PostgreSQL and
// Valkey.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testDB(t)
	vk := testValkeyClient(t)
	renderer := testRenderer(t)

	sessions := session.NewStore(vk, false)
	userStore := store.NewUserStore(db)
	categories := store.NewCategoryStore(db, cache.NewRegistryCache(vk, time.Minute))
	svc := board.New(categories, store.NewPostStore(db), store.NewCommentStore(db), board.Options{Cascade: true})
	master := auth.NewMaster(testMasterEmail)

	return &testEnv{
		DB:        db,
		Valkey:    vk,
		Sessions:  sessions,
		UserStore: userStore,
		Service:   svc,
		Auth:      NewAuth(renderer, sessions, auth.NewService(userStore, master), userStore),
		Board:     NewBoard(renderer, svc, master),
	}
}

// cleanUsers removes test accounts by email together with their posts and
// comments.
func cleanUsers(t *testing.T, db *sql.DB, emails ...string) {
	t.Helper()
	for _, e := range emails {
		const author = `SELECT id FROM users WHERE LOWER(email) = LOWER($1)`
		db.Exec(`DELETE FROM comments WHERE author_id IN (`+author+`)`, e)
		db.Exec(`DELETE FROM comments WHERE post_id IN (SELECT id FROM posts WHERE author_id IN (`+author+`))`, e)
		db.Exec(`DELETE FROM posts WHERE author_id IN (`+author+`)`, e)
		db.Exec(`DELETE FROM users WHERE LOWER(email) = LOWER($1)`, e)
	}
}
