// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package session provides Valkey-backed HTTP session management.
// Sessions are identified by a secure cookie and stored as JSON in Valkey
// with automatic TTL expiry. Sign-in and sign-out are announced on a pub/sub
// channel that the Gate listens to.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// CookieName is the name of the session cookie sent to the browser.
	CookieName = "cb_session"

	// DefaultTTL is how long a session lives in Valkey before automatic expiry.
	DefaultTTL = 24 * time.Hour

	// keyPrefix namespaces session keys in Valkey to avoid collisions.
	keyPrefix = "session:"

	// idLength is the byte length of the random session ID (32 bytes = 64 hex chars).
	idLength = 32
)

// Data holds the session payload stored in Valkey: the signed-in user's
// identity, the profile fields shown on every page, and 2FA status.
type Data struct {
	UserID      uuid.UUID `json:"user_id"`
	Email       string    `json:"email"`
	Nickname    string    `json:"nickname"`
	Affiliation string    `json:"affiliation"`
	Role        string    `json:"role"`
	TwoFADone   bool      `json:"two_fa_done"`
	CreatedAt   time.Time `json:"created_at"`
}

// IsAdmin reports whether the session carries the admin role.
func (d *Data) IsAdmin() bool {
	return d != nil && d.Role == "admin"
}

type ctxKey struct{}

// WithData returns a copy of ctx carrying the session for this request.
func WithData(ctx context.Context, d *Data) context.Context {
	return context.WithValue(ctx, ctxKey{}, d)
}

// FromContext returns the session attached to ctx, or nil when the request
// is anonymous.
func FromContext(ctx context.Context) *Data {
	d, _ := ctx.Value(ctxKey{}).(*Data)
	return d
}

// ErrNoSession is returned by Update when the request carries no live
// session.
var ErrNoSession = errors.New("no session")

// Store keeps sessions in Valkey under session:<id>, keyed by the value of
// the session cookie.
type Store struct {
	client *redis.Client
	ttl    time.Duration
	secure bool
}

// NewStore creates a session store backed by the given Valkey client.
// secure controls the Secure flag on the session cookie.
func NewStore(client *redis.Client, secure bool) *Store {
	return &Store{client: client, ttl: DefaultTTL, secure: secure}
}

func sessionKey(id string) string { return keyPrefix + id }

// sessionID returns the id from the request cookie, or "" when absent.
func sessionID(r *http.Request) string {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

func (s *Store) setCookie(w http.ResponseWriter, id string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
}

// Create stores data under a fresh random id, sets the cookie and
// announces the sign-in. It returns the id.
func (s *Store) Create(ctx context.Context, w http.ResponseWriter, data *Data) (string, error) {
	id, err := generateID()
	if err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	data.CreatedAt = time.Now().UTC()

	payload, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("encode session: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey(id), payload, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}

	s.setCookie(w, id, int(s.ttl.Seconds()))
	s.publish(ctx, Event{Type: EventSignedIn, UserID: data.UserID, At: data.CreatedAt})
	return id, nil
}

// Get loads the session named by the request cookie. A missing cookie or
// an expired entry is (nil, nil).
func (s *Store) Get(ctx context.Context, r *http.Request) (*Data, error) {
	id := sessionID(r)
	if id == "" {
		return nil, nil
	}

	payload, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	var data Data
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &data, nil
}

// Update rewrites the session in place. The entry keeps its original
// expiry, so finishing 2FA does not extend a session. It returns
// ErrNoSession when there is no cookie or the entry has expired.
func (s *Store) Update(ctx context.Context, r *http.Request, data *Data) error {
	id := sessionID(r)
	if id == "" {
		return ErrNoSession
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	err = s.client.SetArgs(ctx, sessionKey(id), payload, redis.SetArgs{Mode: "XX", KeepTTL: true}).Err()
	if errors.Is(err, redis.Nil) {
		return ErrNoSession
	}
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return nil
}

// Destroy deletes the session, expires the cookie and announces the
// sign-out. Without a cookie it does nothing.
func (s *Store) Destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	id := sessionID(r)
	if id == "" {
		return nil
	}

	payload, err := s.client.GetDel(ctx, sessionKey(id)).Bytes()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("delete session: %w", err)
	}
	s.setCookie(w, "", -1)

	var data Data
	if len(payload) > 0 && json.Unmarshal(payload, &data) == nil {
		s.publish(ctx, Event{Type: EventSignedOut, UserID: data.UserID, At: time.Now().UTC()})
	}
	return nil
}

// publish announces an auth-state change. Failures are logged only: a
// missed event never blocks sign-in or sign-out.
func (s *Store) publish(ctx context.Context, ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		slog.Warn("session event marshal failed", "error", err)
		return
	}
	if err := s.client.Publish(ctx, EventChannel, payload).Err(); err != nil {
		slog.Warn("session event publish failed", "type", ev.Type, "error", err)
	}
}

// generateID creates a cryptographically random session identifier.
func generateID() (string, error) {
	b := make([]byte, idLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
