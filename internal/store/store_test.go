// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Shared helpers for the store integration tests. Every test skips when
// PostgreSQL is unreachable.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"

	"github.com/caarlos0/env/v11"

	"campusboard/internal/database"
	"campusboard/internal/models"
)

// testPostgres mirrors the POSTGRES_* variables of docker-compose.yml.
type testPostgres struct {
	Host     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	Port     string `env:"POSTGRES_PORT" envDefault:"5432"`
	User     string `env:"POSTGRES_USER" envDefault:"campusboard"`
	Password string `env:"POSTGRES_PASSWORD" envDefault:"changeme"`
	Name     string `env:"POSTGRES_DB" envDefault:"campusboard"`
}

func (p testPostgres) dsn() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", p.User, p.Password, p.Host, p.Port, p.Name)
}

// testDB connects through database.Connect, migrates, and closes the pool
// when the test ends.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	cfg, err := env.ParseAs[testPostgres]()
	if err != nil {
		t.Fatalf("parse test env: %v", err)
	}
	db, err := database.Connect(cfg.dsn())
	if err != nil {
		t.Skipf("skipping integration test: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// cleanUsers removes test users and everything they wrote. Call in t.Cleanup().
func cleanUsers(t *testing.T, db *sql.DB, emails ...string) {
	t.Helper()
	for _, email := range emails {
		db.Exec(`DELETE FROM comments WHERE author_id IN (SELECT id FROM users WHERE LOWER(email) = LOWER($1))`, email)
		db.Exec(`DELETE FROM posts WHERE author_id IN (SELECT id FROM users WHERE LOWER(email) = LOWER($1))`, email)
		db.Exec(`DELETE FROM users WHERE LOWER(email) = LOWER($1)`, email)
	}
}

// resetRegistry drops the registry row so Fetch serves the defaults again.
func resetRegistry(t *testing.T, db *sql.DB) {
	t.Helper()
	if _, err := db.Exec(`DELETE FROM category_registry`); err != nil {
		t.Fatalf("reset registry: %v", err)
	}
}

// testAuthor creates a user to own posts and comments in a test.
func testAuthor(t *testing.T, db *sql.DB, email string) *models.User {
	t.Helper()
	t.Cleanup(func() { cleanUsers(t, db, email) })

	name, _, _ := strings.Cut(email, "@")
	u, err := NewUserStore(db).Create(context.Background(), email, "secret-pass", name, "컴퓨터공학과", models.RoleUser)
	if err != nil {
		t.Fatalf("create author: %v", err)
	}
	return u
}
