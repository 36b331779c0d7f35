// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package database

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Seed populates the database with initial development data. It creates
// the master account if no user holds that email yet. The master will be
// prompted to set up 2FA on first sign-in (totp_enabled = false).
func Seed(db *sql.DB, masterEmail, masterPassword string) error {
	masterEmail = strings.ToLower(strings.TrimSpace(masterEmail))
	if masterEmail == "" {
		return fmt.Errorf("seed: master email is empty")
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM users WHERE LOWER(email) = $1`, masterEmail).Scan(&count); err != nil {
		return fmt.Errorf("seed check master: %w", err)
	}

	if count > 0 {
		slog.Info("master account already present, skipping seed")
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(masterPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("seed bcrypt: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO users (email, password_hash, nickname, affiliation, role, totp_enabled)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, masterEmail, string(hash), "master", "운영진", "admin", false)
	if err != nil {
		return fmt.Errorf("seed insert master: %w", err)
	}

	slog.Info("database seeded with master account", "email", masterEmail)
	return nil
}
