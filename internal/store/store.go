// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package store provides database access methods for all board entities.
// Each store struct wraps a *sql.DB and exposes typed query methods.
// Finders return (nil, nil) when a row does not exist; mutations on a
// missing row return ErrNotFound.
package store

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned by mutations that matched no row.
	ErrNotFound = errors.New("not found")

	// ErrEmailTaken is returned when a user registers an email that is
	// already in use (case-insensitive).
	ErrEmailTaken = errors.New("email already registered")

	// ErrDuplicateCategory is returned when a category list would contain
	// the same name twice.
	ErrDuplicateCategory = errors.New("duplicate category name")

	// ErrInvalidCategory is returned for categories without a name or label.
	ErrInvalidCategory = errors.New("invalid category")

	// ErrRegistryConflict is returned when a registry mutation kept losing
	// the race against concurrent writers.
	ErrRegistryConflict = errors.New("category registry changed concurrently")
)

// ProtectedCategoryError is returned when removing one of the fixed boards.
type ProtectedCategoryError struct {
	Name string
}

func (e *ProtectedCategoryError) Error() string {
	return fmt.Sprintf("category %q is protected and cannot be removed", e.Name)
}

// pgUniqueViolation is the SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// isUniqueViolation reports whether err is a PostgreSQL unique constraint
// violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
