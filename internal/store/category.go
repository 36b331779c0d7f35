// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"gopkg.in/yaml.v3"

	"campusboard/internal/models"
	"campusboard/internal/slug"
)

//go:embed default_categories.yaml
var defaultCategoriesYAML []byte

var defaultCategories = mustParseCategories(defaultCategoriesYAML)

// maxMutateAttempts bounds the optimistic retry loop in Mutate.
const maxMutateAttempts = 3

func mustParseCategories(data []byte) []models.Category {
	var list []models.Category
	if err := yaml.Unmarshal(data, &list); err != nil {
		panic(fmt.Sprintf("parse default categories: %v", err))
	}
	for i := range list {
		if list[i].Path == "" {
			list[i].Path = models.CategoryPath(list[i].Name)
		}
	}
	return list
}

// DefaultCategories returns the list served while the registry is unset.
func DefaultCategories() []models.Category {
	return slices.Clone(defaultCategories)
}

// RegistryCache is a read-through cache for the category list. Set must
// keep an entry whose version is the same or newer, so a reader holding an
// old row cannot replace a list written after its read.
type RegistryCache interface {
	Get(ctx context.Context) ([]models.Category, int64, bool)
	Set(ctx context.Context, list []models.Category, version int64)
}

// CategoryStore manages the category registry: the whole list of boards is
// kept in a single versioned row.
type CategoryStore struct {
	db    *sql.DB
	cache RegistryCache
}

// NewCategoryStore returns a new CategoryStore. cache may be nil.
func NewCategoryStore(db *sql.DB, cache RegistryCache) *CategoryStore {
	return &CategoryStore{db: db, cache: cache}
}

// Fetch returns the stored category list and its version. When the registry
// has never been written it returns the default list with version 0.
func (s *CategoryStore) Fetch(ctx context.Context) ([]models.Category, int64, error) {
	if s.cache != nil {
		if list, version, ok := s.cache.Get(ctx); ok {
			return list, version, nil
		}
	}

	list, version, err := s.read(ctx)
	if err != nil {
		return nil, 0, err
	}
	if s.cache != nil {
		s.cache.Set(ctx, list, version)
	}
	return list, version, nil
}

// read loads the registry row directly from the database.
func (s *CategoryStore) read(ctx context.Context) ([]models.Category, int64, error) {
	var raw []byte
	var version int64
	err := s.db.QueryRowContext(ctx, `SELECT list, version FROM category_registry WHERE id = 1`).Scan(&raw, &version)
	if err == sql.ErrNoRows {
		return DefaultCategories(), 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("fetch categories: %w", err)
	}

	var list []models.Category
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, 0, fmt.Errorf("decode categories: %w", err)
	}
	return list, version, nil
}

// Replace overwrites the whole category list, creating the registry if needed.
func (s *CategoryStore) Replace(ctx context.Context, list []models.Category) error {
	if err := validateCategories(list); err != nil {
		return err
	}
	raw, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encode categories: %w", err)
	}

	var version int64
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO category_registry (id, list, version, updated_at)
		VALUES (1, $1, 1, NOW())
		ON CONFLICT (id) DO UPDATE
		SET list = EXCLUDED.list,
		    version = category_registry.version + 1,
		    updated_at = NOW()
		RETURNING version
	`, raw).Scan(&version)
	if err != nil {
		return fmt.Errorf("replace categories: %w", err)
	}
	s.remember(ctx, list, version)
	return nil
}

// Mutate applies fn to the current list and stores the result, provided no
// other writer changed the registry in between. Conflicts are retried with a
// fresh read; after maxMutateAttempts it gives up with ErrRegistryConflict.
// If fn returns the list unchanged nothing is written.
func (s *CategoryStore) Mutate(ctx context.Context, fn func([]models.Category) ([]models.Category, error)) error {
	for attempt := 1; attempt <= maxMutateAttempts; attempt++ {
		current, version, err := s.read(ctx)
		if err != nil {
			return err
		}

		next, err := fn(slices.Clone(current))
		if err != nil {
			return err
		}
		if slices.Equal(current, next) {
			return nil
		}
		if err := validateCategories(next); err != nil {
			return err
		}

		ok, err := s.writeIfVersion(ctx, next, version)
		if err != nil {
			return err
		}
		if ok {
			s.remember(ctx, next, version+1)
			return nil
		}
		slog.Debug("category registry conflict, retrying", "attempt", attempt, "version", version)
	}
	return ErrRegistryConflict
}

// writeIfVersion stores list only if the registry is still at version. A
// version of 0 means the row did not exist when it was read.
func (s *CategoryStore) writeIfVersion(ctx context.Context, list []models.Category, version int64) (bool, error) {
	raw, err := json.Marshal(list)
	if err != nil {
		return false, fmt.Errorf("encode categories: %w", err)
	}

	var res sql.Result
	if version == 0 {
		res, err = s.db.ExecContext(ctx, `
			INSERT INTO category_registry (id, list, version, updated_at)
			VALUES (1, $1, 1, NOW())
			ON CONFLICT (id) DO NOTHING
		`, raw)
	} else {
		res, err = s.db.ExecContext(ctx, `
			UPDATE category_registry
			SET list = $1, version = version + 1, updated_at = NOW()
			WHERE id = 1 AND version = $2
		`, raw, version)
	}
	if err != nil {
		return false, fmt.Errorf("write categories: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("write categories rows affected: %w", err)
	}
	return n == 1, nil
}

// Remove deletes the category with the given name. Protected boards are
// refused before storage is touched; removing an absent name is a no-op.
func (s *CategoryStore) Remove(ctx context.Context, name string) error {
	if models.IsProtectedCategory(name) {
		return &ProtectedCategoryError{Name: name}
	}
	return s.Mutate(ctx, func(list []models.Category) ([]models.Category, error) {
		return slices.DeleteFunc(list, func(c models.Category) bool { return c.Name == name }), nil
	})
}

// Add appends a new board whose name is derived from label.
func (s *CategoryStore) Add(ctx context.Context, label string) (*models.Category, error) {
	name := slug.Generate(label)
	if err := CheckNewCategoryName(name); err != nil {
		return nil, err
	}
	cat := models.Category{Name: name, Label: label, Path: models.CategoryPath(name)}

	err := s.Mutate(ctx, func(list []models.Category) ([]models.Category, error) {
		if slices.ContainsFunc(list, func(c models.Category) bool { return c.Name == name }) {
			return nil, ErrDuplicateCategory
		}
		return append(list, cat), nil
	})
	if err != nil {
		return nil, err
	}
	return &cat, nil
}

// CheckNewCategoryName rejects names a new board may not take: empty names
// and the protected set. Protected boards either exist already or, like
// master, live outside the registry; as entries they could never be removed.
func CheckNewCategoryName(name string) error {
	if name == "" {
		return ErrInvalidCategory
	}
	if models.IsProtectedCategory(name) {
		return fmt.Errorf("%w: %s is reserved", ErrDuplicateCategory, name)
	}
	return nil
}

// remember writes a freshly stored list through to the cache.
func (s *CategoryStore) remember(ctx context.Context, list []models.Category, version int64) {
	if s.cache != nil {
		s.cache.Set(ctx, list, version)
	}
}

// validateCategories checks that every entry has a name and label and that
// names are unique.
func validateCategories(list []models.Category) error {
	seen := make(map[string]bool, len(list))
	for _, c := range list {
		if c.Name == "" || c.Label == "" {
			return ErrInvalidCategory
		}
		if seen[c.Name] {
			return fmt.Errorf("%w: %s", ErrDuplicateCategory, c.Name)
		}
		seen[c.Name] = true
	}
	return nil
}

// IsRegistryError reports whether err is one of the registry validation or
// concurrency errors that should be shown to the user rather than logged.
func IsRegistryError(err error) bool {
	var protected *ProtectedCategoryError
	return errors.As(err, &protected) ||
		errors.Is(err, ErrDuplicateCategory) ||
		errors.Is(err, ErrInvalidCategory) ||
		errors.Is(err, ErrRegistryConflict)
}
