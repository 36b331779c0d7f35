// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"campusboard/internal/models"
)

func TestDefaultCategories(t *testing.T) {
	want := []models.Category{
		{Name: "general", Label: "전체 게시판", Path: "/home/general"},
		{Name: "free", Label: "자유 게시판", Path: "/home/category/free"},
		{Name: "info", Label: "정보 공유", Path: "/home/category/info"},
	}
	if diff := cmp.Diff(want, DefaultCategories()); diff != "" {
		t.Errorf("default categories mismatch (-want +got):\n%s", diff)
	}

	// Callers get their own copy.
	list := DefaultCategories()
	list[0].Label = "changed"
	if DefaultCategories()[0].Label == "changed" {
		t.Error("DefaultCategories must return a copy")
	}
}

func TestValidateCategories(t *testing.T) {
	tests := []struct {
		name string
		list []models.Category
		want error
	}{
		{"empty list", nil, nil},
		{"valid", DefaultCategories(), nil},
		{"missing name", []models.Category{{Label: "x"}}, ErrInvalidCategory},
		{"missing label", []models.Category{{Name: "x"}}, ErrInvalidCategory},
		{"duplicate", []models.Category{{Name: "a", Label: "A"}, {Name: "a", Label: "B"}}, ErrDuplicateCategory},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateCategories(tt.list)
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRemoveProtectedWithoutStorage(t *testing.T) {
	// A nil DB proves the protected check never reaches storage.
	s := NewCategoryStore(nil, nil)
	for _, name := range []string{"general", "master", "free", "info"} {
		err := s.Remove(context.Background(), name)
		var protected *ProtectedCategoryError
		if !errors.As(err, &protected) {
			t.Fatalf("Remove(%q): got %v, want ProtectedCategoryError", name, err)
		}
		if protected.Name != name {
			t.Errorf("error name: got %q, want %q", protected.Name, name)
		}
	}
}

func TestAddReservedNameWithoutStorage(t *testing.T) {
	s := NewCategoryStore(nil, nil)
	tests := []struct {
		label string
		want  error
	}{
		{"Master!", ErrDuplicateCategory},
		{"  General ", ErrDuplicateCategory},
		{"F R E E", ErrDuplicateCategory},
		{"info", ErrDuplicateCategory},
		{"!!!", ErrInvalidCategory},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			cat, err := s.Add(context.Background(), tt.label)
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
			if cat != nil {
				t.Errorf("no category should be returned, got %+v", cat)
			}
		})
	}
}

func TestIsRegistryError(t *testing.T) {
	if !IsRegistryError(&ProtectedCategoryError{Name: "free"}) {
		t.Error("protected error should be a registry error")
	}
	if !IsRegistryError(fmt.Errorf("wrap: %w", ErrDuplicateCategory)) {
		t.Error("wrapped duplicate should be a registry error")
	}
	if IsRegistryError(errors.New("connection reset")) {
		t.Error("transport error should not be a registry error")
	}
}

// memoryRegistryCache keeps the newest version it is given, like the
// Valkey cache. beforeSet, when set, runs once ahead of the next Set.
type memoryRegistryCache struct {
	mu        sync.Mutex
	list      []models.Category
	version   int64
	ok        bool
	sets      int
	beforeSet func()
}

func (c *memoryRegistryCache) Get(context.Context) ([]models.Category, int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.list, c.version, c.ok
}

func (c *memoryRegistryCache) Set(_ context.Context, list []models.Category, version int64) {
	c.mu.Lock()
	hook := c.beforeSet
	c.beforeSet = nil
	c.mu.Unlock()
	if hook != nil {
		hook()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	if c.ok && c.version >= version {
		return
	}
	c.list, c.version, c.ok = slices.Clone(list), version, true
}

func TestCategoryStoreFetchDefaults(t *testing.T) {
	db := testDB(t)
	resetRegistry(t, db)
	t.Cleanup(func() { resetRegistry(t, db) })

	list, version, err := NewCategoryStore(db, nil).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if version != 0 {
		t.Errorf("version: got %d, want 0", version)
	}
	if diff := cmp.Diff(DefaultCategories(), list); diff != "" {
		t.Errorf("list mismatch (-want +got):\n%s", diff)
	}
}

func TestCategoryStoreReplace(t *testing.T) {
	db := testDB(t)
	resetRegistry(t, db)
	t.Cleanup(func() { resetRegistry(t, db) })

	cache := &memoryRegistryCache{}
	s := NewCategoryStore(db, cache)
	ctx := context.Background()

	list := []models.Category{
		{Name: "general", Label: "전체 게시판", Path: "/home/general"},
		{Name: "free", Label: "자유 게시판", Path: "/home/category/free"},
	}
	if err := s.Replace(ctx, list); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if !cache.ok || cache.version != 1 {
		t.Errorf("replace should write through: cached version %d, ok %v", cache.version, cache.ok)
	}

	got, version, err := s.Fetch(ctx)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if version != 1 {
		t.Errorf("version: got %d, want 1", version)
	}
	if diff := cmp.Diff(list, got); diff != "" {
		t.Errorf("list mismatch (-want +got):\n%s", diff)
	}
	if !cache.ok {
		t.Error("Fetch should populate the cache")
	}

	// A second replace bumps the version.
	if err := s.Replace(ctx, list[:1]); err != nil {
		t.Fatalf("second Replace: %v", err)
	}
	_, version, _ = s.Fetch(ctx)
	if version != 2 {
		t.Errorf("version after second replace: got %d, want 2", version)
	}

	dup := append(list, list[1])
	if err := s.Replace(ctx, dup); !errors.Is(err, ErrDuplicateCategory) {
		t.Errorf("duplicate replace: got %v, want ErrDuplicateCategory", err)
	}
}

func TestCategoryStoreStaleFetchKeepsNewerCache(t *testing.T) {
	db := testDB(t)
	resetRegistry(t, db)
	t.Cleanup(func() { resetRegistry(t, db) })

	cache := &memoryRegistryCache{}
	s := NewCategoryStore(db, cache)
	ctx := context.Background()

	// The reader misses the cache and loads the defaults at version 0. Before
	// it stores them, an admin adds a board.
	var addErr error
	cache.beforeSet = func() {
		_, addErr = s.Add(ctx, "Late Board")
	}
	stale, staleVersion, err := s.Fetch(ctx)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if addErr != nil {
		t.Fatalf("Add: %v", addErr)
	}
	if staleVersion != 0 || len(stale) != len(DefaultCategories()) {
		t.Fatalf("reader should have seen the old row: version %d, %d entries", staleVersion, len(stale))
	}

	list, version, err := s.Fetch(ctx)
	if err != nil {
		t.Fatalf("second Fetch: %v", err)
	}
	if version != 1 {
		t.Errorf("cached version: got %d, want 1", version)
	}
	if !slices.ContainsFunc(list, func(c models.Category) bool { return c.Name == "lateboard" }) {
		t.Errorf("new board missing from cached list %+v", list)
	}
}

func TestCategoryStoreAddRemove(t *testing.T) {
	db := testDB(t)
	resetRegistry(t, db)
	t.Cleanup(func() { resetRegistry(t, db) })

	s := NewCategoryStore(db, nil)
	ctx := context.Background()

	cat, err := s.Add(ctx, "Study Group")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if cat.Name != "studygroup" || cat.Path != "/home/category/studygroup" {
		t.Errorf("derived category: got %+v", cat)
	}

	list, version, _ := s.Fetch(ctx)
	if version != 1 || len(list) != 4 || list[3].Name != "studygroup" {
		t.Fatalf("after add: version %d, list %+v", version, list)
	}

	if _, err := s.Add(ctx, "study group"); !errors.Is(err, ErrDuplicateCategory) {
		t.Errorf("duplicate add: got %v, want ErrDuplicateCategory", err)
	}
	if _, err := s.Add(ctx, "   "); !errors.Is(err, ErrInvalidCategory) {
		t.Errorf("blank add: got %v, want ErrInvalidCategory", err)
	}

	if err := s.Remove(ctx, "studygroup"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	// Removing again is a no-op and does not bump the version.
	if err := s.Remove(ctx, "studygroup"); err != nil {
		t.Fatalf("second Remove: %v", err)
	}
	list, version, _ = s.Fetch(ctx)
	if version != 2 {
		t.Errorf("version: got %d, want 2", version)
	}
	if diff := cmp.Diff(DefaultCategories(), list); diff != "" {
		t.Errorf("list mismatch (-want +got):\n%s", diff)
	}

	// Protected names are refused and leave the list untouched.
	var protected *ProtectedCategoryError
	if err := s.Remove(ctx, "free"); !errors.As(err, &protected) {
		t.Errorf("Remove(free): got %v, want ProtectedCategoryError", err)
	}
	after, afterVersion, _ := s.Fetch(ctx)
	if afterVersion != version || len(after) != len(list) {
		t.Error("protected remove must not change the registry")
	}
}

func TestCategoryStoreConcurrentMutate(t *testing.T) {
	db := testDB(t)
	resetRegistry(t, db)
	t.Cleanup(func() { resetRegistry(t, db) })

	s := NewCategoryStore(db, nil)
	ctx := context.Background()

	const writers = 8
	var wg sync.WaitGroup
	results := make([]error, writers)
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, results[i] = s.Add(ctx, fmt.Sprintf("board%d", i))
		}()
	}
	wg.Wait()

	list, _, err := s.Fetch(ctx)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	names := make(map[string]bool, len(list))
	for _, c := range list {
		names[c.Name] = true
	}

	added := 0
	for i, err := range results {
		name := fmt.Sprintf("board%d", i)
		switch {
		case err == nil:
			added++
			if !names[name] {
				t.Errorf("successful add of %s was lost", name)
			}
		case errors.Is(err, ErrRegistryConflict):
			if names[name] {
				t.Errorf("failed add of %s is present", name)
			}
		default:
			t.Errorf("Add(%s): unexpected error %v", name, err)
		}
	}
	if len(list) != len(DefaultCategories())+added {
		t.Errorf("list length: got %d, want %d", len(list), len(DefaultCategories())+added)
	}
}
