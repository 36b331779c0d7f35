// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package board enforces the access rules of the bulletin board. Handlers
// use Actor to decide which controls to show; Service checks the same rules
// again before every write.
package board

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"campusboard/internal/models"
	"campusboard/internal/store"
)

var (
	// ErrPermission is returned when the actor may not perform the action.
	ErrPermission = errors.New("permission denied")

	// ErrNotFound is returned when the post or comment does not exist. It is
	// the store's sentinel, so errors.Is works across both layers.
	ErrNotFound = store.ErrNotFound

	// ErrUnknownCategory is returned when a post targets a category that is
	// not in the registry.
	ErrUnknownCategory = errors.New("unknown category")

	// ErrInvalidInput is returned for blank titles, bodies and comments.
	ErrInvalidInput = errors.New("invalid input")
)

// CategoryRepository is the category registry.
type CategoryRepository interface {
	Fetch(ctx context.Context) ([]models.Category, int64, error)
	Add(ctx context.Context, label string) (*models.Category, error)
	Remove(ctx context.Context, name string) error
}

// PostRepository persists posts.
type PostRepository interface {
	Create(ctx context.Context, p *models.Post) (*models.Post, error)
	List(ctx context.Context) ([]models.Post, error)
	ListByCategory(ctx context.Context, category string) ([]models.Post, error)
	SearchByTitlePrefix(ctx context.Context, term string) ([]models.Post, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Post, error)
	Update(ctx context.Context, id uuid.UUID, u models.PostUpdate) error
	Delete(ctx context.Context, id uuid.UUID, cascade bool) error
}

// CommentRepository persists comments and keeps post counters in step.
type CommentRepository interface {
	List(ctx context.Context, postID uuid.UUID) ([]models.Comment, error)
	FindByID(ctx context.Context, postID, commentID uuid.UUID) (*models.Comment, error)
	Add(ctx context.Context, postID uuid.UUID, c *models.Comment) (*models.Comment, error)
	Update(ctx context.Context, postID, commentID uuid.UUID, text string) error
	Delete(ctx context.Context, postID, commentID uuid.UUID) error
}

// Actor is the signed-in member a request acts for. A nil *Actor is an
// anonymous visitor and may do nothing.
type Actor struct {
	UserID      uuid.UUID
	Email       string
	Nickname    string
	Affiliation string
	Master      bool
}

// Authenticated reports whether the actor is a signed-in member.
func (a *Actor) Authenticated() bool {
	return a != nil && a.UserID != uuid.Nil
}

// HasProfile reports whether the actor's profile was loaded.
func (a *Actor) HasProfile() bool {
	return a.Authenticated() && strings.TrimSpace(a.Nickname) != ""
}

// CanComment reports whether the actor may write comments. Comments show
// the author's affiliation, so it must be present.
func (a *Actor) CanComment() bool {
	return a.HasProfile() && strings.TrimSpace(a.Affiliation) != ""
}

// CanPostTo reports whether the actor may create a post in category.
// Nobody writes to the general board directly; the master board is
// reserved for the master.
func (a *Actor) CanPostTo(category string) bool {
	if !a.HasProfile() {
		return false
	}
	switch category {
	case "", models.CategoryGeneral:
		return false
	case models.CategoryMaster:
		return a.Master
	}
	return true
}

// CanEditPost reports whether the actor wrote p.
func (a *Actor) CanEditPost(p *models.Post) bool {
	return a.Authenticated() && p != nil && p.AuthorID == a.UserID
}

// CanDeletePost reports whether the actor wrote p or is the master.
func (a *Actor) CanDeletePost(p *models.Post) bool {
	return p != nil && (a.CanEditPost(p) || a.CanManageCategories())
}

// CanEditComment reports whether the actor wrote c.
func (a *Actor) CanEditComment(c *models.Comment) bool {
	return a.Authenticated() && c != nil && c.AuthorID == a.UserID
}

// CanDeleteComment reports whether the actor wrote c or is the master.
func (a *Actor) CanDeleteComment(c *models.Comment) bool {
	return c != nil && (a.CanEditComment(c) || a.CanManageCategories())
}

// CanManageCategories reports whether the actor is the master.
func (a *Actor) CanManageCategories() bool {
	return a.Authenticated() && a.Master
}
