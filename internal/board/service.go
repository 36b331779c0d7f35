// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package board

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"campusboard/internal/models"
)

// Options tune the service.
type Options struct {
	// Cascade deletes a post's comments together with the post.
	Cascade bool
}

// Service is the single entry point for reading and changing board data.
type Service struct {
	categories CategoryRepository
	posts      PostRepository
	comments   CommentRepository
	opts       Options
}

// New returns a Service backed by the given repositories.
func New(categories CategoryRepository, posts PostRepository, comments CommentRepository, opts Options) *Service {
	return &Service{categories: categories, posts: posts, comments: comments, opts: opts}
}

// PostInput is the user-supplied part of a new post.
type PostInput struct {
	Title    string
	Content  string
	Category string
}

// --- Categories ---

// Categories returns the registry in sidebar order.
func (s *Service) Categories(ctx context.Context) ([]models.Category, error) {
	list, _, err := s.categories.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch categories: %w", err)
	}
	return list, nil
}

// Category returns the registry entry for name, or nil if there is none.
func (s *Service) Category(ctx context.Context, name string) (*models.Category, error) {
	list, err := s.Categories(ctx)
	if err != nil {
		return nil, err
	}
	i := slices.IndexFunc(list, func(c models.Category) bool { return c.Name == name })
	if i < 0 {
		return nil, nil
	}
	return &list[i], nil
}

// WritableCategories lists the boards the actor may post to, sorted by
// name. The master board has no registry entry; it is offered to the
// master with an empty label for the view to fill in.
func (s *Service) WritableCategories(ctx context.Context, actor *Actor) ([]models.Category, error) {
	list, err := s.Categories(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]models.Category, 0, len(list)+1)
	for _, c := range list {
		if actor.CanPostTo(c.Name) {
			out = append(out, c)
		}
	}
	if actor.CanPostTo(models.CategoryMaster) && !slices.ContainsFunc(out, func(c models.Category) bool {
		return c.Name == models.CategoryMaster
	}) {
		out = append(out, models.Category{
			Name: models.CategoryMaster,
			Path: models.CategoryPath(models.CategoryMaster),
		})
	}
	slices.SortFunc(out, func(a, b models.Category) int { return cmp.Compare(a.Name, b.Name) })
	return out, nil
}

// AddCategory creates a board from label. Master only.
func (s *Service) AddCategory(ctx context.Context, actor *Actor, label string) (*models.Category, error) {
	if !actor.CanManageCategories() {
		return nil, ErrPermission
	}
	label = strings.TrimSpace(label)
	if label == "" {
		return nil, ErrInvalidInput
	}
	return s.categories.Add(ctx, label)
}

// RemoveCategory deletes the board called name. Master only. Posts that
// referenced it keep their category value.
func (s *Service) RemoveCategory(ctx context.Context, actor *Actor, name string) error {
	if !actor.CanManageCategories() {
		return ErrPermission
	}
	return s.categories.Remove(ctx, name)
}

// checkCategory verifies that actor may post to category and that it
// exists.
func (s *Service) checkCategory(ctx context.Context, actor *Actor, category string) error {
	if !actor.CanPostTo(category) {
		return ErrPermission
	}
	if category == models.CategoryMaster {
		return nil
	}
	c, err := s.Category(ctx, category)
	if err != nil {
		return err
	}
	if c == nil {
		return ErrUnknownCategory
	}
	return nil
}

// --- Posts ---

// CreatePost stores a new post written by actor. The author's nickname and
// affiliation are copied onto the post.
func (s *Service) CreatePost(ctx context.Context, actor *Actor, in PostInput) (*models.Post, error) {
	if err := s.checkCategory(ctx, actor, in.Category); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(in.Title)
	if title == "" || strings.TrimSpace(in.Content) == "" {
		return nil, ErrInvalidInput
	}

	return s.posts.Create(ctx, &models.Post{
		Title:       title,
		Content:     in.Content,
		Category:    in.Category,
		AuthorID:    actor.UserID,
		Nickname:    actor.Nickname,
		Affiliation: actor.Affiliation,
	})
}

// Posts returns every post, newest first.
func (s *Service) Posts(ctx context.Context) ([]models.Post, error) {
	return s.posts.List(ctx)
}

// PostsInCategory returns the posts of one board, newest first.
func (s *Service) PostsInCategory(ctx context.Context, category string) ([]models.Post, error) {
	return s.posts.ListByCategory(ctx, category)
}

// Search returns posts whose title starts with term.
func (s *Service) Search(ctx context.Context, term string) ([]models.Post, error) {
	return s.posts.SearchByTitlePrefix(ctx, term)
}

// Post returns the post with id, or nil if it does not exist.
func (s *Service) Post(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	return s.posts.FindByID(ctx, id)
}

// UpdatePost applies u to the post. Author only.
func (s *Service) UpdatePost(ctx context.Context, actor *Actor, id uuid.UUID, u models.PostUpdate) error {
	p, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if p == nil {
		return ErrNotFound
	}
	if !actor.CanEditPost(p) {
		return ErrPermission
	}
	if u.Empty() {
		return nil
	}

	if u.Title != nil {
		title := strings.TrimSpace(*u.Title)
		if title == "" {
			return ErrInvalidInput
		}
		u.Title = &title
	}
	if u.Content != nil && strings.TrimSpace(*u.Content) == "" {
		return ErrInvalidInput
	}
	if u.Category != nil && *u.Category != p.Category {
		if err := s.checkCategory(ctx, actor, *u.Category); err != nil {
			return err
		}
	}
	return s.posts.Update(ctx, id, u)
}

// DeletePost removes the post. Author or master.
func (s *Service) DeletePost(ctx context.Context, actor *Actor, id uuid.UUID) error {
	p, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if p == nil {
		return ErrNotFound
	}
	if !actor.CanDeletePost(p) {
		return ErrPermission
	}
	return s.posts.Delete(ctx, id, s.opts.Cascade)
}

// --- Comments ---

// Comments returns the comments of a post, oldest first.
func (s *Service) Comments(ctx context.Context, postID uuid.UUID) ([]models.Comment, error) {
	return s.comments.List(ctx, postID)
}

// AddComment attaches a comment by actor to the post.
func (s *Service) AddComment(ctx context.Context, actor *Actor, postID uuid.UUID, text string) (*models.Comment, error) {
	if !actor.CanComment() {
		return nil, ErrPermission
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrInvalidInput
	}

	return s.comments.Add(ctx, postID, &models.Comment{
		Text:              text,
		AuthorID:          actor.UserID,
		AuthorNickname:    actor.Nickname,
		AuthorAffiliation: actor.Affiliation,
	})
}

// UpdateComment replaces the comment text. Author only.
func (s *Service) UpdateComment(ctx context.Context, actor *Actor, postID, commentID uuid.UUID, text string) error {
	c, err := s.comments.FindByID(ctx, postID, commentID)
	if err != nil {
		return err
	}
	if c == nil {
		return ErrNotFound
	}
	if !actor.CanEditComment(c) {
		return ErrPermission
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrInvalidInput
	}
	return s.comments.Update(ctx, postID, commentID, text)
}

// DeleteComment removes the comment. Author or master.
func (s *Service) DeleteComment(ctx context.Context, actor *Actor, postID, commentID uuid.UUID) error {
	c, err := s.comments.FindByID(ctx, postID, commentID)
	if err != nil {
		return err
	}
	if c == nil {
		return ErrNotFound
	}
	if !actor.CanDeleteComment(c) {
		return ErrPermission
	}
	return s.comments.Delete(ctx, postID, commentID)
}
