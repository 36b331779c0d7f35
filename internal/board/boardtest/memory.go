// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package boardtest provides in-memory repositories for tests of code that
// sits on top of board.Service.
package boardtest

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"campusboard/internal/models"
	"campusboard/internal/slug"
	"campusboard/internal/store"
)

// Memory holds posts, comments and the category registry. Its clock
// advances one minute per write so that ordering is deterministic.
type Memory struct {
	mu       sync.Mutex
	registry []models.Category
	version  int64
	posts    []*models.Post
	comments []*models.Comment
	clock    time.Time

	// Err, when set, is returned by every repository call.
	Err error
}

// NewMemory returns an empty store whose registry holds the default list.
func NewMemory() *Memory {
	return &Memory{
		registry: store.DefaultCategories(),
		clock:    time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (m *Memory) tick() time.Time {
	m.clock = m.clock.Add(time.Minute)
	return m.clock
}

// Categories returns the registry repository.
func (m *Memory) Categories() *Categories { return &Categories{m: m} }

// Posts returns the post repository.
func (m *Memory) Posts() *Posts { return &Posts{m: m} }

// Comments returns the comment repository.
func (m *Memory) Comments() *Comments { return &Comments{m: m} }

// Categories implements board.CategoryRepository.
type Categories struct{ m *Memory }

func (c *Categories) Fetch(ctx context.Context) ([]models.Category, int64, error) {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	if c.m.Err != nil {
		return nil, 0, c.m.Err
	}
	return slices.Clone(c.m.registry), c.m.version, nil
}

func (c *Categories) Add(ctx context.Context, label string) (*models.Category, error) {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	if c.m.Err != nil {
		return nil, c.m.Err
	}

	name := slug.Generate(label)
	if err := store.CheckNewCategoryName(name); err != nil {
		return nil, err
	}
	if slices.ContainsFunc(c.m.registry, func(x models.Category) bool { return x.Name == name }) {
		return nil, store.ErrDuplicateCategory
	}
	cat := models.Category{Name: name, Label: label, Path: models.CategoryPath(name)}
	c.m.registry = append(c.m.registry, cat)
	c.m.version++
	return &cat, nil
}

func (c *Categories) Remove(ctx context.Context, name string) error {
	if models.IsProtectedCategory(name) {
		return &store.ProtectedCategoryError{Name: name}
	}
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	if c.m.Err != nil {
		return c.m.Err
	}
	before := len(c.m.registry)
	c.m.registry = slices.DeleteFunc(c.m.registry, func(x models.Category) bool { return x.Name == name })
	if len(c.m.registry) != before {
		c.m.version++
	}
	return nil
}

// Posts implements board.PostRepository.
type Posts struct{ m *Memory }

func (p *Posts) Create(ctx context.Context, post *models.Post) (*models.Post, error) {
	p.m.mu.Lock()
	defer p.m.mu.Unlock()
	if p.m.Err != nil {
		return nil, p.m.Err
	}
	created := *post
	created.ID = uuid.New()
	created.CreatedAt = p.m.tick()
	created.UpdatedAt = created.CreatedAt
	created.CommentCount = 0
	p.m.posts = append(p.m.posts, &created)
	out := created
	return &out, nil
}

func (p *Posts) List(ctx context.Context) ([]models.Post, error) {
	return p.filter(func(*models.Post) bool { return true })
}

func (p *Posts) ListByCategory(ctx context.Context, category string) ([]models.Post, error) {
	return p.filter(func(post *models.Post) bool { return post.Category == category })
}

func (p *Posts) SearchByTitlePrefix(ctx context.Context, term string) ([]models.Post, error) {
	if strings.TrimSpace(term) == "" {
		return []models.Post{}, nil
	}
	out, err := p.filter(func(post *models.Post) bool { return strings.HasPrefix(post.Title, term) })
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(out, func(a, b models.Post) int { return cmp.Compare(a.Title, b.Title) })
	return out, nil
}

// filter returns matching posts newest first.
func (p *Posts) filter(keep func(*models.Post) bool) ([]models.Post, error) {
	p.m.mu.Lock()
	defer p.m.mu.Unlock()
	if p.m.Err != nil {
		return nil, p.m.Err
	}
	out := []models.Post{}
	for i := len(p.m.posts) - 1; i >= 0; i-- {
		if keep(p.m.posts[i]) {
			out = append(out, *p.m.posts[i])
		}
	}
	return out, nil
}

func (p *Posts) FindByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	p.m.mu.Lock()
	defer p.m.mu.Unlock()
	if p.m.Err != nil {
		return nil, p.m.Err
	}
	if post := p.m.post(id); post != nil {
		out := *post
		return &out, nil
	}
	return nil, nil
}

func (p *Posts) Update(ctx context.Context, id uuid.UUID, u models.PostUpdate) error {
	p.m.mu.Lock()
	defer p.m.mu.Unlock()
	if p.m.Err != nil {
		return p.m.Err
	}
	post := p.m.post(id)
	if post == nil {
		return store.ErrNotFound
	}
	if u.Title != nil {
		post.Title = *u.Title
	}
	if u.Content != nil {
		post.Content = *u.Content
	}
	if u.Category != nil {
		post.Category = *u.Category
	}
	post.UpdatedAt = p.m.tick()
	return nil
}

func (p *Posts) Delete(ctx context.Context, id uuid.UUID, cascade bool) error {
	p.m.mu.Lock()
	defer p.m.mu.Unlock()
	if p.m.Err != nil {
		return p.m.Err
	}
	if p.m.post(id) == nil {
		return store.ErrNotFound
	}
	p.m.posts = slices.DeleteFunc(p.m.posts, func(post *models.Post) bool { return post.ID == id })
	if cascade {
		p.m.comments = slices.DeleteFunc(p.m.comments, func(c *models.Comment) bool { return c.PostID == id })
	}
	return nil
}

// Comments implements board.CommentRepository.
type Comments struct{ m *Memory }

func (c *Comments) List(ctx context.Context, postID uuid.UUID) ([]models.Comment, error) {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	if c.m.Err != nil {
		return nil, c.m.Err
	}
	out := []models.Comment{}
	for _, cm := range c.m.comments {
		if cm.PostID == postID {
			out = append(out, *cm)
		}
	}
	return out, nil
}

func (c *Comments) FindByID(ctx context.Context, postID, commentID uuid.UUID) (*models.Comment, error) {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	if c.m.Err != nil {
		return nil, c.m.Err
	}
	if cm := c.m.comment(postID, commentID); cm != nil {
		out := *cm
		return &out, nil
	}
	return nil, nil
}

func (c *Comments) Add(ctx context.Context, postID uuid.UUID, comment *models.Comment) (*models.Comment, error) {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	if c.m.Err != nil {
		return nil, c.m.Err
	}
	post := c.m.post(postID)
	if post == nil {
		return nil, store.ErrNotFound
	}
	created := *comment
	created.ID = uuid.New()
	created.PostID = postID
	created.CreatedAt = c.m.tick()
	created.UpdatedAt = nil
	c.m.comments = append(c.m.comments, &created)
	post.CommentCount++
	out := created
	return &out, nil
}

func (c *Comments) Update(ctx context.Context, postID, commentID uuid.UUID, text string) error {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	if c.m.Err != nil {
		return c.m.Err
	}
	cm := c.m.comment(postID, commentID)
	if cm == nil {
		return store.ErrNotFound
	}
	now := c.m.tick()
	cm.Text = text
	cm.UpdatedAt = &now
	return nil
}

func (c *Comments) Delete(ctx context.Context, postID, commentID uuid.UUID) error {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	if c.m.Err != nil {
		return c.m.Err
	}
	if c.m.comment(postID, commentID) == nil {
		return store.ErrNotFound
	}
	c.m.comments = slices.DeleteFunc(c.m.comments, func(cm *models.Comment) bool { return cm.ID == commentID })
	if post := c.m.post(postID); post != nil && post.CommentCount > 0 {
		post.CommentCount--
	}
	return nil
}

func (m *Memory) post(id uuid.UUID) *models.Post {
	for _, p := range m.posts {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (m *Memory) comment(postID, commentID uuid.UUID) *models.Comment {
	for _, c := range m.comments {
		if c.ID == commentID && c.PostID == postID {
			return c
		}
	}
	return nil
}
