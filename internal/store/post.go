// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"campusboard/internal/models"
)

// searchSentinel is the highest code point. Appending it to a prefix yields
// an upper bound above every string that starts with the prefix.
const searchSentinel = "\U0010FFFF"

// PostStore handles post database operations.
type PostStore struct {
	db *sql.DB
}

// NewPostStore creates a new PostStore with the given database connection.
func NewPostStore(db *sql.DB) *PostStore {
	return &PostStore{db: db}
}

const postColumns = `id, title, content, category, author_id, nickname, affiliation, comment_count, created_at, updated_at`

func scanPost(scanner interface{ Scan(...any) error }) (*models.Post, error) {
	p := &models.Post{}
	err := scanner.Scan(
		&p.ID, &p.Title, &p.Content, &p.Category, &p.AuthorID,
		&p.Nickname, &p.Affiliation, &p.CommentCount, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Create inserts a new post. The id, timestamps and comment count are set by
// the database and written back into the returned copy.
func (s *PostStore) Create(ctx context.Context, p *models.Post) (*models.Post, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO posts (title, content, category, author_id, nickname, affiliation)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+postColumns,
		p.Title, p.Content, p.Category, p.AuthorID, p.Nickname, p.Affiliation,
	)
	created, err := scanPost(row)
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	return created, nil
}

// List returns all posts, newest first.
func (s *PostStore) List(ctx context.Context) ([]models.Post, error) {
	return s.query(ctx, "list posts",
		`SELECT `+postColumns+` FROM posts ORDER BY created_at DESC`)
}

// ListByCategory returns the posts of one category, newest first.
func (s *PostStore) ListByCategory(ctx context.Context, category string) ([]models.Post, error) {
	return s.query(ctx, "list posts by category",
		`SELECT `+postColumns+` FROM posts WHERE category = $1 ORDER BY created_at DESC`, category)
}

// SearchByTitlePrefix returns posts whose title starts with term, ordered by
// title in byte order. A blank term matches nothing.
func (s *PostStore) SearchByTitlePrefix(ctx context.Context, term string) ([]models.Post, error) {
	if strings.TrimSpace(term) == "" || !utf8.ValidString(term) {
		return []models.Post{}, nil
	}

	items, err := s.query(ctx, "search posts",
		`SELECT `+postColumns+` FROM posts
		WHERE title COLLATE "C" >= $1 AND title COLLATE "C" < $2
		ORDER BY title COLLATE "C" ASC`,
		term, term+searchSentinel)
	if err != nil {
		return nil, err
	}

	out := items[:0]
	for _, p := range items {
		if strings.HasPrefix(p.Title, term) {
			out = append(out, p)
		}
	}
	return out, nil
}

// FindByID retrieves a single post. Returns nil if not found.
func (s *PostStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE id = $1`, id)
	p, err := scanPost(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find post: %w", err)
	}
	return p, nil
}

// Update applies the non-nil fields of u and refreshes updated_at.
// Returns ErrNotFound if the post does not exist.
func (s *PostStore) Update(ctx context.Context, id uuid.UUID, u models.PostUpdate) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE posts
		SET title = COALESCE($1, title),
		    content = COALESCE($2, content),
		    category = COALESCE($3, category),
		    updated_at = NOW()
		WHERE id = $4
	`, u.Title, u.Content, u.Category, id)
	if err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	return requireAffected(res, "update post")
}

// Delete removes a post. When cascade is set its comments are removed in the
// same transaction; otherwise they are left in place.
func (s *PostStore) Delete(ctx context.Context, id uuid.UUID, cascade bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete post: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if err := requireAffected(res, "delete post"); err != nil {
		return err
	}

	if cascade {
		if _, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE post_id = $1`, id); err != nil {
			return fmt.Errorf("delete post comments: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete post: %w", err)
	}
	return nil
}

func (s *PostStore) query(ctx context.Context, op, q string, args ...any) ([]models.Post, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	items := []models.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		items = append(items, *p)
	}
	return items, rows.Err()
}
