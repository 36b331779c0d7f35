// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"campusboard/internal/models"
)

// CommentStore handles comments and keeps the parent post's comment_count
// in step with them.
type CommentStore struct {
	db *sql.DB
}

// NewCommentStore creates a new CommentStore with the given database connection.
func NewCommentStore(db *sql.DB) *CommentStore {
	return &CommentStore{db: db}
}

const commentColumns = `id, post_id, text, author_id, author_nickname, author_affiliation, created_at, updated_at`

func scanComment(scanner interface{ Scan(...any) error }) (*models.Comment, error) {
	c := &models.Comment{}
	err := scanner.Scan(
		&c.ID, &c.PostID, &c.Text, &c.AuthorID,
		&c.AuthorNickname, &c.AuthorAffiliation, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// List returns a post's comments, oldest first.
func (s *CommentStore) List(ctx context.Context, postID uuid.UUID) ([]models.Comment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+commentColumns+` FROM comments
		WHERE post_id = $1
		ORDER BY created_at ASC, id ASC
	`, postID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	items := []models.Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		items = append(items, *c)
	}
	return items, rows.Err()
}

// FindByID retrieves one comment of a post. Returns nil if not found.
func (s *CommentStore) FindByID(ctx context.Context, postID, commentID uuid.UUID) (*models.Comment, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+commentColumns+` FROM comments WHERE id = $1 AND post_id = $2
	`, commentID, postID)
	c, err := scanComment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find comment: %w", err)
	}
	return c, nil
}

// Add inserts a comment and increments the post's comment_count in one
// transaction. Returns ErrNotFound if the post does not exist.
func (s *CommentStore) Add(ctx context.Context, postID uuid.UUID, c *models.Comment) (*models.Comment, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin add comment: %w", err)
	}
	defer tx.Rollback()

	// The counter update doubles as the existence check and locks the post
	// row until commit.
	res, err := tx.ExecContext(ctx, `
		UPDATE posts SET comment_count = comment_count + 1 WHERE id = $1
	`, postID)
	if err != nil {
		return nil, fmt.Errorf("increment comment count: %w", err)
	}
	if err := requireAffected(res, "increment comment count"); err != nil {
		return nil, err
	}

	row := tx.QueryRowContext(ctx, `
		INSERT INTO comments (post_id, text, author_id, author_nickname, author_affiliation)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+commentColumns,
		postID, c.Text, c.AuthorID, c.AuthorNickname, c.AuthorAffiliation,
	)
	created, err := scanComment(row)
	if err != nil {
		return nil, fmt.Errorf("insert comment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit add comment: %w", err)
	}
	return created, nil
}

// Update replaces a comment's text and sets updated_at.
// Returns ErrNotFound if the comment does not exist.
func (s *CommentStore) Update(ctx context.Context, postID, commentID uuid.UUID, text string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE comments SET text = $1, updated_at = NOW()
		WHERE id = $2 AND post_id = $3
	`, text, commentID, postID)
	if err != nil {
		return fmt.Errorf("update comment: %w", err)
	}
	return requireAffected(res, "update comment")
}

// Delete removes a comment and decrements the post's comment_count in one
// transaction. The counter only moves when a row was actually deleted and
// never drops below zero. Returns ErrNotFound if the comment does not exist.
func (s *CommentStore) Delete(ctx context.Context, postID, commentID uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete comment: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE id = $1 AND post_id = $2`, commentID, postID)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	if err := requireAffected(res, "delete comment"); err != nil {
		return err
	}

	// The post may already be gone when cascading is off.
	if _, err := tx.ExecContext(ctx, `
		UPDATE posts SET comment_count = GREATEST(comment_count - 1, 0) WHERE id = $1
	`, postID); err != nil {
		return fmt.Errorf("decrement comment count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete comment: %w", err)
	}
	return nil
}
