// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// Post is a board entry. Nickname and Affiliation are copied from the
// author's profile at creation time. CommentCount mirrors the number of
// live comments and is maintained by the comment store.
type Post struct {
	ID           uuid.UUID `json:"id"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	Category     string    `json:"category"`
	AuthorID     uuid.UUID `json:"author_id"`
	Nickname     string    `json:"nickname"`
	Affiliation  string    `json:"affiliation"`
	CommentCount int       `json:"comment_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// PostUpdate carries the fields of a partial post update. Nil fields are
// left untouched.
type PostUpdate struct {
	Title    *string
	Content  *string
	Category *string
}

// Empty reports whether the update changes nothing.
func (u PostUpdate) Empty() bool {
	return u.Title == nil && u.Content == nil && u.Category == nil
}

// WasEdited reports whether the post changed after it was created.
func (p *Post) WasEdited() bool {
	return p.UpdatedAt.Sub(p.CreatedAt) > time.Second
}
