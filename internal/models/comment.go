// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// Comment belongs to exactly one post. UpdatedAt stays nil until the
// author edits the text.
type Comment struct {
	ID                uuid.UUID  `json:"id"`
	PostID            uuid.UUID  `json:"post_id"`
	Text              string     `json:"text"`
	AuthorID          uuid.UUID  `json:"author_id"`
	AuthorNickname    string     `json:"author_nickname"`
	AuthorAffiliation string     `json:"author_affiliation"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         *time.Time `json:"updated_at,omitempty"`
}
