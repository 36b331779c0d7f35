// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"strings"
	"unicode/utf8"

	"campusboard/internal/render"
)

// Validation limits for board and profile fields.
const (
	maxTitleLen       = 200
	maxContentLen     = 20_000
	maxCommentLen     = 1_000
	maxLabelLen       = 40
	maxNicknameLen    = 30
	maxAffiliationLen = 60
)

func invalid(key string, args ...any) *render.Flash {
	return &render.Flash{Type: "error", Message: key, Args: args}
}

// validatePost checks post form inputs and returns the first error found.
func validatePost(title, content string) *render.Flash {
	title = strings.TrimSpace(title)
	if title == "" {
		return invalid("validate.title_required")
	}
	if utf8.RuneCountInString(title) > maxTitleLen {
		return invalid("validate.title_too_long", maxTitleLen)
	}
	if strings.TrimSpace(content) == "" {
		return invalid("validate.content_required")
	}
	if utf8.RuneCountInString(content) > maxContentLen {
		return invalid("validate.content_too_long", maxContentLen)
	}
	return nil
}

// validateComment checks the comment text.
func validateComment(text string) *render.Flash {
	text = strings.TrimSpace(text)
	if text == "" {
		return invalid("validate.comment_required")
	}
	if utf8.RuneCountInString(text) > maxCommentLen {
		return invalid("validate.comment_too_long", maxCommentLen)
	}
	return nil
}

// validateLabel checks a new board name.
func validateLabel(label string) *render.Flash {
	label = strings.TrimSpace(label)
	if label == "" {
		return invalid("category.invalid")
	}
	if utf8.RuneCountInString(label) > maxLabelLen {
		return invalid("validate.label_too_long", maxLabelLen)
	}
	return nil
}

// validateProfile checks the sign-up profile lengths. Missing fields are
// reported by the identity service.
func validateProfile(nickname, affiliation string) *render.Flash {
	if utf8.RuneCountInString(strings.TrimSpace(nickname)) > maxNicknameLen {
		return invalid("validate.nickname_too_long", maxNicknameLen)
	}
	if utf8.RuneCountInString(strings.TrimSpace(affiliation)) > maxAffiliationLen {
		return invalid("validate.affiliation_too_long", maxAffiliationLen)
	}
	return nil
}
