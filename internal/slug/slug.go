// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package slug derives category names from the labels admins type in.
package slug

import (
	"regexp"
	"strings"
)

var (
	// whitespace matches every run of Unicode white space.
	whitespace = regexp.MustCompile(`[\s\p{Z}]+`)
	// disallowed matches anything that would need escaping in a URL path
	// segment. Letters of any script are kept so Korean labels survive.
	disallowed = regexp.MustCompile(`[^\p{L}\p{N}_-]`)
	// multipleHyphens collapses consecutive hyphens into one.
	multipleHyphens = regexp.MustCompile(`-{2,}`)
)

// Generate turns a label into a category name: white space is removed
// entirely (not replaced), the result is lowercased, and characters outside
// letters, digits, '-' and '_' are dropped.
// Example: "Study Group 2026" → "studygroup2026", "취업 정보" → "취업정보".
func Generate(label string) string {
	result := whitespace.ReplaceAllString(label, "")
	result = strings.ToLower(result)
	result = disallowed.ReplaceAllString(result, "")
	result = multipleHyphens.ReplaceAllString(result, "-")
	return strings.Trim(result, "-")
}
