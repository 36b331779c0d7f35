// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package slug

import "testing"

// TestGenerate exercises name derivation with typical board labels,
// punctuation, non-Latin scripts and edge cases.
func TestGenerate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		// --- Typical labels ---
		{name: "single word", input: "Jobs", want: "jobs"},
		{name: "two words joined", input: "Study Group", want: "studygroup"},
		{name: "label with year", input: "Festival 2026", want: "festival2026"},
		{name: "already a name", input: "free", want: "free"},

		// --- Korean and other scripts ---
		{name: "korean label", input: "취업 정보", want: "취업정보"},
		{name: "mixed korean and latin", input: "CS 스터디", want: "cs스터디"},
		{name: "japanese kana", input: "サークル 情報", want: "サークル情報"},
		{name: "accented latin", input: "Café Noël", want: "cafénoël"},

		// --- Whitespace handling ---
		{name: "leading and trailing spaces", input: "  clubs  ", want: "clubs"},
		{name: "tabs and newlines removed", input: "lost\tand\nfound", want: "lostandfound"},
		{name: "full-width space removed", input: "동아리　홍보", want: "동아리홍보"},

		// --- Punctuation ---
		{name: "punctuation dropped", input: "Q&A!", want: "qa"},
		{name: "slash dropped", input: "Buy/Sell", want: "buysell"},
		{name: "underscore kept", input: "used_books", want: "used_books"},
		{name: "hyphen kept", input: "part-time", want: "part-time"},
		{name: "hyphens collapsed", input: "part---time", want: "part-time"},
		{name: "edge hyphens trimmed", input: "-notice-", want: "notice"},
		{name: "emoji dropped", input: "Events 🎉", want: "events"},

		// --- Edge cases ---
		{name: "empty string", input: "", want: ""},
		{name: "only spaces", input: "    ", want: ""},
		{name: "only punctuation", input: "!@#$%", want: ""},
		{name: "only hyphens", input: "---", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Generate(tt.input)
			if got != tt.want {
				t.Errorf("Generate(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// TestGenerate_Idempotent verifies that a derived name maps to itself.
func TestGenerate_Idempotent(t *testing.T) {
	for _, s := range []string{"studygroup", "취업정보", "used_books", "a1"} {
		t.Run(s, func(t *testing.T) {
			if got := Generate(s); got != s {
				t.Errorf("Generate(%q) = %q, want idempotent result", s, got)
			}
		})
	}
}

// TestGenerate_ConsistentCase verifies that names are always lowercase.
func TestGenerate_ConsistentCase(t *testing.T) {
	for _, input := range []string{"STUDY GROUP", "Study Group", "sTuDy gRoUp"} {
		t.Run(input, func(t *testing.T) {
			if got := Generate(input); got != "studygroup" {
				t.Errorf("Generate(%q) = %q, want studygroup", input, got)
			}
		})
	}
}
