// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package markdown

import (
	"strings"
	"testing"
)

func TestToHTML(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"paragraph", "hello", "<p>hello</p>"},
		{"emphasis", "**bold**", "<strong>bold</strong>"},
		{"hard wrap", "line one\nline two", "line one<br>"},
		{"strikethrough", "~~old~~", "<del>old</del>"},
		{"link", "[site](https://example.com)", `<a href="https://example.com">site</a>`},
		{"korean text", "시험 범위 공유", "<p>시험 범위 공유</p>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToHTML(tt.input)
			if err != nil {
				t.Fatalf("ToHTML: %v", err)
			}
			if !strings.Contains(got, tt.want) {
				t.Errorf("ToHTML(%q) = %q, want it to contain %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestToHTMLEscapesRawHTML(t *testing.T) {
	got, err := ToHTML("<script>alert(1)</script>\n\n<b>hi</b>")
	if err != nil {
		t.Fatalf("ToHTML: %v", err)
	}
	if strings.Contains(got, "<script>") || strings.Contains(got, "<b>") {
		t.Errorf("raw HTML must not pass through: %q", got)
	}
}

func TestToHTMLDropsJavascriptLinks(t *testing.T) {
	got, _ := ToHTML("[x](javascript:alert(1))")
	if strings.Contains(got, "javascript:") {
		t.Errorf("dangerous link kept: %q", got)
	}
}

func TestRender(t *testing.T) {
	got := string(Render("# Title"))
	if !strings.Contains(got, "<h1>Title</h1>") {
		t.Errorf("Render = %q", got)
	}
}
