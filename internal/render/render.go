// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package render provides HTML template rendering for the board. Page
// templates are paired with the base layout; the sign-in family of pages
// render standalone.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"campusboard/internal/i18n"
	"campusboard/internal/markdown"
	"campusboard/internal/middleware"
	"campusboard/internal/models"
	"campusboard/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

// PageData holds all data passed to templates.
type PageData struct {
	Title      string            // Message key for the <title> tag
	Section    string            // Active sidebar entry (category name, "search", ...)
	Session    *session.Data     // Current user session (nil if unauthenticated)
	CSRFToken  string            // CSRF token for forms
	Categories []models.Category // Sidebar boards
	IsMaster   bool              // Shows the category controls
	Status     int               // Response status, 200 when zero
	Lang       string            // Current language tag
	Query      string            // Search box contents
	Data       map[string]any    // Page-specific data
	Flashes    []Flash           // One-time notification messages

	printer *message.Printer
	langs   []language.Tag
}

// Flash represents a one-time notification message displayed to the user.
// Message is a catalog key; Args fill its verbs.
type Flash struct {
	Type    string // "success", "error", "info"
	Message string
	Args    []any
}

// T formats a catalog message in the request language.
func (p *PageData) T(key string, args ...any) string {
	if p.printer == nil {
		return key
	}
	return p.printer.Sprintf(key, args...)
}

// FlashText formats a flash message in the request language.
func (p *PageData) FlashText(f Flash) string {
	return p.T(f.Message, f.Args...)
}

// OtherLangs lists the languages the visitor can switch to.
func (p *PageData) OtherLangs() []string {
	out := make([]string, 0, len(p.langs))
	for _, t := range p.langs {
		if t.String() != p.Lang {
			out = append(out, t.String())
		}
	}
	return out
}

// Renderer handles template parsing and execution.
type Renderer struct {
	templates map[string]*template.Template
	bundle    *i18n.Bundle
}

// standaloneTemplates lists templates that render as full HTML pages
// without the base layout (they have their own <html>, <head>, etc.).
var standaloneTemplates = map[string]bool{
	"landing":    true,
	"signin":     true,
	"signup":     true,
	"2fa_setup":  true,
	"2fa_verify": true,
}

var funcMap = template.FuncMap{
	"markdown": markdown.Render,
	// date prints a timestamp in the board's compact style.
	"date": func(t time.Time) string {
		return t.Local().Format("2006-01-02 15:04")
	},
	"excerpt": func(s string, n int) string {
		r := []rune(strings.TrimSpace(s))
		if len(r) <= n {
			return string(r)
		}
		return string(r[:n]) + "…"
	},
}

// New creates a Renderer by parsing all templates from the embedded
// filesystem. Each page template is paired with the base layout.
func New(bundle *i18n.Bundle) (*Renderer, error) {
	r := &Renderer{
		templates: make(map[string]*template.Template),
		bundle:    bundle,
	}

	entries, err := templateFS.ReadDir("templates")
	if err != nil {
		return nil, fmt.Errorf("read embedded templates: %w", err)
	}

	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || name == "base.html" || !strings.HasSuffix(name, ".html") {
			continue
		}
		tmplName := strings.TrimSuffix(name, ".html")

		var tmpl *template.Template
		if standaloneTemplates[tmplName] {
			tmpl, err = template.New(name).Funcs(funcMap).ParseFS(templateFS, "templates/"+name)
		} else {
			tmpl, err = template.New("base.html").Funcs(funcMap).ParseFS(
				templateFS, "templates/base.html", "templates/"+name,
			)
		}
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}

		r.templates[tmplName] = tmpl
	}

	return r, nil
}

// Page renders a full page. The output is buffered so a template error
// never leaves a half-written response.
func (rn *Renderer) Page(w http.ResponseWriter, r *http.Request, name string, data *PageData) {
	tmpl, ok := rn.templates[name]
	if !ok {
		http.Error(w, fmt.Sprintf("template %q not found", name), http.StatusInternalServerError)
		return
	}

	data.CSRFToken = middleware.CSRFTokenFromCtx(r.Context())
	if data.Session == nil {
		data.Session = session.FromContext(r.Context())
	}

	tag := i18n.TagFromContext(r.Context(), rn.bundle.Default())
	data.printer = rn.bundle.Printer(tag)
	data.langs = rn.bundle.Supported()
	data.Lang = tag.String()

	execName := "base.html"
	if standaloneTemplates[name] {
		execName = name + ".html"
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, execName, data); err != nil {
		slog.Error("render template", "template", name, "error", err)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}

	status := data.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// T formats a catalog message in the language of r.
func (rn *Renderer) T(r *http.Request, key string, args ...any) string {
	tag := i18n.TagFromContext(r.Context(), rn.bundle.Default())
	return rn.bundle.T(tag, key, args...)
}
