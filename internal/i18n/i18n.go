// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package i18n loads the embedded message catalogs and picks a language
// for each request.
package i18n

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
	"gopkg.in/yaml.v3"
)

const (
	// LangParam is the query parameter used to switch language.
	LangParam = "lang"
	// CookieName stores the chosen language.
	CookieName = "cb_lang"
)

//go:embed locales/*.yaml
var localesFS embed.FS

type catalogFile struct {
	Locale   string            `yaml:"locale"`
	Messages map[string]string `yaml:"messages"`
}

// Bundle holds every catalog and matches requests to one of them.
type Bundle struct {
	cat      *catalog.Builder
	tags     []language.Tag
	matcher  language.Matcher
	fallback language.Tag
}

// Load reads the embedded catalogs. defaultLocale is used when a request
// expresses no usable preference and for keys missing from a catalog.
func Load(defaultLocale string) (*Bundle, error) {
	return LoadFS(localesFS, defaultLocale)
}

// LoadFS reads locales/*.yaml from fsys.
func LoadFS(fsys fs.FS, defaultLocale string) (*Bundle, error) {
	fallback, err := language.Parse(defaultLocale)
	if err != nil {
		return nil, fmt.Errorf("parse default locale %q: %w", defaultLocale, err)
	}

	paths, err := fs.Glob(fsys, "locales/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("glob locale catalogs: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no catalog files found")
	}
	sort.Strings(paths)

	b := &Bundle{
		cat:      catalog.NewBuilder(catalog.Fallback(fallback)),
		fallback: fallback,
	}
	messages := map[language.Tag]map[string]string{}

	for _, path := range paths {
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", path, err)
		}
		var file catalogFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", path, err)
		}
		tag, err := language.Parse(strings.TrimSpace(file.Locale))
		if err != nil {
			return nil, fmt.Errorf("catalog %s: locale %q: %w", path, file.Locale, err)
		}
		if _, dup := messages[tag]; dup {
			return nil, fmt.Errorf("catalog %s: locale %s defined twice", path, tag)
		}
		messages[tag] = file.Messages
		if tag == fallback {
			b.tags = append([]language.Tag{tag}, b.tags...)
		} else {
			b.tags = append(b.tags, tag)
		}
	}

	base, ok := messages[fallback]
	if !ok {
		return nil, fmt.Errorf("default locale %s has no catalog", fallback)
	}

	// Keys missing from a catalog are served in the default language.
	for _, tag := range b.tags {
		for key, value := range base {
			if v, ok := messages[tag][key]; ok {
				value = v
			}
			if err := b.cat.SetString(tag, key, value); err != nil {
				return nil, fmt.Errorf("catalog %s: key %q: %w", tag, key, err)
			}
		}
		for key, value := range messages[tag] {
			if _, shared := base[key]; shared {
				continue
			}
			if err := b.cat.SetString(tag, key, value); err != nil {
				return nil, fmt.Errorf("catalog %s: key %q: %w", tag, key, err)
			}
		}
	}

	b.matcher = language.NewMatcher(b.tags)
	return b, nil
}

// Default returns the fallback language.
func (b *Bundle) Default() language.Tag {
	return b.fallback
}

// Supported returns the languages with a catalog, default first.
func (b *Bundle) Supported() []language.Tag {
	return append([]language.Tag(nil), b.tags...)
}

// Printer returns a message printer for tag backed by this bundle.
func (b *Bundle) Printer(tag language.Tag) *message.Printer {
	return message.NewPrinter(tag, message.Catalog(b.cat))
}

// T formats the message key in the given language.
func (b *Bundle) T(tag language.Tag, key string, args ...any) string {
	return b.Printer(tag).Sprintf(key, args...)
}

// Match picks the language for a request: the lang query parameter, then
// the cookie, then Accept-Language. persist is true when the choice came
// from the query parameter and should be stored in the cookie.
func (b *Bundle) Match(r *http.Request) (tag language.Tag, persist bool) {
	if v := strings.TrimSpace(r.URL.Query().Get(LangParam)); v != "" {
		if t, ok := b.exact(v); ok {
			return t, true
		}
	}
	if c, err := r.Cookie(CookieName); err == nil {
		if t, ok := b.exact(c.Value); ok {
			return t, false
		}
	}
	if accept := strings.TrimSpace(r.Header.Get("Accept-Language")); accept != "" {
		if prefs, _, err := language.ParseAcceptLanguage(accept); err == nil && len(prefs) > 0 {
			_, idx, conf := b.matcher.Match(prefs...)
			if conf != language.No {
				return b.tags[idx], false
			}
		}
	}
	return b.fallback, false
}

// exact resolves value to a supported tag by its base language.
func (b *Bundle) exact(value string) (language.Tag, bool) {
	t, err := language.Parse(value)
	if err != nil {
		return language.Und, false
	}
	base, _ := t.Base()
	for _, s := range b.tags {
		if sb, _ := s.Base(); sb == base {
			return s, true
		}
	}
	return language.Und, false
}

// SetCookie stores the chosen language for a year.
func SetCookie(w http.ResponseWriter, tag language.Tag) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    tag.String(),
		Path:     "/",
		MaxAge:   int((365 * 24 * time.Hour).Seconds()),
		SameSite: http.SameSiteLaxMode,
	})
}

type ctxKey struct{}

// WithTag returns a copy of ctx carrying the request language.
func WithTag(ctx context.Context, tag language.Tag) context.Context {
	return context.WithValue(ctx, ctxKey{}, tag)
}

// TagFromContext returns the request language, or fallback if none was set.
func TagFromContext(ctx context.Context, fallback language.Tag) language.Tag {
	if t, ok := ctx.Value(ctxKey{}).(language.Tag); ok {
		return t
	}
	return fallback
}
