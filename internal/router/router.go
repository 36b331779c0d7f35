// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package router sets up all HTTP routes and middleware chains for the
// board. It organizes routes into public, sign-in and member groups with
// appropriate middleware stacks.
package router

import (
	"encoding/json"
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"campusboard/internal/auth"
	"campusboard/internal/handlers"
	"campusboard/internal/i18n"
	"campusboard/internal/middleware"
	"campusboard/web"
)

// Deps carries everything the route table needs.
type Deps struct {
	Sessions middleware.SessionLoader
	Ready    middleware.Readiness
	Bundle   *i18n.Bundle
	Master   auth.Master
	Limiter  *middleware.RateLimiter // nil disables sign-in rate limiting
	Secure   bool                    // Secure flag on cookies

	Auth  *handlers.Auth
	Board *handlers.Board
}

// New creates and returns the configured Chi router with all middleware
// and route groups wired up.
func New(d Deps) chi.Router {
	r := chi.NewRouter()

	// Set before any Route call so sub-routers inherit it.
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
	})

	// Global middleware, applied to every request.
	r.Use(chimw.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.SecureHeaders)
	r.Use(middleware.Locale(d.Bundle))

	// Health check and assets are served before the gate opens.
	r.Get("/health", healthHandler(d.Ready))
	static, err := fs.Sub(web.StaticFS, "static")
	if err != nil {
		panic("router: static assets missing: " + err.Error())
	}
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	r.Group(func(r chi.Router) {
		r.Use(middleware.LoadSession(d.Sessions))
		r.Use(middleware.RequireReady(d.Ready, d.Bundle))
		r.Use(middleware.NewCSRF(d.Secure))

		limited := func(h http.HandlerFunc) http.Handler {
			if d.Limiter == nil {
				return h
			}
			return d.Limiter.Middleware(h)
		}

		// Landing and auth pages, only for visitors.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RedirectIfAuthenticated)
			r.Get("/", d.Auth.Landing)
			r.Get("/signin", d.Auth.SignInPage)
			r.Method(http.MethodPost, "/signin", limited(d.Auth.SignInSubmit))
			r.Get("/signup", d.Auth.SignUpPage)
			r.Method(http.MethodPost, "/signup", limited(d.Auth.SignUpSubmit))
		})

		r.Post("/signout", d.Auth.SignOut)

		// Master TOTP step: requires a session but NOT completed 2FA.
		r.Route("/signin/2fa", func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Get("/setup", d.Auth.TwoFASetupPage)
			r.Post("/setup", d.Auth.TwoFASubmit)
			r.Get("/verify", d.Auth.TwoFAVerifyPage)
			r.Method(http.MethodPost, "/verify", limited(d.Auth.TwoFASubmit))
		})

		// Members only.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Use(middleware.Require2FA)

			r.Route("/home", func(r chi.Router) {
				r.Get("/", d.Board.Home)
				r.Get("/general", d.Board.General)
				r.Get("/category/{name}", d.Board.Category)
				r.Get("/search", d.Board.Search)
				r.Get("/*", d.Board.Home)

				// Category registry, master only.
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireMaster(d.Master))
					r.Post("/categories", d.Board.AddCategory)
					r.Post("/category/{name}/delete", d.Board.RemoveCategory)
				})
			})

			r.Route("/post", func(r chi.Router) {
				r.Get("/create", d.Board.NewPostPage)
				r.Post("/create", d.Board.CreatePost)
				r.Get("/{id}", d.Board.PostDetail)
				r.Post("/{id}/edit", d.Board.EditPost)
				r.Post("/{id}/delete", d.Board.DeletePost)
				r.Post("/{id}/comments", d.Board.AddComment)
				r.Post("/{id}/comments/{commentID}/edit", d.Board.EditComment)
				r.Post("/{id}/comments/{commentID}/delete", d.Board.DeleteComment)
			})
		})
	})

	return r
}

// healthHandler reports liveness and whether the session gate has opened.
func healthHandler(ready middleware.Readiness) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"status": "ok",
			"ready":  ready.Ready(),
		})
	}
}
