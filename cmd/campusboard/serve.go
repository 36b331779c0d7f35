// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"campusboard/internal/auth"
	"campusboard/internal/board"
	"campusboard/internal/cache"
	"campusboard/internal/database"
	"campusboard/internal/handlers"
	"campusboard/internal/i18n"
	"campusboard/internal/middleware"
	"campusboard/internal/render"
	"campusboard/internal/router"
	"campusboard/internal/session"
	"campusboard/internal/store"
)

// registryTTL bounds how long a cached category list is trusted.
const registryTTL = 5 * time.Minute

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	// The master account is created automatically in development only.
	if cfg.IsDev() {
		if err := database.Seed(db, cfg.MasterEmail, cfg.MasterPassword); err != nil {
			return err
		}
	}

	// Valkey holds sessions, auth events and the registry cache.
	valkeyClient, err := cache.ConnectValkey(cfg.ValkeyAddr(), cfg.ValkeyPassword)
	if err != nil {
		return err
	}
	defer valkeyClient.Close()

	bundle, err := i18n.Load(cfg.DefaultLocale)
	if err != nil {
		return err
	}
	renderer, err := render.New(bundle)
	if err != nil {
		return err
	}

	secureCookies := !cfg.IsDev()
	sessionStore := session.NewStore(valkeyClient, secureCookies)

	userStore := store.NewUserStore(db)
	categoryStore := store.NewCategoryStore(db, cache.NewRegistryCache(valkeyClient, registryTTL))
	boardService := board.New(categoryStore, store.NewPostStore(db), store.NewCommentStore(db),
		board.Options{Cascade: cfg.CascadeDeletes})

	master := auth.NewMaster(cfg.MasterEmail)
	accounts := auth.NewService(userStore, master)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Pages stay on the loading screen until the auth-state feed answers.
	gate := session.NewGate(session.NewRedisSource(valkeyClient))
	gate.OnEvent(func(ev session.Event) {
		slog.Info("auth state changed", "type", ev.Type, "user_id", ev.UserID, "at", ev.At)
	})
	gate.Start(ctx)
	defer gate.Close()

	proxies, err := cfg.ProxyPrefixes()
	if err != nil {
		return err
	}
	limiter := middleware.NewRateLimiter(cfg.AuthRateLimit, cfg.AuthRateWindow, proxies...)
	defer limiter.Stop()

	r := router.New(router.Deps{
		Sessions: sessionStore,
		Ready:    gate,
		Bundle:   bundle,
		Master:   master,
		Limiter:  limiter,
		Secure:   secureCookies,
		Auth:     handlers.NewAuth(renderer, sessionStore, accounts, userStore),
		Board:    handlers.NewBoard(renderer, boardService, master),
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")

		// Give active requests up to 30 seconds to complete.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("server stopped gracefully")
	return nil
}
