// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package main is the entry point for the CampusBoard server.
// It loads configuration, connects to services and exposes the serve,
// migrate, seed and reset-2fa commands.
package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"campusboard/internal/config"
	"campusboard/internal/database"
	"campusboard/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "campusboard",
	Short: "University community bulletin board",
	Long: `CampusBoard serves the community board: category boards, posts,
comments and title search for signed-in members.

Running without a subcommand is the same as "campusboard serve".`,
	SilenceUsage: true,
	RunE:         runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run migrations and start the HTTP server",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations and exit",
	RunE:  runMigrate,
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the master account if it does not exist",
	Long: `Create the master account from MASTER_EMAIL and MASTER_PASSWORD.

The master is asked to enrol a TOTP authenticator on first sign-in.`,
	RunE: runSeed,
}

var resetTOTPCmd = &cobra.Command{
	Use:   "reset-2fa",
	Short: "Clear the master's TOTP enrolment",
	Long: `Clear the master's TOTP secret so that the next sign-in walks
through authenticator setup again. Use it when the device is lost.`,
	RunE: runResetTOTP,
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd, resetTOTPCmd)
}

func main() {
	// A missing .env file is fine; real deployments use the environment.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

// setup loads configuration and installs the structured logger: text at
// debug level in development, JSON otherwise.
func setup() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	var handler slog.Handler
	if cfg.IsDev() {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	slog.SetDefault(slog.New(handler))

	slog.Info("configuration loaded", "env", cfg.Env, "addr", cfg.Addr())
	return cfg, nil
}

// openDB connects to PostgreSQL and applies pending migrations.
func openDB(cfg *config.Config) (*sql.DB, error) {
	db, err := database.Connect(cfg.DSN())
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("migrations applied")
	return nil
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	return database.Seed(db, cfg.MasterEmail, cfg.MasterPassword)
}

func runResetTOTP(cmd *cobra.Command, args []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	users := store.NewUserStore(db)
	master, err := users.FindByEmail(cmd.Context(), cfg.MasterEmail)
	if err != nil {
		return err
	}
	if master == nil {
		return fmt.Errorf("no account for %s", cfg.MasterEmail)
	}
	if err := users.ResetTOTP(cmd.Context(), master.ID); err != nil {
		return err
	}

	slog.Info("master 2fa reset", "email", master.Email)
	return nil
}
