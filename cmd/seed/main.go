// seed inserts development users for local testing. Run via ./scripts/seed.sh.
// Idempotent: users whose email already exists are skipped.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"taskmgr/backend/internal/config"
	"taskmgr/backend/internal/db"
	identityservice "taskmgr/backend/internal/identity/service"
	"taskmgr/backend/internal/logging"
	"taskmgr/backend/internal/security"
	"taskmgr/backend/internal/store/postgres"
)

const (
	devPassword    = "password123"
	devUserEmail   = "dev@example.com"
	memberEmail    = "member@example.com"
	rootAdminEmail = "root@example.com"
)

type seedUser struct {
	name, email  string
	rootAdminKey string
}

func main() {
	cfg, err := config.LoadMigrate()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	if err := run(cfg, logger); err != nil {
		logger.Error("seed failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	st := postgres.New(conn, cfg.LockTimeout())
	defer st.Close()

	// Tokens issued by Register are discarded, so any secret will do when none is configured.
	secret := cfg.TokenSigningSecret
	if secret == "" {
		secret = "seed-only"
	}
	tokens, err := security.NewTokenProvider(secret, cfg.TokenIssuer)
	if err != nil {
		return err
	}
	// Minimum bcrypt cost; seed passwords are public anyway.
	auth := identityservice.NewAuthService(st, security.NewHasher(4), tokens, cfg.RootAdminKey)

	users := []seedUser{
		{name: "Dev User", email: devUserEmail},
		{name: "Member User", email: memberEmail},
	}
	if cfg.RootAdminKey != "" {
		users = append(users, seedUser{name: "Root Admin", email: rootAdminEmail, rootAdminKey: cfg.RootAdminKey})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, u := range users {
		existing, err := st.Users().GetByEmail(ctx, u.email)
		if err != nil {
			return err
		}
		if existing != nil {
			logger.Info("seed: user exists, skipping", "email", u.email)
			continue
		}
		res, err := auth.Register(ctx, u.name, u.email, devPassword, u.rootAdminKey)
		if errors.Is(err, identityservice.ErrRootAdminExists) {
			logger.Info("seed: root admin already exists, skipping", "email", u.email)
			continue
		}
		if err != nil {
			return fmt.Errorf("register %s: %w", u.email, err)
		}
		logger.Info("seed: created user", "email", u.email, "user_id", res.User.ID, "root_admin", res.User.RootAdmin)
	}
	logger.Info("seed: done", "password", devPassword)
	return nil
}
