// seed bootstraps an empty database with one organization, its owner and an API token for that
// owner, and prints the token once. It does nothing if any API token already exists.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	tokenrepo "capturehub/backend/internal/apitoken/repository"
	tokenservice "capturehub/backend/internal/apitoken/service"
	"capturehub/backend/internal/clock"
	"capturehub/backend/internal/config"
	"capturehub/backend/internal/db"
	"capturehub/backend/internal/logging"
	membershiprepo "capturehub/backend/internal/membership/repository"
	membershipservice "capturehub/backend/internal/membership/service"
	orgrepo "capturehub/backend/internal/organization/repository"
	"capturehub/backend/internal/security"
	userrepo "capturehub/backend/internal/user/repository"
)

func main() {
	email := flag.String("email", "admin@example.com", "Email of the bootstrap user")
	name := flag.String("name", "Admin", "Name of the bootstrap user")
	orgName := flag.String("org", "Default", "Name of the bootstrap organization")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	if cfg.DatabaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is not set (environment or .env)")
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Env)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	conn, err := db.Open(context.Background(), cfg.DatabaseURL, cfg.DBPool())
	if err != nil {
		logger.Fatal("db", zap.Error(err))
	}
	defer conn.Close()

	clk := clock.System{}
	users := userrepo.NewPostgresRepository(conn)
	orgs := orgrepo.NewPostgresRepository(conn)
	memberships := membershiprepo.NewPostgresRepository(conn)
	tokens := tokenservice.NewTokenService(tokenrepo.NewPostgresRepository(conn), users, orgs, memberships,
		security.NewHasher(cfg.BcryptCost), clk, nil, nil, logger)
	s := &seeder{
		users:       users,
		memberships: membershipservice.NewMembershipService(memberships, orgs, nil, clk, nil, logger),
		tokens:      tokens,
		clock:       clk,
	}

	ctx := context.Background()
	plaintext, err := s.Seed(ctx, *email, *name, *orgName)
	tokens.WaitIdle()
	if err != nil {
		logger.Fatal("seed", zap.Error(err))
	}
	if plaintext == "" {
		logger.Info("API tokens already exist; nothing to seed")
		return
	}
	fmt.Println("Bootstrap API token (shown once):")
	fmt.Println(plaintext)
}
