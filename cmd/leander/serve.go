package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/robby/leander/internal/auth"
	"github.com/robby/leander/internal/gh"
	"github.com/robby/leander/internal/registry"
	"github.com/robby/leander/internal/server"
	"github.com/robby/leander/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the GraphQL gateway, OAuth login and webhook receiver",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().Int("port", 0, "listen port (overrides server.port)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if port, _ := cmd.Flags().GetInt("port"); port != 0 {
		cfg.Server.Port = port
	}
	if err := cfg.ValidateForServe(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := newLogger(cfg.Log, os.Stderr)

	sessions, err := auth.NewSessions(cfg.Session.Secret, cfg.Session.MaxAge,
		auth.WithCookieName(cfg.Session.CookieName),
		auth.WithSecureCookie(cfg.Session.SecureCookie),
	)
	if err != nil {
		return fmt.Errorf("failed to set up sessions: %w", err)
	}

	policy := cfg.Policy()
	newStore := func(token string) *store.UserStore {
		client := gh.New(token, gh.WithEndpoint(cfg.GitHub.GraphQLURL))
		return store.New(client,
			store.WithPolicy(policy),
			store.WithLogger(logger),
			store.WithDedupe(cfg.Cache.Dedupe),
		)
	}

	srv, err := server.New(server.Config{
		Port:            cfg.Server.Port,
		BasePath:        cfg.Server.BasePath,
		CORSOrigin:      cfg.Server.CORSOrigin,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		WebhookSecret:   []byte(cfg.GitHub.WebhookSecret),
		Debug:           cfg.Server.Debug,
	}, server.Deps{
		OAuth:    auth.NewGitHubProvider(cfg.GitHub.ClientID, cfg.GitHub.ClientSecret, cfg.GitHub.CallbackURL),
		Sessions: sessions,
		Registry: registry.New(cfg.Cache.MaxStores, cfg.Cache.IdleTTL, registry.WithLogger(logger)),
		NewStore: newStore,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return srv.Start(ctx)
}
