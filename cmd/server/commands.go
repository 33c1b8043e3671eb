package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"hrflow/internal/app/server"
	"hrflow/internal/domain/auth"
	"hrflow/internal/platform/config"
	"hrflow/internal/platform/db"
	"hrflow/internal/platform/logging"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "hrflow",
		Short: "HR workflow service for appraisals, onboarding and leave",
		Long: `hrflow serves the appraisal, onboarding and leave workflows over HTTP.

Configuration comes from the environment, optionally seeded from a .env file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newMigrateCmd(), newTokenCmd())
	return root
}

func setup() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, nil, err
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return config.Config{}, nil, err
	}
	zap.ReplaceGlobals(logger)
	return cfg, logger, nil
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			app, err := server.New(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer app.Close()
			return app.Serve(cmd.Context())
		},
	}
}

func newMigrateCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending SQL migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			if dir == "" {
				dir = cfg.MigrationsDir
			}

			pool, err := db.Connect(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("db connect: %w", err)
			}
			defer pool.Close()
			return db.Migrate(cmd.Context(), pool, dir, logger)
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "migrations directory (default MIGRATIONS_DIR)")
	return cmd
}

// newTokenCmd signs a bearer token with JWT_SECRET for local testing.
func newTokenCmd() *cobra.Command {
	var (
		claims auth.Claims
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a signed bearer token for local testing",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			secret := cfg.JWTSecret
			if secret == "" {
				return fmt.Errorf("JWT_SECRET is required")
			}
			if claims.UserID == "" || claims.TenantID == "" {
				return fmt.Errorf("--user and --tenant are required")
			}
			if !auth.KnownRole(claims.RoleName) {
				return fmt.Errorf("unknown role %q", claims.RoleName)
			}
			token, err := auth.GenerateToken(secret, claims, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&claims.UserID, "user", "", "user id")
	cmd.Flags().StringVar(&claims.TenantID, "tenant", "", "tenant id")
	cmd.Flags().StringVar(&claims.RoleName, "role", auth.RoleEmployee, "role: Employee, Manager, HR or SystemAdmin")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}
