package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/taskdeck/taskdeck-backend/config"
	authdomain "github.com/taskdeck/taskdeck-backend/internal/auth/domain"
	"github.com/taskdeck/taskdeck-backend/internal/bootstrap"
	"github.com/taskdeck/taskdeck-backend/internal/logging"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "taskdeckctl",
		Short:         "Administrative tasks for the taskdeck backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newMigrateCmd(), newSeedTemplatesCmd(), newSweepCmd(), newCreateUserCmd())
	return root
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, applied, err := bootstrap.OpenDB(cmd.Context(), &cfg.Database, true)
			if err != nil {
				return err
			}
			defer db.Close()

			if len(applied) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "database is up to date")
				return nil
			}
			for _, name := range applied {
				fmt.Fprintf(cmd.OutOrStdout(), "applied %s\n", name)
			}
			return nil
		},
	}
}

func newSeedTemplatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed-templates",
		Short: "Insert or refresh the built-in project templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(app *bootstrap.App) error {
				n, err := app.Templates.SeedBuiltins(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "seeded %d built-in templates\n", n)
				return nil
			})
		},
	}
}

func newSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run the due-date automation sweep once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(app *bootstrap.App) error {
				res, err := app.Sweeper.Run(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "due soon: %d, overdue: %d, fired: %d, unchanged: %d, failed: %d, skipped: %d\n",
					res.DueSoon, res.Overdue, res.Fired, res.Unchanged, res.Failed, res.Skipped)
				return nil
			})
		},
	}
}

func newCreateUserCmd() *cobra.Command {
	var (
		email, password, name string
		admin                 bool
	)

	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create a local account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			role := authdomain.RoleUser
			if admin {
				role = authdomain.RoleAdmin
			}
			return withApp(cmd.Context(), func(app *bootstrap.App) error {
				user, err := app.Auth.CreateUser(cmd.Context(), authdomain.RegisterRequest{
					Email:       email,
					Password:    password,
					DisplayName: name,
					Role:        role,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created %s user %s (%s)\n", user.Role, user.Email, user.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().BoolVar(&admin, "admin", false, "grant the admin role")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logging.Init(logging.Options{
		Level:       cfg.App.LogLevel,
		Environment: cfg.App.Environment,
		Service:     "taskdeckctl",
	})
	return cfg, nil
}

// withApp opens the database (migrating it first) and Redis, wires the services and runs fn.
func withApp(ctx context.Context, fn func(app *bootstrap.App) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, _, err := bootstrap.OpenDB(ctx, &cfg.Database, true)
	if err != nil {
		return err
	}
	defer func(db *sql.DB) { _ = db.Close() }(db)

	rdb, err := bootstrap.OpenRedis(ctx, &cfg.Redis)
	if err != nil {
		logging.Logger.WithError(err).Warn("redis unavailable")
	}
	defer rdb.Close()

	app, err := bootstrap.NewApp(ctx, cfg, db, rdb)
	if err != nil {
		return err
	}
	return fn(app)
}
