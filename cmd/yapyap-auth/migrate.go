package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/uptrace/bun"

	auth "github.com/yapyap/go-auth"
	"github.com/yapyap/go-auth/store"
)

func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the accounts schema",
	}

	cmd.AddCommand(
		migrateSubCmd("up", "Apply all pending migrations", store.Migrate),
		migrateSubCmd("down", "Roll back the most recent migration", store.Rollback),
		migrateSubCmd("status", "Show migration status", store.Status),
	)

	return cmd
}

func migrateSubCmd(use, short string, run func(ctx context.Context, db *bun.DB) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			logger := auth.NewSlogLogger(newLogger(cfg.Log, cmd.ErrOrStderr()))
			db, err := openDatabase(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := run(cmd.Context(), db); err != nil {
				return fmt.Errorf("migrate %s: %w", use, err)
			}
			cmd.Printf("migrate %s: done\n", use)
			return nil
		},
	}
}
