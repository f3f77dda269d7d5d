package main

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/meikuraledutech/cmdflow/postgres"
	"github.com/spf13/cobra"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Manage the postgres schema",
}

func schemaAction(use, short, done string, run func(cmd *cobra.Command, s *postgres.PGStore) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return errors.New("DATABASE_URL is not set")
			}
			pool, err := pgxpool.New(cmd.Context(), cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			defer pool.Close()

			if err := run(cmd, postgres.New(pool)); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), done)
			return nil
		},
	}
}

func init() {
	schemaCmd.AddCommand(
		schemaAction("create", "Create the commands table", "schema created", func(cmd *cobra.Command, s *postgres.PGStore) error {
			return s.CreateSchema(cmd.Context())
		}),
		schemaAction("drop", "Drop the commands table", "schema dropped", func(cmd *cobra.Command, s *postgres.PGStore) error {
			return s.DropSchema(cmd.Context())
		}),
	)
	rootCmd.AddCommand(schemaCmd)
}
