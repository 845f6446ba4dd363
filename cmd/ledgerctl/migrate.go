package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MrJamesThe3rd/clubledger/internal/config"
	"github.com/MrJamesThe3rd/clubledger/internal/database"
)

func migrateCmd(cfg func() *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	cmd.AddCommand(
		migrateStep("up", "Apply all pending migrations", (*database.Migrator).Up, cfg),
		migrateStep("down", "Roll back the most recent migration", (*database.Migrator).Down, cfg),
		&cobra.Command{
			Use:   "version",
			Short: "Print the applied schema version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withMigrator(cmd, cfg(), func(m *database.Migrator) error {
					version, dirty, err := m.Version()
					if err != nil {
						return err
					}

					suffix := ""
					if dirty {
						suffix = " (dirty)"
					}

					fmt.Fprintf(cmd.OutOrStdout(), "schema version %d%s\n", version, suffix)

					return nil
				})
			},
		},
	)

	return cmd
}

func migrateStep(use, short string, step func(*database.Migrator) error, cfg func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, cfg(), func(m *database.Migrator) error {
				if err := step(m); err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "migrate %s: done\n", use)

				return nil
			})
		},
	}
}

func withMigrator(cmd *cobra.Command, cfg *config.Config, fn func(*database.Migrator) error) error {
	db, err := database.New(cmd.Context(), cfg.ConnectionString())
	if err != nil {
		return err
	}

	m, err := database.NewMigrator(db)
	if err != nil {
		db.Close()
		return err
	}
	defer m.Close()

	return fn(m)
}
