package main

import (
	"fmt"

	"github.com/ManuelReschke/MealFox/internal/pkg/database"
	"github.com/golang-migrate/migrate/v4"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down|version]",
	Short:     "Run database migrations",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"up", "down", "version"},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		log.Info().Str("db_host", cfg.DBHost).Str("db_name", cfg.DBName).Msg("connecting for migrations")

		m, err := database.NewMigrator(cfg.MigrateURL())
		if err != nil {
			return err
		}
		defer func() {
			if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
				log.Warn().AnErr("source", srcErr).AnErr("database", dbErr).Msg("closing migrator failed")
			}
		}()

		return runMigration(cmd, m, args[0])
	},
}

func runMigration(cmd *cobra.Command, m *migrate.Migrate, command string) error {
	switch command {
	case "up":
		return database.MigrateUp(m)
	case "down":
		return database.MigrateDown(m)
	case "version":
		version, dirty, err := database.Version(m)
		if err != nil {
			return err
		}
		suffix := ""
		if dirty {
			suffix = " (dirty)"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "schema version %d%s\n", version, suffix)
		return nil
	}
	return fmt.Errorf("unknown migrate command %q", command)
}
