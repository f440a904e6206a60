package cli

import (
	"skillpick/internal/errors"
	"skillpick/internal/store"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Long: `Create or update the tables of the configured database
(database.driver sqlite, postgres or mysql). Run it once before serving
when database.autoMigrate is disabled.`,
	Args: cobra.NoArgs,
	RunE: runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := getConfigFromContext(ctx)
	logger := getLoggerFromContext(ctx)

	if cfg.Database.Driver == "memory" {
		return errors.NewConfigError(errors.ErrCodeInvalidConfig,
			"The memory store has no schema; set database.driver to sqlite, postgres or mysql", nil)
	}

	dbCfg := cfg.Database
	dbCfg.AutoMigrate = false
	s, err := store.OpenGorm(dbCfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Close(); err != nil {
			logger.Warn("Failed to close store", "error", err)
		}
	}()

	if err := s.Migrate(ctx); err != nil {
		return err
	}
	logger.Info("Database schema is up to date", "driver", cfg.Database.Driver)
	return nil
}
