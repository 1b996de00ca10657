package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"study-organizer-backend/internal/config"
	"study-organizer-backend/internal/db"
	"study-organizer-backend/internal/logging"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations and exit",
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	logger := logging.New(os.Stderr, cfg.LogLevel)

	database, err := db.Connect(cfg.ConnString())
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer database.Close()

	if err := db.Migrate(database); err != nil {
		return err
	}
	logger.Info("database is up to date", "db", cfg.DBName)
	return nil
}
