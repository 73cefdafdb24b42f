// Command migrate applies the run-history schema:
//
//	go run ./cmd/migrate
package main

import (
	"context"
	"fmt"
	"log"

	"jurisprudence-backend/internal/shared/config"
	"jurisprudence-backend/internal/shared/storage/db"
)

func main() {
	if err := migrate(context.Background(), config.Load()); err != nil {
		log.Fatal(err)
	}
}

func migrate(ctx context.Context, cfg config.Config) error {
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultMigrateOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		return fmt.Errorf("failed to connect database: %w", err)
	}
	defer sqlDB.Close()

	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	version, err := db.SchemaVersion(ctx, sqlDB)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	log.Printf("migrations applied: schema version %d", version)
	return nil
}
