package main

import (
	"log"
	"os"

	"authorsite/internal/config"
)

func migrationsDir() string {
	if v := os.Getenv("MIGRATIONS_DIR"); v != "" {
		return v
	}
	return "db/migrations"
}

// databaseDSN reads the same DB_DSN the server uses. Migrations only
// matter for the postgres visitor storage, so other drivers get a warning.
func databaseDSN() string {
	cfg := config.Load()
	if cfg.StorageDriver != "postgres" {
		log.Printf("migrate: STORAGE_DRIVER=%s, the server will not use this database", cfg.StorageDriver)
	}
	return cfg.DatabaseDSN
}
