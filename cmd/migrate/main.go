package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"authorsite/internal/store"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

func main() {
	var (
		command   = flag.String("command", "up", "Migration command: up, down, status, create, purge")
		name      = flag.String("name", "", "Name for 'create' command")
		olderThan = flag.Duration("older-than", 30*24*time.Hour, "For 'purge': drop visitor keys not written for this long")
	)
	flag.Parse()

	dir := migrationsDir()
	if *command == "create" {
		if *name == "" {
			log.Fatal("Name is required for 'create' command")
		}
		if err := goose.Create(nil, dir, *name, "sql"); err != nil {
			log.Fatalf("Failed to create migration: %v", err)
		}
		fmt.Printf("Migration created: %s\n", *name)
		return
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, databaseDSN())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	if *command == "purge" {
		n, err := store.NewLocalStoragePG(pool, time.Minute).PurgeIdle(ctx, time.Now().Add(-*olderThan))
		if err != nil {
			log.Fatalf("Failed to purge visitor storage: %v", err)
		}
		fmt.Printf("Purged %d visitor keys older than %s\n", n, *olderThan)
		return
	}

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, os.DirFS(dir))
	if err != nil {
		log.Fatalf("Failed to load migrations from %s: %v", dir, err)
	}

	switch *command {
	case "up":
		results, err := provider.Up(ctx)
		if err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
		for _, r := range results {
			fmt.Printf("applied %s (%s)\n", r.Source.Path, r.Duration)
		}
		fmt.Printf("Migrations applied successfully (%d new)\n", len(results))
	case "down":
		result, err := provider.Down(ctx)
		if err != nil {
			log.Fatalf("Failed to rollback migration: %v", err)
		}
		fmt.Printf("rolled back %s\n", result.Source.Path)
	case "status":
		statuses, err := provider.Status(ctx)
		if err != nil {
			log.Fatalf("Failed to check migration status: %v", err)
		}
		for _, s := range statuses {
			applied := "pending"
			if !s.AppliedAt.IsZero() {
				applied = s.AppliedAt.Format(time.RFC3339)
			}
			fmt.Printf("%-40s %s\n", s.Source.Path, applied)
		}
	default:
		log.Fatalf("Unknown command: %s. Use: up, down, status, create, purge", *command)
	}
}
