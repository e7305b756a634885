package main

import (
	"flag"
	"log"
	"os"

	"partydeck/internal/config"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

func main() {
	down := flag.Bool("down", false, "roll back the most recent migration instead of migrating up")
	source := flag.String("source", "file://db/migrations", "migration source URL")
	flag.Parse()

	if err := config.LoadDotEnv(".env"); err != nil {
		log.Printf("failed to load .env: %v", err)
	}
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL is not set; migrations need a Postgres target")
	}

	m, err := migrate.New(*source, dsn)
	if err != nil {
		log.Fatalf("migration setup failed: %v", err)
	}

	if *down {
		if err := m.Steps(-1); err != nil {
			log.Fatalf("rollback failed: %v", err)
		}
		log.Println("rolled back one migration")
		return
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		log.Fatalf("database migration failed: %v", err)
	}
	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		log.Fatalf("failed to read schema version: %v", err)
	}
	log.Printf("migrations applied version=%d dirty=%t", version, dirty)
}
