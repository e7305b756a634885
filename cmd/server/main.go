package main

import (
	"log"
	"net/http"
	"os"

	"partydeck/internal/config"
	"partydeck/internal/db"
	"partydeck/internal/pools"
	"partydeck/internal/server"
	"partydeck/internal/store"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		log.Printf("failed to load .env: %v", err)
	}
	cfg := config.Load()

	st, library := buildBackend(cfg)
	srv := server.New(st, library, cfg)

	addr := ":" + cfg.Port
	log.Printf("partydeck server listening on %s", addr)
	if err := http.ListenAndServe(addr, srv.Handler()); err != nil {
		log.Fatal(err)
	}
}

// buildBackend prefers Postgres when DATABASE_URL is set, with pools loaded
// from the database; otherwise it runs fully in memory with pools read from
// the JSON file.
func buildBackend(cfg config.Config) (store.Store, *pools.Library) {
	if os.Getenv("DATABASE_URL") == "" {
		log.Println("DATABASE_URL is not set; using in-memory store")
		library, err := pools.LoadFile(cfg.PoolsPath)
		if err != nil {
			log.Printf("failed to load pools file %s: %v", cfg.PoolsPath, err)
			library = pools.NewLibrary()
		}
		return store.NewMemory(), library
	}

	conn, err := db.Open()
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	if err := db.Tune(conn, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns, cfg.DBConnMaxLifetimeSeconds, cfg.DBConnMaxIdleTimeSeconds); err != nil {
		log.Fatalf("database pool tuning failed: %v", err)
	}
	loaded, err := db.LoadPools(conn)
	if err != nil {
		log.Fatalf("failed to load pools from database: %v", err)
	}
	log.Printf("loaded %d pools from database", len(loaded))
	return store.NewGorm(conn), pools.NewLibrary(loaded...)
}
