package main

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/drouple/gatekeeper/internal/adapters/repository/postgres"
	"github.com/drouple/gatekeeper/internal/config"
	"github.com/drouple/gatekeeper/internal/core/services"
)

// Purges refresh tokens past expiry or revocation and idempotency records
// past retention. Intended to run on a schedule (cron or equivalent),
// independent of request handling.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatal(err)
	}

	sweeper := services.NewSweepService(
		postgres.NewRefreshTokenRepository(db),
		postgres.NewIdempotencyRepository(db),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	log.Println("Starting trust-layer sweep...")
	if err := sweeper.Run(ctx); err != nil {
		log.Fatalf("Sweep failed: %v", err)
	}
	log.Println("Sweep completed successfully.")
}
