package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	stdhttp "net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	handler "github.com/drouple/gatekeeper/internal/adapters/handler/http"
	"github.com/drouple/gatekeeper/internal/adapters/oauth/google"
	"github.com/drouple/gatekeeper/internal/adapters/repository/memory"
	"github.com/drouple/gatekeeper/internal/adapters/repository/postgres"
	"github.com/drouple/gatekeeper/internal/config"
	"github.com/drouple/gatekeeper/internal/core/ports"
	"github.com/drouple/gatekeeper/internal/core/services"
)

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

	userRepo := postgres.NewUserRepository(db)
	refreshRepo := postgres.NewRefreshTokenRepository(db)
	idemRepo := postgres.NewIdempotencyRepository(db)

	var rateStore ports.RateLimitStore
	if cfg.RateLimitStore == "postgres" {
		rateStore = postgres.NewRateLimitStore(db)
	} else {
		rateStore = memory.NewRateLimitStore()
	}

	tokenSvc := services.NewTokenService(
		userRepo, refreshRepo, google.NewVerifier(), cfg.GoogleClientID,
		cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	rateSvc := services.NewRateLimitService(rateStore, services.DefaultPolicyTable())
	idemSvc := services.NewIdempotencyService(idemRepo)
	userSvc := services.NewUserService(userRepo)

	router := handler.NewHandler(
		tokenSvc, rateSvc, idemSvc,
		handler.NewAuthHandler(tokenSvc),
		handler.NewProfileHandler(userSvc),
		handler.NewAdminHandler(tokenSvc, userSvc),
	)

	server := &stdhttp.Server{Addr: cfg.Addr, Handler: router}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	fmt.Println("Gracefully shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal(err)
	}
}
