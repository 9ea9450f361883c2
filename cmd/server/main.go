package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/evenio/event-ticketing/internal/auth"
	"github.com/evenio/event-ticketing/internal/config"
	"github.com/evenio/event-ticketing/internal/database"
	"github.com/evenio/event-ticketing/internal/handler"
	"github.com/evenio/event-ticketing/internal/media"
	"github.com/evenio/event-ticketing/internal/middleware"
	"github.com/evenio/event-ticketing/internal/queue"
	"github.com/evenio/event-ticketing/internal/repository"
	"github.com/evenio/event-ticketing/internal/router"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}

	images, err := media.NewStore(cfg.UploadDir)
	if err != nil {
		log.Fatalf("media store: %v", err)
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	events := repository.NewEventRepo(db)
	verifier := auth.NewVerifier(users, tokens)

	// Redis is optional: with no client the cache and rate limiter become
	// pass-throughs.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable; response cache and rate limiting disabled")
	}
	limit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens), cfg.JWTSecret, limit)
	router.RegisterEvents(e, handler.NewEventHandler(events, images), verifier, rdb, config.LoadCacheConfig(), limit)

	// Background consumer mirrors event.created messages into logs/.
	go func() {
		if err := queue.StartEventConsumer(); err != nil {
			log.Printf("event consumer stopped: %v", err)
		}
	}()

	// Hourly sweep of refresh tokens dead for over a week.
	go func() {
		for range time.Tick(time.Hour) {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			n, err := tokens.PurgeExpired(ctx, 7*24*time.Hour)
			cancel()
			if err != nil {
				log.Printf("token purge: %v", err)
			} else if n > 0 {
				log.Printf("token purge: removed %d rows", n)
			}
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
