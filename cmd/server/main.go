// Command server runs the case-law retrieval HTTP API, grounded on the
// teacher's cmd/server/main.go (godotenv load, config.Load, Fiber app with
// the same middleware stack, handler wiring, and signal-driven graceful
// shutdown).
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"caselaw-retrieval/internal/config"
	"caselaw-retrieval/internal/handlers"
	"caselaw-retrieval/internal/middleware"
	"caselaw-retrieval/pkg/pipeline"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: .env file not found or could not be loaded: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	pl, err := pipeline.New(cfg)
	if err != nil {
		log.Fatalf("failed to initialize retrieval pipeline: %v", err)
	}

	app := fiber.New(fiber.Config{
		ServerHeader: "Caselaw-Retrieval",
		AppName:      "Caselaw Retrieval API v1.0",
		ErrorHandler: middleware.ErrorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path} - ${latency}\n",
	}))
	app.Use(helmet.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization,X-Requested-With",
		AllowCredentials: true,
		ExposeHeaders:    "Content-Length,Content-Type",
	}))

	h := handlers.New(cfg, pl)

	app.Get("/", h.Health.Root)
	app.Get("/health", h.Health.Health)

	api := app.Group("/api/v1")
	api.Post("/search", h.Search.Search)

	if cfg.Server.JWTSecret != "" {
		admin := api.Group("/admin", middleware.JWT(cfg.Server.JWTSecret))
		admin.Get("/metrics", h.Admin.Metrics)
		admin.Post("/reasoner/reset-circuit", h.Admin.ResetCircuit)
	} else {
		log.Println("JWT_SECRET not set: administrative routes disabled")
	}

	port := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("starting server on port %s", cfg.Server.Port)

	go func() {
		if err := app.Listen(port); err != nil {
			log.Fatalf("server startup failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("server forced to shutdown: %v", err)
	}

	log.Println("server exited")
}
