package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	swagger "github.com/gofiber/swagger"
	"github.com/localnerve/retroboard/internal/config"
	"github.com/localnerve/retroboard/internal/handlers"
	"github.com/localnerve/retroboard/internal/reactions"
	"github.com/localnerve/retroboard/internal/services"
	"github.com/localnerve/retroboard/internal/store"

	_ "github.com/localnerve/retroboard/docs/api" // Swagger docs
)

// @title Retroboard API
// @version 1.0.0
// @description Real-time retrospective boards: columns, cards, votes, comments and reactions
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url https://github.com/localnerve/retroboard
// @contact.email info@localnerve.com

// @license.name AGPL-3.0
// @license.url https://www.gnu.org/licenses/agpl-3.0.html

// @host localhost:3000
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Open the store (migrates relational schemas)
	st, db, err := store.Open(cfg)
	if err != nil {
		log.Fatalf("Failed to open %s store: %v", cfg.DBType, err)
	}
	defer st.Close()

	hub := reactions.NewHub(cfg.ReactionWindow, cfg.ReactionBuffer)
	svc := services.New(st, hub, services.NewTokenIssuer(cfg.JWTSecret, cfg.SessionTTL))

	// Prometheus metrics
	prometheus := fiberprometheus.New("retroboard")

	app := handlers.NewApp(handlers.Options{
		Service: svc,
		Config:  cfg,
		DB:      db,
		Before:  []fiber.Handler{prometheus.Middleware},
		Mount: func(app *fiber.App) {
			prometheus.RegisterAt(app, "/metrics")

			// Swagger documentation
			app.Get("/swagger/*", swagger.HandlerDefault)
		},
	})

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("Gracefully shutting down...")
		_ = app.Shutdown()
	}()

	// Start server
	log.Printf("Starting server on port %s with the %s store", cfg.Port, cfg.DBType)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	log.Println("Server stopped")
}
