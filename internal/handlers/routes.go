package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/localnerve/retroboard/internal/config"
	"github.com/localnerve/retroboard/internal/middleware"
	"github.com/localnerve/retroboard/internal/services"
	"github.com/localnerve/retroboard/internal/utils"
	"gorm.io/gorm"
)

// Options wires the API to its dependencies
type Options struct {
	Service *services.Service
	Config  *config.Config
	DB      *gorm.DB
	// Quiet disables request logging
	Quiet bool
	// Heartbeat overrides the reaction stream keep-alive interval
	Heartbeat time.Duration
	// Before runs after the global middleware and before the API routes
	Before []fiber.Handler
	// Mount adds routes outside /api ahead of the 404 handler
	Mount func(app *fiber.App)
}

// NewApp builds the fiber app with every API route mounted under /api
func NewApp(opts Options) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler:          utils.ErrorHandler,
		DisableStartupMessage: opts.Quiet,
	})

	app.Use(recover.New())
	if !opts.Quiet {
		app.Use(logger.New())
	}
	app.Use(cors.New(cors.Config{
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Api-Version",
	}))
	app.Use(compress.New(compress.Config{
		// compression buffers the whole body, which would stall the event stream
		Next: func(c *fiber.Ctx) bool {
			return c.Path() == "/api/reactions/stream"
		},
	}))
	for _, h := range opts.Before {
		app.Use(h)
	}

	Register(app.Group("/api"), opts)
	if opts.Mount != nil {
		opts.Mount(app)
	}

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return utils.NotFoundResponse(c, "[404] Resource Not Found")
	})
	return app
}

// Register mounts the API routes on api
func Register(api fiber.Router, opts Options) {
	svc := opts.Service
	authHandler := &AuthHandler{Service: svc}
	boardHandler := &BoardHandler{Service: svc}
	reactionHandler := &ReactionHandler{Service: svc, Heartbeat: opts.Heartbeat}
	adminHandler := &AdminHandler{Service: svc, Config: opts.Config, DB: opts.DB}

	user := middleware.AuthUser(svc)
	admin := middleware.AuthAdmin(svc)

	api.Use(middleware.VersionMiddleware())

	api.Get("/health", adminHandler.Health)
	api.Get("/setup-db", adminHandler.SetupDB)

	// Auth routes
	auth := api.Group("/auth")
	loginLimit := middleware.LoginRateLimit(opts.Config.LoginRateLimit)
	auth.Post("/login", loginLimit, authHandler.Login)
	auth.Post("/signup", loginLimit, authHandler.Signup)
	auth.Post("/logout", user, authHandler.Logout)
	auth.Get("/me", authHandler.Me)

	// Board routes
	api.Get("/boards", user, boardHandler.ListBoards)
	api.Post("/boards", user, boardHandler.CreateBoard)
	api.Get("/boards/:id", user, boardHandler.GetBoard)
	api.Put("/boards/:id", user, boardHandler.UpdateBoard)
	api.Delete("/boards/:id", user, boardHandler.DeleteBoard)
	api.Post("/boards/:id/clone", user, boardHandler.CloneBoard)

	api.Get("/columns", user, boardHandler.ListColumns)
	api.Post("/columns", user, boardHandler.CreateColumn)
	api.Put("/columns/:id", user, boardHandler.UpdateColumn)
	api.Delete("/columns/:id", user, boardHandler.DeleteColumn)

	api.Get("/cards", user, boardHandler.ListCards)
	api.Post("/cards", user, boardHandler.CreateCard)
	api.Put("/cards/:id", user, boardHandler.UpdateCard)
	api.Delete("/cards/:id", user, boardHandler.DeleteCard)
	api.Post("/cards/:id/vote", user, boardHandler.ToggleVote)
	api.Post("/cards/:id/comments", user, boardHandler.AddComment)
	api.Delete("/cards/:id/comments/:commentId", user, boardHandler.DeleteComment)

	// Reaction routes
	api.Get("/reactions", user, reactionHandler.ListReactions)
	api.Post("/reactions", user, reactionHandler.PublishReaction)
	api.Get("/reactions/stream", user, reactionHandler.StreamReactions)

	// Admin-only routes
	api.Get("/users", admin, adminHandler.ListUsers)
	api.Post("/users", admin, adminHandler.CreateUser)
	api.Get("/users/:id", admin, adminHandler.GetUser)
	api.Put("/users/:id", admin, adminHandler.UpdateUser)
	api.Delete("/users/:id", admin, adminHandler.DeleteUser)
	api.Get("/admin/export", admin, middleware.ExportRateLimit(opts.Config.ExportRateLimit), adminHandler.Export)
}
