package http

import (
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"github.com/waveportal/backend/internal/config"
	"github.com/waveportal/backend/internal/http/handlers"
	"github.com/waveportal/backend/internal/middleware"
	"go.uber.org/zap"
)

type Handlers struct {
	Board   *handlers.BoardHandler
	Page    *handlers.PageHandler
	Wallet  *handlers.WalletHandler
	History *handlers.HistoryHandler
	Me      *handlers.MeHandler
	WSHub   *handlers.WSHub
}

// SetupRouter mounts every route. A nil rdb disables rate limiting; a nil
// History, Me or WSHub leaves its routes out.
func SetupRouter(app *fiber.App, cfg *config.Config, log *zap.Logger, rdb *redis.Client, h Handlers) {
	// Global middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}))
	app.Use(middleware.RequestIDMiddleware())
	app.Use(middleware.LoggerMiddleware(log))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		resp := fiber.Map{"status": "ok"}
		if h.WSHub != nil {
			resp["ws_clients"] = h.WSHub.Count()
		}
		return c.JSON(resp)
	})

	// HTML board
	app.Get("/", h.Page.Index)
	app.Post("/waves", h.Page.SubmitForm)
	app.Post("/connect", h.Page.ConnectForm)

	api := app.Group("/api/v1")
	if rdb != nil {
		api.Use(middleware.RateLimitMiddleware(rdb, 100, time.Minute))
	}

	// Board
	api.Get("/board", h.Board.GetBoard)
	api.Get("/waves", h.Board.GetWaves)
	api.Get("/waves/mine", h.Board.MyWaves)
	api.Post("/waves", h.Board.SubmitWave)
	api.Put("/waves/pending", h.Board.SetPending)

	// Wallet
	api.Post("/wallet/connect", h.Board.Connect)
	api.Post("/wallet/proof-payload", h.Wallet.GeneratePayload)
	api.Post("/wallet/verify", h.Wallet.Verify)

	if h.History != nil {
		api.Get("/history", h.History.List)
	}

	// Protected endpoints
	protected := api.Group("/me", middleware.AuthMiddleware(cfg.JWTSecret, log))
	protected.Get("/waves", h.Board.MeWaves)
	if h.Me != nil {
		protected.Get("", h.Me.GetMe)
		protected.Get("/activity", h.Me.Activity)
	}

	// WebSocket
	if h.WSHub != nil {
		app.Use("/ws", handlers.WSUpgradeMiddleware())
		app.Get("/ws", websocket.New(h.WSHub.HandleWS))
	}
}
