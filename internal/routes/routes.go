package routes

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/satsplit/satsplit/internal/config"
	"github.com/satsplit/satsplit/internal/middleware"
	"github.com/satsplit/satsplit/internal/payments"
	"github.com/satsplit/satsplit/internal/reconcile"
	"github.com/satsplit/satsplit/internal/secstore"
	"github.com/satsplit/satsplit/internal/session"
	"github.com/satsplit/satsplit/internal/subwallet"
)

// Deps aggregates the shared dependencies required to wire routes. The
// services are built in main because the session manager must restore
// persisted state before the server starts accepting traffic.
type Deps struct {
	Cfg      config.Config
	Store    secstore.Store
	Cache    *redis.Client
	DB       *pgxpool.Pool
	Manager  *session.Manager
	Ledger   *subwallet.Ledger
	Engine   *reconcile.Engine
	Payments *payments.Service
	Logger   *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) {
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.AccessLog(d.Logger))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	RegisterHealthRoutes(app, d)

	sessionHandler := session.NewHandler(d.Manager)
	walletHandler := subwallet.NewHandler(d.Ledger)
	reconcileHandler := reconcile.NewHandler(d.Engine)
	paymentHandler := payments.NewHandler(d.Payments)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals(middleware.RequestIDHeader).(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	if d.Cfg.APIToken != "" {
		api.Use(middleware.APIKey(d.Cfg.APIToken))
	}

	RegisterSessionRoutes(api, sessionHandler)
	RegisterWalletRoutes(api, walletHandler, reconcileHandler)
	RegisterPaymentRoutes(api, paymentHandler)
	RegisterAccountRoutes(api, reconcileHandler)
}
