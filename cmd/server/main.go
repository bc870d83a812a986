package main

import (
	"errors"
	"log"
	"strings"

	"supplydesk-backend/internal/apperrors"
	"supplydesk-backend/internal/audit"
	"supplydesk-backend/internal/auth"
	"supplydesk-backend/internal/cache"
	"supplydesk-backend/internal/config"
	"supplydesk-backend/internal/database"
	"supplydesk-backend/internal/keylock"
	"supplydesk-backend/internal/models"
	"supplydesk-backend/internal/request"
	"supplydesk-backend/internal/stats"
	"supplydesk-backend/internal/supply"
	"supplydesk-backend/internal/usage"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg := config.Load()
	db := database.Init(cfg)

	var store cache.Store
	if cfg.RedisAddr != "" {
		store = cache.NewRedis(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}))
		log.Println("View cache backed by Redis at", cfg.RedisAddr)
	} else {
		store = cache.NewMemory()
	}

	locks := keylock.New()
	registry := supply.NewRegistry(db, store, locks)
	ledger := usage.NewLedger(db, store, locks)
	workflow := request.NewWorkflow(db, store, locks)
	aggregator := stats.NewAggregator(db, cfg.StatsMonths)
	auditSvc := audit.NewService(db)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var appErr *apperrors.AppError
			if errors.As(err, &appErr) {
				if appErr.Code == apperrors.CodeInternal {
					log.Println("Internal error:", appErr)
				}
				return c.Status(appErr.HTTPStatus).JSON(fiber.Map{
					"error": appErr.Message,
					"code":  appErr.Code,
				})
			}
			if e, ok := err.(*fiber.Error); ok {
				return c.Status(e.Code).JSON(fiber.Map{
					"error": e.Message,
				})
			}
			log.Println("Unexpected error:", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "unexpected server error",
			})
		},
	})

	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(corsOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, Idempotency-Key",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	api := app.Group("/api")

	api.Get("/health", func(c *fiber.Ctx) error {
		sqlDB, err := db.DB()
		if err != nil || sqlDB.Ping() != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status":   "DEGRADED",
				"database": "unreachable",
			})
		}
		return c.JSON(fiber.Map{
			"status":   "OK",
			"database": "connected",
		})
	})

	// Public auth
	api.Post("/auth/register-admin", auth.RegisterAdminHandler(db))
	api.Post("/auth/login", auth.LoginHandler(db, cfg))

	// Protected
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg))
	idempotent := cache.IdempotencyMiddleware(store)

	protected.Get("/auth/me", auth.MeHandler(db))
	protected.Post("/auth/users", auth.RequireRole(models.RoleAdmin), auth.CreateUserHandler(db))

	// Supply registry
	protected.Get("/supplies", supply.ListSuppliesHandler(registry, store))
	protected.Get("/supplies/low-stock", supply.LowStockHandler(registry, store))
	protected.Get("/supplies/export", supply.ExportSuppliesHandler(registry))
	protected.Get("/supplies/:id", supply.GetSupplyHandler(registry))
	protected.Post("/supplies", auth.RequireRole(models.RoleAdmin), idempotent, supply.CreateSupplyHandler(registry, auditSvc))
	protected.Put("/supplies/:id", auth.RequireRole(models.RoleAdmin), supply.UpdateSupplyHandler(registry, auditSvc))
	protected.Delete("/supplies/:id", auth.RequireRole(models.RoleAdmin), supply.DeleteSupplyHandler(registry, auditSvc))

	// Usage ledger
	protected.Post("/usage", idempotent, usage.RecordUsageHandler(ledger))
	protected.Get("/usage/history", usage.UsageHistoryHandler(ledger))

	// Replenishment requests
	protected.Post("/requests", idempotent, request.CreateRequestHandler(workflow))
	protected.Get("/requests", request.ListRequestsHandler(workflow, store))
	protected.Put("/requests/:id/status", auth.RequireRole(models.RoleAdmin), request.UpdateRequestStatusHandler(workflow, auditSvc))

	// Dashboard
	protected.Get("/statistics", stats.StatisticsHandler(aggregator, store))

	// Audit trail
	protected.Get("/audit-logs", auth.RequireRole(models.RoleAdmin), audit.ListAuditLogsHandler(auditSvc))

	log.Println("Server listening on port", cfg.HTTPPort)
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		log.Fatal(err)
	}
}
