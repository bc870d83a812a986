package stats

import (
	"encoding/json"

	"supplydesk-backend/internal/cache"

	"github.com/gofiber/fiber/v2"
)

// GET /api/statistics
func StatisticsHandler(agg *Aggregator, store cache.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		if b, ok, _ := store.Get(ctx, cache.KeyStats); ok {
			c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
			return c.Send(b)
		}

		snapshot, err := agg.Snapshot(ctx)
		if err != nil {
			return err
		}

		if b, err := json.Marshal(snapshot); err == nil {
			_ = store.Set(ctx, cache.KeyStats, b, cache.ViewTTL)
		}
		return c.JSON(snapshot)
	}
}
