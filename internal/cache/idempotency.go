package cache

import (
	"supplydesk-backend/internal/apperrors"

	"github.com/gofiber/fiber/v2"
)

// IdempotencyMiddleware claims the client-supplied Idempotency-Key on
// mutating routes. A replayed key fails with a conflict instead of
// repeating the mutation; clients retrying a dropped response should
// re-read state. The header is optional.
func IdempotencyMiddleware(store Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Get("Idempotency-Key")
		if key == "" {
			return c.Next()
		}

		ok, err := ClaimIdempotency(c.UserContext(), store, key)
		if err != nil {
			return apperrors.Internal("idempotency check failed", err)
		}
		if !ok {
			return apperrors.Conflict("duplicate request")
		}
		return c.Next()
	}
}
