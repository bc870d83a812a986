package usage

import (
	"supplydesk-backend/internal/auth"

	"github.com/gofiber/fiber/v2"
)

// POST /api/usage
// used_by and department default to the authenticated user when omitted.
func RecordUsageHandler(ledger *Ledger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RecordInput
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		_, userName, department := auth.CurrentUser(c)
		if body.UsedBy == "" {
			body.UsedBy = userName
		}
		if body.Department == "" {
			body.Department = department
		}

		rec, err := ledger.Record(c.UserContext(), body)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(rec)
	}
}

// GET /api/usage/history?supply_id=&department=&start_date=&end_date=
func UsageHistoryHandler(ledger *Ledger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		f := HistoryFilter{
			SupplyID:   uint(c.QueryInt("supply_id", 0)),
			Department: c.Query("department"),
			StartDate:  c.Query("start_date"),
			EndDate:    c.Query("end_date"),
		}

		rows, err := ledger.History(c.UserContext(), f)
		if err != nil {
			return err
		}
		return c.JSON(rows)
	}
}
