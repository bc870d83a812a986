package request

import (
	"encoding/json"
	"fmt"

	"supplydesk-backend/internal/audit"
	"supplydesk-backend/internal/auth"
	"supplydesk-backend/internal/cache"
	"supplydesk-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

// POST /api/requests
// requested_by and department default to the authenticated user.
func CreateRequestHandler(wf *Workflow) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateRequestInput
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		_, userName, department := auth.CurrentUser(c)
		if body.RequestedBy == "" {
			body.RequestedBy = userName
		}
		if body.Department == "" {
			body.Department = department
		}

		req, err := wf.Create(c.UserContext(), body)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(req)
	}
}

// GET /api/requests?status=pending
func ListRequestsHandler(wf *Workflow, store cache.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		status := models.RequestStatus(c.Query("status"))

		// Only the unfiltered listing is cached; filtered reads are
		// already cheap and keying per status is not worth it.
		if status == "" {
			if b, ok, _ := store.Get(ctx, cache.KeyRequests); ok {
				c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
				return c.Send(b)
			}
		}

		rows, err := wf.List(ctx, status)
		if err != nil {
			return err
		}

		if status == "" {
			if b, err := json.Marshal(rows); err == nil {
				_ = store.Set(ctx, cache.KeyRequests, b, cache.ViewTTL)
			}
		}
		return c.JSON(rows)
	}
}

type updateStatusBody struct {
	Status models.RequestStatus `json:"status"`
}

// PUT /api/requests/:id/status (admin only)
func UpdateRequestStatusHandler(wf *Workflow, aud *audit.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request id")
		}

		var body updateStatusBody
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if body.Status == "" {
			return fiber.NewError(fiber.StatusBadRequest, "status is required")
		}

		req, err := wf.UpdateStatus(c.UserContext(), uint(id), body.Status)
		if err != nil {
			return err
		}

		userID, userName, _ := auth.CurrentUser(c)
		_ = aud.WriteLog(audit.LogOptions{
			UserID:      userID,
			UserName:    userName,
			EntityType:  "supply_request",
			EntityID:    req.ID,
			Action:      models.AuditActionStatusChange,
			Description: fmt.Sprintf("Request %d -> %s", req.ID, req.Status),
			After:       req,
		})

		return c.JSON(req)
	}
}
