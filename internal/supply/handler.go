package supply

import (
	"encoding/json"
	"fmt"
	"time"

	"supplydesk-backend/internal/audit"
	"supplydesk-backend/internal/auth"
	"supplydesk-backend/internal/cache"
	"supplydesk-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type SupplyResponse struct {
	ID          uint               `json:"id"`
	Name        string             `json:"name"`
	Type        string             `json:"type"`
	Model       string             `json:"model"`
	Quantity    int                `json:"quantity"`
	MinQuantity int                `json:"min_quantity"`
	Unit        string             `json:"unit"`
	Location    string             `json:"location"`
	Status      models.StockStatus `json:"status"` // display-only, derived
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

func toResponse(item *models.SupplyItem) SupplyResponse {
	return SupplyResponse{
		ID:          item.ID,
		Name:        item.Name,
		Type:        item.Type,
		Model:       item.Model,
		Quantity:    item.Quantity,
		MinQuantity: item.MinQuantity,
		Unit:        item.Unit,
		Location:    item.Location,
		Status:      models.StockStatusOf(item.Quantity, item.MinQuantity),
		CreatedAt:   item.CreatedAt,
		UpdatedAt:   item.UpdatedAt,
	}
}

func toResponses(items []models.SupplyItem) []SupplyResponse {
	resp := make([]SupplyResponse, 0, len(items))
	for i := range items {
		resp = append(resp, toResponse(&items[i]))
	}
	return resp
}

func sendCachedJSON(c *fiber.Ctx, b []byte) error {
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(b)
}

// GET /api/supplies
func ListSuppliesHandler(reg *Registry, store cache.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		if b, ok, _ := store.Get(ctx, cache.KeySupplies); ok {
			return sendCachedJSON(c, b)
		}

		items, err := reg.List(ctx)
		if err != nil {
			return err
		}

		resp := toResponses(items)
		if b, err := json.Marshal(resp); err == nil {
			_ = store.Set(ctx, cache.KeySupplies, b, cache.ViewTTL)
		}
		return c.JSON(resp)
	}
}

// GET /api/supplies/low-stock
func LowStockHandler(reg *Registry, store cache.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		if b, ok, _ := store.Get(ctx, cache.KeyLowStock); ok {
			return sendCachedJSON(c, b)
		}

		items, err := reg.LowStock(ctx)
		if err != nil {
			return err
		}

		resp := toResponses(items)
		if b, err := json.Marshal(resp); err == nil {
			_ = store.Set(ctx, cache.KeyLowStock, b, cache.ViewTTL)
		}
		return c.JSON(resp)
	}
}

// GET /api/supplies/:id
func GetSupplyHandler(reg *Registry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid supply id")
		}

		item, err := reg.Get(c.UserContext(), uint(id))
		if err != nil {
			return err
		}
		return c.JSON(toResponse(item))
	}
}

// POST /api/supplies (admin only)
func CreateSupplyHandler(reg *Registry, aud *audit.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateSupplyInput
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		item, err := reg.Create(c.UserContext(), body)
		if err != nil {
			return err
		}

		userID, userName, _ := auth.CurrentUser(c)
		_ = aud.WriteLog(audit.LogOptions{
			UserID:      userID,
			UserName:    userName,
			EntityType:  "supply_item",
			EntityID:    item.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Created supply: %s (%d %s)", item.Name, item.Quantity, item.Unit),
			After:       item,
		})

		return c.Status(fiber.StatusCreated).JSON(toResponse(item))
	}
}

// PUT /api/supplies/:id (admin only)
func UpdateSupplyHandler(reg *Registry, aud *audit.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid supply id")
		}

		var body UpdateSupplyInput
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		before, err := reg.Get(c.UserContext(), uint(id))
		if err != nil {
			return err
		}

		item, err := reg.Update(c.UserContext(), uint(id), body)
		if err != nil {
			return err
		}

		userID, userName, _ := auth.CurrentUser(c)
		_ = aud.WriteLog(audit.LogOptions{
			UserID:      userID,
			UserName:    userName,
			EntityType:  "supply_item",
			EntityID:    item.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Updated supply: %s", item.Name),
			Before:      before,
			After:       item,
		})

		return c.JSON(toResponse(item))
	}
}

// DELETE /api/supplies/:id (admin only)
func DeleteSupplyHandler(reg *Registry, aud *audit.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid supply id")
		}

		item, err := reg.Delete(c.UserContext(), uint(id))
		if err != nil {
			return err
		}

		userID, userName, _ := auth.CurrentUser(c)
		_ = aud.WriteLog(audit.LogOptions{
			UserID:      userID,
			UserName:    userName,
			EntityType:  "supply_item",
			EntityID:    item.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Deleted supply: %s", item.Name),
			Before:      item,
		})

		return c.SendStatus(fiber.StatusNoContent)
	}
}
