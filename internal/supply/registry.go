package supply

import (
	"context"
	"errors"
	"strings"

	"supplydesk-backend/internal/apperrors"
	"supplydesk-backend/internal/cache"
	"supplydesk-backend/internal/keylock"
	"supplydesk-backend/internal/models"

	"gorm.io/gorm"
)

// Registry owns the supply item records and their quantity invariants.
// Every quantity read-modify-write runs under the per-supply lock; view
// caches are invalidated before a mutation returns.
type Registry struct {
	db    *gorm.DB
	cache cache.Store
	locks *keylock.Locker
}

func NewRegistry(db *gorm.DB, store cache.Store, locks *keylock.Locker) *Registry {
	return &Registry{db: db, cache: store, locks: locks}
}

type CreateSupplyInput struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Model       string `json:"model"`
	Quantity    int    `json:"quantity"`
	MinQuantity int    `json:"min_quantity"`
	Unit        string `json:"unit"`
	Location    string `json:"location"`
}

// UpdateSupplyInput carries partial fields; nil means "leave unchanged".
type UpdateSupplyInput struct {
	Name        *string `json:"name"`
	Type        *string `json:"type"`
	Model       *string `json:"model"`
	Quantity    *int    `json:"quantity"`
	MinQuantity *int    `json:"min_quantity"`
	Unit        *string `json:"unit"`
	Location    *string `json:"location"`
}

func (r *Registry) Create(ctx context.Context, in CreateSupplyInput) (*models.SupplyItem, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Type = strings.TrimSpace(in.Type)
	in.Unit = strings.TrimSpace(in.Unit)

	if in.Name == "" || in.Type == "" || in.Unit == "" {
		return nil, apperrors.Validation("name, type and unit are required")
	}
	if in.Quantity < 0 || in.MinQuantity < 0 {
		return nil, apperrors.Validation("quantity and min_quantity must not be negative")
	}

	item := models.SupplyItem{
		Name:        in.Name,
		Type:        in.Type,
		Model:       strings.TrimSpace(in.Model),
		Quantity:    in.Quantity,
		MinQuantity: in.MinQuantity,
		Unit:        in.Unit,
		Location:    strings.TrimSpace(in.Location),
	}
	if err := r.db.WithContext(ctx).Create(&item).Error; err != nil {
		return nil, apperrors.Internal("could not create supply", err)
	}

	_ = r.cache.Invalidate(ctx, cache.SupplyViews()...)
	return &item, nil
}

func (r *Registry) Update(ctx context.Context, id uint, in UpdateSupplyInput) (*models.SupplyItem, error) {
	r.locks.Lock(id)
	defer r.locks.Unlock(id)

	var item models.SupplyItem
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&item, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("supply", id)
			}
			return apperrors.Internal("could not load supply", err)
		}

		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			if name == "" {
				return apperrors.Validation("name must not be empty")
			}
			item.Name = name
		}
		if in.Type != nil {
			t := strings.TrimSpace(*in.Type)
			if t == "" {
				return apperrors.Validation("type must not be empty")
			}
			item.Type = t
		}
		if in.Unit != nil {
			unit := strings.TrimSpace(*in.Unit)
			if unit == "" {
				return apperrors.Validation("unit must not be empty")
			}
			item.Unit = unit
		}
		if in.Model != nil {
			item.Model = strings.TrimSpace(*in.Model)
		}
		if in.Location != nil {
			item.Location = strings.TrimSpace(*in.Location)
		}
		if in.Quantity != nil {
			if *in.Quantity < 0 {
				return apperrors.Validation("quantity must not be negative")
			}
			item.Quantity = *in.Quantity
		}
		if in.MinQuantity != nil {
			if *in.MinQuantity < 0 {
				return apperrors.Validation("min_quantity must not be negative")
			}
			item.MinQuantity = *in.MinQuantity
		}

		if err := tx.Save(&item).Error; err != nil {
			return apperrors.Internal("could not update supply", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	_ = r.cache.Invalidate(ctx, cache.SupplyViews()...)
	return &item, nil
}

// Delete removes a supply. Deletion is rejected while any non-terminal
// request references the supply; usage history keeps its (now dangling)
// supply_id.
func (r *Registry) Delete(ctx context.Context, id uint) (*models.SupplyItem, error) {
	r.locks.Lock(id)
	defer r.locks.Unlock(id)

	var item models.SupplyItem
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&item, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("supply", id)
			}
			return apperrors.Internal("could not load supply", err)
		}

		var open int64
		if err := tx.Model(&models.SupplyRequest{}).
			Where("supply_id = ? AND status IN ?", id,
				[]models.RequestStatus{models.RequestStatusPending, models.RequestStatusApproved}).
			Count(&open).Error; err != nil {
			return apperrors.Internal("could not check open requests", err)
		}
		if open > 0 {
			return apperrors.Conflict("supply has open replenishment requests")
		}

		if err := tx.Delete(&models.SupplyItem{}, "id = ?", id).Error; err != nil {
			return apperrors.Internal("could not delete supply", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	_ = r.cache.Invalidate(ctx, cache.SupplyViews()...)
	return &item, nil
}

func (r *Registry) Get(ctx context.Context, id uint) (*models.SupplyItem, error) {
	var item models.SupplyItem
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("supply", id)
		}
		return nil, apperrors.Internal("could not load supply", err)
	}
	return &item, nil
}

// List returns all supplies in insertion order (id ascending), which
// keeps pagination and tests deterministic.
func (r *Registry) List(ctx context.Context) ([]models.SupplyItem, error) {
	var items []models.SupplyItem
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&items).Error; err != nil {
		return nil, apperrors.Internal("could not list supplies", err)
	}
	return items, nil
}

// LowStock returns supplies at or below their reorder threshold,
// recomputed on every call through the shared predicate.
func (r *Registry) LowStock(ctx context.Context) ([]models.SupplyItem, error) {
	var items []models.SupplyItem
	if err := r.db.WithContext(ctx).
		Where(models.LowStockCond).
		Order("quantity ASC, id ASC").
		Find(&items).Error; err != nil {
		return nil, apperrors.Internal("could not list low-stock supplies", err)
	}
	return items, nil
}
