package request

import (
	"context"
	"errors"
	"strings"
	"time"

	"supplydesk-backend/internal/apperrors"
	"supplydesk-backend/internal/cache"
	"supplydesk-backend/internal/keylock"
	"supplydesk-backend/internal/models"

	"gorm.io/gorm"
)

// Workflow governs the replenishment request state machine:
// pending -> approved -> completed, pending -> rejected. Completing a
// request increments the supply's quantity in the same transaction.
type Workflow struct {
	db    *gorm.DB
	cache cache.Store
	locks *keylock.Locker
}

func NewWorkflow(db *gorm.DB, store cache.Store, locks *keylock.Locker) *Workflow {
	return &Workflow{db: db, cache: store, locks: locks}
}

type CreateRequestInput struct {
	SupplyID    uint   `json:"supply_id"`
	Quantity    int    `json:"quantity"`
	RequestedBy string `json:"requested_by"`
	Department  string `json:"department"`
}

func (w *Workflow) Create(ctx context.Context, in CreateRequestInput) (*models.SupplyRequest, error) {
	in.RequestedBy = strings.TrimSpace(in.RequestedBy)
	in.Department = strings.TrimSpace(in.Department)

	if in.SupplyID == 0 {
		return nil, apperrors.Validation("supply_id is required")
	}
	if in.Quantity <= 0 {
		return nil, apperrors.Validation("quantity must be positive")
	}
	if in.RequestedBy == "" || in.Department == "" {
		return nil, apperrors.Validation("requested_by and department are required")
	}

	var exists int64
	if err := w.db.WithContext(ctx).Model(&models.SupplyItem{}).
		Where("id = ?", in.SupplyID).Count(&exists).Error; err != nil {
		return nil, apperrors.Internal("could not check supply", err)
	}
	if exists == 0 {
		return nil, apperrors.NotFound("supply", in.SupplyID)
	}

	req := models.SupplyRequest{
		SupplyID:    in.SupplyID,
		Quantity:    in.Quantity,
		RequestedBy: in.RequestedBy,
		Department:  in.Department,
		Status:      models.RequestStatusPending,
	}
	if err := w.db.WithContext(ctx).Create(&req).Error; err != nil {
		return nil, apperrors.Internal("could not create request", err)
	}

	_ = w.cache.Invalidate(ctx, cache.RequestViews(false)...)
	return &req, nil
}

// UpdateStatus applies a transition from the table in models. The status
// write is guarded on the expected current status so racing transitions
// cannot both apply; a completion's quantity increment rides in the same
// transaction under the supply's lock.
func (w *Workflow) UpdateStatus(ctx context.Context, id uint, newStatus models.RequestStatus) (*models.SupplyRequest, error) {
	if !newStatus.Valid() {
		return nil, apperrors.Validationf("unknown status %q", string(newStatus))
	}

	var req models.SupplyRequest
	if err := w.db.WithContext(ctx).First(&req, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("request", id)
		}
		return nil, apperrors.Internal("could not load request", err)
	}

	if !req.Status.CanTransitionTo(newStatus) {
		return nil, apperrors.InvalidTransition(string(req.Status), string(newStatus))
	}

	from := req.Status
	completing := newStatus == models.RequestStatusCompleted

	if completing {
		w.locks.Lock(req.SupplyID)
		defer w.locks.Unlock(req.SupplyID)
	}

	err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.SupplyRequest{}).
			Where("id = ? AND status = ?", id, from).
			Update("status", newStatus)
		if res.Error != nil {
			return apperrors.Internal("could not update request status", res.Error)
		}
		if res.RowsAffected == 0 {
			// Someone else transitioned it first.
			var current models.SupplyRequest
			if err := tx.First(&current, "id = ?", id).Error; err == nil {
				return apperrors.InvalidTransition(string(current.Status), string(newStatus))
			}
			return apperrors.NotFound("request", id)
		}

		if completing {
			inc := tx.Model(&models.SupplyItem{}).
				Where("id = ?", req.SupplyID).
				Update("quantity", gorm.Expr("quantity + ?", req.Quantity))
			if inc.Error != nil {
				return apperrors.Internal("could not restock supply", inc.Error)
			}
			if inc.RowsAffected == 0 {
				// Open requests block deletion, so the supply should
				// still exist; bail out rather than lose the delivery.
				return apperrors.Conflict("referenced supply no longer exists")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	req.Status = newStatus
	req.UpdatedAt = time.Now()

	_ = w.cache.Invalidate(ctx, cache.RequestViews(completing)...)
	return &req, nil
}

// Row is the listing projection; supply_name is joined at read time only
// and never persisted on the request itself.
type Row struct {
	ID          uint                 `json:"id"`
	SupplyID    uint                 `json:"supply_id"`
	SupplyName  string               `json:"supply_name"`
	Quantity    int                  `json:"quantity"`
	RequestedBy string               `json:"requested_by"`
	Department  string               `json:"department"`
	Status      models.RequestStatus `json:"status"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

func (w *Workflow) List(ctx context.Context, status models.RequestStatus) ([]Row, error) {
	if status != "" && !status.Valid() {
		return nil, apperrors.Validationf("unknown status %q", string(status))
	}

	q := w.db.WithContext(ctx).
		Table("supply_requests AS sr").
		Select("sr.id, sr.supply_id, COALESCE(si.name, '') AS supply_name, sr.quantity, sr.requested_by, sr.department, sr.status, sr.created_at, sr.updated_at").
		Joins("LEFT JOIN supply_items si ON si.id = sr.supply_id")

	if status != "" {
		q = q.Where("sr.status = ?", status)
	}

	rows := make([]Row, 0)
	if err := q.Order("sr.created_at DESC, sr.id DESC").Scan(&rows).Error; err != nil {
		return nil, apperrors.Internal("could not list requests", err)
	}
	return rows, nil
}
