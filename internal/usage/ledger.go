package usage

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

// Ledger is the append-only record of consumption. Recording usage
// atomically decrements the supply's quantity; the decrement and the
// ledger append commit or roll back as one unit.
type Ledger struct {
	db    *gorm.DB
	cache cache.Store
	locks *keylock.Locker
}

func NewLedger(db *gorm.DB, store cache.Store, locks *keylock.Locker) *Ledger {
	return &Ledger{db: db, cache: store, locks: locks}
}

type RecordInput struct {
	SupplyID     uint   `json:"supply_id"`
	QuantityUsed int    `json:"quantity_used"`
	UsedBy       string `json:"used_by"`
	Department   string `json:"department"`
	Purpose      string `json:"purpose"`
}

func (l *Ledger) Record(ctx context.Context, in RecordInput) (*models.UsageRecord, error) {
	in.UsedBy = strings.TrimSpace(in.UsedBy)
	in.Department = strings.TrimSpace(in.Department)

	if in.SupplyID == 0 {
		return nil, apperrors.Validation("supply_id is required")
	}
	if in.QuantityUsed <= 0 {
		return nil, apperrors.Validation("quantity_used must be positive")
	}
	if in.UsedBy == "" || in.Department == "" {
		return nil, apperrors.Validation("used_by and department are required")
	}

	l.locks.Lock(in.SupplyID)
	defer l.locks.Unlock(in.SupplyID)

	var rec models.UsageRecord
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item models.SupplyItem
		if err := tx.First(&item, "id = ?", in.SupplyID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("supply", in.SupplyID)
			}
			return apperrors.Internal("could not load supply", err)
		}

		// Conditional decrement: zero rows affected means the stock
		// guard failed, so the whole transaction rolls back.
		res := tx.Model(&models.SupplyItem{}).
			Where("id = ? AND quantity >= ?", in.SupplyID, in.QuantityUsed).
			Update("quantity", gorm.Expr("quantity - ?", in.QuantityUsed))
		if res.Error != nil {
			return apperrors.Internal("could not decrement stock", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperrors.InsufficientStock(in.SupplyID, in.QuantityUsed, item.Quantity)
		}

		rec = models.UsageRecord{
			SupplyID:     in.SupplyID,
			QuantityUsed: in.QuantityUsed,
			UsedBy:       in.UsedBy,
			Department:   in.Department,
			Purpose:      strings.TrimSpace(in.Purpose),
			UsedAt:       time.Now().UTC(),
		}
		if err := tx.Create(&rec).Error; err != nil {
			return apperrors.Internal("could not append usage record", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	_ = l.cache.Invalidate(ctx, cache.SupplyViews()...)
	return &rec, nil
}

type HistoryFilter struct {
	SupplyID   uint
	Department string
	StartDate  string // YYYY-MM-DD, inclusive
	EndDate    string // YYYY-MM-DD, inclusive
}

// HistoryRow is a read-only projection: supply_name is joined at read
// time and is empty for supplies deleted since.
type HistoryRow struct {
	ID           uint      `json:"id"`
	SupplyID     uint      `json:"supply_id"`
	SupplyName   string    `json:"supply_name"`
	QuantityUsed int       `json:"quantity_used"`
	UsedBy       string    `json:"used_by"`
	Department   string    `json:"department"`
	Purpose      string    `json:"purpose,omitempty"`
	UsedAt       time.Time `json:"used_at"`
}

func (l *Ledger) History(ctx context.Context, f HistoryFilter) ([]HistoryRow, error) {
	q := l.db.WithContext(ctx).
		Table("usage_records AS ur").
		Select("ur.id, ur.supply_id, COALESCE(si.name, '') AS supply_name, ur.quantity_used, ur.used_by, ur.department, ur.purpose, ur.used_at").
		Joins("LEFT JOIN supply_items si ON si.id = ur.supply_id")

	if f.SupplyID != 0 {
		q = q.Where("ur.supply_id = ?", f.SupplyID)
	}
	if f.Department != "" {
		q = q.Where("ur.department = ?", f.Department)
	}
	if f.StartDate != "" {
		start, err := time.ParseInLocation("2006-01-02", f.StartDate, time.UTC)
		if err != nil {
			return nil, apperrors.Validation("start_date must be YYYY-MM-DD")
		}
		q = q.Where("ur.used_at >= ?", start)
	}
	if f.EndDate != "" {
		end, err := time.ParseInLocation("2006-01-02", f.EndDate, time.UTC)
		if err != nil {
			return nil, apperrors.Validation("end_date must be YYYY-MM-DD")
		}
		q = q.Where("ur.used_at < ?", end.AddDate(0, 0, 1))
	}

	rows := make([]HistoryRow, 0)
	if err := q.Order("ur.used_at DESC, ur.id DESC").Scan(&rows).Error; err != nil {
		return nil, apperrors.Internal("could not load usage history", err)
	}
	return rows, nil
}
