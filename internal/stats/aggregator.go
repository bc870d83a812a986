package stats

import (
	"context"
	"sort"
	"time"

	"supplydesk-backend/internal/apperrors"
	"supplydesk-backend/internal/models"

	"gorm.io/gorm"
)

// MonthlyUsage is one calendar-month bucket of consumption. Months with
// zero usage inside the window are omitted.
type MonthlyUsage struct {
	Month  string `json:"month"` // "2006-01", UTC
	Amount int    `json:"amount"`
}

type Statistics struct {
	TotalSupplies   int64          `json:"total_supplies"`
	TotalItems      int            `json:"total_items"`
	LowStockCount   int64          `json:"low_stock_count"`
	PendingRequests int64          `json:"pending_requests"`
	MonthlyUsage    []MonthlyUsage `json:"monthly_usage"`
}

// Aggregator derives the dashboard snapshot from the registry, the
// ledger and the workflow at call time. It holds no cache of its own;
// caching belongs to the consistency layer at the boundary.
type Aggregator struct {
	db     *gorm.DB
	months int // monthly_usage window, current month included
	now    func() time.Time
}

func NewAggregator(db *gorm.DB, months int) *Aggregator {
	return &Aggregator{db: db, months: months, now: time.Now}
}

func (a *Aggregator) Snapshot(ctx context.Context) (*Statistics, error) {
	db := a.db.WithContext(ctx)
	stats := &Statistics{MonthlyUsage: make([]MonthlyUsage, 0)}

	if err := db.Model(&models.SupplyItem{}).Count(&stats.TotalSupplies).Error; err != nil {
		return nil, apperrors.Internal("could not count supplies", err)
	}
	if err := db.Model(&models.SupplyItem{}).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&stats.TotalItems).Error; err != nil {
		return nil, apperrors.Internal("could not sum quantities", err)
	}
	// Same predicate as the low-stock listing: the two can never diverge.
	if err := db.Model(&models.SupplyItem{}).
		Where(models.LowStockCond).
		Count(&stats.LowStockCount).Error; err != nil {
		return nil, apperrors.Internal("could not count low stock", err)
	}
	if err := db.Model(&models.SupplyRequest{}).
		Where("status = ?", models.RequestStatusPending).
		Count(&stats.PendingRequests).Error; err != nil {
		return nil, apperrors.Internal("could not count pending requests", err)
	}

	monthly, err := a.monthlyUsage(db)
	if err != nil {
		return nil, err
	}
	stats.MonthlyUsage = monthly

	return stats, nil
}

// monthlyUsage buckets quantity_used by UTC calendar month over the last
// a.months months (current month included). Bucketing happens in Go so
// the result is dialect-independent.
func (a *Aggregator) monthlyUsage(db *gorm.DB) ([]MonthlyUsage, error) {
	now := a.now().UTC()
	windowStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).
		AddDate(0, -(a.months - 1), 0)

	var records []models.UsageRecord
	if err := db.Model(&models.UsageRecord{}).
		Select("quantity_used, used_at").
		Where("used_at >= ?", windowStart).
		Find(&records).Error; err != nil {
		return nil, apperrors.Internal("could not load usage window", err)
	}

	buckets := make(map[string]int)
	for _, rec := range records {
		buckets[rec.UsedAt.UTC().Format("2006-01")] += rec.QuantityUsed
	}

	months := make([]string, 0, len(buckets))
	for m := range buckets {
		months = append(months, m)
	}
	sort.Strings(months)

	out := make([]MonthlyUsage, 0, len(months))
	for _, m := range months {
		out = append(out, MonthlyUsage{Month: m, Amount: buckets[m]})
	}
	return out, nil
}
