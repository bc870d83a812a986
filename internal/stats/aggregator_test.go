package stats

import (
	"context"
	"testing"
	"time"

	"supplydesk-backend/internal/cache"
	"supplydesk-backend/internal/keylock"
	"supplydesk-backend/internal/models"
	"supplydesk-backend/internal/supply"
	"supplydesk-backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedSupplies(t *testing.T, db *gorm.DB) {
	t.Helper()
	items := []models.SupplyItem{
		{Name: "HP 36A cartridge", Type: "cartridge", Quantity: 10, MinQuantity: 3, Unit: "pcs"},
		{Name: "A4 paper", Type: "paper", Quantity: 2, MinQuantity: 5, Unit: "pack"},
		{Name: "Canon 045 toner", Type: "toner", Quantity: 0, MinQuantity: 2, Unit: "pcs"},
	}
	for i := range items {
		require.NoError(t, db.Create(&items[i]).Error)
	}
}

func TestSnapshotTotals(t *testing.T) {
	db := testutil.NewDB(t)
	seedSupplies(t, db)
	require.NoError(t, db.Create(&models.SupplyRequest{
		SupplyID: 1, Quantity: 5, RequestedBy: "jo", Department: "IT",
		Status: models.RequestStatusPending,
	}).Error)
	require.NoError(t, db.Create(&models.SupplyRequest{
		SupplyID: 1, Quantity: 5, RequestedBy: "jo", Department: "IT",
		Status: models.RequestStatusApproved,
	}).Error)

	agg := NewAggregator(db, 6)
	stats, err := agg.Snapshot(context.Background())
	require.NoError(t, err)

	assert.EqualValues(t, 3, stats.TotalSupplies)
	assert.Equal(t, 12, stats.TotalItems)
	assert.EqualValues(t, 2, stats.LowStockCount, "zero stock counts as low")
	assert.EqualValues(t, 1, stats.PendingRequests, "only pending requests count")
	assert.NotNil(t, stats.MonthlyUsage)
	assert.Len(t, stats.MonthlyUsage, 0)
}

// The dashboard count and the low-stock listing share one predicate, so
// they can never disagree on the same data.
func TestLowStockCountMatchesListing(t *testing.T) {
	db := testutil.NewDB(t)
	seedSupplies(t, db)

	registry := supply.NewRegistry(db, cache.NewMemory(), keylock.New())
	listed, err := registry.LowStock(context.Background())
	require.NoError(t, err)

	agg := NewAggregator(db, 6)
	stats, err := agg.Snapshot(context.Background())
	require.NoError(t, err)

	assert.EqualValues(t, len(listed), stats.LowStockCount)
}

func TestTotalItemsMatchesListing(t *testing.T) {
	db := testutil.NewDB(t)
	seedSupplies(t, db)

	registry := supply.NewRegistry(db, cache.NewMemory(), keylock.New())
	items, err := registry.List(context.Background())
	require.NoError(t, err)

	sum := 0
	for _, it := range items {
		sum += it.Quantity
	}

	agg := NewAggregator(db, 6)
	stats, err := agg.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, sum, stats.TotalItems)
}

func TestMonthlyUsageBuckets(t *testing.T) {
	db := testutil.NewDB(t)
	seedSupplies(t, db)

	// pin "now" so the window is deterministic
	now := time.Date(2026, time.August, 15, 12, 0, 0, 0, time.UTC)
	agg := NewAggregator(db, 6)
	agg.now = func() time.Time { return now }

	record := func(qty int, usedAt time.Time) {
		require.NoError(t, db.Create(&models.UsageRecord{
			SupplyID: 1, QuantityUsed: qty, UsedBy: "jo", Department: "IT", UsedAt: usedAt,
		}).Error)
	}

	record(3, time.Date(2026, time.August, 1, 9, 0, 0, 0, time.UTC))
	record(2, time.Date(2026, time.August, 20, 9, 0, 0, 0, time.UTC))
	record(7, time.Date(2026, time.May, 10, 9, 0, 0, 0, time.UTC))
	// first instant of the window is included
	record(1, time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC))
	// one month before the window is excluded
	record(99, time.Date(2026, time.February, 28, 23, 59, 0, 0, time.UTC))

	stats, err := agg.Snapshot(context.Background())
	require.NoError(t, err)

	// empty months (Apr, Jun, Jul) are omitted; order is ascending
	assert.Equal(t, []MonthlyUsage{
		{Month: "2026-03", Amount: 1},
		{Month: "2026-05", Amount: 7},
		{Month: "2026-08", Amount: 5},
	}, stats.MonthlyUsage)
}

func TestMonthlyUsageWindowLength(t *testing.T) {
	db := testutil.NewDB(t)
	seedSupplies(t, db)

	now := time.Date(2026, time.August, 15, 12, 0, 0, 0, time.UTC)
	agg := NewAggregator(db, 1)
	agg.now = func() time.Time { return now }

	require.NoError(t, db.Create(&models.UsageRecord{
		SupplyID: 1, QuantityUsed: 4, UsedBy: "jo", Department: "IT",
		UsedAt: time.Date(2026, time.July, 31, 9, 0, 0, 0, time.UTC),
	}).Error)
	require.NoError(t, db.Create(&models.UsageRecord{
		SupplyID: 1, QuantityUsed: 6, UsedBy: "jo", Department: "IT",
		UsedAt: time.Date(2026, time.August, 2, 9, 0, 0, 0, time.UTC),
	}).Error)

	stats, err := agg.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []MonthlyUsage{{Month: "2026-08", Amount: 6}}, stats.MonthlyUsage)
}
