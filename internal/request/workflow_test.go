package request

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"supplydesk-backend/internal/apperrors"
	"supplydesk-backend/internal/cache"
	"supplydesk-backend/internal/keylock"
	"supplydesk-backend/internal/models"
	"supplydesk-backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestWorkflow(t *testing.T) (*Workflow, *gorm.DB, *cache.Memory) {
	t.Helper()
	db := testutil.NewDB(t)
	store := cache.NewMemory()
	return NewWorkflow(db, store, keylock.New()), db, store
}

func seedSupply(t *testing.T, db *gorm.DB, quantity int) *models.SupplyItem {
	t.Helper()
	item := models.SupplyItem{
		Name: "Canon 045 toner", Type: "toner", Quantity: quantity, MinQuantity: 2, Unit: "pcs",
	}
	require.NoError(t, db.Create(&item).Error)
	return &item
}

func errCode(t *testing.T, err error) string {
	t.Helper()
	appErr, ok := err.(*apperrors.AppError)
	require.Truef(t, ok, "expected *apperrors.AppError, got %T: %v", err, err)
	return appErr.Code
}

func TestCreateRequest(t *testing.T) {
	wf, db, _ := newTestWorkflow(t)
	ctx := context.Background()
	item := seedSupply(t, db, 2)

	req, err := wf.Create(ctx, CreateRequestInput{
		SupplyID: item.ID, Quantity: 10, RequestedBy: "jo", Department: "IT",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusPending, req.Status, "requests start pending")
	assert.NotZero(t, req.ID)
}

func TestCreateRequestValidation(t *testing.T) {
	wf, db, _ := newTestWorkflow(t)
	ctx := context.Background()
	item := seedSupply(t, db, 2)

	tests := []struct {
		name string
		in   CreateRequestInput
		code string
	}{
		{"missing supply", CreateRequestInput{Quantity: 1, RequestedBy: "jo", Department: "IT"}, apperrors.CodeValidation},
		{"zero quantity", CreateRequestInput{SupplyID: item.ID, Quantity: 0, RequestedBy: "jo", Department: "IT"}, apperrors.CodeValidation},
		{"negative quantity", CreateRequestInput{SupplyID: item.ID, Quantity: -1, RequestedBy: "jo", Department: "IT"}, apperrors.CodeValidation},
		{"missing requester", CreateRequestInput{SupplyID: item.ID, Quantity: 1, Department: "IT"}, apperrors.CodeValidation},
		{"unknown supply", CreateRequestInput{SupplyID: 9999, Quantity: 1, RequestedBy: "jo", Department: "IT"}, apperrors.CodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := wf.Create(ctx, tt.in)
			require.Error(t, err)
			assert.Equal(t, tt.code, errCode(t, err))
		})
	}
}

func TestApproveThenComplete(t *testing.T) {
	wf, db, _ := newTestWorkflow(t)
	ctx := context.Background()
	item := seedSupply(t, db, 2)

	req, err := wf.Create(ctx, CreateRequestInput{
		SupplyID: item.ID, Quantity: 10, RequestedBy: "jo", Department: "IT",
	})
	require.NoError(t, err)

	approved, err := wf.UpdateStatus(ctx, req.ID, models.RequestStatusApproved)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusApproved, approved.Status)

	completed, err := wf.UpdateStatus(ctx, req.ID, models.RequestStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusCompleted, completed.Status)

	// replenishment arrived: 2 + 10
	var got models.SupplyItem
	require.NoError(t, db.First(&got, "id = ?", item.ID).Error)
	assert.Equal(t, 12, got.Quantity)

	// terminal: nothing leads out of completed
	for _, target := range []models.RequestStatus{
		models.RequestStatusPending, models.RequestStatusApproved, models.RequestStatusRejected, models.RequestStatusCompleted,
	} {
		_, err := wf.UpdateStatus(ctx, req.ID, target)
		require.Error(t, err)
		assert.Equal(t, apperrors.CodeInvalidTransition, errCode(t, err))
	}
}

func TestIllegalTransitions(t *testing.T) {
	wf, db, _ := newTestWorkflow(t)
	ctx := context.Background()
	item := seedSupply(t, db, 2)

	// pending -> completed must not skip approval
	req, err := wf.Create(ctx, CreateRequestInput{
		SupplyID: item.ID, Quantity: 5, RequestedBy: "jo", Department: "IT",
	})
	require.NoError(t, err)

	_, err = wf.UpdateStatus(ctx, req.ID, models.RequestStatusCompleted)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInvalidTransition, errCode(t, err))

	var got models.SupplyItem
	require.NoError(t, db.First(&got, "id = ?", item.ID).Error)
	assert.Equal(t, 2, got.Quantity, "rejected transition must not restock")

	// rejected is terminal
	_, err = wf.UpdateStatus(ctx, req.ID, models.RequestStatusRejected)
	require.NoError(t, err)
	_, err = wf.UpdateStatus(ctx, req.ID, models.RequestStatusApproved)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInvalidTransition, errCode(t, err))

	// unknown target status and unknown id
	_, err = wf.UpdateStatus(ctx, req.ID, models.RequestStatus("shipped"))
	assert.Equal(t, apperrors.CodeValidation, errCode(t, err))
	_, err = wf.UpdateStatus(ctx, 9999, models.RequestStatusApproved)
	assert.Equal(t, apperrors.CodeNotFound, errCode(t, err))
}

func TestConcurrentCompletionAppliesOnce(t *testing.T) {
	wf, db, _ := newTestWorkflow(t)
	ctx := context.Background()
	item := seedSupply(t, db, 2)

	req, err := wf.Create(ctx, CreateRequestInput{
		SupplyID: item.ID, Quantity: 10, RequestedBy: "jo", Department: "IT",
	})
	require.NoError(t, err)
	_, err = wf.UpdateStatus(ctx, req.ID, models.RequestStatusApproved)
	require.NoError(t, err)

	var successes atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := wf.UpdateStatus(ctx, req.ID, models.RequestStatusCompleted); err == nil {
				successes.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, successes.Load(), "only one completion may apply")

	var got models.SupplyItem
	require.NoError(t, db.First(&got, "id = ?", item.ID).Error)
	assert.Equal(t, 12, got.Quantity, "the increment lands exactly once")
}

func TestListJoinsSupplyName(t *testing.T) {
	wf, db, _ := newTestWorkflow(t)
	ctx := context.Background()
	item := seedSupply(t, db, 2)

	req, err := wf.Create(ctx, CreateRequestInput{
		SupplyID: item.ID, Quantity: 5, RequestedBy: "jo", Department: "IT",
	})
	require.NoError(t, err)

	rows, err := wf.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Canon 045 toner", rows[0].SupplyName)
	assert.Equal(t, req.ID, rows[0].ID)

	pending, err := wf.List(ctx, models.RequestStatusPending)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	completedOnly, err := wf.List(ctx, models.RequestStatusCompleted)
	require.NoError(t, err)
	assert.Len(t, completedOnly, 0)

	_, err = wf.List(ctx, models.RequestStatus("shipped"))
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeValidation, errCode(t, err))
}

func TestStatusChangeInvalidatesViews(t *testing.T) {
	wf, db, store := newTestWorkflow(t)
	ctx := context.Background()
	item := seedSupply(t, db, 2)

	req, err := wf.Create(ctx, CreateRequestInput{
		SupplyID: item.ID, Quantity: 5, RequestedBy: "jo", Department: "IT",
	})
	require.NoError(t, err)
	_, err = wf.UpdateStatus(ctx, req.ID, models.RequestStatusApproved)
	require.NoError(t, err)

	// completion touches the supply, so every view goes stale
	keys := append(cache.RequestViews(true), cache.SupplyViews()...)
	for _, key := range keys {
		require.NoError(t, store.Set(ctx, key, []byte("stale"), cache.ViewTTL))
	}

	_, err = wf.UpdateStatus(ctx, req.ID, models.RequestStatusCompleted)
	require.NoError(t, err)

	for _, key := range cache.RequestViews(true) {
		_, ok, _ := store.Get(ctx, key)
		assert.Falsef(t, ok, "view %s must be invalidated after completion", key)
	}
}
