package matrix

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backend/models"
)

type fakeStore struct {
	data       *models.MatrixData
	fetchErr   error
	saveErr    error
	modeErr    error
	fetchCount int
	lastSaved  []models.AllocationRecord
	splitSaved []bool
}

func (f *fakeStore) FetchMatrix(ctx context.Context, requestID int) (*models.MatrixData, error) {
	f.fetchCount++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.data, nil
}

func (f *fakeStore) SaveAllocations(ctx context.Context, requestID int, records []models.AllocationRecord) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.lastSaved = records
	// Persist qty > 0 rows back into the matrix, the way the real store does.
	for i := range f.data.Lines {
		f.data.Lines[i].Allocations = nil
		for _, r := range records {
			if r.ProductID == f.data.Lines[i].ProductID && r.QtyAlloc > 0 {
				f.data.Lines[i].Allocations = append(f.data.Lines[i].Allocations, r)
			}
		}
	}
	return nil
}

func (f *fakeStore) SetSplitMode(ctx context.Context, requestID int, enabled bool) error {
	if f.modeErr != nil {
		return f.modeErr
	}
	f.splitSaved = append(f.splitSaved, enabled)
	return nil
}

type fakeNotifier struct {
	successes []string
	failures  []string
}

func (n *fakeNotifier) Success(msg string) { n.successes = append(n.successes, msg) }
func (n *fakeNotifier) Failure(msg string) { n.failures = append(n.failures, msg) }

func newTestEditor(t *testing.T, split bool) (*Editor, *fakeStore, *fakeNotifier, *Bus) {
	t.Helper()
	store := &fakeStore{data: testMatrix(split)}
	notifier := &fakeNotifier{}
	bus := NewBus()
	e := NewEditor(store, notifier, bus, 1)
	t.Cleanup(e.Close)
	return e, store, notifier, bus
}

func TestEditorLoadBuildsSessionState(t *testing.T) {
	e, store, _, _ := newTestEditor(t, false)
	store.data.Lines[0].Allocations = []models.AllocationRecord{
		{ProductID: 101, VendorID: 1, QtyAlloc: 4, PriceUnitAlloc: 5},
	}

	require.NoError(t, e.Load(context.Background()))
	assert.Equal(t, StateReady, e.State())
	assert.Equal(t, AllocationEntry{Qty: 4, Price: 5}, e.Entry(101, 1))
}

func TestEditorLoadFailure(t *testing.T) {
	e, store, notifier, _ := newTestEditor(t, false)
	store.fetchErr = errors.New("connection refused")

	err := e.Load(context.Background())
	require.ErrorIs(t, err, ErrLoadFailed)
	assert.Equal(t, StateError, e.State())
	assert.NotEmpty(t, notifier.failures)
}

func TestEditorSaveReconcilesAndReloads(t *testing.T) {
	e, store, notifier, _ := newTestEditor(t, false)
	require.NoError(t, e.Load(context.Background()))

	require.NoError(t, e.Save(context.Background()))

	require.Len(t, store.lastSaved, 2)
	best := store.lastSaved[1]
	assert.Equal(t, 2, best.VendorID)
	assert.Equal(t, 10.0, best.QtyAlloc)
	assert.Equal(t, 3.0, best.PriceUnitAlloc)

	// Save triggers a full reload so the screen matches what persisted.
	assert.Equal(t, 2, store.fetchCount)
	assert.Equal(t, StateReady, e.State())
	assert.Equal(t, AllocationEntry{Qty: 10, Price: 3}, e.Entry(101, 2))
	assert.Contains(t, notifier.successes, "Allocations saved")
}

func TestEditorFailedSaveKeepsLocalEdits(t *testing.T) {
	e, store, notifier, _ := newTestEditor(t, true)
	require.NoError(t, e.Load(context.Background()))
	e.SetQuantity(101, 1, 4)
	store.saveErr = errors.New("totals rejected")

	err := e.Save(context.Background())
	require.ErrorIs(t, err, ErrSaveFailed)
	assert.Equal(t, StateError, e.State())
	assert.Equal(t, 4.0, e.Entry(101, 1).Qty)
	assert.Equal(t, 1, store.fetchCount)
	assert.NotEmpty(t, notifier.failures)
}

func TestEditorToggleSplitPersistsThenApplies(t *testing.T) {
	e, store, _, _ := newTestEditor(t, false)
	require.NoError(t, e.Load(context.Background()))

	require.NoError(t, e.ToggleSplit(context.Background(), true))
	assert.Equal(t, []bool{true}, store.splitSaved)
	assert.True(t, e.Data().SplitByVendor)

	// Edits now follow split-mode rules.
	e.SetQuantity(101, 1, 4)
	e.SetQuantity(101, 2, 6)
	assert.Equal(t, 4.0, e.Entry(101, 1).Qty)
	assert.Equal(t, 6.0, e.Entry(101, 2).Qty)
}

func TestEditorToggleSplitFailureRevertsFlag(t *testing.T) {
	e, store, notifier, _ := newTestEditor(t, false)
	require.NoError(t, e.Load(context.Background()))
	store.modeErr = errors.New("write rejected")

	err := e.ToggleSplit(context.Background(), true)
	require.ErrorIs(t, err, ErrModeSaveFailed)
	assert.False(t, e.Data().SplitByVendor)
	assert.NotEmpty(t, notifier.failures)

	// Cross-vendor zeroing still applies: the mode never changed.
	e.SetQuantity(101, 1, 4)
	e.SetQuantity(101, 2, 6)
	assert.Zero(t, e.Entry(101, 1).Qty)
}

func TestEditorUpdateChannelLifecycle(t *testing.T) {
	e, _, _, bus := newTestEditor(t, false)
	require.NoError(t, e.Load(context.Background()))
	assert.False(t, e.UpdatePending())

	bus.Publish(UpdateChannel, "matrix_update")
	assert.True(t, e.UpdatePending())

	// Reload clears the hint.
	require.NoError(t, e.Load(context.Background()))
	assert.False(t, e.UpdatePending())

	// After teardown the session no longer receives updates; closing twice
	// is fine.
	e.Close()
	e.Close()
	bus.Publish(UpdateChannel, "matrix_update")
	assert.False(t, e.UpdatePending())
}
