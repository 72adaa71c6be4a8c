package matrix

import (
	"context"
	"fmt"
	"sync"

	"backend/models"
)

// Store is the backend collaborator an editing session loads from and saves
// to. FetchMatrix must be safe to repeat.
type Store interface {
	FetchMatrix(ctx context.Context, requestID int) (*models.MatrixData, error)
	SaveAllocations(ctx context.Context, requestID int, records []models.AllocationRecord) error
	SetSplitMode(ctx context.Context, requestID int, enabled bool) error
}

// Notifier receives transient user feedback. Calls are fire-and-forget; the
// editor never waits on them.
type Notifier interface {
	Success(message string)
	Failure(message string)
}

// State of an editing session.
type State int

const (
	StateLoading State = iota
	StateReady
	StateSaving
	StateError
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateSaving:
		return "saving"
	default:
		return "error"
	}
}

// Editor is one interactive allocation-editing session over a purchase
// request. All methods are meant to be called from a single goroutine; only
// the update-channel callback arrives from outside and touches nothing but
// the pending flag.
type Editor struct {
	store    Store
	notifier Notifier

	requestID int
	state     State

	data   *models.MatrixData
	allocs *AllocationStore
	index  *QuoteIndex
	mode   *ModeController

	pendingMu     sync.Mutex
	updatePending bool

	unsubscribe func()
	closeOnce   sync.Once
}

// NewEditor opens a session and subscribes to the matrix update channel.
// Call Close when the session ends, on every path.
func NewEditor(store Store, notifier Notifier, bus *Bus, requestID int) *Editor {
	e := &Editor{
		store:     store,
		notifier:  notifier,
		requestID: requestID,
		state:     StateLoading,
		allocs:    NewAllocationStore(),
	}
	if bus != nil {
		e.unsubscribe = bus.Subscribe(UpdateChannel, func(string) {
			e.pendingMu.Lock()
			e.updatePending = true
			e.pendingMu.Unlock()
		})
	}
	return e
}

// Close releases the update-channel subscription. Safe to call more than
// once and never fails.
func (e *Editor) Close() {
	e.closeOnce.Do(func() {
		if e.unsubscribe != nil {
			e.unsubscribe()
		}
	})
}

func (e *Editor) State() State {
	return e.state
}

func (e *Editor) Data() *models.MatrixData {
	return e.data
}

// Entry exposes the live cell state, mainly for the presentation layer.
func (e *Editor) Entry(productID, vendorID int) AllocationEntry {
	return e.allocs.Get(productID, vendorID)
}

// UpdatePending reports whether a matrix update arrived on the channel since
// the last load. Advisory only; the session does not react to it itself.
func (e *Editor) UpdatePending() bool {
	e.pendingMu.Lock()
	defer e.pendingMu.Unlock()
	return e.updatePending
}

// Load fetches the matrix and rebuilds the quote index and allocation store
// from it. On failure the session enters the error state with no partial
// state applied.
func (e *Editor) Load(ctx context.Context) error {
	e.state = StateLoading
	data, err := e.store.FetchMatrix(ctx, e.requestID)
	if err != nil {
		e.state = StateError
		e.notifier.Failure(fmt.Sprintf("Failed to load purchase request %d", e.requestID))
		return fmt.Errorf("%w: %v", ErrLoadFailed, err)
	}
	e.data = data
	e.index = BuildQuoteIndex(data.Lines, data.Vendors)
	e.allocs.Load(data.Lines)
	e.mode = NewModeController(e.allocs, data.SplitByVendor)
	e.pendingMu.Lock()
	e.updatePending = false
	e.pendingMu.Unlock()
	e.state = StateReady
	return nil
}

func (e *Editor) line(productID int) (models.MatrixLine, bool) {
	for _, l := range e.data.Lines {
		if l.ProductID == productID {
			return l, true
		}
	}
	return models.MatrixLine{}, false
}

// SetQuantity applies a quantity edit under the current mode's rules.
func (e *Editor) SetQuantity(productID, vendorID int, qty float64) {
	if line, ok := e.line(productID); ok {
		e.mode.SetQuantity(line, e.data.Vendors, vendorID, qty)
	}
}

// SetPrice applies a price edit to one cell.
func (e *Editor) SetPrice(productID, vendorID int, price float64) {
	if _, ok := e.line(productID); ok {
		e.mode.SetPrice(productID, vendorID, price)
	}
}

// ClickCell assigns the full requested quantity; disabled in split mode.
func (e *Editor) ClickCell(productID, vendorID int) {
	if line, ok := e.line(productID); ok {
		e.mode.ClickCell(line, e.data.Vendors, vendorID)
	}
}

// ToggleSplit persists the new mode flag first and only then applies it
// locally. When persistence fails the flag keeps its previous value,
// existing cell entries are untouched either way.
func (e *Editor) ToggleSplit(ctx context.Context, enabled bool) error {
	if err := e.store.SetSplitMode(ctx, e.requestID, enabled); err != nil {
		e.notifier.Failure("Failed to update mode")
		return fmt.Errorf("%w: %v", ErrModeSaveFailed, err)
	}
	e.data.SplitByVendor = enabled
	e.mode = NewModeController(e.allocs, enabled)
	e.notifier.Success("Mode updated")
	return nil
}

// Save reconciles every line into a complete payload, submits it and, on
// success, reloads so the session shows exactly what was persisted. A
// rejected save keeps all local edits for a retry.
func (e *Editor) Save(ctx context.Context) error {
	e.state = StateSaving
	records := ReconcileAll(e.data, e.allocs, e.index)
	if err := e.store.SaveAllocations(ctx, e.requestID, records); err != nil {
		e.state = StateError
		e.notifier.Failure(fmt.Sprintf("Failed to save allocations: %v", err))
		return fmt.Errorf("%w: %v", ErrSaveFailed, err)
	}
	e.notifier.Success("Allocations saved")
	return e.Load(ctx)
}
