package matrix

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"backend/models"
)

func positiveQtyVendors(store *AllocationStore, line models.MatrixLine, vendors []models.MatrixVendor) []int {
	var out []int
	for _, v := range vendors {
		if store.Get(line.ProductID, v.ID).Qty > 0 {
			out = append(out, v.ID)
		}
	}
	return out
}

func TestSingleModeAtMostOnePositiveVendor(t *testing.T) {
	data := testMatrix(false)
	store := NewAllocationStore()
	mode := NewModeController(store, false)
	line := data.Lines[0]

	edits := []struct {
		vendorID int
		qty      float64
	}{
		{1, 4}, {2, 6}, {1, 10}, {2, 0}, {1, 3}, {2, 8},
	}
	for _, e := range edits {
		mode.SetQuantity(line, data.Vendors, e.vendorID, e.qty)
		assert.LessOrEqual(t, len(positiveQtyVendors(store, line, data.Vendors)), 1)
	}
	assert.Equal(t, []int{2}, positiveQtyVendors(store, line, data.Vendors))
}

func TestSingleModeZeroedEntryKeepsPrice(t *testing.T) {
	data := testMatrix(false)
	store := NewAllocationStore()
	mode := NewModeController(store, false)
	line := data.Lines[0]

	store.Set(101, 1, AllocationEntry{Qty: 4, Price: 9})
	mode.SetQuantity(line, data.Vendors, 2, 6)

	zeroed := store.Get(101, 1)
	assert.Zero(t, zeroed.Qty)
	assert.Equal(t, 9.0, zeroed.Price)
}

func TestSingleModeZeroEditDoesNotTouchOthers(t *testing.T) {
	data := testMatrix(false)
	store := NewAllocationStore()
	mode := NewModeController(store, false)
	line := data.Lines[0]

	mode.SetQuantity(line, data.Vendors, 1, 4)
	mode.SetQuantity(line, data.Vendors, 2, 0)

	assert.Equal(t, 4.0, store.Get(101, 1).Qty)
	assert.Zero(t, store.Get(101, 2).Qty)
}

func TestSplitModeEditsAreIndependent(t *testing.T) {
	data := testMatrix(true)
	store := NewAllocationStore()
	mode := NewModeController(store, true)
	line := data.Lines[0]

	mode.SetQuantity(line, data.Vendors, 1, 4)
	mode.SetQuantity(line, data.Vendors, 2, 6)

	assert.Equal(t, 4.0, store.Get(101, 1).Qty)
	assert.Equal(t, 6.0, store.Get(101, 2).Qty)
}

func TestSplitModeSeedsPriceFromQuote(t *testing.T) {
	data := testMatrix(true)
	store := NewAllocationStore()
	mode := NewModeController(store, true)
	line := data.Lines[0]

	mode.SetQuantity(line, data.Vendors, 2, 6)
	assert.Equal(t, 3.0, store.Get(101, 2).Price)

	// An already priced cell is not reseeded.
	mode.SetPrice(101, 2, 4.5)
	mode.SetQuantity(line, data.Vendors, 2, 8)
	assert.Equal(t, 4.5, store.Get(101, 2).Price)
}

func TestSplitModeSeedFallsBackToNormalizedPrice(t *testing.T) {
	data := testMatrix(true)
	data.Lines[0].Quotes[2] = models.QuoteCell{PriceUnit: 0, NormalizedPriceUnit: 3.2}
	store := NewAllocationStore()
	mode := NewModeController(store, true)

	mode.SetQuantity(data.Lines[0], data.Vendors, 2, 6)
	assert.Equal(t, 3.2, store.Get(101, 2).Price)
}

func TestPriceEditLeavesQuantityAlone(t *testing.T) {
	store := NewAllocationStore()
	mode := NewModeController(store, false)

	store.Set(101, 1, AllocationEntry{Qty: 4, Price: 5})
	mode.SetPrice(101, 1, 6)

	entry := store.Get(101, 1)
	assert.Equal(t, 4.0, entry.Qty)
	assert.Equal(t, 6.0, entry.Price)
}

func TestCellClickAssignsFullQuantity(t *testing.T) {
	data := testMatrix(false)
	store := NewAllocationStore()
	mode := NewModeController(store, false)

	mode.ClickCell(data.Lines[0], data.Vendors, 1)
	assert.Equal(t, 10.0, store.Get(101, 1).Qty)
}

func TestCellClickDisabledInSplitMode(t *testing.T) {
	data := testMatrix(true)
	store := NewAllocationStore()
	mode := NewModeController(store, true)

	mode.ClickCell(data.Lines[0], data.Vendors, 1)
	assert.Zero(t, store.Get(101, 1).Qty)
}
