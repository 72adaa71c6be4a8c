package matrix

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backend/models"
)

// testMatrix builds the canonical two-vendor fixture: product 101 needs 10
// units, vendor 1 quotes normalized 5, vendor 2 quotes normalized 3.
func testMatrix(split bool) *models.MatrixData {
	return &models.MatrixData{
		ID:            1,
		Name:          "PRQ-TEST0001",
		SplitByVendor: split,
		Vendors: []models.MatrixVendor{
			{ID: 1, Name: "Vendor A"},
			{ID: 2, Name: "Vendor B"},
		},
		Lines: []models.MatrixLine{
			{
				ProductID:   101,
				ProductName: "Cement OPC 53",
				QtyRequest:  10,
				Quotes: map[int]models.QuoteCell{
					1: {PriceUnit: 5, NormalizedPriceUnit: 5},
					2: {PriceUnit: 3, NormalizedPriceUnit: 3},
				},
			},
		},
	}
}

func recordFor(t *testing.T, records []models.AllocationRecord, vendorID int) models.AllocationRecord {
	t.Helper()
	for _, r := range records {
		if r.VendorID == vendorID {
			return r
		}
	}
	t.Fatalf("no record for vendor %d", vendorID)
	return models.AllocationRecord{}
}

func TestReconcileSingleModeNoEditsPicksBestVendor(t *testing.T) {
	data := testMatrix(false)
	store := NewAllocationStore()
	index := BuildQuoteIndex(data.Lines, data.Vendors)

	records := ReconcileAll(data, store, index)
	require.Len(t, records, 2)

	best := recordFor(t, records, 2)
	assert.Equal(t, 10.0, best.QtyAlloc)
	assert.Equal(t, 3.0, best.PriceUnitAlloc)

	other := recordFor(t, records, 1)
	assert.Zero(t, other.QtyAlloc)
	assert.Zero(t, other.PriceUnitAlloc)
}

func TestReconcileSingleModeKeepsOperatorChoice(t *testing.T) {
	data := testMatrix(false)
	store := NewAllocationStore()
	store.Set(101, 1, AllocationEntry{Qty: 4})
	index := BuildQuoteIndex(data.Lines, data.Vendors)

	records := ReconcileAll(data, store, index)

	// The chosen vendor gets the full requested quantity, not the edited one.
	chosen := recordFor(t, records, 1)
	assert.Equal(t, 10.0, chosen.QtyAlloc)
	assert.Equal(t, 5.0, chosen.PriceUnitAlloc)
	assert.Zero(t, recordFor(t, records, 2).QtyAlloc)
}

func TestReconcileSingleModePriceFallbackOrder(t *testing.T) {
	data := testMatrix(false)
	data.Lines[0].Quotes[2] = models.QuoteCell{PriceUnit: 7, NormalizedPriceUnit: 0}
	store := NewAllocationStore()
	store.Set(101, 2, AllocationEntry{Qty: 1})
	index := BuildQuoteIndex(data.Lines, data.Vendors)

	records := ReconcileAll(data, store, index)

	// Stored price absent, normalized price unusable: falls through to the
	// RFQ price.
	assert.Equal(t, 7.0, recordFor(t, records, 2).PriceUnitAlloc)
}

func TestReconcileSingleModeNoQuotesFallsBackToFirstVendor(t *testing.T) {
	data := testMatrix(false)
	data.Lines[0].Quotes = map[int]models.QuoteCell{}
	store := NewAllocationStore()
	index := BuildQuoteIndex(data.Lines, data.Vendors)

	records := ReconcileAll(data, store, index)

	first := recordFor(t, records, 1)
	assert.Equal(t, 10.0, first.QtyAlloc)
	assert.Zero(t, first.PriceUnitAlloc)
}

func TestReconcileSplitModeAssignsShortfallToBestVendor(t *testing.T) {
	data := testMatrix(true)
	store := NewAllocationStore()
	store.Set(101, 1, AllocationEntry{Qty: 4, Price: 5})
	index := BuildQuoteIndex(data.Lines, data.Vendors)

	records := ReconcileAll(data, store, index)

	a := recordFor(t, records, 1)
	assert.Equal(t, 4.0, a.QtyAlloc)
	assert.Equal(t, 5.0, a.PriceUnitAlloc)

	b := recordFor(t, records, 2)
	assert.Equal(t, 6.0, b.QtyAlloc)
	assert.Equal(t, 3.0, b.PriceUnitAlloc)
}

func TestReconcileSplitModeShortfallAddsToExistingQty(t *testing.T) {
	data := testMatrix(true)
	store := NewAllocationStore()
	store.Set(101, 1, AllocationEntry{Qty: 3, Price: 5})
	store.Set(101, 2, AllocationEntry{Qty: 2, Price: 3})
	index := BuildQuoteIndex(data.Lines, data.Vendors)

	records := ReconcileAll(data, store, index)

	// Vendor 2 keeps its own 2 units plus the 5-unit shortfall.
	assert.Equal(t, 7.0, recordFor(t, records, 2).QtyAlloc)
	assert.Equal(t, 3.0, recordFor(t, records, 1).QtyAlloc)
}

func TestReconcileSplitModeOverAllocationPassesThrough(t *testing.T) {
	data := testMatrix(true)
	store := NewAllocationStore()
	store.Set(101, 1, AllocationEntry{Qty: 6, Price: 5})
	store.Set(101, 2, AllocationEntry{Qty: 6, Price: 3})
	index := BuildQuoteIndex(data.Lines, data.Vendors)

	records := ReconcileAll(data, store, index)

	assert.Equal(t, 6.0, recordFor(t, records, 1).QtyAlloc)
	assert.Equal(t, 6.0, recordFor(t, records, 2).QtyAlloc)
}

func TestReconcileSplitModeBalancesWhenUnderAllocated(t *testing.T) {
	cases := []struct {
		name string
		qtyA float64
		qtyB float64
	}{
		{"nothing allocated", 0, 0},
		{"partial on one vendor", 4, 0},
		{"partial on both", 3, 5},
		{"exactly requested", 4, 6},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data := testMatrix(true)
			store := NewAllocationStore()
			if tc.qtyA > 0 {
				store.Set(101, 1, AllocationEntry{Qty: tc.qtyA, Price: 5})
			}
			if tc.qtyB > 0 {
				store.Set(101, 2, AllocationEntry{Qty: tc.qtyB, Price: 3})
			}
			index := BuildQuoteIndex(data.Lines, data.Vendors)

			records := ReconcileAll(data, store, index)
			sum := 0.0
			for _, r := range records {
				sum += r.QtyAlloc
			}
			assert.Equal(t, 10.0, sum)
		})
	}
}

func TestReconcileSplitModePriceFallbackPrefersRFQPrice(t *testing.T) {
	data := testMatrix(true)
	data.Lines[0].Quotes[1] = models.QuoteCell{PriceUnit: 5.5, NormalizedPriceUnit: 5}
	store := NewAllocationStore()
	store.Set(101, 1, AllocationEntry{Qty: 10})
	index := BuildQuoteIndex(data.Lines, data.Vendors)

	records := ReconcileAll(data, store, index)

	assert.Equal(t, 5.5, recordFor(t, records, 1).PriceUnitAlloc)
}

func TestReconcileEmitsOneRecordPerVendorWithEmptyTaxes(t *testing.T) {
	for _, split := range []bool{false, true} {
		data := testMatrix(split)
		store := NewAllocationStore()
		index := BuildQuoteIndex(data.Lines, data.Vendors)

		records := ReconcileAll(data, store, index)
		require.Len(t, records, len(data.Lines)*len(data.Vendors))
		for _, r := range records {
			require.NotNil(t, r.TaxIDs)
			assert.Empty(t, r.TaxIDs)
		}
	}
}

func TestReconcileIsIdempotent(t *testing.T) {
	for _, split := range []bool{false, true} {
		data := testMatrix(split)
		store := NewAllocationStore()
		store.Set(101, 1, AllocationEntry{Qty: 4, Price: 5})
		index := BuildQuoteIndex(data.Lines, data.Vendors)

		first := ReconcileAll(data, store, index)
		second := ReconcileAll(data, store, index)
		assert.Equal(t, first, second)
	}
}
