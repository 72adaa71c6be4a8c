package matrix

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"backend/models"
)

func TestQuoteIndexPicksCheapestComparableVendor(t *testing.T) {
	data := testMatrix(false)
	index := BuildQuoteIndex(data.Lines, data.Vendors)

	vendorID, ok := index.BestVendorFor(101)
	assert.True(t, ok)
	assert.Equal(t, 2, vendorID)
}

func TestQuoteIndexIgnoresNonPositiveNormalizedPrices(t *testing.T) {
	data := testMatrix(false)
	data.Lines[0].Quotes = map[int]models.QuoteCell{
		1: {PriceUnit: 5, NormalizedPriceUnit: 0},
		2: {PriceUnit: 3, NormalizedPriceUnit: -1},
	}
	index := BuildQuoteIndex(data.Lines, data.Vendors)

	_, ok := index.BestVendorFor(101)
	assert.False(t, ok)
}

func TestQuoteIndexCheapestSkipsInvalidQuote(t *testing.T) {
	data := testMatrix(false)
	// Vendor 2 is cheaper but not comparable; vendor 1 must win.
	data.Lines[0].Quotes[2] = models.QuoteCell{PriceUnit: 3, NormalizedPriceUnit: 0}
	index := BuildQuoteIndex(data.Lines, data.Vendors)

	vendorID, ok := index.BestVendorFor(101)
	assert.True(t, ok)
	assert.Equal(t, 1, vendorID)
}

func TestQuoteIndexTieResolvesToFirstVendorInOrder(t *testing.T) {
	data := testMatrix(false)
	data.Lines[0].Quotes = map[int]models.QuoteCell{
		1: {PriceUnit: 4, NormalizedPriceUnit: 4},
		2: {PriceUnit: 4, NormalizedPriceUnit: 4},
	}
	index := BuildQuoteIndex(data.Lines, data.Vendors)

	vendorID, ok := index.BestVendorFor(101)
	assert.True(t, ok)
	assert.Equal(t, 1, vendorID)
}

func TestQuoteIndexUnknownProduct(t *testing.T) {
	data := testMatrix(false)
	index := BuildQuoteIndex(data.Lines, data.Vendors)

	_, ok := index.BestVendorFor(999)
	assert.False(t, ok)
}
