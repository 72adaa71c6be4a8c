package matrix

import (
	"backend/models"
)

// QuoteIndex answers "which vendor has the cheapest comparable price for this
// product". It is rebuilt from scratch on every load; the cheapest-vendor map
// is never patched incrementally.
type QuoteIndex struct {
	best map[int]int
}

// BuildQuoteIndex scans every line's quotes in vendor order and keeps, per
// product, the vendor with the lowest strictly positive normalized price.
// Ties resolve to the vendor encountered first. Lines where no vendor has a
// comparable price get no entry.
func BuildQuoteIndex(lines []models.MatrixLine, vendors []models.MatrixVendor) *QuoteIndex {
	ix := &QuoteIndex{best: make(map[int]int)}
	for _, line := range lines {
		bestVendorID := 0
		bestPrice := 0.0
		found := false
		for _, v := range vendors {
			cell, ok := line.Quotes[v.ID]
			if !ok || cell.NormalizedPriceUnit <= 0 {
				continue
			}
			if !found || cell.NormalizedPriceUnit < bestPrice {
				bestPrice = cell.NormalizedPriceUnit
				bestVendorID = v.ID
				found = true
			}
		}
		if found {
			ix.best[line.ProductID] = bestVendorID
		}
	}
	return ix
}

// BestVendorFor returns the cheapest comparable vendor for the product, or
// ok=false when no vendor quoted a usable price.
func (ix *QuoteIndex) BestVendorFor(productID int) (int, bool) {
	vendorID, ok := ix.best[productID]
	return vendorID, ok
}
