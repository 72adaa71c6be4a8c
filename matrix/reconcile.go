package matrix

import (
	"backend/models"
)

// Reconcile turns the live, possibly unbalanced cell state of one line into
// the complete list of allocation rows to persist: exactly one row per
// vendor, zero-quantity rows included, tax list always empty at this layer.
// It reads only its inputs and is safe to run any number of times over the
// same snapshot.
func Reconcile(line models.MatrixLine, vendors []models.MatrixVendor, store *AllocationStore, index *QuoteIndex, splitByVendor bool) []models.AllocationRecord {
	if splitByVendor {
		return reconcileSplit(line, vendors, store, index)
	}
	return reconcileSingle(line, vendors, store, index)
}

// ReconcileAll reconciles every line of the matrix in order.
func ReconcileAll(data *models.MatrixData, store *AllocationStore, index *QuoteIndex) []models.AllocationRecord {
	records := make([]models.AllocationRecord, 0, len(data.Lines)*len(data.Vendors))
	for _, line := range data.Lines {
		records = append(records, Reconcile(line, data.Vendors, store, index, data.SplitByVendor)...)
	}
	return records
}

// reconcileSingle gives the full requested quantity to one vendor: the first
// vendor already holding a positive quantity, else the cheapest quoted
// vendor, else the first vendor. The selected vendor's price falls back from
// the stored price to the normalized quote price to the RFQ price.
func reconcileSingle(line models.MatrixLine, vendors []models.MatrixVendor, store *AllocationStore, index *QuoteIndex) []models.AllocationRecord {
	selected := 0
	haveSelected := false
	for _, v := range vendors {
		if store.Get(line.ProductID, v.ID).Qty > 0 {
			selected = v.ID
			haveSelected = true
			break
		}
	}
	if !haveSelected {
		if best, ok := index.BestVendorFor(line.ProductID); ok {
			selected = best
		} else if len(vendors) > 0 {
			selected = vendors[0].ID
		}
	}

	records := make([]models.AllocationRecord, 0, len(vendors))
	for _, v := range vendors {
		entry := store.Get(line.ProductID, v.ID)
		cell := line.Quotes[v.ID]
		price := entry.Price
		if price == 0 {
			price = cell.NormalizedPriceUnit
		}
		if price == 0 {
			price = cell.PriceUnit
		}
		rec := models.AllocationRecord{
			ProductID: line.ProductID,
			VendorID:  v.ID,
			TaxIDs:    []int{},
		}
		if v.ID == selected {
			rec.QtyAlloc = line.QtyRequest
			rec.PriceUnitAlloc = price
		}
		records = append(records, rec)
	}
	return records
}

// reconcileSplit passes every vendor's stored quantity through and assigns
// any shortfall against the requested quantity to the cheapest quoted vendor
// (else the first vendor), on top of that vendor's own quantity. A sum
// already at or above the requested quantity is left untouched. The price
// fallback prefers the RFQ price over the normalized one, mirroring how
// split-mode edits seed prices.
func reconcileSplit(line models.MatrixLine, vendors []models.MatrixVendor, store *AllocationStore, index *QuoteIndex) []models.AllocationRecord {
	perVendor := make(map[int]models.AllocationRecord, len(vendors))
	total := 0.0
	for _, v := range vendors {
		entry := store.Get(line.ProductID, v.ID)
		cell := line.Quotes[v.ID]
		price := entry.Price
		if price == 0 {
			price = cell.PriceUnit
		}
		if price == 0 {
			price = cell.NormalizedPriceUnit
		}
		perVendor[v.ID] = models.AllocationRecord{
			ProductID:      line.ProductID,
			VendorID:       v.ID,
			QtyAlloc:       entry.Qty,
			PriceUnitAlloc: price,
			TaxIDs:         []int{},
		}
		total += entry.Qty
	}

	if total < line.QtyRequest && len(vendors) > 0 {
		fallback, ok := index.BestVendorFor(line.ProductID)
		if !ok {
			fallback = vendors[0].ID
		}
		rec := perVendor[fallback]
		rec.QtyAlloc += line.QtyRequest - total
		perVendor[fallback] = rec
	}

	records := make([]models.AllocationRecord, 0, len(vendors))
	for _, v := range vendors {
		records = append(records, perVendor[v.ID])
	}
	return records
}
