package matrix

import (
	"backend/models"
)

// ModeController applies the allocation-mode rules to every cell edit before
// it reaches the store. In single-vendor mode at most one vendor per product
// may hold a positive quantity; in split mode vendors are independent.
type ModeController struct {
	store *AllocationStore
	split bool
}

func NewModeController(store *AllocationStore, splitByVendor bool) *ModeController {
	return &ModeController{store: store, split: splitByVendor}
}

func (m *ModeController) SplitByVendor() bool {
	return m.split
}

// SetQuantity writes a quantity edit for (line.ProductID, vendorID).
// In split mode a first positive quantity on a priceless cell seeds the
// price from the vendor's quote, RFQ price first. In single-vendor mode a
// positive quantity forces every other vendor's quantity for the product to
// zero; prices on zeroed cells are left alone, reconciliation ignores them.
func (m *ModeController) SetQuantity(line models.MatrixLine, vendors []models.MatrixVendor, vendorID int, qty float64) {
	current := m.store.Get(line.ProductID, vendorID)
	if m.split && qty > 0 && current.Price == 0 {
		cell := line.Quotes[vendorID]
		price := cell.PriceUnit
		if price == 0 {
			price = cell.NormalizedPriceUnit
		}
		m.store.Set(line.ProductID, vendorID, AllocationEntry{Qty: qty, Price: price})
	} else {
		current.Qty = qty
		m.store.Set(line.ProductID, vendorID, current)
	}
	if m.split || qty <= 0 {
		return
	}
	for _, v := range vendors {
		if v.ID == vendorID {
			continue
		}
		other := m.store.Get(line.ProductID, v.ID)
		if other.Qty > 0 {
			other.Qty = 0
			m.store.Set(line.ProductID, v.ID, other)
		}
	}
}

// SetPrice overwrites only the price of the cell. No cross-cell effects in
// either mode.
func (m *ModeController) SetPrice(productID, vendorID int, price float64) {
	current := m.store.Get(productID, vendorID)
	current.Price = price
	m.store.Set(productID, vendorID, current)
}

// ClickCell assigns the line's full requested quantity to the vendor. Cell
// clicks are disabled in split mode.
func (m *ModeController) ClickCell(line models.MatrixLine, vendors []models.MatrixVendor, vendorID int) {
	if m.split {
		return
	}
	m.SetQuantity(line, vendors, vendorID, line.QtyRequest)
}
