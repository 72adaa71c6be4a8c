package matrix

import (
	"backend/models"
)

// AllocationKey identifies one matrix cell. A struct key instead of a
// concatenated string avoids any ambiguity between IDs.
type AllocationKey struct {
	ProductID int
	VendorID  int
}

// AllocationEntry is the live state of one cell. Entries are never deleted;
// a cleared cell keeps quantity 0.
type AllocationEntry struct {
	Qty   float64
	Price float64
}

// AllocationStore holds the in-progress allocation edits of one editing
// session. It does no validation of its own; mode rules are applied by
// ModeController before anything is written here.
type AllocationStore struct {
	entries map[AllocationKey]AllocationEntry
}

func NewAllocationStore() *AllocationStore {
	return &AllocationStore{entries: make(map[AllocationKey]AllocationEntry)}
}

// Load replays the persisted allocation rows of freshly fetched lines into
// the store, replacing whatever was there.
func (s *AllocationStore) Load(lines []models.MatrixLine) {
	s.entries = make(map[AllocationKey]AllocationEntry)
	for _, line := range lines {
		for _, a := range line.Allocations {
			s.entries[AllocationKey{ProductID: line.ProductID, VendorID: a.VendorID}] = AllocationEntry{
				Qty:   a.QtyAlloc,
				Price: a.PriceUnitAlloc,
			}
		}
	}
}

// Get returns the entry for the cell, or a zero entry when none exists yet.
func (s *AllocationStore) Get(productID, vendorID int) AllocationEntry {
	return s.entries[AllocationKey{ProductID: productID, VendorID: vendorID}]
}

// Set overwrites the cell unconditionally.
func (s *AllocationStore) Set(productID, vendorID int, entry AllocationEntry) {
	s.entries[AllocationKey{ProductID: productID, VendorID: vendorID}] = entry
}
