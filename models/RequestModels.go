package models

import (
	"time"
)

// Purchase request lifecycle states.
const (
	RequestStateDraft           = "draft"
	RequestStateVendorsSelected = "vendors_selected"
	RequestStateRFQsCreated     = "rfqs_created"
	RequestStateWaitingApproval = "waiting_approval"
	RequestStateApproved        = "approved"
	RequestStatePOCreated       = "po_created"
	RequestStateCancelled       = "cancel"
)

type PurchaseRequest struct {
	ID            int       `json:"id" example:"1"`
	Name          string    `json:"name" example:"PRQ-4F2A91C3"`
	SaleOrderID   int       `json:"sale_order_id" example:"12"`
	State         string    `json:"state" example:"draft"`
	SplitByVendor bool      `json:"split_by_vendor" example:"false"`
	Currency      string    `json:"currency" example:"INR"`
	Note          string    `json:"note,omitempty" example:""`
	CreatedAt     time.Time `json:"created_at" example:"2024-01-15T10:30:00Z"`
	UpdatedAt     time.Time `json:"updated_at" example:"2024-01-15T10:30:00Z"`
}

type RequestLine struct {
	ID          int     `json:"id" example:"1"`
	RequestID   int     `json:"request_id" example:"1"`
	ProductID   int     `json:"product_id" example:"101"`
	ProductName string  `json:"product_name" example:"Cement OPC 53"`
	UomName     string  `json:"uom_name" example:"Bag"`
	QtyRequest  float64 `json:"qty_request" example:"100"`
	Description string  `json:"description,omitempty" example:""`
}

type Vendor struct {
	VendorID  int       `json:"vendor_id" example:"1"`
	Name      string    `json:"name" example:"ABC Suppliers"`
	Email     string    `json:"email" example:"vendor@example.com"`
	Phone     string    `json:"phone" example:"9876543210"`
	Address   string    `json:"address" example:"123 Industrial Area"`
	Status    string    `json:"status" example:"active"`
	CreatedAt time.Time `json:"created_at" example:"2024-01-15T10:30:00Z"`
	UpdatedAt time.Time `json:"updated_at" example:"2024-01-15T10:30:00Z"`
	CreatedBy string    `json:"created_by" example:"admin"`
	UpdatedBy string    `json:"updated_by" example:"admin"`
}

// QuoteLine is one vendor's synced RFQ price for one product of a request.
// NormalizedPriceUnit carries the price converted to the request currency;
// zero or negative means the quote is not comparable.
type QuoteLine struct {
	ID                  int       `json:"id" example:"1"`
	RequestID           int       `json:"request_id" example:"1"`
	VendorID            int       `json:"vendor_id" example:"1"`
	ProductID           int       `json:"product_id" example:"101"`
	QtyQuote            float64   `json:"qty_quote" example:"100"`
	PriceUnitQuote      float64   `json:"price_unit_quote" example:"350.50"`
	Currency            string    `json:"currency" example:"INR"`
	NormalizedPriceUnit float64   `json:"normalized_price_unit" example:"350.50"`
	LeadTimeDays        int       `json:"lead_time_days" example:"7"`
	ValidityDate        time.Time `json:"validity_date,omitempty"`
	VendorNote          string    `json:"vendor_note,omitempty" example:""`
	SourceRFQID         int       `json:"source_rfq_id,omitempty" example:"3"`
}

// MatrixVendor is the vendor column of the comparison matrix.
type MatrixVendor struct {
	ID          int    `json:"id" example:"1"`
	Name        string `json:"name" example:"ABC Suppliers"`
	DatePlanned string `json:"date_planned" example:"2024-02-01"`
	PaymentTerm string `json:"payment_term" example:"30 Days"`
}

// QuoteCell is a single vendor quote as shown in the matrix.
type QuoteCell struct {
	PriceUnit           float64 `json:"price_unit" example:"350.50"`
	Currency            string  `json:"currency" example:"INR"`
	NormalizedPriceUnit float64 `json:"normalized_price_unit" example:"350.50"`
}

// AllocationRecord is one persisted (product, vendor) allocation row.
// TaxIDs is carried through untouched; nothing in this service computes it.
type AllocationRecord struct {
	ProductID      int     `json:"product_id" example:"101"`
	VendorID       int     `json:"vendor_id" example:"1"`
	QtyAlloc       float64 `json:"qty_alloc" example:"60"`
	PriceUnitAlloc float64 `json:"price_unit_alloc" example:"350.50"`
	TaxIDs         []int   `json:"tax_ids"`
}

// MatrixLine is one request line with its quotes keyed by vendor ID and the
// currently persisted allocations.
type MatrixLine struct {
	ProductID   int                `json:"product_id" example:"101"`
	ProductName string             `json:"product_name" example:"Cement OPC 53"`
	QtyRequest  float64            `json:"qty_request" example:"100"`
	UomName     string             `json:"uom_name" example:"Bag"`
	Quotes      map[int]QuoteCell  `json:"quotes"`
	Allocations []AllocationRecord `json:"allocations"`
}

// MatrixData is the full payload the matrix endpoint returns and the editor
// session works on.
type MatrixData struct {
	ID              int            `json:"id" example:"1"`
	Name            string         `json:"name" example:"PRQ-4F2A91C3"`
	SplitByVendor   bool           `json:"split_by_vendor" example:"false"`
	CompanyCurrency string         `json:"company_currency" example:"INR"`
	Vendors         []MatrixVendor `json:"vendors"`
	Lines           []MatrixLine   `json:"lines"`
}

type PurchaseOrder struct {
	ID        int       `json:"id" example:"1"`
	RequestID int       `json:"request_id" example:"1"`
	VendorID  int       `json:"vendor_id" example:"1"`
	Origin    string    `json:"origin" example:"PRQ-4F2A91C3"`
	IsFinal   bool      `json:"is_final" example:"true"`
	Status    string    `json:"status" example:"draft"`
	Currency  string    `json:"currency" example:"INR"`
	CreatedAt time.Time `json:"created_at" example:"2024-01-15T10:30:00Z"`
}

type PurchaseOrderLine struct {
	ID          int       `json:"id" example:"1"`
	OrderID     int       `json:"order_id" example:"1"`
	ProductID   int       `json:"product_id" example:"101"`
	ProductName string    `json:"product_name" example:"Cement OPC 53"`
	Qty         float64   `json:"qty" example:"60"`
	PriceUnit   float64   `json:"price_unit" example:"350.50"`
	DatePlanned time.Time `json:"date_planned"`
}

// SaveAllocationsRequest is the body of the allocation save endpoint: the
// operator's live cell edits, not yet balanced against the requested
// quantities.
type SaveAllocationsRequest struct {
	Entries []AllocationEdit `json:"entries"`
}

type AllocationEdit struct {
	ProductID int     `json:"product_id" binding:"required" example:"101"`
	VendorID  int     `json:"vendor_id" binding:"required" example:"1"`
	Qty       float64 `json:"qty" example:"60"`
	Price     float64 `json:"price" example:"350.50"`
}

type SplitModeRequest struct {
	Enabled bool `json:"enabled" example:"true"`
}

type CreateRequestBody struct {
	SaleOrderID int    `json:"sale_order_id" binding:"required" example:"12"`
	Note        string `json:"note" example:""`
}

type SelectVendorsBody struct {
	VendorIDs []int `json:"vendor_ids" binding:"required" example:"1,2"`
}
