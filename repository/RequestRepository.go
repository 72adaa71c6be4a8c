package repository

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	"backend/matrix"
	"backend/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// QtyTolerance is the slack allowed when comparing allocated totals against
// the requested quantity.
const QtyTolerance = 1e-6

// RequestRepository is the persistence side of the allocation matrix. It
// satisfies matrix.Store and publishes a matrix_update on every write so
// open editor sessions know their view is stale.
type RequestRepository struct {
	db  *sql.DB
	bus *matrix.Bus
}

func NewRequestRepository(db *sql.DB, bus *matrix.Bus) *RequestRepository {
	return &RequestRepository{db: db, bus: bus}
}

func (r *RequestRepository) publishUpdate() {
	if r.bus != nil {
		r.bus.Publish(matrix.UpdateChannel, "matrix_update")
	}
}

// GenerateRequestNumber returns a new request number like PRQ-4F2A91C3.
func GenerateRequestNumber() string {
	return "PRQ-" + strings.ToUpper(uuid.NewString()[:8])
}

// GetRequest fetches one purchase request row.
func (r *RequestRepository) GetRequest(ctx context.Context, requestID int) (*models.PurchaseRequest, error) {
	var req models.PurchaseRequest
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, sale_order_id, state, split_by_vendor, currency, COALESCE(note, ''), created_at, updated_at
		FROM so_purchase_request WHERE id = $1
	`, requestID).Scan(&req.ID, &req.Name, &req.SaleOrderID, &req.State, &req.SplitByVendor,
		&req.Currency, &req.Note, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("purchase request %d not found", requestID)
		}
		return nil, fmt.Errorf("failed to fetch purchase request: %v", err)
	}
	return &req, nil
}

// FetchMatrix assembles the full comparison-matrix payload: request header,
// vendor columns with planned date and payment term from their RFQs, and
// per-line quotes and persisted allocations. Safe to repeat.
func (r *RequestRepository) FetchMatrix(ctx context.Context, requestID int) (*models.MatrixData, error) {
	req, err := r.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	data := &models.MatrixData{
		ID:              req.ID,
		Name:            req.Name,
		SplitByVendor:   req.SplitByVendor,
		CompanyCurrency: req.Currency,
		Vendors:         []models.MatrixVendor{},
		Lines:           []models.MatrixLine{},
	}

	vendorRows, err := r.db.QueryContext(ctx, `
		SELECT v.vendor_id, v.name
		FROM so_request_vendor rv
		JOIN inv_vendors v ON v.vendor_id = rv.vendor_id
		WHERE rv.request_id = $1
		ORDER BY rv.position, v.vendor_id
	`, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch request vendors: %v", err)
	}
	defer vendorRows.Close()

	for vendorRows.Next() {
		var mv models.MatrixVendor
		if err := vendorRows.Scan(&mv.ID, &mv.Name); err != nil {
			return nil, err
		}

		var datePlanned sql.NullTime
		var paymentTerm sql.NullString
		err = r.db.QueryRowContext(ctx, `
			SELECT MIN(pol.date_planned), MIN(po.payment_term)
			FROM purchase_order po
			JOIN purchase_order_line pol ON pol.order_id = po.id
			WHERE po.request_id = $1 AND po.vendor_id = $2 AND po.is_final = false
		`, requestID, mv.ID).Scan(&datePlanned, &paymentTerm)
		if err != nil && err != sql.ErrNoRows {
			return nil, fmt.Errorf("failed to fetch RFQ terms for vendor %d: %v", mv.ID, err)
		}
		mv.DatePlanned = "No information available"
		if datePlanned.Valid {
			mv.DatePlanned = datePlanned.Time.Format("2006-01-02")
		}
		mv.PaymentTerm = "No information available"
		if paymentTerm.Valid && paymentTerm.String != "" {
			mv.PaymentTerm = paymentTerm.String
		}
		data.Vendors = append(data.Vendors, mv)
	}
	if err := vendorRows.Err(); err != nil {
		return nil, err
	}

	lineRows, err := r.db.QueryContext(ctx, `
		SELECT product_id, product_name, uom_name, qty_request
		FROM so_request_line WHERE request_id = $1 ORDER BY id
	`, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch request lines: %v", err)
	}
	defer lineRows.Close()

	for lineRows.Next() {
		line := models.MatrixLine{
			Quotes:      map[int]models.QuoteCell{},
			Allocations: []models.AllocationRecord{},
		}
		if err := lineRows.Scan(&line.ProductID, &line.ProductName, &line.UomName, &line.QtyRequest); err != nil {
			return nil, err
		}

		quoteRows, err := r.db.QueryContext(ctx, `
			SELECT vendor_id, price_unit_quote, currency, normalized_price_unit
			FROM so_quote_line WHERE request_id = $1 AND product_id = $2
		`, requestID, line.ProductID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch quotes: %v", err)
		}
		for quoteRows.Next() {
			var vendorID int
			var cell models.QuoteCell
			if err := quoteRows.Scan(&vendorID, &cell.PriceUnit, &cell.Currency, &cell.NormalizedPriceUnit); err != nil {
				quoteRows.Close()
				return nil, err
			}
			line.Quotes[vendorID] = cell
		}
		quoteRows.Close()

		allocRows, err := r.db.QueryContext(ctx, `
			SELECT vendor_id, qty_alloc, COALESCE(price_unit_alloc, 0), COALESCE(tax_ids, '{}')
			FROM so_allocation WHERE request_id = $1 AND product_id = $2 ORDER BY vendor_id
		`, requestID, line.ProductID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch allocations: %v", err)
		}
		for allocRows.Next() {
			rec := models.AllocationRecord{ProductID: line.ProductID, TaxIDs: []int{}}
			var taxIDs pq.Int64Array
			if err := allocRows.Scan(&rec.VendorID, &rec.QtyAlloc, &rec.PriceUnitAlloc, &taxIDs); err != nil {
				allocRows.Close()
				return nil, err
			}
			for _, id := range taxIDs {
				rec.TaxIDs = append(rec.TaxIDs, int(id))
			}
			line.Allocations = append(line.Allocations, rec)
		}
		allocRows.Close()

		data.Lines = append(data.Lines, line)
	}
	if err := lineRows.Err(); err != nil {
		return nil, err
	}

	return data, nil
}

// SaveAllocations replaces the allocation rows covered by the payload inside
// one transaction and validates that every line's total matches its
// requested quantity before committing. Rows with zero quantity are dropped,
// not stored.
func (r *RequestRepository) SaveAllocations(ctx context.Context, requestID int, records []models.AllocationRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	for _, rec := range records {
		_, err := tx.ExecContext(ctx, `
			DELETE FROM so_allocation WHERE request_id = $1 AND product_id = $2 AND vendor_id = $3
		`, requestID, rec.ProductID, rec.VendorID)
		if err != nil {
			return fmt.Errorf("failed to clear allocation: %v", err)
		}
		if rec.QtyAlloc <= 0 {
			continue
		}
		taxIDs := make(pq.Int64Array, 0, len(rec.TaxIDs))
		for _, id := range rec.TaxIDs {
			taxIDs = append(taxIDs, int64(id))
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO so_allocation (request_id, product_id, vendor_id, qty_alloc, price_unit_alloc, tax_ids, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, requestID, rec.ProductID, rec.VendorID, rec.QtyAlloc, rec.PriceUnitAlloc, taxIDs, time.Now())
		if err != nil {
			return fmt.Errorf("failed to insert allocation: %v", err)
		}
	}

	if err := validateAllocations(ctx, tx, requestID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit allocations: %v", err)
	}
	r.publishUpdate()
	return nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// validateAllocations checks that per-product allocated totals equal the
// requested quantity within QtyTolerance.
func validateAllocations(ctx context.Context, q queryer, requestID int) error {
	rows, err := q.QueryContext(ctx, `
		SELECT rl.product_name, rl.qty_request, COALESCE(SUM(a.qty_alloc), 0)
		FROM so_request_line rl
		LEFT JOIN so_allocation a ON a.request_id = rl.request_id AND a.product_id = rl.product_id
		WHERE rl.request_id = $1
		GROUP BY rl.product_name, rl.qty_request
	`, requestID)
	if err != nil {
		return fmt.Errorf("failed to validate allocations: %v", err)
	}
	defer rows.Close()

	for rows.Next() {
		var productName string
		var requested, allocated float64
		if err := rows.Scan(&productName, &requested, &allocated); err != nil {
			return err
		}
		if math.Abs(allocated-requested) > QtyTolerance {
			return fmt.Errorf("allocation error for product '%s': allocated quantity %.2f must equal requested quantity %.2f",
				productName, allocated, requested)
		}
	}
	return rows.Err()
}

// ValidateAllocations runs the totals check outside a save transaction.
func (r *RequestRepository) ValidateAllocations(ctx context.Context, requestID int) error {
	return validateAllocations(ctx, r.db, requestID)
}

// SetSplitMode persists the split flag. A failure leaves the stored flag
// untouched.
func (r *RequestRepository) SetSplitMode(ctx context.Context, requestID int, enabled bool) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE so_purchase_request SET split_by_vendor = $1, updated_at = $2 WHERE id = $3
	`, enabled, time.Now(), requestID)
	if err != nil {
		return fmt.Errorf("failed to update split mode: %v", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("purchase request %d not found", requestID)
	}
	r.publishUpdate()
	return nil
}

// CreateRequestFromOrder creates a purchase request from a sales order,
// copying its lines. Only one request may exist per sales order.
func (r *RequestRepository) CreateRequestFromOrder(ctx context.Context, saleOrderID int, note string) (*models.PurchaseRequest, error) {
	var existingID int
	err := r.db.QueryRowContext(ctx,
		`SELECT id FROM so_purchase_request WHERE sale_order_id = $1`, saleOrderID).Scan(&existingID)
	if err == nil {
		return nil, fmt.Errorf("a purchase request already exists for sales order %d", saleOrderID)
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to check existing request: %v", err)
	}

	var currency string
	err = r.db.QueryRowContext(ctx,
		`SELECT currency FROM sale_order WHERE id = $1`, saleOrderID).Scan(&currency)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("sales order %d not found", saleOrderID)
		}
		return nil, fmt.Errorf("failed to fetch sales order: %v", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	now := time.Now()
	req := &models.PurchaseRequest{
		Name:        GenerateRequestNumber(),
		SaleOrderID: saleOrderID,
		State:       models.RequestStateDraft,
		Currency:    currency,
		Note:        note,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO so_purchase_request (name, sale_order_id, state, split_by_vendor, currency, note, created_at, updated_at)
		VALUES ($1, $2, $3, false, $4, $5, $6, $7)
		RETURNING id
	`, req.Name, saleOrderID, req.State, currency, note, now, now).Scan(&req.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert purchase request: %v", err)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO so_request_line (request_id, product_id, product_name, uom_name, qty_request, description)
		SELECT $1, product_id, product_name, uom_name, qty, COALESCE(description, '')
		FROM sale_order_line WHERE order_id = $2 AND product_id IS NOT NULL
	`, req.ID, saleOrderID)
	if err != nil {
		return nil, fmt.Errorf("failed to copy order lines: %v", err)
	}
	copied, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if copied == 0 {
		return nil, fmt.Errorf("no lines in sales order %d to create request from", saleOrderID)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit request: %v", err)
	}
	return req, nil
}

// SelectVendors replaces the request's vendor list and moves the request to
// vendors_selected.
func (r *RequestRepository) SelectVendors(ctx context.Context, requestID int, vendorIDs []int) error {
	if len(vendorIDs) == 0 {
		return fmt.Errorf("please select at least one vendor")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM so_request_vendor WHERE request_id = $1`, requestID); err != nil {
		return fmt.Errorf("failed to clear request vendors: %v", err)
	}
	for position, vendorID := range vendorIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO so_request_vendor (request_id, vendor_id, position) VALUES ($1, $2, $3)
		`, requestID, vendorID, position); err != nil {
			return fmt.Errorf("failed to add vendor %d: %v", vendorID, err)
		}
	}
	if err := setState(ctx, tx, requestID, models.RequestStateVendorsSelected); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit vendor selection: %v", err)
	}
	r.publishUpdate()
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func setState(ctx context.Context, e execer, requestID int, state string) error {
	res, err := e.ExecContext(ctx, `
		UPDATE so_purchase_request SET state = $1, updated_at = $2 WHERE id = $3
	`, state, time.Now(), requestID)
	if err != nil {
		return fmt.Errorf("failed to update request state: %v", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("purchase request %d not found", requestID)
	}
	return nil
}

// CreateRFQs creates one zero-priced draft order per selected vendor with
// every request line, and moves the request to rfqs_created. Returns how
// many RFQs were created.
func (r *RequestRepository) CreateRFQs(ctx context.Context, requestID int) (int, error) {
	req, err := r.GetRequest(ctx, requestID)
	if err != nil {
		return 0, err
	}

	vendorRows, err := r.db.QueryContext(ctx, `
		SELECT vendor_id FROM so_request_vendor WHERE request_id = $1 ORDER BY position, vendor_id
	`, requestID)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch request vendors: %v", err)
	}
	var vendorIDs []int
	for vendorRows.Next() {
		var id int
		if err := vendorRows.Scan(&id); err != nil {
			vendorRows.Close()
			return 0, err
		}
		vendorIDs = append(vendorIDs, id)
	}
	vendorRows.Close()
	if err := vendorRows.Err(); err != nil {
		return 0, err
	}
	if len(vendorIDs) == 0 {
		return 0, fmt.Errorf("please select at least one vendor")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	now := time.Now()
	for _, vendorID := range vendorIDs {
		var orderID int
		err := tx.QueryRowContext(ctx, `
			INSERT INTO purchase_order (request_id, vendor_id, origin, is_final, status, currency, created_at)
			VALUES ($1, $2, $3, false, 'draft', $4, $5)
			RETURNING id
		`, requestID, vendorID, req.Name, req.Currency, now).Scan(&orderID)
		if err != nil {
			return 0, fmt.Errorf("failed to create RFQ for vendor %d: %v", vendorID, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO purchase_order_line (order_id, product_id, product_name, qty, price_unit, date_planned)
			SELECT $1, product_id, product_name, qty_request, 0, $2
			FROM so_request_line WHERE request_id = $3
		`, orderID, now, requestID)
		if err != nil {
			return 0, fmt.Errorf("failed to create RFQ lines: %v", err)
		}
	}
	if err := setState(ctx, tx, requestID, models.RequestStateRFQsCreated); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit RFQs: %v", err)
	}
	r.publishUpdate()
	return len(vendorIDs), nil
}

// SyncQuotes upserts quote lines from the request's RFQ lines, keyed by
// (request, vendor, product). The normalized price converts the RFQ price
// into the request currency using the currency_rates table; same-currency
// quotes pass through at rate 1.
func (r *RequestRepository) SyncQuotes(ctx context.Context, requestID int) error {
	req, err := r.GetRequest(ctx, requestID)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO so_quote_line
			(request_id, vendor_id, product_id, qty_quote, price_unit_quote, currency,
			 normalized_price_unit, validity_date, source_rfq_id, updated_at)
		SELECT po.request_id, po.vendor_id, pol.product_id, pol.qty, pol.price_unit, po.currency,
		       pol.price_unit * COALESCE(cr.rate, 1), po.created_at, po.id, NOW()
		FROM purchase_order po
		JOIN purchase_order_line pol ON pol.order_id = po.id
		LEFT JOIN currency_rates cr ON cr.from_currency = po.currency AND cr.to_currency = $2
		WHERE po.request_id = $1 AND po.is_final = false
		ON CONFLICT (request_id, vendor_id, product_id) DO UPDATE SET
			qty_quote = EXCLUDED.qty_quote,
			price_unit_quote = EXCLUDED.price_unit_quote,
			currency = EXCLUDED.currency,
			normalized_price_unit = EXCLUDED.normalized_price_unit,
			validity_date = EXCLUDED.validity_date,
			source_rfq_id = EXCLUDED.source_rfq_id,
			updated_at = NOW()
	`, requestID, req.Currency)
	if err != nil {
		return fmt.Errorf("failed to sync quotes: %v", err)
	}
	r.publishUpdate()
	return nil
}

// SubmitForApproval requires synced quotes before moving the request to
// waiting_approval.
func (r *RequestRepository) SubmitForApproval(ctx context.Context, requestID int) error {
	var quoteCount int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM so_quote_line WHERE request_id = $1`, requestID).Scan(&quoteCount)
	if err != nil {
		return fmt.Errorf("failed to count quote lines: %v", err)
	}
	if quoteCount == 0 {
		return fmt.Errorf("please sync quotations from RFQs before submitting for approval")
	}
	if err := setState(ctx, r.db, requestID, models.RequestStateWaitingApproval); err != nil {
		return err
	}
	r.publishUpdate()
	return nil
}

// Approve validates allocation totals and moves the request to approved.
func (r *RequestRepository) Approve(ctx context.Context, requestID int) error {
	if err := validateAllocations(ctx, r.db, requestID); err != nil {
		return err
	}
	if err := setState(ctx, r.db, requestID, models.RequestStateApproved); err != nil {
		return err
	}
	r.publishUpdate()
	return nil
}

// CreateFinalPOs groups the allocations by vendor and creates one final
// purchase order per vendor. An allocation without an explicit price falls
// back to the vendor's normalized quote price. Returns the new order IDs.
func (r *RequestRepository) CreateFinalPOs(ctx context.Context, requestID int) ([]int, error) {
	req, err := r.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.State != models.RequestStateApproved && req.State != models.RequestStateWaitingApproval {
		return nil, fmt.Errorf("allocations must be approved first")
	}
	if err := validateAllocations(ctx, r.db, requestID); err != nil {
		return nil, err
	}

	allocRows, err := r.db.QueryContext(ctx, `
		SELECT a.vendor_id, a.product_id, rl.product_name, a.qty_alloc,
		       CASE WHEN COALESCE(a.price_unit_alloc, 0) > 0 THEN a.price_unit_alloc
		            ELSE COALESCE(ql.normalized_price_unit, 0) END
		FROM so_allocation a
		JOIN so_request_line rl ON rl.request_id = a.request_id AND rl.product_id = a.product_id
		LEFT JOIN so_quote_line ql ON ql.request_id = a.request_id
			AND ql.vendor_id = a.vendor_id AND ql.product_id = a.product_id
		WHERE a.request_id = $1
		ORDER BY a.vendor_id, a.product_id
	`, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch allocations: %v", err)
	}
	defer allocRows.Close()

	type poLine struct {
		productID   int
		productName string
		qty         float64
		priceUnit   float64
	}
	linesByVendor := map[int][]poLine{}
	var vendorOrder []int
	for allocRows.Next() {
		var vendorID int
		var line poLine
		if err := allocRows.Scan(&vendorID, &line.productID, &line.productName, &line.qty, &line.priceUnit); err != nil {
			return nil, err
		}
		if _, seen := linesByVendor[vendorID]; !seen {
			vendorOrder = append(vendorOrder, vendorID)
		}
		linesByVendor[vendorID] = append(linesByVendor[vendorID], line)
	}
	if err := allocRows.Err(); err != nil {
		return nil, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	now := time.Now()
	var orderIDs []int
	for _, vendorID := range vendorOrder {
		var orderID int
		err := tx.QueryRowContext(ctx, `
			INSERT INTO purchase_order (request_id, vendor_id, origin, is_final, status, currency, created_at)
			VALUES ($1, $2, $3, true, 'draft', $4, $5)
			RETURNING id
		`, requestID, vendorID, req.Name, req.Currency, now).Scan(&orderID)
		if err != nil {
			return nil, fmt.Errorf("failed to create PO for vendor %d: %v", vendorID, err)
		}
		for _, line := range linesByVendor[vendorID] {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO purchase_order_line (order_id, product_id, product_name, qty, price_unit, date_planned)
				VALUES ($1, $2, $3, $4, $5, $6)
			`, orderID, line.productID, line.productName, line.qty, line.priceUnit, now)
			if err != nil {
				return nil, fmt.Errorf("failed to create PO line: %v", err)
			}
		}
		orderIDs = append(orderIDs, orderID)
	}
	if err := setState(ctx, tx, requestID, models.RequestStatePOCreated); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit purchase orders: %v", err)
	}
	r.publishUpdate()
	return orderIDs, nil
}
