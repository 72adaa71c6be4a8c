package handlers

import (
	"backend/models"
	"backend/repository"
	"backend/services"
	"backend/storage"
	"database/sql"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

func requireSession(c *gin.Context, db *sql.DB) (*models.Session, string, bool) {
	sessionID := c.GetHeader("Authorization")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session-id header is required"})
		return nil, "", false
	}
	session, userName, err := storage.GetSessionDetails(db, sessionID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid session", "details": err.Error()})
		return nil, "", false
	}
	return session, userName, true
}

func requestIDParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request id"})
		return 0, false
	}
	return id, true
}

// CreateRequest creates a purchase request from a sales order.
// @Summary Create purchase request
// @Description Copies the sales order lines into a new purchase request. One request per sales order. Requires Authorization header.
// @Tags Requests
// @Accept json
// @Produce json
// @Param body body models.CreateRequestBody true "Sales order"
// @Success 201 {object} models.PurchaseRequest
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/create_purchase_request [post]
func CreateRequest(db *sql.DB, repo *repository.RequestRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, userName, ok := requireSession(c, db)
		if !ok {
			return
		}

		var body models.CreateRequestBody
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON input", "details": err.Error()})
			return
		}

		req, err := repo.CreateRequestFromOrder(c.Request.Context(), body.SaleOrderID, body.Note)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to create purchase request", "details": err.Error()})
			return
		}

		LogRequestActivity(session, userName, "create", "Purchase request created", req.ID)
		c.JSON(http.StatusCreated, req)
	}
}

// GetRequest returns one purchase request.
// @Summary Get purchase request
// @Tags Requests
// @Produce json
// @Param id path int true "Request ID"
// @Success 200 {object} models.PurchaseRequest
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/purchase_request/{id} [get]
func GetRequest(db *sql.DB, repo *repository.RequestRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, _, ok := requireSession(c, db); !ok {
			return
		}
		requestID, ok := requestIDParam(c)
		if !ok {
			return
		}
		req, err := repo.GetRequest(c.Request.Context(), requestID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Purchase request not found", "details": err.Error()})
			return
		}
		c.JSON(http.StatusOK, req)
	}
}

// SelectVendors sets the vendor list of a request.
// @Summary Select vendors
// @Tags Requests
// @Accept json
// @Produce json
// @Param id path int true "Request ID"
// @Param body body models.SelectVendorsBody true "Vendor IDs"
// @Success 200 {object} utils.Response
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /api/purchase_request/{id}/select_vendors [post]
func SelectVendors(db *sql.DB, repo *repository.RequestRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, userName, ok := requireSession(c, db)
		if !ok {
			return
		}
		requestID, ok := requestIDParam(c)
		if !ok {
			return
		}

		var body models.SelectVendorsBody
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON input", "details": err.Error()})
			return
		}
		if err := repo.SelectVendors(c.Request.Context(), requestID, body.VendorIDs); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to select vendors", "details": err.Error()})
			return
		}

		LogRequestActivity(session, userName, "select_vendors", "Vendors selected", requestID)
		c.JSON(http.StatusOK, gin.H{"message": "Vendors selected"})
	}
}

// CreateRFQs creates one draft RFQ per selected vendor.
// @Summary Create RFQs
// @Tags Requests
// @Produce json
// @Param id path int true "Request ID"
// @Success 200 {object} utils.Response
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /api/purchase_request/{id}/create_rfqs [post]
func CreateRFQs(db *sql.DB, repo *repository.RequestRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, userName, ok := requireSession(c, db)
		if !ok {
			return
		}
		requestID, ok := requestIDParam(c)
		if !ok {
			return
		}

		count, err := repo.CreateRFQs(c.Request.Context(), requestID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to create RFQs", "details": err.Error()})
			return
		}

		LogRequestActivity(session, userName, "create_rfqs", "RFQs created", requestID)
		c.JSON(http.StatusOK, gin.H{"message": "RFQs created", "count": count})
	}
}

// SyncQuotes upserts quote lines from the request's RFQs.
// @Summary Sync quotes
// @Tags Requests
// @Produce json
// @Param id path int true "Request ID"
// @Success 200 {object} utils.Response
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /api/purchase_request/{id}/sync_quotes [post]
func SyncQuotes(db *sql.DB, repo *repository.RequestRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, userName, ok := requireSession(c, db)
		if !ok {
			return
		}
		requestID, ok := requestIDParam(c)
		if !ok {
			return
		}

		if err := repo.SyncQuotes(c.Request.Context(), requestID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to sync quotes", "details": err.Error()})
			return
		}

		LogRequestActivity(session, userName, "sync_quotes", "Quotations synced from RFQs", requestID)
		c.JSON(http.StatusOK, gin.H{"message": "Quotations synced"})
	}
}

// SubmitForApproval moves the request to waiting_approval and emails the
// approvers.
// @Summary Submit for approval
// @Tags Requests
// @Produce json
// @Param id path int true "Request ID"
// @Success 200 {object} utils.Response
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /api/purchase_request/{id}/submit [post]
func SubmitForApproval(db *sql.DB, repo *repository.RequestRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, userName, ok := requireSession(c, db)
		if !ok {
			return
		}
		requestID, ok := requestIDParam(c)
		if !ok {
			return
		}

		ctx := c.Request.Context()
		if err := repo.SubmitForApproval(ctx, requestID); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to submit for approval", "details": err.Error()})
			return
		}

		req, err := repo.GetRequest(ctx, requestID)
		if err == nil {
			go notifyApprovers(db, req)
		}

		LogRequestActivity(session, userName, "submit_approval", "Submitted for approval", requestID)
		c.JSON(http.StatusOK, gin.H{"message": "Submitted for approval"})
	}
}

// notifyApprovers emails and pushes to every purchase manager.
func notifyApprovers(db *sql.DB, req *models.PurchaseRequest) {
	rows, err := db.Query(`
		SELECT u.id, u.email FROM users u
		JOIN roles r ON u.role_id = r.role_id
		WHERE r.role_name = 'Purchase Manager' AND NOT u.suspended
	`)
	if err != nil {
		log.Printf("Error fetching approvers: %v", err)
		return
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var userID int
		var email string
		if err := rows.Scan(&userID, &email); err != nil {
			continue
		}
		emails = append(emails, email)
		SendNotificationHelper(db, userID, "Approval required",
			"Purchase request "+req.Name+" is waiting for approval",
			map[string]string{"request_id": strconv.Itoa(req.ID)}, "approve_request")
	}
	if len(emails) > 0 {
		if err := services.SendApprovalRequestEmail(emails, req.Name); err != nil {
			log.Printf("Error sending approval email: %v", err)
		}
	}
}

// ApproveRequest validates allocation totals and approves the request.
// @Summary Approve request
// @Tags Requests
// @Produce json
// @Param id path int true "Request ID"
// @Success 200 {object} utils.Response
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /api/purchase_request/{id}/approve [post]
func ApproveRequest(db *sql.DB, repo *repository.RequestRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, userName, ok := requireSession(c, db)
		if !ok {
			return
		}
		requestID, ok := requestIDParam(c)
		if !ok {
			return
		}

		if err := repo.Approve(c.Request.Context(), requestID); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to approve request", "details": err.Error()})
			return
		}

		LogRequestActivity(session, userName, "approve", "Allocations approved", requestID)
		c.JSON(http.StatusOK, gin.H{"message": "Request approved"})
	}
}

// CreateFinalPOs creates one final purchase order per allocated vendor.
// @Summary Create purchase orders
// @Tags Requests
// @Produce json
// @Param id path int true "Request ID"
// @Success 200 {object} utils.Response
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /api/purchase_request/{id}/create_pos [post]
func CreateFinalPOs(db *sql.DB, repo *repository.RequestRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, userName, ok := requireSession(c, db)
		if !ok {
			return
		}
		requestID, ok := requestIDParam(c)
		if !ok {
			return
		}

		orderIDs, err := repo.CreateFinalPOs(c.Request.Context(), requestID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to create purchase orders", "details": err.Error()})
			return
		}

		LogRequestActivity(session, userName, "create_pos", "Final purchase orders created", requestID)
		c.JSON(http.StatusOK, gin.H{"message": "Purchase orders created", "order_ids": orderIDs})
	}
}
