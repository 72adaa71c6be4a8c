package handlers

import (
	"backend/matrix"
	"backend/models"
	"backend/repository"
	"backend/storage"
	"backend/utils"
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// GetMatrixData returns the vendor comparison matrix of a request.
// @Summary Get comparison matrix
// @Description Returns vendors, lines with quotes per vendor and current allocations, and the split flag. Requires Authorization header.
// @Tags Matrix
// @Produce json
// @Param id path int true "Request ID"
// @Success 200 {object} models.MatrixData
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/purchase_request/{id}/matrix [get]
func GetMatrixData(db *sql.DB, repo *repository.RequestRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.GetHeader("Authorization")
		if sessionID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "session-id header is required"})
			return
		}
		if _, _, err := storage.GetSessionDetails(db, sessionID); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid session", "details": err.Error()})
			return
		}

		requestID, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request id"})
			return
		}

		ctx, cancel := utils.GetDefaultQueryContext(c.Request.Context())
		defer cancel()

		data, err := repo.FetchMatrix(ctx, requestID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load matrix", "details": err.Error()})
			return
		}
		c.JSON(http.StatusOK, data)
	}
}

// SaveAllocationsHandler applies the operator's live cell edits and persists
// the reconciled allocation payload.
// @Summary Save allocations
// @Description Opens an editing session, applies the submitted quantity/price edits under the current mode's rules, reconciles every line into a complete payload and persists it. Requires Authorization header.
// @Tags Matrix
// @Accept json
// @Produce json
// @Param id path int true "Request ID"
// @Param body body models.SaveAllocationsRequest true "Cell edits"
// @Success 200 {object} models.MatrixData
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 422 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/purchase_request/{id}/allocations [post]
func SaveAllocationsHandler(db *sql.DB, repo *repository.RequestRepository, bus *matrix.Bus) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.GetHeader("Authorization")
		if sessionID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "session-id header is required"})
			return
		}
		session, userName, err := storage.GetSessionDetails(db, sessionID)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid session", "details": err.Error()})
			return
		}

		requestID, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request id"})
			return
		}

		var body models.SaveAllocationsRequest
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON input", "details": err.Error()})
			return
		}

		notifier := &matrixNotifier{db: db, userID: session.UserID, requestID: requestID}
		editor := matrix.NewEditor(repo, notifier, bus, requestID)
		defer editor.Close()

		ctx := c.Request.Context()
		if err := editor.Load(ctx); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load matrix", "details": err.Error()})
			return
		}

		for _, edit := range body.Entries {
			if edit.Price > 0 {
				editor.SetPrice(edit.ProductID, edit.VendorID, edit.Price)
			}
			editor.SetQuantity(edit.ProductID, edit.VendorID, edit.Qty)
		}

		if err := editor.Save(ctx); err != nil {
			// Local edits are preserved on the client; a rejected payload is
			// the operator's to fix, not a server fault.
			status := http.StatusInternalServerError
			if errors.Is(err, matrix.ErrSaveFailed) {
				status = http.StatusUnprocessableEntity
			}
			c.JSON(status, gin.H{"error": "Failed to save allocations", "details": err.Error()})
			return
		}

		LogRequestActivity(session, userName, "save_allocations", "Allocations saved", requestID)
		c.JSON(http.StatusOK, editor.Data())
	}
}

// SetSplitModeHandler toggles the split-by-vendor flag.
// @Summary Toggle split mode
// @Description Persists the split-by-vendor flag. On failure the stored flag keeps its previous value. Requires Authorization header.
// @Tags Matrix
// @Accept json
// @Produce json
// @Param id path int true "Request ID"
// @Param body body models.SplitModeRequest true "Flag"
// @Success 200 {object} utils.Response
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/purchase_request/{id}/split_mode [put]
func SetSplitModeHandler(db *sql.DB, repo *repository.RequestRepository, bus *matrix.Bus) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.GetHeader("Authorization")
		if sessionID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "session-id header is required"})
			return
		}
		session, userName, err := storage.GetSessionDetails(db, sessionID)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid session", "details": err.Error()})
			return
		}

		requestID, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request id"})
			return
		}

		var body models.SplitModeRequest
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON input", "details": err.Error()})
			return
		}

		notifier := &matrixNotifier{db: db, userID: session.UserID, requestID: requestID}
		editor := matrix.NewEditor(repo, notifier, bus, requestID)
		defer editor.Close()

		ctx := c.Request.Context()
		if err := editor.Load(ctx); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load matrix", "details": err.Error()})
			return
		}
		if err := editor.ToggleSplit(ctx, body.Enabled); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update mode", "details": err.Error()})
			return
		}

		LogRequestActivity(session, userName, "toggle_split_mode", "Allocation mode updated", requestID)
		c.JSON(http.StatusOK, gin.H{"message": "Mode updated", "split_by_vendor": body.Enabled})
	}
}
