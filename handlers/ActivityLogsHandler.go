package handlers

import (
	"backend/models"
	"backend/storage"
	"database/sql"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

func saveActivityLog(entry *models.ActivityLog) error {
	return storage.SaveActivityLog(entry)
}

// GetActivityLogs returns the activity trail of a purchase request.
// @Summary Get activity logs
// @Description Most recent first. Requires Authorization header.
// @Tags ActivityLogs
// @Produce json
// @Param id path int true "Request ID"
// @Param limit query int false "Max rows (default 50)"
// @Success 200 {array} models.ActivityLog
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/purchase_request/{id}/activity_logs [get]
func GetActivityLogs(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, _, ok := requireSession(c, db); !ok {
			return
		}
		requestID, ok := requestIDParam(c)
		if !ok {
			return
		}

		limit := 50
		if raw := c.Query("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed <= 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
				return
			}
			limit = parsed
		}

		logs, err := storage.GetActivityLogs(requestID, limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch activity logs", "details": err.Error()})
			return
		}
		c.JSON(http.StatusOK, logs)
	}
}
