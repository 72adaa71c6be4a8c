package handlers

import (
	"backend/models"
	"database/sql"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// CreateVendor creates a new vendor.
// @Summary Create vendor
// @Description Creates a new vendor. Request body: name, email, phone, address, status. Requires Authorization header.
// @Tags Vendors
// @Accept json
// @Produce json
// @Param body body models.Vendor true "Vendor data"
// @Success 201 {object} models.Vendor
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/create_vendor [post]
func CreateVendor(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, userName, ok := requireSession(c, db)
		if !ok {
			return
		}

		var vendor models.Vendor
		if err := c.ShouldBindJSON(&vendor); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON input", "details": err.Error()})
			return
		}

		vendor.CreatedAt = time.Now()
		vendor.UpdatedAt = time.Now()
		vendor.CreatedBy = userName
		vendor.UpdatedBy = userName
		if vendor.Status == "" {
			vendor.Status = "active"
		}

		query := `
			INSERT INTO inv_vendors (name, email, phone, address, status, created_at, updated_at, created_by, updated_by)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING vendor_id
		`
		err := db.QueryRow(query,
			vendor.Name,
			vendor.Email,
			vendor.Phone,
			vendor.Address,
			vendor.Status,
			vendor.CreatedAt,
			vendor.UpdatedAt,
			vendor.CreatedBy,
			vendor.UpdatedBy,
		).Scan(&vendor.VendorID)
		if err != nil {
			log.Printf("Error inserting vendor: %v\n", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to insert vendor", "details": err.Error()})
			return
		}

		c.JSON(http.StatusCreated, vendor)
	}
}

// GetAllVendors returns all vendors.
// @Summary Get all vendors
// @Description Returns every vendor ordered by name. Requires Authorization header.
// @Tags Vendors
// @Produce json
// @Success 200 {array} models.Vendor
// @Failure 401 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/vendors [get]
func GetAllVendors(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, _, ok := requireSession(c, db); !ok {
			return
		}

		rows, err := db.Query(`
			SELECT vendor_id, name, COALESCE(email, ''), COALESCE(phone, ''), COALESCE(address, ''),
			       COALESCE(status, 'active'), created_at, updated_at, COALESCE(created_by, ''), COALESCE(updated_by, '')
			FROM inv_vendors
			ORDER BY name
		`)
		if err != nil {
			log.Printf("Error fetching vendors: %v\n", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch vendors", "details": err.Error()})
			return
		}
		defer rows.Close()

		vendors := []models.Vendor{}
		for rows.Next() {
			var v models.Vendor
			if err := rows.Scan(&v.VendorID, &v.Name, &v.Email, &v.Phone, &v.Address,
				&v.Status, &v.CreatedAt, &v.UpdatedAt, &v.CreatedBy, &v.UpdatedBy); err != nil {
				log.Printf("Error scanning vendor: %v\n", err)
				continue
			}
			vendors = append(vendors, v)
		}
		c.JSON(http.StatusOK, vendors)
	}
}
