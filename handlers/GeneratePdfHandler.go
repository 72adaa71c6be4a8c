package handlers

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"net/http"
	"strconv"
	"time"

	"backend/models"

	"github.com/gin-gonic/gin"
	"github.com/jung-kurt/gofpdf"
	"github.com/skip2/go-qrcode"
	"golang.org/x/image/font"
	"golang.org/x/image/font/inconsolata"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// addLabel adds text to an image at the specified position
func addLabel(img *image.RGBA, x, y int, label string, bold bool) {
	col := color.RGBA{0, 0, 0, 255}
	face := inconsolata.Regular8x16
	if bold {
		col = color.RGBA{30, 30, 30, 255}
		face = inconsolata.Bold8x16
	}

	point := fixed.Point26_6{
		X: fixed.Int26_6(x * 64),
		Y: fixed.Int26_6(y * 64),
	}

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  point,
	}
	d.DrawString(label)
}

type poQRData struct {
	OrderID  int    `json:"order_id"`
	Origin   string `json:"origin"`
	VendorID int    `json:"vendor_id"`
	Status   string `json:"status"`
}

// renderPOQRCode draws a QR code for the order with a caption strip below it.
func renderPOQRCode(order *models.PurchaseOrder, vendorName string) (*image.RGBA, error) {
	jsonData, err := json.Marshal(poQRData{
		OrderID:  order.ID,
		Origin:   order.Origin,
		VendorID: order.VendorID,
		Status:   order.Status,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal QR payload: %v", err)
	}

	qr, err := qrcode.New(string(jsonData), qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("QR code generation failed: %v", err)
	}
	qrImg := qr.Image(512)

	qrSize := qrImg.Bounds().Dy()
	padding := 30
	lineHeight := 28
	textAreaHeight := 3*lineHeight + padding
	totalHeight := qrSize + padding + textAreaHeight

	combinedImg := image.NewRGBA(image.Rect(0, 0, qrSize, totalHeight))
	draw.Draw(combinedImg, combinedImg.Bounds(), &image.Uniform{color.White}, image.Point{}, draw.Src)
	draw.Draw(combinedImg, image.Rect(0, 0, qrSize, qrSize), qrImg, image.Point{}, draw.Src)

	separatorY := qrSize + padding/2
	for x := 0; x < qrSize; x++ {
		combinedImg.Set(x, separatorY, color.RGBA{200, 200, 200, 255})
	}

	startY := qrSize + padding + lineHeight
	xPos := 20

	addLabel(combinedImg, xPos, startY, "Order ID:", true)
	addLabel(combinedImg, xPos+120, startY, strconv.Itoa(order.ID), false)

	addLabel(combinedImg, xPos, startY+lineHeight, "Origin:", true)
	addLabel(combinedImg, xPos+120, startY+lineHeight, order.Origin, false)

	vendorDisplay := vendorName
	if len(vendorDisplay) > 30 {
		vendorDisplay = vendorDisplay[:27] + "..."
	}
	addLabel(combinedImg, xPos, startY+2*lineHeight, "Vendor:", true)
	addLabel(combinedImg, xPos+120, startY+2*lineHeight, vendorDisplay, false)

	return combinedImg, nil
}

func fetchPurchaseOrder(db *sql.DB, orderID int) (*models.PurchaseOrder, string, string, error) {
	var order models.PurchaseOrder
	var vendorName, vendorAddress string
	err := db.QueryRow(`
		SELECT po.id, po.request_id, po.vendor_id, po.origin, po.is_final, po.status, po.currency, po.created_at,
		       v.name, COALESCE(v.address, '')
		FROM purchase_order po
		JOIN inv_vendors v ON v.vendor_id = po.vendor_id
		WHERE po.id = $1
	`, orderID).Scan(&order.ID, &order.RequestID, &order.VendorID, &order.Origin,
		&order.IsFinal, &order.Status, &order.Currency, &order.CreatedAt,
		&vendorName, &vendorAddress)
	if err != nil {
		return nil, "", "", err
	}
	return &order, vendorName, vendorAddress, nil
}

// GeneratePurchaseOrderPDF renders a purchase order as a PDF with an embedded
// QR code.
// @Summary Generate purchase order PDF
// @Tags Export
// @Param id path int true "Order ID"
// @Success 200 "PDF file"
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/purchase_order/{id}/pdf [get]
func GeneratePurchaseOrderPDF(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, _, ok := requireSession(c, db); !ok {
			return
		}
		orderID, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
			return
		}

		titleCaser := cases.Title(language.Und)

		order, vendorName, vendorAddress, err := fetchPurchaseOrder(db, orderID)
		if err != nil {
			if err == sql.ErrNoRows {
				c.JSON(http.StatusNotFound, gin.H{"error": "Purchase order not found"})
			} else {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			}
			return
		}

		rows, err := db.Query(`
			SELECT product_name, qty, price_unit, date_planned
			FROM purchase_order_line
			WHERE order_id = $1
			ORDER BY id
		`, orderID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch order lines", "details": err.Error()})
			return
		}
		defer rows.Close()

		type poLine struct {
			productName string
			qty         float64
			priceUnit   float64
			datePlanned time.Time
		}
		var lines []poLine
		var grandTotal float64
		for rows.Next() {
			var l poLine
			if err := rows.Scan(&l.productName, &l.qty, &l.priceUnit, &l.datePlanned); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Error scanning order line"})
				return
			}
			grandTotal += l.qty * l.priceUnit
			lines = append(lines, l)
		}

		pdf := gofpdf.New("P", "mm", "A4", "")
		pdf.AddPage()
		pdf.SetMargins(10, 10, 10)

		pdf.SetFont("Arial", "B", 18)
		pdf.Cell(190, 10, "PURCHASE ORDER")
		pdf.Ln(12)

		pdf.SetFont("Arial", "B", 11)
		pdf.Cell(95, 6, fmt.Sprintf("Order No: PO-%06d", order.ID))
		pdf.Cell(95, 6, fmt.Sprintf("Date: %s", order.CreatedAt.Format("02-Jan-2006")))
		pdf.Ln(6)
		pdf.SetFont("Arial", "", 10)
		pdf.Cell(95, 6, fmt.Sprintf("Source Request: %s", order.Origin))
		pdf.Cell(95, 6, fmt.Sprintf("Status: %s", titleCaser.String(order.Status)))
		pdf.Ln(10)

		pdf.SetFont("Arial", "B", 12)
		pdf.Cell(190, 8, "Vendor")
		pdf.Ln(8)
		pdf.SetFont("Arial", "", 10)
		pdf.Cell(190, 6, vendorName)
		pdf.Ln(6)
		if vendorAddress != "" {
			pdf.MultiCell(190, 6, vendorAddress, "", "L", false)
		}
		pdf.Ln(4)

		pdf.SetFont("Arial", "B", 11)
		pdf.SetFillColor(240, 240, 240)
		pdf.CellFormat(70, 8, "Product", "1", 0, "L", true, 0, "")
		pdf.CellFormat(25, 8, "Qty", "1", 0, "C", true, 0, "")
		pdf.CellFormat(30, 8, "Unit Price", "1", 0, "C", true, 0, "")
		pdf.CellFormat(30, 8, "Delivery", "1", 0, "C", true, 0, "")
		pdf.CellFormat(35, 8, "Subtotal", "1", 1, "C", true, 0, "")

		pdf.SetFont("Arial", "", 10)
		for _, l := range lines {
			pdf.CellFormat(70, 8, l.productName, "1", 0, "L", false, 0, "")
			pdf.CellFormat(25, 8, fmt.Sprintf("%.2f", l.qty), "1", 0, "C", false, 0, "")
			pdf.CellFormat(30, 8, fmt.Sprintf("%.2f", l.priceUnit), "1", 0, "C", false, 0, "")
			pdf.CellFormat(30, 8, l.datePlanned.Format("02-Jan-2006"), "1", 0, "C", false, 0, "")
			pdf.CellFormat(35, 8, fmt.Sprintf("%.2f", l.qty*l.priceUnit), "1", 1, "R", false, 0, "")
		}

		pdf.Ln(5)
		pdf.SetFont("Arial", "B", 11)
		pdf.Cell(155, 8, fmt.Sprintf("Total (%s)", order.Currency))
		pdf.CellFormat(35, 8, fmt.Sprintf("%.2f", grandTotal), "1", 1, "R", false, 0, "")

		// QR code block bottom-left
		qrImg, err := renderPOQRCode(order, vendorName)
		if err == nil {
			var buf bytes.Buffer
			if err := jpeg.Encode(&buf, qrImg, &jpeg.Options{Quality: 90}); err == nil {
				imgName := fmt.Sprintf("po_qr_%d", order.ID)
				pdf.RegisterImageOptionsReader(imgName, gofpdf.ImageOptions{ImageType: "JPG"}, &buf)
				pdf.ImageOptions(imgName, 10, pdf.GetY()+10, 45, 0, false, gofpdf.ImageOptions{ImageType: "JPG"}, 0, "")
			}
		}

		c.Header("Content-Type", "application/pdf")
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=purchase_order_%d.pdf", order.ID))
		if err := pdf.Output(c.Writer); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to write PDF"})
			return
		}
	}
}

// GeneratePOQRCodeJPEG returns the order QR code as a labelled JPEG.
// @Summary Generate purchase order QR code
// @Tags Export
// @Param id path int true "Order ID"
// @Success 200 {file} file "JPEG image"
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/purchase_order/{id}/qr [get]
func GeneratePOQRCodeJPEG(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, _, ok := requireSession(c, db); !ok {
			return
		}
		orderID, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
			return
		}

		order, vendorName, _, err := fetchPurchaseOrder(db, orderID)
		if err != nil {
			if err == sql.ErrNoRows {
				c.JSON(http.StatusNotFound, gin.H{"error": "Purchase order not found"})
			} else {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			}
			return
		}

		img, err := renderPOQRCode(order, vendorName)
		if err != nil {
			c.String(http.StatusInternalServerError, "QR code generation failed")
			return
		}

		c.Header("Content-Type", "image/jpeg")
		c.Header("Content-Disposition", fmt.Sprintf("inline; filename=po_qr_%d.jpg", order.ID))
		if err := jpeg.Encode(c.Writer, img, &jpeg.Options{Quality: 90}); err != nil {
			c.String(http.StatusInternalServerError, "Failed to encode image")
		}
	}
}
