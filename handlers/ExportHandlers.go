package handlers

import (
	"backend/repository"
	"backend/utils"
	"database/sql"
	"encoding/csv"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ExportMatrixXLSX exports the vendor comparison matrix as an Excel workbook.
// One row per product, one quote/allocation column pair per vendor.
// @Summary Export comparison matrix
// @Description Downloads the comparison matrix as an XLSX workbook. Requires Authorization header.
// @Tags Export
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path int true "Request ID"
// @Success 200 {file} file "XLSX file"
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/purchase_request/{id}/export_matrix [get]
func ExportMatrixXLSX(db *sql.DB, repo *repository.RequestRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, _, ok := requireSession(c, db); !ok {
			return
		}
		requestID, ok := requestIDParam(c)
		if !ok {
			return
		}

		ctx, cancel := utils.GetSlowQueryContext(c.Request.Context())
		defer cancel()

		data, err := repo.FetchMatrix(ctx, requestID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch matrix data", "details": err.Error()})
			return
		}

		titleCaser := cases.Title(language.Und)

		f := excelize.NewFile()
		sheet := "Comparison"
		index, err := f.NewSheet(sheet)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create sheet"})
			return
		}
		f.SetActiveSheet(index)
		f.DeleteSheet("Sheet1")

		// Summary block
		f.SetCellValue(sheet, "A1", titleCaser.String("purchase request"))
		f.SetCellValue(sheet, "B1", data.Name)
		mode := "single vendor"
		if data.SplitByVendor {
			mode = "split by vendor"
		}
		f.SetCellValue(sheet, "A2", titleCaser.String("allocation mode"))
		f.SetCellValue(sheet, "B2", titleCaser.String(mode))
		f.SetCellValue(sheet, "A3", titleCaser.String("currency"))
		f.SetCellValue(sheet, "B3", data.CompanyCurrency)

		// Header row: base columns, then three columns per vendor.
		const headerRow = 5
		baseHeaders := []string{"product", "requested qty", "uom"}
		for i, h := range baseHeaders {
			cell, _ := excelize.CoordinatesToCellName(i+1, headerRow)
			f.SetCellValue(sheet, cell, titleCaser.String(h))
		}
		vendorCol := map[int]int{}
		col := len(baseHeaders) + 1
		for _, v := range data.Vendors {
			vendorCol[v.ID] = col
			for i, h := range []string{"unit price", "allocated qty", "allocated price"} {
				cell, _ := excelize.CoordinatesToCellName(col+i, headerRow)
				f.SetCellValue(sheet, cell, v.Name+" - "+titleCaser.String(h))
			}
			col += 3
		}

		// Data rows
		row := headerRow + 1
		for _, line := range data.Lines {
			cellA, _ := excelize.CoordinatesToCellName(1, row)
			cellB, _ := excelize.CoordinatesToCellName(2, row)
			cellC, _ := excelize.CoordinatesToCellName(3, row)
			f.SetCellValue(sheet, cellA, line.ProductName)
			f.SetCellValue(sheet, cellB, line.QtyRequest)
			f.SetCellValue(sheet, cellC, line.UomName)

			allocByVendor := map[int]struct{ qty, price float64 }{}
			for _, rec := range line.Allocations {
				allocByVendor[rec.VendorID] = struct{ qty, price float64 }{rec.QtyAlloc, rec.PriceUnitAlloc}
			}

			for _, v := range data.Vendors {
				base := vendorCol[v.ID]
				if quote, ok := line.Quotes[v.ID]; ok && quote.NormalizedPriceUnit > 0 {
					cell, _ := excelize.CoordinatesToCellName(base, row)
					f.SetCellValue(sheet, cell, quote.NormalizedPriceUnit)
				}
				if alloc, ok := allocByVendor[v.ID]; ok {
					qtyCell, _ := excelize.CoordinatesToCellName(base+1, row)
					priceCell, _ := excelize.CoordinatesToCellName(base+2, row)
					f.SetCellValue(sheet, qtyCell, alloc.qty)
					f.SetCellValue(sheet, priceCell, alloc.price)
				}
			}
			row++
		}

		lastCol, _ := excelize.ColumnNumberToName(col - 1)
		f.SetColWidth(sheet, "A", "A", 30)
		f.SetColWidth(sheet, "B", lastCol, 16)

		filename := fmt.Sprintf("%s_matrix.xlsx", data.Name)
		escaped := url.PathEscape(filename)
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"; filename*=UTF-8''%s", filename, escaped))

		if err := f.Write(c.Writer); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to write workbook"})
			return
		}
	}
}

// ExportAllocationsCSV exports the saved allocations of a request as CSV.
// @Summary Export allocations CSV
// @Tags Export
// @Produce text/csv
// @Param id path int true "Request ID"
// @Success 200 {file} file "CSV file"
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/purchase_request/{id}/export_allocations [get]
func ExportAllocationsCSV(db *sql.DB, repo *repository.RequestRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, _, ok := requireSession(c, db); !ok {
			return
		}
		requestID, ok := requestIDParam(c)
		if !ok {
			return
		}

		ctx, cancel := utils.GetSlowQueryContext(c.Request.Context())
		defer cancel()

		data, err := repo.FetchMatrix(ctx, requestID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch matrix data", "details": err.Error()})
			return
		}

		vendorNames := map[int]string{}
		for _, v := range data.Vendors {
			vendorNames[v.ID] = v.Name
		}

		c.Header("Content-Type", "text/csv")
		c.Header("Content-Disposition", "attachment;filename=allocations_export.csv")

		writer := csv.NewWriter(c.Writer)
		defer writer.Flush()

		header := []string{"Product", "Vendor", "Quantity", "UnitPrice"}
		if err := writer.Write(header); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error writing CSV header"})
			return
		}

		for _, line := range data.Lines {
			for _, rec := range line.Allocations {
				row := []string{
					line.ProductName,
					vendorNames[rec.VendorID],
					strconv.FormatFloat(rec.QtyAlloc, 'f', -1, 64),
					strconv.FormatFloat(rec.PriceUnitAlloc, 'f', -1, 64),
				}
				if err := writer.Write(row); err != nil {
					c.JSON(http.StatusInternalServerError, gin.H{"error": "Error writing CSV row"})
					return
				}
			}
		}
	}
}
