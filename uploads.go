package main

import (
	"bytes"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/pos_backend/models"
	"bitbucket.org/mmdatafocus/pos_backend/models/reports"
	"github.com/gin-gonic/gin"
)

const (
	xlsxMimeType   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	maxUploadBytes = 10 << 20
)

func sendWorkbook(c *gin.Context, filename string, buf *bytes.Buffer) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, xlsxMimeType, buf.Bytes())
}

func exportProductsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var buf bytes.Buffer
		if err := reports.ExportProducts(c.Request.Context(), &buf); err != nil {
			respondError(c, err)
			return
		}
		sendWorkbook(c, "products.xlsx", &buf)
	}
}

// importProductsHandler takes a multipart "file" field holding an .xlsx workbook.
func importProductsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)
		header, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
			return
		}
		if !strings.EqualFold(filepath.Ext(header.Filename), ".xlsx") {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file type: only .xlsx files are allowed"})
			return
		}
		file, err := header.Open()
		if err != nil {
			respondError(c, err)
			return
		}
		defer file.Close()

		count, err := models.ImportProductsFromXlsx(c.Request.Context(), file)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"imported": count})
	}
}

func exportBalanceSheetHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		start, ok := queryDate(c, "start_date", time.Time{})
		if !ok {
			return
		}
		end, ok := queryDate(c, "end_date", time.Now().UTC())
		if !ok {
			return
		}
		var buf bytes.Buffer
		if err := reports.ExportBalanceSheet(c.Request.Context(), &buf, start, endOfDay(end)); err != nil {
			respondError(c, err)
			return
		}
		sendWorkbook(c, "balance-sheet-"+end.Format("2006-01-02")+".xlsx", &buf)
	}
}
