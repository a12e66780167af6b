package reports

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/pos_backend/models"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Sheet1"

// ExcelExporter is a row that knows its own cell values in heading order.
type ExcelExporter interface {
	GetCellValues() []interface{}
}

// writeSheet writes headings on row 1 and one row per exporter below.
func writeSheet(w io.Writer, headings []string, data []ExcelExporter) error {
	f := excelize.NewFile()
	defer f.Close()

	for i, h := range headings {
		cellName, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, cellName, h); err != nil {
			return err
		}
	}
	for r, d := range data {
		for c, value := range d.GetCellValues() {
			cellName, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheetName, cellName, value); err != nil {
				return err
			}
		}
	}
	return f.Write(w)
}

type productExportRow struct {
	product  *models.Product
	category string
	unit     string
}

func (r productExportRow) GetCellValues() []interface{} {
	p := r.product
	vatInclusive := "Yes"
	if !p.VatInclusive() {
		vatInclusive = "No"
	}
	return []interface{}{
		p.Code, p.Barcode, p.Name, r.category, p.Brand, r.unit,
		p.SalesPrice.String(), p.PurchasePrice.String(), p.VatRate.String(), vatInclusive, p.Stock.String(),
	}
}

// ExportProducts writes the catalog in the same layout ImportProductsFromXlsx reads.
func ExportProducts(ctx context.Context, w io.Writer) error {
	products, err := models.ListProducts(ctx, models.ProductFilter{})
	if err != nil {
		return err
	}
	categories, err := models.ListProductCategories(ctx)
	if err != nil {
		return err
	}
	units, err := models.ListProductUnits(ctx)
	if err != nil {
		return err
	}
	categoryNames := make(map[int]string, len(categories))
	for _, c := range categories {
		categoryNames[c.ID] = c.Name
	}
	unitNames := make(map[int]string, len(units))
	for _, u := range units {
		unitNames[u.ID] = u.Name
	}
	data := make([]ExcelExporter, 0, len(products))
	for _, p := range products {
		data = append(data, productExportRow{product: p, category: categoryNames[p.CategoryId], unit: unitNames[p.UnitId]})
	}
	return writeSheet(w, models.ProductSheetHeadings, data)
}

type balanceSheetExportRow struct {
	row *BalanceSheetRow
}

func (r balanceSheetExportRow) GetCellValues() []interface{} {
	indent := strings.Repeat("  ", r.row.Level-1)
	return []interface{}{r.row.Code, indent + r.row.Name, string(r.row.SystemLink), r.row.OwnBalance.StringFixed(2), r.row.Balance.StringFixed(2)}
}

// ExportBalanceSheet writes the flattened balance sheet with a total row.
func ExportBalanceSheet(ctx context.Context, w io.Writer, startDate time.Time, endDate time.Time) error {
	report, err := GetBalanceSheetReport(ctx, startDate, endDate)
	if err != nil {
		return err
	}
	data := make([]ExcelExporter, 0, len(report.Rows)+1)
	for _, r := range report.Rows {
		data = append(data, balanceSheetExportRow{row: r})
	}
	data = append(data, totalRow{label: fmt.Sprintf("Total %s", report.EndDate.Format("2006-01-02")), value: report.Total.StringFixed(2)})
	return writeSheet(w, []string{"Code", "Account", "Link", "Own", "Balance"}, data)
}

type totalRow struct {
	label string
	value string
}

func (r totalRow) GetCellValues() []interface{} {
	return []interface{}{"", r.label, "", "", r.value}
}
