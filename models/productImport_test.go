package models_test

import (
	"bytes"
	"testing"

	"bitbucket.org/mmdatafocus/pos_backend/models"
	"github.com/xuri/excelize/v2"
)

func productWorkbook(t *testing.T, rows [][]string) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	all := append([][]string{models.ProductSheetHeadings}, rows...)
	for r, row := range all {
		for c, value := range row {
			cellName, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				t.Fatalf("cell name: %v", err)
			}
			if err := f.SetCellValue("Sheet1", cellName, value); err != nil {
				t.Fatalf("set cell: %v", err)
			}
		}
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return &buf
}

func TestImportProductsCreatesCatalogAndOpeningStock(t *testing.T) {
	ctx := setupTestDB(t)

	workbook := productWorkbook(t, [][]string{
		{"A-1", "4760001", "Tea", "Drinks", "Azerchay", "pcs", "3.50", "2.10", "18", "Yes", "12"},
		{"A-2", "", "Coffee", "Drinks", "", "pcs", "8", "5", "18", "No", ""},
	})
	count, err := models.ImportProductsFromXlsx(ctx, workbook)
	if err != nil {
		t.Fatalf("ImportProductsFromXlsx: %v", err)
	}
	if count != 2 {
		t.Fatalf("imported: got %d, want 2", count)
	}
	if n := countRows[models.ProductCategory](t, ctx); n != 1 {
		t.Fatalf("categories: got %d, want 1", n)
	}
	if n := countRows[models.ProductUnit](t, ctx); n != 1 {
		t.Fatalf("units: got %d, want 1", n)
	}

	tea, err := models.GetProductByCode(ctx, "4760001")
	if err != nil {
		t.Fatalf("GetProductByCode: %v", err)
	}
	if tea.Code != "A-1" || !tea.VatInclusive() {
		t.Fatalf("unexpected product %+v", tea)
	}
	assertDecimal(t, "sales price", tea.SalesPrice, "3.5")
	assertDecimal(t, "opening stock", stockAt(t, ctx, tea.ID, primaryLocationId(t, ctx)), "12")

	coffee, err := models.GetProductByCode(ctx, "A-2")
	if err != nil {
		t.Fatalf("GetProductByCode: %v", err)
	}
	if coffee.VatInclusive() {
		t.Fatalf("coffee should be VAT exclusive")
	}
	if coffee.CategoryId != tea.CategoryId {
		t.Fatalf("category reused: got %d, want %d", coffee.CategoryId, tea.CategoryId)
	}
	assertDecimal(t, "coffee stock", stockAt(t, ctx, coffee.ID, primaryLocationId(t, ctx)), "0")
}

func TestImportProductsRejectsRepeatedCodeInFile(t *testing.T) {
	ctx := setupTestDB(t)

	workbook := productWorkbook(t, [][]string{
		{"B-1", "", "Bread", "", "", "", "1", "0.5", "", "", "5"},
		{"B-1", "", "Bread again", "", "", "", "1", "0.5", "", "", "5"},
	})
	_, err := models.ImportProductsFromXlsx(ctx, workbook)
	requireValidationError(t, err, "Code")
	if n := countRows[models.Product](t, ctx); n != 0 {
		t.Fatalf("products: got %d, want 0", n)
	}
}

func TestImportProductsIsAllOrNothing(t *testing.T) {
	ctx := setupTestDB(t)
	createProduct(t, ctx, "C-2", "4", "2", "0")

	workbook := productWorkbook(t, [][]string{
		{"C-1", "", "Milk", "Dairy", "", "l", "2", "1", "", "", "7"},
		{"C-2", "", "Cheese", "Dairy", "", "kg", "9", "6", "", "", "3"},
	})
	_, err := models.ImportProductsFromXlsx(ctx, workbook)
	requireValidationError(t, err, "Code")

	if n := countRows[models.Product](t, ctx); n != 1 {
		t.Fatalf("products: got %d, want 1", n)
	}
	if n := countRows[models.ProductCategory](t, ctx); n != 0 {
		t.Fatalf("categories: got %d, want 0", n)
	}
	if n := countRows[models.ProductStock](t, ctx); n != 0 {
		t.Fatalf("stock rows: got %d, want 0", n)
	}
}

func TestImportProductsRejectsBadNumbers(t *testing.T) {
	ctx := setupTestDB(t)

	workbook := productWorkbook(t, [][]string{
		{"D-1", "", "Water", "", "", "", "cheap", "", "", "", ""},
	})
	_, err := models.ImportProductsFromXlsx(ctx, workbook)
	requireValidationError(t, err, "SalesPrice")
}
