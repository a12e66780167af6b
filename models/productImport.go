package models

import (
	"context"
	"fmt"
	"io"
	"strings"

	"bitbucket.org/mmdatafocus/pos_backend/config"
	"bitbucket.org/mmdatafocus/pos_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// ProductSheetHeadings is the column layout shared by product export and import.
var ProductSheetHeadings = []string{
	"Code", "Barcode", "Name", "Category", "Brand", "Unit",
	"SalesPrice", "PurchasePrice", "VatRate", "VatInclusive", "OpeningQty",
}

const productSheet = "Sheet1"

type productImportRow struct {
	Code          string
	Barcode       string
	Name          string
	CategoryName  string
	Brand         string
	UnitName      string
	SalesPrice    decimal.Decimal
	PurchasePrice decimal.Decimal
	VatRate       decimal.Decimal
	VatInclusive  bool
	OpeningQty    decimal.Decimal
}

func cell(row []string, i int) string {
	if i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}

func parseDecimalCell(row []string, i int, rowNo int) (decimal.Decimal, error) {
	v := cell(row, i)
	if v == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, utils.NewValidationError(ProductSheetHeadings[i], "row %d: could not parse %q", rowNo, v)
	}
	return d, nil
}

func populateImportRow(row []string, rowNo int) (*productImportRow, error) {
	r := &productImportRow{
		Code:         cell(row, 0),
		Barcode:      cell(row, 1),
		Name:         cell(row, 2),
		CategoryName: cell(row, 3),
		Brand:        cell(row, 4),
		UnitName:     cell(row, 5),
		VatInclusive: true,
	}
	if r.Code == "" || r.Name == "" {
		return nil, utils.NewValidationError("Code", "row %d: code and name are required", rowNo)
	}
	var err error
	if r.SalesPrice, err = parseDecimalCell(row, 6, rowNo); err != nil {
		return nil, err
	}
	if r.PurchasePrice, err = parseDecimalCell(row, 7, rowNo); err != nil {
		return nil, err
	}
	if r.VatRate, err = parseDecimalCell(row, 8, rowNo); err != nil {
		return nil, err
	}
	switch strings.ToLower(cell(row, 9)) {
	case "no", "false", "0", "n":
		r.VatInclusive = false
	}
	if r.OpeningQty, err = parseDecimalCell(row, 10, rowNo); err != nil {
		return nil, err
	}
	if r.SalesPrice.IsNegative() || r.PurchasePrice.IsNegative() || r.OpeningQty.IsNegative() {
		return nil, utils.NewValidationError("SalesPrice", "row %d: amounts must not be negative", rowNo)
	}
	return r, nil
}

// ImportProductsFromXlsx creates one product per row of the first sheet, all or nothing.
// Categories and units are created by name when missing; opening quantities land on the primary location.
func ImportProductsFromXlsx(ctx context.Context, reader io.Reader) (int, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return 0, utils.NewValidationError("file", "unable to open Excel file: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return 0, fmt.Errorf("unable to read sheet: %w", err)
	}
	if len(rows) < 2 {
		return 0, utils.NewValidationError("file", "no product rows")
	}

	parsed := make([]*productImportRow, 0, len(rows)-1)
	codes := make(map[string]int)
	for idx, row := range rows[1:] {
		rowNo := idx + 2
		r, err := populateImportRow(row, rowNo)
		if err != nil {
			return 0, err
		}
		if first, ok := codes[r.Code]; ok {
			return 0, utils.NewValidationError("Code", "row %d: code %s repeats row %d", rowNo, r.Code, first)
		}
		codes[r.Code] = rowNo
		parsed = append(parsed, r)
	}

	db := config.GetDB()
	location, err := GetPrimaryLocation(ctx)
	if err != nil {
		return 0, err
	}
	var created []int
	err = RunUnitOfWork(ctx, db, func(uow *UnitOfWork) error {
		var deltas []stockDelta
		for i, r := range parsed {
			rowNo := i + 2
			count, err := utils.ResourceCountWhereTx[Product](ctx, uow.Tx(), "code = ?", r.Code)
			if err != nil {
				return err
			}
			if count > 0 {
				return utils.NewValidationError("Code", "row %d: product code %s already exists", rowNo, r.Code)
			}
			var product Product
			if err := uow.Step(fmt.Sprintf("row %d", rowNo), func(tx *gorm.DB) error {
				categoryId, err := findOrCreateCategory(ctx, uow, r.CategoryName)
				if err != nil {
					return err
				}
				unitId, err := findOrCreateUnit(ctx, uow, r.UnitName)
				if err != nil {
					return err
				}
				vatInclusive := r.VatInclusive
				product = Product{
					Code:           r.Code,
					Barcode:        r.Barcode,
					Name:           r.Name,
					CategoryId:     categoryId,
					Brand:          r.Brand,
					UnitId:         unitId,
					SalesPrice:     r.SalesPrice,
					PurchasePrice:  r.PurchasePrice,
					VatRate:        r.VatRate,
					IsVatInclusive: &vatInclusive,
					IsActive:       utils.NewTrue(),
				}
				return tx.WithContext(ctx).Omit("Stocks").Create(&product).Error
			}); err != nil {
				return err
			}
			created = append(created, product.ID)
			if r.OpeningQty.IsPositive() {
				deltas = append(deltas, stockDelta{ProductId: product.ID, LocationId: location.ID, Qty: r.OpeningQty})
			}
		}
		if err := uow.Step("stock", func(tx *gorm.DB) error {
			return applyStockDeltas(ctx, tx, deltas)
		}); err != nil {
			return err
		}
		uow.AfterCommit(func() { invalidate(productCacheIds(created)) })
		return nil
	})
	if err != nil {
		config.LogError(config.GetLogger(), "Product", "ImportProductsFromXlsx", "import", len(parsed), err)
		return 0, err
	}
	return len(created), nil
}
