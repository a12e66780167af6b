package models_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"bitbucket.org/mmdatafocus/pos_backend/config"
	"bitbucket.org/mmdatafocus/pos_backend/models"
	"bitbucket.org/mmdatafocus/pos_backend/utils"
	"github.com/shopspring/decimal"
)

// setupTestDB gives every test its own in-memory sqlite database with the schema migrated.
func setupTestDB(t *testing.T) context.Context {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	conn, err := config.OpenDatabase(config.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	config.SetDB(conn)
	if err := models.MigrateTable(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
		config.SetDB(nil)
	})
	return utils.SetUserNameInContext(context.Background(), "tester")
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, what string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(dec(want)) {
		t.Fatalf("%s: got %s, want %s", what, got.String(), want)
	}
}

func primaryLocationId(t *testing.T, ctx context.Context) int {
	t.Helper()
	location, err := models.GetPrimaryLocation(ctx)
	if err != nil {
		t.Fatalf("GetPrimaryLocation: %v", err)
	}
	return location.ID
}

// createProduct adds a product with openingQty at the primary location.
func createProduct(t *testing.T, ctx context.Context, code string, salesPrice string, purchasePrice string, openingQty string) *models.Product {
	t.Helper()
	input := &models.NewProduct{
		Code:          code,
		Name:          "Product " + code,
		SalesPrice:    dec(salesPrice),
		PurchasePrice: dec(purchasePrice),
	}
	if q := dec(openingQty); q.IsPositive() {
		input.OpeningStocks = []models.NewOpeningStock{{LocationId: primaryLocationId(t, ctx), Qty: q}}
	}
	product, err := models.CreateProduct(ctx, input)
	if err != nil {
		t.Fatalf("CreateProduct(%s): %v", code, err)
	}
	return product
}

func stockAt(t *testing.T, ctx context.Context, productId int, locationId int) decimal.Decimal {
	t.Helper()
	var row models.ProductStock
	result := config.GetDB().WithContext(ctx).
		Where("product_id = ? AND location_id = ?", productId, locationId).Limit(1).Find(&row)
	if result.Error != nil {
		t.Fatalf("read stock: %v", result.Error)
	}
	return row.Qty
}

func countRows[T any](t *testing.T, ctx context.Context) int64 {
	t.Helper()
	var count int64
	var model T
	if err := config.GetDB().WithContext(ctx).Model(&model).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return count
}

// ledgerNet is income minus expense over every ledger row matching the filter.
func ledgerNet(t *testing.T, ctx context.Context, filter models.TransactionFilter) decimal.Decimal {
	t.Helper()
	rows, err := models.ListTransactions(ctx, filter)
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	net := decimal.Zero
	for _, r := range rows {
		if r.Type == models.TransactionTypeIncome {
			net = net.Add(r.Amount)
		} else {
			net = net.Sub(r.Amount)
		}
	}
	return net
}

func requireValidationError(t *testing.T, err error, field string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected a validation error on %q, got nil", field)
	}
	var ve *utils.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected a validation error on %q, got %T: %v", field, err, err)
	}
	if field != "" && ve.Field != field {
		t.Fatalf("validation error field: got %q, want %q (%v)", ve.Field, field, err)
	}
}
