package models_test

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"bitbucket.org/mmdatafocus/pos_backend/models"
	"bitbucket.org/mmdatafocus/pos_backend/utils"
)

func cashSale(productId int, qty string, price string) *models.NewInvoice {
	return &models.NewInvoice{
		Type:          models.InvoiceTypeSale,
		PaymentMethod: models.PaymentMethodCash,
		Items:         []models.NewInvoiceItem{{ProductId: productId, Quantity: dec(qty), UnitPrice: dec(price)}},
	}
}

func TestCommitSaleMovesStockAndLedger(t *testing.T) {
	ctx := setupTestDB(t)
	product := createProduct(t, ctx, "P1", "5", "3", "10")
	locationId := primaryLocationId(t, ctx)

	sale, err := models.CreateInvoice(ctx, cashSale(product.ID, "3", "5"))
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}
	if sale.InvoiceNumber != "S-000001" {
		t.Fatalf("invoice number: got %s", sale.InvoiceNumber)
	}
	if sale.Status != models.InvoiceStatusPaid {
		t.Fatalf("status: got %s, want PAID", sale.Status)
	}
	assertDecimal(t, "total", sale.Total, "15")
	assertDecimal(t, "stock", stockAt(t, ctx, product.ID, locationId), "7")

	rows, err := models.ListTransactions(ctx, models.TransactionFilter{InvoiceId: sale.ID})
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("ledger rows: got %d, want 1", len(rows))
	}
	if rows[0].Type != models.TransactionTypeIncome || rows[0].Source != models.TransactionSourceCashRegister {
		t.Fatalf("ledger row: got %s/%s", rows[0].Type, rows[0].Source)
	}
	assertDecimal(t, "ledger amount", rows[0].Amount, "15")

	second, err := models.CreateInvoice(ctx, cashSale(product.ID, "1", "5"))
	if err != nil {
		t.Fatalf("second CreateInvoice: %v", err)
	}
	if second.InvoiceNumber != "S-000002" {
		t.Fatalf("second invoice number: got %s", second.InvoiceNumber)
	}
}

func TestPurchaseAddsStockAndWritesExpense(t *testing.T) {
	ctx := setupTestDB(t)
	product := createProduct(t, ctx, "P1", "5", "4", "0")
	supplier, err := models.CreateSupplier(ctx, &models.NewSupplier{Name: "Acme"})
	if err != nil {
		t.Fatalf("CreateSupplier: %v", err)
	}

	purchase, err := models.CreateInvoice(ctx, &models.NewInvoice{
		Type:          models.InvoiceTypePurchase,
		PartnerId:     supplier.ID,
		PaymentMethod: models.PaymentMethodCash,
		Items:         []models.NewInvoiceItem{{ProductId: product.ID, Quantity: dec("5"), UnitPrice: dec("4")}},
	})
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}
	if purchase.InvoiceNumber != "P-000001" {
		t.Fatalf("invoice number: got %s", purchase.InvoiceNumber)
	}
	if purchase.PartnerName != "Acme" {
		t.Fatalf("partner name: got %q", purchase.PartnerName)
	}
	assertDecimal(t, "stock", stockAt(t, ctx, product.ID, primaryLocationId(t, ctx)), "5")
	assertDecimal(t, "cash net", ledgerNet(t, ctx, models.TransactionFilter{Source: models.TransactionSourceCashRegister}), "-20")
}

func TestSaleRejectsInsufficientStock(t *testing.T) {
	ctx := setupTestDB(t)
	product := createProduct(t, ctx, "P1", "5", "3", "10")

	_, err := models.CreateInvoice(ctx, cashSale(product.ID, "20", "5"))
	requireValidationError(t, err, "quantity")

	assertDecimal(t, "stock", stockAt(t, ctx, product.ID, primaryLocationId(t, ctx)), "10")
	if n := countRows[models.Invoice](t, ctx); n != 0 {
		t.Fatalf("invoices after rejected sale: got %d", n)
	}
	if n := countRows[models.Transaction](t, ctx); n != 0 {
		t.Fatalf("ledger rows after rejected sale: got %d", n)
	}
}

func TestNegativeStockAllowedByFlag(t *testing.T) {
	t.Setenv("ALLOW_NEGATIVE_STOCK", "true")
	ctx := setupTestDB(t)
	product := createProduct(t, ctx, "P1", "5", "3", "10")

	if _, err := models.CreateInvoice(ctx, cashSale(product.ID, "12", "5")); err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}
	assertDecimal(t, "stock", stockAt(t, ctx, product.ID, primaryLocationId(t, ctx)), "-2")
}

func TestCommitRollsBackEveryStep(t *testing.T) {
	ctx := setupTestDB(t)

	_, err := models.CreateInvoice(ctx, cashSale(9999, "1", "5"))
	var stepErr *utils.CommitStepError
	if !errors.As(err, &stepErr) {
		t.Fatalf("expected CommitStepError, got %v", err)
	}
	if stepErr.Step != "stock" {
		t.Fatalf("failed step: got %s, want stock", stepErr.Step)
	}
	if n := countRows[models.Invoice](t, ctx); n != 0 {
		t.Fatalf("invoices: got %d", n)
	}
	if n := countRows[models.InvoiceItem](t, ctx); n != 0 {
		t.Fatalf("invoice items: got %d", n)
	}
	if n := countRows[models.InvoiceNumberSeries](t, ctx); n != 0 {
		t.Fatalf("number series advanced inside a rolled back unit")
	}
}

func TestReturnCappedByOriginalQuantity(t *testing.T) {
	ctx := setupTestDB(t)
	product := createProduct(t, ctx, "P1", "5", "3", "10")
	locationId := primaryLocationId(t, ctx)

	sale, err := models.CreateInvoice(ctx, cashSale(product.ID, "3", "5"))
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}
	lineId := sale.Items[0].ID

	ret, err := models.CreateReturnInvoice(ctx, &models.NewInvoiceReturn{
		ParentInvoiceId: sale.ID,
		Items:           []models.NewReturnItem{{ParentItemId: lineId, ReturnQuantity: dec("2")}},
	})
	if err != nil {
		t.Fatalf("CreateReturnInvoice: %v", err)
	}
	if ret.Type != models.InvoiceTypeSaleReturn || ret.InvoiceNumber != "SR-000001" {
		t.Fatalf("return: got %s %s", ret.Type, ret.InvoiceNumber)
	}
	assertDecimal(t, "return total", ret.Total, "10")
	assertDecimal(t, "stock", stockAt(t, ctx, product.ID, locationId), "9")
	assertDecimal(t, "cash net", ledgerNet(t, ctx, models.TransactionFilter{}), "5")

	_, err = models.CreateReturnInvoice(ctx, &models.NewInvoiceReturn{
		ParentInvoiceId: sale.ID,
		Items:           []models.NewReturnItem{{ParentItemId: lineId, ReturnQuantity: dec("2")}},
	})
	requireValidationError(t, err, "items")

	reloaded, err := models.GetInvoice(ctx, sale.ID)
	if err != nil {
		t.Fatalf("GetInvoice: %v", err)
	}
	assertDecimal(t, "returned to date", reloaded.Items[0].ReturnedToDateQuantity, "2")
	assertDecimal(t, "stock after rejected return", stockAt(t, ctx, product.ID, locationId), "9")
}

func TestReturnOfReturnIsRejected(t *testing.T) {
	ctx := setupTestDB(t)
	product := createProduct(t, ctx, "P1", "5", "3", "10")
	sale, err := models.CreateInvoice(ctx, cashSale(product.ID, "3", "5"))
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}
	ret, err := models.CreateReturnInvoice(ctx, &models.NewInvoiceReturn{
		ParentInvoiceId: sale.ID,
		Items:           []models.NewReturnItem{{ParentItemId: sale.Items[0].ID, ReturnQuantity: dec("1")}},
	})
	if err != nil {
		t.Fatalf("CreateReturnInvoice: %v", err)
	}
	_, err = models.CreateReturnInvoice(ctx, &models.NewInvoiceReturn{
		ParentInvoiceId: ret.ID,
		Items:           []models.NewReturnItem{{ParentItemId: ret.Items[0].ID, ReturnQuantity: dec("1")}},
	})
	requireValidationError(t, err, "parent_invoice_id")
}

func TestCreditSalePaymentLifecycle(t *testing.T) {
	ctx := setupTestDB(t)
	product := createProduct(t, ctx, "P1", "10", "6", "20")
	customer, err := models.CreateCustomer(ctx, &models.NewCustomer{Name: "Alice"})
	if err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}

	sale, err := models.CreateInvoice(ctx, &models.NewInvoice{
		Type:          models.InvoiceTypeSale,
		PartnerId:     customer.ID,
		PaymentMethod: models.PaymentMethodCredit,
		Items:         []models.NewInvoiceItem{{ProductId: product.ID, Quantity: dec("10"), UnitPrice: dec("10")}},
	})
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}
	if sale.Status != models.InvoiceStatusUnpaid {
		t.Fatalf("status: got %s, want UNPAID", sale.Status)
	}
	if n := countRows[models.Transaction](t, ctx); n != 0 {
		t.Fatalf("credit sale wrote %d ledger rows", n)
	}
	assertCustomerBalance(t, ctx, customer.ID, "100")

	paid, err := models.SettleInvoicePayment(ctx, sale.ID, &models.NewInvoicePayment{Amount: dec("40"), Method: models.PaymentMethodCash})
	if err != nil {
		t.Fatalf("SettleInvoicePayment: %v", err)
	}
	if paid.Status != models.InvoiceStatusPartial {
		t.Fatalf("status: got %s, want PARTIAL", paid.Status)
	}
	assertCustomerBalance(t, ctx, customer.ID, "60")

	_, err = models.SettleInvoicePayment(ctx, sale.ID, &models.NewInvoicePayment{Amount: dec("70"), Method: models.PaymentMethodCash})
	requireValidationError(t, err, "amount")

	paid, err = models.SettleInvoicePayment(ctx, sale.ID, &models.NewInvoicePayment{Amount: dec("60"), Method: models.PaymentMethodCash})
	if err != nil {
		t.Fatalf("final SettleInvoicePayment: %v", err)
	}
	if paid.Status != models.InvoiceStatusPaid {
		t.Fatalf("status: got %s, want PAID", paid.Status)
	}
	assertCustomerBalance(t, ctx, customer.ID, "0")
	assertDecimal(t, "cash net", ledgerNet(t, ctx, models.TransactionFilter{Source: models.TransactionSourceCashRegister}), "100")

	_, err = models.SettleInvoicePayment(ctx, sale.ID, &models.NewInvoicePayment{Amount: dec("1"), Method: models.PaymentMethodCash})
	requireValidationError(t, err, "id")
}

func TestCreditPurchaseSettlementLifecycle(t *testing.T) {
	ctx := setupTestDB(t)
	product := createProduct(t, ctx, "P1", "6", "4", "0")
	supplier, err := models.CreateSupplier(ctx, &models.NewSupplier{Name: "Acme"})
	if err != nil {
		t.Fatalf("CreateSupplier: %v", err)
	}
	bank, err := models.CreateBankAccount(ctx, &models.NewBankAccount{Name: "Main bank"})
	if err != nil {
		t.Fatalf("CreateBankAccount: %v", err)
	}

	purchase, err := models.CreateInvoice(ctx, &models.NewInvoice{
		Type:          models.InvoiceTypePurchase,
		PartnerId:     supplier.ID,
		PaymentMethod: models.PaymentMethodCredit,
		Items:         []models.NewInvoiceItem{{ProductId: product.ID, Quantity: dec("5"), UnitPrice: dec("4")}},
	})
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}
	if purchase.Status != models.InvoiceStatusUnpaid {
		t.Fatalf("status: got %s, want UNPAID", purchase.Status)
	}
	if n := countRows[models.Transaction](t, ctx); n != 0 {
		t.Fatalf("credit purchase wrote %d ledger rows", n)
	}
	assertDecimal(t, "stock", stockAt(t, ctx, product.ID, primaryLocationId(t, ctx)), "5")
	assertSupplierBalance(t, ctx, supplier.ID, "20")

	paid, err := models.SettleInvoicePayment(ctx, purchase.ID, &models.NewInvoicePayment{Amount: dec("8"), Method: models.PaymentMethodCash})
	if err != nil {
		t.Fatalf("SettleInvoicePayment: %v", err)
	}
	if paid.Status != models.InvoiceStatusPartial {
		t.Fatalf("status: got %s, want PARTIAL", paid.Status)
	}
	assertDecimal(t, "paid amount", paid.PaidAmount, "8")
	assertSupplierBalance(t, ctx, supplier.ID, "12")

	paid, err = models.SettleInvoicePayment(ctx, purchase.ID, &models.NewInvoicePayment{
		Amount:        dec("12"),
		Method:        models.PaymentMethodCard,
		BankAccountId: bank.ID,
	})
	if err != nil {
		t.Fatalf("final SettleInvoicePayment: %v", err)
	}
	if paid.Status != models.InvoiceStatusPaid {
		t.Fatalf("status: got %s, want PAID", paid.Status)
	}
	assertSupplierBalance(t, ctx, supplier.ID, "0")

	rows, err := models.ListTransactions(ctx, models.TransactionFilter{InvoiceId: purchase.ID})
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("settlement rows: got %d, want 2", len(rows))
	}
	var cash, card *models.Transaction
	for _, r := range rows {
		if r.Type != models.TransactionTypeExpense {
			t.Fatalf("settlement of a purchase must be EXPENSE, got %s", r.Type)
		}
		if r.PartnerId != supplier.ID {
			t.Fatalf("partner: got %d, want %d", r.PartnerId, supplier.ID)
		}
		if r.Source == models.TransactionSourceBank {
			card = r
		} else {
			cash = r
		}
	}
	if cash == nil || card == nil {
		t.Fatalf("expected one cash and one bank row, got %+v", rows)
	}
	assertDecimal(t, "cash row", cash.Amount, "8")
	assertDecimal(t, "bank row", card.Amount, "12")
	if card.BankAccountId != bank.ID || cash.BankAccountId != 0 {
		t.Fatalf("bank ids: card %d, cash %d", card.BankAccountId, cash.BankAccountId)
	}
	assertDecimal(t, "cash net", ledgerNet(t, ctx, models.TransactionFilter{Source: models.TransactionSourceCashRegister}), "-8")
}

func assertSupplierBalance(t *testing.T, ctx context.Context, id int, want string) {
	t.Helper()
	supplier, err := models.GetSupplier(ctx, id)
	if err != nil {
		t.Fatalf("GetSupplier: %v", err)
	}
	assertDecimal(t, "supplier balance", supplier.Balance, want)
}

func TestFullReturnRestoresStock(t *testing.T) {
	ctx := setupTestDB(t)
	locationId := primaryLocationId(t, ctx)
	warehouse, err := models.CreateLocation(ctx, &models.NewLocation{Name: "Warehouse"})
	if err != nil {
		t.Fatalf("CreateLocation: %v", err)
	}
	product, err := models.CreateProduct(ctx, &models.NewProduct{
		Code:       "P1",
		Name:       "Product P1",
		SalesPrice: dec("5"),
		OpeningStocks: []models.NewOpeningStock{
			{LocationId: locationId, Qty: dec("10")},
			{LocationId: warehouse.ID, Qty: dec("4")},
		},
	})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}
	assertProductStock(t, ctx, product.ID, "14")

	sale, err := models.CreateInvoice(ctx, &models.NewInvoice{
		Type:          models.InvoiceTypeSale,
		PaymentMethod: models.PaymentMethodCash,
		Items: []models.NewInvoiceItem{
			{ProductId: product.ID, Quantity: dec("3"), UnitPrice: dec("5")},
			{ProductId: product.ID, Quantity: dec("1.5"), UnitPrice: dec("5")},
		},
	})
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}
	assertDecimal(t, "stock after sale", stockAt(t, ctx, product.ID, locationId), "5.5")
	assertProductStock(t, ctx, product.ID, "9.5")

	returns := make([]models.NewReturnItem, 0, len(sale.Items))
	for _, item := range sale.Items {
		returns = append(returns, models.NewReturnItem{ParentItemId: item.ID, ReturnQuantity: item.Quantity})
	}
	ret, err := models.CreateReturnInvoice(ctx, &models.NewInvoiceReturn{ParentInvoiceId: sale.ID, Items: returns})
	if err != nil {
		t.Fatalf("CreateReturnInvoice: %v", err)
	}
	assertDecimal(t, "return total", ret.Total, sale.Total.String())

	assertDecimal(t, "stock after return", stockAt(t, ctx, product.ID, locationId), "10")
	assertDecimal(t, "warehouse stock", stockAt(t, ctx, product.ID, warehouse.ID), "4")
	assertProductStock(t, ctx, product.ID, "14")
	assertDecimal(t, "cash net", ledgerNet(t, ctx, models.TransactionFilter{}), "0")
}

func assertProductStock(t *testing.T, ctx context.Context, id int, want string) {
	t.Helper()
	product, err := models.GetProduct(ctx, id)
	if err != nil {
		t.Fatalf("GetProduct: %v", err)
	}
	assertDecimal(t, "product stock", product.Stock, want)
}

func assertCustomerBalance(t *testing.T, ctx context.Context, id int, want string) {
	t.Helper()
	customer, err := models.GetCustomer(ctx, id)
	if err != nil {
		t.Fatalf("GetCustomer: %v", err)
	}
	assertDecimal(t, "customer balance", customer.Balance, want)
}

func TestCreditNeedsNamedCustomer(t *testing.T) {
	ctx := setupTestDB(t)
	product := createProduct(t, ctx, "P1", "10", "6", "20")
	walkIn, err := models.CreateCustomer(ctx, &models.NewCustomer{Name: "Walk-in", IsGeneral: true})
	if err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}
	for _, partnerId := range []int{0, walkIn.ID} {
		t.Run("partner_"+strconv.Itoa(partnerId), func(t *testing.T) {
			_, err := models.CreateInvoice(ctx, &models.NewInvoice{
				Type:          models.InvoiceTypeSale,
				PartnerId:     partnerId,
				PaymentMethod: models.PaymentMethodCredit,
				Items:         []models.NewInvoiceItem{{ProductId: product.ID, Quantity: dec("1"), UnitPrice: dec("10")}},
			})
			requireValidationError(t, err, "partner_id")
		})
	}
}

func TestMixedPaymentMustMatchTotal(t *testing.T) {
	ctx := setupTestDB(t)
	product := createProduct(t, ctx, "P1", "5", "3", "10")
	bank, err := models.CreateBankAccount(ctx, &models.NewBankAccount{Name: "Main bank"})
	if err != nil {
		t.Fatalf("CreateBankAccount: %v", err)
	}
	input := &models.NewInvoice{
		Type:          models.InvoiceTypeSale,
		PaymentMethod: models.PaymentMethodMixed,
		BankAccountId: bank.ID,
		CashAmount:    dec("5"),
		CardAmount:    dec("5"),
		Items:         []models.NewInvoiceItem{{ProductId: product.ID, Quantity: dec("3"), UnitPrice: dec("5")}},
	}
	_, err = models.CreateInvoice(ctx, input)
	requireValidationError(t, err, "card_amount")

	input.CardAmount = dec("10")
	sale, err := models.CreateInvoice(ctx, input)
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}
	rows, err := models.ListTransactions(ctx, models.TransactionFilter{InvoiceId: sale.ID})
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(rows) != 1 || rows[0].Source != models.TransactionSourceCashRegister {
		t.Fatalf("mixed payment ledger: got %d rows", len(rows))
	}
	assertDecimal(t, "mixed ledger amount", rows[0].Amount, "15")
}

func TestMixedPaymentSplitLedger(t *testing.T) {
	t.Setenv("SPLIT_MIXED_LEDGER", "true")
	ctx := setupTestDB(t)
	product := createProduct(t, ctx, "P1", "5", "3", "10")
	bank, err := models.CreateBankAccount(ctx, &models.NewBankAccount{Name: "Main bank"})
	if err != nil {
		t.Fatalf("CreateBankAccount: %v", err)
	}
	_, err = models.CreateInvoice(ctx, &models.NewInvoice{
		Type:          models.InvoiceTypeSale,
		PaymentMethod: models.PaymentMethodMixed,
		BankAccountId: bank.ID,
		CashAmount:    dec("5"),
		CardAmount:    dec("10"),
		Items:         []models.NewInvoiceItem{{ProductId: product.ID, Quantity: dec("3"), UnitPrice: dec("5")}},
	})
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}
	assertDecimal(t, "cash net", ledgerNet(t, ctx, models.TransactionFilter{Source: models.TransactionSourceCashRegister}), "5")
	assertDecimal(t, "bank net", ledgerNet(t, ctx, models.TransactionFilter{Source: models.TransactionSourceBank}), "10")
}

func TestCardPaymentUsesDefaultBank(t *testing.T) {
	ctx := setupTestDB(t)
	product := createProduct(t, ctx, "P1", "5", "3", "10")

	card := cashSale(product.ID, "3", "5")
	card.PaymentMethod = models.PaymentMethodCard
	_, err := models.CreateInvoice(ctx, card)
	requireValidationError(t, err, "bank_account_id")

	bank, err := models.CreateBankAccount(ctx, &models.NewBankAccount{Name: "Main bank", InitialBalance: dec("100")})
	if err != nil {
		t.Fatalf("CreateBankAccount: %v", err)
	}
	t.Setenv("DEFAULT_BANK_ACCOUNT_ID", strconv.Itoa(bank.ID))

	sale, err := models.CreateInvoice(ctx, card)
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}
	if sale.BankAccountId != bank.ID {
		t.Fatalf("bank: got %d, want %d", sale.BankAccountId, bank.ID)
	}
	reloaded, err := models.GetBankAccount(ctx, bank.ID)
	if err != nil {
		t.Fatalf("GetBankAccount: %v", err)
	}
	assertDecimal(t, "bank balance", reloaded.Balance, "115")
}

func TestVoidReversesStockAndLedger(t *testing.T) {
	ctx := setupTestDB(t)
	product := createProduct(t, ctx, "P1", "5", "3", "10")
	sale, err := models.CreateInvoice(ctx, cashSale(product.ID, "3", "5"))
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}

	_, err = models.VoidInvoice(ctx, sale.ID, "  ")
	requireValidationError(t, err, "reason")

	voided, err := models.VoidInvoice(ctx, sale.ID, "wrong item")
	if err != nil {
		t.Fatalf("VoidInvoice: %v", err)
	}
	if voided.Status != models.InvoiceStatusVoid || voided.VoidedAt == nil {
		t.Fatalf("void: status %s voided_at %v", voided.Status, voided.VoidedAt)
	}
	assertDecimal(t, "stock", stockAt(t, ctx, product.ID, primaryLocationId(t, ctx)), "10")
	assertDecimal(t, "ledger net", ledgerNet(t, ctx, models.TransactionFilter{InvoiceId: sale.ID}), "0")

	_, err = models.VoidInvoice(ctx, sale.ID, "again")
	requireValidationError(t, err, "id")

	if _, err := models.DeleteInvoice(ctx, sale.ID); !errors.Is(err, utils.ErrForbidden) {
		t.Fatalf("DeleteInvoice without admin: got %v", err)
	}
	admin := utils.SetIsAdminInContext(ctx, true)
	if _, err := models.DeleteInvoice(admin, sale.ID); err != nil {
		t.Fatalf("DeleteInvoice: %v", err)
	}
	if n := countRows[models.Invoice](t, ctx); n != 0 {
		t.Fatalf("invoices after delete: got %d", n)
	}
}

func TestDeleteNeedsVoidFirst(t *testing.T) {
	ctx := setupTestDB(t)
	product := createProduct(t, ctx, "P1", "5", "3", "10")
	sale, err := models.CreateInvoice(ctx, cashSale(product.ID, "1", "5"))
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}
	_, err = models.DeleteInvoice(utils.SetIsAdminInContext(ctx, true), sale.ID)
	requireValidationError(t, err, "id")
}

func TestVoidBlockedByLiveReturn(t *testing.T) {
	ctx := setupTestDB(t)
	product := createProduct(t, ctx, "P1", "5", "3", "10")
	sale, err := models.CreateInvoice(ctx, cashSale(product.ID, "3", "5"))
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}
	ret, err := models.CreateReturnInvoice(ctx, &models.NewInvoiceReturn{
		ParentInvoiceId: sale.ID,
		Items:           []models.NewReturnItem{{ParentItemId: sale.Items[0].ID, ReturnQuantity: dec("1")}},
	})
	if err != nil {
		t.Fatalf("CreateReturnInvoice: %v", err)
	}

	_, err = models.VoidInvoice(ctx, sale.ID, "customer changed mind")
	requireValidationError(t, err, "id")

	if _, err := models.VoidInvoice(ctx, ret.ID, "entered twice"); err != nil {
		t.Fatalf("void return: %v", err)
	}
	if _, err := models.VoidInvoice(ctx, sale.ID, "customer changed mind"); err != nil {
		t.Fatalf("void sale after its return: %v", err)
	}
	assertDecimal(t, "stock", stockAt(t, ctx, product.ID, primaryLocationId(t, ctx)), "10")
	assertDecimal(t, "ledger net", ledgerNet(t, ctx, models.TransactionFilter{}), "0")
}

func TestVoidCreditSaleClearsOutstanding(t *testing.T) {
	ctx := setupTestDB(t)
	product := createProduct(t, ctx, "P1", "10", "6", "20")
	customer, err := models.CreateCustomer(ctx, &models.NewCustomer{Name: "Bob"})
	if err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}
	sale, err := models.CreateInvoice(ctx, &models.NewInvoice{
		Type:          models.InvoiceTypeSale,
		PartnerId:     customer.ID,
		PaymentMethod: models.PaymentMethodCredit,
		Items:         []models.NewInvoiceItem{{ProductId: product.ID, Quantity: dec("10"), UnitPrice: dec("10")}},
	})
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}
	if _, err := models.SettleInvoicePayment(ctx, sale.ID, &models.NewInvoicePayment{Amount: dec("40"), Method: models.PaymentMethodCash}); err != nil {
		t.Fatalf("SettleInvoicePayment: %v", err)
	}
	if _, err := models.VoidInvoice(ctx, sale.ID, "duplicate"); err != nil {
		t.Fatalf("VoidInvoice: %v", err)
	}
	assertCustomerBalance(t, ctx, customer.ID, "0")
	assertDecimal(t, "ledger net", ledgerNet(t, ctx, models.TransactionFilter{InvoiceId: sale.ID}), "0")
	assertDecimal(t, "stock", stockAt(t, ctx, product.ID, primaryLocationId(t, ctx)), "20")
}

func TestDiscountAndTaxOnCommit(t *testing.T) {
	ctx := setupTestDB(t)
	product, err := models.CreateProduct(ctx, &models.NewProduct{
		Code:       "VAT",
		Name:       "Taxed",
		SalesPrice: dec("118"),
		VatRate:    dec("18"),
		OpeningStocks: []models.NewOpeningStock{
			{LocationId: primaryLocationId(t, ctx), Qty: dec("5")},
		},
	})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}
	input := cashSale(product.ID, "1", "118")
	input.DiscountRate = dec("50")
	sale, err := models.CreateInvoice(ctx, input)
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}
	assertDecimal(t, "subtotal", sale.Subtotal, "118")
	assertDecimal(t, "discount", sale.Discount, "59")
	assertDecimal(t, "total", sale.Total, "59")
	assertDecimal(t, "tax", sale.Tax, "9")
	if !sale.Total.Equal(sale.Subtotal.Sub(sale.Discount)) {
		t.Fatalf("total must not include tax: %s", sale.Total)
	}
}
