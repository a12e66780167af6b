package models

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/pos_backend/config"
	"bitbucket.org/mmdatafocus/pos_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"
)

var tracer = otel.Tracer("bitbucket.org/mmdatafocus/pos_backend/models")

var oneHundred = decimal.NewFromInt(100)

// validate checks everything that can be known before the unit of work starts.
// It fills defaults: date, primary location, default bank for CARD, partner name and split amounts.
func (inv *Invoice) validate(ctx context.Context) error {
	if !inv.Type.IsValid() {
		return utils.NewValidationError("type", "unknown invoice type %q", inv.Type)
	}
	if !inv.PaymentMethod.IsValid() {
		return utils.NewValidationError("payment_method", "unknown payment method %q", inv.PaymentMethod)
	}
	if len(inv.Items) == 0 {
		return utils.NewValidationError("items", "invoice has no items")
	}
	for i, item := range inv.Items {
		if item.ProductId <= 0 {
			return utils.NewValidationError("items", "line %d has no product", i+1)
		}
		if !item.Quantity.IsPositive() {
			return utils.NewValidationError("items", "line %d quantity must be greater than zero", i+1)
		}
		if item.UnitPrice.IsNegative() {
			return utils.NewValidationError("items", "line %d price must not be negative", i+1)
		}
		if inv.Type.IsReturn() && item.ParentItemId <= 0 {
			return utils.NewValidationError("items", "return line %d does not reference an original line", i+1)
		}
	}
	if inv.DiscountRate.IsNegative() || inv.DiscountRate.GreaterThan(oneHundred) {
		return utils.NewValidationError("discount_rate", "must be between 0 and 100")
	}
	if inv.Type.IsReturn() && inv.ParentInvoiceId <= 0 {
		return utils.NewValidationError("parent_invoice_id", "return needs its original invoice")
	}

	if inv.Date.IsZero() {
		inv.Date = time.Now()
	}
	inv.Date = inv.Date.UTC()

	if inv.LocationId == 0 {
		location, err := GetPrimaryLocation(ctx)
		if err != nil {
			return err
		}
		inv.LocationId = location.ID
	} else if err := utils.ValidateResourceId[Location](ctx, inv.LocationId); err != nil {
		return utils.NewValidationError("location_id", "location not found")
	}

	if err := inv.validatePartner(ctx); err != nil {
		return err
	}

	// totals are needed to check split payments; tax is refined inside the unit of work
	inv.computeTotals(nil)
	return inv.validatePayment(ctx)
}

func (inv *Invoice) validatePartner(ctx context.Context) error {
	if inv.PartnerId == 0 {
		if inv.PaymentMethod == PaymentMethodCredit {
			return utils.NewValidationError("partner_id", "credit documents need a partner")
		}
		return nil
	}
	if inv.Type.IsCustomerSide() {
		customer, err := GetCustomer(ctx, inv.PartnerId)
		if err != nil {
			return utils.NewValidationError("partner_id", "customer not found")
		}
		if inv.PaymentMethod == PaymentMethodCredit && customer.IsGeneral {
			return utils.NewValidationError("partner_id", "credit sales need a named customer")
		}
		inv.PartnerName = customer.Name
		return nil
	}
	supplier, err := GetSupplier(ctx, inv.PartnerId)
	if err != nil {
		return utils.NewValidationError("partner_id", "supplier not found")
	}
	inv.PartnerName = supplier.Name
	return nil
}

func (inv *Invoice) validatePayment(ctx context.Context) error {
	switch inv.PaymentMethod {
	case PaymentMethodCash:
		inv.BankAccountId = 0
		inv.CashAmount = inv.Total
		inv.CardAmount = decimal.Zero
	case PaymentMethodCard:
		if inv.BankAccountId == 0 {
			inv.BankAccountId = config.DefaultBankAccountId()
		}
		if inv.BankAccountId == 0 {
			return utils.NewValidationError("bank_account_id", "card payment needs a bank account")
		}
		inv.CashAmount = decimal.Zero
		inv.CardAmount = inv.Total
	case PaymentMethodMixed:
		if inv.CashAmount.IsNegative() || inv.CardAmount.IsNegative() {
			return utils.NewValidationError("card_amount", "split amounts must not be negative")
		}
		gap := inv.CashAmount.Add(inv.CardAmount).Sub(inv.Total).Abs()
		if gap.GreaterThan(config.MixedPaymentTolerance()) {
			return utils.NewValidationError("card_amount", "cash %s + card %s does not match total %s",
				inv.CashAmount.StringFixed(2), inv.CardAmount.StringFixed(2), inv.Total.StringFixed(2))
		}
		if inv.CardAmount.IsPositive() && inv.BankAccountId == 0 {
			return utils.NewValidationError("bank_account_id", "card part of a mixed payment needs a bank account")
		}
	case PaymentMethodCredit:
		inv.BankAccountId = 0
		inv.CashAmount = decimal.Zero
		inv.CardAmount = decimal.Zero
	}
	if inv.BankAccountId != 0 {
		if err := utils.ValidateResourceId[BankAccount](ctx, inv.BankAccountId); err != nil {
			return utils.NewValidationError("bank_account_id", "bank account not found")
		}
	}
	return nil
}

// stockDeltas is the signed movement this document causes at its location.
func (inv *Invoice) stockDeltas(sign decimal.Decimal) []stockDelta {
	deltas := make([]stockDelta, 0, len(inv.Items))
	for _, item := range inv.Items {
		deltas = append(deltas, stockDelta{
			ProductId:  item.ProductId,
			LocationId: inv.LocationId,
			Qty:        item.Quantity.Mul(sign),
		})
	}
	return deltas
}

func (inv *Invoice) lockKeys() []string {
	keys := stockLockKeys(inv.stockDeltas(decimal.NewFromInt(1)))
	keys = append(keys, seriesLockKey(inv.Type))
	if inv.PartnerId != 0 {
		keys = append(keys, partnerLockKey(inv.Type, inv.PartnerId))
	}
	if inv.ParentInvoiceId != 0 {
		keys = append(keys, invoiceLockKey(inv.ParentInvoiceId))
	}
	return keys
}

func ledgerCategory(t InvoiceType) string {
	switch t {
	case InvoiceTypeSale:
		return "Sale"
	case InvoiceTypePurchase:
		return "Purchase"
	case InvoiceTypeSaleReturn:
		return "Sale return"
	case InvoiceTypePurchaseReturn:
		return "Purchase return"
	}
	return string(t)
}

func (inv *Invoice) newLedgerRow(amount decimal.Decimal, source TransactionSource, bankId int, userName string) Transaction {
	if source != TransactionSourceBank {
		bankId = 0
	}
	description := inv.InvoiceNumber
	if inv.PartnerName != "" {
		description += " " + inv.PartnerName
	}
	return Transaction{
		Date:          inv.Date,
		Type:          inv.Type.LedgerType(),
		Category:      ledgerCategory(inv.Type),
		InvoiceId:     inv.ID,
		PartnerId:     inv.PartnerId,
		Amount:        amount,
		Description:   description,
		Source:        source,
		BankAccountId: bankId,
		UserName:      userName,
	}
}

// ledgerRows is what a settled-at-commit document writes to the ledger.
// MIXED is one CASH_REGISTER row unless split ledger rows are enabled.
func (inv *Invoice) ledgerRows(userName string) []Transaction {
	switch inv.PaymentMethod {
	case PaymentMethodCredit:
		return nil
	case PaymentMethodCard:
		return []Transaction{inv.newLedgerRow(inv.Total, TransactionSourceBank, inv.BankAccountId, userName)}
	case PaymentMethodMixed:
		if config.SplitMixedLedger() {
			rows := make([]Transaction, 0, 2)
			if inv.CashAmount.IsPositive() {
				rows = append(rows, inv.newLedgerRow(inv.CashAmount, TransactionSourceCashRegister, 0, userName))
			}
			if inv.CardAmount.IsPositive() {
				rows = append(rows, inv.newLedgerRow(inv.CardAmount, TransactionSourceBank, inv.BankAccountId, userName))
			}
			return rows
		}
	}
	return []Transaction{inv.newLedgerRow(inv.Total, TransactionSourceCashRegister, 0, userName)}
}

// CommitInvoice writes the invoice, its stock movement, its ledger effect and the partner
// balance as one unit. Either all of it is stored or none of it.
func CommitInvoice(ctx context.Context, inv *Invoice) (*Invoice, error) {
	ctx, span := tracer.Start(ctx, "CommitInvoice")
	defer span.End()

	if err := inv.validate(ctx); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.String("invoice.type", string(inv.Type)),
		attribute.String("invoice.payment_method", string(inv.PaymentMethod)),
		attribute.Int("invoice.items", len(inv.Items)),
	)

	release, err := utils.LockKeys(ctx, inv.lockKeys())
	if err != nil {
		return nil, err
	}
	defer release()

	db := config.GetDB()
	err = RunUnitOfWork(ctx, db, func(uow *UnitOfWork) error {
		return commitInvoiceTx(ctx, uow, inv)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		config.LogError(config.GetLogger(), "Invoice", "CommitInvoice", "commit", inv.InvoiceNumber, err)
		return nil, err
	}
	span.SetAttributes(attribute.String("invoice.number", inv.InvoiceNumber))
	return inv, nil
}

func commitInvoiceTx(ctx context.Context, uow *UnitOfWork, inv *Invoice) error {
	tx := uow.Tx()
	productIds := make([]int, 0, len(inv.Items))
	for _, item := range inv.Items {
		productIds = append(productIds, item.ProductId)
	}
	products, err := GetProductsByIds(ctx, tx, productIds)
	if err != nil {
		return &utils.CommitStepError{Step: "invoice", Err: err}
	}

	if inv.Type.IsReturn() {
		if err := uow.Step("returns", func(tx *gorm.DB) error {
			return checkReturnQuantities(ctx, tx, inv)
		}); err != nil {
			return err
		}
	}

	userName := utils.UserNameOrSystem(ctx)
	if err := uow.Step("invoice", func(tx *gorm.DB) error {
		number, err := nextInvoiceNumber(ctx, tx, inv.Type)
		if err != nil {
			return err
		}
		inv.ID = 0
		inv.InvoiceNumber = number
		inv.UserName = userName
		for i := range inv.Items {
			inv.Items[i].ID = 0
			inv.Items[i].InvoiceId = 0
			if p, ok := products[inv.Items[i].ProductId]; ok && inv.Items[i].ProductName == "" {
				inv.Items[i].ProductName = p.Name
			}
		}
		inv.computeTotals(products)
		if inv.PaymentMethod == PaymentMethodCredit && inv.Total.IsPositive() {
			inv.Status = InvoiceStatusUnpaid
			inv.PaidAmount = decimal.Zero
		} else {
			inv.Status = InvoiceStatusPaid
			inv.PaidAmount = inv.Total
		}
		if inv.FiscalStatus == "" {
			inv.FiscalStatus = FiscalStatusNotApplicable
		}
		return tx.Create(inv).Error
	}); err != nil {
		return err
	}

	if err := uow.Step("stock", func(tx *gorm.DB) error {
		for _, item := range inv.Items {
			if _, ok := products[item.ProductId]; !ok {
				return fmt.Errorf("product %d: %w", item.ProductId, utils.ErrorRecordNotFound)
			}
		}
		return applyStockDeltas(ctx, tx, inv.stockDeltas(inv.Type.StockSign()))
	}); err != nil {
		return err
	}

	if err := uow.Step("ledger", func(tx *gorm.DB) error {
		rows := inv.ledgerRows(userName)
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	}); err != nil {
		return err
	}

	if inv.PaymentMethod == PaymentMethodCredit {
		if err := uow.Step("partner", func(tx *gorm.DB) error {
			return adjustPartnerBalance(ctx, tx, inv.Type, inv.PartnerId, partnerBalanceDelta(inv.Type, inv.Total))
		}); err != nil {
			return err
		}
	}

	uow.AfterCommit(func() {
		cleaners := []RedisCleaner{productCacheIds(productIds)}
		if inv.PartnerId != 0 {
			cleaners = append(cleaners, invalidatePartner(inv.Type, inv.PartnerId))
		}
		invalidate(cleaners...)
		if config.DebugCommits() {
			config.GetLogger().WithFields(logrus.Fields{
				"invoice_number": inv.InvoiceNumber,
				"type":           inv.Type,
				"total":          inv.Total.String(),
				"status":         inv.Status,
			}).Debug("invoice committed")
		}
	})
	return nil
}
