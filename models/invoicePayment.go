package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/pos_backend/config"
	"bitbucket.org/mmdatafocus/pos_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// NewInvoicePayment settles part or all of a credit document. Method is CASH or CARD.
type NewInvoicePayment struct {
	Amount        decimal.Decimal `json:"amount"`
	Method        PaymentMethod   `json:"method" validate:"required"`
	BankAccountId int             `json:"bank_account_id"`
	Date          time.Time       `json:"date"`
}

func (input *NewInvoicePayment) validate(ctx context.Context) error {
	if err := utils.ValidateStruct(input); err != nil {
		return err
	}
	if !input.Amount.IsPositive() {
		return utils.NewValidationError("amount", "must be greater than zero")
	}
	switch input.Method {
	case PaymentMethodCash:
		input.BankAccountId = 0
	case PaymentMethodCard:
		if input.BankAccountId == 0 {
			input.BankAccountId = config.DefaultBankAccountId()
		}
		if input.BankAccountId == 0 {
			return utils.NewValidationError("bank_account_id", "card payment needs a bank account")
		}
		if err := utils.ValidateResourceId[BankAccount](ctx, input.BankAccountId); err != nil {
			return utils.NewValidationError("bank_account_id", "bank account not found")
		}
	default:
		return utils.NewValidationError("method", "settlements are paid by CASH or CARD")
	}
	if input.Date.IsZero() {
		input.Date = time.Now()
	}
	input.Date = input.Date.UTC()
	return nil
}

// SettleInvoicePayment records a payment against a credit invoice: one ledger row, the paid
// amount and status move, and the partner's open balance shrinks. All in one unit.
func SettleInvoicePayment(ctx context.Context, invoiceId int, input *NewInvoicePayment) (*Invoice, error) {
	ctx, span := tracer.Start(ctx, "SettleInvoicePayment")
	defer span.End()

	if err := input.validate(ctx); err != nil {
		return nil, err
	}
	invoice, err := utils.FetchModel[Invoice](ctx, invoiceId)
	if err != nil {
		return nil, err
	}

	keys := []string{invoiceLockKey(invoiceId)}
	if invoice.PartnerId != 0 {
		keys = append(keys, partnerLockKey(invoice.Type, invoice.PartnerId))
	}
	release, err := utils.LockKeys(ctx, keys)
	if err != nil {
		return nil, err
	}
	defer release()

	db := config.GetDB()
	err = RunUnitOfWork(ctx, db, func(uow *UnitOfWork) error {
		tx := uow.Tx()
		// re-read under the lock
		if err := tx.First(invoice, invoiceId).Error; err != nil {
			return err
		}
		if invoice.PaymentMethod != PaymentMethodCredit {
			return utils.NewValidationError("id", "only credit invoices take later payments")
		}
		if invoice.Status != InvoiceStatusUnpaid && invoice.Status != InvoiceStatusPartial {
			return utils.NewValidationError("id", "invoice is %s", invoice.Status)
		}
		outstanding := invoice.Outstanding()
		if input.Amount.GreaterThan(outstanding) {
			return utils.NewValidationError("amount", "payment %s exceeds outstanding %s",
				input.Amount.StringFixed(2), outstanding.StringFixed(2))
		}

		source := TransactionSourceCashRegister
		if input.Method == PaymentMethodCard {
			source = TransactionSourceBank
		}
		row := invoice.newLedgerRow(input.Amount, source, input.BankAccountId, utils.UserNameOrSystem(ctx))
		row.Date = input.Date
		row.Category = ledgerCategory(invoice.Type) + " payment"
		if err := uow.Step("ledger", func(tx *gorm.DB) error {
			return tx.Create(&row).Error
		}); err != nil {
			return err
		}

		invoice.PaidAmount = invoice.PaidAmount.Add(input.Amount)
		invoice.Status = InvoiceStatusPartial
		if invoice.PaidAmount.GreaterThanOrEqual(invoice.Total) {
			invoice.Status = InvoiceStatusPaid
		}
		if err := uow.Step("invoice", func(tx *gorm.DB) error {
			return tx.Model(&Invoice{}).Where("id = ?", invoice.ID).Updates(map[string]interface{}{
				"paid_amount": invoice.PaidAmount,
				"status":      invoice.Status,
			}).Error
		}); err != nil {
			return err
		}

		if err := uow.Step("partner", func(tx *gorm.DB) error {
			return adjustPartnerBalance(ctx, tx, invoice.Type, invoice.PartnerId,
				partnerBalanceDelta(invoice.Type, input.Amount).Neg())
		}); err != nil {
			return err
		}
		uow.AfterCommit(func() {
			if invoice.PartnerId != 0 {
				invalidate(invalidatePartner(invoice.Type, invoice.PartnerId))
			}
		})
		return nil
	})
	if err != nil {
		config.LogError(config.GetLogger(), "Invoice", "SettleInvoicePayment", "settle", invoiceId, err)
		return nil, err
	}
	return GetInvoice(ctx, invoiceId)
}
