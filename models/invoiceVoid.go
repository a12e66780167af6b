package models

import (
	"context"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/pos_backend/config"
	"bitbucket.org/mmdatafocus/pos_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// VoidInvoice is the auditable reversal of a committed document. Stock moves back, every ledger
// row of the invoice gets a compensating row, and the unpaid remainder leaves the partner balance.
// Documents that still have live returns must have those voided first.
func VoidInvoice(ctx context.Context, id int, reason string) (*Invoice, error) {
	ctx, span := tracer.Start(ctx, "VoidInvoice")
	defer span.End()

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, utils.NewValidationError("reason", "a void needs a reason")
	}
	invoice, err := utils.FetchModel[Invoice](ctx, id, "Items")
	if err != nil {
		return nil, err
	}

	keys := stockLockKeys(invoice.stockDeltas(decimal.NewFromInt(1)))
	keys = append(keys, invoiceLockKey(id))
	if invoice.PartnerId != 0 {
		keys = append(keys, partnerLockKey(invoice.Type, invoice.PartnerId))
	}
	if invoice.ParentInvoiceId != 0 {
		keys = append(keys, invoiceLockKey(invoice.ParentInvoiceId))
	}
	release, err := utils.LockKeys(ctx, keys)
	if err != nil {
		return nil, err
	}
	defer release()

	db := config.GetDB()
	userName := utils.UserNameOrSystem(ctx)
	err = RunUnitOfWork(ctx, db, func(uow *UnitOfWork) error {
		tx := uow.Tx()
		if err := tx.Preload("Items").First(invoice, id).Error; err != nil {
			return err
		}
		if invoice.Status == InvoiceStatusVoid {
			return utils.NewValidationError("id", "invoice is already void")
		}
		liveReturns, err := utils.ResourceCountWhereTx[Invoice](ctx, tx, "parent_invoice_id = ? AND status <> ?", id, InvoiceStatusVoid)
		if err != nil {
			return err
		}
		if liveReturns > 0 {
			return utils.NewValidationError("id", "invoice has %d returns; void them first", liveReturns)
		}

		if err := uow.Step("stock", func(tx *gorm.DB) error {
			return applyStockDeltas(ctx, tx, invoice.stockDeltas(invoice.Type.StockSign().Neg()))
		}); err != nil {
			return err
		}

		if err := uow.Step("ledger", func(tx *gorm.DB) error {
			var rows []Transaction
			if err := tx.Where("invoice_id = ?", id).Order("id").Find(&rows).Error; err != nil {
				return err
			}
			now := time.Now().UTC()
			reversals := make([]Transaction, 0, len(rows))
			for _, r := range rows {
				reversals = append(reversals, Transaction{
					Date:              now,
					Type:              r.Type.Opposite(),
					Category:          "Void",
					ExpenseCategoryId: 0,
					InvoiceId:         r.InvoiceId,
					PartnerId:         r.PartnerId,
					Amount:            r.Amount,
					Description:       "Void " + invoice.InvoiceNumber + ": " + reason,
					Source:            r.Source,
					BankAccountId:     r.BankAccountId,
					UserName:          userName,
				})
			}
			if len(reversals) == 0 {
				return nil
			}
			return tx.Create(&reversals).Error
		}); err != nil {
			return err
		}

		if invoice.PaymentMethod == PaymentMethodCredit {
			if err := uow.Step("partner", func(tx *gorm.DB) error {
				return adjustPartnerBalance(ctx, tx, invoice.Type, invoice.PartnerId,
					partnerBalanceDelta(invoice.Type, invoice.Outstanding()).Neg())
			}); err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		invoice.Status = InvoiceStatusVoid
		invoice.VoidReason = reason
		invoice.VoidedAt = &now
		if err := uow.Step("invoice", func(tx *gorm.DB) error {
			return tx.Model(&Invoice{}).Where("id = ?", id).Updates(map[string]interface{}{
				"status":      InvoiceStatusVoid,
				"void_reason": reason,
				"voided_at":   now,
			}).Error
		}); err != nil {
			return err
		}

		uow.AfterCommit(func() {
			productIds := deltaProductIds(invoice.stockDeltas(decimal.NewFromInt(1)))
			cleaners := []RedisCleaner{productCacheIds(productIds)}
			if invoice.PartnerId != 0 {
				cleaners = append(cleaners, invalidatePartner(invoice.Type, invoice.PartnerId))
			}
			invalidate(cleaners...)
		})
		return nil
	})
	if err != nil {
		config.LogError(config.GetLogger(), "Invoice", "VoidInvoice", "void", id, err)
		return nil, err
	}
	return GetInvoice(ctx, id)
}

// DeleteInvoice removes a voided document. Admin only; effects were already reversed by the void.
func DeleteInvoice(ctx context.Context, id int) (*Invoice, error) {
	if !utils.IsAdmin(ctx) {
		return nil, utils.ErrForbidden
	}
	invoice, err := utils.FetchModel[Invoice](ctx, id, "Items")
	if err != nil {
		return nil, err
	}
	if invoice.Status != InvoiceStatusVoid {
		return nil, utils.NewValidationError("id", "only void invoices can be deleted; void it first")
	}
	db := config.GetDB()
	err = RunUnitOfWork(ctx, db, func(uow *UnitOfWork) error {
		return uow.Step("invoice", func(tx *gorm.DB) error {
			if err := tx.Where("invoice_id = ?", id).Delete(&InvoiceItem{}).Error; err != nil {
				return err
			}
			return tx.Delete(&Invoice{}, id).Error
		})
	})
	if err != nil {
		return nil, err
	}
	return invoice, nil
}
