package models

import (
	"context"
	"strconv"
	"strings"

	"bitbucket.org/mmdatafocus/pos_backend/config"
	"bitbucket.org/mmdatafocus/pos_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// normalizeContact trims and validates the optional phone and email shared by customers and suppliers.
func normalizeContact(phone *string, email *string) error {
	*phone = strings.TrimSpace(*phone)
	*email = strings.TrimSpace(*email)
	if *phone != "" {
		formatted, err := utils.FormatPhoneNumber(*phone, config.CountryCode())
		if err != nil {
			return utils.NewValidationError("phone", "invalid phone number")
		}
		*phone = formatted
	}
	if *email != "" && !utils.IsValidEmail(*email) {
		return utils.NewValidationError("email", "invalid email")
	}
	return nil
}

func partnerLockKey(t InvoiceType, partnerId int) string {
	if t.IsCustomerSide() {
		return "customer:" + strconv.Itoa(partnerId)
	}
	return "supplier:" + strconv.Itoa(partnerId)
}

// partnerBalanceDelta is how much the partner's open balance grows when a document of type t
// is left unpaid for amount. Receivables grow on SALE, payables on PURCHASE; returns shrink them.
func partnerBalanceDelta(t InvoiceType, amount decimal.Decimal) decimal.Decimal {
	if t.IsReturn() {
		return amount.Neg()
	}
	return amount
}

// adjustPartnerBalance moves the live balance of the document's partner. Callers hold the partner lock.
func adjustPartnerBalance(ctx context.Context, tx *gorm.DB, t InvoiceType, partnerId int, delta decimal.Decimal) error {
	if partnerId == 0 || delta.IsZero() {
		return nil
	}
	if t.IsCustomerSide() {
		var customer Customer
		if err := tx.WithContext(ctx).First(&customer, partnerId).Error; err != nil {
			return err
		}
		return tx.WithContext(ctx).Model(&Customer{}).Where("id = ?", partnerId).
			Update("balance", customer.Balance.Add(delta)).Error
	}
	var supplier Supplier
	if err := tx.WithContext(ctx).First(&supplier, partnerId).Error; err != nil {
		return err
	}
	return tx.WithContext(ctx).Model(&Supplier{}).Where("id = ?", partnerId).
		Update("balance", supplier.Balance.Add(delta)).Error
}

func invalidatePartner(t InvoiceType, partnerId int) RedisCleaner {
	if t.IsCustomerSide() {
		return customerCacheIds{partnerId}
	}
	return supplierCacheIds{partnerId}
}
