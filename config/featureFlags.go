package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AllowNegativeStock lets sales and transfers drive a product-location below zero.
//
// Set via env:
// - ALLOW_NEGATIVE_STOCK=true
func AllowNegativeStock() bool {
	return boolFromEnv("ALLOW_NEGATIVE_STOCK", false)
}

// DefaultBankAccountId is the bank used for CARD checkouts that name none. 0 = no fallback.
func DefaultBankAccountId() int {
	return intFromEnv("DEFAULT_BANK_ACCOUNT_ID", 0)
}

// FiscalDeviceTimeout bounds a single call to the fiscal device.
//
// Set via env:
// - FISCAL_DEVICE_TIMEOUT_MS (default 3000)
func FiscalDeviceTimeout() time.Duration {
	ms := intFromEnv("FISCAL_DEVICE_TIMEOUT_MS", 3000)
	if ms <= 0 {
		ms = 3000
	}
	return time.Duration(ms) * time.Millisecond
}

func FiscalDevicePort() int {
	return intFromEnv("FISCAL_DEVICE_PORT", 5544)
}

func FiscalCurrency() string {
	return stringFromEnv("FISCAL_CURRENCY", "AZN")
}

// PendingCheckoutTTL is how long an offline decision stays answerable.
func PendingCheckoutTTL() time.Duration {
	return time.Duration(intFromEnv("PENDING_CHECKOUT_TTL_MINUTES", 15)) * time.Minute
}

// SplitMixedLedger emits two ledger rows (cash + bank) for MIXED payments instead of one.
func SplitMixedLedger() bool {
	return boolFromEnv("SPLIT_MIXED_LEDGER", false)
}

// CountryCode is the default region used to parse phone numbers.
func CountryCode() string {
	return stringFromEnv("COUNTRY_CODE", "AZ")
}

// MixedPaymentTolerance is the allowed gap between cash+card and the invoice total.
func MixedPaymentTolerance() decimal.Decimal {
	return decimalFromEnv("MIXED_PAYMENT_TOLERANCE", decimal.NewFromFloat(0.01))
}

func intFromEnv(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func boolFromEnv(key string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if v == "" {
		return def
	}
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

func stringFromEnv(key string, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func decimalFromEnv(key string, def decimal.Decimal) decimal.Decimal {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return def
	}
	return d
}
