package models

import (
	"github.com/shopspring/decimal"
)

type InvoiceType string

const (
	InvoiceTypeSale           InvoiceType = "SALE"
	InvoiceTypePurchase       InvoiceType = "PURCHASE"
	InvoiceTypeSaleReturn     InvoiceType = "SALE_RETURN"
	InvoiceTypePurchaseReturn InvoiceType = "PURCHASE_RETURN"
)

func (t InvoiceType) IsValid() bool {
	switch t {
	case InvoiceTypeSale, InvoiceTypePurchase, InvoiceTypeSaleReturn, InvoiceTypePurchaseReturn:
		return true
	}
	return false
}

func (t InvoiceType) IsReturn() bool {
	return t == InvoiceTypeSaleReturn || t == InvoiceTypePurchaseReturn
}

// IsCustomerSide is true for documents whose partner is a customer.
func (t InvoiceType) IsCustomerSide() bool {
	return t == InvoiceTypeSale || t == InvoiceTypeSaleReturn
}

// StockSign is -1 for documents that take goods out of a location, +1 for those that bring goods in.
func (t InvoiceType) StockSign() decimal.Decimal {
	if t == InvoiceTypeSale || t == InvoiceTypePurchaseReturn {
		return decimal.NewFromInt(-1)
	}
	return decimal.NewFromInt(1)
}

// LedgerType is the direction of money for a settled document of this type.
func (t InvoiceType) LedgerType() TransactionType {
	if t == InvoiceTypeSale || t == InvoiceTypePurchaseReturn {
		return TransactionTypeIncome
	}
	return TransactionTypeExpense
}

// ReturnType is the complement used by returns against this type.
func (t InvoiceType) ReturnType() (InvoiceType, bool) {
	switch t {
	case InvoiceTypeSale:
		return InvoiceTypeSaleReturn, true
	case InvoiceTypePurchase:
		return InvoiceTypePurchaseReturn, true
	}
	return "", false
}

func (t InvoiceType) NumberPrefix() string {
	switch t {
	case InvoiceTypeSale:
		return "S"
	case InvoiceTypePurchase:
		return "P"
	case InvoiceTypeSaleReturn:
		return "SR"
	case InvoiceTypePurchaseReturn:
		return "PR"
	}
	return "X"
}

type PaymentMethod string

const (
	PaymentMethodCash   PaymentMethod = "CASH"
	PaymentMethodCard   PaymentMethod = "CARD"
	PaymentMethodCredit PaymentMethod = "CREDIT"
	PaymentMethodMixed  PaymentMethod = "MIXED"
)

func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodCredit, PaymentMethodMixed:
		return true
	}
	return false
}

type InvoiceStatus string

const (
	InvoiceStatusPaid    InvoiceStatus = "PAID"
	InvoiceStatusUnpaid  InvoiceStatus = "UNPAID"
	InvoiceStatusPartial InvoiceStatus = "PARTIAL"
	InvoiceStatusVoid    InvoiceStatus = "VOID"
)

type FiscalStatus string

const (
	FiscalStatusRegistered    FiscalStatus = "REGISTERED"
	FiscalStatusOffline       FiscalStatus = "OFFLINE"
	FiscalStatusNotApplicable FiscalStatus = "NOT_APPLICABLE"
)

type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "INCOME"
	TransactionTypeExpense TransactionType = "EXPENSE"
)

func (t TransactionType) IsValid() bool {
	return t == TransactionTypeIncome || t == TransactionTypeExpense
}

func (t TransactionType) Opposite() TransactionType {
	if t == TransactionTypeIncome {
		return TransactionTypeExpense
	}
	return TransactionTypeIncome
}

type TransactionSource string

const (
	TransactionSourceCashRegister TransactionSource = "CASH_REGISTER"
	TransactionSourceBank         TransactionSource = "BANK"
)

func (s TransactionSource) IsValid() bool {
	return s == TransactionSourceCashRegister || s == TransactionSourceBank
}

type SystemLink string

const (
	SystemLinkNone         SystemLink = "NONE"
	SystemLinkInventory    SystemLink = "INVENTORY"
	SystemLinkCash         SystemLink = "CASH"
	SystemLinkCashRegister SystemLink = "CASH_REGISTER"
	SystemLinkBank         SystemLink = "BANK"
	SystemLinkExpense      SystemLink = "EXPENSE"
	SystemLinkSales        SystemLink = "SALES"
	SystemLinkCustomerAR   SystemLink = "CUSTOMER_AR"
)

func (l SystemLink) IsValid() bool {
	switch l {
	case SystemLinkNone, SystemLinkInventory, SystemLinkCash, SystemLinkCashRegister,
		SystemLinkBank, SystemLinkExpense, SystemLinkSales, SystemLinkCustomerAR:
		return true
	}
	return false
}
