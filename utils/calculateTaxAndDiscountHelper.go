package utils

import (
	"github.com/shopspring/decimal"
)

var decimalOneHundred = decimal.NewFromInt(100)

// CalculateDiscountAmount returns subTotal * rate / 100, or 0 for a non-positive rate.
func CalculateDiscountAmount(subTotal decimal.Decimal, rate decimal.Decimal) decimal.Decimal {
	if !rate.GreaterThan(decimal.Zero) {
		return decimal.Zero
	}
	return subTotal.Mul(rate).DivRound(decimalOneHundred, 4)
}

// CalculateTaxAmount extracts (inclusive) or adds (exclusive) VAT on an amount.
func CalculateTaxAmount(totalAmount decimal.Decimal, taxRate decimal.Decimal, isTaxInclusive bool) decimal.Decimal {
	if !taxRate.GreaterThan(decimal.Zero) {
		return decimal.Zero
	}
	if isTaxInclusive {
		// Tax-inclusive: (totalAmount / (100 + taxRate)) * taxRate
		return totalAmount.DivRound(taxRate.Add(decimalOneHundred), 4).Mul(taxRate)
	}
	// Tax-exclusive: (totalAmount / 100) * taxRate
	return totalAmount.DivRound(decimalOneHundred, 4).Mul(taxRate)
}

func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
