// Package money holds the price arithmetic for orders and tabs.
// All amounts are rounded to cents (half-up) at every aggregation step, so
// an incrementally maintained running total always matches a from-scratch
// recomputation over the same items.
package money

import "github.com/shopspring/decimal"

// TaxRate is the fixed IVA rate applied to every order subtotal.
var TaxRate = decimal.NewFromFloat(0.16)

var hundred = decimal.NewFromInt(100)

// Round2 rounds to 2 decimal places using half-up rounding.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// LineTotal returns unit price times quantity, rounded to cents.
func LineTotal(unitPrice decimal.Decimal, quantity int32) decimal.Decimal {
	return Round2(unitPrice.Mul(decimal.NewFromInt32(quantity)))
}

// Tax returns the tax owed on a subtotal.
func Tax(subtotal decimal.Decimal) decimal.Decimal {
	return Round2(subtotal.Mul(TaxRate))
}

// Total returns subtotal plus tax, rounded to cents.
func Total(subtotal, tax decimal.Decimal) decimal.Decimal {
	return Round2(subtotal.Add(tax))
}

// FixedDiscount caps a fixed-amount discount at the subtotal so the payable
// amount can never go negative. Negative inputs are treated as zero.
func FixedDiscount(amount, subtotal decimal.Decimal) decimal.Decimal {
	if amount.IsNegative() {
		return decimal.Zero
	}
	if amount.GreaterThan(subtotal) {
		return Round2(subtotal)
	}
	return Round2(amount)
}

// PercentDiscount computes a percentage discount on the subtotal.
// The percentage is clamped to [0, 100].
func PercentDiscount(pct, subtotal decimal.Decimal) decimal.Decimal {
	if pct.IsNegative() {
		return decimal.Zero
	}
	if pct.GreaterThan(hundred) {
		pct = hundred
	}
	return Round2(pct.Div(hundred).Mul(subtotal))
}

// FinalPayable is what the customer actually pays: total minus discount plus
// tip. The tip is additive after the discount and is never taxed.
func FinalPayable(total, discount, tip decimal.Decimal) decimal.Decimal {
	return Round2(total.Sub(discount).Add(tip))
}
