package domain

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// TotalPrice derives a gross price from a net price, a VAT percentage and a
// discount percentage. The discount applies to the VAT-inclusive amount.
// The result is rounded to two places; with no VAT and no discount it equals net.
func TotalPrice(net, vatPct, discountPct decimal.Decimal) decimal.Decimal {
	vat := decimal.Zero
	if !vatPct.IsZero() {
		vat = net.Mul(vatPct.Div(hundred))
	}

	discount := decimal.Zero
	if !discountPct.IsZero() {
		discount = net.Add(vat).Mul(discountPct.Div(hundred))
	}

	return net.Add(vat).Sub(discount).Round(2)
}

// LineTotal multiplies a unit price by a quantity, rounded to two places.
func LineTotal(unit decimal.Decimal, quantity int64) decimal.Decimal {
	return unit.Mul(decimal.NewFromInt(quantity)).Round(2)
}
