package invoicing

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Totals holds the computed money figures of an invoice.
type Totals struct {
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	TaxRate  decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// ComputeTotals applies the invoice arithmetic:
//
//	subtotal = Σ line totals
//	tax      = (subtotal - discount) × taxRate / 100
//	total    = subtotal - discount + tax
//
// Values are exact; nothing is rounded.
func ComputeTotals(items []LineItem, discount, taxRate decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.Total())
	}
	return TotalsFor(subtotal, discount, taxRate)
}

// TotalsFor derives tax and total from an already summed subtotal.
func TotalsFor(subtotal, discount, taxRate decimal.Decimal) Totals {
	net := subtotal.Sub(discount)
	tax := net.Mul(taxRate).Div(hundred)
	return Totals{
		Subtotal: subtotal,
		Discount: discount,
		TaxRate:  taxRate,
		Tax:      tax,
		Total:    net.Add(tax),
	}
}
