// Package pricing computes the chargeable total for a private chat.
//
// Every intermediate amount is rounded to cents with round-half-even before it is
// used again, so the total is always Subtotal + TaxAmount exactly.
package pricing

import "github.com/shopspring/decimal"

const places = 2

var hundred = decimal.NewFromInt(100)

type Quote struct {
	BasePrice   decimal.Decimal `json:"base_price"`
	PlatformFee decimal.Decimal `json:"platform_fee"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	TaxAmount   decimal.Decimal `json:"tax_amount"`
	Total       decimal.Decimal `json:"total"`
}

// NewQuote is pure. Callers reject a negative base price before calling it.
func NewQuote(base, platformFee, taxRate decimal.Decimal) Quote {
	subtotal := round(base.Add(platformFee))
	tax := round(subtotal.Mul(taxRate))
	return Quote{
		BasePrice:   base,
		PlatformFee: platformFee,
		Subtotal:    subtotal,
		TaxAmount:   tax,
		Total:       round(subtotal.Add(tax)),
	}
}

// AmountCents is the total in the currency's minor unit, as gateways expect it.
func (q Quote) AmountCents() int64 {
	return q.Total.Mul(hundred).IntPart()
}

func round(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(places)
}
