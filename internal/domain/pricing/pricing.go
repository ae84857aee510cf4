// Package pricing computes cart totals. Every function is pure and is meant
// to be called on each read so totals never go stale.
package pricing

import (
	"github.com/sangkips/quoteflow-api/internal/domain/enum"
	"github.com/sangkips/quoteflow-api/pkg/apperror"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Line is the pricing view of one cart line
type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

// Total returns unitPrice × quantity
func (l Line) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// DiscountPolicy describes a discount. Percentage values are not clamped at
// input; their effect is clamped when computed.
type DiscountPolicy struct {
	Type  enum.DiscountType `json:"type"`
	Value decimal.Decimal   `json:"value"`
}

// NoDiscount is the zero amount discount
func NoDiscount() DiscountPolicy {
	return DiscountPolicy{Type: enum.DiscountTypeAmount, Value: decimal.Zero}
}

// Validate rejects negative values and unknown discount types
func (p DiscountPolicy) Validate() error {
	if !p.Type.IsValid() {
		return apperror.NewFieldValidationError("discount_type", "must be amount or percentage")
	}
	if p.Value.IsNegative() {
		return apperror.NewFieldValidationError("discount", "must not be negative")
	}
	return nil
}

// Totals is the full set of derived amounts for a cart
type Totals struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	FinalTotal     decimal.Decimal `json:"final_total"`
	VATAmount      decimal.Decimal `json:"vat_amount"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
}

// Subtotal returns Σ unitPrice × quantity
func Subtotal(lines []Line) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.Total())
	}
	return sum
}

// DiscountAmount returns the discount policy's effect on subtotal, never more
// than subtotal and never negative
func DiscountAmount(subtotal decimal.Decimal, policy DiscountPolicy) decimal.Decimal {
	if subtotal.Sign() <= 0 || policy.Value.Sign() <= 0 {
		return decimal.Zero
	}
	var amount decimal.Decimal
	switch policy.Type {
	case enum.DiscountTypePercentage:
		amount = subtotal.Mul(policy.Value).Div(hundred)
	default:
		amount = policy.Value
	}
	return decimal.Min(amount, subtotal)
}

// FinalTotal returns max(0, subtotal − discount)
func FinalTotal(subtotal, discount decimal.Decimal) decimal.Decimal {
	return decimal.Max(decimal.Zero, subtotal.Sub(discount))
}

// VATAmount returns vatPercentage of the discounted total. VAT rules
// themselves are supplied by the backend.
func VATAmount(finalTotal, vatPercentage decimal.Decimal) decimal.Decimal {
	if vatPercentage.Sign() <= 0 {
		return decimal.Zero
	}
	return finalTotal.Mul(vatPercentage).Div(hundred).Round(2)
}

// Compute derives every total for lines under policy and vat
func Compute(lines []Line, policy DiscountPolicy, vatPercentage decimal.Decimal) Totals {
	subtotal := Subtotal(lines)
	discount := DiscountAmount(subtotal, policy)
	final := FinalTotal(subtotal, discount)
	vat := VATAmount(final, vatPercentage)
	return Totals{
		Subtotal:       subtotal,
		DiscountAmount: discount,
		FinalTotal:     final,
		VATAmount:      vat,
		TotalAmount:    final.Add(vat),
	}
}
