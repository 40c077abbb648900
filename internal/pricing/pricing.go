// Package pricing derives cart totals from line items and a selection.
// Every function here is pure.
package pricing

import (
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/phuocduongts/storefront/internal/config"
	"github.com/phuocduongts/storefront/internal/models"
)

// Amount is money in the smallest currency unit.
type Amount int64

// String formats the amount with dot thousands separators, e.g. 1.250.000.
func (a Amount) String() string {
	n := int64(a)
	neg := n < 0
	if neg {
		n = -n
	}

	digits := strconv.FormatInt(n, 10)
	out := make([]byte, 0, len(digits)+len(digits)/3+1)
	if neg {
		out = append(out, '-')
	}
	for i, d := range []byte(digits) {
		if i > 0 && (len(digits)-i)%3 == 0 {
			out = append(out, '.')
		}
		out = append(out, d)
	}
	return string(out)
}

type Totals struct {
	Subtotal Amount `json:"subtotal"`
	Shipping Amount `json:"shipping"`
	Total    Amount `json:"total"`
}

// Policy is the shipping fee rule: free strictly above FreeThreshold, Fee
// otherwise. An empty selection ships nothing and costs nothing.
type Policy struct {
	FreeThreshold Amount
	Fee           Amount
}

// DefaultPolicy never charges shipping.
var DefaultPolicy = Policy{FreeThreshold: 500000, Fee: 0}

func PolicyFromConfig(cfg config.ShippingConfig) Policy {
	return Policy{FreeThreshold: Amount(cfg.FreeThreshold), Fee: Amount(cfg.Fee)}
}

func (p Policy) Shipping(subtotal Amount) Amount {
	if subtotal <= 0 || subtotal > p.FreeThreshold {
		return 0
	}
	return p.Fee
}

// Selected reports whether a line item id is part of the selection.
type Selected interface {
	Contains(id int64) bool
}

// EffectivePrice picks the discount price, then the sale price, then the list
// price. A candidate counts only when present and positive; none gives 0.
func EffectivePrice(p models.Product) Amount {
	for _, c := range []decimal.NullDecimal{
		p.DiscountPrice,
		p.PriceSale,
		{Decimal: p.Price, Valid: true},
	} {
		if c.Valid && c.Decimal.IsPositive() {
			return Amount(c.Decimal.Round(0).IntPart())
		}
	}
	return 0
}

// ComputeTotals sums effective price times quantity over the selected items.
// Selected ids without a matching item are ignored.
func ComputeTotals(items []models.LineItem, selected Selected, policy Policy) Totals {
	var subtotal Amount
	for _, it := range items {
		if selected == nil || !selected.Contains(it.ID) {
			continue
		}
		subtotal += EffectivePrice(it.Product) * Amount(it.Quantity)
	}

	shipping := policy.Shipping(subtotal)
	return Totals{
		Subtotal: subtotal,
		Shipping: shipping,
		Total:    subtotal + shipping,
	}
}

type Calculator struct {
	Policy Policy
}

func (c Calculator) Compute(items []models.LineItem, selected Selected) Totals {
	return ComputeTotals(items, selected, c.Policy)
}
