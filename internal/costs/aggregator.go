package costs

import (
	"github.com/shopspring/decimal"

	"github.com/mebleko/backend-oferta/internal/quote"
)

// Aggregator derives the four-category cost aggregate from the current
// variant, finishing and shipping state of a quote. Gross totals are summed
// from already-gross line values rather than recomputed from net, so VAT is
// never applied twice.
type Aggregator struct {
	VATRate decimal.Decimal
}

// New returns an aggregator using the provided VAT rate, falling back to the
// domain default when the rate is zero.
func New(vatRate decimal.Decimal) Aggregator {
	if vatRate.IsZero() {
		vatRate = quote.DefaultVATRate
	}
	return Aggregator{VATRate: vatRate}
}

// Recalculate walks every product group and rebuilds the aggregate. Shipping
// is taken as-is from the quote's current costs; the fulfillment policy owns
// that value.
func (a Aggregator) Recalculate(q *quote.Quote) quote.Costs {
	products := quote.ZeroCost()
	finishing := quote.ZeroCost()
	for i := range q.Products {
		p := &q.Products[i]
		qty := decimal.NewFromInt(int64(p.ResolvedQuantity()))

		if v, err := p.SelectedVariant(); err == nil {
			products = products.Add(v.FinalPrice.Mul(qty))
		}

		if unit, ok := finishingUnitPrice(p); ok {
			finishing = finishing.Add(unit.Mul(qty))
		}
	}
	shipping := q.Costs.Shipping
	out := quote.Costs{
		Products:  products,
		Finishing: finishing,
		Shipping:  shipping,
	}
	out.Total = products.Add(finishing).Add(shipping)
	return out
}

// finishingUnitPrice converts the finishing total into a per-piece price.
// The stored price covers Finishing.Quantity pieces; a missing or zero
// quantity is treated as 1 to guard the division.
func finishingUnitPrice(p *quote.Product) (quote.Cost, bool) {
	f := p.Finishing
	if f.IsRaw() {
		return quote.Cost{}, false
	}
	qty := f.Quantity
	if qty <= 0 {
		qty = 1
	}
	div := decimal.NewFromInt(int64(qty))
	return quote.Cost{Net: f.Price.Net.Div(div), Gross: f.Price.Gross.Div(div)}, true
}

// ShippingFromGross resolves a shipping cost when the platform only reports
// the gross value.
func (a Aggregator) ShippingFromGross(gross decimal.Decimal) quote.Cost {
	return quote.CostFromGross(gross, a.VATRate)
}
