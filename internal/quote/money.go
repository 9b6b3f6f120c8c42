package quote

import "github.com/shopspring/decimal"

// DefaultVATRate is the statutory VAT rate applied across the quote domain.
// Centralised here so every conversion between net and gross uses one value.
var DefaultVATRate = decimal.NewFromFloat(0.23)

// Cost is a net/gross pair. Values are kept at full precision during
// accumulation; rounding to two decimals happens only when displaying.
type Cost struct {
	Net   decimal.Decimal `json:"net"`
	Gross decimal.Decimal `json:"gross"`
}

// ZeroCost returns a cost with both components at zero.
func ZeroCost() Cost {
	return Cost{Net: decimal.Zero, Gross: decimal.Zero}
}

// Add returns the component-wise sum of two costs.
func (c Cost) Add(other Cost) Cost {
	return Cost{Net: c.Net.Add(other.Net), Gross: c.Gross.Add(other.Gross)}
}

// Mul scales both components by the provided factor.
func (c Cost) Mul(factor decimal.Decimal) Cost {
	return Cost{Net: c.Net.Mul(factor), Gross: c.Gross.Mul(factor)}
}

// IsZero reports whether both components are zero.
func (c Cost) IsZero() bool {
	return c.Net.IsZero() && c.Gross.IsZero()
}

// Display renders both components rounded to two decimal places.
func (c Cost) Display() (net, gross string) {
	return c.Net.StringFixed(2), c.Gross.StringFixed(2)
}

// CostFromNet derives the gross component from a net value using the rate.
func CostFromNet(net, vatRate decimal.Decimal) Cost {
	return Cost{Net: net, Gross: net.Mul(decimal.NewFromInt(1).Add(vatRate))}
}

// CostFromGross derives the net component from a gross value using the rate.
// The platform only reports gross shipping cost, so net is backed out of it.
func CostFromGross(gross, vatRate decimal.Decimal) Cost {
	return Cost{Net: gross.Div(decimal.NewFromInt(1).Add(vatRate)), Gross: gross}
}
