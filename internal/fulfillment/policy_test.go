package fulfillment

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mebleko/backend-oferta/internal/quote"
)

func TestIsSelfPickup(t *testing.T) {
	cases := []struct {
		method string
		want   bool
	}{
		{"Odbiór osobisty", true},
		{"odbior wlasny", true},
		{"Personal pickup", true},
		{"PICKUP", true},
		{"Kurier DPD", false},
		{"Transport własny", false},
		{"", false},
		{"   ", false},
	}
	for _, tc := range cases {
		if got := IsSelfPickup(tc.method); got != tc.want {
			t.Fatalf("IsSelfPickup(%q) = %v, want %v", tc.method, got, tc.want)
		}
	}
}

func TestResolveShippingCostTogglesIdempotently(t *testing.T) {
	base := quote.Cost{
		Net:   decimal.RequireFromString("20.33"),
		Gross: decimal.NewFromInt(25),
	}
	p := Policy{BaseShippingCost: base}

	if cost := p.ResolveShippingCost("Odbiór osobisty"); !cost.IsZero() {
		t.Fatalf("pickup should zero shipping, got %s/%s", cost.Net, cost.Gross)
	}

	cost := p.ResolveShippingCost("Kurier DPD")
	if !cost.Gross.Equal(base.Gross) || !cost.Net.Equal(base.Net) {
		t.Fatalf("courier should restore base cost, got %s/%s", cost.Net, cost.Gross)
	}

	// toggle several times; the base must never erode
	for i := 0; i < 5; i++ {
		p.ResolveShippingCost("Odbiór osobisty")
		cost = p.ResolveShippingCost("Kurier DPD")
	}
	if !cost.Gross.Equal(decimal.NewFromInt(25)) {
		t.Fatalf("base cost eroded after toggling: %s", cost.Gross)
	}
}
