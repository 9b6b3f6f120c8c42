package quote

import (
	"testing"

	"github.com/shopspring/decimal"
)

func money(net, gross string) Cost {
	return Cost{Net: decimal.RequireFromString(net), Gross: decimal.RequireFromString(gross)}
}

func twoVariantQuote() *Quote {
	return &Quote{
		ID:     1,
		Number: "OF/2026/001",
		Products: []Product{
			{
				Index: 1,
				Name:  "Sofa Porto",
				Variants: []Variant{
					{ID: 11, Material: "Tkanina A", OriginalPrice: money("100", "123"), FinalPrice: money("100", "123"), Selected: true, Quantity: 3},
					{ID: 12, Material: "Tkanina B", OriginalPrice: money("150", "184.5"), FinalPrice: money("150", "184.5"), Quantity: 3},
				},
			},
		},
	}
}

func TestNormalizeRepairsZeroSelection(t *testing.T) {
	q := twoVariantQuote()
	q.Products[0].Variants[0].Selected = false

	if repaired := q.Normalize(); repaired != 1 {
		t.Fatalf("expected 1 repaired product, got %d", repaired)
	}
	if !q.Products[0].Variants[0].Selected {
		t.Fatal("first variant should be selected after repair")
	}
	if q.Products[0].Variants[1].Selected {
		t.Fatal("second variant should not be selected after repair")
	}
}

func TestNormalizeRepairsMultipleSelection(t *testing.T) {
	q := twoVariantQuote()
	q.Products[0].Variants[1].Selected = true

	if repaired := q.Normalize(); repaired != 1 {
		t.Fatalf("expected 1 repaired product, got %d", repaired)
	}
	selected := 0
	for _, v := range q.Products[0].Variants {
		if v.Selected {
			selected++
		}
	}
	if selected != 1 {
		t.Fatalf("expected exactly one selected variant, got %d", selected)
	}
}

func TestNormalizeLeavesValidSelection(t *testing.T) {
	q := twoVariantQuote()
	if repaired := q.Normalize(); repaired != 0 {
		t.Fatalf("expected no repairs, got %d", repaired)
	}
}

func TestSelectPreservesInvariant(t *testing.T) {
	q := twoVariantQuote()
	v, err := q.Select(12)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if v.ID != 12 {
		t.Fatalf("expected variant 12, got %d", v.ID)
	}
	if q.Products[0].Variants[0].Selected {
		t.Fatal("previous selection should be cleared")
	}
	if !q.Products[0].Variants[1].Selected {
		t.Fatal("new selection should be set")
	}
}

func TestSelectUnknownVariant(t *testing.T) {
	q := twoVariantQuote()
	if _, err := q.Select(999); err == nil {
		t.Fatal("expected error for unknown variant")
	}
}

func TestResolvedQuantityFinishingWins(t *testing.T) {
	q := twoVariantQuote()
	p := &q.Products[0]
	p.Quantity = 7
	p.Finishing = &Finishing{Type: "Lakier", Quantity: 2}
	if got := p.ResolvedQuantity(); got != 2 {
		t.Fatalf("expected finishing quantity 2, got %d", got)
	}
}

func TestResolvedQuantityFallsBackThroughChain(t *testing.T) {
	q := twoVariantQuote()
	p := &q.Products[0]

	// finishing present but non-positive quantity falls through to variant
	p.Finishing = &Finishing{Type: "Lakier", Quantity: 0}
	if got := p.ResolvedQuantity(); got != 3 {
		t.Fatalf("expected variant quantity 3, got %d", got)
	}

	p.Finishing = nil
	p.Variants[0].Quantity = 0
	p.Quantity = 5
	if got := p.ResolvedQuantity(); got != 5 {
		t.Fatalf("expected product quantity 5, got %d", got)
	}

	p.Quantity = 0
	if got := p.ResolvedQuantity(); got != 1 {
		t.Fatalf("expected default quantity 1, got %d", got)
	}
}

func TestCloneIsDeep(t *testing.T) {
	q := twoVariantQuote()
	reason := int64(4)
	q.Products[0].Variants[0].ReasonID = &reason
	q.Products[0].Finishing = &Finishing{Type: "Olej", Price: money("10", "12.3"), Quantity: 3}
	q.Config.PaymentMethods = []string{"Przelew"}

	clone := q.Clone()
	clone.Products[0].Variants[0].FinalPrice = money("1", "1.23")
	*clone.Products[0].Variants[0].ReasonID = 99
	clone.Products[0].Finishing.Type = "Lakier"
	clone.Config.PaymentMethods[0] = "Raty"

	if !q.Products[0].Variants[0].FinalPrice.Net.Equal(decimal.RequireFromString("100")) {
		t.Fatal("clone mutation leaked into original variant price")
	}
	if *q.Products[0].Variants[0].ReasonID != 4 {
		t.Fatal("clone mutation leaked into original reason id")
	}
	if q.Products[0].Finishing.Type != "Olej" {
		t.Fatal("clone mutation leaked into original finishing")
	}
	if q.Config.PaymentMethods[0] != "Przelew" {
		t.Fatal("clone mutation leaked into original config")
	}
}

func TestFinishingIsRaw(t *testing.T) {
	cases := []struct {
		finishing *Finishing
		want      bool
	}{
		{nil, true},
		{&Finishing{Type: ""}, true},
		{&Finishing{Type: "  "}, true},
		{&Finishing{Type: "raw"}, true},
		{&Finishing{Type: "Surowe"}, true},
		{&Finishing{Type: "Lakier"}, false},
	}
	for _, tc := range cases {
		if got := tc.finishing.IsRaw(); got != tc.want {
			t.Fatalf("IsRaw(%+v) = %v, want %v", tc.finishing, got, tc.want)
		}
	}
}
