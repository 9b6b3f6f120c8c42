package quote

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestCostArithmetic(t *testing.T) {
	a := money("100", "123")
	b := money("50", "61.5")

	sum := a.Add(b)
	if !sum.Net.Equal(decimal.RequireFromString("150")) || !sum.Gross.Equal(decimal.RequireFromString("184.5")) {
		t.Fatalf("unexpected sum %s/%s", sum.Net, sum.Gross)
	}

	tripled := a.Mul(decimal.NewFromInt(3))
	if !tripled.Net.Equal(decimal.RequireFromString("300")) || !tripled.Gross.Equal(decimal.RequireFromString("369")) {
		t.Fatalf("unexpected product %s/%s", tripled.Net, tripled.Gross)
	}

	if !ZeroCost().IsZero() {
		t.Fatal("zero cost should report zero")
	}
	if a.IsZero() {
		t.Fatal("non-zero cost should not report zero")
	}
}

func TestDisplayRoundsToTwoDecimals(t *testing.T) {
	c := Cost{
		Net:   decimal.RequireFromString("81.300813008130081"),
		Gross: decimal.RequireFromString("100"),
	}
	net, gross := c.Display()
	if net != "81.30" || gross != "100.00" {
		t.Fatalf("unexpected display %s/%s", net, gross)
	}
}

func TestCostFromNetAndGross(t *testing.T) {
	rate := decimal.RequireFromString("0.23")

	fromNet := CostFromNet(decimal.NewFromInt(100), rate)
	if !fromNet.Gross.Equal(decimal.RequireFromString("123")) {
		t.Fatalf("unexpected gross %s", fromNet.Gross)
	}

	fromGross := CostFromGross(decimal.NewFromInt(123), rate)
	if net, _ := fromGross.Display(); net != "100.00" {
		t.Fatalf("unexpected net %s", net)
	}
	if !fromGross.Gross.Equal(decimal.NewFromInt(123)) {
		t.Fatal("gross component must be preserved exactly")
	}
}
