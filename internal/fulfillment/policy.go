package fulfillment

import (
	"strings"

	"github.com/mebleko/backend-oferta/internal/quote"
)

// selfPickupMarkers is the fixed vocabulary matched case-insensitively
// against the delivery method name. Both the accented and plain spellings of
// the Polish "odbiór" appear because the platform is inconsistent about
// diacritics.
var selfPickupMarkers = []string{"odbiór", "odbior", "personal", "pickup"}

// Policy maps a delivery method to the shipping cost the quote should carry.
// The base cost is captured once when the editing session starts and never
// mutated, so toggling between pickup and courier any number of times always
// restores the same value.
type Policy struct {
	BaseShippingCost quote.Cost
}

// IsSelfPickup reports whether the method denotes customer collection.
func IsSelfPickup(method string) bool {
	m := strings.ToLower(strings.TrimSpace(method))
	if m == "" {
		return false
	}
	for _, marker := range selfPickupMarkers {
		if strings.Contains(m, marker) {
			return true
		}
	}
	return false
}

// ResolveShippingCost returns zero for self-pickup methods and the immutable
// base cost for everything else.
func (p Policy) ResolveShippingCost(method string) quote.Cost {
	if IsSelfPickup(method) {
		return quote.ZeroCost()
	}
	return p.BaseShippingCost
}
