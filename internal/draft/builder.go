package draft

import (
	"fmt"
	"strings"

	"github.com/mebleko/backend-oferta/internal/quote"
)

// ValidationError carries every missing required field at once so the caller
// can surface all problems in a single round trip.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("order draft validation failed: missing %s", strings.Join(e.Fields, ", "))
}

// Input is the session state the builder reads. OrderSourceID and
// OrderStatusID are pointers because 0 is a legitimate platform id and must
// not be confused with "not chosen".
type Input struct {
	Quote          *quote.Quote
	OrderSourceID  *int64
	OrderStatusID  *int64
	PaymentMethod  string
	DeliveryMethod string
	ShippingCost   quote.Cost
	EditedClient   *quote.Client
}

// Line pins the variant the client ends up ordering for one product group.
type Line struct {
	ProductIndex int   `json:"productIndex"`
	VariantID    int64 `json:"variantId"`
	Quantity     int   `json:"quantity"`
}

// Draft is the validated submission payload for the order-management
// platform.
type Draft struct {
	QuoteID        int64        `json:"quoteId"`
	QuoteNumber    string       `json:"quoteNumber"`
	OrderSourceID  int64        `json:"orderSourceId"`
	OrderStatusID  int64        `json:"orderStatusId"`
	PaymentMethod  string       `json:"paymentMethod"`
	DeliveryMethod string       `json:"deliveryMethod"`
	SelfPickup     bool         `json:"selfPickup"`
	ShippingCost   quote.Cost   `json:"shippingCost"`
	Lines          []Line       `json:"lines"`
	Costs          quote.Costs  `json:"costs"`
	Client         quote.Client `json:"client"`
}

// Receipt is what the order-management platform returns for a successful
// submission.
type Receipt struct {
	OrderID     int64  `json:"orderId"`
	QuoteNumber string `json:"quoteNumber"`
}

// Build assembles the submission payload. Pure over its input: it performs
// no I/O and mutates nothing. When the edited client snapshot is nil the
// original one from the quote is reused unchanged.
func Build(in Input, isSelfPickup func(string) bool) (Draft, error) {
	var missing []string
	if in.Quote == nil {
		return Draft{}, &ValidationError{Fields: []string{"quote"}}
	}
	if in.OrderSourceID == nil {
		missing = append(missing, "orderSourceId")
	}
	if in.OrderStatusID == nil {
		missing = append(missing, "orderStatusId")
	}
	if strings.TrimSpace(in.PaymentMethod) == "" {
		missing = append(missing, "paymentMethod")
	}
	if strings.TrimSpace(in.DeliveryMethod) == "" {
		missing = append(missing, "deliveryMethod")
	}
	if len(missing) > 0 {
		return Draft{}, &ValidationError{Fields: missing}
	}

	lines := make([]Line, 0, len(in.Quote.Products))
	for i := range in.Quote.Products {
		p := &in.Quote.Products[i]
		v, err := p.SelectedVariant()
		if err != nil {
			return Draft{}, err
		}
		lines = append(lines, Line{
			ProductIndex: p.Index,
			VariantID:    v.ID,
			Quantity:     p.ResolvedQuantity(),
		})
	}

	client := in.Quote.Client
	if in.EditedClient != nil {
		client = *in.EditedClient
	}

	selfPickup := false
	if isSelfPickup != nil {
		selfPickup = isSelfPickup(in.DeliveryMethod)
	}

	return Draft{
		QuoteID:        in.Quote.ID,
		QuoteNumber:    in.Quote.Number,
		OrderSourceID:  *in.OrderSourceID,
		OrderStatusID:  *in.OrderStatusID,
		PaymentMethod:  in.PaymentMethod,
		DeliveryMethod: in.DeliveryMethod,
		SelfPickup:     selfPickup,
		ShippingCost:   in.ShippingCost,
		Lines:          lines,
		Costs:          in.Quote.Costs,
		Client:         client,
	}, nil
}
