package quote

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrProductNotFound indicates the product index does not exist in the quote.
	ErrProductNotFound = errors.New("product not found in quote")
	// ErrVariantNotFound indicates the variant id does not exist in the quote.
	ErrVariantNotFound = errors.New("variant not found in quote")
	// ErrReasonNotFound indicates the discount reason id is not part of the catalog.
	ErrReasonNotFound = errors.New("discount reason not found")
)

// Quote is a full snapshot of an offer as loaded from the store: product
// groups with their variant alternatives, optional finishing per group,
// aggregate costs and the chosen fulfillment. Editing sessions own a deep
// copy and never mutate a shared instance.
type Quote struct {
	ID       int64     `json:"id"`
	Number   string    `json:"number"`
	Status   string    `json:"status"`
	ClientID int64     `json:"clientId"`
	Client   Client    `json:"client"`
	Products []Product `json:"products"`
	Costs    Costs     `json:"costs"`

	Fulfillment Fulfillment `json:"fulfillment"`
	Config      Config      `json:"config"`
}

// Product is one line group of the quote. Index is 1-based and stable for
// the lifetime of the quote.
type Product struct {
	Index     int        `json:"index"`
	Name      string     `json:"name"`
	Variants  []Variant  `json:"variants"`
	Finishing *Finishing `json:"finishing,omitempty"`
	Quantity  int        `json:"quantity"`
}

// Variant is one priced material/class alternative for a product group.
// Original prices survive discount application; Final carries the effective
// price after the current discount.
type Variant struct {
	ID              int64           `json:"id"`
	Material        string          `json:"material"`
	Class           string          `json:"class"`
	OriginalPrice   Cost            `json:"originalPrice"`
	FinalPrice      Cost            `json:"finalPrice"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
	ReasonID        *int64          `json:"reasonId,omitempty"`
	Selected        bool            `json:"selected"`
	VisibleToClient bool            `json:"visibleToClient"`
	Quantity        int             `json:"quantity"`
}

// Finishing is the optional surface treatment for a product group. Price is
// the total for Quantity pieces, not a unit price. OriginalPrice is captured
// before the first order discount touches the finishing so later discounts
// rescale from the same base.
type Finishing struct {
	Type          string `json:"type"`
	Color         string `json:"color"`
	Method        string `json:"method"`
	Price         Cost   `json:"price"`
	OriginalPrice Cost   `json:"originalPrice"`
	Quantity      int    `json:"quantity"`
}

// DiscountReason is a catalog entry justifying a non-zero discount.
type DiscountReason struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Client is the contact/delivery/invoice snapshot attached to the quote.
type Client struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Street      string `json:"street"`
	City        string `json:"city"`
	PostalCode  string `json:"postalCode"`
	InvoiceName string `json:"invoiceName"`
	InvoiceNIP  string `json:"invoiceNip"`
}

// Costs is the four-category aggregate derived from the current state.
type Costs struct {
	Products  Cost `json:"products"`
	Finishing Cost `json:"finishing"`
	Shipping  Cost `json:"shipping"`
	Total     Cost `json:"total"`
}

// Fulfillment carries the chosen delivery method and the quote-level base
// shipping cost captured at load time.
type Fulfillment struct {
	DeliveryMethod   string `json:"deliveryMethod"`
	BaseShippingCost Cost   `json:"baseShippingCost"`
}

// Config lists the order parameters the platform accepts for this quote.
type Config struct {
	OrderSources    []ConfigOption `json:"orderSources"`
	OrderStatuses   []ConfigOption `json:"orderStatuses"`
	PaymentMethods  []string       `json:"paymentMethods"`
	DeliveryMethods []string       `json:"deliveryMethods"`
}

// ConfigOption is an id/name pair offered by the platform configuration.
type ConfigOption struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Product returns the product group with the given 1-based index.
func (q *Quote) Product(index int) (*Product, error) {
	for i := range q.Products {
		if q.Products[i].Index == index {
			return &q.Products[i], nil
		}
	}
	return nil, fmt.Errorf("product index %d: %w", index, ErrProductNotFound)
}

// FindVariant locates a variant by id anywhere in the quote and returns it
// together with its owning product.
func (q *Quote) FindVariant(variantID int64) (*Variant, *Product, error) {
	for i := range q.Products {
		p := &q.Products[i]
		for j := range p.Variants {
			if p.Variants[j].ID == variantID {
				return &p.Variants[j], p, nil
			}
		}
	}
	return nil, nil, fmt.Errorf("variant %d: %w", variantID, ErrVariantNotFound)
}

// SelectedVariant returns the variant currently marked as selected. Exactly
// one variant per product is selected after Normalize.
func (p *Product) SelectedVariant() (*Variant, error) {
	for i := range p.Variants {
		if p.Variants[i].Selected {
			return &p.Variants[i], nil
		}
	}
	return nil, fmt.Errorf("product index %d has no selected variant: %w", p.Index, ErrVariantNotFound)
}

// ResolvedQuantity resolves the effective quantity for the product group.
// Resolution order: finishing quantity, then selected variant quantity,
// then the product quantity, defaulting to 1. Non-positive values are
// treated as absent.
func (p *Product) ResolvedQuantity() int {
	if p.Finishing != nil && p.Finishing.Quantity > 0 {
		return p.Finishing.Quantity
	}
	if v, err := p.SelectedVariant(); err == nil && v.Quantity > 0 {
		return v.Quantity
	}
	if p.Quantity > 0 {
		return p.Quantity
	}
	return 1
}

// Normalize repairs the selection invariant after load: when the source data
// marks zero or several variants as selected, the first variant in
// declaration order wins. Returns the number of products that were repaired.
func (q *Quote) Normalize() int {
	repaired := 0
	for i := range q.Products {
		p := &q.Products[i]
		if len(p.Variants) == 0 {
			continue
		}
		selected := 0
		for j := range p.Variants {
			if p.Variants[j].Selected {
				selected++
			}
		}
		if selected == 1 {
			continue
		}
		for j := range p.Variants {
			p.Variants[j].Selected = j == 0
		}
		repaired++
	}
	return repaired
}

// Select marks the given variant as selected and clears the flag on its
// siblings, preserving the one-selected-per-product invariant.
func (q *Quote) Select(variantID int64) (*Variant, error) {
	variant, product, err := q.FindVariant(variantID)
	if err != nil {
		return nil, err
	}
	for i := range product.Variants {
		product.Variants[i].Selected = product.Variants[i].ID == variantID
	}
	return variant, nil
}

// Clone returns a deep copy of the quote for session ownership.
func (q *Quote) Clone() *Quote {
	clone := *q
	clone.Products = make([]Product, len(q.Products))
	for i, p := range q.Products {
		cp := p
		cp.Variants = append([]Variant(nil), p.Variants...)
		for j := range cp.Variants {
			if r := cp.Variants[j].ReasonID; r != nil {
				id := *r
				cp.Variants[j].ReasonID = &id
			}
		}
		if p.Finishing != nil {
			f := *p.Finishing
			cp.Finishing = &f
		}
		clone.Products[i] = cp
	}
	clone.Config.OrderSources = append([]ConfigOption(nil), q.Config.OrderSources...)
	clone.Config.OrderStatuses = append([]ConfigOption(nil), q.Config.OrderStatuses...)
	clone.Config.PaymentMethods = append([]string(nil), q.Config.PaymentMethods...)
	clone.Config.DeliveryMethods = append([]string(nil), q.Config.DeliveryMethods...)
	return &clone
}

// IsRaw reports whether the finishing denotes an untreated surface, which
// carries no finishing cost.
func (f *Finishing) IsRaw() bool {
	if f == nil {
		return true
	}
	t := strings.TrimSpace(f.Type)
	return t == "" || strings.EqualFold(t, "raw") || strings.EqualFold(t, "surowe")
}
