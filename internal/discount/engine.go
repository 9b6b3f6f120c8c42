package discount

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mebleko/backend-oferta/internal/quote"
)

var (
	// ErrPercentOutOfRange is returned when the discount percent is outside [-100, 100].
	ErrPercentOutOfRange = errors.New("discount percent out of range")
	// ErrReasonRequired is returned when a non-zero order discount has no reason.
	ErrReasonRequired = errors.New("discount reason required")
)

var (
	hundred    = decimal.NewFromInt(100)
	one        = decimal.NewFromInt(1)
	maxPercent = decimal.NewFromInt(100)
)

// Engine applies bounded percentage discounts to single variants or to the
// whole quote. It mutates variant final prices and, on request, finishing
// prices; original prices and the selection state are never touched.
type Engine struct {
	Reasons []quote.DiscountReason
}

// OrderResult reports how many variants an order-level discount touched.
type OrderResult struct {
	AffectedVariants   int
	AffectedFinishings int
}

// ApplyVariantDiscount recomputes the final price of a single variant from
// its preserved original price. Percent may be negative (markup). A zero
// percent restores the original price and clears the reason association.
func (e *Engine) ApplyVariantDiscount(q *quote.Quote, variantID int64, percent decimal.Decimal, reasonID *int64, visible bool) (*quote.Variant, error) {
	if err := checkPercent(percent); err != nil {
		return nil, err
	}
	if err := e.checkReason(reasonID); err != nil {
		return nil, err
	}
	variant, _, err := q.FindVariant(variantID)
	if err != nil {
		return nil, err
	}
	variant.FinalPrice = discounted(variant.OriginalPrice, percent)
	variant.DiscountPercent = percent
	variant.VisibleToClient = visible
	if percent.IsZero() {
		variant.ReasonID = nil
	} else {
		variant.ReasonID = reasonID
	}
	return variant, nil
}

// ApplyOrderDiscount applies one multiplier to every variant of every
// product in the quote, selected or not, so a later variant swap keeps the
// discount. Finishing prices are only scaled when includeFinishing is set,
// always from their captured original so repeated applications never
// compound; shipping is never discounted here. A non-zero percent requires
// a reason.
func (e *Engine) ApplyOrderDiscount(q *quote.Quote, percent decimal.Decimal, reasonID *int64, includeFinishing bool) (OrderResult, error) {
	if err := checkPercent(percent); err != nil {
		return OrderResult{}, err
	}
	if !percent.IsZero() && reasonID == nil {
		return OrderResult{}, ErrReasonRequired
	}
	if err := e.checkReason(reasonID); err != nil {
		return OrderResult{}, err
	}
	var res OrderResult
	for i := range q.Products {
		p := &q.Products[i]
		for j := range p.Variants {
			v := &p.Variants[j]
			v.FinalPrice = discounted(v.OriginalPrice, percent)
			v.DiscountPercent = percent
			if percent.IsZero() {
				v.ReasonID = nil
			} else {
				v.ReasonID = reasonID
			}
			res.AffectedVariants++
		}
		if includeFinishing && p.Finishing != nil && !p.Finishing.IsRaw() {
			if p.Finishing.OriginalPrice.IsZero() {
				p.Finishing.OriginalPrice = p.Finishing.Price
			}
			p.Finishing.Price = discounted(p.Finishing.OriginalPrice, percent)
			res.AffectedFinishings++
		}
	}
	return res, nil
}

// discounted computes price * (1 - percent/100) for net and gross
// independently, leaving the input untouched.
func discounted(original quote.Cost, percent decimal.Decimal) quote.Cost {
	factor := one.Sub(percent.Div(hundred))
	return original.Mul(factor)
}

func checkPercent(percent decimal.Decimal) error {
	if percent.Abs().GreaterThan(maxPercent) {
		return fmt.Errorf("percent %s: %w", percent.String(), ErrPercentOutOfRange)
	}
	return nil
}

// checkReason validates the reason id against the loaded catalog when one is
// provided. An empty catalog skips the check so engines built without a
// catalog stay usable in tests.
func (e *Engine) checkReason(reasonID *int64) error {
	if reasonID == nil || len(e.Reasons) == 0 {
		return nil
	}
	for _, r := range e.Reasons {
		if r.ID == *reasonID {
			return nil
		}
	}
	return fmt.Errorf("reason %d: %w", *reasonID, quote.ErrReasonNotFound)
}
