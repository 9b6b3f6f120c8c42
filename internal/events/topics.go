package events

// Topic constants for the quote audit trail.
const (
	TopicDiscountApplied = "quote.discount_applied"
	TopicVariantSelected = "quote.variant_selected"
	TopicDeliveryChanged = "quote.delivery_changed"
	TopicClientUpdated   = "quote.client_updated"
	TopicOrderSubmitted  = "quote.order_submitted"
)

// DefaultTopics returns the canonical list of audited topics.
func DefaultTopics() []string {
	return []string{
		TopicDiscountApplied,
		TopicVariantSelected,
		TopicDeliveryChanged,
		TopicClientUpdated,
		TopicOrderSubmitted,
	}
}
