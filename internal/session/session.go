package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/mebleko/backend-oferta/internal/costs"
	"github.com/mebleko/backend-oferta/internal/discount"
	"github.com/mebleko/backend-oferta/internal/draft"
	"github.com/mebleko/backend-oferta/internal/events"
	"github.com/mebleko/backend-oferta/internal/fulfillment"
	"github.com/mebleko/backend-oferta/internal/quote"
)

var (
	// ErrSubmitInFlight is returned when a submission is already outstanding.
	ErrSubmitInFlight = errors.New("order submission already in flight")
	// ErrAlreadySubmitted is returned for mutations after a successful submission.
	ErrAlreadySubmitted = errors.New("session already submitted")
	// ErrSessionClosed is returned when the session has been discarded.
	ErrSessionClosed = errors.New("session closed")
)

// State tracks where the editing session is in its lifecycle.
type State string

const (
	StateLoaded        State = "loaded"
	StateConfiguring   State = "configuring"
	StateReadyToSubmit State = "ready_to_submit"
	StateSubmitted     State = "submitted"
	StateClosed        State = "closed"
)

// PersistenceStore receives best-effort writes for individual edits. A
// failure here never rolls back the in-memory session; the caller is told
// and may keep working locally.
type PersistenceStore interface {
	SaveVariantDiscount(ctx context.Context, variantID int64, percent decimal.Decimal, reasonID *int64, visible bool) error
	SaveOrderDiscount(ctx context.Context, quoteID int64, percent decimal.Decimal, reasonID *int64, includeFinishing bool) (int, error)
	SaveVariantSelection(ctx context.Context, quoteID int64, variantID int64) error
	SaveClient(ctx context.Context, client quote.Client) error
}

// OrderSubmitter sends the validated draft to the external platform. This is
// the one call that must succeed server-side before the session terminates.
type OrderSubmitter interface {
	SubmitOrder(ctx context.Context, d draft.Draft) (draft.Receipt, error)
}

// Session owns one in-memory editing context for a quote: a deep copy of
// the snapshot, the chosen order configuration and the immutable base
// shipping cost. There is no shared state between sessions; all access to a
// single session is serialised by its mutex.
type Session struct {
	ID        uuid.UUID
	QuoteID   int64
	CreatedAt time.Time

	mu         sync.Mutex
	state      State
	submitting bool

	quote  *quote.Quote
	policy fulfillment.Policy
	engine *discount.Engine
	agg    costs.Aggregator

	orderSourceID  *int64
	orderStatusID  *int64
	paymentMethod  string
	deliveryMethod string
	editedClient   *quote.Client

	store     PersistenceStore
	submitter OrderSubmitter
	bus       *events.Bus
	logger    zerolog.Logger
}

// MutationResult reports the outcome of one in-memory edit. PersistWarning
// is set when the best-effort persistence call failed; the edit itself has
// already been applied.
type MutationResult struct {
	Costs          quote.Costs `json:"costs"`
	State          State       `json:"state"`
	PersistWarning string      `json:"persistWarning,omitempty"`
}

// Options wires the collaborators a session needs.
type Options struct {
	Store     PersistenceStore
	Submitter OrderSubmitter
	Engine    *discount.Engine
	Bus       *events.Bus
	VATRate   decimal.Decimal
	Logger    zerolog.Logger
}

// New builds a session around a deep copy of the loaded snapshot. The
// snapshot's selection invariant is repaired and the base shipping cost is
// captured once, before any delivery-method toggling can touch it.
func New(snapshot *quote.Quote, opts Options) *Session {
	q := snapshot.Clone()
	if repaired := q.Normalize(); repaired > 0 {
		opts.Logger.Warn().
			Int64("quote_id", q.ID).
			Int("repaired_products", repaired).
			Msg("selection invariant repaired on load")
	}
	base := q.Fulfillment.BaseShippingCost
	if base.IsZero() {
		base = q.Costs.Shipping
	}
	engine := opts.Engine
	if engine == nil {
		engine = &discount.Engine{}
	}
	s := &Session{
		ID:             uuid.New(),
		QuoteID:        q.ID,
		CreatedAt:      time.Now(),
		state:          StateLoaded,
		quote:          q,
		policy:         fulfillment.Policy{BaseShippingCost: base},
		engine:         engine,
		agg:            costs.New(opts.VATRate),
		deliveryMethod: q.Fulfillment.DeliveryMethod,
		store:          opts.Store,
		submitter:      opts.Submitter,
		bus:            opts.Bus,
		logger:         opts.Logger,
	}
	s.quote.Costs = s.agg.Recalculate(s.quote)
	return s
}

// Snapshot returns a deep copy of the session's current quote state for
// rendering. The copy keeps handlers from leaking mutable internals.
func (s *Session) Snapshot() (*quote.Quote, State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quote.Clone(), s.state
}

// ApplyVariantDiscount applies a bounded percentage discount to a single
// variant, recomputes costs and persists the edit best-effort.
func (s *Session) ApplyVariantDiscount(ctx context.Context, variantID int64, percent decimal.Decimal, reasonID *int64, visible bool) (MutationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mutable(); err != nil {
		return MutationResult{}, err
	}
	if _, err := s.engine.ApplyVariantDiscount(s.quote, variantID, percent, reasonID, visible); err != nil {
		return MutationResult{}, err
	}
	s.afterMutation()
	res := s.result()
	if s.store != nil {
		if err := s.store.SaveVariantDiscount(ctx, variantID, percent, reasonID, visible); err != nil {
			res.PersistWarning = persistWarning(err)
			s.logger.Warn().Err(err).Int64("variant_id", variantID).Msg("variant discount persisted locally only")
		}
	}
	s.audit(ctx, events.TopicDiscountApplied, map[string]any{
		"scope":     "variant",
		"variantId": variantID,
		"percent":   percent.String(),
	})
	return res, nil
}

// ApplyOrderDiscount applies one multiplier across every variant in the
// quote, optionally scaling finishing prices as well.
func (s *Session) ApplyOrderDiscount(ctx context.Context, percent decimal.Decimal, reasonID *int64, includeFinishing bool) (MutationResult, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mutable(); err != nil {
		return MutationResult{}, 0, err
	}
	out, err := s.engine.ApplyOrderDiscount(s.quote, percent, reasonID, includeFinishing)
	if err != nil {
		return MutationResult{}, 0, err
	}
	s.afterMutation()
	res := s.result()
	if s.store != nil {
		if _, err := s.store.SaveOrderDiscount(ctx, s.quote.ID, percent, reasonID, includeFinishing); err != nil {
			res.PersistWarning = persistWarning(err)
			s.logger.Warn().Err(err).Int64("quote_id", s.quote.ID).Msg("order discount persisted locally only")
		}
	}
	s.audit(ctx, events.TopicDiscountApplied, map[string]any{
		"scope":            "order",
		"percent":          percent.String(),
		"includeFinishing": includeFinishing,
		"affectedVariants": out.AffectedVariants,
	})
	return res, out.AffectedVariants, nil
}

// SelectVariant changes which variant of a product group the order will
// carry. Exactly one variant per product stays selected.
func (s *Session) SelectVariant(ctx context.Context, variantID int64) (MutationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mutable(); err != nil {
		return MutationResult{}, err
	}
	if _, err := s.quote.Select(variantID); err != nil {
		return MutationResult{}, err
	}
	s.afterMutation()
	res := s.result()
	if s.store != nil {
		if err := s.store.SaveVariantSelection(ctx, s.quote.ID, variantID); err != nil {
			res.PersistWarning = persistWarning(err)
			s.logger.Warn().Err(err).Int64("variant_id", variantID).Msg("variant selection persisted locally only")
		}
	}
	s.audit(ctx, events.TopicVariantSelected, map[string]any{"variantId": variantID})
	return res, nil
}

// SetDeliveryMethod switches the fulfillment method and lets the policy
// decide the shipping override. Toggling is idempotent with respect to the
// captured base cost.
func (s *Session) SetDeliveryMethod(ctx context.Context, method string) (MutationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mutable(); err != nil {
		return MutationResult{}, err
	}
	s.deliveryMethod = method
	s.quote.Fulfillment.DeliveryMethod = method
	s.quote.Costs.Shipping = s.policy.ResolveShippingCost(method)
	s.afterMutation()
	s.audit(ctx, events.TopicDeliveryChanged, map[string]any{
		"deliveryMethod": method,
		"selfPickup":     fulfillment.IsSelfPickup(method),
	})
	return s.result(), nil
}

// SetOrderConfig records the order parameters required for submission.
// Pointers keep a source/status id of 0 distinguishable from "unset".
func (s *Session) SetOrderConfig(_ context.Context, sourceID, statusID *int64, paymentMethod string) (MutationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mutable(); err != nil {
		return MutationResult{}, err
	}
	if sourceID != nil {
		s.orderSourceID = sourceID
	}
	if statusID != nil {
		s.orderStatusID = statusID
	}
	if paymentMethod != "" {
		s.paymentMethod = paymentMethod
	}
	s.afterMutation()
	return s.result(), nil
}

// UpdateClient replaces the client snapshot that will ship with the order
// draft and persists it best-effort. Unedited sessions reuse the original
// snapshot unchanged.
func (s *Session) UpdateClient(ctx context.Context, client quote.Client) (MutationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mutable(); err != nil {
		return MutationResult{}, err
	}
	if client.ID == 0 {
		client.ID = s.quote.Client.ID
	}
	s.editedClient = &client
	s.afterMutation()
	res := s.result()
	if s.store != nil {
		if err := s.store.SaveClient(ctx, client); err != nil {
			res.PersistWarning = persistWarning(err)
			s.logger.Warn().Err(err).Int64("client_id", client.ID).Msg("client update persisted locally only")
		}
	}
	s.audit(ctx, events.TopicClientUpdated, map[string]any{"clientId": client.ID})
	return res, nil
}

// BuildDraft validates the configuration and assembles the submission
// payload without side effects.
func (s *Session) BuildDraft() (draft.Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buildDraftLocked()
}

func (s *Session) buildDraftLocked() (draft.Draft, error) {
	return draft.Build(draft.Input{
		Quote:          s.quote,
		OrderSourceID:  s.orderSourceID,
		OrderStatusID:  s.orderStatusID,
		PaymentMethod:  s.paymentMethod,
		DeliveryMethod: s.deliveryMethod,
		ShippingCost:   s.quote.Costs.Shipping,
		EditedClient:   s.editedClient,
	}, fulfillment.IsSelfPickup)
}

// Submit builds the draft and sends it to the platform. At most one
// submission may be in flight; a second call while one is outstanding is
// rejected. Any failure returns the session to the configuring state.
func (s *Session) Submit(ctx context.Context) (draft.Receipt, error) {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return draft.Receipt{}, ErrSessionClosed
	}
	if s.state == StateSubmitted {
		s.mu.Unlock()
		return draft.Receipt{}, ErrAlreadySubmitted
	}
	if s.submitting {
		s.mu.Unlock()
		return draft.Receipt{}, ErrSubmitInFlight
	}
	d, err := s.buildDraftLocked()
	if err != nil {
		s.state = StateConfiguring
		s.mu.Unlock()
		return draft.Receipt{}, err
	}
	if s.submitter == nil {
		s.mu.Unlock()
		return draft.Receipt{}, errors.New("session: order submitter not configured")
	}
	s.state = StateReadyToSubmit
	s.submitting = true
	s.mu.Unlock()

	// The network call runs without the lock so reads and the in-flight
	// guard stay responsive.
	res, submitErr := s.submitter.SubmitOrder(ctx, d)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitting = false
	if submitErr != nil {
		s.state = StateConfiguring
		return draft.Receipt{}, fmt.Errorf("submit order for quote %d: %w", s.QuoteID, submitErr)
	}
	s.state = StateSubmitted
	s.logger.Info().
		Int64("quote_id", s.QuoteID).
		Int64("order_id", res.OrderID).
		Str("quote_number", res.QuoteNumber).
		Msg("order submitted")
	s.audit(ctx, events.TopicOrderSubmitted, map[string]any{
		"orderId":     res.OrderID,
		"quoteNumber": res.QuoteNumber,
	})
	return res, nil
}

// Close discards the in-memory state. Already persisted partial edits are
// intentionally left as they are.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateClosed
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Costs returns the current aggregate.
func (s *Session) Costs() quote.Costs {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quote.Costs
}

func (s *Session) mutable() error {
	switch s.state {
	case StateClosed:
		return ErrSessionClosed
	case StateSubmitted:
		return ErrAlreadySubmitted
	}
	if s.submitting {
		return ErrSubmitInFlight
	}
	return nil
}

// afterMutation recomputes the aggregate and keeps the state machine in the
// configuring self-loop.
func (s *Session) afterMutation() {
	s.quote.Costs = s.agg.Recalculate(s.quote)
	s.state = StateConfiguring
}

func (s *Session) result() MutationResult {
	return MutationResult{Costs: s.quote.Costs, State: s.state}
}

// audit records the edit on the quote's trail. Failures never fail the edit.
func (s *Session) audit(ctx context.Context, topic string, payload any) {
	if s.bus == nil {
		return
	}
	if _, err := s.bus.Emit(ctx, topic, s.QuoteID, payload); err != nil {
		s.logger.Warn().Err(err).Str("topic", topic).Int64("quote_id", s.QuoteID).Msg("audit event dropped")
	}
}

func persistWarning(err error) string {
	return fmt.Sprintf("saved locally only: %v", err)
}
