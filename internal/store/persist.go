package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mebleko/backend-oferta/internal/events"
	"github.com/mebleko/backend-oferta/internal/quote"
)

// SaveVariantDiscount persists a per-variant discount. Final prices are
// recomputed in SQL from the preserved originals so the store never drifts
// from the engine's formula.
func (s *Store) SaveVariantDiscount(ctx context.Context, variantID int64, percent decimal.Decimal, reasonID *int64, visible bool) error {
	if s == nil || s.Pool == nil {
		return errors.New("store not configured")
	}
	const query = `
		UPDATE quote_variants SET
			discount_percent = $2,
			reason_id = CASE WHEN $2::numeric = 0 THEN NULL ELSE $3 END,
			visible = $4,
			final_net = price_net * (1 - $2::numeric / 100),
			final_gross = price_gross * (1 - $2::numeric / 100)
		WHERE id = $1
		RETURNING quote_id`
	var quoteID int64
	if err := s.Pool.QueryRow(ctx, query, variantID, percent.String(), reasonID, visible).Scan(&quoteID); err != nil {
		return fmt.Errorf("save variant %d discount: %w", variantID, err)
	}
	s.invalidate(ctx, quoteID)
	return nil
}

// SaveOrderDiscount persists a whole-order discount across every variant of
// the quote and, when requested, its finishings. Returns the number of
// variants affected.
func (s *Store) SaveOrderDiscount(ctx context.Context, quoteID int64, percent decimal.Decimal, reasonID *int64, includeFinishing bool) (int, error) {
	if s == nil || s.Pool == nil {
		return 0, errors.New("store not configured")
	}
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("save order discount: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	const variantQuery = `
		UPDATE quote_variants SET
			discount_percent = $2,
			reason_id = CASE WHEN $2::numeric = 0 THEN NULL ELSE $3 END,
			final_net = price_net * (1 - $2::numeric / 100),
			final_gross = price_gross * (1 - $2::numeric / 100)
		WHERE quote_id = $1`
	tag, err := tx.Exec(ctx, variantQuery, quoteID, percent.String(), reasonID)
	if err != nil {
		return 0, fmt.Errorf("save order discount for quote %d: %w", quoteID, err)
	}
	affected := int(tag.RowsAffected())

	if includeFinishing {
		const finishingQuery = `
			UPDATE quote_finishings SET
				price_net = price_net * (1 - $2::numeric / 100),
				price_gross = price_gross * (1 - $2::numeric / 100)
			WHERE quote_id = $1
			  AND lower(type) NOT IN ('raw', 'surowe') AND type <> ''`
		if _, err := tx.Exec(ctx, finishingQuery, quoteID, percent.String()); err != nil {
			return 0, fmt.Errorf("save finishing discount for quote %d: %w", quoteID, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("save order discount for quote %d: %w", quoteID, err)
	}
	s.invalidate(ctx, quoteID)
	return affected, nil
}

// SaveVariantSelection flips the selected flag so exactly one variant of the
// product group stays selected in the store as well.
func (s *Store) SaveVariantSelection(ctx context.Context, quoteID int64, variantID int64) error {
	if s == nil || s.Pool == nil {
		return errors.New("store not configured")
	}
	const query = `
		UPDATE quote_variants v SET selected = (v.id = $2)
		WHERE v.quote_id = $1
		  AND v.product_idx = (SELECT product_idx FROM quote_variants WHERE id = $2)`
	tag, err := s.Pool.Exec(ctx, query, quoteID, variantID)
	if err != nil {
		return fmt.Errorf("save selection of variant %d: %w", variantID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("variant %d: %w", variantID, quote.ErrVariantNotFound)
	}
	s.invalidate(ctx, quoteID)
	return nil
}

// SaveClient persists the edited client snapshot.
func (s *Store) SaveClient(ctx context.Context, client quote.Client) error {
	if s == nil || s.Pool == nil {
		return errors.New("store not configured")
	}
	const query = `
		UPDATE clients SET
			name = $2, email = $3, phone = $4, street = $5, city = $6,
			postal_code = $7, invoice_name = $8, invoice_nip = $9
		WHERE id = $1`
	tag, err := s.Pool.Exec(ctx, query, client.ID, client.Name, client.Email, client.Phone,
		client.Street, client.City, client.PostalCode, client.InvoiceName, client.InvoiceNIP)
	if err != nil {
		return fmt.Errorf("save client %d: %w", client.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("client %d not found", client.ID)
	}
	return nil
}

// InsertQuoteEvent appends one entry to the quote's audit trail.
func (s *Store) InsertQuoteEvent(ctx context.Context, topic string, quoteID int64, payload []byte) (events.Event, error) {
	if s == nil || s.Pool == nil {
		return events.Event{}, errors.New("store not configured")
	}
	const query = `
		INSERT INTO quote_events (id, topic, quote_id, payload, occurred_at)
		VALUES ($1, $2, $3, $4, now())
		RETURNING occurred_at`
	ev := events.Event{
		ID:      uuid.New(),
		Topic:   topic,
		QuoteID: quoteID,
		Payload: payload,
	}
	if err := s.Pool.QueryRow(ctx, query, ev.ID, topic, quoteID, payload).Scan(&ev.OccurredAt); err != nil {
		return events.Event{}, fmt.Errorf("insert quote event %s: %w", topic, err)
	}
	return ev, nil
}

func (s *Store) invalidate(ctx context.Context, quoteID int64) {
	if err := s.Cache.Invalidate(ctx, quoteID); err != nil {
		s.Logger.Warn().Err(err).Int64("quote_id", quoteID).Msg("snapshot cache invalidation failed")
	}
}
