package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/mebleko/backend-oferta/internal/discount"
	"github.com/mebleko/backend-oferta/internal/events"
	"github.com/mebleko/backend-oferta/internal/quote"
)

// ErrNotFound indicates the session id is unknown or already discarded.
var ErrNotFound = errors.New("session not found")

// SnapshotSource loads the immutable quote snapshot a session starts from.
type SnapshotSource interface {
	LoadQuoteSnapshot(ctx context.Context, quoteID int64) (*quote.Quote, error)
	ListDiscountReasons(ctx context.Context) ([]quote.DiscountReason, error)
}

// Manager keeps the live editing sessions. Each session owns its own quote
// copy; the manager only guards the registry map.
type Manager struct {
	Source    SnapshotSource
	Store     PersistenceStore
	Submitter OrderSubmitter
	Bus       *events.Bus
	VATRate   decimal.Decimal
	Logger    zerolog.Logger
	MaxAge    time.Duration

	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
}

// Open loads a fresh snapshot and starts a new editing session for it.
func (m *Manager) Open(ctx context.Context, quoteID int64) (*Session, error) {
	if m.Source == nil {
		return nil, errors.New("session: snapshot source not configured")
	}
	snapshot, err := m.Source.LoadQuoteSnapshot(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	reasons, err := m.Source.ListDiscountReasons(ctx)
	if err != nil {
		return nil, err
	}
	s := New(snapshot, Options{
		Store:     m.Store,
		Submitter: m.Submitter,
		Engine:    &discount.Engine{Reasons: reasons},
		Bus:       m.Bus,
		VATRate:   m.VATRate,
		Logger:    m.Logger.With().Int64("quote_id", quoteID).Logger(),
	})
	m.mu.Lock()
	if m.sessions == nil {
		m.sessions = make(map[uuid.UUID]*Session)
	}
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s, nil
}

// Get returns the live session for the id.
func (m *Manager) Get(id uuid.UUID) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Close discards the session's in-memory state and drops it from the
// registry. Persisted partial edits are not rolled back.
func (m *Manager) Close(id uuid.UUID) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	s.Close()
	return nil
}

// Sweep drops sessions older than MaxAge. Intended to run on a ticker from
// the entrypoint; returns how many sessions were evicted.
func (m *Manager) Sweep(now time.Time) int {
	maxAge := m.MaxAge
	if maxAge <= 0 {
		maxAge = 8 * time.Hour
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	evicted := 0
	for id, s := range m.sessions {
		if now.Sub(s.CreatedAt) > maxAge {
			s.Close()
			delete(m.sessions, id)
			evicted++
		}
	}
	return evicted
}

// Len reports the number of live sessions, for metrics.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
