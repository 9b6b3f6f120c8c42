package events_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/mebleko/backend-oferta/internal/events"
)

type stubStore struct {
	lastTopic   string
	lastQuoteID int64
	lastPayload []byte
}

func (s *stubStore) InsertQuoteEvent(_ context.Context, topic string, quoteID int64, payload []byte) (events.Event, error) {
	s.lastTopic = topic
	s.lastQuoteID = quoteID
	s.lastPayload = payload
	return events.Event{
		ID:         uuid.New(),
		Topic:      topic,
		QuoteID:    quoteID,
		Payload:    payload,
		OccurredAt: time.Now(),
	}, nil
}

type captureNotifier struct {
	events []events.Event
}

func (c *captureNotifier) Notify(_ context.Context, event events.Event) error {
	c.events = append(c.events, event)
	return nil
}

func TestEmitPersistsEvent(t *testing.T) {
	store := &stubStore{}
	notifier := &captureNotifier{}
	bus := events.Bus{
		Store:     store,
		Notifiers: []events.Notifier{notifier},
	}

	payload := map[string]any{"variantId": int64(42), "percent": "10"}
	ctx := context.Background()
	event, err := bus.Emit(ctx, events.TopicDiscountApplied, 7, payload)
	require.NoError(t, err)
	require.Equal(t, events.TopicDiscountApplied, store.lastTopic)
	require.Equal(t, int64(7), store.lastQuoteID)
	require.JSONEq(t, `{"variantId":42,"percent":"10"}`, string(store.lastPayload))
	require.Len(t, notifier.events, 1)
	require.Equal(t, event.ID, notifier.events[0].ID)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(event.Payload, &decoded))
	require.Equal(t, "10", decoded["percent"])
}

func TestEmitRequiresTopicAndQuote(t *testing.T) {
	bus := events.Bus{Store: &stubStore{}}
	ctx := context.Background()

	_, err := bus.Emit(ctx, "  ", 7, nil)
	require.Error(t, err)

	_, err = bus.Emit(ctx, events.TopicOrderSubmitted, 0, nil)
	require.Error(t, err)
}

func TestEmitRejectsInvalidJSONString(t *testing.T) {
	bus := events.Bus{Store: &stubStore{}}
	_, err := bus.Emit(context.Background(), events.TopicClientUpdated, 1, "{not json")
	require.Error(t, err)
}
