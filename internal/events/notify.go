package events

import (
	"context"

	"github.com/rs/zerolog"
)

// LogNotifier writes every audit event to the structured log.
type LogNotifier struct {
	Logger zerolog.Logger
}

func (n LogNotifier) Notify(_ context.Context, event Event) error {
	n.Logger.Info().
		Str("topic", event.Topic).
		Int64("quote_id", event.QuoteID).
		Str("event_id", event.ID.String()).
		RawJSON("payload", event.Payload).
		Msg("quote event")
	return nil
}
