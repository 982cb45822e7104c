package stats

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-study/internal/events"
)

// SetInvalidator drops cached answers for sets. *Service satisfies it.
type SetInvalidator interface {
	InvalidateSets(ids ...uuid.UUID) int
	Clear()
}

// CacheInvalidator implements events.EventHandler, keeping cached
// aggregates in step with writes announced on the event bus.
type CacheInvalidator struct {
	target SetInvalidator
	logger *slog.Logger
}

// NewCacheInvalidator creates a handler that invalidates target.
func NewCacheInvalidator(target SetInvalidator, logger *slog.Logger) *CacheInvalidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &CacheInvalidator{
		target: target,
		logger: logger.With(slog.String("component", "cache_invalidator")),
	}
}

// HandleEvent invalidates the sets named in card, set and session events and
// clears everything on memory pressure. Other event types are ignored.
func (h *CacheInvalidator) HandleEvent(ctx context.Context, event *events.Event) error {
	switch event.Type {
	case events.TypeCardGraded, events.TypeCardPostponed:
		var payload events.CardPayload
		if err := event.UnmarshalPayload(&payload); err != nil {
			h.logger.ErrorContext(ctx, "failed to unmarshal payload",
				slog.String("error", err.Error()),
				slog.String("event_id", event.ID.String()))
			return fmt.Errorf("failed to unmarshal %s payload: %w", event.Type, err)
		}
		h.invalidate(ctx, event, payload.SetID)

	case events.TypeCardsAdded:
		var payload events.SetPayload
		if err := event.UnmarshalPayload(&payload); err != nil {
			h.logger.ErrorContext(ctx, "failed to unmarshal payload",
				slog.String("error", err.Error()),
				slog.String("event_id", event.ID.String()))
			return fmt.Errorf("failed to unmarshal %s payload: %w", event.Type, err)
		}
		h.invalidate(ctx, event, payload.SetID)

	case events.TypeSessionCompleted:
		var payload events.SessionPayload
		if len(event.Payload) > 0 {
			if err := event.UnmarshalPayload(&payload); err != nil {
				h.logger.ErrorContext(ctx, "failed to unmarshal payload",
					slog.String("error", err.Error()),
					slog.String("event_id", event.ID.String()))
				return fmt.Errorf("failed to unmarshal %s payload: %w", event.Type, err)
			}
		}
		h.invalidate(ctx, event, payload.SetIDs...)

	case events.TypeMemoryPressure:
		h.target.Clear()

	default:
		h.logger.DebugContext(ctx, "ignoring event with unsupported type",
			slog.String("event_type", event.Type),
			slog.String("event_id", event.ID.String()))
	}
	return nil
}

func (h *CacheInvalidator) invalidate(ctx context.Context, event *events.Event, ids ...uuid.UUID) {
	removed := h.target.InvalidateSets(ids...)
	h.logger.DebugContext(ctx, "invalidated cached aggregates",
		slog.String("event_type", event.Type),
		slog.String("event_id", event.ID.String()),
		slog.Int("removed", removed))
}

var _ events.EventHandler = (*CacheInvalidator)(nil)
