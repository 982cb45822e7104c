package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types emitted by the study core.
const (
	TypeCardGraded       = "card.graded"
	TypeCardPostponed    = "card.postponed"
	TypeCardsAdded       = "cards.added"
	TypeSessionCompleted = "session.completed"
	TypeMemoryPressure   = "memory.pressure"
)

// Event is a notification that something in the study state changed.
type Event struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Type is one of the Type* constants
	Type string `json:"type"`

	// Payload contains the type-specific data serialized as JSON
	Payload json.RawMessage `json:"payload,omitempty"`

	// CreatedAt is the timestamp when the event was created
	CreatedAt time.Time `json:"created_at"`
}

// CardPayload accompanies TypeCardGraded and TypeCardPostponed events.
type CardPayload struct {
	CardID       uuid.UUID `json:"card_id"`
	SetID        uuid.UUID `json:"set_id"`
	Grade        string    `json:"grade,omitempty"`
	NextReviewAt time.Time `json:"next_review_at"`
}

// SetPayload accompanies TypeCardsAdded events.
type SetPayload struct {
	SetID     uuid.UUID `json:"set_id"`
	CardCount int       `json:"card_count"`
}

// SessionPayload accompanies TypeSessionCompleted events.
type SessionPayload struct {
	SetIDs        []uuid.UUID `json:"set_ids,omitempty"`
	CurrentStreak int         `json:"current_streak"`
}

// UnmarshalPayload decodes the event payload into the provided structure.
func (e *Event) UnmarshalPayload(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// NewEvent creates a new Event with the specified type and payload. A nil
// payload produces an event without one.
func NewEvent(eventType string, payload any) (*Event, error) {
	event := &Event{
		ID:        uuid.New(),
		Type:      eventType,
		CreatedAt: time.Now(),
	}
	if payload == nil {
		return event, nil
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	event.Payload = payloadBytes
	return event, nil
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *Event) error
}

// EventEmitter defines an interface for components that can emit events.
// This allows services to publish events without direct knowledge of handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	EmitEvent(ctx context.Context, event *Event) error
}

// HandlerFunc adapts an ordinary function to EventHandler.
type HandlerFunc func(ctx context.Context, event *Event) error

// HandleEvent calls f(ctx, event).
func (f HandlerFunc) HandleEvent(ctx context.Context, event *Event) error {
	return f(ctx, event)
}
