package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-study/internal/domain"
)

// CardStore persists cards and their scheduling state.
type CardStore interface {
	// Create saves a single validated card.
	// Returns ErrCardExists if the ID is taken and ErrCardSetNotFound if
	// the card references a set that does not exist.
	Create(ctx context.Context, card *domain.Card) error

	// CreateMultiple saves several cards. Run it inside RunInTransaction
	// (through WithTx) so that a failure leaves no partial batch behind.
	CreateMultiple(ctx context.Context, cards []*domain.Card) error

	// GetByID retrieves a card by its unique ID.
	// Returns ErrCardNotFound if the card does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error)

	// ListBySet returns every card belonging to setID, in no particular
	// order. An unknown set yields an empty slice.
	ListBySet(ctx context.Context, setID uuid.UUID) ([]*domain.Card, error)

	// UpdateSchedule persists the scheduling fields of card (ease factor,
	// interval, next review, counters, last review). Content is untouched.
	// Returns ErrCardNotFound if the card does not exist.
	UpdateSchedule(ctx context.Context, card *domain.Card) error

	// Delete removes a card by its ID.
	// Returns ErrCardNotFound if the card does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// WithTx returns a CardStore that runs its statements on tx.
	WithTx(tx *sql.Tx) CardStore
}
