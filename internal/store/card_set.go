package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-study/internal/domain"
)

// CardSetStore persists card sets. Set membership is derived from the
// cards' set IDs, so CardIDs on a loaded set lists its cards by creation
// order.
type CardSetStore interface {
	// Create saves a validated card set.
	Create(ctx context.Context, set *domain.CardSet) error

	// GetByID retrieves a set and the IDs of its cards.
	// Returns ErrCardSetNotFound if the set does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.CardSet, error)

	// List returns all sets ordered by creation time.
	List(ctx context.Context) ([]*domain.CardSet, error)

	// WithTx returns a CardSetStore that runs its statements on tx.
	WithTx(tx *sql.Tx) CardSetStore
}
