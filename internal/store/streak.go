package store

import (
	"context"
	"database/sql"

	"github.com/phrazzld/scry-study/internal/domain"
)

// StreakStore persists the single study streak record.
type StreakStore interface {
	// Get returns the stored streak, or a zero StreakState if none has been
	// saved yet.
	Get(ctx context.Context) (domain.StreakState, error)

	// Save replaces the stored streak.
	Save(ctx context.Context, state domain.StreakState) error

	// WithTx returns a StreakStore that runs its statements on tx.
	WithTx(tx *sql.Tx) StreakStore
}
