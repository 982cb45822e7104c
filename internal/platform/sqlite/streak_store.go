package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/phrazzld/scry-study/internal/calendar"
	"github.com/phrazzld/scry-study/internal/domain"
	"github.com/phrazzld/scry-study/internal/store"
)

// StreakStore implements store.StreakStore on SQLite. The streak is a
// single row with id 1.
type StreakStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewStreakStore creates a StreakStore running statements on db.
func NewStreakStore(db store.DBTX, logger *slog.Logger) *StreakStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StreakStore{
		db:     db,
		logger: logger.With(slog.String("component", "streak_store")),
	}
}

var _ store.StreakStore = (*StreakStore)(nil)

// WithTx implements store.StreakStore.
func (s *StreakStore) WithTx(tx *sql.Tx) store.StreakStore {
	return &StreakStore{db: tx, logger: s.logger}
}

// Get implements store.StreakStore.
func (s *StreakStore) Get(ctx context.Context) (domain.StreakState, error) {
	var (
		state   domain.StreakState
		lastDay sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT current_streak, longest_streak, last_study_day FROM streaks WHERE id = 1`,
	).Scan(&state.CurrentStreak, &state.LongestStreak, &lastDay)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.StreakState{}, nil
	}
	if err != nil {
		return domain.StreakState{}, store.NewStoreError("streak", "get", "query failed", MapError(err))
	}

	if lastDay.Valid {
		day, err := calendar.ParseDay(lastDay.String)
		if err != nil {
			return domain.StreakState{}, store.NewStoreError("streak", "get", "invalid last study day", err)
		}
		state.LastStudyDay = &day
	}
	return state, nil
}

// Save implements store.StreakStore.
func (s *StreakStore) Save(ctx context.Context, state domain.StreakState) error {
	var lastDay sql.NullString
	if state.LastStudyDay != nil {
		lastDay = sql.NullString{String: state.LastStudyDay.String(), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `INSERT INTO streaks (id, current_streak, longest_streak, last_study_day)
		VALUES (1, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			current_streak = excluded.current_streak,
			longest_streak = excluded.longest_streak,
			last_study_day = excluded.last_study_day`,
		state.CurrentStreak, state.LongestStreak, lastDay)
	if err != nil {
		s.logger.Error("failed to save streak", slog.String("error", err.Error()))
		return store.NewStoreError("streak", "save", "upsert failed", MapError(err))
	}
	return nil
}
