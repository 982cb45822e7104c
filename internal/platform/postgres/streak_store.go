package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/phrazzld/scry-study/internal/calendar"
	"github.com/phrazzld/scry-study/internal/domain"
	"github.com/phrazzld/scry-study/internal/store"
)

// PostgresStreakStore implements store.StreakStore on PostgreSQL. The
// streak is a single row with id 1.
type PostgresStreakStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresStreakStore creates a PostgresStreakStore running statements on db.
func NewPostgresStreakStore(db store.DBTX, logger *slog.Logger) *PostgresStreakStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresStreakStore{
		db:     db,
		logger: logger.With(slog.String("component", "streak_store")),
	}
}

var _ store.StreakStore = (*PostgresStreakStore)(nil)

// WithTx implements store.StreakStore.WithTx.
func (s *PostgresStreakStore) WithTx(tx *sql.Tx) store.StreakStore {
	return &PostgresStreakStore{db: tx, logger: s.logger}
}

// Get implements store.StreakStore.Get.
func (s *PostgresStreakStore) Get(ctx context.Context) (domain.StreakState, error) {
	var (
		state   domain.StreakState
		lastDay sql.NullTime
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
		y, m, d := lastDay.Time.Date()
		state.LastStudyDay = &calendar.Day{Year: y, Month: m, Day: d}
	}
	return state, nil
}

// Save implements store.StreakStore.Save.
func (s *PostgresStreakStore) Save(ctx context.Context, state domain.StreakState) error {
	var lastDay sql.NullString
	if state.LastStudyDay != nil {
		lastDay = sql.NullString{String: state.LastStudyDay.String(), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `INSERT INTO streaks (id, current_streak, longest_streak, last_study_day, updated_at)
		VALUES (1, $1, $2, $3::date, NOW())
		ON CONFLICT (id) DO UPDATE SET
			current_streak = EXCLUDED.current_streak,
			longest_streak = EXCLUDED.longest_streak,
			last_study_day = EXCLUDED.last_study_day,
			updated_at = NOW()`,
		state.CurrentStreak, state.LongestStreak, lastDay)
	if err != nil {
		s.logger.Error("failed to save streak", slog.String("error", err.Error()))
		return store.NewStoreError("streak", "save", "upsert failed", MapError(err))
	}
	return nil
}
