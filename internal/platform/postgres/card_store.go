package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/phrazzld/scry-study/internal/domain"
	"github.com/phrazzld/scry-study/internal/platform/logger"
	"github.com/phrazzld/scry-study/internal/store"
)

const cardColumns = `id, set_id, topic, front, back, created_at, ease_factor, interval_days,
	next_review_at, review_count, again_count, good_count, easy_count, last_reviewed_at`

// PostgresCardStore implements the store.CardStore interface
// using a PostgreSQL database as the storage backend.
type PostgresCardStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresCardStore creates a new PostgreSQL implementation of the CardStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresCardStore(db store.DBTX, logger *slog.Logger) *PostgresCardStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresCardStore{
		db:     db,
		logger: logger.With(slog.String("component", "card_store")),
	}
}

// Ensure PostgresCardStore implements store.CardStore interface
var _ store.CardStore = (*PostgresCardStore)(nil)

// WithTx implements store.CardStore.WithTx.
func (s *PostgresCardStore) WithTx(tx *sql.Tx) store.CardStore {
	return &PostgresCardStore{db: tx, logger: s.logger}
}

func nullSetID(id uuid.UUID) uuid.NullUUID {
	return uuid.NullUUID{UUID: id, Valid: id != uuid.Nil}
}

func nullTime(t *domain.Card) sql.NullTime {
	if t.LastReviewedAt == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t.LastReviewedAt, Valid: true}
}

// Create implements store.CardStore.Create.
func (s *PostgresCardStore) Create(ctx context.Context, card *domain.Card) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := card.Validate(); err != nil {
		log.Warn("invalid card", slog.String("card_id", card.ID.String()), slog.String("error", err.Error()))
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	_, err := s.db.ExecContext(ctx, `INSERT INTO cards (`+cardColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		card.ID, nullSetID(card.SetID), card.Topic, card.Front, card.Back, card.CreatedAt.UTC(),
		card.EaseFactor, card.IntervalDays, card.NextReviewAt.UTC(), card.ReviewCount,
		card.AgainCount, card.GoodCount, card.EasyCount, nullTime(card),
	)
	if err != nil {
		log.Error("failed to insert card", slog.String("card_id", card.ID.String()), slog.String("error", err.Error()))
		switch {
		case IsUniqueViolation(err):
			return fmt.Errorf("%w: %s", store.ErrCardExists, card.ID)
		case IsForeignKeyViolation(err):
			return fmt.Errorf("%w: %s", store.ErrCardSetNotFound, card.SetID)
		}
		return store.NewStoreError("card", "create", "insert failed", MapError(err))
	}

	log.Debug("card created", slog.String("card_id", card.ID.String()))
	return nil
}

// CreateMultiple implements store.CardStore.CreateMultiple. Call it through
// WithTx inside store.RunInTransaction for an all-or-nothing batch.
func (s *PostgresCardStore) CreateMultiple(ctx context.Context, cards []*domain.Card) error {
	for _, card := range cards {
		if err := s.Create(ctx, card); err != nil {
			return err
		}
	}
	return nil
}

// GetByID implements store.CardStore.GetByID.
func (s *PostgresCardStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	card, err := scanCard(s.db.QueryRowContext(ctx, `SELECT `+cardColumns+` FROM cards WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrCardNotFound
	}
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get card",
			slog.String("card_id", id.String()), slog.String("error", err.Error()))
		return nil, store.NewStoreError("card", "get", "query failed", MapError(err))
	}
	return card, nil
}

// ListBySet implements store.CardStore.ListBySet.
func (s *PostgresCardStore) ListBySet(ctx context.Context, setID uuid.UUID) ([]*domain.Card, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+cardColumns+` FROM cards WHERE set_id = $1 ORDER BY created_at, id`, setID)
	if err != nil {
		return nil, store.NewStoreError("card", "list", "query failed", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	cards := make([]*domain.Card, 0)
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, store.NewStoreError("card", "list", "scan failed", err)
		}
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("card", "list", "iteration failed", err)
	}
	return cards, nil
}

// UpdateSchedule implements store.CardStore.UpdateSchedule.
func (s *PostgresCardStore) UpdateSchedule(ctx context.Context, card *domain.Card) error {
	if err := card.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	result, err := s.db.ExecContext(ctx, `UPDATE cards SET
			ease_factor = $1, interval_days = $2, next_review_at = $3, review_count = $4,
			again_count = $5, good_count = $6, easy_count = $7, last_reviewed_at = $8
		WHERE id = $9`,
		card.EaseFactor, card.IntervalDays, card.NextReviewAt.UTC(), card.ReviewCount,
		card.AgainCount, card.GoodCount, card.EasyCount, nullTime(card), card.ID,
	)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to update card schedule",
			slog.String("card_id", card.ID.String()), slog.String("error", err.Error()))
		return store.NewStoreError("card", "update", "update failed",
			fmt.Errorf("%w: %w", store.ErrUpdateFailed, MapError(err)))
	}
	return CheckRowsAffected(result, store.ErrCardNotFound)
}

// Delete implements store.CardStore.Delete.
func (s *PostgresCardStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM cards WHERE id = $1`, id)
	if err != nil {
		return store.NewStoreError("card", "delete", "delete failed",
			fmt.Errorf("%w: %w", store.ErrDeleteFailed, MapError(err)))
	}
	return CheckRowsAffected(result, store.ErrCardNotFound)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCard(row rowScanner) (*domain.Card, error) {
	var (
		card         domain.Card
		setID        uuid.NullUUID
		lastReviewed sql.NullTime
	)
	err := row.Scan(&card.ID, &setID, &card.Topic, &card.Front, &card.Back, &card.CreatedAt,
		&card.EaseFactor, &card.IntervalDays, &card.NextReviewAt, &card.ReviewCount,
		&card.AgainCount, &card.GoodCount, &card.EasyCount, &lastReviewed)
	if err != nil {
		return nil, err
	}

	if setID.Valid {
		card.SetID = setID.UUID
	}
	card.CreatedAt = card.CreatedAt.UTC()
	card.NextReviewAt = card.NextReviewAt.UTC()
	if lastReviewed.Valid {
		t := lastReviewed.Time.UTC()
		card.LastReviewedAt = &t
	}
	return &card, nil
}
