package sqlite

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

// CardStore implements store.CardStore on SQLite.
type CardStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewCardStore creates a CardStore running statements on db.
func NewCardStore(db store.DBTX, logger *slog.Logger) *CardStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CardStore{
		db:     db,
		logger: logger.With(slog.String("component", "card_store")),
	}
}

var _ store.CardStore = (*CardStore)(nil)

// WithTx implements store.CardStore.
func (s *CardStore) WithTx(tx *sql.Tx) store.CardStore {
	return &CardStore{db: tx, logger: s.logger}
}

func nullSetID(id uuid.UUID) sql.NullString {
	if id == uuid.Nil {
		return sql.NullString{}
	}
	return sql.NullString{String: id.String(), Valid: true}
}

// Create implements store.CardStore.
func (s *CardStore) Create(ctx context.Context, card *domain.Card) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := card.Validate(); err != nil {
		log.Warn("invalid card", slog.String("card_id", card.ID.String()), slog.String("error", err.Error()))
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	_, err := s.db.ExecContext(ctx, `INSERT INTO cards (`+cardColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		card.ID.String(), nullSetID(card.SetID), card.Topic, card.Front, card.Back,
		formatTime(card.CreatedAt), card.EaseFactor, card.IntervalDays,
		formatTime(card.NextReviewAt), card.ReviewCount, card.AgainCount, card.GoodCount,
		card.EasyCount, formatNullTime(card.LastReviewedAt),
	)
	if err != nil {
		err = MapError(err)
		log.Error("failed to insert card", slog.String("card_id", card.ID.String()), slog.String("error", err.Error()))
		switch {
		case errors.Is(err, store.ErrDuplicate):
			return fmt.Errorf("%w: %s", store.ErrCardExists, card.ID)
		case errors.Is(err, errForeignKey):
			return fmt.Errorf("%w: %s", store.ErrCardSetNotFound, card.SetID)
		}
		return store.NewStoreError("card", "create", "insert failed", err)
	}
	log.Debug("card created", slog.String("card_id", card.ID.String()))
	return nil
}

// CreateMultiple implements store.CardStore.
func (s *CardStore) CreateMultiple(ctx context.Context, cards []*domain.Card) error {
	for _, card := range cards {
		if err := s.Create(ctx, card); err != nil {
			return err
		}
	}
	return nil
}

// GetByID implements store.CardStore.
func (s *CardStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+cardColumns+` FROM cards WHERE id = ?`, id.String())
	card, err := scanCard(row)
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

// ListBySet implements store.CardStore.
func (s *CardStore) ListBySet(ctx context.Context, setID uuid.UUID) ([]*domain.Card, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+cardColumns+` FROM cards WHERE set_id = ? ORDER BY created_at, id`, setID.String())
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

// UpdateSchedule implements store.CardStore.
func (s *CardStore) UpdateSchedule(ctx context.Context, card *domain.Card) error {
	if err := card.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	result, err := s.db.ExecContext(ctx, `UPDATE cards SET
			ease_factor = ?, interval_days = ?, next_review_at = ?, review_count = ?,
			again_count = ?, good_count = ?, easy_count = ?, last_reviewed_at = ?
		WHERE id = ?`,
		card.EaseFactor, card.IntervalDays, formatTime(card.NextReviewAt), card.ReviewCount,
		card.AgainCount, card.GoodCount, card.EasyCount, formatNullTime(card.LastReviewedAt),
		card.ID.String(),
	)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to update card schedule",
			slog.String("card_id", card.ID.String()), slog.String("error", err.Error()))
		return store.NewStoreError("card", "update", "update failed",
			fmt.Errorf("%w: %w", store.ErrUpdateFailed, MapError(err)))
	}
	return checkRowsAffected(result, store.ErrCardNotFound)
}

// Delete implements store.CardStore.
func (s *CardStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM cards WHERE id = ?`, id.String())
	if err != nil {
		return store.NewStoreError("card", "delete", "delete failed",
			fmt.Errorf("%w: %w", store.ErrDeleteFailed, MapError(err)))
	}
	return checkRowsAffected(result, store.ErrCardNotFound)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCard(row rowScanner) (*domain.Card, error) {
	var (
		card                          domain.Card
		setID, lastReviewed           sql.NullString
		createdAt, nextReview, cardID string
	)
	err := row.Scan(&cardID, &setID, &card.Topic, &card.Front, &card.Back, &createdAt,
		&card.EaseFactor, &card.IntervalDays, &nextReview, &card.ReviewCount, &card.AgainCount,
		&card.GoodCount, &card.EasyCount, &lastReviewed)
	if err != nil {
		return nil, err
	}

	if card.ID, err = uuid.Parse(cardID); err != nil {
		return nil, fmt.Errorf("parse card id: %w", err)
	}
	if setID.Valid {
		if card.SetID, err = uuid.Parse(setID.String); err != nil {
			return nil, fmt.Errorf("parse set id: %w", err)
		}
	}
	if card.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if card.NextReviewAt, err = parseTime(nextReview); err != nil {
		return nil, err
	}
	if card.LastReviewedAt, err = parseNullTime(lastReviewed); err != nil {
		return nil, err
	}
	return &card, nil
}
