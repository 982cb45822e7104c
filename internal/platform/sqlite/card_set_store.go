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

// CardSetStore implements store.CardSetStore on SQLite.
type CardSetStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewCardSetStore creates a CardSetStore running statements on db.
func NewCardSetStore(db store.DBTX, logger *slog.Logger) *CardSetStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CardSetStore{
		db:     db,
		logger: logger.With(slog.String("component", "card_set_store")),
	}
}

var _ store.CardSetStore = (*CardSetStore)(nil)

// WithTx implements store.CardSetStore.
func (s *CardSetStore) WithTx(tx *sql.Tx) store.CardSetStore {
	return &CardSetStore{db: tx, logger: s.logger}
}

// Create implements store.CardSetStore.
func (s *CardSetStore) Create(ctx context.Context, set *domain.CardSet) error {
	if err := set.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO card_sets (id, name, created_at) VALUES (?, ?, ?)`,
		set.ID.String(), set.Name, formatTime(set.CreatedAt))
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to insert card set",
			slog.String("set_id", set.ID.String()), slog.String("error", err.Error()))
		return store.NewStoreError("card_set", "create", "insert failed", MapError(err))
	}
	return nil
}

// GetByID implements store.CardSetStore.
func (s *CardSetStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.CardSet, error) {
	var name, createdAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT name, created_at FROM card_sets WHERE id = ?`, id.String()).Scan(&name, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrCardSetNotFound
	}
	if err != nil {
		return nil, store.NewStoreError("card_set", "get", "query failed", MapError(err))
	}

	set := &domain.CardSet{ID: id, Name: name}
	if set.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if set.CardIDs, err = s.cardIDs(ctx, id); err != nil {
		return nil, err
	}
	return set, nil
}

// List implements store.CardSetStore.
func (s *CardSetStore) List(ctx context.Context) ([]*domain.CardSet, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, created_at FROM card_sets ORDER BY created_at, id`)
	if err != nil {
		return nil, store.NewStoreError("card_set", "list", "query failed", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	sets := make([]*domain.CardSet, 0)
	for rows.Next() {
		var id, name, createdAt string
		if err := rows.Scan(&id, &name, &createdAt); err != nil {
			return nil, store.NewStoreError("card_set", "list", "scan failed", err)
		}
		set := &domain.CardSet{Name: name}
		if set.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse set id: %w", err)
		}
		if set.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		sets = append(sets, set)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("card_set", "list", "iteration failed", err)
	}

	for _, set := range sets {
		if set.CardIDs, err = s.cardIDs(ctx, set.ID); err != nil {
			return nil, err
		}
	}
	return sets, nil
}

func (s *CardSetStore) cardIDs(ctx context.Context, setID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM cards WHERE set_id = ? ORDER BY created_at, id`, setID.String())
	if err != nil {
		return nil, store.NewStoreError("card_set", "get", "card id query failed", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	var ids []uuid.UUID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, store.NewStoreError("card_set", "get", "card id scan failed", err)
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parse card id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
