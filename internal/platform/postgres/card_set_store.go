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

// PostgresCardSetStore implements store.CardSetStore on PostgreSQL.
type PostgresCardSetStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresCardSetStore creates a PostgresCardSetStore running statements on db.
func NewPostgresCardSetStore(db store.DBTX, logger *slog.Logger) *PostgresCardSetStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresCardSetStore{
		db:     db,
		logger: logger.With(slog.String("component", "card_set_store")),
	}
}

var _ store.CardSetStore = (*PostgresCardSetStore)(nil)

// WithTx implements store.CardSetStore.WithTx.
func (s *PostgresCardSetStore) WithTx(tx *sql.Tx) store.CardSetStore {
	return &PostgresCardSetStore{db: tx, logger: s.logger}
}

// Create implements store.CardSetStore.Create.
func (s *PostgresCardSetStore) Create(ctx context.Context, set *domain.CardSet) error {
	if err := set.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO card_sets (id, name, created_at) VALUES ($1, $2, $3)`,
		set.ID, set.Name, set.CreatedAt.UTC())
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to insert card set",
			slog.String("set_id", set.ID.String()), slog.String("error", err.Error()))
		return store.NewStoreError("card_set", "create", "insert failed", MapError(err))
	}
	return nil
}

// GetByID implements store.CardSetStore.GetByID.
func (s *PostgresCardSetStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.CardSet, error) {
	set := &domain.CardSet{ID: id}
	err := s.db.QueryRowContext(ctx,
		`SELECT name, created_at FROM card_sets WHERE id = $1`, id).Scan(&set.Name, &set.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrCardSetNotFound
	}
	if err != nil {
		return nil, store.NewStoreError("card_set", "get", "query failed", MapError(err))
	}
	set.CreatedAt = set.CreatedAt.UTC()

	ids, err := s.cardIDs(ctx, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	set.CardIDs = ids[id]
	return set, nil
}

// List implements store.CardSetStore.List.
func (s *PostgresCardSetStore) List(ctx context.Context) ([]*domain.CardSet, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, created_at FROM card_sets ORDER BY created_at, id`)
	if err != nil {
		return nil, store.NewStoreError("card_set", "list", "query failed", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	sets := make([]*domain.CardSet, 0)
	setIDs := make([]uuid.UUID, 0)
	for rows.Next() {
		set := &domain.CardSet{}
		if err := rows.Scan(&set.ID, &set.Name, &set.CreatedAt); err != nil {
			return nil, store.NewStoreError("card_set", "list", "scan failed", err)
		}
		set.CreatedAt = set.CreatedAt.UTC()
		sets = append(sets, set)
		setIDs = append(setIDs, set.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("card_set", "list", "iteration failed", err)
	}

	ids, err := s.cardIDs(ctx, setIDs)
	if err != nil {
		return nil, err
	}
	for _, set := range sets {
		set.CardIDs = ids[set.ID]
	}
	return sets, nil
}

// cardIDs loads the card IDs of several sets in one query.
func (s *PostgresCardSetStore) cardIDs(ctx context.Context, setIDs []uuid.UUID) (map[uuid.UUID][]uuid.UUID, error) {
	result := make(map[uuid.UUID][]uuid.UUID, len(setIDs))
	if len(setIDs) == 0 {
		return result, nil
	}

	keys := make([]string, len(setIDs))
	for i, id := range setIDs {
		keys[i] = id.String()
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT set_id, id FROM cards WHERE set_id = ANY($1::uuid[]) ORDER BY created_at, id`, keys)
	if err != nil {
		return nil, store.NewStoreError("card_set", "get", "card id query failed", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var setID, cardID uuid.UUID
		if err := rows.Scan(&setID, &cardID); err != nil {
			return nil, store.NewStoreError("card_set", "get", "card id scan failed", err)
		}
		result[setID] = append(result[setID], cardID)
	}
	return result, rows.Err()
}
