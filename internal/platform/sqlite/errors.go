package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"

	"github.com/phrazzld/scry-study/internal/store"
)

// sqliteConstraint is the primary result code shared by all constraint
// failures; extended codes carry it in their low byte.
const sqliteConstraint = 19

// errForeignKey marks constraint failures caused by a missing referenced row.
var errForeignKey = errors.New("foreign key violation")

// MapError translates driver errors into the store error taxonomy.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %v", store.ErrNotFound, err)
	}

	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) || sqliteErr.Code()&0xff != sqliteConstraint {
		return err
	}

	msg := sqliteErr.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"),
		strings.Contains(msg, "PRIMARY KEY"):
		return fmt.Errorf("%w: %v", store.ErrDuplicate, err)
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return fmt.Errorf("%w: %w: %v", store.ErrInvalidEntity, errForeignKey, err)
	default:
		return fmt.Errorf("%w: constraint violation: %v", store.ErrInvalidEntity, err)
	}
}

// checkRowsAffected returns notFound when an UPDATE or DELETE matched nothing.
func checkRowsAffected(result sql.Result, notFound error) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
