// Package migrate runs embedded goose migrations for the store adapters.
package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"
	"time"

	"github.com/pressly/goose/v3"
)

// TableName is the goose version table used by every adapter.
const TableName = "schema_migrations"

// Commands accepted by Run.
const (
	CommandUp     = "up"
	CommandDown   = "down"
	CommandReset  = "reset"
	CommandStatus = "status"
)

// goose keeps dialect, base FS and logger in package globals.
var mu sync.Mutex

// slogGooseLogger forwards goose output to slog. Fatalf does not exit so
// the caller can report the failure.
type slogGooseLogger struct {
	logger *slog.Logger
}

func (l *slogGooseLogger) Printf(format string, v ...any) {
	l.logger.Info(fmt.Sprintf(format, v...))
}

func (l *slogGooseLogger) Fatalf(format string, v ...any) {
	l.logger.Error(fmt.Sprintf(format, v...))
}

// Source is the set of migrations belonging to one adapter.
type Source struct {
	Dialect string // goose dialect name, e.g. "postgres" or "sqlite3"
	FS      fs.FS  // filesystem holding the migration files
	Dir     string // directory within FS
}

// Run executes command ("up", "down", "reset" or "status") against db.
func Run(ctx context.Context, db *sql.DB, src Source, command string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With(
		slog.String("component", "migrations"),
		slog.String("dialect", src.Dialect),
		slog.String("command", command),
	)

	mu.Lock()
	defer mu.Unlock()

	goose.SetLogger(&slogGooseLogger{logger: log})
	goose.SetBaseFS(src.FS)
	defer goose.SetBaseFS(nil)
	goose.SetTableName(TableName)
	if err := goose.SetDialect(src.Dialect); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}

	start := time.Now()
	var err error
	switch command {
	case CommandUp:
		err = goose.UpContext(ctx, db, src.Dir)
	case CommandDown:
		err = goose.DownContext(ctx, db, src.Dir)
	case CommandReset:
		err = goose.ResetContext(ctx, db, src.Dir)
	case CommandStatus:
		err = goose.StatusContext(ctx, db, src.Dir)
	default:
		return fmt.Errorf("unknown migration command: %s (expected up, down, reset or status)", command)
	}
	if err != nil {
		log.Error("migration command failed", slog.String("error", err.Error()))
		return fmt.Errorf("migration command '%s' failed: %w", command, err)
	}

	version, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	log.Info("migration command executed",
		slog.Int64("version", version),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()))
	return nil
}

// Version returns the current schema version of db.
func Version(ctx context.Context, db *sql.DB, src Source) (int64, error) {
	mu.Lock()
	defer mu.Unlock()

	goose.SetTableName(TableName)
	if err := goose.SetDialect(src.Dialect); err != nil {
		return 0, fmt.Errorf("failed to set dialect: %w", err)
	}
	return goose.GetDBVersionContext(ctx, db)
}
