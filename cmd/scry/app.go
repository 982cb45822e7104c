package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/phrazzld/scry-study/internal/cache"
	"github.com/phrazzld/scry-study/internal/calendar"
	"github.com/phrazzld/scry-study/internal/config"
	"github.com/phrazzld/scry-study/internal/domain/srs"
	"github.com/phrazzld/scry-study/internal/events"
	"github.com/phrazzld/scry-study/internal/platform/postgres"
	"github.com/phrazzld/scry-study/internal/platform/sqlite"
	"github.com/phrazzld/scry-study/internal/service/study"
	"github.com/phrazzld/scry-study/internal/stats"
)

// application holds the shared dependencies of every command.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	calendar  calendar.Calendar
	scheduler *srs.Scheduler
	repos     study.Repositories

	cache   *cache.Cache
	emitter *events.InMemoryEventEmitter
	stats   *stats.Service
	study   *study.Service

	stopPressure func()
}

// openDatabase connects to the configured store backend.
func openDatabase(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	switch cfg.Driver {
	case "postgres":
		return postgres.Open(ctx, cfg.URL, cfg.MaxOpenConns)
	case "sqlite":
		return sqlite.Open(ctx, cfg.URL)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// migrateDatabase runs a goose command against the configured backend.
func migrateDatabase(ctx context.Context, db *sql.DB, driver, command string, logger *slog.Logger) error {
	switch driver {
	case "postgres":
		return postgres.Migrate(ctx, db, command, logger)
	case "sqlite":
		return sqlite.Migrate(ctx, db, command, logger)
	default:
		return fmt.Errorf("unsupported database driver %q", driver)
	}
}

// newRepositories binds the backend's stores to db.
func newRepositories(driver string, db *sql.DB, logger *slog.Logger) study.Repositories {
	if driver == "postgres" {
		return study.Repositories{
			Cards:   postgres.NewPostgresCardStore(db, logger),
			Sets:    postgres.NewPostgresCardSetStore(db, logger),
			Streaks: postgres.NewPostgresStreakStore(db, logger),
		}
	}
	return study.Repositories{
		Cards:   sqlite.NewCardStore(db, logger),
		Sets:    sqlite.NewCardSetStore(db, logger),
		Streaks: sqlite.NewStreakStore(db, logger),
	}
}

// newApplication opens the store and wires the scheduler, cache, statistics
// and study service on top of it.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	loc, err := calendar.LoadLocation(cfg.Study.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load study timezone: %w", err)
	}

	db, err := openDatabase(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	logger.Debug("database connection established", slog.String("driver", cfg.Database.Driver))

	if cfg.Database.AutoMigrate {
		if err := migrateDatabase(ctx, db, cfg.Database.Driver, "up", logger); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply migrations: %w", err)
		}
	}

	app := &application{
		config:   cfg,
		logger:   logger,
		db:       db,
		calendar: calendar.New(loc),
		scheduler: srs.NewScheduler(srs.NewParams(srs.ParamsConfig{
			SecondsPerCard: cfg.Study.SecondsPerCard,
		})),
		repos: newRepositories(cfg.Database.Driver, db, logger),
	}

	app.cache = cache.New(cache.WithLogger(logger))
	app.stats, err = stats.NewService(app.repos.Cards, app.scheduler, app.cache, app.calendar, stats.TTLConfig{
		DueCount:   cfg.Cache.DueCountTTL,
		DailyQueue: cfg.Cache.DailyQueueTTL,
		Stats:      cfg.Cache.StatsTTL,
	}, logger)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create stats service: %w", err)
	}

	app.emitter = events.NewInMemoryEventEmitter(logger)
	app.emitter.RegisterHandler(stats.NewCacheInvalidator(app.stats, logger))
	app.stopPressure = watchMemoryPressure(app.emitter, logger)

	app.study, err = study.NewService(db, app.repos, app.scheduler, app.emitter, study.Config{
		MaxNew:    cfg.Study.MaxNew,
		MaxReview: cfg.Study.MaxReview,
		Calendar:  app.calendar,
	}, logger)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to create study service: %w", err)
	}

	logger.Debug("application initialized")
	return app, nil
}

// cleanup stops the signal relay and releases the database connection.
func (app *application) cleanup() {
	if app.stopPressure != nil {
		app.stopPressure()
		app.stopPressure = nil
	}
	if app.db == nil {
		return
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database connection", slog.String("error", err.Error()))
	}
}
