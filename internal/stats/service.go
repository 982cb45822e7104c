package stats

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-study/internal/cache"
	"github.com/phrazzld/scry-study/internal/calendar"
	"github.com/phrazzld/scry-study/internal/domain"
	"github.com/phrazzld/scry-study/internal/domain/srs"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentLoads bounds how many sets are read from the store at once.
const maxConcurrentLoads = 4

// CardLoader reads the cards of one set. store.CardStore satisfies it.
type CardLoader interface {
	ListBySet(ctx context.Context, setID uuid.UUID) ([]*domain.Card, error)
}

// TTLConfig is the maximum age tolerated for each family of cached answers.
type TTLConfig struct {
	DueCount   time.Duration // due and new counts
	DailyQueue time.Duration // daily queue and forecast
	Stats      time.Duration // per-set summaries and topic proficiency
}

// Service answers aggregate queries over card sets through a cache.
type Service struct {
	loader    CardLoader
	scheduler *srs.Scheduler
	cache     *cache.Cache
	cal       calendar.Calendar
	ttl       TTLConfig
	logger    *slog.Logger
}

// NewService creates a Service. A nil scheduler uses the default parameters,
// a nil cache gets a private one and a nil logger falls back to slog.Default.
func NewService(
	loader CardLoader,
	scheduler *srs.Scheduler,
	c *cache.Cache,
	cal calendar.Calendar,
	ttl TTLConfig,
	logger *slog.Logger,
) (*Service, error) {
	if loader == nil {
		return nil, fmt.Errorf("stats: card loader cannot be nil")
	}
	if scheduler == nil {
		scheduler = srs.NewDefaultScheduler()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if c == nil {
		c = cache.New(cache.WithLogger(logger))
	}

	return &Service{
		loader:    loader,
		scheduler: scheduler,
		cache:     c,
		cal:       cal,
		ttl:       ttl,
		logger:    logger.With(slog.String("component", "stats_service")),
	}, nil
}

// DueCount returns the number of cards in setIDs due at now.
func (s *Service) DueCount(ctx context.Context, setIDs []uuid.UUID, now time.Time) (int, error) {
	return cache.GetOrCompute(s.cache, setsKey(keyDue, setIDs), s.ttl.DueCount, func() (int, error) {
		cards, err := s.loadCards(ctx, setIDs)
		if err != nil {
			return 0, err
		}
		return CountDue(cards, now), nil
	})
}

// NewCount returns the number of never-reviewed cards in setIDs.
func (s *Service) NewCount(ctx context.Context, setIDs []uuid.UUID) (int, error) {
	return cache.GetOrCompute(s.cache, setsKey(keyNew, setIDs), s.ttl.DueCount, func() (int, error) {
		cards, err := s.loadCards(ctx, setIDs)
		if err != nil {
			return 0, err
		}
		return CountNew(cards), nil
	})
}

// DailyQueue returns the cards due at now across setIDs, earliest first.
// The queue is cached per calendar day; callers receive copies of the
// cached cards and may grade them freely.
func (s *Service) DailyQueue(ctx context.Context, setIDs []uuid.UUID, now time.Time) ([]*domain.Card, error) {
	key := dayKey(keyQueue, setIDs, s.cal.DayOf(now))
	queue, err := cache.GetOrCompute(s.cache, key, s.ttl.DailyQueue, func() ([]*domain.Card, error) {
		sets, err := s.loadSets(ctx, setIDs)
		if err != nil {
			return nil, err
		}
		return s.scheduler.DailyReviewQueue(sets, now), nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]*domain.Card, len(queue))
	for i, c := range queue {
		out[i] = c.Clone()
	}
	return out, nil
}

// EstimateDailyStudyMinutes estimates how long today's queue takes.
func (s *Service) EstimateDailyStudyMinutes(ctx context.Context, setIDs []uuid.UUID, now time.Time) (int, error) {
	queue, err := s.DailyQueue(ctx, setIDs, now)
	if err != nil {
		return 0, err
	}
	return srs.EstimateMinutes(len(queue), s.scheduler.Params()), nil
}

// SetStats returns the summary of a single set.
func (s *Service) SetStats(ctx context.Context, setID uuid.UUID, now time.Time) (SetSummary, error) {
	ids := []uuid.UUID{setID}
	return cache.GetOrCompute(s.cache, setsKey(keySet, ids), s.ttl.Stats, func() (SetSummary, error) {
		cards, err := s.loadCards(ctx, ids)
		if err != nil {
			return SetSummary{}, err
		}
		return Summarize(cards, now), nil
	})
}

// TopicProficiency scores every topic found in setIDs.
func (s *Service) TopicProficiency(ctx context.Context, setIDs []uuid.UUID) ([]TopicScore, error) {
	scores, err := cache.GetOrCompute(s.cache, setsKey(keyTopics, setIDs), s.ttl.Stats, func() ([]TopicScore, error) {
		cards, err := s.loadCards(ctx, setIDs)
		if err != nil {
			return nil, err
		}
		return TopicScores(cards), nil
	})
	if err != nil {
		return nil, err
	}
	return append([]TopicScore(nil), scores...), nil
}

// Forecast returns the review load of the next ForecastDays days, starting
// with the day containing now.
func (s *Service) Forecast(ctx context.Context, setIDs []uuid.UUID, now time.Time) ([]DayForecast, error) {
	key := dayKey(keyForecast, setIDs, s.cal.DayOf(now))
	days, err := cache.GetOrCompute(s.cache, key, s.ttl.DailyQueue, func() ([]DayForecast, error) {
		cards, err := s.loadCards(ctx, setIDs)
		if err != nil {
			return nil, err
		}
		return ForecastCards(cards, now, s.cal), nil
	})
	if err != nil {
		return nil, err
	}
	return append([]DayForecast(nil), days...), nil
}

// InvalidateSets drops every cached answer that involved one of ids and
// returns the number of entries removed.
func (s *Service) InvalidateSets(ids ...uuid.UUID) int {
	if len(ids) == 0 {
		return 0
	}
	return s.cache.InvalidateFunc(func(key string) bool {
		for _, id := range ids {
			if keyMentions(key, id) {
				return true
			}
		}
		return false
	})
}

// Clear drops every cached answer.
func (s *Service) Clear() {
	s.cache.Clear()
}

// loadSets reads the cards of each distinct set concurrently. The result
// follows the sorted order of the ids.
func (s *Service) loadSets(ctx context.Context, setIDs []uuid.UUID) ([]domain.LoadedSet, error) {
	ids := normalizeIDs(setIDs)
	sets := make([]domain.LoadedSet, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentLoads)
	for i, id := range ids {
		g.Go(func() error {
			cards, err := s.loader.ListBySet(gctx, id)
			if err != nil {
				return fmt.Errorf("load cards of set %s: %w", id, err)
			}
			sets[i] = domain.LoadedSet{Set: &domain.CardSet{ID: id}, Cards: cards}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.ErrorContext(ctx, "failed to load card sets",
			slog.Int("set_count", len(ids)),
			slog.String("error", err.Error()))
		return nil, err
	}

	s.logger.DebugContext(ctx, "loaded card sets", slog.Int("set_count", len(ids)))
	return sets, nil
}

func (s *Service) loadCards(ctx context.Context, setIDs []uuid.UUID) ([]*domain.Card, error) {
	sets, err := s.loadSets(ctx, setIDs)
	if err != nil {
		return nil, err
	}
	var cards []*domain.Card
	for _, set := range sets {
		cards = append(cards, set.Cards...)
	}
	return cards, nil
}
