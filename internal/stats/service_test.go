package stats

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-study/internal/cache"
	"github.com/phrazzld/scry-study/internal/calendar"
	"github.com/phrazzld/scry-study/internal/domain"
	"github.com/phrazzld/scry-study/internal/domain/srs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLoader serves cards from memory and counts store reads.
type fakeLoader struct {
	mu    sync.Mutex
	sets  map[uuid.UUID][]*domain.Card
	err   error
	calls atomic.Int64
}

func newFakeLoader() *fakeLoader {
	return &fakeLoader{sets: make(map[uuid.UUID][]*domain.Card)}
}

func (f *fakeLoader) add(setID uuid.UUID, cards ...*domain.Card) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range cards {
		c.SetID = setID
	}
	f.sets[setID] = append(f.sets[setID], cards...)
}

func (f *fakeLoader) ListBySet(ctx context.Context, setID uuid.UUID) ([]*domain.Card, error) {
	f.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]*domain.Card, len(f.sets[setID]))
	for i, c := range f.sets[setID] {
		out[i] = c.Clone()
	}
	return out, nil
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var testTTL = TTLConfig{DueCount: time.Minute, DailyQueue: 5 * time.Minute, Stats: 10 * time.Minute}

func newTestService(t *testing.T, loader CardLoader) (*Service, *clock) {
	t.Helper()
	clk := &clock{now: testNow}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := cache.New(cache.WithClock(clk.Now), cache.WithLogger(logger))

	svc, err := NewService(loader, srs.NewDefaultScheduler(), c, calendar.New(time.UTC), testTTL, logger)
	require.NoError(t, err)
	return svc, clk
}

func TestNewServiceRequiresLoader(t *testing.T) {
	t.Parallel()
	_, err := NewService(nil, nil, nil, calendar.Calendar{}, testTTL, nil)
	assert.Error(t, err)
}

func TestDueCountIsCachedUntilExpiry(t *testing.T) {
	t.Parallel()
	loader := newFakeLoader()
	setA, setB := uuid.New(), uuid.New()
	loader.add(setA, reviewedCard("", 0, 0, 0, testNow), reviewedCard("", 0, 1, 0, testNow.Add(time.Hour)))
	loader.add(setB, reviewedCard("", 1, 0, 0, testNow.Add(-time.Minute)))
	svc, clk := newTestService(t, loader)
	ctx := context.Background()

	due, err := svc.DueCount(ctx, []uuid.UUID{setA, setB}, testNow)
	require.NoError(t, err)
	assert.Equal(t, 2, due)
	assert.Equal(t, int64(2), loader.calls.Load())

	// Same sets in another order hit the same entry.
	due, err = svc.DueCount(ctx, []uuid.UUID{setB, setA, setB}, testNow)
	require.NoError(t, err)
	assert.Equal(t, 2, due)
	assert.Equal(t, int64(2), loader.calls.Load())

	loader.add(setB, reviewedCard("", 0, 0, 0, testNow))
	clk.Advance(testTTL.DueCount + time.Second)

	due, err = svc.DueCount(ctx, []uuid.UUID{setA, setB}, testNow)
	require.NoError(t, err)
	assert.Equal(t, 3, due, "expired entry is recomputed")
	assert.Equal(t, int64(4), loader.calls.Load())
}

func TestNewCountAndSetStats(t *testing.T) {
	t.Parallel()
	loader := newFakeLoader()
	set := uuid.New()
	loader.add(set,
		reviewedCard("", 0, 0, 0, testNow),
		reviewedCard("", 1, 1, 0, testNow.Add(-time.Hour)),
		reviewedCard("", 0, 0, 2, testNow.AddDate(0, 0, 3)),
	)
	svc, _ := newTestService(t, loader)
	ctx := context.Background()

	n, err := svc.NewCount(ctx, []uuid.UUID{set})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	summary, err := svc.SetStats(ctx, set, testNow)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 2, summary.Due)
	assert.Equal(t, 1, summary.New)
	assert.InDelta(t, 0.75, summary.SuccessRate, 1e-9)
}

func TestDailyQueueReturnsCopies(t *testing.T) {
	t.Parallel()
	loader := newFakeLoader()
	set := uuid.New()
	early := reviewedCard("", 1, 0, 0, testNow.Add(-3*time.Hour))
	late := reviewedCard("", 0, 1, 0, testNow.Add(-time.Hour))
	loader.add(set, late, reviewedCard("", 0, 1, 0, testNow.Add(time.Hour)), early)
	svc, _ := newTestService(t, loader)
	ctx := context.Background()

	queue, err := svc.DailyQueue(ctx, []uuid.UUID{set}, testNow)
	require.NoError(t, err)
	require.Len(t, queue, 2)
	assert.Equal(t, early.ID, queue[0].ID)
	assert.Equal(t, late.ID, queue[1].ID)

	require.NoError(t, srs.NewDefaultScheduler().GradeCard(queue[0], domain.GradeEasy, testNow))

	again, err := svc.DailyQueue(ctx, []uuid.UUID{set}, testNow)
	require.NoError(t, err)
	assert.Equal(t, 0, again[0].EasyCount, "grading a returned card must not alter the cache")
	assert.Equal(t, 1, again[0].ReviewCount)
	assert.Equal(t, int64(1), loader.calls.Load())

	minutes, err := svc.EstimateDailyStudyMinutes(ctx, []uuid.UUID{set}, testNow)
	require.NoError(t, err)
	assert.Equal(t, 1, minutes)
}

func TestDailyQueueIsScopedToCalendarDay(t *testing.T) {
	t.Parallel()
	loader := newFakeLoader()
	set := uuid.New()
	loader.add(set, reviewedCard("", 0, 1, 0, testNow.Add(10*time.Hour)))
	svc, _ := newTestService(t, loader)
	ctx := context.Background()

	today, err := svc.DailyQueue(ctx, []uuid.UUID{set}, testNow)
	require.NoError(t, err)
	assert.Empty(t, today)

	tomorrow, err := svc.DailyQueue(ctx, []uuid.UUID{set}, testNow.Add(12*time.Hour))
	require.NoError(t, err)
	assert.Len(t, tomorrow, 1)
}

func TestTopicProficiencyAndForecast(t *testing.T) {
	t.Parallel()
	loader := newFakeLoader()
	setA, setB := uuid.New(), uuid.New()
	loader.add(setA, reviewedCard("math", 1, 1, 0, testNow))
	loader.add(setB, reviewedCard("math", 0, 2, 0, testNow.AddDate(0, 0, 2)))
	svc, _ := newTestService(t, loader)
	ctx := context.Background()

	scores, err := svc.TopicProficiency(ctx, []uuid.UUID{setA, setB})
	require.NoError(t, err)
	require.Len(t, scores, 1)
	assert.Equal(t, 2, scores[0].Cards)
	assert.InDelta(t, 0.75, scores[0].Proficiency, 1e-9)

	days, err := svc.Forecast(ctx, []uuid.UUID{setA, setB}, testNow)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0, 1, 0, 0, 0, 0}, dueCounts(days))
}

func TestLoadErrorIsNotCached(t *testing.T) {
	t.Parallel()
	loader := newFakeLoader()
	set := uuid.New()
	loader.add(set, reviewedCard("", 0, 0, 0, testNow))
	svc, _ := newTestService(t, loader)
	ctx := context.Background()
	boom := errors.New("disk on fire")

	loader.mu.Lock()
	loader.err = boom
	loader.mu.Unlock()

	_, err := svc.DueCount(ctx, []uuid.UUID{set}, testNow)
	assert.ErrorIs(t, err, boom)
	_, err = svc.Forecast(ctx, []uuid.UUID{set}, testNow)
	assert.ErrorIs(t, err, boom)

	loader.mu.Lock()
	loader.err = nil
	loader.mu.Unlock()

	due, err := svc.DueCount(ctx, []uuid.UUID{set}, testNow)
	require.NoError(t, err)
	assert.Equal(t, 1, due)
}

func TestInvalidateSets(t *testing.T) {
	t.Parallel()
	loader := newFakeLoader()
	setA, setB := uuid.New(), uuid.New()
	loader.add(setA, reviewedCard("", 0, 0, 0, testNow))
	loader.add(setB, reviewedCard("", 0, 0, 0, testNow))
	svc, _ := newTestService(t, loader)
	ctx := context.Background()

	_, err := svc.DueCount(ctx, []uuid.UUID{setA, setB}, testNow)
	require.NoError(t, err)
	_, err = svc.SetStats(ctx, setA, testNow)
	require.NoError(t, err)
	_, err = svc.SetStats(ctx, setB, testNow)
	require.NoError(t, err)

	assert.Equal(t, 0, svc.InvalidateSets())
	assert.Equal(t, 2, svc.InvalidateSets(setA), "combined key and set A key")

	loader.add(setA, reviewedCard("", 0, 0, 0, testNow))
	summary, err := svc.SetStats(ctx, setA, testNow)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Total)

	svc.Clear()
	assert.Equal(t, 0, svc.InvalidateSets(setB))
}

// gatedLoader reads from the wrapped loader, then blocks until released.
type gatedLoader struct {
	*fakeLoader
	entered chan struct{}
	release chan struct{}
	armed   atomic.Bool
}

func (g *gatedLoader) ListBySet(ctx context.Context, setID uuid.UUID) ([]*domain.Card, error) {
	cards, err := g.fakeLoader.ListBySet(ctx, setID)
	if g.armed.CompareAndSwap(true, false) {
		close(g.entered)
		<-g.release
	}
	return cards, err
}

func TestInvalidateSetsDuringLoadIsNotLost(t *testing.T) {
	t.Parallel()
	loader := &gatedLoader{
		fakeLoader: newFakeLoader(),
		entered:    make(chan struct{}),
		release:    make(chan struct{}),
	}
	set := uuid.New()
	loader.add(set, reviewedCard("", 0, 0, 0, testNow))
	loader.armed.Store(true)
	svc, _ := newTestService(t, loader)
	ctx := context.Background()

	type result struct {
		n   int
		err error
	}
	first := make(chan result, 1)
	go func() {
		n, err := svc.DueCount(ctx, []uuid.UUID{set}, testNow)
		first <- result{n, err}
	}()

	<-loader.entered
	loader.add(set, reviewedCard("", 0, 0, 0, testNow))
	svc.InvalidateSets(set)
	close(loader.release)

	r := <-first
	require.NoError(t, r.err)
	assert.Equal(t, 1, r.n, "the in-flight read saw one card")

	due, err := svc.DueCount(ctx, []uuid.UUID{set}, testNow)
	require.NoError(t, err)
	assert.Equal(t, 2, due, "a write invalidated during the load must be visible next time")
}
