package study_test

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/scry-study/internal/calendar"
	"github.com/phrazzld/scry-study/internal/deck"
	"github.com/phrazzld/scry-study/internal/domain"
	"github.com/phrazzld/scry-study/internal/domain/srs"
	"github.com/phrazzld/scry-study/internal/events"
	"github.com/phrazzld/scry-study/internal/platform/sqlite"
	"github.com/phrazzld/scry-study/internal/service/study"
	"github.com/phrazzld/scry-study/internal/store"
)

var day1 = time.Date(2024, time.April, 8, 19, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// recorder collects emitted events.
type recorder struct {
	mu     sync.Mutex
	events []*events.Event
}

func (r *recorder) HandleEvent(_ context.Context, e *events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

type fixture struct {
	db      *sql.DB
	repos   study.Repositories
	svc     *study.Service
	clock   *testClock
	events  *recorder
	emitter *events.InMemoryEventEmitter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.Open(ctx, sqlite.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, sqlite.Migrate(ctx, db, "up", discardLogger()))

	f := &fixture{
		db:      db,
		clock:   &testClock{now: day1},
		events:  &recorder{},
		emitter: events.NewInMemoryEventEmitter(discardLogger()),
		repos: study.Repositories{
			Cards:   sqlite.NewCardStore(db, discardLogger()),
			Sets:    sqlite.NewCardSetStore(db, discardLogger()),
			Streaks: sqlite.NewStreakStore(db, discardLogger()),
		},
	}
	f.emitter.RegisterHandler(f.events)

	f.svc, err = study.NewService(db, f.repos, srs.NewDefaultScheduler(), f.emitter,
		study.Config{MaxNew: 2, MaxReview: 10, Calendar: calendar.New(time.UTC)},
		discardLogger(), study.WithClock(f.clock.Now))
	require.NoError(t, err)
	return f
}

func TestNewServiceRequiresStores(t *testing.T) {
	t.Parallel()
	_, err := study.NewService(nil, study.Repositories{}, nil, nil, study.Config{}, nil)
	assert.Error(t, err)
}

func TestSubmitGradePersistsAndEmits(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	set, err := f.svc.CreateSet(ctx, "geography")
	require.NoError(t, err)
	card, err := f.svc.AddCard(ctx, set.ID, "capitals", "France", "Paris")
	require.NoError(t, err)

	graded, err := f.svc.SubmitGrade(ctx, card.ID, domain.GradeGood)
	require.NoError(t, err)
	assert.Equal(t, 1, graded.IntervalDays)
	assert.Equal(t, day1.AddDate(0, 0, 1), graded.NextReviewAt)

	stored, err := f.repos.Cards.GetByID(ctx, card.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.ReviewCount)
	assert.Equal(t, 1, stored.GoodCount)
	assert.True(t, stored.NextReviewAt.Equal(graded.NextReviewAt))

	assert.Equal(t, []string{events.TypeCardsAdded, events.TypeCardGraded}, f.events.types())
	var payload events.CardPayload
	require.NoError(t, f.events.events[1].UnmarshalPayload(&payload))
	assert.Equal(t, set.ID, payload.SetID)
	assert.Equal(t, "good", payload.Grade)
}

func TestSubmitGradeErrors(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.SubmitGrade(ctx, uuid.New(), domain.GradeEasy)
	assert.ErrorIs(t, err, study.ErrCardNotFound)

	var serviceErr *study.ServiceError
	require.ErrorAs(t, err, &serviceErr)
	assert.Equal(t, study.OpSubmitGrade, serviceErr.Operation)

	_, err = f.svc.SubmitGrade(ctx, uuid.New(), domain.Grade(42))
	assert.ErrorIs(t, err, study.ErrInvalidGrade)
	assert.Empty(t, f.events.types())
}

// failingCards fails every schedule update.
type failingCards struct {
	store.CardStore
	err error
}

func (f failingCards) UpdateSchedule(context.Context, *domain.Card) error { return f.err }

func (f failingCards) WithTx(tx *sql.Tx) store.CardStore {
	return failingCards{CardStore: f.CardStore.WithTx(tx), err: f.err}
}

func TestSubmitGradeSaveFailureKeepsGradedCard(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	set, err := f.svc.CreateSet(ctx, "chemistry")
	require.NoError(t, err)
	card, err := f.svc.AddCard(ctx, set.ID, "", "H2O", "water")
	require.NoError(t, err)

	boom := errors.New("disk full")
	repos := f.repos
	repos.Cards = failingCards{CardStore: f.repos.Cards, err: boom}
	rec := &recorder{}
	emitter := events.NewInMemoryEventEmitter(discardLogger())
	emitter.RegisterHandler(rec)
	svc, err := study.NewService(f.db, repos, nil, emitter, study.Config{}, discardLogger(),
		study.WithClock(f.clock.Now))
	require.NoError(t, err)

	graded, err := svc.SubmitGrade(ctx, card.ID, domain.GradeAgain)
	assert.ErrorIs(t, err, boom)
	require.NotNil(t, graded, "the in-memory card keeps its new state")
	assert.Equal(t, 1, graded.AgainCount)
	assert.Empty(t, rec.types(), "nothing is announced for a failed save")

	stored, err := f.repos.Cards.GetByID(ctx, card.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsNew(), "the failed write was not persisted")
}

func TestPostpone(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	card, err := f.svc.AddCard(ctx, uuid.Nil, "", "loose card", "no set")
	require.NoError(t, err)

	postponed, err := f.svc.Postpone(ctx, card.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, day1.AddDate(0, 0, 3), postponed.NextReviewAt)
	assert.True(t, postponed.IsNew())

	_, err = f.svc.Postpone(ctx, card.ID, 0)
	assert.ErrorIs(t, err, study.ErrInvalidDays)
	_, err = f.svc.Postpone(ctx, uuid.New(), 1)
	assert.ErrorIs(t, err, study.ErrCardNotFound)

	assert.Contains(t, f.events.types(), events.TypeCardPostponed)
}

func TestPreviewDoesNotGrade(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	set, err := f.svc.CreateSet(ctx, "geography")
	require.NoError(t, err)
	card, err := f.svc.AddCard(ctx, set.ID, "", "Peru", "Lima")
	require.NoError(t, err)

	previews, err := f.svc.Preview(ctx, card.ID)
	require.NoError(t, err)
	assert.Equal(t, []study.GradePreview{
		{Grade: "again", NextReviewAt: day1.Add(10 * time.Minute)},
		{Grade: "good", NextReviewAt: day1.AddDate(0, 0, 1)},
		{Grade: "easy", NextReviewAt: day1.AddDate(0, 0, 4)},
	}, previews)

	stored, err := f.repos.Cards.GetByID(ctx, card.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.ReviewCount)
	assert.Equal(t, []string{events.TypeCardsAdded}, f.events.types())

	_, err = f.svc.Preview(ctx, uuid.New())
	assert.ErrorIs(t, err, study.ErrCardNotFound)
	var serviceErr *study.ServiceError
	require.ErrorAs(t, err, &serviceErr)
	assert.Equal(t, study.OpPreview, serviceErr.Operation)
}

func TestStartSessionUsesLimits(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	set, err := f.svc.CreateSet(ctx, "vocab")
	require.NoError(t, err)
	for i := range 4 {
		f.clock.Set(day1.Add(time.Duration(i) * time.Minute))
		_, err := f.svc.AddCard(ctx, set.ID, "", "word", "meaning")
		require.NoError(t, err)
	}
	f.clock.Set(day1.Add(time.Hour))

	session, err := f.svc.StartSession(ctx, set.ID)
	require.NoError(t, err)
	assert.Len(t, session, 2, "MaxNew caps new cards")

	_, err = f.svc.StartSession(ctx, uuid.New())
	assert.ErrorIs(t, err, study.ErrSetNotFound)
}

func TestAddCardToMissingSet(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.svc.AddCard(context.Background(), uuid.New(), "", "front", "back")
	assert.ErrorIs(t, err, study.ErrSetNotFound)

	_, err = f.svc.AddCard(context.Background(), uuid.Nil, "", "  ", "back")
	assert.ErrorIs(t, err, domain.ErrCardContentEmpty)
}

func TestCompleteSessionTracksStreak(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	setID := uuid.New()

	summary, err := f.svc.CompleteSession(ctx, setID)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Current)

	f.clock.Set(day1.Add(2 * time.Hour))
	summary, err = f.svc.CompleteSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Current, "same day counts once")

	f.clock.Set(day1.AddDate(0, 0, 1))
	summary, err = f.svc.CompleteSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Current)
	assert.Equal(t, 2, summary.Longest)

	f.clock.Set(day1.AddDate(0, 0, 4))
	shown, err := f.svc.Streak(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, shown.Current, "a broken streak displays as 0")
	assert.Equal(t, 2, shown.Longest)
	require.NotNil(t, shown.LastStudyDay)
	assert.Equal(t, "2024-04-09", shown.LastStudyDay.String())

	summary, err = f.svc.CompleteSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Current)
	assert.Equal(t, 2, summary.Longest)

	var payload events.SessionPayload
	first := f.events.events[0]
	require.Equal(t, events.TypeSessionCompleted, first.Type)
	require.NoError(t, first.UnmarshalPayload(&payload))
	assert.Equal(t, []uuid.UUID{setID}, payload.SetIDs)
}

func TestImportDeck(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	d, err := deck.Parse([]byte("name: Greek letters\ntopic: alphabet\ncards:\n  - front: alpha\n    back: a\n  - front: beta\n    back: b\n"))
	require.NoError(t, err)

	set, err := f.svc.ImportDeck(ctx, d)
	require.NoError(t, err)
	require.Len(t, set.CardIDs, 2)

	stored, err := f.repos.Sets.GetByID(ctx, set.ID)
	require.NoError(t, err)
	assert.Equal(t, set.CardIDs, stored.CardIDs)

	sets, err := f.svc.ListSets(ctx)
	require.NoError(t, err)
	require.Len(t, sets, 1)
	assert.Equal(t, "Greek letters", sets[0].Name)

	// A duplicate card ID aborts the whole import.
	dup := &deck.Deck{Name: "dup", Cards: []deck.Entry{{Front: "x", Back: "y"}}}
	repos := f.repos
	repos.Cards = duplicatingCards{CardStore: f.repos.Cards}
	svc, err := study.NewService(f.db, repos, nil, nil, study.Config{}, discardLogger())
	require.NoError(t, err)
	_, err = svc.ImportDeck(ctx, dup)
	assert.ErrorIs(t, err, store.ErrDuplicate)

	sets, err = f.svc.ListSets(ctx)
	require.NoError(t, err)
	assert.Len(t, sets, 1, "the set insert was rolled back")
}

// duplicatingCards inserts every batch twice, which violates the primary key.
type duplicatingCards struct {
	store.CardStore
}

func (d duplicatingCards) CreateMultiple(ctx context.Context, cards []*domain.Card) error {
	if err := d.CardStore.CreateMultiple(ctx, cards); err != nil {
		return err
	}
	return d.CardStore.CreateMultiple(ctx, cards)
}

func (d duplicatingCards) WithTx(tx *sql.Tx) store.CardStore {
	return duplicatingCards{CardStore: d.CardStore.WithTx(tx)}
}
