package sqlite_test

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/scry-study/internal/calendar"
	"github.com/phrazzld/scry-study/internal/domain"
	"github.com/phrazzld/scry-study/internal/platform/sqlite"
	"github.com/phrazzld/scry-study/internal/store"
)

var testNow = time.Date(2024, time.February, 12, 18, 30, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// openTestDB returns a migrated in-memory database.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.Open(ctx, sqlite.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, sqlite.Migrate(ctx, db, "up", discardLogger()))
	return db
}

func createSet(t *testing.T, db *sql.DB, name string, at time.Time) *domain.CardSet {
	t.Helper()
	set, err := domain.NewCardSet(name, at)
	require.NoError(t, err)
	require.NoError(t, sqlite.NewCardSetStore(db, discardLogger()).Create(context.Background(), set))
	return set
}

func newCard(t *testing.T, setID uuid.UUID, front string, at time.Time) *domain.Card {
	t.Helper()
	card, err := domain.NewCard(setID, "verbs", front, "back of "+front, at)
	require.NoError(t, err)
	return card
}

func TestCardStoreRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := openTestDB(t)
	cards := sqlite.NewCardStore(db, discardLogger())
	set := createSet(t, db, "spanish", testNow)

	card := newCard(t, set.ID, "hablar", testNow.Add(123456789*time.Nanosecond))
	require.NoError(t, cards.Create(ctx, card))

	got, err := cards.GetByID(ctx, card.ID)
	require.NoError(t, err)
	assert.Equal(t, card.ID, got.ID)
	assert.Equal(t, set.ID, got.SetID)
	assert.Equal(t, "verbs", got.Topic)
	assert.Equal(t, "hablar", got.Front)
	assert.True(t, card.CreatedAt.Equal(got.CreatedAt))
	assert.True(t, card.NextReviewAt.Equal(got.NextReviewAt))
	assert.Nil(t, got.LastReviewedAt)
	assert.Equal(t, domain.DefaultEaseFactor, got.EaseFactor)
}

func TestCardStoreUpdateSchedule(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := openTestDB(t)
	cards := sqlite.NewCardStore(db, discardLogger())

	card := newCard(t, uuid.Nil, "loose card", testNow)
	require.NoError(t, cards.Create(ctx, card))

	reviewed := testNow.Add(time.Hour)
	card.EaseFactor = 2.65
	card.IntervalDays = 4
	card.NextReviewAt = reviewed.AddDate(0, 0, 4)
	card.ReviewCount, card.EasyCount = 1, 1
	card.LastReviewedAt = &reviewed
	card.Front = "content is not part of the schedule"
	require.NoError(t, cards.UpdateSchedule(ctx, card))

	got, err := cards.GetByID(ctx, card.ID)
	require.NoError(t, err)
	assert.Equal(t, uuid.Nil, got.SetID)
	assert.InDelta(t, 2.65, got.EaseFactor, 1e-12)
	assert.Equal(t, 4, got.IntervalDays)
	assert.True(t, card.NextReviewAt.Equal(got.NextReviewAt))
	assert.Equal(t, 1, got.EasyCount)
	require.NotNil(t, got.LastReviewedAt)
	assert.True(t, reviewed.Equal(*got.LastReviewedAt))
	assert.Equal(t, "loose card", got.Front)
}

func TestCardStoreErrors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := openTestDB(t)
	cards := sqlite.NewCardStore(db, discardLogger())

	_, err := cards.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, store.ErrCardNotFound)

	missing := newCard(t, uuid.Nil, "never stored", testNow)
	assert.ErrorIs(t, cards.UpdateSchedule(ctx, missing), store.ErrCardNotFound)
	assert.ErrorIs(t, cards.Delete(ctx, missing.ID), store.ErrCardNotFound)

	orphan := newCard(t, uuid.New(), "unknown set", testNow)
	assert.ErrorIs(t, cards.Create(ctx, orphan), store.ErrCardSetNotFound)

	card := newCard(t, uuid.Nil, "dup", testNow)
	require.NoError(t, cards.Create(ctx, card))
	err = cards.Create(ctx, card)
	assert.ErrorIs(t, err, store.ErrCardExists)
	assert.True(t, store.IsDuplicateError(err))

	invalid := newCard(t, uuid.Nil, "bad ease", testNow)
	invalid.EaseFactor = 9
	assert.ErrorIs(t, cards.Create(ctx, invalid), store.ErrInvalidEntity)
}

func TestCardStoreWriteFailures(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := openTestDB(t)
	cards := sqlite.NewCardStore(db, discardLogger())

	card := newCard(t, uuid.Nil, "stored", testNow)
	require.NoError(t, cards.Create(ctx, card))
	require.NoError(t, db.Close())

	err := cards.UpdateSchedule(ctx, card)
	assert.ErrorIs(t, err, store.ErrUpdateFailed)
	assert.False(t, store.IsNotFoundError(err))
	var storeErr *store.StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "update", storeErr.Operation)

	err = cards.Delete(ctx, card.ID)
	assert.ErrorIs(t, err, store.ErrDeleteFailed)
	assert.False(t, store.IsNotFoundError(err))
}

func TestCardStoreListAndDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := openTestDB(t)
	cards := sqlite.NewCardStore(db, discardLogger())
	sets := sqlite.NewCardSetStore(db, discardLogger())

	a := createSet(t, db, "a", testNow)
	b := createSet(t, db, "b", testNow.Add(time.Minute))

	second := newCard(t, a.ID, "second", testNow.Add(2*time.Second))
	first := newCard(t, a.ID, "first", testNow.Add(time.Second))
	other := newCard(t, b.ID, "other", testNow)

	err := store.RunInTransaction(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
		return cards.WithTx(tx).CreateMultiple(ctx, []*domain.Card{second, first, other})
	})
	require.NoError(t, err)

	listed, err := cards.ListBySet(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, first.ID, listed[0].ID)
	assert.Equal(t, second.ID, listed[1].ID)

	loaded, err := sets.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{first.ID, second.ID}, loaded.CardIDs)

	all, err := sets.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].Name)
	assert.Equal(t, []uuid.UUID{other.ID}, all[1].CardIDs)

	require.NoError(t, cards.Delete(ctx, first.ID))
	listed, err = cards.ListBySet(ctx, a.ID)
	require.NoError(t, err)
	assert.Len(t, listed, 1)

	empty, err := cards.ListBySet(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = sets.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, store.ErrCardSetNotFound)
}

func TestCreateMultipleRollsBack(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := openTestDB(t)
	cards := sqlite.NewCardStore(db, discardLogger())
	set := createSet(t, db, "set", testNow)

	good := newCard(t, set.ID, "good", testNow)
	bad := newCard(t, uuid.New(), "points at a missing set", testNow)

	err := store.RunInTransaction(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
		return cards.WithTx(tx).CreateMultiple(ctx, []*domain.Card{good, bad})
	})
	require.ErrorIs(t, err, store.ErrCardSetNotFound)

	listed, err := cards.ListBySet(ctx, set.ID)
	require.NoError(t, err)
	assert.Empty(t, listed, "a failed batch leaves nothing behind")
}

func TestStreakStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := openTestDB(t)
	streaks := sqlite.NewStreakStore(db, discardLogger())

	state, err := streaks.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.StreakState{}, state)

	day := calendar.Day{Year: 2024, Month: time.February, Day: 29}
	require.NoError(t, streaks.Save(ctx, domain.StreakState{CurrentStreak: 3, LongestStreak: 8, LastStudyDay: &day}))
	require.NoError(t, streaks.Save(ctx, domain.StreakState{CurrentStreak: 4, LongestStreak: 8, LastStudyDay: &day}))

	state, err = streaks.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, state.CurrentStreak)
	assert.Equal(t, 8, state.LongestStreak)
	require.NotNil(t, state.LastStudyDay)
	assert.Equal(t, day, *state.LastStudyDay)
}

func TestMigrateDownAndStatus(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := openTestDB(t)

	require.NoError(t, sqlite.Migrate(ctx, db, "status", discardLogger()))
	require.NoError(t, sqlite.Migrate(ctx, db, "down", discardLogger()))

	_, err := db.ExecContext(ctx, `SELECT 1 FROM cards`)
	assert.Error(t, err, "schema is gone after down")

	assert.Error(t, sqlite.Migrate(ctx, db, "sideways", discardLogger()))
}
