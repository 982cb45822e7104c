package srs

import (
	"errors"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/phrazzld/scry-study/internal/domain"
)

// Common errors
var (
	ErrNilCard      = errors.New("card cannot be nil")
	ErrInvalidGrade = domain.ErrInvalidGrade
	ErrInvalidDays  = errors.New("postpone days must be at least 1")
)

// ShuffleFunc permutes n elements by calling swap, with the contract of rand.Shuffle.
type ShuffleFunc func(n int, swap func(i, j int))

// Scheduler applies the SM-2 variant to cards and builds review queues and
// study sessions. It holds no per-card state, so a single Scheduler may be
// shared by any number of goroutines as long as no two of them grade the
// same card at once.
type Scheduler struct {
	params  *Params
	shuffle ShuffleFunc
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithShuffle replaces the session shuffle, which defaults to math/rand/v2.
func WithShuffle(fn ShuffleFunc) Option {
	return func(s *Scheduler) {
		if fn != nil {
			s.shuffle = fn
		}
	}
}

// NewScheduler creates a scheduler with the given parameters.
// A nil params uses NewDefaultParams.
func NewScheduler(params *Params, opts ...Option) *Scheduler {
	if params == nil {
		params = NewDefaultParams()
	}
	s := &Scheduler{
		params:  params,
		shuffle: rand.Shuffle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewDefaultScheduler creates a scheduler with default parameters
func NewDefaultScheduler() *Scheduler {
	return NewScheduler(nil)
}

// Params returns the scheduler's parameters.
func (s *Scheduler) Params() *Params {
	return s.params
}

// GradeCard records a review of card at now and reschedules it in place.
// It sets LastReviewedAt, increments ReviewCount and the counter for grade,
// and updates EaseFactor, IntervalDays and NextReviewAt.
//
// The only failures are a nil card or a Grade value outside the three
// defined grades; for every valid input the operation is total.
func (s *Scheduler) GradeCard(card *domain.Card, grade domain.Grade, now time.Time) error {
	if card == nil {
		return ErrNilCard
	}
	if !grade.Valid() {
		return ErrInvalidGrade
	}

	next := nextSchedule(card, grade, now, s.params)
	card.EaseFactor = next.easeFactor
	card.IntervalDays = next.intervalDays
	card.NextReviewAt = next.nextReviewAt

	reviewedAt := now
	card.LastReviewedAt = &reviewedAt
	card.ReviewCount++
	switch grade {
	case domain.GradeAgain:
		card.AgainCount++
	case domain.GradeGood:
		card.GoodCount++
	case domain.GradeEasy:
		card.EasyCount++
	}

	return nil
}

// EstimateNextReviewAt returns the NextReviewAt that GradeCard would set for
// grade at now, without modifying card.
func (s *Scheduler) EstimateNextReviewAt(card *domain.Card, grade domain.Grade, now time.Time) (time.Time, error) {
	if card == nil {
		return time.Time{}, ErrNilCard
	}
	if !grade.Valid() {
		return time.Time{}, ErrInvalidGrade
	}
	return nextSchedule(card, grade, now, s.params).nextReviewAt, nil
}

// PostponeReview pushes the card's next review forward by days calendar days.
// Interval, ease factor and counters are left untouched.
func (s *Scheduler) PostponeReview(card *domain.Card, days int) error {
	if card == nil {
		return ErrNilCard
	}
	if days < 1 {
		return ErrInvalidDays
	}
	card.NextReviewAt = card.NextReviewAt.AddDate(0, 0, days)
	return nil
}

// DailyReviewQueue returns every due card across sets, ordered by
// NextReviewAt ascending. Cards with equal due times keep the order in which
// they were encountered.
func (s *Scheduler) DailyReviewQueue(sets []domain.LoadedSet, now time.Time) []*domain.Card {
	var due []*domain.Card
	for _, set := range sets {
		for _, card := range set.Cards {
			if card != nil && card.IsDue(now) {
				due = append(due, card)
			}
		}
	}
	sortByNextReview(due)
	return due
}

// StudySession picks up to maxNew unseen cards (oldest first) and up to
// maxReview due, previously reviewed cards (most overdue first) from set,
// then shuffles the combined selection so new and review cards interleave.
func (s *Scheduler) StudySession(set domain.LoadedSet, maxNew, maxReview int, now time.Time) []*domain.Card {
	var fresh, review []*domain.Card
	for _, card := range set.Cards {
		switch {
		case card == nil:
		case card.IsNew():
			fresh = append(fresh, card)
		case card.IsDue(now):
			review = append(review, card)
		}
	}

	slices.SortStableFunc(fresh, func(a, b *domain.Card) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	sortByNextReview(review)

	session := make([]*domain.Card, 0, min(len(fresh), max(maxNew, 0))+min(len(review), max(maxReview, 0)))
	session = append(session, fresh[:min(len(fresh), max(maxNew, 0))]...)
	session = append(session, review[:min(len(review), max(maxReview, 0))]...)

	s.shuffle(len(session), func(i, j int) {
		session[i], session[j] = session[j], session[i]
	})
	return session
}

// EstimateDailyStudyMinutes is a linear estimate of today's review time:
// the size of the daily queue times SecondsPerCard, floored to whole minutes.
func (s *Scheduler) EstimateDailyStudyMinutes(sets []domain.LoadedSet, now time.Time) int {
	return EstimateMinutes(len(s.DailyReviewQueue(sets, now)), s.params)
}

// EstimateMinutes converts a queue length into whole minutes of study.
func EstimateMinutes(queueLen int, params *Params) int {
	return queueLen * params.SecondsPerCard / 60
}

func sortByNextReview(cards []*domain.Card) {
	slices.SortStableFunc(cards, func(a, b *domain.Card) int {
		return a.NextReviewAt.Compare(b.NextReviewAt)
	})
}
