package study

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/scry-study/internal/calendar"
	"github.com/phrazzld/scry-study/internal/deck"
	"github.com/phrazzld/scry-study/internal/domain"
	"github.com/phrazzld/scry-study/internal/domain/srs"
	"github.com/phrazzld/scry-study/internal/events"
	"github.com/phrazzld/scry-study/internal/platform/logger"
	"github.com/phrazzld/scry-study/internal/store"
	"github.com/phrazzld/scry-study/internal/streak"
)

// Repositories groups the stores the service reads and writes.
type Repositories struct {
	Cards   store.CardStore
	Sets    store.CardSetStore
	Streaks store.StreakStore
}

func (r Repositories) withTx(tx *sql.Tx) Repositories {
	return Repositories{
		Cards:   r.Cards.WithTx(tx),
		Sets:    r.Sets.WithTx(tx),
		Streaks: r.Streaks.WithTx(tx),
	}
}

// Config holds the session limits and the calendar streaks are counted in.
type Config struct {
	MaxNew    int
	MaxReview int
	Calendar  calendar.Calendar
}

// StreakSummary is the streak as shown to the user.
type StreakSummary struct {
	Current      int           `json:"current" yaml:"current"`
	Longest      int           `json:"longest" yaml:"longest"`
	LastStudyDay *calendar.Day `json:"last_study_day,omitempty" yaml:"last_study_day,omitempty"`
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now as the source of the current time.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// Service runs study operations against the stores.
type Service struct {
	db        *sql.DB
	repos     Repositories
	scheduler *srs.Scheduler
	emitter   events.EventEmitter
	cfg       Config
	now       func() time.Time
	logger    *slog.Logger
}

// NewService creates a study Service. When db is non-nil, every write runs
// inside a transaction on db using the stores' WithTx variants; the stores
// must then be bound to the same db. A nil emitter disables events.
func NewService(
	db *sql.DB,
	repos Repositories,
	scheduler *srs.Scheduler,
	emitter events.EventEmitter,
	cfg Config,
	logger *slog.Logger,
	opts ...Option,
) (*Service, error) {
	if repos.Cards == nil || repos.Sets == nil || repos.Streaks == nil {
		return nil, errors.New("study: card, set and streak stores are required")
	}
	if scheduler == nil {
		scheduler = srs.NewDefaultScheduler()
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Service{
		db:        db,
		repos:     repos,
		scheduler: scheduler,
		emitter:   emitter,
		cfg:       cfg,
		now:       time.Now,
		logger:    logger.With(slog.String("component", "study_service")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// CreateSet saves a new, empty card set.
func (s *Service) CreateSet(ctx context.Context, name string) (*domain.CardSet, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	set, err := domain.NewCardSet(name, s.now())
	if err != nil {
		return nil, NewServiceError(OpCreateSet, "invalid card set", err)
	}
	if err := s.repos.Sets.Create(ctx, set); err != nil {
		log.Error("failed to save card set",
			slog.String("error", err.Error()),
			slog.String("set_id", set.ID.String()))
		return nil, NewServiceError(OpCreateSet, "failed to save card set", err)
	}

	log.Info("created card set", slog.String("set_id", set.ID.String()), slog.String("name", set.Name))
	return set, nil
}

// ListSets returns every card set, oldest first.
func (s *Service) ListSets(ctx context.Context) ([]*domain.CardSet, error) {
	sets, err := s.repos.Sets.List(ctx)
	if err != nil {
		return nil, NewServiceError(OpListSets, "failed to list card sets", err)
	}
	return sets, nil
}

// AddCard creates a card in setID. The card is due immediately.
func (s *Service) AddCard(ctx context.Context, setID uuid.UUID, topic, front, back string) (*domain.Card, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	card, err := domain.NewCard(setID, topic, front, back, s.now())
	if err != nil {
		return nil, NewServiceError(OpAddCard, "invalid card", err)
	}

	if err := s.repos.Cards.Create(ctx, card); err != nil {
		if errors.Is(err, store.ErrCardSetNotFound) {
			return nil, NewServiceError(OpAddCard, "card set not found", ErrSetNotFound)
		}
		log.Error("failed to save card",
			slog.String("error", err.Error()),
			slog.String("set_id", setID.String()))
		return nil, NewServiceError(OpAddCard, "failed to save card", err)
	}

	log.Debug("added card", slog.String("card_id", card.ID.String()), slog.String("set_id", setID.String()))
	s.emit(ctx, events.TypeCardsAdded, events.SetPayload{SetID: setID, CardCount: 1})
	return card, nil
}

// ImportDeck creates a set holding every card of d in one transaction.
func (s *Service) ImportDeck(ctx context.Context, d *deck.Deck) (*domain.CardSet, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	now := s.now()

	set, err := domain.NewCardSet(d.Name, now)
	if err != nil {
		return nil, NewServiceError(OpImportDeck, "invalid card set", err)
	}
	cards, err := d.NewCards(set.ID, now)
	if err != nil {
		return nil, NewServiceError(OpImportDeck, "invalid card", err)
	}

	err = s.inTx(ctx, func(ctx context.Context, r Repositories) error {
		if err := r.Sets.Create(ctx, set); err != nil {
			return fmt.Errorf("save card set: %w", err)
		}
		if err := r.Cards.CreateMultiple(ctx, cards); err != nil {
			return fmt.Errorf("save cards: %w", err)
		}
		return nil
	})
	if err != nil {
		log.Error("failed to import deck",
			slog.String("error", err.Error()),
			slog.String("name", d.Name),
			slog.Int("card_count", len(cards)))
		return nil, NewServiceError(OpImportDeck, "failed to import deck", err)
	}

	set.CardIDs = make([]uuid.UUID, len(cards))
	for i, c := range cards {
		set.CardIDs[i] = c.ID
	}

	log.Info("imported deck",
		slog.String("set_id", set.ID.String()),
		slog.Int("card_count", len(cards)))
	s.emit(ctx, events.TypeCardsAdded, events.SetPayload{SetID: set.ID, CardCount: len(cards)})
	return set, nil
}

// SubmitGrade applies grade to the card and persists its new schedule.
//
// If grading succeeds but saving fails, the graded card is returned together
// with the error: the in-memory card keeps its new state and nothing is
// undone, so the caller may retry the save or discard the card.
func (s *Service) SubmitGrade(ctx context.Context, cardID uuid.UUID, grade domain.Grade) (*domain.Card, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if !grade.Valid() {
		log.Warn("invalid grade",
			slog.String("card_id", cardID.String()),
			slog.Int("grade", int(grade)))
		return nil, NewSubmitGradeError("invalid grade", ErrInvalidGrade)
	}

	now := s.now()
	var graded *domain.Card
	err := s.inTx(ctx, func(ctx context.Context, r Repositories) error {
		card, err := r.Cards.GetByID(ctx, cardID)
		if err != nil {
			return mapCardError(err)
		}
		if err := s.scheduler.GradeCard(card, grade, now); err != nil {
			return err
		}
		graded = card
		if err := r.Cards.UpdateSchedule(ctx, card); err != nil {
			return fmt.Errorf("save card: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrCardNotFound) {
			log.Warn("card not found for grading", slog.String("card_id", cardID.String()))
			return nil, NewSubmitGradeError("card not found", err)
		}
		log.Error("failed to submit grade",
			slog.String("error", err.Error()),
			slog.String("card_id", cardID.String()),
			slog.String("grade", grade.String()))
		return graded, NewSubmitGradeError("failed to save graded card", err)
	}

	log.Debug("graded card",
		slog.String("card_id", cardID.String()),
		slog.String("grade", grade.String()),
		slog.Float64("ease_factor", graded.EaseFactor),
		slog.Int("interval_days", graded.IntervalDays),
		slog.Time("next_review_at", graded.NextReviewAt))

	s.emit(ctx, events.TypeCardGraded, events.CardPayload{
		CardID:       graded.ID,
		SetID:        graded.SetID,
		Grade:        grade.String(),
		NextReviewAt: graded.NextReviewAt,
	})
	return graded, nil
}

// GradePreview is the schedule a card would get for one grade.
type GradePreview struct {
	Grade        string    `json:"grade" yaml:"grade"`
	NextReviewAt time.Time `json:"next_review_at" yaml:"next_review_at"`
}

// Preview reports, for each grade, when the card would next be reviewed if
// it were graded now. Nothing is saved.
func (s *Service) Preview(ctx context.Context, cardID uuid.UUID) ([]GradePreview, error) {
	card, err := s.repos.Cards.GetByID(ctx, cardID)
	if err != nil {
		err = mapCardError(err)
		if errors.Is(err, ErrCardNotFound) {
			return nil, NewServiceError(OpPreview, "card not found", err)
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to load card for preview",
			slog.String("error", err.Error()),
			slog.String("card_id", cardID.String()))
		return nil, NewServiceError(OpPreview, "failed to load card", err)
	}

	now := s.now()
	previews := make([]GradePreview, 0, 3)
	for _, grade := range []domain.Grade{domain.GradeAgain, domain.GradeGood, domain.GradeEasy} {
		next, err := s.scheduler.EstimateNextReviewAt(card, grade, now)
		if err != nil {
			return nil, NewServiceError(OpPreview, "failed to estimate next review", err)
		}
		previews = append(previews, GradePreview{Grade: grade.String(), NextReviewAt: next})
	}
	return previews, nil
}

// Postpone moves the card's next review days calendar days later.
func (s *Service) Postpone(ctx context.Context, cardID uuid.UUID, days int) (*domain.Card, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if days < 1 {
		return nil, NewServiceError(OpPostpone, "invalid number of days", ErrInvalidDays)
	}

	var postponed *domain.Card
	err := s.inTx(ctx, func(ctx context.Context, r Repositories) error {
		card, err := r.Cards.GetByID(ctx, cardID)
		if err != nil {
			return mapCardError(err)
		}
		if err := s.scheduler.PostponeReview(card, days); err != nil {
			return err
		}
		postponed = card
		if err := r.Cards.UpdateSchedule(ctx, card); err != nil {
			return fmt.Errorf("save card: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrCardNotFound) {
			return nil, NewServiceError(OpPostpone, "card not found", err)
		}
		log.Error("failed to postpone card",
			slog.String("error", err.Error()),
			slog.String("card_id", cardID.String()),
			slog.Int("days", days))
		return postponed, NewServiceError(OpPostpone, "failed to save postponed card", err)
	}

	log.Debug("postponed card",
		slog.String("card_id", cardID.String()),
		slog.Int("days", days),
		slog.Time("next_review_at", postponed.NextReviewAt))

	s.emit(ctx, events.TypeCardPostponed, events.CardPayload{
		CardID:       postponed.ID,
		SetID:        postponed.SetID,
		NextReviewAt: postponed.NextReviewAt,
	})
	return postponed, nil
}

// StartSession selects the cards to study from setID now, using the
// configured limits for new and review cards.
func (s *Service) StartSession(ctx context.Context, setID uuid.UUID) ([]*domain.Card, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	set, err := s.repos.Sets.GetByID(ctx, setID)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, NewStartSessionError("card set not found", ErrSetNotFound)
		}
		return nil, NewStartSessionError("failed to load card set", err)
	}

	cards, err := s.repos.Cards.ListBySet(ctx, setID)
	if err != nil {
		log.Error("failed to load cards for session",
			slog.String("error", err.Error()),
			slog.String("set_id", setID.String()))
		return nil, NewStartSessionError("failed to load cards", err)
	}

	session := s.scheduler.StudySession(
		domain.LoadedSet{Set: set, Cards: cards},
		s.cfg.MaxNew,
		s.cfg.MaxReview,
		s.now(),
	)

	log.Debug("started study session",
		slog.String("set_id", setID.String()),
		slog.Int("set_size", len(cards)),
		slog.Int("session_size", len(session)))
	return session, nil
}

// CompleteSession records a finished session for the streak. setIDs names
// the sets studied, for cache invalidation.
func (s *Service) CompleteSession(ctx context.Context, setIDs ...uuid.UUID) (StreakSummary, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	now := s.now()

	var state domain.StreakState
	err := s.inTx(ctx, func(ctx context.Context, r Repositories) error {
		stored, err := r.Streaks.Get(ctx)
		if err != nil {
			return fmt.Errorf("load streak: %w", err)
		}
		tracker := streak.NewTracker(stored, s.cfg.Calendar)
		tracker.RecordCompletion(now)
		state = tracker.State()
		if err := r.Streaks.Save(ctx, state); err != nil {
			return fmt.Errorf("save streak: %w", err)
		}
		return nil
	})
	if err != nil {
		log.Error("failed to complete session", slog.String("error", err.Error()))
		return StreakSummary{}, NewCompleteSessionError("failed to record session", err)
	}

	log.Info("completed study session",
		slog.Int("current_streak", state.CurrentStreak),
		slog.Int("longest_streak", state.LongestStreak))

	s.emit(ctx, events.TypeSessionCompleted, events.SessionPayload{
		SetIDs:        setIDs,
		CurrentStreak: state.CurrentStreak,
	})
	return StreakSummary{
		Current:      state.CurrentStreak,
		Longest:      state.LongestStreak,
		LastStudyDay: state.LastStudyDay,
	}, nil
}

// Streak returns the streak as of now. A streak whose last study day is
// older than yesterday is reported as 0 without being modified.
func (s *Service) Streak(ctx context.Context) (StreakSummary, error) {
	stored, err := s.repos.Streaks.Get(ctx)
	if err != nil {
		return StreakSummary{}, NewServiceError(OpStreak, "failed to load streak", err)
	}

	tracker := streak.NewTracker(stored, s.cfg.Calendar)
	state := tracker.State()
	return StreakSummary{
		Current:      tracker.CurrentStreakAt(s.now()),
		Longest:      state.LongestStreak,
		LastStudyDay: state.LastStudyDay,
	}, nil
}

// inTx runs fn with stores bound to a transaction when the service has a
// database, and with the plain stores otherwise.
func (s *Service) inTx(ctx context.Context, fn func(context.Context, Repositories) error) error {
	if s.db == nil {
		return fn(ctx, s.repos)
	}
	return store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return fn(ctx, s.repos.withTx(tx))
	})
}

// emit publishes an event. Delivery failures are logged and otherwise
// ignored; the write they describe has already been committed.
func (s *Service) emit(ctx context.Context, eventType string, payload any) {
	if s.emitter == nil {
		return
	}
	log := logger.FromContextOrDefault(ctx, s.logger)

	event, err := events.NewEvent(eventType, payload)
	if err != nil {
		log.Error("failed to build event",
			slog.String("event_type", eventType),
			slog.String("error", err.Error()))
		return
	}
	if err := s.emitter.EmitEvent(ctx, event); err != nil {
		log.Warn("event delivery failed",
			slog.String("event_type", eventType),
			slog.String("event_id", event.ID.String()),
			slog.String("error", err.Error()))
	}
}

func mapCardError(err error) error {
	if store.IsNotFoundError(err) {
		return ErrCardNotFound
	}
	return fmt.Errorf("load card: %w", err)
}
