package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Default scheduling values for a card that has never been reviewed.
const (
	DefaultEaseFactor = 2.5
	MinEaseFactor     = 1.3
	MaxEaseFactor     = 3.0
)

// Card-specific validation errors
var (
	// ErrCardIDEmpty is returned when a card ID is empty or nil.
	ErrCardIDEmpty = errors.New("card ID cannot be empty")

	// ErrCardContentEmpty is returned when a card has no front text.
	ErrCardContentEmpty = errors.New("card front cannot be empty")

	// ErrInvalidInterval is returned when the interval is negative.
	ErrInvalidInterval = errors.New("interval must be greater than or equal to 0")

	// ErrInvalidEaseFactor is returned when the ease factor is outside [1.3, 3.0].
	ErrInvalidEaseFactor = errors.New("ease factor must be between 1.3 and 3.0")

	// ErrInvalidReviewCounts is returned when the per-grade counters do not sum
	// to the review count, or any counter is negative.
	ErrInvalidReviewCounts = errors.New("review counters are inconsistent")

	// ErrLastReviewedMismatch is returned when LastReviewedAt is set on a card
	// that has never been reviewed, or missing on one that has.
	ErrLastReviewedMismatch = errors.New("last reviewed time must be present iff the card was reviewed")
)

// Card is a single reviewable flashcard together with its spaced repetition
// scheduling state. The scheduling fields are only ever mutated by the srs
// scheduler; everything else is content.
type Card struct {
	ID        uuid.UUID `json:"id" yaml:"id"`
	SetID     uuid.UUID `json:"set_id" yaml:"set_id"`
	Topic     string    `json:"topic,omitempty" yaml:"topic,omitempty"`
	Front     string    `json:"front" yaml:"front"`
	Back      string    `json:"back" yaml:"back"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`

	EaseFactor     float64    `json:"ease_factor" yaml:"ease_factor"`   // 1.3-3.0
	IntervalDays   int        `json:"interval_days" yaml:"interval_days"` // 0 means not yet successfully reviewed
	NextReviewAt   time.Time  `json:"next_review_at" yaml:"next_review_at"`
	ReviewCount    int        `json:"review_count" yaml:"review_count"`
	AgainCount     int        `json:"again_count" yaml:"again_count"`
	GoodCount      int        `json:"good_count" yaml:"good_count"`
	EasyCount      int        `json:"easy_count" yaml:"easy_count"`
	LastReviewedAt *time.Time `json:"last_reviewed_at,omitempty" yaml:"last_reviewed_at,omitempty"`
}

// NewCard creates a card that is due immediately. setID may be uuid.Nil for
// cards that do not belong to a set.
func NewCard(setID uuid.UUID, topic, front, back string, now time.Time) (*Card, error) {
	card := &Card{
		ID:           uuid.New(),
		SetID:        setID,
		Topic:        strings.TrimSpace(topic),
		Front:        front,
		Back:         back,
		CreatedAt:    now,
		EaseFactor:   DefaultEaseFactor,
		IntervalDays: 0,
		NextReviewAt: now,
	}

	if err := card.Validate(); err != nil {
		return nil, err
	}

	return card, nil
}

// Validate checks if the Card has valid data.
// Returns an error if any field fails validation.
func (c *Card) Validate() error {
	if c.ID == uuid.Nil {
		return ErrCardIDEmpty
	}

	if strings.TrimSpace(c.Front) == "" {
		return ErrCardContentEmpty
	}

	if c.IntervalDays < 0 {
		return ErrInvalidInterval
	}

	if c.EaseFactor < MinEaseFactor || c.EaseFactor > MaxEaseFactor {
		return ErrInvalidEaseFactor
	}

	if c.AgainCount < 0 || c.GoodCount < 0 || c.EasyCount < 0 ||
		c.ReviewCount != c.AgainCount+c.GoodCount+c.EasyCount {
		return ErrInvalidReviewCounts
	}

	if (c.ReviewCount > 0) != (c.LastReviewedAt != nil) {
		return ErrLastReviewedMismatch
	}

	return nil
}

// IsDue reports whether the card should be reviewed at now.
func (c *Card) IsDue(now time.Time) bool {
	return !c.NextReviewAt.After(now)
}

// IsNew reports whether the card has never been reviewed.
func (c *Card) IsNew() bool {
	return c.ReviewCount == 0
}

// SuccessRate is the share of reviews graded Good or Easy. New cards report 0.
func (c *Card) SuccessRate() float64 {
	if c.ReviewCount == 0 {
		return 0
	}
	return float64(c.GoodCount+c.EasyCount) / float64(c.ReviewCount)
}

// Clone returns a deep copy of the card.
func (c *Card) Clone() *Card {
	clone := *c
	if c.LastReviewedAt != nil {
		t := *c.LastReviewedAt
		clone.LastReviewedAt = &t
	}
	return &clone
}
