package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CardSet validation errors
var (
	// ErrCardSetIDEmpty is returned when a set ID is empty or nil.
	ErrCardSetIDEmpty = errors.New("card set ID cannot be empty")

	// ErrCardSetNameEmpty is returned when a set has no name.
	ErrCardSetNameEmpty = errors.New("card set name cannot be empty")
)

// CardSet is a named, ordered collection of cards. It holds card identifiers
// only; cards are loaded and scheduled independently of the set.
type CardSet struct {
	ID        uuid.UUID   `json:"id" yaml:"id"`
	Name      string      `json:"name" yaml:"name"`
	CreatedAt time.Time   `json:"created_at" yaml:"created_at"`
	CardIDs   []uuid.UUID `json:"card_ids,omitempty" yaml:"card_ids,omitempty"`
}

// NewCardSet creates an empty set with a fresh ID.
func NewCardSet(name string, now time.Time) (*CardSet, error) {
	set := &CardSet{
		ID:        uuid.New(),
		Name:      strings.TrimSpace(name),
		CreatedAt: now,
	}

	if err := set.Validate(); err != nil {
		return nil, err
	}

	return set, nil
}

// Validate checks if the CardSet has valid data.
func (s *CardSet) Validate() error {
	if s.ID == uuid.Nil {
		return ErrCardSetIDEmpty
	}
	if s.Name == "" {
		return ErrCardSetNameEmpty
	}
	return nil
}

// LoadedSet pairs a set with the cards currently belonging to it. It is the
// input shape for scheduling and statistics.
type LoadedSet struct {
	Set   *CardSet
	Cards []*Card
}
