package deck

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/phrazzld/scry-study/internal/domain"
)

// ErrInvalidDeck is returned when a deck file parses but fails validation.
var ErrInvalidDeck = errors.New("invalid deck")

// Deck is a named list of cards to import into a new set.
type Deck struct {
	Name  string  `yaml:"name" validate:"required"`
	Topic string  `yaml:"topic"`
	Cards []Entry `yaml:"cards" validate:"required,min=1,dive"`
}

// Entry is the content of one card.
type Entry struct {
	Front string `yaml:"front" validate:"required"`
	Back  string `yaml:"back" validate:"required"`
	Topic string `yaml:"topic"`
}

var validate = validator.New()

// Parse decodes and validates a YAML deck. Unknown keys are rejected.
func Parse(data []byte) (*Deck, error) {
	var d Deck
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("decode deck: %w", err)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// Load reads and parses the deck file at path.
func Load(path string) (*Deck, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	d, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("load deck %s: %w", path, err)
	}
	return d, nil
}

// Validate checks that the deck has a name and at least one complete card.
func (d *Deck) Validate() error {
	if err := validate.Struct(d); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDeck, err)
	}
	return nil
}

// NewCards builds fresh domain cards for every entry, all due at now and
// created one microsecond apart so that their creation order follows the file.
func (d *Deck) NewCards(setID uuid.UUID, now time.Time) ([]*domain.Card, error) {
	cards := make([]*domain.Card, 0, len(d.Cards))
	for i, e := range d.Cards {
		topic := e.Topic
		if topic == "" {
			topic = d.Topic
		}
		card, err := domain.NewCard(setID, topic, e.Front, e.Back, now.Add(time.Duration(i)*time.Microsecond))
		if err != nil {
			return nil, fmt.Errorf("card %d: %w", i+1, err)
		}
		cards = append(cards, card)
	}
	return cards, nil
}
