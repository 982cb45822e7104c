package domain

import (
	"fmt"
	"strings"
)

// Grade is the learner's self-assessment after reviewing a card.
type Grade int

// The three grades a review can receive.
const (
	GradeAgain Grade = iota + 1
	GradeGood
	GradeEasy
)

// String returns the lowercase name of the grade.
func (g Grade) String() string {
	switch g {
	case GradeAgain:
		return "again"
	case GradeGood:
		return "good"
	case GradeEasy:
		return "easy"
	default:
		return fmt.Sprintf("grade(%d)", int(g))
	}
}

// Valid reports whether g is one of the three defined grades.
func (g Grade) Valid() bool {
	switch g {
	case GradeAgain, GradeGood, GradeEasy:
		return true
	default:
		return false
	}
}

// ParseGrade converts "again", "good" or "easy" (case-insensitive) to a Grade.
func ParseGrade(s string) (Grade, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "again":
		return GradeAgain, nil
	case "good":
		return GradeGood, nil
	case "easy":
		return GradeEasy, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidGrade, s)
	}
}
