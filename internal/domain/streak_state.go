package domain

import "github.com/phrazzld/scry-study/internal/calendar"

// StreakState is the persisted record of consecutive study days.
type StreakState struct {
	CurrentStreak int           `json:"current_streak" yaml:"current_streak"`
	LongestStreak int           `json:"longest_streak" yaml:"longest_streak"`
	LastStudyDay  *calendar.Day `json:"last_study_day,omitempty" yaml:"last_study_day,omitempty"`
}
