// Package streak counts consecutive calendar days on which the learner
// completed at least one study session.
package streak

import (
	"time"

	"github.com/phrazzld/scry-study/internal/calendar"
	"github.com/phrazzld/scry-study/internal/domain"
)

// Tracker applies session completions to a StreakState. It is not safe for
// concurrent use; callers own the state they load and save.
type Tracker struct {
	state domain.StreakState
	cal   calendar.Calendar
}

// NewTracker returns a Tracker starting from state. Negative counters in a
// stored state are treated as zero.
func NewTracker(state domain.StreakState, cal calendar.Calendar) *Tracker {
	state.CurrentStreak = max(state.CurrentStreak, 0)
	state.LongestStreak = max(state.LongestStreak, state.CurrentStreak)
	if state.LastStudyDay != nil {
		day := *state.LastStudyDay
		state.LastStudyDay = &day
	}
	return &Tracker{state: state, cal: cal}
}

// RecordCompletion registers a completed session at now and returns the
// resulting current streak.
//
// Multiple completions on one calendar day count once. A completion on the
// day after the last study day extends the streak; any other day, including
// one earlier than the last study day, starts a new streak of 1.
func (t *Tracker) RecordCompletion(now time.Time) int {
	today := t.cal.DayOf(now)

	switch {
	case t.state.LastStudyDay == nil:
		t.state.CurrentStreak = 1
	case *t.state.LastStudyDay == today:
		// already counted today
	case calendar.DaysBetween(*t.state.LastStudyDay, today) == 1:
		t.state.CurrentStreak++
	default:
		t.state.CurrentStreak = 1
	}

	t.state.LastStudyDay = &today
	t.state.LongestStreak = max(t.state.LongestStreak, t.state.CurrentStreak)
	return t.state.CurrentStreak
}

// CurrentStreak returns the stored current streak.
func (t *Tracker) CurrentStreak() int {
	return t.state.CurrentStreak
}

// LongestStreak returns the longest streak ever recorded.
func (t *Tracker) LongestStreak() int {
	return t.state.LongestStreak
}

// CurrentStreakAt returns the streak as it stands at now: the stored value
// while the last study day is today or yesterday, 0 once a day has been
// missed. It does not modify the state.
func (t *Tracker) CurrentStreakAt(now time.Time) int {
	if t.state.LastStudyDay == nil {
		return 0
	}
	gap := calendar.DaysBetween(*t.state.LastStudyDay, t.cal.DayOf(now))
	if gap < 0 || gap > 1 {
		return 0
	}
	return t.state.CurrentStreak
}

// State returns a copy of the tracked state for persistence.
func (t *Tracker) State() domain.StreakState {
	state := t.state
	if state.LastStudyDay != nil {
		day := *state.LastStudyDay
		state.LastStudyDay = &day
	}
	return state
}
