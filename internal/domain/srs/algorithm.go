package srs

import (
	"math"
	"time"

	"github.com/phrazzld/scry-study/internal/domain"
)

// ceilEpsilon absorbs float error in products such as 10*1.3 so that an
// exact whole number of days is not rounded up to the next day.
const ceilEpsilon = 1e-9

// schedule is the scheduling outcome of grading a card. Both GradeCard and
// EstimateNextReviewAt are built on it so they cannot drift apart.
type schedule struct {
	easeFactor   float64
	intervalDays int
	nextReviewAt time.Time
}

// clampEaseFactor pulls ef into [MinEaseFactor, MaxEaseFactor].
func clampEaseFactor(ef float64, params *Params) float64 {
	if math.IsNaN(ef) || ef < params.MinEaseFactor {
		return params.MinEaseFactor
	}
	if ef > params.MaxEaseFactor {
		return params.MaxEaseFactor
	}
	return ef
}

// calculateNewEaseFactor determines the new ease factor based on the grade.
//
// Again lowers the ease factor, Good leaves it unchanged and Easy raises it.
// The input is clamped before the adjustment and the result after it, so a
// card loaded with out-of-range data is repaired on its next review.
func calculateNewEaseFactor(currentEF float64, grade domain.Grade, params *Params) float64 {
	ef := clampEaseFactor(currentEF, params)
	return clampEaseFactor(ef+params.EaseFactorAdjustment[grade], params)
}

// calculateNewInterval determines the new interval in days.
//
// The first two successful reviews use fixed intervals (0→1→6 for Good,
// 0→4 for Easy); after that the interval compounds by the ease factor, with
// an extra bonus for Easy. Again always resets to 0. easeFactor is the value
// before this review's adjustment.
func calculateNewInterval(currentInterval int, easeFactor float64, grade domain.Grade, params *Params) int {
	if currentInterval < 0 {
		currentInterval = 0
	}

	var interval int
	switch grade {
	case domain.GradeAgain:
		return 0

	case domain.GradeGood:
		switch currentInterval {
		case 0:
			interval = params.FirstReviewIntervals[domain.GradeGood]
		case 1:
			interval = params.SecondGoodInterval
		default:
			interval = ceilDays(float64(currentInterval) * easeFactor)
		}

	case domain.GradeEasy:
		if currentInterval == 0 {
			interval = params.FirstReviewIntervals[domain.GradeEasy]
		} else {
			interval = ceilDays(float64(currentInterval) * easeFactor * params.EasyBonus)
		}
	}

	if interval > params.MaxIntervalDays {
		interval = params.MaxIntervalDays
	}
	return interval
}

// calculateNextReviewAt converts an interval into the next review time.
// Again schedules a short relearn delay in minutes; every other grade
// schedules whole calendar days from now.
func calculateNextReviewAt(interval int, grade domain.Grade, now time.Time, params *Params) time.Time {
	if grade == domain.GradeAgain {
		return now.Add(time.Duration(params.AgainReviewMinutes) * time.Minute)
	}
	return now.AddDate(0, 0, interval)
}

// nextSchedule computes the scheduling state a card would have after being
// graded at now. It does not modify the card.
func nextSchedule(card *domain.Card, grade domain.Grade, now time.Time, params *Params) schedule {
	currentEF := clampEaseFactor(card.EaseFactor, params)
	interval := calculateNewInterval(card.IntervalDays, currentEF, grade, params)

	return schedule{
		easeFactor:   calculateNewEaseFactor(currentEF, grade, params),
		intervalDays: interval,
		nextReviewAt: calculateNextReviewAt(interval, grade, now, params),
	}
}

func ceilDays(days float64) int {
	if days >= math.MaxInt32 {
		return math.MaxInt32
	}
	return int(math.Ceil(days - ceilEpsilon))
}
