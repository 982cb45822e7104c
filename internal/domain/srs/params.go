package srs

import (
	"github.com/phrazzld/scry-study/internal/domain"
)

// Params defines all configurable parameters for the SRS algorithm
type Params struct {
	// Core limits
	MinEaseFactor float64
	MaxEaseFactor float64

	// Ease factor adjustment applied for each grade
	EaseFactorAdjustment map[domain.Grade]float64

	// Interval assigned when a card with interval 0 is graded
	FirstReviewIntervals map[domain.Grade]int

	// Interval assigned when a card with interval 1 is graded Good
	SecondGoodInterval int

	// Extra multiplier applied on top of the ease factor for Easy
	EasyBonus float64

	// Relearn delay after Again
	AgainReviewMinutes int

	// Upper bound on any computed interval
	MaxIntervalDays int

	// Per-card time used by the daily study estimate
	SecondsPerCard int
}

// ParamsConfig allows overriding the default parameters when creating a new Params instance.
// Zero values keep the default.
type ParamsConfig struct {
	MinEaseFactor float64
	MaxEaseFactor float64

	AgainEaseFactorAdjustment float64
	EasyEaseFactorAdjustment  float64

	FirstReviewGoodInterval int
	FirstReviewEasyInterval int
	SecondGoodInterval      int
	EasyBonus               float64

	AgainReviewMinutes int
	MaxIntervalDays    int
	SecondsPerCard     int
}

// NewDefaultParams creates a new Params instance with default values
func NewDefaultParams() *Params {
	return &Params{
		MinEaseFactor: domain.MinEaseFactor,
		MaxEaseFactor: domain.MaxEaseFactor,

		EaseFactorAdjustment: map[domain.Grade]float64{
			domain.GradeAgain: -0.20,
			domain.GradeGood:  0.0,
			domain.GradeEasy:  0.15,
		},

		FirstReviewIntervals: map[domain.Grade]int{
			domain.GradeGood: 1,
			domain.GradeEasy: 4,
		},
		SecondGoodInterval: 6,
		EasyBonus:          1.3,

		// Review again in 10 minutes
		AgainReviewMinutes: 10,

		MaxIntervalDays: 36500,
		SecondsPerCard:  30,
	}
}

// NewParams creates a new Params instance with custom configuration
func NewParams(config ParamsConfig) *Params {
	params := NewDefaultParams()

	// Override core limits if provided
	if config.MinEaseFactor > 0 {
		params.MinEaseFactor = config.MinEaseFactor
	}
	if config.MaxEaseFactor > 0 {
		params.MaxEaseFactor = config.MaxEaseFactor
	}
	if params.MaxEaseFactor < params.MinEaseFactor {
		params.MaxEaseFactor = params.MinEaseFactor
	}

	// Override ease factor adjustments if provided
	if config.AgainEaseFactorAdjustment != 0 {
		params.EaseFactorAdjustment[domain.GradeAgain] = config.AgainEaseFactorAdjustment
	}
	if config.EasyEaseFactorAdjustment != 0 {
		params.EaseFactorAdjustment[domain.GradeEasy] = config.EasyEaseFactorAdjustment
	}

	// Override interval bootstrap if provided
	if config.FirstReviewGoodInterval > 0 {
		params.FirstReviewIntervals[domain.GradeGood] = config.FirstReviewGoodInterval
	}
	if config.FirstReviewEasyInterval > 0 {
		params.FirstReviewIntervals[domain.GradeEasy] = config.FirstReviewEasyInterval
	}
	if config.SecondGoodInterval > 0 {
		params.SecondGoodInterval = config.SecondGoodInterval
	}
	if config.EasyBonus > 0 {
		params.EasyBonus = config.EasyBonus
	}

	if config.AgainReviewMinutes > 0 {
		params.AgainReviewMinutes = config.AgainReviewMinutes
	}
	if config.MaxIntervalDays > 0 {
		params.MaxIntervalDays = config.MaxIntervalDays
	}
	if config.SecondsPerCard > 0 {
		params.SecondsPerCard = config.SecondsPerCard
	}

	return params
}
