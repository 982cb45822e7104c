package stats

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/phrazzld/scry-study/internal/calendar"
	"github.com/phrazzld/scry-study/internal/domain"
)

// ForecastDays is the length of the review forecast, today included.
const ForecastDays = 7

// GeneralTopic groups cards that carry no topic.
const GeneralTopic = "general"

// SetSummary holds the derived values of one card set.
type SetSummary struct {
	Total       int     `json:"total" yaml:"total"`
	Due         int     `json:"due" yaml:"due"`
	New         int     `json:"new" yaml:"new"`
	SuccessRate float64 `json:"success_rate" yaml:"success_rate"`
}

// TopicScore is the review performance of all cards sharing a topic.
type TopicScore struct {
	Topic       string  `json:"topic" yaml:"topic"`
	Cards       int     `json:"cards" yaml:"cards"`
	Reviewed    int     `json:"reviewed" yaml:"reviewed"`
	Proficiency float64 `json:"proficiency" yaml:"proficiency"`
}

// DayForecast is the number of reviews falling on one calendar day.
type DayForecast struct {
	Day calendar.Day `json:"day" yaml:"day"`
	Due int          `json:"due" yaml:"due"`
}

// Summarize computes the derived values of a set from its cards.
// SuccessRate is the share of all reviews graded good or easy, 0 when no
// card has been reviewed.
func Summarize(cards []*domain.Card, now time.Time) SetSummary {
	var s SetSummary
	var reviews, passed int
	for _, c := range cards {
		s.Total++
		if c.IsDue(now) {
			s.Due++
		}
		if c.IsNew() {
			s.New++
		}
		reviews += c.ReviewCount
		passed += c.GoodCount + c.EasyCount
	}
	if reviews > 0 {
		s.SuccessRate = float64(passed) / float64(reviews)
	}
	return s
}

// CountDue returns how many cards are due at now.
func CountDue(cards []*domain.Card, now time.Time) int {
	n := 0
	for _, c := range cards {
		if c.IsDue(now) {
			n++
		}
	}
	return n
}

// CountNew returns how many cards have never been reviewed.
func CountNew(cards []*domain.Card) int {
	n := 0
	for _, c := range cards {
		if c.IsNew() {
			n++
		}
	}
	return n
}

// TopicScores groups cards by topic, sorted by topic name. Proficiency is
// the share of the topic's reviews graded good or easy.
func TopicScores(cards []*domain.Card) []TopicScore {
	byTopic := make(map[string]*TopicScore)
	passed := make(map[string]int)

	for _, c := range cards {
		topic := strings.TrimSpace(c.Topic)
		if topic == "" {
			topic = GeneralTopic
		}
		score, ok := byTopic[topic]
		if !ok {
			score = &TopicScore{Topic: topic}
			byTopic[topic] = score
		}
		score.Cards++
		score.Reviewed += c.ReviewCount
		passed[topic] += c.GoodCount + c.EasyCount
	}

	scores := make([]TopicScore, 0, len(byTopic))
	for topic, score := range byTopic {
		if score.Reviewed > 0 {
			score.Proficiency = float64(passed[topic]) / float64(score.Reviewed)
		}
		scores = append(scores, *score)
	}
	slices.SortFunc(scores, func(a, b TopicScore) int {
		return cmp.Compare(a.Topic, b.Topic)
	})
	return scores
}

// ForecastCards buckets cards by the calendar day of their next review,
// starting with the day containing now. Cards already overdue count
// toward today; cards due after the last forecast day are left out.
func ForecastCards(cards []*domain.Card, now time.Time, cal calendar.Calendar) []DayForecast {
	today := cal.DayOf(now)
	out := make([]DayForecast, ForecastDays)
	for i := range out {
		out[i].Day = today.AddDays(i)
	}

	for _, c := range cards {
		offset := calendar.DaysBetween(today, cal.DayOf(c.NextReviewAt))
		if offset < 0 {
			offset = 0
		}
		if offset < ForecastDays {
			out[offset].Due++
		}
	}
	return out
}
