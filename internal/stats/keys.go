package stats

import (
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-study/internal/calendar"
)

// Cache key prefixes. One prefix per query keeps values of different types
// apart inside a shared cache.
const (
	keyDue      = "due"
	keyNew      = "new"
	keyQueue    = "queue"
	keySet      = "set"
	keyTopics   = "topics"
	keyForecast = "forecast"
)

// normalizeIDs returns a sorted copy of ids with duplicates removed.
func normalizeIDs(ids []uuid.UUID) []uuid.UUID {
	out := slices.Clone(ids)
	slices.SortFunc(out, func(a, b uuid.UUID) int {
		return strings.Compare(a.String(), b.String())
	})
	return slices.Compact(out)
}

// setsKey builds a key independent of the order of ids.
func setsKey(prefix string, ids []uuid.UUID) string {
	var b strings.Builder
	b.WriteString(prefix)
	b.WriteByte(':')
	for i, id := range normalizeIDs(ids) {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(id.String())
	}
	return b.String()
}

// dayKey scopes a sets key to a calendar day.
func dayKey(prefix string, ids []uuid.UUID, day calendar.Day) string {
	return setsKey(prefix, ids) + ":" + day.String()
}

// keyMentions reports whether key was built from a set list containing id.
func keyMentions(key string, id uuid.UUID) bool {
	return strings.Contains(key, id.String())
}
