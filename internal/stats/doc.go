// Package stats answers aggregate questions about card sets: how many cards
// are due or new, what today's review queue looks like, how well each topic
// is known and how many reviews fall on each of the next seven days.
//
// Every query is memoized in a cache.Cache under a key derived from the
// sorted set IDs (and the calendar day for day-scoped queries). Writers that
// change scheduling state must call InvalidateSets, or register a
// CacheInvalidator with the event emitter so that it happens on their behalf.
package stats
