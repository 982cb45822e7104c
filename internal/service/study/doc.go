// Package study orchestrates a study session end to end: it loads cards
// through the store contract, applies the review scheduler, persists the
// new scheduling state, maintains the streak and announces every change on
// the event bus so that cached aggregates can be invalidated.
package study
