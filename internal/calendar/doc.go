// Package calendar provides calendar-day arithmetic in a configured location.
//
// Streaks and day-scoped cache keys depend on "which day is it" being stable
// for a given instant, so every such decision goes through a Calendar rather
// than through raw time.Time truncation.
package calendar
