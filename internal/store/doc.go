// Package store defines the persistence contract of the study core: where
// cards, card sets and the streak record are loaded from and saved to.
// Adapters in internal/platform implement it for Postgres and SQLite.
package store
