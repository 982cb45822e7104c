// Package postgres implements the store contract on PostgreSQL through the
// pgx database/sql driver, for deployments where several devices share one
// study history.
package postgres
