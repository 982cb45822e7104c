// Package logger configures log/slog for the application and carries
// request-scoped loggers through context.Context.
package logger
