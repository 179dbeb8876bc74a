// Package logging defines the structured-logging interface used across
// gophvault. The only implementation wraps log/slog.
//
// Callers never pass secrets, derived keys or ciphertexts as arguments;
// service names and state names are the usual attributes.
package logging

import "context"

// Logger is a context-aware, structured logger.
//
// The variadic args are interpreted as key–value pairs, e.g.:
//
//	log.Info(ctx, "vault unlocked", "services", n)
type Logger interface {
	// Debug logs diagnostic detail (migrations, backend selection).
	Debug(ctx context.Context, msg string, args ...any)

	// Info logs an informational message.
	Info(ctx context.Context, msg string, args ...any)

	// Warn logs a warning message for unusual but non-fatal conditions.
	Warn(ctx context.Context, msg string, args ...any)

	// Error logs an error message for failures.
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given key–value pairs.
	With(args ...any) Logger
}
