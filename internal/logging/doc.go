// Package logging wraps log/slog with the attribute helpers and standardized
// field keys the rest of the repository logs with. Components receive a
// *slog.Logger and never construct handlers themselves.
package logging
