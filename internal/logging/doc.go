// Package logging wraps log/slog with the console and JSON handlers used
// across splice, plus attribute aliases and standardized field names.
package logging
