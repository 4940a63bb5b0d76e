// Package logging wires log/slog with the console and JSON handlers used
// across sdrprep, plus attribute helpers and context-aware logger derivation.
package logging
