// Package logging assembles structured slog loggers and formatting helpers used
// by the packer CLI and the launcher.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes helpers that keep WARN lines consistent (event type,
// hint, impact). The package also provides a no-op logger for tests and wiring
// code that cannot fail.
package logging
