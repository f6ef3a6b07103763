// Package logging assembles structured slog loggers and formatting helpers used
// across subfetch.
//
// It owns the console/JSON handlers, centralizes level and output plumbing
// (including rotated log files), and exposes context-aware helpers so pipeline
// code can tag log lines with the video, stage, provider, and run correlation
// id. The package also provides a no-op logger for tests and wiring code that
// cannot fail.
package logging
