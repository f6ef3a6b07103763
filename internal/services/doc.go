// Package services defines shared utilities consumed by the acquisition
// pipeline and the provider integrations.
//
// Key responsibilities:
//   - Context helpers that stamp video paths, stage names, provider names, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper that classify failures
//     (configuration vs transient) consistently across packages.
//
// Use these helpers when wiring new stage logic so error handling and
// observability stay uniform across the pipeline.
package services
