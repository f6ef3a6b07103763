// Package config loads, normalizes, and validates subfetch configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// OPENSUBTITLES_API_KEY and ADDIC7ED_USERNAME. The Config type centralizes
// every knob the CLI and acquisition pipeline need so provider credentials,
// cache settings, and fetch policy are discovered in one pass.
package config
