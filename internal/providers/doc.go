// Package providers defines the contract every subtitle index implements and
// the plumbing they share.
//
// A Provider searches for candidates in the requested languages and fetches
// the bytes of one candidate. Failures are classified with errors.Is against
// ErrProviderUnavailable (network, HTTP status, download limits) and
// ErrInvalidSubtitle (payload that does not parse). A provider that cannot be
// built from the current configuration returns a *ConfigurationError from its
// factory.
//
// Built-in providers live in subpackages and add themselves to
// DefaultRegistry from init, so a binary selects its providers by importing
// them. HTTPClient gives each provider a rate limiter and retries on 429 and
// 503 responses.
package providers
