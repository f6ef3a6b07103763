package providers

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"subfetch/internal/language"
	"subfetch/internal/services"
	"subfetch/internal/subtitles"
	"subfetch/internal/video"
)

var (
	// ErrInvalidSubtitle marks a downloaded payload that is not a usable subtitle.
	ErrInvalidSubtitle = errors.New("invalid subtitle")
	// ErrProviderUnavailable marks a provider that cannot serve requests right
	// now: network failure, timeout, HTTP error status, or a download limit.
	ErrProviderUnavailable = errors.New("provider unavailable")
)

// ConfigurationError reports a provider that cannot be constructed with the
// current settings, such as a missing API key.
type ConfigurationError struct {
	Provider string
	Reason   string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Provider, e.Reason)
}

// Unwrap lets errors.Is match services.ErrConfiguration.
func (e *ConfigurationError) Unwrap() error {
	return services.ErrConfiguration
}

// Capabilities describes what a provider can search.
type Capabilities struct {
	Kinds []video.Kind
	// Languages lists supported alpha2 codes. Empty means any language.
	Languages []string
	// RequiredHash names the hash algorithm the provider cannot search without.
	RequiredHash string
}

// Supports reports whether the provider can serve the video at all.
func (c Capabilities) Supports(v video.Identity) bool {
	if !slices.Contains(c.Kinds, v.Kind) {
		return false
	}
	return c.RequiredHash == "" || v.Hash(c.RequiredHash) != ""
}

// FilterLanguages returns the requested languages the provider supports, in
// request order.
func (c Capabilities) FilterLanguages(requested []string) []string {
	out := make([]string, 0, len(requested))
	for _, lang := range requested {
		code := language.ToISO2(lang)
		if code == "" {
			continue
		}
		if len(c.Languages) > 0 && !slices.Contains(c.Languages, code) {
			continue
		}
		if !slices.Contains(out, code) {
			out = append(out, code)
		}
	}
	return out
}

// Provider is one subtitle index. Search returns candidates only for the
// requested languages and an empty list for unsupported video kinds. Fetch
// returns validated subtitle bytes or an error matching ErrInvalidSubtitle or
// ErrProviderUnavailable.
type Provider interface {
	Name() string
	Capabilities() Capabilities
	Initialize(ctx context.Context) error
	Terminate(ctx context.Context) error
	Search(ctx context.Context, v video.Identity, languages []string) ([]subtitles.Candidate, error)
	Fetch(ctx context.Context, c subtitles.Candidate) ([]byte, error)
}

// ValidatePayload checks subtitle bytes and maps a failure to ErrInvalidSubtitle.
func ValidatePayload(provider string, data []byte) error {
	if err := subtitles.Validate(data); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidSubtitle, provider, err)
	}
	return nil
}

// Unavailable wraps err as ErrProviderUnavailable for the named provider.
func Unavailable(provider, message string, err error) error {
	if err == nil {
		return fmt.Errorf("%w: %s: %s", ErrProviderUnavailable, provider, message)
	}
	return fmt.Errorf("%w: %s: %s: %w", ErrProviderUnavailable, provider, message, err)
}
