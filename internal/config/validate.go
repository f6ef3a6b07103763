package config

import (
	"errors"
	"fmt"
	"strings"

	"subfetch/internal/language"
)

var fetchModes = map[string]struct{}{
	"impairedonly":  {},
	"standardonly":  {},
	"bestscore":     {},
	"impairedfirst": {},
	"standardfirst": {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateSubtitles(); err != nil {
		return err
	}
	if err := c.validateProviders(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateSubtitles() error {
	for _, lang := range c.Subtitles.Languages {
		if language.ToISO2(lang) == "" {
			return fmt.Errorf("subtitles.languages: unrecognized language %q", lang)
		}
	}
	if _, ok := fetchModes[compactMode(c.Subtitles.FetchMode)]; !ok {
		return fmt.Errorf("subtitles.fetch_mode: unsupported value %q (use ImpairedOnly, StandardOnly, BestScore, ImpairedFirst, or StandardFirst)", c.Subtitles.FetchMode)
	}
	switch c.Subtitles.SearchMode {
	case SearchModeBasic, SearchModeAdvanced:
	default:
		return fmt.Errorf("subtitles.search_mode: unsupported value %q (use basic or advanced)", c.Subtitles.SearchMode)
	}
	if c.Subtitles.Workers > 16 {
		return errors.New("subtitles.workers must be 16 or fewer")
	}
	return nil
}

func (c *Config) validateProviders() error {
	if len(c.Providers.Movie) == 0 && len(c.Providers.TV) == 0 {
		return errors.New("providers: at least one of providers.movie or providers.tv must list a provider")
	}
	if c.Providers.TimeoutSeconds > 300 {
		return errors.New("providers.timeout_seconds must be 300 or less")
	}
	return nil
}

func (c *Config) validateCache() error {
	switch c.Cache.Backend {
	case CacheBackendSQLite, CacheBackendMemory:
	case CacheBackendRedis:
		if strings.TrimSpace(c.Cache.RedisAddr) == "" {
			return errors.New("cache.redis_addr must be set when cache.backend is redis")
		}
	default:
		return fmt.Errorf("cache.backend: unsupported value %q (use sqlite, redis, or memory)", c.Cache.Backend)
	}
	return nil
}

func compactMode(value string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(value) {
		if r >= 'a' && r <= 'z' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
