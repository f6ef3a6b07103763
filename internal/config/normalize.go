package config

import (
	"fmt"
	"os"
	"strings"

	"subfetch/internal/language"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeSubtitles()
	c.normalizeProviders()
	c.normalizeCache()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if value, ok := os.LookupEnv("SUBFETCH_CACHE_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.CacheDir = strings.TrimSpace(value)
	}
	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		c.Paths.CacheDir = defaultCacheDir()
	}
	var err error
	if c.Paths.CacheDir, err = expandPath(c.Paths.CacheDir); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.XRefDirs, err = expandPaths(c.Paths.XRefDirs); err != nil {
		return fmt.Errorf("paths.xref_dirs: %w", err)
	}
	if c.Paths.ScanDirs, err = expandPaths(c.Paths.ScanDirs); err != nil {
		return fmt.Errorf("paths.scan_dirs: %w", err)
	}
	c.Paths.FFprobe = strings.TrimSpace(c.Paths.FFprobe)
	if c.Paths.FFprobe == "" {
		c.Paths.FFprobe = defaultFFprobeBinary
	}
	exts := make([]string, 0, len(c.Paths.VideoExtensions))
	for _, ext := range c.Paths.VideoExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts = append(exts, ext)
	}
	if len(exts) == 0 {
		exts = append(exts, defaultVideoExtensions...)
	}
	c.Paths.VideoExtensions = dedupe(exts)
	return nil
}

func (c *Config) normalizeSubtitles() {
	langs := make([]string, 0, len(c.Subtitles.Languages))
	for _, lang := range c.Subtitles.Languages {
		normalized := strings.ToLower(strings.TrimSpace(lang))
		if normalized == "" {
			continue
		}
		if code := language.ToISO2(normalized); code != "" {
			normalized = code
		}
		langs = append(langs, normalized)
	}
	if len(langs) == 0 {
		langs = []string{defaultLanguage}
	}
	c.Subtitles.Languages = dedupe(langs)

	c.Subtitles.FetchMode = strings.TrimSpace(c.Subtitles.FetchMode)
	if c.Subtitles.FetchMode == "" {
		c.Subtitles.FetchMode = defaultFetchMode
	}
	// A negative minimum behaves as "accept anything".
	if c.Subtitles.MinScore < 0 {
		c.Subtitles.MinScore = 0
	}
	if c.Subtitles.HIScoreAdjust < 0 {
		c.Subtitles.HIScoreAdjust = -c.Subtitles.HIScoreAdjust
	}
	c.Subtitles.SearchMode = strings.ToLower(strings.TrimSpace(c.Subtitles.SearchMode))
	if c.Subtitles.SearchMode == "" {
		c.Subtitles.SearchMode = SearchModeAdvanced
	}
	c.Subtitles.ForceEncoding = strings.TrimSpace(c.Subtitles.ForceEncoding)
	if strings.EqualFold(c.Subtitles.ForceEncoding, "none") {
		c.Subtitles.ForceEncoding = ""
	}
	if c.Subtitles.MinVideoSizeMB < 0 {
		c.Subtitles.MinVideoSizeMB = 0
	}
	if c.Subtitles.MaxAgeHours < 0 {
		c.Subtitles.MaxAgeHours = 0
	}
	if c.Subtitles.Workers <= 0 {
		c.Subtitles.Workers = 1
	}
}

func (c *Config) normalizeProviders() {
	c.Providers.Movie = normalizeNames(c.Providers.Movie)
	c.Providers.TV = normalizeNames(c.Providers.TV)
	if c.Providers.TimeoutSeconds <= 0 {
		c.Providers.TimeoutSeconds = defaultProviderTimeout
	}

	ost := &c.Providers.OpenSubtitles
	ost.APIKey = envFallback(ost.APIKey, "OPENSUBTITLES_API_KEY")
	ost.UserToken = envFallback(ost.UserToken, "OPENSUBTITLES_USER_TOKEN")
	ost.UserAgent = strings.TrimSpace(ost.UserAgent)
	if ost.UserAgent == "" {
		ost.UserAgent = defaultOpenSubtitlesUA
	}
	ost.BaseURL = strings.TrimSpace(ost.BaseURL)
	if ost.BaseURL == "" {
		ost.BaseURL = defaultOpenSubtitlesBaseURL
	}
	if ost.RequestsPerSecond <= 0 {
		ost.RequestsPerSecond = defaultOpenSubtitlesRate
	}

	a7 := &c.Providers.Addic7ed
	a7.Username = envFallback(a7.Username, "ADDIC7ED_USERNAME")
	a7.Password = envFallback(a7.Password, "ADDIC7ED_PASSWORD")
	a7.BaseURL = strings.TrimSpace(a7.BaseURL)
	if a7.BaseURL == "" {
		a7.BaseURL = defaultAddic7edBaseURL
	}

	c.Providers.TheSubDB.BaseURL = strings.TrimSpace(c.Providers.TheSubDB.BaseURL)
	if c.Providers.TheSubDB.BaseURL == "" {
		c.Providers.TheSubDB.BaseURL = defaultTheSubDBBaseURL
	}

	c.Providers.Subscene.BaseURL = strings.TrimSpace(c.Providers.Subscene.BaseURL)
	if c.Providers.Subscene.BaseURL == "" {
		c.Providers.Subscene.BaseURL = defaultSubsceneBaseURL
	}
}

func (c *Config) normalizeCache() {
	c.Cache.Backend = strings.ToLower(strings.TrimSpace(c.Cache.Backend))
	if c.Cache.Backend == "" {
		c.Cache.Backend = defaultCacheBackend
	}
	if c.Cache.TTLDays <= 0 {
		c.Cache.TTLDays = defaultCacheTTLDays
	}
	if value, ok := os.LookupEnv("SUBFETCH_REDIS_ADDR"); ok && strings.TrimSpace(value) != "" {
		c.Cache.RedisAddr = strings.TrimSpace(value)
	}
	c.Cache.RedisAddr = strings.TrimSpace(c.Cache.RedisAddr)
	if c.Cache.RedisAddr == "" {
		c.Cache.RedisAddr = defaultRedisAddr
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "auto", "console", "json":
	default:
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.MaxSizeMB <= 0 {
		c.Logging.MaxSizeMB = defaultLogMaxSizeMB
	}
	if c.Logging.MaxBackups < 0 {
		c.Logging.MaxBackups = 0
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

func envFallback(value, key string) string {
	value = strings.TrimSpace(value)
	if value != "" {
		return value
	}
	if env, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(env)
	}
	return ""
}

func expandPaths(values []string) ([]string, error) {
	out := make([]string, 0, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		expanded, err := expandPath(value)
		if err != nil {
			return nil, err
		}
		out = append(out, expanded)
	}
	return dedupe(out), nil
}

func normalizeNames(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		value = strings.ToLower(strings.TrimSpace(value))
		if value != "" {
			out = append(out, value)
		}
	}
	return dedupe(out)
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := values[:0]
	for _, value := range values {
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}
