package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	LogDir          string   `toml:"log_dir"`
	CacheDir        string   `toml:"cache_dir"`
	XRefDirs        []string `toml:"xref_dirs"`
	ScanDirs        []string `toml:"scan_dirs"`
	FFprobe         string   `toml:"ffprobe"`
	VideoExtensions []string `toml:"video_extensions"`
}

// Subtitles contains the acquisition policy.
type Subtitles struct {
	Languages      []string `toml:"languages"`
	FetchMode      string   `toml:"fetch_mode"`
	MinScore       int      `toml:"min_score"`
	HIScoreAdjust  int      `toml:"hi_score_adjust"`
	Single         bool     `toml:"single"`
	Overwrite      bool     `toml:"overwrite"`
	SearchMode     string   `toml:"search_mode"`
	IgnoreEmbedded bool     `toml:"ignore_embedded"`
	ForceEncoding  string   `toml:"force_encoding"`
	TidySub        bool     `toml:"tidy_sub"`
	MinVideoSizeMB int      `toml:"min_video_size_mb"`
	MaxAgeHours    int      `toml:"max_age_hours"`
	Workers        int      `toml:"workers"`
}

// OpenSubtitles contains credentials for the OpenSubtitles REST API.
type OpenSubtitles struct {
	APIKey            string  `toml:"api_key"`
	UserAgent         string  `toml:"user_agent"`
	UserToken         string  `toml:"user_token"`
	BaseURL           string  `toml:"base_url"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// Addic7ed contains optional login credentials for addic7ed.com.
type Addic7ed struct {
	Username     string `toml:"username"`
	Password     string `toml:"password"`
	RequireLogin bool   `toml:"require_login"`
	BaseURL      string `toml:"base_url"`
}

// TheSubDB contains the hash-lookup endpoint.
type TheSubDB struct {
	BaseURL string `toml:"base_url"`
}

// Subscene contains the site address of subscene.com.
type Subscene struct {
	BaseURL string `toml:"base_url"`
}

// Providers selects which providers serve movies and episodes.
type Providers struct {
	Movie          []string      `toml:"movie"`
	TV             []string      `toml:"tv"`
	TimeoutSeconds int           `toml:"timeout_seconds"`
	OpenSubtitles  OpenSubtitles `toml:"opensubtitles"`
	Addic7ed       Addic7ed      `toml:"addic7ed"`
	TheSubDB       TheSubDB      `toml:"thesubdb"`
	Subscene       Subscene      `toml:"subscene"`
}

// Cache configures the provider response cache.
type Cache struct {
	Backend   string `toml:"backend"`
	TTLDays   int    `toml:"ttl_days"`
	RedisAddr string `toml:"redis_addr"`
	RedisDB   int    `toml:"redis_db"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	File          bool   `toml:"file"`
	MaxSizeMB     int    `toml:"max_size_mb"`
	MaxBackups    int    `toml:"max_backups"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for subfetch.
//
// Configuration sections by subsystem:
//   - Paths: log/cache directories, cross-reference and scan directories
//   - Subtitles: languages, fetch mode, scoring thresholds, placement options
//   - Providers: per-kind provider lists, timeouts, credentials
//   - Cache: provider response cache backend and TTL
//   - Logging: log format, level, and rotation
type Config struct {
	Paths     Paths     `toml:"paths"`
	Subtitles Subtitles `toml:"subtitles"`
	Providers Providers `toml:"providers"`
	Cache     Cache     `toml:"cache"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the per-user configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/subfetch/config.toml")
}

// Load reads the configuration at path, or searches the default locations
// when path is empty, then normalizes and validates it. A missing file is not
// an error: defaults are used and exists is false.
func Load(path string) (cfg *Config, resolved string, exists bool, err error) {
	resolved, exists, err = locate(path)
	if err != nil {
		return nil, "", false, err
	}
	loaded := Default()
	if exists {
		if err := decodeFile(resolved, &loaded); err != nil {
			return nil, "", false, err
		}
	}
	if err := loaded.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := loaded.Validate(); err != nil {
		return nil, "", false, err
	}
	return &loaded, resolved, exists, nil
}

func decodeFile(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()
	decoder := toml.NewDecoder(file)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// locate resolves an explicit path, or picks the first existing file of the
// user config and ./subfetch.toml. With nothing found it returns the user
// config path.
func locate(path string) (string, bool, error) {
	var candidates []string
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		candidates = []string{expanded}
	} else {
		user, err := DefaultConfigPath()
		if err != nil {
			return "", false, err
		}
		local, err := filepath.Abs("subfetch.toml")
		if err != nil {
			return "", false, err
		}
		candidates = []string{user, local}
	}
	for _, candidate := range candidates {
		info, err := os.Stat(candidate)
		switch {
		case err == nil && !info.IsDir():
			return candidate, true, nil
		case err != nil && !errors.Is(err, fs.ErrNotExist):
			return "", false, fmt.Errorf("stat config: %w", err)
		}
	}
	return candidates[0], false, nil
}

// EnsureDirectories creates the cache and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.CacheDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFprobeBinary returns the ffprobe executable used for embedded subtitle detection.
func (c *Config) FFprobeBinary() string {
	if c == nil || strings.TrimSpace(c.Paths.FFprobe) == "" {
		return "ffprobe"
	}
	return c.Paths.FFprobe
}

// ProviderTimeout returns the per-provider query timeout.
func (c *Config) ProviderTimeout() time.Duration {
	return time.Duration(c.Providers.TimeoutSeconds) * time.Second
}

// CacheTTL returns the provider cache entry lifetime.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLDays) * 24 * time.Hour
}

// AdvancedSearch reports whether embedded subtitle detection is enabled.
func (c *Config) AdvancedSearch() bool {
	return c.Subtitles.SearchMode == SearchModeAdvanced
}

// MinVideoSize returns the smallest video size in bytes worth querying.
func (c *Config) MinVideoSize() int64 {
	return int64(c.Subtitles.MinVideoSizeMB) * 1024 * 1024
}

// MaxAge returns the scan age cutoff, or zero when disabled.
func (c *Config) MaxAge() time.Duration {
	return time.Duration(c.Subtitles.MaxAgeHours) * time.Hour
}

func expandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if path == "~" || strings.HasPrefix(path, "~/") || strings.HasPrefix(path, `~\`) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		path = filepath.Join(home, path[1:])
	}
	absolute, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", path, err)
	}
	return absolute, nil
}

// ExpandPath resolves a leading ~ and makes path absolute and clean.
func ExpandPath(path string) (string, error) {
	return expandPath(path)
}

func defaultCacheDir() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "subfetch")
	}
	return "~/.cache/subfetch"
}

// CreateSample writes the commented sample configuration to path, creating
// its directory.
func CreateSample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
