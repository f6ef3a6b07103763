package config

const (
	SearchModeBasic    = "basic"
	SearchModeAdvanced = "advanced"

	CacheBackendSQLite = "sqlite"
	CacheBackendRedis  = "redis"
	CacheBackendMemory = "memory"
)

const (
	defaultLogDir               = "~/.local/share/subfetch/logs"
	defaultLogFormat            = "auto"
	defaultLogLevel             = "info"
	defaultLogMaxSizeMB         = 10
	defaultLogMaxBackups        = 3
	defaultLogRetentionDays     = 30
	defaultLanguage             = "en"
	defaultFetchMode            = "BestScore"
	defaultMinScore             = 20
	defaultHIScoreAdjust        = 3
	defaultMinVideoSizeMB       = 150
	defaultMaxAgeHours          = 24
	defaultProviderTimeout      = 10
	defaultOpenSubtitlesUA      = "subfetch v1"
	defaultOpenSubtitlesRate    = 1.0
	defaultOpenSubtitlesBaseURL = "https://api.opensubtitles.com/api/v1"
	defaultAddic7edBaseURL      = "https://www.addic7ed.com"
	defaultTheSubDBBaseURL      = "http://api.thesubdb.com"
	defaultSubsceneBaseURL      = "https://subscene.com"
	defaultCacheBackend         = CacheBackendSQLite
	defaultCacheTTLDays         = 30
	defaultRedisAddr            = "127.0.0.1:6379"
	defaultFFprobeBinary        = "ffprobe"
)

var defaultVideoExtensions = []string{
	".mkv", ".avi", ".divx", ".xvid", ".mov", ".wmv", ".mp4", ".mpg", ".mpeg", ".vob", ".iso", ".m4v", ".ts", ".m2ts",
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:          defaultLogDir,
			CacheDir:        defaultCacheDir(),
			FFprobe:         defaultFFprobeBinary,
			VideoExtensions: append([]string(nil), defaultVideoExtensions...),
		},
		Subtitles: Subtitles{
			Languages:      []string{defaultLanguage},
			FetchMode:      defaultFetchMode,
			MinScore:       defaultMinScore,
			HIScoreAdjust:  defaultHIScoreAdjust,
			SearchMode:     SearchModeAdvanced,
			MinVideoSizeMB: defaultMinVideoSizeMB,
			MaxAgeHours:    defaultMaxAgeHours,
			Workers:        1,
		},
		Providers: Providers{
			Movie:          []string{"opensubtitles", "thesubdb"},
			TV:             []string{"opensubtitles", "addic7ed", "thesubdb"},
			TimeoutSeconds: defaultProviderTimeout,
			OpenSubtitles: OpenSubtitles{
				UserAgent:         defaultOpenSubtitlesUA,
				BaseURL:           defaultOpenSubtitlesBaseURL,
				RequestsPerSecond: defaultOpenSubtitlesRate,
			},
			Addic7ed: Addic7ed{BaseURL: defaultAddic7edBaseURL},
			TheSubDB: TheSubDB{BaseURL: defaultTheSubDBBaseURL},
			Subscene: Subscene{BaseURL: defaultSubsceneBaseURL},
		},
		Cache: Cache{
			Backend:   defaultCacheBackend,
			TTLDays:   defaultCacheTTLDays,
			RedisAddr: defaultRedisAddr,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			MaxSizeMB:     defaultLogMaxSizeMB,
			MaxBackups:    defaultLogMaxBackups,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
