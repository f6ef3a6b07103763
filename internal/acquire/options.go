package acquire

import (
	"fmt"
	"time"

	"subfetch/internal/config"
	"subfetch/internal/subtitles"
)

// Options controls a batch.
type Options struct {
	Languages       []string
	Mode            subtitles.FetchMode
	HIAdjust        int
	MinScore        int
	Single          bool
	Overwrite       bool
	Advanced        bool
	IgnoreEmbedded  bool
	ForceEncoding   string
	Tidy            bool
	MovieProviders  []string
	TVProviders     []string
	ProviderTimeout time.Duration
	CacheTTL        time.Duration
	Workers         int
	XRefDirs        []string
	VideoExtensions []string
	MinVideoSize    int64
	MaxAge          time.Duration
}

// OptionsFromConfig maps a loaded configuration onto batch options.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	if cfg == nil {
		return Options{}, fmt.Errorf("acquire options: config is required")
	}
	mode, err := subtitles.ParseFetchMode(cfg.Subtitles.FetchMode)
	if err != nil {
		return Options{}, fmt.Errorf("acquire options: %w", err)
	}
	return Options{
		Languages:       append([]string(nil), cfg.Subtitles.Languages...),
		Mode:            mode,
		HIAdjust:        cfg.Subtitles.HIScoreAdjust,
		MinScore:        cfg.Subtitles.MinScore,
		Single:          cfg.Subtitles.Single,
		Overwrite:       cfg.Subtitles.Overwrite,
		Advanced:        cfg.AdvancedSearch(),
		IgnoreEmbedded:  cfg.Subtitles.IgnoreEmbedded,
		ForceEncoding:   cfg.Subtitles.ForceEncoding,
		Tidy:            cfg.Subtitles.TidySub,
		MovieProviders:  append([]string(nil), cfg.Providers.Movie...),
		TVProviders:     append([]string(nil), cfg.Providers.TV...),
		ProviderTimeout: cfg.ProviderTimeout(),
		CacheTTL:        cfg.CacheTTL(),
		Workers:         cfg.Subtitles.Workers,
		XRefDirs:        append([]string(nil), cfg.Paths.XRefDirs...),
		VideoExtensions: append([]string(nil), cfg.Paths.VideoExtensions...),
		MinVideoSize:    cfg.MinVideoSize(),
		MaxAge:          cfg.MaxAge(),
	}, nil
}

func (o Options) policy() subtitles.Policy {
	return o.Mode.Policy(o.HIAdjust)
}
