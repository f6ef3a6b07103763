package acquire

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/sourcegraph/conc/pool"

	"subfetch/internal/cache"
	"subfetch/internal/fileutil"
	"subfetch/internal/logging"
	"subfetch/internal/media/ffprobe"
	"subfetch/internal/providers"
	"subfetch/internal/services"
	"subfetch/internal/subtitles"
	"subfetch/internal/video"
	"subfetch/internal/xref"
)

const defaultProviderTimeout = 10 * time.Second

// LocalProvider names placements served from a cross-reference directory.
const LocalProvider = "xref"

// Prober inspects a video container.
type Prober func(ctx context.Context, path string) (ffprobe.Result, error)

// FFprobe returns a Prober running the given ffprobe binary.
func FFprobe(binary string) Prober {
	return func(ctx context.Context, path string) (ffprobe.Result, error) {
		return ffprobe.Inspect(ctx, binary, path)
	}
}

// Dependencies are the collaborators an Acquirer works with. Cache and Probe
// may be nil; Registry defaults to providers.DefaultRegistry().
type Dependencies struct {
	Registry *providers.Registry
	Settings providers.Settings
	Cache    *cache.Cache
	Probe    Prober
	Logger   *slog.Logger
}

// Acquirer runs batches with fixed options.
type Acquirer struct {
	opts     Options
	registry *providers.Registry
	settings providers.Settings
	cache    *cache.Cache
	probe    Prober
	logger   *slog.Logger
}

// New builds an Acquirer.
func New(opts Options, deps Dependencies) *Acquirer {
	if opts.ProviderTimeout <= 0 {
		opts.ProviderTimeout = defaultProviderTimeout
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = cache.DefaultTTL
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	registry := deps.Registry
	if registry == nil {
		registry = providers.DefaultRegistry()
	}
	settings := deps.Settings
	if settings.Logger == nil {
		settings.Logger = logger
	}
	if settings.Cache == nil {
		settings.Cache = deps.Cache
	}
	if settings.CacheTTL <= 0 {
		settings.CacheTTL = opts.CacheTTL
	}
	return &Acquirer{
		opts:     opts,
		registry: registry,
		settings: settings,
		cache:    deps.Cache,
		probe:    deps.Probe,
		logger:   logging.NewComponentLogger(logger, "acquire"),
	}
}

// Placement is one subtitle written next to a video.
type Placement struct {
	Path     string
	Language string
	Provider string
	Score    int
}

// VideoResult reports what happened to one video.
type VideoResult struct {
	Video      string
	Placements []Placement
	// Skipped explains why no provider was queried, if none was.
	Skipped string
	Err     error
}

// Batch holds the state shared by the videos of one run: initialized
// providers, the cross-reference repository, and guessing hints.
type Batch struct {
	acq       *Acquirer
	providers *providerSet
	xref      *xref.Repository
	hints     *video.Hints
}

// NewBatch scans the cross-reference directories and prepares a batch.
// Close must be called to terminate the providers it initialized.
func (a *Acquirer) NewBatch(ctx context.Context) (*Batch, error) {
	var repo *xref.Repository
	if len(a.opts.XRefDirs) > 0 {
		var err error
		repo, err = xref.Scan(ctx, a.opts.XRefDirs, a.logger)
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "local", "scan xref", "cannot read cross-reference directories", err)
		}
	}
	return &Batch{
		acq:       a,
		providers: newProviderSet(a.registry, a.settings, a.logger),
		xref:      repo,
		hints:     video.NewHints(),
	}, nil
}

// Close terminates the batch's providers.
func (b *Batch) Close(ctx context.Context) {
	b.providers.close(ctx)
}

// Identify builds the identity of the video at path. Content hashes are only
// computed in advanced search mode.
func (b *Batch) Identify(path string) (video.Identity, error) {
	var algorithms []string
	if b.acq.opts.Advanced {
		algorithms = []string{video.HashOpenSubtitles, video.HashTheSubDB}
	}
	return video.FromFile(path, b.hints, algorithms...)
}

// Acquire runs every step for one video.
func (b *Batch) Acquire(ctx context.Context, v video.Identity) VideoResult {
	opts := b.acq.opts
	result := VideoResult{Video: v.Name}
	ctx = services.WithVideo(ctx, v.Name)
	logger := logging.WithContext(ctx, b.acq.logger)

	if placed, ok := b.localShortcut(ctx, logger, v); ok {
		result.Placements = placed
		if len(placed) == 0 {
			result.Skipped = "local subtitle not placed"
		}
		return result
	}

	langs := NewLanguageSet(opts.Languages)
	if !opts.Overwrite {
		satisfied, err := satisfiedLanguages(v, langs.Outstanding())
		if err != nil {
			logger.Debug("existing subtitle probe failed", logging.Error(err))
		}
		for _, lang := range satisfied {
			langs.Remove(lang)
			logger.Debug("subtitle already present", logging.String(logging.FieldLanguage, lang))
		}
		if langs.Len() == 0 {
			result.Skipped = "subtitles already present"
			logger.Debug("skipping video", logging.String("reason", result.Skipped))
			return result
		}
	}

	if opts.Advanced {
		v = b.embeddedScan(ctx, logger, v, langs)
		if langs.Len() == 0 {
			result.Skipped = "subtitles embedded"
			logger.Debug("skipping video", logging.String("reason", result.Skipped))
			return result
		}
	}

	selected := b.selectProviders(ctx, v)
	if len(selected) == 0 {
		result.Skipped = "no usable providers"
		logging.WarnEvent(logger, "no usable providers for video kind", "no_providers",
			logging.String("kind", string(v.Kind)),
			logging.String(logging.FieldErrorHint, "check providers.movie and providers.tv"),
		)
		return result
	}

	candidates := b.query(ctx, logger, v, selected, langs.Outstanding())
	ranked := subtitles.Rank(v, candidates, opts.policy(), opts.MinScore)
	logger.Debug("candidates ranked",
		logging.Int("candidates", len(candidates)),
		logging.Int("eligible", len(ranked)),
		logging.Int("min_score", opts.MinScore),
	)

	// Providers that fail a download are skipped for the rest of this video
	// only; later videos query them again.
	discarded := make(map[string]bool)
	if opts.Single {
		if placement, ok := b.fetchBest(ctx, logger, v, ranked, discarded); ok {
			result.Placements = append(result.Placements, placement)
			langs.Clear()
		}
	} else {
		groups := subtitles.GroupByLanguage(ranked)
		for _, lang := range langs.Outstanding() {
			if placement, ok := b.fetchBest(ctx, logger, v, groups[lang], discarded); ok {
				result.Placements = append(result.Placements, placement)
				langs.Remove(lang)
			}
		}
	}
	if missing := langs.Outstanding(); len(missing) > 0 {
		logger.Info("no subtitle found",
			logging.Strings("languages", missing),
			logging.String(logging.FieldEventType, "subtitle_missing"),
		)
	}
	return result
}

func (b *Batch) localShortcut(ctx context.Context, logger *slog.Logger, v video.Identity) ([]Placement, bool) {
	entries := b.xref.Claim(v)
	if len(entries) == 0 {
		return nil, false
	}
	var placed []Placement
	for _, entry := range entries {
		dst, outcome, err := b.xref.Place(ctx, entry, v)
		switch {
		case err != nil:
			logging.ErrorEvent(logger, "local subtitle move failed", "xref_move_failed",
				logging.String("source", entry.Path),
				logging.String("destination", dst),
				logging.Error(err),
			)
		case outcome == xref.Placed:
			logger.Info("local subtitle placed",
				logging.String(logging.FieldEventType, "subtitle_placed"),
				logging.String(logging.FieldProvider, LocalProvider),
				logging.String("path", dst),
			)
			placed = append(placed, Placement{Path: dst, Language: entry.Language, Provider: LocalProvider})
		case outcome == xref.Exists:
			logging.WarnEvent(logger, "subtitle exists already, local match skipped", "xref_destination_exists",
				logging.String("path", dst),
			)
		case outcome == xref.SamePath:
			logging.WarnEvent(logger, "cross-reference and video directory are the same", "xref_same_path",
				logging.String("path", dst),
			)
		case outcome == xref.Vanished:
			logger.Debug("local subtitle claimed by another process", logging.String("source", entry.Path))
		}
	}
	return placed, true
}

// embeddedScan drops the languages the container already carries and fills
// in the resolution when the file name did not give one. An embedded stream
// of undetermined language does not block the other languages.
func (b *Batch) embeddedScan(ctx context.Context, logger *slog.Logger, v video.Identity, langs *LanguageSet) video.Identity {
	if b.acq.probe == nil {
		return v
	}
	probe, err := b.acq.probe(ctx, v.Name)
	if err != nil {
		logging.WarnEvent(logger, "container inspection failed", "ffprobe_failed",
			logging.Error(services.Wrap(services.ErrExternalTool, "embedded", "ffprobe", "inspect container", err)),
			logging.String(logging.FieldErrorHint, "check paths.ffprobe"),
			logging.String(logging.FieldImpact, "embedded subtitles are not detected"),
		)
		return v
	}
	if v.Resolution == "" {
		v.Resolution = probe.Resolution()
	}
	if b.acq.opts.IgnoreEmbedded {
		return v
	}
	embedded, undetermined := probe.SubtitleLanguages()
	if undetermined {
		logger.Info("embedded subtitle of unknown language, searching anyway",
			logging.String(logging.FieldEventType, "embedded_undetermined"),
		)
	}
	for _, lang := range embedded {
		if langs.Remove(lang) {
			logger.Debug("subtitle embedded", logging.String(logging.FieldLanguage, lang))
		}
	}
	return v
}

func (b *Batch) selectProviders(ctx context.Context, v video.Identity) []providers.Provider {
	names := b.acq.opts.MovieProviders
	if v.IsEpisode() {
		names = b.acq.opts.TVProviders
	}
	selected := make([]providers.Provider, 0, len(names))
	for _, name := range names {
		if p, ok := b.providers.get(ctx, name); ok {
			selected = append(selected, p)
		}
	}
	return selected
}

// query searches every provider concurrently. Results keep provider order
// so ranking ties resolve the same way on every run.
func (b *Batch) query(ctx context.Context, logger *slog.Logger, v video.Identity, selected []providers.Provider, langs []string) []subtitles.Candidate {
	results := make([][]subtitles.Candidate, len(selected))
	p := pool.New().WithMaxGoroutines(len(selected))
	for i, provider := range selected {
		p.Go(func() {
			results[i] = b.search(ctx, logger, provider, v, langs)
		})
	}
	p.Wait()
	return slices.Concat(results...)
}

func (b *Batch) search(ctx context.Context, logger *slog.Logger, provider providers.Provider, v video.Identity, langs []string) []subtitles.Candidate {
	name := provider.Name()
	caps := provider.Capabilities()
	if !caps.Supports(v) {
		logger.Debug("provider does not support video", logging.String(logging.FieldProvider, name))
		return nil
	}
	wanted := caps.FilterLanguages(langs)
	if len(wanted) == 0 {
		return nil
	}
	ctx = services.WithProvider(ctx, name)
	searchCtx, cancel := context.WithTimeout(ctx, b.acq.opts.ProviderTimeout)
	defer cancel()

	start := time.Now()
	found, err := cache.Fetch(searchCtx, b.acq.cache, searchKey(name, v, wanted), b.acq.opts.CacheTTL,
		func(ctx context.Context) ([]subtitles.Candidate, error) {
			return provider.Search(ctx, v, wanted)
		})
	if err != nil {
		if errors.Is(searchCtx.Err(), context.DeadlineExceeded) {
			err = services.Wrap(services.ErrTimeout, "query", "search", "provider timed out", err)
		}
		logging.WarnEvent(logger, "provider search failed", "provider_search_failed",
			logging.String(logging.FieldProvider, name),
			logging.Error(err),
			logging.String(logging.FieldImpact, "no candidates from this provider for this video"),
		)
		return nil
	}
	candidates := make([]subtitles.Candidate, 0, len(found))
	for _, c := range found {
		if slices.Contains(wanted, c.Language) {
			candidates = append(candidates, c)
		}
	}
	logger.Debug("provider search finished",
		logging.String(logging.FieldProvider, name),
		logging.Int("candidates", len(candidates)),
		logging.Duration("elapsed", time.Since(start)),
	)
	return candidates
}

func searchKey(provider string, v video.Identity, langs []string) string {
	episodes := make([]string, 0, len(v.Episodes)+1)
	for _, n := range append([]int{v.Episode}, v.Episodes...) {
		episodes = append(episodes, strconv.Itoa(n))
	}
	parts := []string{
		"search",
		string(v.Kind),
		v.Series,
		v.Title,
		strconv.Itoa(v.Year),
		strconv.Itoa(v.Season),
		strings.Join(episodes, " "),
		v.IMDBID,
		strconv.Itoa(v.TVDBID),
	}
	for _, algorithm := range slices.Sorted(maps.Keys(v.Hashes)) {
		parts = append(parts, algorithm+" "+v.Hashes[algorithm])
	}
	parts = append(parts, strings.Join(langs, " "))
	return cache.Key(provider, parts...)
}

// fetchBest downloads ranked candidates best first until one validates and
// is placed. Candidates of providers in discarded are skipped, and a provider
// reporting itself unavailable is added to it.
func (b *Batch) fetchBest(ctx context.Context, logger *slog.Logger, v video.Identity, ranked []subtitles.Scored, discarded map[string]bool) (Placement, bool) {
	for _, scored := range ranked {
		if ctx.Err() != nil {
			return Placement{}, false
		}
		c := scored.Candidate
		if discarded[c.Provider] {
			continue
		}
		provider, ok := b.providers.get(ctx, c.Provider)
		if !ok {
			continue
		}
		fetchCtx, cancel := context.WithTimeout(services.WithProvider(ctx, c.Provider), b.acq.opts.ProviderTimeout)
		data, err := provider.Fetch(fetchCtx, c)
		cancel()
		if err != nil {
			switch {
			case errors.Is(err, providers.ErrProviderUnavailable):
				discarded[c.Provider] = true
				logging.WarnEvent(logger, "provider discarded for this video", "provider_discarded",
					logging.String(logging.FieldProvider, c.Provider),
					logging.Error(err),
					logging.String(logging.FieldImpact, "remaining candidates from this provider are skipped for this video"),
				)
			case errors.Is(err, providers.ErrInvalidSubtitle):
				logger.Debug("invalid subtitle, trying next candidate",
					logging.String(logging.FieldProvider, c.Provider),
					logging.String("candidate", c.ID),
					logging.Error(err),
				)
			default:
				logging.WarnEvent(logger, "subtitle download failed", "subtitle_fetch_failed",
					logging.String(logging.FieldProvider, c.Provider),
					logging.String("candidate", c.ID),
					logging.Error(err),
				)
			}
			continue
		}

		path := SubtitlePath(v, c.Language, b.acq.opts.Single)
		if err := b.place(logger, path, data, c.Language); err != nil {
			logging.ErrorEvent(logger, "subtitle placement failed", "subtitle_place_failed",
				logging.String("path", path),
				logging.String(logging.FieldLanguage, c.Language),
				logging.Error(err),
			)
			return Placement{}, false
		}
		attrs := []logging.Attr{
			logging.String(logging.FieldEventType, "subtitle_placed"),
			logging.String(logging.FieldProvider, c.Provider),
			logging.String(logging.FieldLanguage, c.Language),
			logging.Int("score", scored.Score),
			logging.String("matches", scored.Matches.String()),
			logging.String("path", path),
			logging.Decision("subtitle_selection", "selected", c.String()),
		}
		logger.Info("subtitle placed", logging.Args(attrs...)...)
		return Placement{Path: path, Language: c.Language, Provider: c.Provider, Score: scored.Score}, true
	}
	return Placement{}, false
}

// place writes data to path. Doubled carriage returns are always repaired;
// tidying and forced encoding first decode the payload to UTF-8, so a tidied
// subtitle without forced encoding is written as UTF-8.
func (b *Batch) place(logger *slog.Logger, path string, data []byte, lang string) error {
	opts := b.acq.opts
	if opts.Tidy || opts.ForceEncoding != "" {
		text, source, err := subtitles.DecodeText(data, lang)
		if err != nil {
			return services.Wrap(services.ErrValidation, "place", "decode", "cannot decode subtitle text", err)
		}
		logger.Debug("subtitle decoded", logging.String("source_encoding", source))
		data = []byte(text)
	}
	data, broken := subtitles.FixLineEndings(data)
	if broken > 0 {
		logger.Debug("repaired broken line endings", logging.Int("lines", broken))
	}
	if opts.Tidy {
		var stats subtitles.TidyStats
		data, stats = subtitles.Tidy(data)
		logger.Debug("subtitle tidied", logging.Int("removed_cues", stats.RemovedCues), logging.Int("unparsed_blocks", stats.Unparsed))
	}
	if opts.ForceEncoding != "" {
		encoded, err := subtitles.Reencode(data, lang, opts.ForceEncoding)
		if err != nil {
			return services.Wrap(services.ErrValidation, "place", "encode", "cannot apply forced encoding", err)
		}
		data = encoded
	}
	return fileutil.WriteFileAtomic(path, data, 0o644)
}
