package opensubtitles

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"subfetch/internal/language"
	"subfetch/internal/logging"
	"subfetch/internal/providers"
	"subfetch/internal/subtitles"
	"subfetch/internal/video"
)

// ProviderName is the registry name of the OpenSubtitles provider.
const ProviderName = "opensubtitles"

// regional variants the API wants spelled out
var regionalLanguages = map[string][]string{
	"pt": {"pt-pt", "pt-br"},
	"zh": {"zh-cn", "zh-tw"},
}

func init() {
	providers.Register(ProviderName, NewProvider)
}

// Provider searches OpenSubtitles by movie hash, IMDb id, and free-text query.
type Provider struct {
	client *Client
	logger *slog.Logger
}

// NewProvider builds the provider from settings. A missing API key is a
// configuration error: the provider never runs anonymously.
func NewProvider(settings providers.Settings) (providers.Provider, error) {
	cfg := settings.Config.OpenSubtitles
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, &providers.ConfigurationError{Provider: ProviderName, Reason: "api_key is required"}
	}
	logger := settings.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.With(logging.String(logging.FieldProvider, ProviderName))
	client, err := New(Config{
		APIKey:            cfg.APIKey,
		UserAgent:         cfg.UserAgent,
		UserToken:         cfg.UserToken,
		BaseURL:           cfg.BaseURL,
		RequestsPerSecond: cfg.RequestsPerSecond,
		HTTPClient:        settings.HTTPClient,
		Logger:            logger,
	})
	if err != nil {
		return nil, &providers.ConfigurationError{Provider: ProviderName, Reason: err.Error()}
	}
	return &Provider{client: client, logger: logger}, nil
}

func (p *Provider) Name() string { return ProviderName }

func (p *Provider) Capabilities() providers.Capabilities {
	return providers.Capabilities{Kinds: []video.Kind{video.KindMovie, video.KindEpisode}}
}

func (p *Provider) Initialize(context.Context) error { return nil }

func (p *Provider) Terminate(context.Context) error { return nil }

// Search runs the hash variant first, then the metadata variant, and merges
// the results without duplicates.
func (p *Provider) Search(ctx context.Context, v video.Identity, languages []string) ([]subtitles.Candidate, error) {
	if !p.Capabilities().Supports(v) || len(languages) == 0 {
		return nil, nil
	}
	var (
		candidates []subtitles.Candidate
		seen       = make(map[string]struct{})
	)
	for _, req := range searchVariants(v, languages) {
		resp, err := p.client.Search(ctx, req)
		if err != nil {
			return nil, err
		}
		for _, sub := range resp.Subtitles {
			if _, dup := seen[sub.ID]; dup {
				continue
			}
			seen[sub.ID] = struct{}{}
			if sub.AITranslated {
				p.logger.Debug("skipping machine translated subtitle", logging.String("subtitle_id", sub.ID))
				continue
			}
			c := toCandidate(v, sub)
			if !slices.Contains(languages, c.Language) {
				continue
			}
			candidates = append(candidates, c)
		}
	}
	return candidates, nil
}

// Fetch downloads the candidate's file and validates it.
func (p *Provider) Fetch(ctx context.Context, c subtitles.Candidate) ([]byte, error) {
	fileID, err := strconv.ParseInt(c.FetchRef, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: bad file reference %q", providers.ErrInvalidSubtitle, ProviderName, c.FetchRef)
	}
	result, err := p.client.Download(ctx, fileID)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("opensubtitles download",
		logging.String("file_name", result.FileName),
		logging.Int("remaining", result.Remaining),
	)
	data, err := providers.DecodePayload(ProviderName, result.Data)
	if err != nil {
		return nil, err
	}
	if err := providers.ValidatePayload(ProviderName, data); err != nil {
		return nil, err
	}
	return data, nil
}

// searchVariants produces the ordered requests for a video: by hash when one
// is known, then by IMDb id or title. Duplicate requests are removed.
func searchVariants(v video.Identity, languages []string) []SearchRequest {
	codes := apiLanguages(languages)
	variants := make([]SearchRequest, 0, 2)
	if hash := v.Hash(video.HashOpenSubtitles); hash != "" {
		variants = append(variants, SearchRequest{MovieHash: hash, Languages: codes})
	}

	meta := SearchRequest{Languages: codes, IMDBID: v.IMDBID}
	if v.IsEpisode() {
		meta.MediaType = "episode"
		meta.Season = v.Season
		meta.Episode = v.Episode
		if meta.IMDBID == "" {
			meta.Query = v.Series
		}
	} else {
		meta.MediaType = "movie"
		if meta.IMDBID == "" {
			meta.Query = v.Title
			meta.Year = v.Year
		}
	}
	if meta.IMDBID != "" || meta.Query != "" {
		variants = append(variants, meta)
	}

	unique := make([]SearchRequest, 0, len(variants))
	seen := make(map[string]struct{}, len(variants))
	for _, variant := range variants {
		key := variantSignature(variant)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, variant)
	}
	return unique
}

func variantSignature(req SearchRequest) string {
	var builder strings.Builder
	builder.Grow(128)
	builder.WriteString("hash=")
	builder.WriteString(req.MovieHash)
	builder.WriteString("|imdb=")
	builder.WriteString(req.IMDBID)
	builder.WriteString("|season=")
	builder.WriteString(strconv.Itoa(req.Season))
	builder.WriteString("|episode=")
	builder.WriteString(strconv.Itoa(req.Episode))
	builder.WriteString("|query=")
	builder.WriteString(strings.TrimSpace(req.Query))
	builder.WriteString("|languages=")
	builder.WriteString(strings.Join(req.Languages, ","))
	return builder.String()
}

func apiLanguages(languages []string) []string {
	codes := make([]string, 0, len(languages))
	for _, lang := range languages {
		if regional, ok := regionalLanguages[lang]; ok {
			codes = append(codes, regional...)
			continue
		}
		codes = append(codes, lang)
	}
	slices.Sort(codes)
	return slices.Compact(codes)
}

func toCandidate(v video.Identity, sub Subtitle) subtitles.Candidate {
	c := subtitles.Candidate{
		Provider:        ProviderName,
		ID:              sub.ID,
		Language:        language.ToISO2(sub.Language),
		HearingImpaired: sub.HearingImpaired,
		Release:         sub.Release,
		Year:            sub.FeatureYear,
		IMDBID:          formatIMDB(sub.IMDBID),
		FetchRef:        strconv.FormatInt(sub.FileID, 10),
		PageURL:         sub.URL,
	}
	if v.IsEpisode() {
		c.Series = sub.ParentTitle
		c.Title = sub.FeatureTitle
		c.Season = sub.Season
		c.Episode = sub.Episode
	} else {
		c.Title = sub.FeatureTitle
	}
	if sub.MovieHashMatch {
		if hash := v.Hash(video.HashOpenSubtitles); hash != "" {
			c.Hashes = map[string]string{video.HashOpenSubtitles: hash}
		}
	}
	return c
}

func formatIMDB(id int64) string {
	if id <= 0 {
		return ""
	}
	return fmt.Sprintf("tt%07d", id)
}
