// Package thesubdb implements the hash-only TheSubDB provider.
package thesubdb

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"subfetch/internal/language"
	"subfetch/internal/logging"
	"subfetch/internal/providers"
	"subfetch/internal/subtitles"
	"subfetch/internal/video"
)

// ProviderName is the registry name of the TheSubDB provider.
const ProviderName = "thesubdb"

const (
	defaultBaseURL = "http://api.thesubdb.com"
	projectURL     = "https://github.com/subfetch/subfetch"
)

var supportedLanguages = []string{"en", "es", "fr", "it", "nl", "pl", "pt", "ro", "sv", "tr"}

func init() {
	providers.Register(ProviderName, NewProvider)
}

// Provider looks subtitles up by the thesubdb hash of a video.
type Provider struct {
	baseURL *url.URL
	http    *providers.HTTPClient
	logger  *slog.Logger
}

// NewProvider builds the provider. It needs no credentials.
func NewProvider(settings providers.Settings) (providers.Provider, error) {
	base := strings.TrimSpace(settings.Config.TheSubDB.BaseURL)
	if base == "" {
		base = defaultBaseURL
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, &providers.ConfigurationError{Provider: ProviderName, Reason: fmt.Sprintf("parse base url: %v", err)}
	}
	logger := settings.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.With(logging.String(logging.FieldProvider, ProviderName))
	return &Provider{
		baseURL: baseURL,
		http: providers.NewHTTPClient(providers.HTTPOptions{
			Provider:  ProviderName,
			UserAgent: UserAgent(settings.Version),
			Client:    settings.HTTPClient,
			Logger:    logger,
		}),
		logger: logger,
	}, nil
}

// UserAgent is the agent string the API requires from clients.
func UserAgent(version string) string {
	if strings.TrimSpace(version) == "" {
		version = "dev"
	}
	return fmt.Sprintf("SubDB/1.0 (subfetch/%s; %s)", version, projectURL)
}

func (p *Provider) Name() string { return ProviderName }

func (p *Provider) Capabilities() providers.Capabilities {
	return providers.Capabilities{
		Kinds:        []video.Kind{video.KindMovie, video.KindEpisode},
		Languages:    supportedLanguages,
		RequiredHash: video.HashTheSubDB,
	}
}

func (p *Provider) Initialize(context.Context) error { return nil }

func (p *Provider) Terminate(context.Context) error { return nil }

// Search asks which languages exist for the video hash. A 404 means none.
func (p *Provider) Search(ctx context.Context, v video.Identity, languages []string) ([]subtitles.Candidate, error) {
	caps := p.Capabilities()
	if !caps.Supports(v) {
		return nil, nil
	}
	wanted := caps.FilterLanguages(languages)
	if len(wanted) == 0 {
		return nil, nil
	}
	hash := v.Hash(video.HashTheSubDB)
	resp, err := p.http.Get(ctx, p.endpoint(url.Values{"action": {"search"}, "hash": {hash}}), nil)
	if err != nil {
		if providers.StatusCode(err) == http.StatusNotFound {
			p.logger.Debug("no subtitles for hash", logging.String("hash", hash))
			return nil, nil
		}
		return nil, err
	}
	body, err := providers.ReadBody(resp)
	if err != nil {
		return nil, err
	}

	var candidates []subtitles.Candidate
	for _, code := range strings.Split(strings.TrimSpace(string(body)), ",") {
		lang := language.ToISO2(code)
		if lang == "" || !slices.Contains(wanted, lang) {
			continue
		}
		candidates = append(candidates, subtitles.Candidate{
			Provider: ProviderName,
			ID:       hash + ":" + lang,
			Language: lang,
			Hashes:   map[string]string{video.HashTheSubDB: hash},
			FetchRef: hash,
		})
	}
	return candidates, nil
}

// Fetch downloads the subtitle for the candidate's hash and language.
func (p *Provider) Fetch(ctx context.Context, c subtitles.Candidate) ([]byte, error) {
	target := p.endpoint(url.Values{
		"action":   {"download"},
		"hash":     {c.FetchRef},
		"language": {c.Language},
	})
	resp, err := p.http.Get(ctx, target, nil)
	if err != nil {
		return nil, err
	}
	data, err := providers.ReadBody(resp)
	if err != nil {
		return nil, err
	}
	data, err = providers.DecodePayload(ProviderName, data)
	if err != nil {
		return nil, err
	}
	if err := providers.ValidatePayload(ProviderName, data); err != nil {
		return nil, err
	}
	return data, nil
}

func (p *Provider) endpoint(params url.Values) string {
	target := *p.baseURL
	if target.Path == "" {
		target.Path = "/"
	}
	target.RawQuery = params.Encode()
	return target.String()
}
