// Package opensubtitles implements the OpenSubtitles REST provider.
package opensubtitles

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"subfetch/internal/providers"
)

const (
	defaultBaseURL   = "https://api.opensubtitles.com/api/v1"
	defaultUserAgent = "subfetch v1"
)

// Config holds the REST API credentials and transport settings.
type Config struct {
	APIKey            string
	UserAgent         string
	UserToken         string
	BaseURL           string
	RequestsPerSecond float64
	HTTPClient        *http.Client
	Logger            *slog.Logger
}

// Client talks to the OpenSubtitles REST API.
type Client struct {
	header  http.Header
	baseURL *url.URL
	http    *providers.HTTPClient
}

// New validates cfg and builds a Client. An API key is mandatory.
func New(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("opensubtitles: api key is required")
	}
	userAgent := cmp.Or(strings.TrimSpace(cfg.UserAgent), defaultUserAgent)
	baseURL, err := url.Parse(cmp.Or(strings.TrimSpace(cfg.BaseURL), defaultBaseURL))
	if err != nil {
		return nil, fmt.Errorf("opensubtitles: parse base url: %w", err)
	}

	header := http.Header{}
	header.Set("Api-Key", apiKey)
	header.Set("User-Agent", userAgent)
	header.Set("Accept", "application/json")
	if token := strings.TrimSpace(cfg.UserToken); token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	return &Client{
		header:  header,
		baseURL: baseURL,
		http: providers.NewHTTPClient(providers.HTTPOptions{
			Provider:          ProviderName,
			UserAgent:         userAgent,
			RequestsPerSecond: cfg.RequestsPerSecond,
			Client:            cfg.HTTPClient,
			Logger:            cfg.Logger,
		}),
	}, nil
}

// SearchRequest holds the /subtitles filters. Zero fields are omitted.
type SearchRequest struct {
	MovieHash string
	IMDBID    string
	Query     string
	Languages []string
	Season    int
	Episode   int
	MediaType string
	Year      int
}

// Values encodes the request as query parameters, most downloaded first.
func (r SearchRequest) Values() url.Values {
	values := url.Values{}
	set := func(key, value string) {
		if value != "" {
			values.Set(key, value)
		}
	}
	setInt := func(key string, value int) {
		if value > 0 {
			values.Set(key, strconv.Itoa(value))
		}
	}
	set("moviehash", strings.ToLower(strings.TrimSpace(r.MovieHash)))
	set("imdb_id", imdbNumber(r.IMDBID))
	set("query", strings.TrimSpace(r.Query))
	set("languages", strings.Join(r.Languages, ","))
	setInt("season_number", r.Season)
	setInt("episode_number", r.Episode)
	set("type", r.MediaType)
	setInt("year", r.Year)
	values.Set("order_by", "download_count")
	values.Set("order_direction", "desc")
	return values
}

// imdbNumber strips the "tt" prefix. Non-numeric ids yield "".
func imdbNumber(id string) string {
	id = strings.TrimPrefix(strings.TrimSpace(id), "tt")
	if _, err := strconv.ParseUint(id, 10, 64); err != nil {
		return ""
	}
	return id
}

// Subtitle is one searchable subtitle with its first downloadable file.
type Subtitle struct {
	ID              string
	FileID          int64
	Language        string
	Release         string
	FeatureTitle    string
	ParentTitle     string
	FeatureYear     int
	FeatureType     string
	IMDBID          int64
	ParentIMDBID    int64
	Season          int
	Episode         int
	Downloads       int
	HearingImpaired bool
	MovieHashMatch  bool
	// AITranslated covers both AI and machine translations.
	AITranslated bool
	URL          string
}

// SearchResponse is one page of search results.
type SearchResponse struct {
	Subtitles []Subtitle
	Total     int
}

// Search runs a subtitle search. Entries without a language or a file are
// dropped.
func (c *Client) Search(ctx context.Context, req SearchRequest) (SearchResponse, error) {
	if c == nil {
		return SearchResponse{}, errors.New("opensubtitles: client is nil")
	}
	endpoint := c.baseURL.JoinPath("subtitles")
	endpoint.RawQuery = req.Values().Encode()

	var page searchPage
	if err := c.call(ctx, http.MethodGet, endpoint, nil, &page); err != nil {
		return SearchResponse{}, fmt.Errorf("opensubtitles: search: %w", err)
	}
	resp := SearchResponse{Total: page.Meta.Total}
	for _, item := range page.Data {
		if sub, ok := item.subtitle(); ok {
			resp.Subtitles = append(resp.Subtitles, sub)
		}
	}
	return resp, nil
}

// DownloadResult is a downloaded subtitle file.
type DownloadResult struct {
	Data        []byte
	FileName    string
	Remaining   int
	DownloadURL string
}

// Download requests a temporary link for fileID and fetches it. HTTP 406
// means the daily download quota is spent.
func (c *Client) Download(ctx context.Context, fileID int64) (DownloadResult, error) {
	if c == nil {
		return DownloadResult{}, errors.New("opensubtitles: client is nil")
	}
	if fileID <= 0 {
		return DownloadResult{}, fmt.Errorf("opensubtitles: invalid file id %d", fileID)
	}
	endpoint := c.baseURL.JoinPath("download")
	body := downloadRequest{FileID: fileID, Format: "srt"}
	var link downloadLink
	if err := c.call(ctx, http.MethodPost, endpoint, body, &link); err != nil {
		if providers.StatusCode(err) == http.StatusNotAcceptable {
			return DownloadResult{}, providers.Unavailable(ProviderName, "download quota exhausted", err)
		}
		return DownloadResult{}, fmt.Errorf("opensubtitles: request download link: %w", err)
	}
	if link.Link == "" {
		return DownloadResult{}, providers.Unavailable(ProviderName, "download response missing link", nil)
	}
	target, err := endpoint.Parse(link.Link)
	if err != nil {
		return DownloadResult{}, providers.Unavailable(ProviderName, "bad download link", err)
	}

	resp, err := c.http.Get(ctx, target.String(), nil)
	if err != nil {
		return DownloadResult{}, fmt.Errorf("opensubtitles: fetch subtitle file: %w", err)
	}
	data, err := providers.ReadBody(resp)
	if err != nil {
		return DownloadResult{}, err
	}
	return DownloadResult{
		Data:        data,
		FileName:    link.FileName,
		Remaining:   link.Remaining,
		DownloadURL: target.String(),
	}, nil
}

// call sends an API request with the client headers, JSON encoding payload
// when it is non-nil, and decodes the JSON response into out.
func (c *Client) call(ctx context.Context, method string, endpoint *url.URL, payload, out any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header = c.header.Clone()
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return providers.Unavailable(ProviderName, "decode "+endpoint.Path+" response", err)
	}
	return nil
}

type searchPage struct {
	Data []searchItem `json:"data"`
	Meta struct {
		Total int `json:"total_count"`
	} `json:"meta"`
}

type searchItem struct {
	ID         string `json:"id"`
	Attributes struct {
		Language          string `json:"language"`
		Release           string `json:"release"`
		DownloadCount     int    `json:"download_count"`
		HearingImpaired   bool   `json:"hearing_impaired"`
		MovieHashMatch    bool   `json:"moviehash_match"`
		AITranslated      bool   `json:"ai_translated"`
		MachineTranslated bool   `json:"machine_translated"`
		URL               string `json:"url"`
		Feature           struct {
			Type         string `json:"feature_type"`
			Title        string `json:"title"`
			ParentTitle  string `json:"parent_title"`
			Year         int    `json:"year"`
			IMDBID       int64  `json:"imdb_id"`
			ParentIMDBID int64  `json:"parent_imdb_id"`
			Season       int    `json:"season_number"`
			Episode      int    `json:"episode_number"`
		} `json:"feature_details"`
		Files []struct {
			FileID int64 `json:"file_id"`
		} `json:"files"`
	} `json:"attributes"`
}

func (item searchItem) subtitle() (Subtitle, bool) {
	a := item.Attributes
	if a.Language == "" || len(a.Files) == 0 || a.Files[0].FileID == 0 {
		return Subtitle{}, false
	}
	return Subtitle{
		ID:              item.ID,
		FileID:          a.Files[0].FileID,
		Language:        a.Language,
		Release:         a.Release,
		FeatureTitle:    a.Feature.Title,
		ParentTitle:     a.Feature.ParentTitle,
		FeatureYear:     a.Feature.Year,
		FeatureType:     a.Feature.Type,
		IMDBID:          a.Feature.IMDBID,
		ParentIMDBID:    a.Feature.ParentIMDBID,
		Season:          a.Feature.Season,
		Episode:         a.Feature.Episode,
		Downloads:       a.DownloadCount,
		HearingImpaired: a.HearingImpaired,
		MovieHashMatch:  a.MovieHashMatch,
		AITranslated:    a.AITranslated || a.MachineTranslated,
		URL:             a.URL,
	}, true
}

type downloadRequest struct {
	FileID int64  `json:"file_id"`
	Format string `json:"sub_format"`
}

type downloadLink struct {
	Link      string `json:"link"`
	FileName  string `json:"file_name"`
	Remaining int    `json:"remaining"`
}
