// Package addic7ed scrapes episode subtitles from addic7ed.com.
package addic7ed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"subfetch/internal/cache"
	"subfetch/internal/logging"
	"subfetch/internal/providers"
	"subfetch/internal/providers/scrape"
	"subfetch/internal/subtitles"
	"subfetch/internal/textutil"
	"subfetch/internal/video"
)

// ProviderName is the registry name of the Addic7ed provider.
const ProviderName = "addic7ed"

const (
	defaultBaseURL  = "https://www.addic7ed.com"
	userAgent       = "Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0"
	requestsPerSec  = 0.5
	loginPath       = "/dologin.php"
	logoutPath      = "/logout.php"
	showsPath       = "/shows.php"
	searchPath      = "/search.php"
	completedStatus = "Completed"
	// suggestions below this similarity to the query are ignored
	minShowSimilarity = 0.5
)

func init() {
	providers.Register(ProviderName, NewProvider)
}

// Provider implements providers.Provider for addic7ed.com.
type Provider struct {
	baseURL      *url.URL
	http         *providers.HTTPClient
	cache        *cache.Cache
	cacheTTL     time.Duration
	logger       *slog.Logger
	username     string
	password     string
	requireLogin bool

	mu       sync.Mutex
	loggedIn bool
}

// NewProvider builds the provider. Logging in is optional unless the
// configuration sets require_login, in which case credentials are mandatory.
func NewProvider(settings providers.Settings) (providers.Provider, error) {
	cfg := settings.Config.Addic7ed
	username := strings.TrimSpace(cfg.Username)
	password := cfg.Password
	if cfg.RequireLogin && (username == "" || password == "") {
		return nil, &providers.ConfigurationError{Provider: ProviderName, Reason: "require_login is set but username or password is missing"}
	}
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = defaultBaseURL
	}
	baseURL, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return nil, &providers.ConfigurationError{Provider: ProviderName, Reason: fmt.Sprintf("parse base url: %v", err)}
	}
	logger := settings.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.With(logging.String(logging.FieldProvider, ProviderName))

	client, err := sessionClient(settings.HTTPClient)
	if err != nil {
		return nil, err
	}
	return &Provider{
		baseURL: baseURL,
		http: providers.NewHTTPClient(providers.HTTPOptions{
			Provider:          ProviderName,
			UserAgent:         userAgent,
			RequestsPerSecond: requestsPerSec,
			Burst:             2,
			Client:            client,
			Logger:            logger,
		}),
		cache:        settings.Cache,
		cacheTTL:     settings.CacheTTL,
		logger:       logger,
		username:     username,
		password:     password,
		requireLogin: cfg.RequireLogin,
	}, nil
}

// sessionClient copies base with a cookie jar and without following the
// login redirect, whose status tells whether the login worked.
func sessionClient(base *http.Client) (*http.Client, error) {
	client := &http.Client{Timeout: 30 * time.Second}
	if base != nil {
		copied := *base
		client = &copied
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("addic7ed: cookie jar: %w", err)
	}
	client.Jar = jar
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) > 0 && via[0].URL.Path == loginPath {
			return http.ErrUseLastResponse
		}
		if len(via) >= 10 {
			return errors.New("stopped after 10 redirects")
		}
		return nil
	}
	return client, nil
}

func (p *Provider) Name() string { return ProviderName }

func (p *Provider) Capabilities() providers.Capabilities {
	return providers.Capabilities{
		Kinds:     []video.Kind{video.KindEpisode},
		Languages: supportedLanguages,
	}
}

// Initialize logs in when credentials are configured. A failed login only
// matters when require_login is set.
func (p *Provider) Initialize(ctx context.Context) error {
	if p.username == "" || p.password == "" {
		p.logger.Debug("addic7ed using anonymous access")
		return nil
	}
	form := url.Values{
		"username": {p.username},
		"password": {p.password},
		"Submit":   {"Log in"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url(loginPath), strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("addic7ed: build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Referer", p.baseURL.String())
	resp, err := p.http.Do(req)
	if err != nil {
		return p.loginFailed(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusFound {
		return p.loginFailed(fmt.Errorf("login answered %s", resp.Status))
	}
	p.mu.Lock()
	p.loggedIn = true
	p.mu.Unlock()
	p.logger.Debug("addic7ed login succeeded")
	return nil
}

func (p *Provider) loginFailed(err error) error {
	if p.requireLogin {
		return providers.Unavailable(ProviderName, "login", err)
	}
	logging.WarnEvent(p.logger, "addic7ed login failed, continuing anonymously", "addic7ed_login_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check addic7ed username and password"),
		logging.String(logging.FieldImpact, "anonymous download limits apply"),
	)
	return nil
}

// Terminate logs out when logged in. Logout failures are only logged.
func (p *Provider) Terminate(ctx context.Context) error {
	p.mu.Lock()
	loggedIn := p.loggedIn
	p.loggedIn = false
	p.mu.Unlock()
	if !loggedIn {
		return nil
	}
	resp, err := p.http.Get(ctx, p.url(logoutPath), nil)
	if err != nil {
		p.logger.Warn("addic7ed logout failed", logging.Error(err))
		return nil
	}
	resp.Body.Close()
	return nil
}

// Search lists the season page of the video's series and keeps rows for the
// video's episodes in the requested languages.
func (p *Provider) Search(ctx context.Context, v video.Identity, languages []string) ([]subtitles.Candidate, error) {
	caps := p.Capabilities()
	if !caps.Supports(v) || v.Series == "" || v.Season <= 0 {
		return nil, nil
	}
	wanted := caps.FilterLanguages(languages)
	if len(wanted) == 0 {
		return nil, nil
	}
	showID, err := p.showID(ctx, v.Series)
	if err != nil {
		return nil, err
	}
	if showID == 0 {
		p.logger.Debug("series not found", logging.String("series", v.Series))
		return nil, nil
	}
	rows, err := p.seasonRows(ctx, showID, v.Season)
	if err != nil {
		return nil, err
	}
	var candidates []subtitles.Candidate
	for _, row := range rows {
		if !slices.Contains(wanted, row.Language) || !v.HasEpisode(row.Episode) {
			continue
		}
		candidates = append(candidates, subtitles.Candidate{
			Provider:        ProviderName,
			ID:              row.Link,
			Language:        row.Language,
			HearingImpaired: row.HearingImpaired,
			Series:          v.Series,
			Season:          v.Season,
			Episode:         row.Episode,
			Title:           row.Title,
			Release:         row.Version,
			FetchRef:        row.Link,
			PageURL:         row.Referer,
		})
	}
	return candidates, nil
}

// Fetch downloads with the season page as referer. An HTML answer means the
// download limit was reached.
func (p *Provider) Fetch(ctx context.Context, c subtitles.Candidate) ([]byte, error) {
	header := http.Header{}
	if c.PageURL != "" {
		header.Set("Referer", p.url(c.PageURL))
	}
	resp, err := p.http.Get(ctx, p.url(c.FetchRef), header)
	if err != nil {
		return nil, err
	}
	if mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type")); mediaType == "text/html" {
		resp.Body.Close()
		return nil, providers.Unavailable(ProviderName, "download limit exceeded", nil)
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

// showID resolves a series name: first against the full show list, then via
// the site search, retrying the search without a trailing year.
func (p *Provider) showID(ctx context.Context, series string) (int, error) {
	ids, err := cache.Fetch(ctx, p.cache, cache.Key(ProviderName, "shows"), p.cacheTTL, p.fetchShowIDs)
	if err != nil {
		return 0, err
	}
	sanitized := textutil.Sanitize(series)
	if id, ok := ids[sanitized]; ok {
		return id, nil
	}
	id, err := p.findShowID(ctx, sanitized)
	if err != nil || id != 0 {
		return id, err
	}
	if stripped, year := textutil.StripYear(sanitized); year > 0 {
		p.logger.Debug("year in series name, searching without it", logging.String("series", stripped))
		return p.findShowID(ctx, stripped)
	}
	return 0, nil
}

func (p *Provider) fetchShowIDs(ctx context.Context) (map[string]int, error) {
	doc, err := p.page(ctx, p.url(showsPath))
	if err != nil {
		return nil, err
	}
	ids := make(map[string]int)
	links := showLinks(doc, func(parent *html.Node) bool {
		return parent.DataAtom == atom.H3 && parent.Parent != nil &&
			parent.Parent.DataAtom == atom.Td && scrape.HasClass(parent.Parent, "version")
	})
	for _, link := range links {
		id, err := strconv.Atoi(strings.TrimPrefix(scrape.Attr(link, "href"), "/show/"))
		if err != nil {
			p.logger.Debug("invalid show id", logging.String("href", scrape.Attr(link, "href")))
			continue
		}
		ids[textutil.Sanitize(scrape.Text(link))] = id
	}
	return ids, nil
}

// findShowID asks the site search. Among the suggestions the one whose name
// is closest to the query wins, the first on ties.
func (p *Provider) findShowID(ctx context.Context, series string) (int, error) {
	return cache.Fetch(ctx, p.cache, cache.Key(ProviderName, "search", series), p.cacheTTL, func(ctx context.Context) (int, error) {
		params := url.Values{"search": {series}, "Submit": {"Search"}}
		doc, err := p.page(ctx, p.url(searchPath)+"?"+params.Encode())
		if err != nil {
			return 0, err
		}
		links := showLinks(doc, scrape.Is(atom.Span, "titulo"))
		bestID, bestScore := 0, 0.0
		for _, link := range links {
			id, err := strconv.Atoi(strings.TrimPrefix(scrape.Attr(link, "href"), "/show/"))
			if err != nil {
				continue
			}
			score := textutil.Similarity(series, scrape.Text(link))
			if score > bestScore {
				bestID, bestScore = id, score
			}
		}
		if bestScore < minShowSimilarity {
			return 0, nil
		}
		return bestID, nil
	})
}

type subtitleRow struct {
	Episode         int
	Title           string
	Language        string
	Version         string
	HearingImpaired bool
	Link            string
	Referer         string
}

func (p *Provider) seasonRows(ctx context.Context, showID, season int) ([]subtitleRow, error) {
	referer := fmt.Sprintf("/show/%d&season=%d", showID, season)
	doc, err := p.page(ctx, p.url(referer))
	if err != nil {
		return nil, err
	}
	var rows []subtitleRow
	for _, tr := range scrape.FindAll(doc, scrape.Is(atom.Tr, "epeven", "completed")) {
		cells := scrape.Children(tr, atom.Td)
		if len(cells) < 10 {
			continue
		}
		if scrape.Text(cells[5]) != completedStatus {
			p.logger.Debug("skipping incomplete subtitle")
			continue
		}
		lang := parseLanguage(scrape.Text(cells[3]))
		if lang == "" {
			p.logger.Debug("skipping unknown language", logging.String("label", scrape.Text(cells[3])))
			continue
		}
		episode, err := strconv.Atoi(scrape.Text(cells[1]))
		if err != nil {
			continue
		}
		anchor := scrape.First(cells[9], atom.A)
		if anchor == nil || scrape.Attr(anchor, "href") == "" {
			continue
		}
		rows = append(rows, subtitleRow{
			Episode:         episode,
			Title:           scrape.Text(cells[2]),
			Language:        lang,
			Version:         scrape.Text(cells[4]),
			HearingImpaired: scrape.Text(cells[6]) != "",
			Link:            scrape.Attr(anchor, "href"),
			Referer:         referer,
		})
	}
	return rows, nil
}

func (p *Provider) page(ctx context.Context, target string) (*html.Node, error) {
	resp, err := p.http.Get(ctx, target, nil)
	if err != nil {
		return nil, err
	}
	body, err := providers.ReadBody(resp)
	if err != nil {
		return nil, err
	}
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, providers.Unavailable(ProviderName, "parse page", err)
	}
	return doc, nil
}

func (p *Provider) url(path string) string {
	return p.baseURL.String() + path
}
