// Package subscene scrapes movie and episode subtitles from subscene.com.
package subscene

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"subfetch/internal/logging"
	"subfetch/internal/providers"
	"subfetch/internal/providers/scrape"
	"subfetch/internal/subtitles"
	"subfetch/internal/textutil"
	"subfetch/internal/video"
)

// ProviderName is the registry name of the Subscene provider.
const ProviderName = "subscene"

const (
	defaultBaseURL = "https://subscene.com"
	userAgent      = "Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0"
	requestsPerSec = 1
	searchPath     = "/subtitles/title"
	// marker of a result page that lists releases rather than titles
	releaseListMarker = "Subtitle search by"
)

func init() {
	providers.Register(ProviderName, NewProvider)
}

// Provider implements providers.Provider for subscene.com.
type Provider struct {
	baseURL *url.URL
	http    *providers.HTTPClient
	logger  *slog.Logger
}

// NewProvider builds the provider. It needs no credentials.
func NewProvider(settings providers.Settings) (providers.Provider, error) {
	base := strings.TrimSpace(settings.Config.Subscene.BaseURL)
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
	return &Provider{
		baseURL: baseURL,
		http: providers.NewHTTPClient(providers.HTTPOptions{
			Provider:          ProviderName,
			UserAgent:         userAgent,
			RequestsPerSecond: requestsPerSec,
			Burst:             2,
			Client:            settings.HTTPClient,
			Logger:            logger,
		}),
		logger: logger,
	}, nil
}

func (p *Provider) Name() string { return ProviderName }

func (p *Provider) Capabilities() providers.Capabilities {
	return providers.Capabilities{
		Kinds:     []video.Kind{video.KindMovie, video.KindEpisode},
		Languages: supportedLanguages,
	}
}

func (p *Provider) Initialize(context.Context) error { return nil }

func (p *Provider) Terminate(context.Context) error { return nil }

// Search looks the release name up first. When that finds nothing the
// movie title or series name is searched and the matching title pages are
// listed.
func (p *Provider) Search(ctx context.Context, v video.Identity, languages []string) ([]subtitles.Candidate, error) {
	caps := p.Capabilities()
	if !caps.Supports(v) {
		return nil, nil
	}
	wanted := caps.FilterLanguages(languages)
	if len(wanted) == 0 {
		return nil, nil
	}
	filter := http.Header{"Cookie": {filterCookie(wanted)}}

	rows, err := p.releaseSearch(ctx, filepath.Base(v.Basename()), filter)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		p.logger.Debug("release not listed, searching by title")
		if rows, err = p.titleSearch(ctx, v, filter); err != nil {
			return nil, err
		}
	}
	return candidates(v, rows, wanted), nil
}

// Fetch opens the subtitle page, follows its download button and unpacks
// the archive it serves.
func (p *Provider) Fetch(ctx context.Context, c subtitles.Candidate) ([]byte, error) {
	doc, err := p.page(ctx, c.FetchRef, nil)
	if err != nil {
		return nil, err
	}
	button := scrape.First(scrape.Find(doc, scrape.Is(atom.Div, "download")), atom.A)
	if button == nil || scrape.Attr(button, "href") == "" {
		return nil, fmt.Errorf("%w: %s: no download link on %s", providers.ErrInvalidSubtitle, ProviderName, c.FetchRef)
	}
	header := http.Header{"Referer": {p.resolve(c.FetchRef)}}
	resp, err := p.http.Get(ctx, p.resolve(scrape.Attr(button, "href")), header)
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

type subtitleRow struct {
	ID              string
	Link            string
	Language        string
	Release         string
	HearingImpaired bool
	Year            int
}

// releaseSearch lists the rows of a release result page, or of every title
// the search suggests instead.
func (p *Provider) releaseSearch(ctx context.Context, name string, filter http.Header) ([]subtitleRow, error) {
	doc, err := p.page(ctx, searchURL(name), filter)
	if err != nil {
		return nil, err
	}
	if strings.Contains(scrape.Text(doc), releaseListMarker) {
		return parseRows(doc), nil
	}
	var rows []subtitleRow
	for _, link := range resultLinks(doc) {
		titleDoc, err := p.page(ctx, scrape.Attr(link, "href"), filter)
		if err != nil {
			return nil, err
		}
		rows = append(rows, parseRows(titleDoc)...)
	}
	return rows, nil
}

// titleSearch searches without the language filter and lists the title
// pages whose name is the movie title or the series name, a season suffix
// such as "Lost - First Season" allowed.
func (p *Provider) titleSearch(ctx context.Context, v video.Identity, filter http.Header) ([]subtitleRow, error) {
	query := v.Title
	if v.IsEpisode() {
		query = v.Series
	}
	query, _ = textutil.StripYear(query)
	if query == "" {
		return nil, nil
	}
	doc, err := p.page(ctx, searchURL(query), nil)
	if err != nil {
		return nil, err
	}
	var rows []subtitleRow
	for _, link := range resultLinks(doc) {
		if !sameTitle(scrape.Text(link), query) {
			continue
		}
		titleDoc, err := p.page(ctx, scrape.Attr(link, "href"), filter)
		if err != nil {
			return nil, err
		}
		rows = append(rows, parseRows(titleDoc)...)
	}
	return rows, nil
}

func sameTitle(listed, query string) bool {
	listed, _ = textutil.StripYear(listed)
	if before, _, ok := strings.Cut(listed, " - "); ok {
		listed = before
	}
	want := textutil.Sanitize(query)
	return want != "" && textutil.Sanitize(listed) == want
}

func resultLinks(doc *html.Node) []*html.Node {
	results := scrape.Find(doc, scrape.Is(atom.Div, "search-results"))
	if results == nil {
		return nil
	}
	return scrape.FindAll(results, func(n *html.Node) bool {
		return n.DataAtom == atom.A && scrape.Attr(n, "href") != ""
	})
}

// parseRows reads the subtitle table of a title or release page. Rows with
// a language the site leaves unspecified are skipped.
func parseRows(doc *html.Node) []subtitleRow {
	year := pageYear(doc)
	var rows []subtitleRow
	for _, tr := range scrape.FindAll(doc, func(n *html.Node) bool {
		return n.DataAtom == atom.Tr && n.Parent != nil && n.Parent.DataAtom == atom.Tbody
	}) {
		anchor := scrape.First(tr, atom.A)
		spans := scrape.FindAll(tr, func(n *html.Node) bool { return n.DataAtom == atom.Span })
		if anchor == nil || len(spans) < 2 {
			continue
		}
		link := scrape.Attr(anchor, "href")
		id := link[strings.LastIndex(link, "/")+1:]
		lang := parseLanguage(scrape.Text(spans[0]))
		if id == "" || lang == "" {
			continue
		}
		rows = append(rows, subtitleRow{
			ID:              id,
			Link:            link,
			Language:        lang,
			Release:         scrape.Text(spans[1]),
			HearingImpaired: scrape.Find(tr, scrape.Is(atom.Td, "a41")) != nil,
			Year:            year,
		})
	}
	return rows
}

// pageYear reads "Year: 2004" from the page header, or 0.
func pageYear(doc *html.Node) int {
	header := scrape.Find(doc, scrape.Is(atom.Div, "header"))
	if header == nil {
		return 0
	}
	for _, strong := range scrape.FindAll(header, func(n *html.Node) bool { return n.DataAtom == atom.Strong }) {
		label := scrape.Text(strong.Parent)
		if value, ok := strings.CutPrefix(label, "Year:"); ok {
			year, err := strconv.Atoi(strings.TrimSpace(value))
			if err == nil {
				return year
			}
		}
	}
	return 0
}

// candidates turns rows into candidates described by a guess of their
// release name. Episode rows guessed for another episode are dropped.
func candidates(v video.Identity, rows []subtitleRow, wanted []string) []subtitles.Candidate {
	var out []subtitles.Candidate
	seen := make(map[string]bool, len(rows))
	for _, row := range rows {
		if seen[row.ID] || !slices.Contains(wanted, row.Language) {
			continue
		}
		seen[row.ID] = true
		c := subtitles.Candidate{
			Provider:        ProviderName,
			ID:              row.ID,
			Language:        row.Language,
			HearingImpaired: row.HearingImpaired,
			Release:         row.Release,
			Year:            row.Year,
			FetchRef:        row.Link,
		}
		if guess, err := video.Guess(row.Release+".mkv", nil); err == nil {
			if v.IsEpisode() && guess.IsEpisode() && (guess.Season != v.Season || !v.HasEpisode(guess.Episode)) {
				continue
			}
			c.Series = guess.Series
			c.Season = guess.Season
			c.Episode = guess.Episode
			c.Title = guess.Title
			if c.Year == 0 {
				c.Year = guess.Year
			}
		}
		out = append(out, c)
	}
	return out
}

func searchURL(query string) string {
	return searchPath + "?" + url.Values{"q": {query}, "l": {""}}.Encode()
}

func (p *Provider) page(ctx context.Context, target string, header http.Header) (*html.Node, error) {
	resp, err := p.http.Get(ctx, p.resolve(target), header)
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

// resolve turns a site path into an absolute URL.
func (p *Provider) resolve(ref string) string {
	target, err := p.baseURL.Parse(ref)
	if err != nil {
		return p.baseURL.String() + ref
	}
	return target.String()
}
