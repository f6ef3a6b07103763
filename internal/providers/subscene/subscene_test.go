package subscene

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"subfetch/internal/config"
	"subfetch/internal/providers"
	"subfetch/internal/subtitles"
	"subfetch/internal/video"
)

const lostRows = `<table>
<thead><tr><td>Language</td><td>Release</td></tr></thead>
<tbody>
<tr><td class="a1"><a href="/subtitles/lost-first-season/english/100"><span class="l r positive-icon">English</span><span>Lost.S01E02.720p.HDTV-LOL</span></a></td><td class="a40"></td></tr>
<tr><td class="a1"><a href="/subtitles/lost-first-season/english/101"><span class="l r neutral-icon">English</span><span>Lost.S01E02.DVDRip-DIMENSION</span></a></td><td class="a41"></td></tr>
<tr><td class="a1"><a href="/subtitles/lost-first-season/french/102"><span class="l r positive-icon">French</span><span>Lost.S01E02.720p.HDTV-LOL</span></a></td><td class="a40"></td></tr>
<tr><td class="a1"><a href="/subtitles/lost-first-season/english/103"><span class="l r positive-icon">English</span><span>Lost.S01E03.720p.HDTV-LOL</span></a></td><td class="a40"></td></tr>
<tr><td class="a1"><a href="/subtitles/lost-first-season/farsi_persian/104"><span class="l r positive-icon">Farsi/Persian</span><span>Lost.S01E02.720p.HDTV-LOL</span></a></td><td class="a40"></td></tr>
<tr><td class="a1"><a href="/subtitles/lost-first-season/english/100"><span class="l r positive-icon">English</span><span>Lost.S01E02.720p.HDTV-LOL</span></a></td><td class="a40"></td></tr>
</tbody></table>`

const releasePage = `<html><body><div class="header"><h2>Subtitle search by release name</h2></div>` + lostRows + `</body></html>`

const titlePage = `<html><body><div class="header"><h2>Lost - First Season</h2><ul><li><strong>Year:</strong> 2004</li></ul></div>` + lostRows + `</body></html>`

const suggestionsPage = `<html><body><div class="search-results">
<h2>Close</h2><ul>
<li><div class="title"><a href="/subtitles/lost-first-season">Lost - First Season (2004)</a></div></li>
<li><div class="title"><a href="/subtitles/lost-girl">Lost Girl - First Season (2010)</a></div></li>
</ul></div></body></html>`

const emptyPage = `<html><body><p>No results found</p></body></html>`

const subtitlePage = `<html><body><div class="download"><a href="/subtitle/download?mac=abc">Download English Subtitle</a></div></body></html>`

const srtPayload = "1\n00:00:01,000 --> 00:00:02,000\nHello\n"

type fakeSite struct {
	mu      sync.Mutex
	hits    map[string]int
	queries []string
	cookie  string
	referer string
}

func (f *fakeSite) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hits[r.URL.Path]++
	switch {
	case r.URL.Path == "/subtitles/title":
		query := r.URL.Query().Get("q")
		f.queries = append(f.queries, query)
		switch {
		case strings.HasPrefix(query, "Lost.S01E02"):
			f.cookie = r.Header.Get("Cookie")
			w.Write([]byte(releasePage))
		case query == "Lost":
			w.Write([]byte(suggestionsPage))
		default:
			w.Write([]byte(emptyPage))
		}
	case r.URL.Path == "/subtitles/lost-first-season":
		f.cookie = r.Header.Get("Cookie")
		w.Write([]byte(titlePage))
	case r.URL.Path == "/subtitles/lost-first-season/english/999":
		w.Write([]byte(emptyPage))
	case strings.HasPrefix(r.URL.Path, "/subtitles/lost-first-season/"):
		w.Write([]byte(subtitlePage))
	case r.URL.Path == "/subtitle/download":
		f.referer = r.Header.Get("Referer")
		w.Header().Set("Content-Type", "application/zip")
		w.Write(zipped(srtPayload))
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeSite) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[path]
}

func (f *fakeSite) state() (queries []string, cookie, referer string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...), f.cookie, f.referer
}

func zipped(payload string) []byte {
	var buf bytes.Buffer
	archive := zip.NewWriter(&buf)
	readme, _ := archive.Create("readme.txt")
	readme.Write([]byte("downloaded from subscene"))
	entry, _ := archive.Create("Lost.S01E02.720p.HDTV-LOL.srt")
	entry.Write([]byte(payload))
	archive.Close()
	return buf.Bytes()
}

func newTestProvider(t *testing.T) (*Provider, *fakeSite) {
	t.Helper()
	site := &fakeSite{hits: make(map[string]int)}
	server := httptest.NewServer(site)
	t.Cleanup(server.Close)
	p, err := NewProvider(providers.Settings{
		Config: config.Providers{Subscene: config.Subscene{BaseURL: server.URL}},
	})
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	provider := p.(*Provider)
	// keep tests fast
	provider.http = providers.NewHTTPClient(providers.HTTPOptions{Provider: ProviderName, Client: server.Client()})
	return provider, site
}

func lostEpisode(release string) video.Identity {
	return video.Identity{
		Name:     "/media/tv/" + release + ".mkv",
		Kind:     video.KindEpisode,
		Series:   "Lost",
		Season:   1,
		Episode:  2,
		Episodes: []int{2},
	}
}

func TestSearchParsesReleasePage(t *testing.T) {
	p, site := newTestProvider(t)
	candidates, err := p.Search(context.Background(), lostEpisode("Lost.S01E02.720p.HDTV-LOL"), []string{"en", "fr"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(candidates) != 3 {
		t.Fatalf("expected 3 episode-2 candidates in en and fr, got %+v", candidates)
	}
	first := candidates[0]
	if first.ID != "100" || first.Language != "en" || first.Release != "Lost.S01E02.720p.HDTV-LOL" || first.HearingImpaired {
		t.Fatalf("unexpected first candidate %+v", first)
	}
	if first.Series != "Lost" || first.Season != 1 || first.Episode != 2 {
		t.Fatalf("expected release name to be guessed, got %+v", first)
	}
	if first.FetchRef != "/subtitles/lost-first-season/english/100" {
		t.Fatalf("unexpected fetch reference %q", first.FetchRef)
	}
	if !candidates[1].HearingImpaired {
		t.Fatal("expected second candidate to be hearing impaired")
	}
	if candidates[2].Language != "fr" {
		t.Fatalf("expected french third, got %q", candidates[2].Language)
	}
	queries, cookie, _ := site.state()
	if len(queries) != 1 {
		t.Fatalf("expected a single release search, got %v", queries)
	}
	if cookie != "LanguageFilter=13,18; HearingImpaired=2; ForeignOnly=False" {
		t.Fatalf("unexpected language filter cookie %q", cookie)
	}
}

func TestSearchFallsBackToTitle(t *testing.T) {
	p, site := newTestProvider(t)
	candidates, err := p.Search(context.Background(), lostEpisode("lost.102"), []string{"fa"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	queries, cookie, _ := site.state()
	if len(queries) != 2 || queries[1] != "Lost" {
		t.Fatalf("expected release then series search, got %v", queries)
	}
	if site.count("/subtitles/lost-first-season") != 1 || site.count("/subtitles/lost-girl") != 0 {
		t.Fatal("expected only the matching title page to be opened")
	}
	if cookie != "LanguageFilter=46; HearingImpaired=2; ForeignOnly=False" {
		t.Fatalf("unexpected language filter cookie %q", cookie)
	}
	if len(candidates) != 1 || candidates[0].Language != "fa" || candidates[0].Year != 2004 {
		t.Fatalf("expected one persian candidate from 2004, got %+v", candidates)
	}
}

func TestSearchSkipsUnsupportedLanguages(t *testing.T) {
	p, site := newTestProvider(t)
	candidates, err := p.Search(context.Background(), lostEpisode("Lost.S01E02.720p.HDTV-LOL"), []string{"xx"})
	if err != nil || len(candidates) != 0 {
		t.Fatalf("expected no candidates, got %v %v", candidates, err)
	}
	if queries, _, _ := site.state(); len(queries) != 0 {
		t.Fatalf("expected no requests, got %v", queries)
	}
}

func TestFetchUnpacksArchive(t *testing.T) {
	p, site := newTestProvider(t)
	candidates, err := p.Search(context.Background(), lostEpisode("Lost.S01E02.720p.HDTV-LOL"), []string{"en"})
	if err != nil || len(candidates) == 0 {
		t.Fatalf("Search: %v %v", candidates, err)
	}
	data, err := p.Fetch(context.Background(), candidates[0])
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(data) != srtPayload {
		t.Fatalf("unexpected payload %q", data)
	}
	if _, _, referer := site.state(); !strings.HasSuffix(referer, "/subtitles/lost-first-season/english/100") {
		t.Fatalf("expected subtitle page referer, got %q", referer)
	}
}

func TestFetchWithoutDownloadLink(t *testing.T) {
	p, _ := newTestProvider(t)
	candidate := subtitles.Candidate{Provider: ProviderName, ID: "999", Language: "en", FetchRef: "/subtitles/lost-first-season/english/999"}
	if _, err := p.Fetch(context.Background(), candidate); !errors.Is(err, providers.ErrInvalidSubtitle) {
		t.Fatalf("expected invalid subtitle, got %v", err)
	}
}

func TestParseLanguage(t *testing.T) {
	cases := map[string]string{
		"English":       "en",
		" french ":      "fr",
		"Farsi/Persian": "fa",
		"Klingon":       "",
		"":              "",
	}
	for label, want := range cases {
		if got := parseLanguage(label); got != want {
			t.Errorf("parseLanguage(%q) = %q, want %q", label, got, want)
		}
	}
}
