package opensubtitles

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"subfetch/internal/providers"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := New(Config{APIKey: "abc", UserAgent: "subfetch/test", UserToken: "tok", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client
}

func TestSearchRequestValues(t *testing.T) {
	req := SearchRequest{
		MovieHash: " 8E245D9679D31E12 ",
		IMDBID:    "tt0411008",
		Languages: []string{"en", "pt-br"},
		Season:    1,
		Episode:   2,
		MediaType: "episode",
	}
	want := "episode_number=2&imdb_id=0411008&languages=en%2Cpt-br&moviehash=8e245d9679d31e12" +
		"&order_by=download_count&order_direction=desc&season_number=1&type=episode"
	if got := req.Values().Encode(); got != want {
		t.Fatalf("Values() = %s\nwant %s", got, want)
	}

	bad := SearchRequest{IMDBID: "ttabc", Query: " Heat ", Year: 1995}
	if got := bad.Values(); got.Has("imdb_id") || got.Get("query") != "Heat" || got.Get("year") != "1995" {
		t.Fatalf("unexpected values %v", got)
	}
}

func TestSearchParsesResults(t *testing.T) {
	var header http.Header
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		header = r.Header
		if r.URL.Path != "/subtitles" {
			http.NotFound(w, r)
			return
		}
		io.WriteString(w, `{"data":[
			{"id":"1","attributes":{"language":"en","release":"Lost.S01E02.720p.HDTV.x264-LOL","download_count":120,
				"moviehash_match":true,"url":"https://example.org/1",
				"feature_details":{"feature_type":"Episode","title":"Pilot (2)","parent_title":"Lost","year":2004,
					"imdb_id":636289,"season_number":1,"episode_number":2},
				"files":[{"file_id":555}]}},
			{"id":"2","attributes":{"language":"es","machine_translated":true,"files":[{"file_id":777}]}},
			{"id":"3","attributes":{"files":[{"file_id":100}]}},
			{"id":"4","attributes":{"language":"en"}}
		],"meta":{"total_count":4}}`)
	})

	resp, err := client.Search(context.Background(), SearchRequest{Query: "Lost"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	want := SearchResponse{Total: 4, Subtitles: []Subtitle{
		{
			ID: "1", FileID: 555, Language: "en", Release: "Lost.S01E02.720p.HDTV.x264-LOL",
			FeatureTitle: "Pilot (2)", ParentTitle: "Lost", FeatureYear: 2004, FeatureType: "Episode",
			IMDBID: 636289, Season: 1, Episode: 2, Downloads: 120, MovieHashMatch: true, URL: "https://example.org/1",
		},
		{ID: "2", FileID: 777, Language: "es", AITranslated: true},
	}}
	if diff := cmp.Diff(want, resp); diff != "" {
		t.Fatalf("Search mismatch (-want +got):\n%s", diff)
	}
	for key, value := range map[string]string{
		"Api-Key":       "abc",
		"User-Agent":    "subfetch/test",
		"Authorization": "Bearer tok",
		"Accept":        "application/json",
	} {
		if got := header.Get(key); got != value {
			t.Errorf("header %s = %q, want %q", key, got, value)
		}
	}
}

func TestSearchErrors(t *testing.T) {
	unauthorized := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid api key", http.StatusUnauthorized)
	})
	_, err := unauthorized.Search(context.Background(), SearchRequest{Query: "Heat"})
	if !errors.Is(err, providers.ErrProviderUnavailable) || providers.StatusCode(err) != http.StatusUnauthorized {
		t.Fatalf("expected unavailable 401, got %v", err)
	}

	garbage := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "<html>maintenance</html>")
	})
	if _, err := garbage.Search(context.Background(), SearchRequest{Query: "Heat"}); !errors.Is(err, providers.ErrProviderUnavailable) {
		t.Fatalf("expected decode failure to be unavailable, got %v", err)
	}

	var nilClient *Client
	if _, err := nilClient.Search(context.Background(), SearchRequest{}); err == nil {
		t.Fatal("expected error for nil client")
	}
}

func TestNew(t *testing.T) {
	if _, err := New(Config{APIKey: "   "}); err == nil {
		t.Fatal("expected error for blank api key")
	}
	if _, err := New(Config{APIKey: "key", BaseURL: "://invalid"}); err == nil {
		t.Fatal("expected error for invalid base url")
	}
	client, err := New(Config{APIKey: "key"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if client.baseURL.String() != defaultBaseURL || client.header.Get("User-Agent") != defaultUserAgent {
		t.Fatalf("expected defaults, got %s %q", client.baseURL, client.header.Get("User-Agent"))
	}
	if client.header.Get("Authorization") != "" {
		t.Fatal("expected no authorization header without a user token")
	}
}

func TestDownloadFetchesLinkedFile(t *testing.T) {
	var negotiation downloadRequest
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/download":
			if r.Method != http.MethodPost || r.Header.Get("Content-Type") != "application/json" {
				t.Errorf("unexpected negotiation %s %q", r.Method, r.Header.Get("Content-Type"))
			}
			_ = json.NewDecoder(r.Body).Decode(&negotiation)
			json.NewEncoder(w).Encode(downloadLink{Link: server.URL + "/payload", FileName: "movie.en.srt", Remaining: 19})
		case "/payload":
			io.WriteString(w, "1\n00:00:00,000 --> 00:00:01,000\nHello\n")
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()
	client, err := New(Config{APIKey: "abc", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	result, err := client.Download(context.Background(), 42)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if negotiation != (downloadRequest{FileID: 42, Format: "srt"}) {
		t.Fatalf("unexpected negotiation body %+v", negotiation)
	}
	if !strings.Contains(string(result.Data), "Hello") || result.FileName != "movie.en.srt" || result.Remaining != 19 {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.DownloadURL != server.URL+"/payload" {
		t.Fatalf("unexpected download url %q", result.DownloadURL)
	}
}

func TestDownloadErrors(t *testing.T) {
	quota := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"You have downloaded your allowed 20 subtitles for 24h"}`, http.StatusNotAcceptable)
	})
	_, err := quota.Download(context.Background(), 7)
	if !errors.Is(err, providers.ErrProviderUnavailable) || !strings.Contains(err.Error(), "quota") {
		t.Fatalf("expected quota error, got %v", err)
	}

	noLink := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"remaining":3}`)
	})
	if _, err := noLink.Download(context.Background(), 7); !errors.Is(err, providers.ErrProviderUnavailable) {
		t.Fatalf("expected missing link to be unavailable, got %v", err)
	}
	if _, err := noLink.Download(context.Background(), 0); err == nil {
		t.Fatal("expected error for zero file id")
	}
}
