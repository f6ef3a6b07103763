package acquire

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"subfetch/internal/cache"
	"subfetch/internal/config"
	"subfetch/internal/providers"
	"subfetch/internal/subtitles"
	"subfetch/internal/video"
)

const validSRT = "1\n00:00:01,000 --> 00:00:02,000\nHello\n"

type fakeProvider struct {
	name       string
	caps       providers.Capabilities
	candidates []subtitles.Candidate
	// payloads maps candidate ids to fetch results; missing ids get validSRT.
	payloads  map[string][]byte
	fetchErrs map[string]error
	searchErr error
	initErr   error
	// block makes Search wait for its context.
	block bool

	mu          sync.Mutex
	searches    int
	fetched     []string
	initialized int
	terminated  int
}

func newFake(name string, candidates ...subtitles.Candidate) *fakeProvider {
	for i := range candidates {
		candidates[i].Provider = name
	}
	return &fakeProvider{
		name:       name,
		caps:       providers.Capabilities{Kinds: []video.Kind{video.KindMovie, video.KindEpisode}},
		candidates: candidates,
		payloads:   make(map[string][]byte),
		fetchErrs:  make(map[string]error),
	}
}

func (f *fakeProvider) Name() string                         { return f.name }
func (f *fakeProvider) Capabilities() providers.Capabilities { return f.caps }

func (f *fakeProvider) Initialize(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.initialized++
	return f.initErr
}

func (f *fakeProvider) Terminate(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.terminated++
	return nil
}

func (f *fakeProvider) Search(ctx context.Context, v video.Identity, langs []string) ([]subtitles.Candidate, error) {
	f.mu.Lock()
	f.searches++
	f.mu.Unlock()
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	var out []subtitles.Candidate
	for _, c := range f.candidates {
		if !slices.Contains(langs, c.Language) {
			continue
		}
		if v.IsEpisode() && c.Episode != 0 && !v.HasEpisode(c.Episode) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeProvider) Fetch(_ context.Context, c subtitles.Candidate) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched = append(f.fetched, c.ID)
	if err := f.fetchErrs[c.ID]; err != nil {
		return nil, err
	}
	if data, ok := f.payloads[c.ID]; ok {
		return data, nil
	}
	return []byte(validSRT), nil
}

func (f *fakeProvider) stats() (searches int, fetched []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.searches, slices.Clone(f.fetched)
}

func episode(id, lang string, ep int, hi bool, release string) subtitles.Candidate {
	return subtitles.Candidate{
		ID:              id,
		Language:        lang,
		HearingImpaired: hi,
		Series:          "Lost",
		Season:          1,
		Episode:         ep,
		Release:         release,
	}
}

func baseOptions(providerNames ...string) Options {
	return Options{
		Languages:       []string{"en"},
		Mode:            subtitles.BestScore,
		HIAdjust:        subtitles.DefaultHIAdjust,
		MinScore:        20,
		MovieProviders:  providerNames,
		TVProviders:     providerNames,
		ProviderTimeout: time.Second,
		Workers:         1,
		VideoExtensions: []string{".mkv"},
	}
}

func newTestAcquirer(t *testing.T, opts Options, fakes ...*fakeProvider) *Acquirer {
	t.Helper()
	registry := providers.NewRegistry()
	for _, f := range fakes {
		if err := registry.Register(f.name, func(providers.Settings) (providers.Provider, error) { return f, nil }); err != nil {
			t.Fatalf("Register: %v", err)
		}
	}
	return New(opts, Dependencies{
		Registry: registry,
		Cache:    cache.New(cache.NewMemoryStore(), config.CacheBackendMemory, nil),
	})
}

func touch(t *testing.T, path, content string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}
