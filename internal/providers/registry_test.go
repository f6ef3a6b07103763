package providers

import (
	"context"
	"errors"
	"slices"
	"testing"

	"subfetch/internal/services"
	"subfetch/internal/subtitles"
	"subfetch/internal/video"
)

type stubProvider struct {
	name string
}

func (s stubProvider) Name() string                   { return s.name }
func (stubProvider) Capabilities() Capabilities       { return Capabilities{} }
func (stubProvider) Initialize(context.Context) error { return nil }
func (stubProvider) Terminate(context.Context) error  { return nil }
func (stubProvider) Search(context.Context, video.Identity, []string) ([]subtitles.Candidate, error) {
	return nil, nil
}
func (stubProvider) Fetch(context.Context, subtitles.Candidate) ([]byte, error) { return nil, nil }

func stubFactory(name string) Factory {
	return func(Settings) (Provider, error) { return stubProvider{name: name}, nil }
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	if err := r.Register("Zeta", stubFactory("zeta")); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register("alpha", stubFactory("alpha")); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(" ZETA ", stubFactory("zeta")); err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
	if err := r.Register("", stubFactory("")); err == nil {
		t.Fatal("expected empty name to fail")
	}
	if got := r.Names(); !slices.Equal(got, []string{"alpha", "zeta"}) {
		t.Fatalf("unexpected names %v", got)
	}
	if !r.Has("ALPHA") || r.Has("beta") {
		t.Fatal("unexpected Has result")
	}
	p, err := r.New("zeta", Settings{})
	if err != nil || p.Name() != "zeta" {
		t.Fatalf("New: %v %v", p, err)
	}

	_, err = r.New("beta", Settings{})
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) || cfgErr.Provider != "beta" {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected services.ErrConfiguration, got %v", err)
	}
}

func TestCapabilitiesSupports(t *testing.T) {
	hashOnly := Capabilities{Kinds: []video.Kind{video.KindMovie, video.KindEpisode}, RequiredHash: video.HashTheSubDB}
	movie := video.Identity{Kind: video.KindMovie, Title: "Heat"}
	if hashOnly.Supports(movie) {
		t.Fatal("expected hash-only provider to refuse unhashed video")
	}
	if !hashOnly.Supports(movie.WithHashes(map[string]string{video.HashTheSubDB: "abc"})) {
		t.Fatal("expected hashed video to be supported")
	}
	episodes := Capabilities{Kinds: []video.Kind{video.KindEpisode}}
	if episodes.Supports(movie) {
		t.Fatal("expected movie to be refused by an episode-only provider")
	}
}

func TestCapabilitiesFilterLanguages(t *testing.T) {
	caps := Capabilities{Languages: []string{"en", "fr", "pt"}}
	got := caps.FilterLanguages([]string{"fra", "de", "en", "fre", "zz", "por"})
	if !slices.Equal(got, []string{"fr", "en", "pt"}) {
		t.Fatalf("unexpected languages %v", got)
	}
	open := Capabilities{}
	if got := open.FilterLanguages([]string{"eng", "de"}); !slices.Equal(got, []string{"en", "de"}) {
		t.Fatalf("unexpected languages %v", got)
	}
}
