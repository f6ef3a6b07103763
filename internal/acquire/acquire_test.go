package acquire

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"subfetch/internal/media/ffprobe"
	"subfetch/internal/providers"
	"subfetch/internal/subtitles"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestStandardFirstPrefersStandardSubtitle(t *testing.T) {
	for _, tc := range []struct {
		mode subtitles.FetchMode
		want string
	}{
		{subtitles.StandardFirst, "standard"},
		{subtitles.BestScore, "impaired"},
		{subtitles.ImpairedOnly, "impaired"},
		{subtitles.StandardOnly, "standard"},
	} {
		t.Run(tc.mode.String(), func(t *testing.T) {
			dir := t.TempDir()
			path := touch(t, filepath.Join(dir, "Lost.S01E02.720p.HDTV.mkv"), "video")
			fake := newFake("fake",
				episode("impaired", "en", 2, true, "Lost.S01E02.720p"),
				episode("standard", "en", 2, false, ""),
			)
			opts := baseOptions("fake")
			opts.Mode = tc.mode
			summary, err := newTestAcquirer(t, opts, fake).Run(context.Background(), []string{path})
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if summary.Placed() != 1 {
				t.Fatalf("expected one subtitle, got %+v", summary.Results)
			}
			if got := summary.Results[0].Placements[0]; got.Provider != "fake" {
				t.Fatalf("unexpected placement %+v", got)
			}
			if _, fetched := fake.stats(); !slices.Equal(fetched, []string{tc.want}) {
				t.Fatalf("expected %s to be fetched, got %v", tc.want, fetched)
			}
		})
	}
}

func TestMinimumScoreLeavesVideoNeutral(t *testing.T) {
	dir := t.TempDir()
	path := touch(t, filepath.Join(dir, "Lost.S01E02.mkv"), "video")
	weak := episode("weak", "en", 2, false, "")
	weak.Series = "Other Show"
	fake := newFake("fake", weak)

	summary, err := newTestAcquirer(t, baseOptions("fake"), fake).Run(context.Background(), []string{path})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Outcome() != OutcomeNeutral || summary.Placed() != 0 {
		t.Fatalf("expected neutral outcome, got %+v", summary)
	}
	if _, fetched := fake.stats(); len(fetched) != 0 {
		t.Fatalf("expected no download below the minimum score, got %v", fetched)
	}
	if _, err := os.Stat(filepath.Join(dir, "Lost.S01E02.en.srt")); !os.IsNotExist(err) {
		t.Fatalf("expected no subtitle file, got %v", err)
	}
}

func TestFetchFallsBackAndDiscardsUnavailableProviderPerVideo(t *testing.T) {
	dir := t.TempDir()
	first := touch(t, filepath.Join(dir, "Lost.S01E02.720p.mkv"), "video")
	second := touch(t, filepath.Join(dir, "Lost.S01E03.720p.mkv"), "video")

	flaky := newFake("flaky",
		episode("flaky-2", "en", 2, false, "720p"),
		episode("flaky-2b", "en", 2, false, "720p"),
		episode("flaky-3", "en", 3, false, "720p"),
	)
	flaky.fetchErrs["flaky-2"] = providers.Unavailable("flaky", "download limit exceeded", nil)
	steady := newFake("steady",
		episode("broken-2", "en", 2, false, ""),
		episode("good-2", "en", 2, false, ""),
		episode("good-3", "en", 3, false, ""),
	)
	steady.fetchErrs["broken-2"] = providers.ErrInvalidSubtitle

	summary, err := newTestAcquirer(t, baseOptions("flaky", "steady"), flaky, steady).Run(context.Background(), []string{dir})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Placed() != 2 || summary.Outcome() != OutcomeSuccess {
		t.Fatalf("expected both videos served, got %+v", summary.Results)
	}
	for _, path := range []string{first, second} {
		sub := strings.TrimSuffix(path, ".mkv") + ".en.srt"
		if got := readFile(t, sub); got != validSRT {
			t.Fatalf("unexpected subtitle %s: %q", sub, got)
		}
	}
	searches, fetched := flaky.stats()
	if searches != 2 || !slices.Equal(fetched, []string{"flaky-2", "flaky-3"}) {
		t.Fatalf("expected flaky skipped for the first video only, searches=%d fetched=%v", searches, fetched)
	}
	if _, fetched := steady.stats(); !slices.Equal(fetched, []string{"broken-2", "good-2"}) {
		t.Fatalf("unexpected steady downloads %v", fetched)
	}
	if got := summary.Results[1].Placements[0].Provider; got != "flaky" {
		t.Fatalf("expected flaky to serve the second video, got %s", got)
	}
}

func TestFailedDownloadDoesNotDisableProviderForLaterVideos(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "Lost.S01E02.mkv"), "video")
	touch(t, filepath.Join(dir, "Lost.S01E03.mkv"), "video")
	fake := newFake("fake", episode("ep2", "en", 2, false, ""), episode("ep3", "en", 3, false, ""))
	fake.fetchErrs["ep2"] = &providers.StatusError{Provider: "fake", Code: 404, Status: "404 Not Found"}

	summary, err := newTestAcquirer(t, baseOptions("fake"), fake).Run(context.Background(), []string{dir})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Placed() != 1 {
		t.Fatalf("expected the second video served, got %+v", summary.Results)
	}
	if _, fetched := fake.stats(); !slices.Equal(fetched, []string{"ep2", "ep3"}) {
		t.Fatalf("unexpected downloads %v", fetched)
	}
	if skipped := summary.Results[1].Skipped; skipped != "" {
		t.Fatalf("second video skipped: %s", skipped)
	}
	if _, err := os.Stat(filepath.Join(dir, "Lost.S01E03.en.srt")); err != nil {
		t.Fatalf("expected subtitle for the second video: %v", err)
	}
}

func TestSearchErrorDropsOnlyThatProvider(t *testing.T) {
	dir := t.TempDir()
	path := touch(t, filepath.Join(dir, "Lost.S01E02.mkv"), "video")
	failing := newFake("failing")
	failing.searchErr = errors.New("boom")
	working := newFake("working", episode("ok", "en", 2, false, ""))

	summary, err := newTestAcquirer(t, baseOptions("failing", "working"), failing, working).Run(context.Background(), []string{path})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Placed() != 1 {
		t.Fatalf("expected the working provider to serve, got %+v", summary.Results)
	}
}

func TestSlowProviderTimesOut(t *testing.T) {
	dir := t.TempDir()
	path := touch(t, filepath.Join(dir, "Lost.S01E02.mkv"), "video")
	slow := newFake("slow", episode("slow", "en", 2, false, "Lost.S01E02"))
	slow.block = true
	fast := newFake("fast", episode("fast", "en", 2, false, ""))

	opts := baseOptions("slow", "fast")
	opts.ProviderTimeout = 50 * time.Millisecond
	start := time.Now()
	summary, err := newTestAcquirer(t, opts, slow, fast).Run(context.Background(), []string{path})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("expected the timeout to bound the query, took %v", elapsed)
	}
	if summary.Placed() != 1 || summary.Results[0].Placements[0].Provider != "fast" {
		t.Fatalf("expected the fast provider to serve, got %+v", summary.Results)
	}
}

func TestConfigurationErrorExcludesProvider(t *testing.T) {
	dir := t.TempDir()
	path := touch(t, filepath.Join(dir, "Lost.S01E02.mkv"), "video")
	registry := providers.NewRegistry()
	registry.Register("locked", func(providers.Settings) (providers.Provider, error) {
		return nil, &providers.ConfigurationError{Provider: "locked", Reason: "api key missing"}
	})
	open := newFake("open", episode("ok", "en", 2, false, ""))
	registry.Register("open", func(providers.Settings) (providers.Provider, error) { return open, nil })

	acq := New(baseOptions("locked", "open"), Dependencies{Registry: registry})
	summary, err := acq.Run(context.Background(), []string{path})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Placed() != 1 {
		t.Fatalf("expected the configured provider to serve, got %+v", summary.Results)
	}
}

func TestProvidersInitializedOncePerBatch(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "Lost.S01E02.mkv"), "video")
	touch(t, filepath.Join(dir, "Lost.S01E03.mkv"), "video")
	fake := newFake("fake", episode("two", "en", 2, false, ""), episode("three", "en", 3, false, ""))
	opts := baseOptions("fake")
	opts.Workers = 2

	summary, err := newTestAcquirer(t, opts, fake).Run(context.Background(), []string{dir})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Placed() != 2 {
		t.Fatalf("expected two subtitles, got %+v", summary.Results)
	}
	if fake.initialized != 1 || fake.terminated != 1 {
		t.Fatalf("expected one initialize and terminate, got %d/%d", fake.initialized, fake.terminated)
	}
}

func TestFailedInitializeExcludesProvider(t *testing.T) {
	dir := t.TempDir()
	path := touch(t, filepath.Join(dir, "Lost.S01E02.mkv"), "video")
	fake := newFake("fake", episode("ok", "en", 2, false, ""))
	fake.initErr = providers.Unavailable("fake", "login", nil)

	summary, err := newTestAcquirer(t, baseOptions("fake"), fake).Run(context.Background(), []string{path})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Results[0].Skipped != "no usable providers" {
		t.Fatalf("expected video skipped, got %+v", summary.Results[0])
	}
	if searches, _ := fake.stats(); searches != 0 || fake.terminated != 0 {
		t.Fatalf("expected no search or terminate, got %d/%d", searches, fake.terminated)
	}
}

func TestAlreadySatisfiedLanguagesAreSkipped(t *testing.T) {
	dir := t.TempDir()
	path := touch(t, filepath.Join(dir, "Lost.S01E02.mkv"), "video")
	touch(t, filepath.Join(dir, "Lost.S01E02.ENG.srt"), "existing")
	fake := newFake("fake", episode("en", "en", 2, false, ""), episode("fr", "fr", 2, false, ""))
	opts := baseOptions("fake")
	opts.Languages = []string{"en", "fr"}

	summary, err := newTestAcquirer(t, opts, fake).Run(context.Background(), []string{path})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []Placement{{Path: filepath.Join(dir, "Lost.S01E02.fr.srt"), Language: "fr", Provider: "fake", Score: 35}}
	if diff := cmp.Diff(want, summary.Results[0].Placements); diff != "" {
		t.Fatalf("placements mismatch (-want +got):\n%s", diff)
	}
	if got := readFile(t, filepath.Join(dir, "Lost.S01E02.ENG.srt")); got != "existing" {
		t.Fatalf("existing subtitle was modified: %q", got)
	}
}

func TestOverwriteIgnoresExistingSubtitles(t *testing.T) {
	dir := t.TempDir()
	path := touch(t, filepath.Join(dir, "Lost.S01E02.mkv"), "video")
	touch(t, filepath.Join(dir, "Lost.S01E02.en.srt"), "stale")
	fake := newFake("fake", episode("en", "en", 2, false, ""))
	opts := baseOptions("fake")
	opts.Overwrite = true

	if _, err := newTestAcquirer(t, opts, fake).Run(context.Background(), []string{path}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := readFile(t, filepath.Join(dir, "Lost.S01E02.en.srt")); got != validSRT {
		t.Fatalf("expected subtitle to be replaced, got %q", got)
	}
}

func TestSingleModePicksBestAcrossLanguages(t *testing.T) {
	dir := t.TempDir()
	path := touch(t, filepath.Join(dir, "Lost.S01E02.720p.mkv"), "video")
	fake := newFake("fake", episode("en", "en", 2, false, ""), episode("fr", "fr", 2, false, "720p"))
	opts := baseOptions("fake")
	opts.Languages = []string{"en", "fr"}
	opts.Single = true

	summary, err := newTestAcquirer(t, opts, fake).Run(context.Background(), []string{path})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Placed() != 1 {
		t.Fatalf("expected one subtitle in single mode, got %+v", summary.Results)
	}
	placement := summary.Results[0].Placements[0]
	if placement.Language != "fr" || placement.Path != filepath.Join(dir, "Lost.S01E02.720p.srt") {
		t.Fatalf("unexpected placement %+v", placement)
	}
	if _, fetched := fake.stats(); len(fetched) != 1 {
		t.Fatalf("expected a single download, got %v", fetched)
	}

	// a bare subtitle now satisfies the video
	again, err := newTestAcquirer(t, opts, fake).Run(context.Background(), []string{path})
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if again.Results[0].Skipped != "subtitles already present" {
		t.Fatalf("expected skip on rerun, got %+v", again.Results[0])
	}
}

func TestBareSubtitleSatisfiesPerLanguageMode(t *testing.T) {
	dir := t.TempDir()
	path := touch(t, filepath.Join(dir, "Lost.S01E02.mkv"), "video")
	touch(t, filepath.Join(dir, "Lost.S01E02.srt"), "bare")
	fake := newFake("fake", episode("en", "en", 2, false, ""), episode("fr", "fr", 2, false, ""))
	opts := baseOptions("fake")
	opts.Languages = []string{"en", "fr"}

	summary, err := newTestAcquirer(t, opts, fake).Run(context.Background(), []string{path})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Placed() != 0 || summary.Results[0].Skipped != "subtitles already present" {
		t.Fatalf("expected bare subtitle to satisfy the video, got %+v", summary.Results)
	}
	if searches, fetched := fake.stats(); searches != 0 || len(fetched) != 0 {
		t.Fatalf("expected no provider traffic, got searches=%d fetched=%v", searches, fetched)
	}
	if _, err := os.Stat(filepath.Join(dir, "Lost.S01E02.en.srt")); !os.IsNotExist(err) {
		t.Fatalf("expected no language subtitle, got %v", err)
	}
}

func TestEmbeddedScan(t *testing.T) {
	dir := t.TempDir()
	path := touch(t, filepath.Join(dir, "Lost.S01E02.mkv"), "video")
	fake := newFake("fake",
		episode("en", "en", 2, false, ""),
		episode("fr", "fr", 2, false, ""),
		episode("de", "de", 2, false, "1080p"),
	)
	probe := func(context.Context, string) (ffprobe.Result, error) {
		return ffprobe.Result{Streams: []ffprobe.Stream{
			{CodecType: "video", Height: 1080},
			{CodecType: "subtitle", Tags: map[string]string{"language": "eng"}},
			{CodecType: "subtitle", Tags: map[string]string{"language": "und"}},
		}}, nil
	}
	opts := baseOptions("fake")
	opts.Languages = []string{"en", "fr", "de"}
	opts.Advanced = true
	acq := New(opts, Dependencies{Registry: registryWith(t, fake), Probe: probe})

	summary, err := acq.Run(context.Background(), []string{path})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	var langs []string
	var deScore int
	for _, p := range summary.Results[0].Placements {
		langs = append(langs, p.Language)
		if p.Language == "de" {
			deScore = p.Score
		}
	}
	if !slices.Equal(langs, []string{"fr", "de"}) {
		t.Fatalf("expected embedded english to be skipped, got %v", langs)
	}
	if deScore != 37 {
		t.Fatalf("expected probed resolution to count, got score %d", deScore)
	}

	opts.IgnoreEmbedded = true
	ignoring := New(opts, Dependencies{Registry: registryWith(t, newFake("fake", episode("en", "en", 2, false, ""))), Probe: probe})
	summary, err = ignoring.Run(context.Background(), []string{path})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Placed() != 1 || summary.Results[0].Placements[0].Language != "en" {
		t.Fatalf("expected english despite embedded stream, got %+v", summary.Results)
	}
}

func TestEmbeddedProbeFailureIsNotFatal(t *testing.T) {
	dir := t.TempDir()
	path := touch(t, filepath.Join(dir, "Lost.S01E02.mkv"), "video")
	probe := func(context.Context, string) (ffprobe.Result, error) {
		return ffprobe.Result{}, errors.New("exec: ffprobe: not found")
	}
	opts := baseOptions("fake")
	opts.Advanced = true
	acq := New(opts, Dependencies{Registry: registryWith(t, newFake("fake", episode("en", "en", 2, false, ""))), Probe: probe})
	summary, err := acq.Run(context.Background(), []string{path})
	if err != nil || summary.Placed() != 1 {
		t.Fatalf("expected fetch despite probe failure, got %+v %v", summary, err)
	}
}

func TestLocalShortcutSkipsProviders(t *testing.T) {
	dir := t.TempDir()
	xrefDir := t.TempDir()
	path := touch(t, filepath.Join(dir, "Lost.S01E02.720p.HDTV.mkv"), "video")
	touch(t, filepath.Join(xrefDir, "Lost.S01E02.en.srt"), "local")
	fake := newFake("fake", episode("en", "en", 2, false, ""))
	opts := baseOptions("fake")
	opts.XRefDirs = []string{xrefDir}

	summary, err := newTestAcquirer(t, opts, fake).Run(context.Background(), []string{path})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []Placement{{Path: filepath.Join(dir, "Lost.S01E02.720p.HDTV.en.srt"), Language: "en", Provider: LocalProvider}}
	if diff := cmp.Diff(want, summary.Results[0].Placements); diff != "" {
		t.Fatalf("placements mismatch (-want +got):\n%s", diff)
	}
	if got := readFile(t, want[0].Path); got != "local" {
		t.Fatalf("unexpected local subtitle %q", got)
	}
	if searches, _ := fake.stats(); searches != 0 {
		t.Fatalf("expected no provider search, got %d", searches)
	}
}

func TestSearchResultsAreCached(t *testing.T) {
	dir := t.TempDir()
	path := touch(t, filepath.Join(dir, "Lost.S01E02.mkv"), "video")
	fake := newFake("fake", episode("en", "en", 2, false, ""))
	opts := baseOptions("fake")
	opts.Overwrite = true
	acq := newTestAcquirer(t, opts, fake)

	for range 2 {
		if _, err := acq.Run(context.Background(), []string{path}); err != nil {
			t.Fatalf("Run: %v", err)
		}
	}
	searches, fetched := fake.stats()
	if searches != 1 {
		t.Fatalf("expected one search across runs, got %d", searches)
	}
	if len(fetched) != 2 {
		t.Fatalf("expected downloads on both runs, got %v", fetched)
	}
}

func TestPlaceAppliesTidyAndEncoding(t *testing.T) {
	dir := t.TempDir()
	path := touch(t, filepath.Join(dir, "Lost.S01E02.mkv"), "video")
	payload := "1\r\r\n00:00:01,000 --> 00:00:02,000\r\r\nCafé   \r\r\n\r\r\n" +
		"2\r\r\n00:00:03,000 --> 00:00:04,000\r\r\nSynced and corrected by elderman\r\r\n"
	fake := newFake("fake", episode("en", "en", 2, false, ""))
	fake.payloads["en"] = []byte(payload)
	opts := baseOptions("fake")
	opts.Tidy = true
	opts.ForceEncoding = "windows-1252"

	if _, err := newTestAcquirer(t, opts, fake).Run(context.Background(), []string{path}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	got := readFile(t, filepath.Join(dir, "Lost.S01E02.en.srt"))
	want := "1\r\n00:00:01,000 --> 00:00:02,000\r\nCaf\xe9\r\n"
	if got != want {
		t.Fatalf("unexpected placed subtitle %q, want %q", got, want)
	}
}

func TestCollect(t *testing.T) {
	dir := t.TempDir()
	keep := touch(t, filepath.Join(dir, "Show", "Lost.S01E02.mkv"), "video")
	touch(t, filepath.Join(dir, "Show", "lost.s01e02-sample.mkv"), "sample")
	touch(t, filepath.Join(dir, "Show", "Lost.S01E02.nfo"), "info")
	tiny := touch(t, filepath.Join(dir, "tiny.mkv"), "")
	old := touch(t, filepath.Join(dir, "Old.S01E01.mkv"), "video")
	past := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(old, past, past); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}

	opts := baseOptions()
	opts.MinVideoSize = 1
	opts.MaxAge = 24 * time.Hour
	acq := New(opts, Dependencies{Registry: providers.NewRegistry()})
	got, err := acq.Collect(context.Background(), []string{dir, keep, tiny})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if diff := cmp.Diff([]string{keep}, got); diff != "" {
		t.Fatalf("Collect mismatch (-want +got):\n%s", diff)
	}

	if _, err := acq.Collect(context.Background(), []string{filepath.Join(dir, "missing")}); err == nil {
		t.Fatal("expected error for a missing path")
	}
}

func TestUndetectableVideoIsSkipped(t *testing.T) {
	dir := t.TempDir()
	path := touch(t, filepath.Join(dir, "0123456789abcdef0123", "S01E02.mkv"), "video")
	summary, err := newTestAcquirer(t, baseOptions()).Run(context.Background(), []string{path})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Results[0].Skipped != "undetectable video" || summary.Outcome() != OutcomeNeutral {
		t.Fatalf("expected undetectable skip, got %+v", summary.Results[0])
	}
}

func registryWith(t *testing.T, fakes ...*fakeProvider) *providers.Registry {
	t.Helper()
	registry := providers.NewRegistry()
	for _, f := range fakes {
		if err := registry.Register(f.name, func(providers.Settings) (providers.Provider, error) { return f, nil }); err != nil {
			t.Fatalf("Register: %v", err)
		}
	}
	return registry
}
