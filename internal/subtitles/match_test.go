package subtitles_test

import (
	"testing"

	"subfetch/internal/subtitles"
	"subfetch/internal/video"
)

func TestComputeMatchesSeriesFuzzyYear(t *testing.T) {
	v := video.Identity{Kind: video.KindEpisode, Series: "Doctor Who", Season: 1, Episode: 1, Episodes: []int{1}}
	for _, series := range []string{"Doctor Who (2005)", "doctor who", "Doctor Who 2005"} {
		got := subtitles.ComputeMatches(v, subtitles.Candidate{Series: series})
		if !got.Has(subtitles.MatchSeries) {
			t.Errorf("expected %q to match series", series)
		}
	}
	if got := subtitles.ComputeMatches(v, subtitles.Candidate{Series: "Doctor Foster"}); got.Has(subtitles.MatchSeries) {
		t.Error("expected different series not to match")
	}
}

func TestComputeMatchesFoldsPunctuationAndAccents(t *testing.T) {
	v := video.Identity{Kind: video.KindEpisode, Series: "Marvel's Agents of S.H.I.E.L.D.", Title: "Pilot"}
	cases := []struct {
		candidate subtitles.Candidate
		want      subtitles.Match
	}{
		{subtitles.Candidate{Series: "Marvels Agents of S H I E L D"}, subtitles.MatchSeries},
		{subtitles.Candidate{Series: "marvel's agents of s.h.i.e.l.d. (2013)"}, subtitles.MatchSeries},
		{subtitles.Candidate{Title: "PILOT"}, subtitles.MatchTitle},
	}
	for _, tc := range cases {
		if got := subtitles.ComputeMatches(v, tc.candidate); !got.Has(tc.want) {
			t.Errorf("%+v: expected %s, got %s", tc.candidate, tc.want, got)
		}
	}

	movie := video.Identity{Kind: video.KindMovie, Title: "Amélie"}
	if got := subtitles.ComputeMatches(movie, subtitles.Candidate{Title: "Amelie"}); !got.Has(subtitles.MatchTitle) {
		t.Errorf("expected transliterated title to match, got %s", got)
	}
	if got := subtitles.ComputeMatches(movie, subtitles.Candidate{Title: "Amelie 2"}); got.Has(subtitles.MatchTitle) {
		t.Errorf("expected different title not to match, got %s", got)
	}
}

func TestComputeMatchesMultiEpisode(t *testing.T) {
	v := video.Identity{Kind: video.KindEpisode, Series: "Lost", Season: 1, Episode: 1, Episodes: []int{1, 2}}
	got := subtitles.ComputeMatches(v, subtitles.Candidate{Series: "Lost", Season: 1, Episode: 2})
	want := subtitles.NewMatchSet(subtitles.MatchSeries, subtitles.MatchSeason, subtitles.MatchEpisode)
	if got != want {
		t.Fatalf("matches = %s, want %s", got, want)
	}
}

func TestComputeMatchesUnsetVideoFieldsNeverMatch(t *testing.T) {
	v := video.Identity{Kind: video.KindMovie}
	c := subtitles.Candidate{
		Title:   "",
		Release: "Some.Movie.2010.720p.BluRay.x264-GRP",
		Hashes:  map[string]string{video.HashOpenSubtitles: ""},
	}
	if got := subtitles.ComputeMatches(v, c); got != 0 {
		t.Fatalf("expected no matches for empty identity, got %s", got)
	}
}

func TestComputeMatchesReleaseContainment(t *testing.T) {
	v := video.Identity{
		Kind:         video.KindEpisode,
		Series:       "Show",
		Season:       1,
		Episode:      1,
		ReleaseGroup: "dimension",
		Resolution:   "720p",
		VideoCodec:   "H.265",
		AudioCodec:   "Dolby Digital",
	}
	c := subtitles.Candidate{Release: "Show.S01E01.720p.HEVC.AC3-DIMENSION"}
	got := subtitles.ComputeMatches(v, c)
	want := subtitles.NewMatchSet(
		subtitles.MatchReleaseGroup, subtitles.MatchResolution,
		subtitles.MatchVideoCodec, subtitles.MatchAudioCodec,
	)
	if got != want {
		t.Fatalf("matches = %s, want %s", got, want)
	}
}

func TestMatchSetNames(t *testing.T) {
	set := subtitles.NewMatchSet(subtitles.MatchEpisode, subtitles.MatchHash, subtitles.MatchSeries)
	if got := set.String(); got != "{hash,series,episode}" {
		t.Fatalf("unexpected rendering %q", got)
	}
	if set.Without(subtitles.MatchHash).Has(subtitles.MatchHash) {
		t.Fatal("Without did not remove hash")
	}
}
