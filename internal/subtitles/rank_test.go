package subtitles_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"subfetch/internal/subtitles"
	"subfetch/internal/video"
)

func TestRankDropsCandidatesBelowMinimum(t *testing.T) {
	v := video.Identity{Kind: video.KindMovie, Title: "Heat", Year: 1995, ReleaseGroup: "GRP", Resolution: "720p"}
	// title 13 + resolution 2 = 15
	weak := subtitles.Candidate{Provider: "p", ID: "1", Language: "en", Title: "Heat", Release: "Heat.720p"}
	if score, _ := subtitles.Score(v, weak, 0); score != 15 {
		t.Fatalf("expected fixture to score 15, got %d", score)
	}
	if ranked := subtitles.Rank(v, []subtitles.Candidate{weak}, subtitles.Policy{}, 20); len(ranked) != 0 {
		t.Fatalf("expected no candidates above minimum, got %+v", ranked)
	}
	if ranked := subtitles.Rank(v, []subtitles.Candidate{weak}, subtitles.Policy{}, 15); len(ranked) != 1 {
		t.Fatalf("expected candidate at exactly the minimum to survive, got %+v", ranked)
	}
}

func TestRankOrdersByScoreAndKeepsInputOrderOnTies(t *testing.T) {
	v := video.Identity{Kind: video.KindMovie, Title: "Heat", Year: 1995}
	candidates := []subtitles.Candidate{
		{Provider: "a", ID: "1", Language: "en", Title: "Heat"},
		{Provider: "b", ID: "2", Language: "en", Title: "Heat", Year: 1995},
		{Provider: "c", ID: "3", Language: "en", Title: "Heat"},
		{Provider: "d", ID: "4", Language: "fr", Title: "Heat", Year: 1995},
	}
	ranked := subtitles.Rank(v, candidates, subtitles.Policy{}, 0)
	var keys []string
	for _, s := range ranked {
		keys = append(keys, s.Candidate.Key())
	}
	want := []string{"b:2", "d:4", "a:1", "c:3"}
	if diff := cmp.Diff(want, keys); diff != "" {
		t.Fatalf("rank order mismatch (-want +got):\n%s", diff)
	}

	groups := subtitles.GroupByLanguage(ranked)
	if len(groups["en"]) != 3 || len(groups["fr"]) != 1 {
		t.Fatalf("unexpected grouping %v", groups)
	}
	if groups["en"][0].Candidate.ID != "2" {
		t.Fatalf("expected best english candidate first, got %s", groups["en"][0].Candidate.ID)
	}
}
