package subtitles

import (
	"slices"

	"subfetch/internal/video"
)

// Scored is a candidate with its score against one video.
type Scored struct {
	Candidate Candidate
	Score     int
	Matches   MatchSet
}

// Rank applies the policy filter, scores every remaining candidate, drops
// those under minScore, and orders the rest best first. Ties keep the input
// order, so results are deterministic for a given provider order.
func Rank(v video.Identity, candidates []Candidate, policy Policy, minScore int) []Scored {
	if minScore < 0 {
		minScore = 0
	}
	ranked := make([]Scored, 0, len(candidates))
	for _, c := range candidates {
		if !policy.Allows(c) {
			continue
		}
		score, matches := Score(v, c, policy.Adjust)
		if score < minScore {
			continue
		}
		ranked = append(ranked, Scored{Candidate: c, Score: score, Matches: matches})
	}
	slices.SortStableFunc(ranked, func(a, b Scored) int {
		return b.Score - a.Score
	})
	return ranked
}

// GroupByLanguage splits ranked candidates per language, preserving order.
func GroupByLanguage(ranked []Scored) map[string][]Scored {
	groups := make(map[string][]Scored)
	for _, s := range ranked {
		groups[s.Candidate.Language] = append(groups[s.Candidate.Language], s)
	}
	return groups
}
