package subtitles

import "subfetch/internal/video"

// The hash weights sit above the best collapsed heuristic total (46 for an
// episode, 52 for a movie) plus the default hearing-impaired bonus.
var episodeWeights = map[Match]int{
	MatchHash:         50,
	MatchIMDBID:       35,
	MatchSeries:       23,
	MatchTVDBID:       23,
	MatchTitle:        12,
	MatchSeason:       6,
	MatchEpisode:      6,
	MatchReleaseGroup: 6,
	MatchResolution:   2,
	MatchVideoCodec:   2,
	MatchAudioCodec:   1,
}

var movieWeights = map[Match]int{
	MatchHash:         56,
	MatchIMDBID:       34,
	MatchTitle:        13,
	MatchYear:         7,
	MatchReleaseGroup: 6,
	MatchResolution:   2,
	MatchVideoCodec:   2,
	MatchAudioCodec:   1,
}

func weightsFor(kind video.Kind) map[Match]int {
	if kind == video.KindEpisode {
		return episodeWeights
	}
	return movieWeights
}

// MaxScore is the score of a hash match for the kind.
func MaxScore(kind video.Kind) int {
	return weightsFor(kind)[MatchHash]
}

// Collapse removes matches implied by a stronger equivalent: an IMDb id
// identifies the series, episode, and title; a TVDB id identifies the series;
// and an episode title identifies its season and episode number.
func Collapse(kind video.Kind, matches MatchSet) MatchSet {
	if matches.Has(MatchIMDBID) {
		matches = matches.Without(MatchSeries, MatchTVDBID, MatchSeason, MatchEpisode, MatchTitle)
	}
	if matches.Has(MatchTVDBID) {
		matches = matches.Without(MatchSeries)
	}
	if kind == video.KindEpisode && matches.Has(MatchTitle) {
		matches = matches.Without(MatchSeason, MatchEpisode)
	}
	return matches
}

// ComputeScore weighs matches for the kind of video. A hash match scores the
// kind's maximum outright. Otherwise equivalent matches are collapsed, the
// remaining weights summed, and adjust added for hearing-impaired candidates.
// The result stays within [0, MaxScore-1] without a hash match.
func ComputeScore(kind video.Kind, matches MatchSet, hearingImpaired bool, adjust int) int {
	weights := weightsFor(kind)
	if matches.Has(MatchHash) {
		return weights[MatchHash]
	}
	collapsed := Collapse(kind, matches)
	score := 0
	for _, entry := range matchNames {
		if collapsed.Has(entry.match) {
			score += weights[entry.match]
		}
	}
	if hearingImpaired && adjust != 0 {
		score += adjust
	}
	return min(max(score, 0), weights[MatchHash]-1)
}

// Score is shorthand for ComputeScore(ComputeMatches(v, c)).
func Score(v video.Identity, c Candidate, adjust int) (int, MatchSet) {
	matches := ComputeMatches(v, c)
	return ComputeScore(v.Kind, matches, c.HearingImpaired, adjust), matches
}
