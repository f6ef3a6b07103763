package subtitles

import (
	"strconv"
	"strings"

	"subfetch/internal/textutil"
	"subfetch/internal/video"
)

// Match names one attribute on which a candidate agrees with a video.
type Match uint16

const (
	MatchSeries Match = 1 << iota
	MatchSeason
	MatchEpisode
	MatchTitle
	MatchReleaseGroup
	MatchResolution
	MatchVideoCodec
	MatchAudioCodec
	MatchYear
	MatchIMDBID
	MatchTVDBID
	MatchHash
)

var matchNames = []struct {
	match Match
	name  string
}{
	{MatchHash, "hash"},
	{MatchIMDBID, "imdb_id"},
	{MatchTVDBID, "tvdb_id"},
	{MatchSeries, "series"},
	{MatchSeason, "season"},
	{MatchEpisode, "episode"},
	{MatchTitle, "title"},
	{MatchYear, "year"},
	{MatchReleaseGroup, "release_group"},
	{MatchResolution, "resolution"},
	{MatchVideoCodec, "video_codec"},
	{MatchAudioCodec, "audio_codec"},
}

func (m Match) String() string {
	for _, entry := range matchNames {
		if entry.match == m {
			return entry.name
		}
	}
	return "match(" + strconv.Itoa(int(m)) + ")"
}

// MatchSet is a set of Match values.
type MatchSet uint16

// NewMatchSet builds a set from individual matches.
func NewMatchSet(matches ...Match) MatchSet {
	var set MatchSet
	for _, m := range matches {
		set = set.With(m)
	}
	return set
}

// Has reports whether m is in the set.
func (s MatchSet) Has(m Match) bool { return s&MatchSet(m) != 0 }

// With returns the set with m added.
func (s MatchSet) With(m Match) MatchSet { return s | MatchSet(m) }

// Without returns the set with every given match removed.
func (s MatchSet) Without(matches ...Match) MatchSet {
	for _, m := range matches {
		s &^= MatchSet(m)
	}
	return s
}

// Names lists the set members in a stable order, for logging.
func (s MatchSet) Names() []string {
	names := make([]string, 0, len(matchNames))
	for _, entry := range matchNames {
		if s.Has(entry.match) {
			names = append(names, entry.name)
		}
	}
	return names
}

func (s MatchSet) String() string {
	return "{" + strings.Join(s.Names(), ",") + "}"
}

// ComputeMatches compares a candidate with the video it was found for. A video
// attribute that was never determined never matches.
func ComputeMatches(v video.Identity, c Candidate) MatchSet {
	var set MatchSet

	for algorithm, digest := range c.Hashes {
		if digest != "" && strings.EqualFold(v.Hash(algorithm), digest) {
			set = set.With(MatchHash)
			break
		}
	}
	if v.IsEpisode() {
		if seriesMatches(v.Series, c.Series) {
			set = set.With(MatchSeries)
		}
		if v.Season > 0 && c.Season == v.Season {
			set = set.With(MatchSeason)
		}
		if c.Episode > 0 && v.HasEpisode(c.Episode) {
			set = set.With(MatchEpisode)
		}
		if v.TVDBID > 0 && c.TVDBID == v.TVDBID {
			set = set.With(MatchTVDBID)
		}
	}
	if titleMatches(v.Title, c.Title) {
		set = set.With(MatchTitle)
	}
	if v.Year > 0 && c.Year == v.Year {
		set = set.With(MatchYear)
	}
	if imdb := normalizeIMDB(v.IMDBID); imdb != "" && imdb == normalizeIMDB(c.IMDBID) {
		set = set.With(MatchIMDBID)
	}
	if releaseContains(c.Release, v.ReleaseGroup) {
		set = set.With(MatchReleaseGroup)
	}
	if releaseContains(c.Release, v.Resolution) {
		set = set.With(MatchResolution)
	}
	if releaseContains(c.Release, video.ReleaseAliases(v.VideoCodec)...) {
		set = set.With(MatchVideoCodec)
	}
	if releaseContains(c.Release, video.ReleaseAliases(v.AudioCodec)...) {
		set = set.With(MatchAudioCodec)
	}
	return set
}

// seriesMatches compares case-insensitively, then retries with any trailing
// year removed from both sides so "Doctor Who (2005)" matches "Doctor Who".
func seriesMatches(videoSeries, candidateSeries string) bool {
	if videoSeries == "" || candidateSeries == "" {
		return false
	}
	if strings.EqualFold(videoSeries, candidateSeries) {
		return true
	}
	left, _ := textutil.StripYear(videoSeries)
	right, _ := textutil.StripYear(candidateSeries)
	return sameFolded(left, right)
}

func titleMatches(videoTitle, candidateTitle string) bool {
	if videoTitle == "" || candidateTitle == "" {
		return false
	}
	if strings.EqualFold(videoTitle, candidateTitle) {
		return true
	}
	return sameFolded(videoTitle, candidateTitle)
}

func sameFolded(a, b string) bool {
	folded := textutil.Sanitize(a)
	return folded != "" && folded == textutil.Sanitize(b)
}

func releaseContains(release string, needles ...string) bool {
	if release == "" {
		return false
	}
	release = strings.ToLower(release)
	for _, needle := range needles {
		needle = strings.ToLower(strings.TrimSpace(needle))
		if needle != "" && strings.Contains(release, needle) {
			return true
		}
	}
	return false
}

func normalizeIMDB(id string) string {
	id = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(id)), "tt")
	return strings.TrimLeft(id, "0")
}
