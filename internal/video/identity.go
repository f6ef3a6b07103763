package video

import (
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"strings"
)

// Kind discriminates movies from episodes.
type Kind string

const (
	KindMovie   Kind = "movie"
	KindEpisode Kind = "episode"
)

// Identity is the best-known description of one video file. It is built once
// per file and not modified during an acquisition pass.
type Identity struct {
	Kind Kind

	// Name is the path of the video on disk.
	Name         string
	Size         int64
	Title        string
	Year         int
	Resolution   string
	VideoCodec   string
	AudioCodec   string
	ReleaseGroup string
	IMDBID       string
	Hashes       map[string]string

	// Episode-only fields.
	Series   string
	Season   int
	Episode  int
	Episodes []int
	TVDBID   int
}

// IsEpisode reports whether the identity describes an episode.
func (v Identity) IsEpisode() bool {
	return v.Kind == KindEpisode
}

// Hash returns the hex digest computed with the named algorithm, or "".
func (v Identity) Hash(algorithm string) string {
	if v.Hashes == nil {
		return ""
	}
	return v.Hashes[algorithm]
}

// WithHashes returns a copy of the identity carrying its own copy of hashes.
func (v Identity) WithHashes(hashes map[string]string) Identity {
	v.Hashes = maps.Clone(hashes)
	v.Episodes = slices.Clone(v.Episodes)
	return v
}

// HasEpisode reports whether n is one of the episodes contained in the file.
func (v Identity) HasEpisode(n int) bool {
	if n <= 0 {
		return false
	}
	if v.Episode == n {
		return true
	}
	return slices.Contains(v.Episodes, n)
}

// Basename returns the video path without its extension. Subtitle files are
// placed next to the video using this prefix.
func (v Identity) Basename() string {
	return strings.TrimSuffix(v.Name, filepath.Ext(v.Name))
}

// String renders a short human label such as "Show S01E02" or "Movie (2010)".
func (v Identity) String() string {
	switch v.Kind {
	case KindEpisode:
		label := fmt.Sprintf("%s S%02dE%02d", v.Series, v.Season, v.Episode)
		if len(v.Episodes) > 1 {
			for _, ep := range v.Episodes[1:] {
				label += fmt.Sprintf("E%02d", ep)
			}
		}
		return label
	default:
		if v.Year > 0 {
			return fmt.Sprintf("%s (%d)", v.Title, v.Year)
		}
		return v.Title
	}
}
