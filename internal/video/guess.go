package video

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"subfetch/internal/textutil"
)

// ErrGuessFailure reports a file name from which no movie or episode could be derived.
var ErrGuessFailure = errors.New("unable to guess video")

var (
	episodePattern     = regexp.MustCompile(`(?i)(?:^|[^a-z0-9])s(\d{1,4})[ ._-]?e(\d{1,4})((?:[ ._-]?-?e\d{1,4})*)`)
	crossPattern       = regexp.MustCompile(`(?i)(?:^|[^a-z0-9])(\d{1,2})x(\d{2,3})(?:[^a-z0-9]|$)`)
	extraEpisodes      = regexp.MustCompile(`(?i)e(\d{1,4})`)
	digitRuns          = regexp.MustCompile(`\d+`)
	resolutionPattern  = regexp.MustCompile(`(?i)(?:^|[^a-z0-9])(\d{3,4})([pi])(?:[^a-z0-9]|$)`)
	uhdPattern         = regexp.MustCompile(`(?i)(?:^|[^a-z0-9])(4k|uhd)(?:[^a-z0-9]|$)`)
	imdbPattern        = regexp.MustCompile(`(?:^|[^a-z0-9])(tt\d{7,8})(?:[^0-9]|$)`)
	releaseGroupSuffix = regexp.MustCompile(`-([A-Za-z0-9]+)(?:\[[^\]]*\])?$`)
	seasonDirPattern   = regexp.MustCompile(`(?i)^(?:season|series|staffel|saison|s)[ ._-]*\d+$`)
	obfuscatedPattern  = regexp.MustCompile(`^(?:[a-fA-F0-9]{16,}|[A-Za-z0-9]{24,}|[a-z0-9-]{32,})$`)
)

// Hints carries series names across the files of one batch so an episode named
// only "S01E02" inherits the series of its siblings. Safe for concurrent use.
type Hints struct {
	mu     sync.Mutex
	series map[string]string
}

// NewHints returns empty batch hints.
func NewHints() *Hints {
	return &Hints{series: make(map[string]string)}
}

func (h *Hints) seriesFor(dir string) string {
	if h == nil {
		return ""
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.series[dir]
}

func (h *Hints) remember(dir, series string) {
	if h == nil || series == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.series[dir]; !ok {
		h.series[dir] = series
	}
}

// Guess derives an Identity from a video path. When the file name carries no
// usable information (an obfuscated download name, for example) the parent
// directory name is parsed instead. hints may be nil.
func Guess(path string, hints *Hints) (Identity, error) {
	dir := filepath.Dir(path)
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	id, ok := guessName(base)
	if obfuscatedPattern.MatchString(base) {
		ok = false
	}
	if parent := filepath.Base(dir); !ok && parent != "." && parent != string(filepath.Separator) {
		id, ok = guessName(parent)
	}
	if !ok {
		return Identity{}, fmt.Errorf("%w: %s", ErrGuessFailure, filepath.Base(path))
	}
	id.Name = path

	if id.Kind == KindEpisode {
		if id.Series == "" {
			id.Series = hints.seriesFor(dir)
		}
		if id.Series == "" {
			id.Series = seriesFromDirectory(dir)
		}
		if id.Series == "" {
			return Identity{}, fmt.Errorf("%w: no series name for %s", ErrGuessFailure, filepath.Base(path))
		}
		hints.remember(dir, id.Series)
	}
	return id, nil
}

func seriesFromDirectory(dir string) string {
	name := filepath.Base(dir)
	if seasonDirPattern.MatchString(name) {
		name = filepath.Base(filepath.Dir(dir))
	}
	if name == "." || name == string(filepath.Separator) || obfuscatedPattern.MatchString(name) {
		return ""
	}
	if loc := episodePattern.FindStringIndex(name); loc != nil {
		name = name[:loc[0]]
	}
	series, _ := textutil.StripYear(cleanTitle(name))
	return series
}

func guessName(name string) (Identity, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Identity{}, false
	}
	var id Identity
	titleEnd := len(name)
	tailStart := -1

	if m := episodePattern.FindStringSubmatchIndex(name); m != nil {
		id.Kind = KindEpisode
		id.Season, _ = strconv.Atoi(name[m[2]:m[3]])
		id.Episode, _ = strconv.Atoi(name[m[4]:m[5]])
		id.Episodes = []int{id.Episode}
		for _, extra := range extraEpisodes.FindAllStringSubmatch(name[m[6]:m[7]], -1) {
			if n, err := strconv.Atoi(extra[1]); err == nil && n != id.Episodes[len(id.Episodes)-1] {
				id.Episodes = append(id.Episodes, n)
			}
		}
		titleEnd, tailStart = m[2]-1, m[1]
	} else if m := crossPattern.FindStringSubmatchIndex(name); m != nil {
		id.Kind = KindEpisode
		id.Season, _ = strconv.Atoi(name[m[2]:m[3]])
		id.Episode, _ = strconv.Atoi(name[m[4]:m[5]])
		id.Episodes = []int{id.Episode}
		titleEnd, tailStart = m[2], m[5]
	}

	techStart := firstTechToken(name, max(tailStart, 0))

	if id.Kind == KindEpisode {
		series, year := textutil.StripYear(cleanTitle(name[:titleEnd]))
		id.Series, id.Year = series, year
		end := techStart
		if end < 0 {
			end = len(name)
		}
		if group := releaseGroupSuffix.FindStringIndex(name); group != nil && group[0] >= tailStart && group[0] < end {
			end = group[0]
		}
		if end > tailStart {
			id.Title = cleanTitle(name[tailStart:end])
		}
	} else {
		id.Kind = KindMovie
		if year, at := lastYear(name); year > 0 {
			id.Year, titleEnd = year, at
		} else if techStart >= 0 {
			titleEnd = techStart
		}
		id.Title = cleanTitle(name[:titleEnd])
		if id.Title == "" {
			return Identity{}, false
		}
	}

	id.Resolution = resolution(name)
	id.VideoCodec, _ = videoCodecs.find(name)
	id.AudioCodec, _ = audioCodecs.find(name)
	if m := imdbPattern.FindStringSubmatch(name); m != nil {
		id.IMDBID = m[1]
	}
	if m := releaseGroupSuffix.FindStringSubmatchIndex(name); m != nil && m[0] >= max(titleEnd, tailStart) {
		group := name[m[2]:m[3]]
		if _, tech := videoCodecs.lookup[strings.ToLower(group)]; !tech {
			id.ReleaseGroup = group
		}
	}
	return id, true
}

// lastYear returns the last plausible year that does not open the name, so
// "2001 A Space Odyssey 1968" keeps its leading number in the title.
func lastYear(name string) (int, int) {
	runs := digitRuns.FindAllStringIndex(name, -1)
	for i := len(runs) - 1; i >= 0; i-- {
		start, end := runs[i][0], runs[i][1]
		if start == 0 || end-start != 4 {
			continue
		}
		if prefix := name[start : start+2]; prefix != "19" && prefix != "20" {
			continue
		}
		year, err := strconv.Atoi(name[start:end])
		if err == nil {
			return year, start
		}
	}
	return 0, -1
}

func firstTechToken(name string, from int) int {
	first := -1
	consider := func(at int) {
		if at >= 0 && (first < 0 || at < first) {
			first = at
		}
	}
	tail := name[from:]
	for _, table := range []*tokenTable{videoCodecs, audioCodecs, sources, flags} {
		if _, at := table.find(tail); at >= 0 {
			consider(from + at)
		}
	}
	if m := resolutionPattern.FindStringSubmatchIndex(tail); m != nil {
		consider(from + m[2])
	}
	if m := uhdPattern.FindStringSubmatchIndex(tail); m != nil {
		consider(from + m[2])
	}
	return first
}

func resolution(name string) string {
	if m := resolutionPattern.FindStringSubmatch(name); m != nil {
		switch m[1] {
		case "360", "480", "576", "720", "1080", "1440", "2160", "4320":
			return m[1] + strings.ToLower(m[2])
		}
	}
	if uhdPattern.MatchString(name) {
		return "2160p"
	}
	return ""
}

func cleanTitle(value string) string {
	value = strings.Map(func(r rune) rune {
		if r == '.' || r == '_' {
			return ' '
		}
		return r
	}, value)
	value = strings.Join(strings.Fields(value), " ")
	return strings.Trim(value, " -[](){}")
}
