package video

import (
	"regexp"
	"strings"
)

// tokenTable maps a canonical attribute value to the spellings found in release names.
type tokenTable struct {
	values  []string
	aliases map[string][]string
	pattern *regexp.Regexp
	lookup  map[string]string
}

func newTokenTable(entries [][]string) *tokenTable {
	t := &tokenTable{aliases: make(map[string][]string), lookup: make(map[string]string)}
	var alternatives []string
	for _, entry := range entries {
		canonical := entry[0]
		t.values = append(t.values, canonical)
		t.aliases[strings.ToLower(canonical)] = entry[1:]
		for _, alias := range entry[1:] {
			t.lookup[alias] = canonical
			alternatives = append(alternatives, regexp.QuoteMeta(alias))
		}
	}
	t.pattern = regexp.MustCompile(`(?i)(?:^|[^a-z0-9])(` + strings.Join(alternatives, "|") + `)(?:[^a-z0-9]|$)`)
	return t
}

// find returns the canonical value of the first token in name and its byte offset.
func (t *tokenTable) find(name string) (string, int) {
	loc := t.pattern.FindStringSubmatchIndex(name)
	if loc == nil {
		return "", -1
	}
	return t.lookup[strings.ToLower(name[loc[2]:loc[3]])], loc[2]
}

// Alternatives are ordered longest first so "dts-hd" wins over "dts".
var (
	videoCodecs = newTokenTable([][]string{
		{"H.265", "h.265", "h265", "x265", "hevc"},
		{"H.264", "h.264", "h264", "x264", "avc"},
		{"XviD", "xvid"},
		{"DivX", "divx"},
		{"MPEG-2", "mpeg-2", "mpeg2"},
		{"AV1", "av1"},
	})
	audioCodecs = newTokenTable([][]string{
		{"Dolby Digital Plus", "ddp5.1", "ddp2.0", "dd+", "ddp", "eac3", "e-ac-3"},
		{"Dolby Digital", "dd5.1", "dd2.0", "ac3", "ac-3"},
		{"Dolby TrueHD", "truehd"},
		{"Dolby Atmos", "atmos"},
		{"DTS-HD", "dts-hd", "dtshd"},
		{"DTS", "dts"},
		{"AAC", "aac2.0", "aac"},
		{"FLAC", "flac"},
		{"MP3", "mp3"},
		{"Opus", "opus"},
	})
	sources = newTokenTable([][]string{
		{"Blu-ray", "bluray", "blu-ray", "bdrip", "brrip", "bdremux", "remux"},
		{"Web", "web-dl", "webdl", "webrip", "web"},
		{"HDTV", "hdtv", "pdtv"},
		{"DVD", "dvdrip", "dvd"},
	})
	flags = newTokenTable([][]string{
		{"proper", "proper"},
		{"repack", "repack"},
		{"internal", "internal"},
		{"extended", "extended"},
		{"unrated", "unrated"},
		{"limited", "limited"},
		{"multi", "multi"},
		{"hdr", "hdr", "hdr10", "dv"},
		{"10bit", "10bit"},
	})
)

// ReleaseAliases returns the spellings a release name may use for a canonical
// video or audio codec value. Unknown values are returned as their own alias.
func ReleaseAliases(value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	key := strings.ToLower(value)
	for _, table := range []*tokenTable{videoCodecs, audioCodecs} {
		if aliases, ok := table.aliases[key]; ok {
			return aliases
		}
	}
	return []string{key}
}
