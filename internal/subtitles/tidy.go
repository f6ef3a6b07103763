package subtitles

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// creditPattern matches cue text that advertises a site or credits an
// uploader rather than carrying dialogue.
var creditPattern = regexp.MustCompile(`(?i)` + strings.Join([]string{
	`opensubtitles`,
	`addic7ed`,
	`\bsubscene\b`,
	`\by(ts|ify)\b`,
	`subtitles? by`,
	`synced? (and|&) correct(ed|ions)`,
	`advertise your product`,
	`https?://`,
	`\bwww\.`,
}, "|"))

// TidyStats reports what Tidy changed.
type TidyStats struct {
	BrokenLines int
	RemovedCues int
	// Unparsed counts blocks dropped because they had no valid timing.
	Unparsed int
}

// FixLineEndings collapses the doubled carriage returns ("\r\r\n") some
// uploads carry into plain CRLF line endings.
func FixLineEndings(raw []byte) ([]byte, int) {
	count := bytes.Count(raw, []byte("\r\r\n"))
	if count == 0 {
		return raw, 0
	}
	return bytes.ReplaceAll(raw, []byte("\r\r\n"), []byte("\r\n")), count
}

// Tidy rewrites a subtitle as clean SubRip: line endings repaired, credit and
// empty cues dropped, cues renumbered from 1, trailing blanks trimmed. The
// output keeps CRLF line endings when the input used them.
func Tidy(raw []byte) ([]byte, TidyStats) {
	var stats TidyStats
	raw, stats.BrokenLines = FixLineEndings(raw)
	cues, issues := ParseSRT(string(raw))
	stats.Unparsed = len(issues)

	kept := cues[:0]
	for _, cue := range cues {
		if isCredit(cue) {
			stats.RemovedCues++
			continue
		}
		kept = append(kept, cue)
	}

	newline := "\n"
	if bytes.Contains(raw, []byte("\r\n")) {
		newline = "\r\n"
	}
	return FormatSRT(kept, newline), stats
}

func isCredit(cue Cue) bool {
	text := strings.TrimSpace(strings.Join(cue.Text, " "))
	return text == "" || creditPattern.MatchString(text)
}

// FormatSRT renders cues numbered from 1, separated by a blank line.
func FormatSRT(cues []Cue, newline string) []byte {
	var buf bytes.Buffer
	for i, cue := range cues {
		if i > 0 {
			buf.WriteString(newline)
		}
		fmt.Fprintf(&buf, "%d%s%s --> %s%s", i+1, newline, srtTime(cue.Start), srtTime(cue.End), newline)
		for _, line := range cue.Text {
			buf.WriteString(strings.TrimRight(line, " \t"))
			buf.WriteString(newline)
		}
	}
	return buf.Bytes()
}

func srtTime(d time.Duration) string {
	ms := d.Milliseconds()
	return fmt.Sprintf("%02d:%02d:%02d,%03d", ms/3_600_000, ms/60_000%60, ms/1000%60, ms%1000)
}
