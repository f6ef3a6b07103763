package subtitles

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrMalformed reports content that does not parse as SubRip.
var ErrMalformed = errors.New("malformed subtitle")

// strictLines is how far into a file a structural error invalidates it.
// Errors further down are tolerated: the head of the file parsed cleanly and
// the rest is usually trailing junk appended by uploaders.
const strictLines = 80

var timingPattern = regexp.MustCompile(`^\s*(\d+):(\d{1,2}):(\d{1,2})[,.](\d{1,3})\s*-->\s*(\d+):(\d{1,2}):(\d{1,2})[,.](\d{1,3})`)

// Cue is one timed text block.
type Cue struct {
	Index int
	Start time.Duration
	End   time.Duration
	Text  []string
}

// ParseError locates a malformed block.
type ParseError struct {
	Line   int
	Reason string
}

func (e ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

// ParseSRT reads cues leniently, collecting an error for every block it had
// to skip. Line numbers are 1-based.
func ParseSRT(text string) ([]Cue, []ParseError) {
	text = strings.TrimPrefix(text, "\ufeff")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	lines := strings.Split(text, "\n")

	var (
		cues   []Cue
		issues []ParseError
	)
	for i := 0; i < len(lines); {
		if strings.TrimSpace(lines[i]) == "" {
			i++
			continue
		}
		blockStart := i
		index := 0
		if n, err := strconv.Atoi(strings.TrimSpace(lines[i])); err == nil {
			index = n
			i++
		}
		if i >= len(lines) {
			issues = append(issues, ParseError{Line: blockStart + 1, Reason: "missing timing line"})
			break
		}
		start, end, err := parseTiming(lines[i])
		if err != nil {
			issues = append(issues, ParseError{Line: i + 1, Reason: err.Error()})
			i = skipBlock(lines, i)
			continue
		}
		i++
		var body []string
		for i < len(lines) && strings.TrimSpace(lines[i]) != "" {
			body = append(body, strings.TrimRight(lines[i], " \t"))
			i++
		}
		cues = append(cues, Cue{Index: index, Start: start, End: end, Text: body})
	}
	return cues, issues
}

func skipBlock(lines []string, i int) int {
	for i < len(lines) && strings.TrimSpace(lines[i]) != "" {
		i++
	}
	return i
}

func parseTiming(line string) (time.Duration, time.Duration, error) {
	m := timingPattern.FindStringSubmatch(line)
	if m == nil {
		return 0, 0, fmt.Errorf("invalid timing %q", strings.TrimSpace(line))
	}
	start := timestamp(m[1], m[2], m[3], m[4])
	end := timestamp(m[5], m[6], m[7], m[8])
	if end < start {
		return 0, 0, fmt.Errorf("cue ends before it starts: %q", strings.TrimSpace(line))
	}
	return start, end, nil
}

func timestamp(h, m, s, ms string) time.Duration {
	hours, _ := strconv.Atoi(h)
	minutes, _ := strconv.Atoi(m)
	seconds, _ := strconv.Atoi(s)
	// Fractions shorter than three digits are decimal fractions of a second.
	for len(ms) < 3 {
		ms += "0"
	}
	millis, _ := strconv.Atoi(ms)
	return time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second +
		time.Duration(millis)*time.Millisecond
}

// Validate reports whether data is a usable SubRip subtitle. The content must
// decode, yield at least one cue, and have no structural error in its first
// lines.
func Validate(data []byte) error {
	text, _, err := DecodeText(data, "")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	cues, issues := ParseSRT(text)
	if len(issues) > 0 && issues[0].Line <= strictLines {
		return fmt.Errorf("%w: %s", ErrMalformed, issues[0].Error())
	}
	if len(cues) == 0 {
		return fmt.Errorf("%w: no cues", ErrMalformed)
	}
	return nil
}
