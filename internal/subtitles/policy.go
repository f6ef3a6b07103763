package subtitles

import (
	"fmt"
	"strings"
)

// FetchMode selects how hearing-impaired subtitles are treated.
type FetchMode int

const (
	BestScore FetchMode = iota
	ImpairedOnly
	StandardOnly
	ImpairedFirst
	StandardFirst
)

// DefaultHIAdjust is the score shift applied by ImpairedFirst and StandardFirst.
const DefaultHIAdjust = 3

var fetchModeNames = map[FetchMode]string{
	BestScore:     "BestScore",
	ImpairedOnly:  "ImpairedOnly",
	StandardOnly:  "StandardOnly",
	ImpairedFirst: "ImpairedFirst",
	StandardFirst: "StandardFirst",
}

func (m FetchMode) String() string {
	if name, ok := fetchModeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("FetchMode(%d)", int(m))
}

// ParseFetchMode accepts the mode names case-insensitively, with or without
// separators ("standard-first", "StandardFirst", "standard_first").
func ParseFetchMode(value string) (FetchMode, error) {
	var b strings.Builder
	for _, r := range strings.ToLower(value) {
		if r >= 'a' && r <= 'z' {
			b.WriteRune(r)
		}
	}
	compact := b.String()
	if compact == "" {
		return BestScore, nil
	}
	for mode, name := range fetchModeNames {
		if strings.ToLower(name) == compact {
			return mode, nil
		}
	}
	return BestScore, fmt.Errorf("unknown fetch mode %q", value)
}

// Policy is the effect of a fetch mode on candidate selection.
type Policy struct {
	// Filter, when set, keeps only candidates whose hearing-impaired flag equals *Filter.
	Filter *bool
	// Adjust is added to the score of hearing-impaired candidates.
	Adjust int
}

// Policy resolves the mode into a hard filter or a score adjustment of magnitude n.
func (m FetchMode) Policy(n int) Policy {
	if n < 0 {
		n = -n
	}
	switch m {
	case ImpairedOnly:
		v := true
		return Policy{Filter: &v}
	case StandardOnly:
		v := false
		return Policy{Filter: &v}
	case ImpairedFirst:
		return Policy{Adjust: n}
	case StandardFirst:
		return Policy{Adjust: -n}
	default:
		return Policy{}
	}
}

// Allows reports whether the candidate survives the policy's filter.
func (p Policy) Allows(c Candidate) bool {
	return p.Filter == nil || c.HearingImpaired == *p.Filter
}
