package subtitles

import (
	"fmt"
	"maps"
)

// Candidate is one provider's proposal for a video and language. Candidates
// are created from a search response and never modified afterwards.
type Candidate struct {
	Provider        string
	ID              string
	Language        string
	HearingImpaired bool

	Series  string
	Season  int
	Episode int
	Title   string
	Year    int
	Release string
	IMDBID  string
	TVDBID  int
	Hashes  map[string]string

	// FetchRef is provider-private download state (a link, file id, or referer).
	FetchRef string
	PageURL  string
}

// WithHashes returns a copy of c with its own hash map.
func (c Candidate) WithHashes(hashes map[string]string) Candidate {
	c.Hashes = maps.Clone(hashes)
	return c
}

// Key identifies the candidate across providers.
func (c Candidate) Key() string {
	return c.Provider + ":" + c.ID
}

func (c Candidate) String() string {
	hi := ""
	if c.HearingImpaired {
		hi = " hi"
	}
	return fmt.Sprintf("%s/%s [%s%s]", c.Provider, c.ID, c.Language, hi)
}
