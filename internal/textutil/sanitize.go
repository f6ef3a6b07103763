package textutil

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/mozillazg/go-unidecode"
)

var (
	// trailingYearPattern matches a title ending with a year, optionally parenthesized.
	trailingYearPattern = regexp.MustCompile(`^(.+)\s+\(?([123][0-9]{3})\)?\s*$`)
	// punctuationPattern matches runs of characters replaced by a single space.
	punctuationPattern = regexp.MustCompile(`[^a-z0-9']+`)
)

// Sanitize folds a title into a comparison-friendly form: transliterated to
// ASCII, lowercased, punctuation collapsed to single spaces, apostrophes removed.
func Sanitize(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	value = strings.ToLower(unidecode.Unidecode(value))
	value = punctuationPattern.ReplaceAllString(value, " ")
	value = strings.ReplaceAll(value, "'", "")
	return strings.Join(strings.Fields(value), " ")
}

// StripYear removes a trailing year such as "Title (2010)" or "Title 2010".
// The second return value is the year, or 0 when none was present.
func StripYear(value string) (string, int) {
	match := trailingYearPattern.FindStringSubmatch(strings.TrimSpace(value))
	if match == nil {
		return strings.TrimSpace(value), 0
	}
	year, err := strconv.Atoi(match[2])
	if err != nil {
		return strings.TrimSpace(value), 0
	}
	return strings.TrimSpace(match[1]), year
}
