package textutil

import "strings"

// articles carry no identifying weight when comparing titles.
var articles = map[string]bool{"the": true, "a": true, "an": true, "and": true, "of": true}

// Tokenize sanitizes text and splits it into title words. Articles and single
// letters are dropped.
func Tokenize(text string) []string {
	fields := strings.Fields(Sanitize(text))
	words := fields[:0]
	for _, word := range fields {
		if len(word) > 1 && !articles[word] {
			words = append(words, word)
		}
	}
	return words
}

// Similarity scores how alike two titles are, from 0 (no shared word) to 1
// (same words, ignoring case, punctuation and articles). It is the Dice
// coefficient over the word multisets, so repeated words count once per
// occurrence and the result is symmetric.
func Similarity(a, b string) float64 {
	left, right := Tokenize(a), Tokenize(b)
	if len(left) == 0 || len(right) == 0 {
		return 0
	}
	counts := make(map[string]int, len(left))
	for _, word := range left {
		counts[word]++
	}
	shared := 0
	for _, word := range right {
		if counts[word] > 0 {
			counts[word]--
			shared++
		}
	}
	return 2 * float64(shared) / float64(len(left)+len(right))
}
