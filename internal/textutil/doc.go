// Package textutil provides text folding and similarity helpers used when
// comparing titles from file names against provider listings.
//
// Sanitize transliterates to ASCII (via go-unidecode), lowercases, and collapses
// punctuation so "Marvel's Agents of S.H.I.E.L.D." and "marvels agents of s h i e l d"
// compare equal. StripYear separates a trailing year from a title. Similarity
// ranks loosely matching titles when no exact match exists.
package textutil
