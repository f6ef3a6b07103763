package acquire

import (
	"slices"
	"sync"
)

// LanguageSet tracks the languages still wanted for one video. It only
// shrinks: languages leave when satisfied on disk, embedded, or fetched.
type LanguageSet struct {
	mu    sync.Mutex
	langs []string
}

// NewLanguageSet returns a set holding langs in order, without duplicates.
func NewLanguageSet(langs []string) *LanguageSet {
	set := &LanguageSet{}
	for _, lang := range langs {
		if lang != "" && !slices.Contains(set.langs, lang) {
			set.langs = append(set.langs, lang)
		}
	}
	return set
}

// Remove drops lang and reports whether it was outstanding.
func (s *LanguageSet) Remove(lang string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.Index(s.langs, lang)
	if i < 0 {
		return false
	}
	s.langs = slices.Delete(s.langs, i, i+1)
	return true
}

// Clear drops every language.
func (s *LanguageSet) Clear() {
	s.mu.Lock()
	s.langs = nil
	s.mu.Unlock()
}

// Has reports whether lang is outstanding.
func (s *LanguageSet) Has(lang string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Contains(s.langs, lang)
}

// Outstanding returns a copy of the remaining languages in request order.
func (s *LanguageSet) Outstanding() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.langs)
}

func (s *LanguageSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.langs)
}
