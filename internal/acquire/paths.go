package acquire

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"subfetch/internal/language"
	"subfetch/internal/video"
)

var subtitleExtensions = []string{".srt", ".sub", ".idx"}

// SubtitlePath is where a fetched subtitle for lang is written:
// {base}.srt in single mode, {base}.{alpha2}.srt otherwise. Languages without
// an alpha2 code use their alpha3 code.
func SubtitlePath(v video.Identity, lang string, single bool) string {
	if single {
		return v.Basename() + ".srt"
	}
	code := language.ToISO2(lang)
	if code == "" {
		code = language.ToISO3(lang)
	}
	return v.Basename() + "." + code + ".srt"
}

// existingSubtitles lists the subtitle files next to the video, lowercased
// with the video base name stripped: "", ".en", ".fre" and so on.
func existingSubtitles(v video.Identity) (map[string]bool, error) {
	dir := filepath.Dir(v.Name)
	base := strings.ToLower(filepath.Base(v.Basename()))
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	found := make(map[string]bool)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := strings.ToLower(entry.Name())
		ext := filepath.Ext(name)
		if !slices.Contains(subtitleExtensions, ext) || !strings.HasPrefix(name, base) {
			continue
		}
		found[strings.TrimSuffix(name[len(base):], ext)] = true
	}
	return found, nil
}

// satisfiedLanguages returns the languages of langs that already have a
// subtitle on disk, under any of the language's code forms. A subtitle with
// no language suffix satisfies every language.
func satisfiedLanguages(v video.Identity, langs []string) ([]string, error) {
	found, err := existingSubtitles(v)
	if err != nil {
		return nil, err
	}
	if found[""] {
		return langs, nil
	}
	var satisfied []string
	for _, lang := range langs {
		for _, form := range language.Forms(lang) {
			if found["."+form] {
				satisfied = append(satisfied, lang)
				break
			}
		}
	}
	return satisfied, nil
}
