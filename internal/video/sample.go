package video

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
)

var samplePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^.*[-.]sample(\.[^.]*)?$`),
	regexp.MustCompile(`(?i)^sample-.*$`),
}

// IsSample reports whether the file name looks like a release sample clip.
func IsSample(path string) bool {
	name := filepath.Base(path)
	for _, pattern := range samplePatterns {
		if pattern.MatchString(name) {
			return true
		}
	}
	return false
}

// IsVideoFile reports whether path has one of the given extensions.
// Extensions are compared case-insensitively and include the leading dot.
func IsVideoFile(path string, extensions []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return false
	}
	return slices.Contains(extensions, ext)
}

// FromFile guesses the identity of path, records its size, and computes the
// requested content hashes.
func FromFile(path string, hints *Hints, algorithms ...string) (Identity, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Identity{}, fmt.Errorf("stat video: %w", err)
	}
	if info.IsDir() {
		return Identity{}, fmt.Errorf("%s is a directory", path)
	}
	id, err := Guess(path, hints)
	if err != nil {
		return Identity{}, err
	}
	id.Size = info.Size()
	if len(algorithms) == 0 {
		return id, nil
	}
	hashes, err := ComputeHashes(path, algorithms...)
	if err != nil {
		return Identity{}, err
	}
	return id.WithHashes(hashes), nil
}
