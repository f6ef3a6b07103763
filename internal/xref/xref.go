package xref

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"subfetch/internal/fileutil"
	"subfetch/internal/language"
	"subfetch/internal/logging"
	"subfetch/internal/textutil"
	"subfetch/internal/video"
)

const lockName = ".subfetch-xref.lock"

var entryPattern = regexp.MustCompile(`(?i)^(.*?)(\.[a-z]{2,3})?(\.(?:srt|sub|idx))$`)

// Entry is one subtitle file in a repository directory.
type Entry struct {
	Path string
	// Suffix is appended to the video base name when the entry is placed,
	// e.g. ".en.srt" or ".srt".
	Suffix   string
	Language string
	Identity video.Identity
}

// Repository holds the unclaimed entries of the configured directories.
// Safe for concurrent use.
type Repository struct {
	mu      sync.Mutex
	entries []Entry
	logger  *slog.Logger
}

// Scan lists the subtitle files directly inside dirs. Missing directories are
// logged and skipped; files whose names cannot be guessed are ignored.
func Scan(ctx context.Context, dirs []string, logger *slog.Logger) (*Repository, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	repo := &Repository{logger: logging.NewComponentLogger(logger, "xref")}
	for _, dir := range dirs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		items, err := os.ReadDir(dir)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				logging.WarnEvent(repo.logger, "xref directory missing", "xref_dir_missing",
					logging.String("dir", dir),
					logging.String(logging.FieldErrorHint, "check paths.xref_dirs"),
				)
				continue
			}
			return nil, fmt.Errorf("scan xref dir %s: %w", dir, err)
		}
		for _, item := range items {
			if item.IsDir() {
				continue
			}
			entry, ok := parseEntry(filepath.Join(dir, item.Name()))
			if !ok {
				repo.logger.Debug("ignoring undetectable xref file", logging.String("file", item.Name()))
				continue
			}
			repo.entries = append(repo.entries, entry)
		}
	}
	repo.logger.Debug("xref repository scanned", logging.Int("entries", len(repo.entries)))
	return repo, nil
}

func parseEntry(path string) (Entry, bool) {
	m := entryPattern.FindStringSubmatch(filepath.Base(path))
	if m == nil {
		return Entry{}, false
	}
	name, alpha, ext := m[1], m[2], m[3]
	lang := ""
	if alpha != "" {
		lang = language.ToISO2(alpha[1:])
		if lang == "" {
			// not a language code, so part of the name
			name += alpha
			alpha = ""
		}
	}
	// guess from the bare name so the directory never contributes
	id, err := video.Guess(name+".mkv", nil)
	if err != nil {
		return Entry{}, false
	}
	return Entry{
		Path:     path,
		Suffix:   alpha + ext,
		Language: lang,
		Identity: id,
	}, true
}

// Len returns the number of unclaimed entries.
func (r *Repository) Len() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Claim removes and returns every entry describing the same video as v.
func (r *Repository) Claim(v video.Identity) []Entry {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var claimed []Entry
	kept := r.entries[:0]
	for _, entry := range r.entries {
		if sameVideo(entry.Identity, v) {
			claimed = append(claimed, entry)
			continue
		}
		kept = append(kept, entry)
	}
	r.entries = kept
	return claimed
}

// sameVideo compares what a file name can tell about a video: series, season
// and episode for episodes, title and year for movies.
func sameVideo(a, b video.Identity) bool {
	if a.Kind != b.Kind {
		return false
	}
	if a.IsEpisode() {
		return a.Season == b.Season && a.Episode == b.Episode &&
			textutil.Sanitize(a.Series) == textutil.Sanitize(b.Series)
	}
	if a.Year != 0 && b.Year != 0 && a.Year != b.Year {
		return false
	}
	return a.Title != "" && textutil.Sanitize(a.Title) == textutil.Sanitize(b.Title)
}

// PlaceResult describes what Place did with an entry.
type PlaceResult int

const (
	Placed PlaceResult = iota
	// Exists means a subtitle is already at the destination.
	Exists
	// SamePath means the entry already sits at the destination.
	SamePath
	// Vanished means another process placed the entry first.
	Vanished
)

// Place moves entry next to the video as {base}{suffix}. An existing
// destination is left untouched. The entry's directory is locked so two
// processes sharing a repository never move the same file.
func (r *Repository) Place(ctx context.Context, entry Entry, v video.Identity) (string, PlaceResult, error) {
	dst := v.Basename() + entry.Suffix
	if samePath(entry.Path, dst) {
		return dst, SamePath, nil
	}
	if _, err := os.Stat(dst); err == nil {
		return dst, Exists, nil
	}

	lock := flock.New(filepath.Join(filepath.Dir(entry.Path), lockName))
	if _, err := lock.TryLockContext(ctx, 100*time.Millisecond); err != nil {
		return dst, Placed, fmt.Errorf("lock xref dir: %w", err)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			r.logger.Debug("xref unlock failed", logging.Error(err))
		}
	}()
	if _, err := os.Stat(entry.Path); errors.Is(err, fs.ErrNotExist) {
		return dst, Vanished, nil
	}
	if err := fileutil.MoveFile(entry.Path, dst); err != nil {
		return dst, Placed, fmt.Errorf("move %s: %w", filepath.Base(entry.Path), err)
	}
	return dst, Placed, nil
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return a == b
	}
	return absA == absB
}
