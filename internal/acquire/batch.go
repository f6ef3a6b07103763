package acquire

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/sourcegraph/conc/pool"

	"subfetch/internal/logging"
	"subfetch/internal/services"
	"subfetch/internal/video"
)

// Outcome summarizes a batch for the host.
type Outcome int

const (
	// OutcomeNeutral means nothing was fetched; nothing was lost either.
	OutcomeNeutral Outcome = iota
	// OutcomeSuccess means at least one subtitle was placed.
	OutcomeSuccess
)

func (o Outcome) String() string {
	if o == OutcomeSuccess {
		return "success"
	}
	return "neutral"
}

// Summary collects the per-video results of a batch in input order.
type Summary struct {
	Results []VideoResult
}

// Placed counts the subtitles placed across the batch.
func (s Summary) Placed() int {
	total := 0
	for _, r := range s.Results {
		total += len(r.Placements)
	}
	return total
}

// Outcome is success when any subtitle was placed.
func (s Summary) Outcome() Outcome {
	if s.Placed() > 0 {
		return OutcomeSuccess
	}
	return OutcomeNeutral
}

// Collect expands paths into the video files of a batch: directories are
// walked recursively, samples and files with other extensions are skipped,
// as are videos under the minimum size or older than the maximum age.
func (a *Acquirer) Collect(ctx context.Context, paths []string) ([]string, error) {
	now := time.Now()
	var videos []string
	consider := func(path string, info fs.FileInfo) {
		switch {
		case !video.IsVideoFile(path, a.opts.VideoExtensions):
		case video.IsSample(path):
			a.logger.Debug("skipping sample", logging.String(logging.FieldVideo, path))
		case info.Size() < a.opts.MinVideoSize:
			a.logger.Debug("skipping small video", logging.String(logging.FieldVideo, path), logging.Int64("size", info.Size()))
		case a.opts.MaxAge > 0 && now.Sub(info.ModTime()) > a.opts.MaxAge:
			a.logger.Debug("skipping old video", logging.String(logging.FieldVideo, path))
		default:
			videos = append(videos, path)
		}
	}
	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, services.Wrap(services.ErrNotFound, "collect", "stat", fmt.Sprintf("cannot read %s", root), err)
		}
		if !info.IsDir() {
			consider(root, info)
			continue
		}
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if errors.Is(err, fs.ErrPermission) {
					a.logger.Debug("skipping unreadable path", logging.String("path", path))
					return nil
				}
				return err
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if d.IsDir() {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return nil
			}
			consider(path, info)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", root, err)
		}
	}
	slices.Sort(videos)
	return slices.Compact(videos), nil
}

// Run acquires subtitles for every video under paths. Videos are processed
// by Options.Workers workers; results keep input order.
func (a *Acquirer) Run(ctx context.Context, paths []string) (Summary, error) {
	videos, err := a.Collect(ctx, paths)
	if err != nil {
		return Summary{}, err
	}
	batch, err := a.NewBatch(ctx)
	if err != nil {
		return Summary{}, err
	}
	defer batch.Close(context.WithoutCancel(ctx))

	a.logger.Info("batch started",
		logging.String(logging.FieldEventType, "batch_start"),
		logging.Int("videos", len(videos)),
		logging.Strings("languages", a.opts.Languages),
		logging.Int("workers", a.opts.Workers),
	)
	start := time.Now()
	results := make([]VideoResult, len(videos))
	p := pool.New().WithMaxGoroutines(a.opts.Workers)
	for i, path := range videos {
		p.Go(func() {
			results[i] = batch.process(ctx, path)
		})
	}
	p.Wait()

	summary := Summary{Results: results}
	a.logger.Info("batch finished",
		logging.String(logging.FieldEventType, "batch_complete"),
		logging.Int("videos", len(videos)),
		logging.Int("placed", summary.Placed()),
		logging.String("outcome", summary.Outcome().String()),
		logging.Duration("elapsed", time.Since(start)),
	)
	return summary, ctx.Err()
}

func (b *Batch) process(ctx context.Context, path string) VideoResult {
	if err := ctx.Err(); err != nil {
		return VideoResult{Video: path, Err: err}
	}
	v, err := b.Identify(path)
	if err != nil {
		if errors.Is(err, video.ErrGuessFailure) {
			logging.WarnEvent(b.acq.logger, "skipping undetectable video", "guess_failed",
				logging.String(logging.FieldVideo, path),
				logging.Error(err),
			)
			return VideoResult{Video: path, Skipped: "undetectable video"}
		}
		err = services.Wrap(services.ErrValidation, "identify", "read video", "cannot identify video", err)
		logging.ErrorEvent(b.acq.logger, "video identification failed", "identify_failed",
			logging.String(logging.FieldVideo, path),
			logging.Error(err),
		)
		return VideoResult{Video: path, Err: err}
	}
	return b.Acquire(ctx, v)
}
