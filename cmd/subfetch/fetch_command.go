package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"subfetch/internal/acquire"
	"subfetch/internal/cache"
	"subfetch/internal/config"
	"subfetch/internal/deps"
	"subfetch/internal/language"
	"subfetch/internal/logging"
	"subfetch/internal/providers"
	"subfetch/internal/services"
	"subfetch/internal/subtitles"
)

// Exit statuses understood by NZBGet-style post-processing hosts.
const (
	exitCodeSuccess = 93
	exitCodeNeutral = 95
)

// batchFlags override the [subtitles] section for one run.
type batchFlags struct {
	languages      []string
	fetchMode      string
	searchMode     string
	minScore       int
	single         bool
	overwrite      bool
	ignoreEmbedded bool
	tidy           bool
	forceEncoding  string
	workers        int
	xrefDirs       []string
	exitCode       bool
}

func (f *batchFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringSliceVarP(&f.languages, "language", "l", nil, "Subtitle languages (ISO 639-1 or 639-2), repeatable")
	flags.StringVarP(&f.fetchMode, "fetch-mode", "m", "", "ImpairedOnly, StandardOnly, BestScore, ImpairedFirst, or StandardFirst")
	flags.StringVar(&f.searchMode, "search-mode", "", "basic or advanced (advanced hashes videos and inspects embedded subtitles)")
	flags.IntVar(&f.minScore, "min-score", 0, "Ignore candidates scoring below this value")
	flags.BoolVarP(&f.single, "single", "s", false, "Write one {video}.srt and stop after the first subtitle")
	flags.BoolVarP(&f.overwrite, "overwrite", "f", false, "Replace subtitles already next to the video")
	flags.BoolVar(&f.ignoreEmbedded, "ignore-embedded", false, "Fetch languages even when the container already carries them")
	flags.BoolVar(&f.tidy, "tidy", false, "Normalize downloaded subtitles before writing them")
	flags.StringVar(&f.forceEncoding, "force-encoding", "", "Re-encode subtitles to this character set")
	flags.IntVarP(&f.workers, "workers", "w", 0, "Videos processed concurrently")
	flags.StringSliceVar(&f.xrefDirs, "xref", nil, "Directory of loose subtitles to match before querying providers, repeatable")
	flags.BoolVar(&f.exitCode, "exit-code", false, "Exit 93 when a subtitle was placed and 95 otherwise")
}

func (f *batchFlags) apply(cmd *cobra.Command, opts *acquire.Options) error {
	flags := cmd.Flags()
	if flags.Changed("language") {
		langs := make([]string, 0, len(f.languages))
		for _, lang := range f.languages {
			code := language.ToISO2(lang)
			if code == "" {
				return fmt.Errorf("--language: unrecognized language %q", lang)
			}
			langs = append(langs, code)
		}
		opts.Languages = language.NormalizeList(langs)
	}
	if flags.Changed("fetch-mode") {
		mode, err := subtitles.ParseFetchMode(f.fetchMode)
		if err != nil {
			return fmt.Errorf("--fetch-mode: %w", err)
		}
		opts.Mode = mode
	}
	if flags.Changed("search-mode") {
		switch strings.ToLower(strings.TrimSpace(f.searchMode)) {
		case config.SearchModeBasic:
			opts.Advanced = false
		case config.SearchModeAdvanced:
			opts.Advanced = true
		default:
			return fmt.Errorf("--search-mode: unsupported value %q (use basic or advanced)", f.searchMode)
		}
	}
	if flags.Changed("min-score") {
		opts.MinScore = max(f.minScore, 0)
	}
	if flags.Changed("single") {
		opts.Single = f.single
	}
	if flags.Changed("overwrite") {
		opts.Overwrite = f.overwrite
	}
	if flags.Changed("ignore-embedded") {
		opts.IgnoreEmbedded = f.ignoreEmbedded
	}
	if flags.Changed("tidy") {
		opts.Tidy = f.tidy
	}
	if flags.Changed("force-encoding") {
		opts.ForceEncoding = strings.TrimSpace(f.forceEncoding)
	}
	if flags.Changed("workers") {
		if f.workers < 1 || f.workers > 16 {
			return fmt.Errorf("--workers must be between 1 and 16")
		}
		opts.Workers = f.workers
	}
	if flags.Changed("xref") {
		dirs := make([]string, 0, len(f.xrefDirs))
		for _, dir := range f.xrefDirs {
			expanded, err := config.ExpandPath(strings.TrimSpace(dir))
			if err != nil {
				return fmt.Errorf("--xref: %w", err)
			}
			dirs = append(dirs, expanded)
		}
		opts.XRefDirs = dirs
	}
	return nil
}

func newFetchCommand(sess *session) *cobra.Command {
	var flags batchFlags
	cmd := &cobra.Command{
		Use:   "fetch <path>...",
		Short: "Download subtitles for video files or directories",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, sess, &flags, args, false)
		},
	}
	flags.register(cmd)
	return cmd
}

func newScanCommand(sess *session) *cobra.Command {
	var flags batchFlags
	cmd := &cobra.Command{
		Use:   "scan [dir]...",
		Short: "Download subtitles for recently modified videos in the scan directories",
		Long: "Scan walks the given directories, or paths.scan_dirs when none are given, " +
			"and only considers videos modified within subtitles.max_age_hours.",
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := args
			if len(paths) == 0 {
				cfg, err := sess.config()
				if err != nil {
					return err
				}
				paths = cfg.Paths.ScanDirs
			}
			if len(paths) == 0 {
				return errors.New("no scan directories: pass directories or set paths.scan_dirs")
			}
			return runBatch(cmd, sess, &flags, paths, true)
		},
	}
	flags.register(cmd)
	return cmd
}

func runBatch(cmd *cobra.Command, sess *session, flags *batchFlags, paths []string, scan bool) error {
	cfg, err := sess.config()
	if err != nil {
		return err
	}
	opts, err := acquire.OptionsFromConfig(cfg)
	if err != nil {
		return err
	}
	if !scan {
		opts.MaxAge = 0
	}
	if err := flags.apply(cmd, &opts); err != nil {
		return err
	}

	logger, err := sess.logger()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	runCtx := services.WithRequestID(cmd.Context(), uuid.NewString())
	logger = logging.WithContext(runCtx, logger)

	if opts.Advanced {
		for _, missing := range deps.Missing(deps.CheckBinaries(deps.Requirements(cfg))) {
			logging.WarnEvent(logger, "required program unavailable", "dependency_missing",
				logging.String("dependency", missing.Name),
				logging.String("detail", missing.Detail),
				logging.String(logging.FieldErrorHint, "install it or set paths.ffprobe, or use --search-mode basic"),
				logging.String(logging.FieldImpact, "embedded subtitles are not detected"),
			)
		}
	}

	store := cache.Open(runCtx, cfg, logger)
	defer store.Close()

	acq := acquire.New(opts, acquire.Dependencies{
		Settings: providers.Settings{Config: cfg.Providers, Version: version},
		Cache:    store,
		Probe:    acquire.FFprobe(cfg.FFprobeBinary()),
		Logger:   logger,
	})
	summary, err := acq.Run(runCtx, paths)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("fetch subtitles: %w", err)
	}

	printSummary(cmd.OutOrStdout(), summary)
	if flags.exitCode {
		if summary.Outcome() == acquire.OutcomeSuccess {
			return &exitError{code: exitCodeSuccess}
		}
		return &exitError{code: exitCodeNeutral}
	}
	return nil
}

func printSummary(out io.Writer, summary acquire.Summary) {
	if len(summary.Results) == 0 {
		fmt.Fprintln(out, "No videos to process")
		return
	}
	rows := make([][]string, 0, len(summary.Results))
	for _, result := range summary.Results {
		name := filepath.Base(result.Video)
		switch {
		case result.Err != nil:
			rows = append(rows, []string{name, "-", "-", "", "error: " + services.FailureKind(result.Err)})
		case len(result.Placements) == 0 && result.Skipped != "":
			rows = append(rows, []string{name, "-", "-", "", result.Skipped})
		case len(result.Placements) == 0:
			rows = append(rows, []string{name, "-", "-", "", "no subtitle found"})
		}
		for _, placement := range result.Placements {
			rows = append(rows, []string{
				name,
				placement.Language,
				placement.Provider,
				strconv.Itoa(placement.Score),
				filepath.Base(placement.Path),
			})
		}
	}
	cols := columns("Video", "Language", "Provider", "Score", "Result")
	cols[3].numeric = true
	fmt.Fprintln(out, renderTable(cols, rows))
	fmt.Fprintf(out, "Placed %d subtitle(s) for %d video(s): %s\n", summary.Placed(), len(summary.Results), summary.Outcome())
}
