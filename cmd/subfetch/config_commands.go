package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"subfetch/internal/config"
	"subfetch/internal/deps"
)

func newConfigCommand(sess *session) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}
	configCmd.AddCommand(newConfigInitCommand(), newConfigValidateCommand(sess))
	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var (
		targetPath string
		overwrite  bool
	)
	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: skipConfigLoad,
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := initTarget(targetPath)
			if err != nil {
				return err
			}
			if !overwrite {
				_, err := os.Stat(target)
				switch {
				case err == nil:
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				case !errors.Is(err, fs.ErrNotExist):
					return fmt.Errorf("check config path: %w", err)
				}
			}
			if err := config.CreateSample(target); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Set providers.opensubtitles.api_key (or export OPENSUBTITLES_API_KEY) to enable OpenSubtitles.")
			return nil
		},
	}
	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

// initTarget expands path, or returns the default location when it is blank.
func initTarget(path string) (string, error) {
	if path = strings.TrimSpace(path); path == "" {
		target, err := config.DefaultConfigPath()
		if err != nil {
			return "", fmt.Errorf("determine default config path: %w", err)
		}
		return target, nil
	}
	target, err := config.ExpandPath(path)
	if err != nil {
		return "", fmt.Errorf("resolve config path: %w", err)
	}
	return target, nil
}

func newConfigValidateCommand(sess *session) *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Validate the configuration and report what it enables",
		Annotations: skipConfigLoad,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := config.Load(sess.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", path)
			if !exists {
				fmt.Fprintln(out, "Config file did not exist; defaults were used")
			}
			describeConfig(out, cfg)
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

func describeConfig(out io.Writer, cfg *config.Config) {
	fmt.Fprintf(out, "Languages: %s\n", strings.Join(cfg.Subtitles.Languages, ", "))

	cache := cfg.Cache.Backend
	switch cache {
	case config.CacheBackendSQLite:
		cache += " (" + filepath.Join(cfg.Paths.CacheDir, "cache.db") + ")"
	case config.CacheBackendRedis:
		cache += fmt.Sprintf(" (%s db %d)", cfg.Cache.RedisAddr, cfg.Cache.RedisDB)
	}
	fmt.Fprintf(out, "Cache: %s\n", cache)

	detection := "no"
	if cfg.AdvancedSearch() {
		detection = "yes"
	}
	fmt.Fprintf(out, "Embedded subtitle detection: %s\n", detection)

	for _, status := range deps.CheckBinaries(deps.Requirements(cfg)) {
		state := "available"
		switch {
		case status.Available:
		case status.Optional:
			state = "missing (optional)"
		default:
			state = "missing"
		}
		fmt.Fprintf(out, "Dependency %s: %s (%s)\n", status.Name, state, status.Detail)
	}
}
