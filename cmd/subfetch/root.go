package main

import (
	"github.com/spf13/cobra"

	// Built-in providers register themselves with the default registry.
	_ "subfetch/internal/providers/addic7ed"
	_ "subfetch/internal/providers/opensubtitles"
	_ "subfetch/internal/providers/subscene"
	_ "subfetch/internal/providers/thesubdb"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

func newRootCommand() *cobra.Command {
	sess := &session{}

	rootCmd := &cobra.Command{
		Use:           "subfetch",
		Short:         "Find and download subtitles for video files",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := sess.config()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&sess.configPath, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&sess.logLevel, "log-level", "", "Override logging.level (debug, info, warn, error)")

	rootCmd.AddCommand(newFetchCommand(sess))
	rootCmd.AddCommand(newScanCommand(sess))
	rootCmd.AddCommand(newProvidersCommand(sess))
	rootCmd.AddCommand(newHashCommand())
	rootCmd.AddCommand(newGuessCommand())
	rootCmd.AddCommand(newCacheCommand(sess))
	rootCmd.AddCommand(newConfigCommand(sess))

	return rootCmd
}
