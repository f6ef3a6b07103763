package main

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"subfetch/internal/logging"
	"subfetch/internal/providers"
	"subfetch/internal/video"
)

func newProvidersCommand(sess *session) *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List registered subtitle providers and whether they can run",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := sess.config()
			if err != nil {
				return err
			}
			registry := providers.DefaultRegistry()
			settings := providers.Settings{Config: cfg.Providers, Logger: logging.NewNop(), Version: version}

			var rows [][]string
			for _, name := range registry.Names() {
				row := []string{name, "", "", "", usedFor(name, cfg.Providers.Movie, cfg.Providers.TV)}
				provider, err := registry.New(name, settings)
				if err != nil {
					var cfgErr *providers.ConfigurationError
					if errors.As(err, &cfgErr) {
						row[3] = "not configured: " + cfgErr.Reason
					} else {
						row[3] = "error: " + err.Error()
					}
					rows = append(rows, row)
					continue
				}
				caps := provider.Capabilities()
				row[1] = kindsLabel(caps.Kinds)
				row[2] = languagesLabel(caps.Languages)
				row[3] = "ready"
				if caps.RequiredHash != "" {
					row[3] = "ready (needs " + caps.RequiredHash + " hash)"
				}
				rows = append(rows, row)
			}

			out := cmd.OutOrStdout()
			if len(rows) == 0 {
				fmt.Fprintln(out, "No providers registered")
				return nil
			}
			fmt.Fprintln(out, renderTable(columns("Provider", "Kinds", "Languages", "Status", "Used For"), rows))
			return nil
		},
	}
}

func usedFor(name string, movie, tv []string) string {
	var uses []string
	if slices.Contains(movie, name) {
		uses = append(uses, "movies")
	}
	if slices.Contains(tv, name) {
		uses = append(uses, "episodes")
	}
	if len(uses) == 0 {
		return "-"
	}
	return strings.Join(uses, ", ")
}

func kindsLabel(kinds []video.Kind) string {
	labels := make([]string, 0, len(kinds))
	for _, kind := range kinds {
		labels = append(labels, string(kind))
	}
	return strings.Join(labels, ", ")
}

func languagesLabel(langs []string) string {
	if len(langs) == 0 {
		return "any"
	}
	return strings.Join(langs, " ")
}
