package main

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"subfetch/internal/video"
)

func newHashCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "hash <file>",
		Short:       "Print the provider content hashes of a video",
		Args:        cobra.ExactArgs(1),
		Annotations: skipConfigLoad,
		RunE: func(cmd *cobra.Command, args []string) error {
			hashes, err := video.ComputeHashes(args[0], video.HashOpenSubtitles, video.HashTheSubDB)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(hashes) == 0 {
				fmt.Fprintln(out, "File too small to hash")
				return nil
			}
			names := make([]string, 0, len(hashes))
			for name := range hashes {
				names = append(names, name)
			}
			slices.Sort(names)
			for _, name := range names {
				fmt.Fprintf(out, "%-14s %s\n", name+":", hashes[name])
			}
			return nil
		},
	}
}

func newGuessCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "guess <file>",
		Short:       "Show what subfetch infers from a video path",
		Args:        cobra.ExactArgs(1),
		Annotations: skipConfigLoad,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := video.Guess(args[0], nil)
			if err != nil {
				return err
			}
			rows := [][]string{{"Kind", string(id.Kind)}}
			add := func(label, value string) {
				if strings.TrimSpace(value) != "" {
					rows = append(rows, []string{label, value})
				}
			}
			if id.IsEpisode() {
				add("Series", id.Series)
				add("Season", strconv.Itoa(id.Season))
				episodes := make([]string, 0, len(id.Episodes))
				for _, ep := range id.Episodes {
					episodes = append(episodes, strconv.Itoa(ep))
				}
				add("Episodes", strings.Join(episodes, ", "))
			}
			add("Title", id.Title)
			if id.Year > 0 {
				add("Year", strconv.Itoa(id.Year))
			}
			add("Resolution", id.Resolution)
			add("Video Codec", id.VideoCodec)
			add("Audio Codec", id.AudioCodec)
			add("Release Group", id.ReleaseGroup)
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(columns("Field", "Value"), rows))
			return nil
		},
	}
}
