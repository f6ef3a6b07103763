package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"subfetch/internal/cache"
)

func newCacheCommand(sess *session) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the provider response cache",
	}

	cacheCmd.AddCommand(newCachePurgeCommand(sess))

	return cacheCmd
}

func newCachePurgeCommand(sess *session) *cobra.Command {
	var expiredOnly bool

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Remove cached provider responses",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := sess.config()
			if err != nil {
				return err
			}
			logger, err := sess.logger()
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			store := cache.Open(cmd.Context(), cfg, logger)
			defer store.Close()
			if store.Backend() != cfg.Cache.Backend {
				return fmt.Errorf("cache backend %s is unavailable", cfg.Cache.Backend)
			}

			out := cmd.OutOrStdout()
			if expiredOnly {
				removed, err := store.Prune(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Removed %d expired entries from the %s cache\n", removed, store.Backend())
				return nil
			}
			if err := store.Purge(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(out, "Purged the %s cache\n", store.Backend())
			return nil
		},
	}

	cmd.Flags().BoolVar(&expiredOnly, "expired", false, "Only remove entries past their lifetime")
	return cmd
}
