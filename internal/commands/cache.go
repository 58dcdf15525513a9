package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sdpower/ccusage-statusline-go/internal/cache"
	"github.com/sdpower/ccusage-statusline-go/internal/pricing"
	"github.com/sdpower/ccusage-statusline-go/internal/quota"
)

func newCacheCommand(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the statusline cache",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove all cached pricing, quota and render results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := buildContainer(flags, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			return unwrapDig(container.Invoke(func(paths Paths) error {
				removed, err := cache.Clear(paths.CacheDir,
					pricing.CacheFileName, quota.CacheFileName+"*")
				if err != nil {
					return fmt.Errorf("failed to clear cache: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d cache files from %s\n", removed, paths.CacheDir)
				return nil
			}))
		},
	})
	return cmd
}
