package commands

import (
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sdpower/ccusage-statusline-go/internal/config"
	"github.com/sdpower/ccusage-statusline-go/internal/monitor"
	"github.com/sdpower/ccusage-statusline-go/internal/statusline"
	"github.com/sdpower/ccusage-statusline-go/internal/types"
)

func newWatchCommand(flags *globalFlags) *cobra.Command {
	var (
		interval   time.Duration
		transcript string
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Show a live-refreshing statusline",
		Long:  `Re-renders the statusline on an interval and whenever a usage log changes. Press 'q' to quit.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(flags, cmd.OutOrStdout(), func(engine *statusline.Engine, cfg *config.Config, log *zap.Logger) error {
				opts := monitor.Options{
					Interval: interval,
					NoColor:  cfg.ColorDisabled(),
				}
				if transcript != "" {
					opts.Hook = &types.HookData{SessionID: "watch", TranscriptPath: transcript}
				}
				return monitor.Run(cmd.Context(), engine, engine.Roots(), opts, cmd.InOrStdin(), cmd.OutOrStdout(), log)
			})
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", monitor.DefaultInterval, "Refresh interval")
	cmd.Flags().StringVar(&transcript, "transcript", "", "Transcript to show context usage for")
	return cmd
}
