package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sdpower/ccusage-statusline-go/internal/config"
	"github.com/sdpower/ccusage-statusline-go/internal/output"
	"github.com/sdpower/ccusage-statusline-go/internal/statusline"
)

func newBlocksCommand(flags *globalFlags) *cobra.Command {
	var (
		jsonOutput bool
		timezone   string
	)

	cmd := &cobra.Command{
		Use:   "blocks",
		Short: "List billing windows in the lookback range",
		Long:  `Groups recent usage into billing windows and prints them with cost, tokens and the projection of the active window.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loc := time.Local
			if timezone != "" {
				var err error
				loc, err = time.LoadLocation(timezone)
				if err != nil {
					return fmt.Errorf("invalid timezone %q: %w", timezone, err)
				}
			}

			return withEngine(flags, cmd.OutOrStdout(), func(engine *statusline.Engine, cfg *config.Config, _ *zap.Logger) error {
				blocks, projection, err := engine.Blocks(cmd.Context())
				if err != nil {
					return fmt.Errorf("failed to load usage data: %w", err)
				}

				format := "table"
				if jsonOutput {
					format = "json"
				}
				formatter := output.NewFormatter(output.FormatterOptions{
					Format:   format,
					NoColor:  cfg.ColorDisabled(),
					Timezone: loc,
				})

				report, err := formatter.FormatBlocksReport(blocks, projection)
				if err != nil {
					return fmt.Errorf("failed to format report: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), report)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output JSON instead of a table")
	cmd.Flags().StringVar(&timezone, "timezone", "", "IANA timezone for block start times (default: local)")
	return cmd
}
