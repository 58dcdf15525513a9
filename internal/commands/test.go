package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sdpower/ccusage-statusline-go/internal/config"
	"github.com/sdpower/ccusage-statusline-go/internal/loader"
	"github.com/sdpower/ccusage-statusline-go/internal/statusline"
	"github.com/sdpower/ccusage-statusline-go/internal/types"
)

func newTestCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Render the statusline for the most recent transcript",
		Long:  `Synthesizes a hook payload from the most recently modified usage log and renders it, bypassing the render cache.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(flags, cmd.OutOrStdout(), func(engine *statusline.Engine, _ *config.Config, _ *zap.Logger) error {
				transcript, err := loader.LatestFile(engine.Roots())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Testing with: %s\n", transcript)

				hook := &types.HookData{
					SessionID:      "test-session",
					TranscriptPath: transcript,
					Model: types.ModelInfo{
						ID:          "claude-sonnet-4-20250514",
						DisplayName: "Sonnet 4",
					},
				}
				if cwd, err := os.Getwd(); err == nil {
					hook.Workspace = &types.Workspace{CurrentDir: cwd}
				}

				line, err := engine.Render(cmd.Context(), hook)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), line)
				return nil
			})
		},
	}
}
