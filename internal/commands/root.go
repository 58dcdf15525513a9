package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sdpower/ccusage-statusline-go/internal/config"
	"github.com/sdpower/ccusage-statusline-go/internal/statusline"
	"github.com/sdpower/ccusage-statusline-go/internal/types"
)

var ErrNoInput = errors.New("no input provided")

// NewRootCommand builds the statusline CLI. Without a subcommand it renders
// the hook payload piped on stdin, or the interactive variant on a terminal.
func NewRootCommand(version string) *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:           "ccusage-statusline",
		Short:         "Claude Code statusline with billing-window usage",
		Long:          `Renders a one-line status summary of Claude Code usage: current billing window cost, burn rate, context size and account quota.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if isTerminal(in) {
				return runInteractive(cmd, flags)
			}
			return runPiped(cmd, flags, in)
		},
	}

	pf := cmd.PersistentFlags()
	pf.BoolVar(&flags.debug, "debug", false, "Log diagnostics to stderr")
	pf.BoolVar(&flags.noColor, "no-color", false, "Disable colored output")
	pf.BoolVar(&flags.offline, "offline", false, "Never touch the network")
	pf.StringVar(&flags.cacheDir, "cache-dir", "", "Cache directory (default: per-user runtime dir)")
	pf.StringSliceVar(&flags.dataDirs, "data-dir", nil, "Claude data directory (repeatable)")

	cmd.AddCommand(
		newTestCommand(flags),
		newBlocksCommand(flags),
		newWatchCommand(flags),
		newConfigCommand(),
		newCacheCommand(flags),
	)
	return cmd
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// ReadHook decodes the hook payload. Empty input is ErrNoInput.
func ReadHook(r io.Reader) (*types.HookData, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read stdin: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, ErrNoInput
	}

	var hook types.HookData
	if err := json.Unmarshal(data, &hook); err != nil {
		return nil, fmt.Errorf("failed to parse JSON input: %w", err)
	}
	return &hook, nil
}

func runPiped(cmd *cobra.Command, flags *globalFlags, in io.Reader) error {
	hook, err := ReadHook(in)
	if err != nil {
		return err
	}

	return withEngine(flags, cmd.OutOrStdout(), func(engine *statusline.Engine, _ *config.Config, log *zap.Logger) error {
		line, err := engine.RenderCached(cmd.Context(), hook)
		if err != nil {
			return err
		}
		log.Debug("rendered statusline", zap.String("session", hook.SessionID))
		fmt.Fprintln(cmd.OutOrStdout(), line)
		return nil
	})
}

func runInteractive(cmd *cobra.Command, flags *globalFlags) error {
	return withEngine(flags, cmd.OutOrStdout(), func(engine *statusline.Engine, _ *config.Config, _ *zap.Logger) error {
		line, err := engine.Render(cmd.Context(), nil)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), line)
		return nil
	})
}
