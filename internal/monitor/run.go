package monitor

import (
	"context"
	"errors"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"go.uber.org/zap"

	"github.com/sdpower/ccusage-statusline-go/internal/logging"
)

var ErrNotTerminal = errors.New("watch mode requires an interactive terminal (TTY)")

// Run starts the watch-mode TUI on out until the user quits or ctx ends.
func Run(ctx context.Context, r Renderer, roots []string, opts Options, in io.Reader, out io.Writer, log *zap.Logger) error {
	f, ok := out.(interface{ Fd() uintptr })
	if !ok || (!isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd())) {
		return ErrNotTerminal
	}

	log = logging.OrNop(log)

	var files []string
	if opts.Hook != nil {
		files = append(files, opts.Hook.TranscriptPath)
	}

	var changes <-chan struct{}
	watcher, err := Watch(roots, files, log)
	if err != nil {
		log.Warn("file watching unavailable, refreshing on interval only", zap.Error(err))
	} else {
		defer watcher.Close()
		changes = watcher.Changes()
	}

	p := tea.NewProgram(
		NewModel(ctx, r, changes, opts),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
		tea.WithInput(in),
		tea.WithOutput(out),
	)

	_, err = p.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
