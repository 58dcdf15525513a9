package monitor

import (
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/sdpower/ccusage-statusline-go/internal/logging"
)

// Watcher turns write and create events below the watched paths into a
// coalesced change signal.
type Watcher struct {
	fs      *fsnotify.Watcher
	changes chan struct{}
	done    chan struct{}
	log     *zap.Logger
}

// Watch observes the given files and directories. Each root is expanded to
// its project subdirectories, since fsnotify is not recursive. Paths that
// cannot be watched are skipped.
func Watch(roots []string, files []string, log *zap.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fs:      fsw,
		changes: make(chan struct{}, 1),
		done:    make(chan struct{}),
		log:     logging.OrNop(log),
	}

	var paths []string
	for _, root := range roots {
		paths = append(paths, root)
		entries, err := os.ReadDir(root)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() {
				paths = append(paths, filepath.Join(root, entry.Name()))
			}
		}
	}
	paths = append(paths, files...)

	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := fsw.Add(path); err != nil {
			w.log.Debug("cannot watch path", zap.String("path", path), zap.Error(err))
		}
	}

	go w.loop()
	return w, nil
}

// Changes delivers at most one pending signal; bursts collapse into one.
func (w *Watcher) Changes() <-chan struct{} {
	return w.changes
}

func (w *Watcher) Close() error {
	err := w.fs.Close()
	<-w.done
	return err
}

func (w *Watcher) loop() {
	defer close(w.done)
	defer close(w.changes)

	for {
		select {
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) && isDir(event.Name) {
				_ = w.fs.Add(event.Name)
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			select {
			case w.changes <- struct{}{}:
			default:
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.log.Debug("watch error", zap.Error(err))
		}
	}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
