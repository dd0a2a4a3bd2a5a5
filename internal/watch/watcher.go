// Package watch refreshes a voice listing when files on disk change.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/mitchellh/go-homedir"
	"github.com/muesli/gitcha"
	"golang.org/x/time/rate"
)

// DefaultInterval is the minimum time between two refreshes.
const DefaultInterval = time.Second

// ErrNoPaths is returned when there is nothing to watch.
var ErrNoPaths = errors.New("no paths to watch")

// voiceExtensions are the file types found in voice directories. Any
// directory below a watched path holding one of them is watched as well.
var voiceExtensions = []string{
	"*.pt", "*.npy", "*.bin", "*.safetensors",
	"*.wav", "*.mp3", "*.flac", "*.ogg",
}

// Refresher is refreshed whenever a watched path changes.
type Refresher interface {
	Refresh()
}

// Watcher calls Refresh on its target when a watched path changes. Bursts
// of events are coalesced into a single refresh.
type Watcher struct {
	fs      *fsnotify.Watcher
	target  Refresher
	limiter *rate.Limiter
	logger  *log.Logger
}

// New watches paths (with ~ expanded) on behalf of target. Refreshes are
// spaced at least interval apart; a non-positive interval uses
// DefaultInterval.
func New(target Refresher, interval time.Duration, paths ...string) (*Watcher, error) {
	if len(paths) == 0 {
		return nil, ErrNoPaths
	}
	if interval <= 0 {
		interval = DefaultInterval
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("unable to create watcher: %w", err)
	}

	w := &Watcher{
		fs:      fw,
		target:  target,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		logger:  log.Default(),
	}

	for _, p := range paths {
		expanded, err := homedir.Expand(p)
		if err != nil {
			_ = fw.Close()
			return nil, fmt.Errorf("unable to expand path %q: %w", p, err)
		}
		if err := w.addTree(expanded); err != nil {
			_ = fw.Close()
			return nil, err
		}
	}

	return w, nil
}

// addTree watches root and every directory below it that holds voice files.
func (w *Watcher) addTree(root string) error {
	if err := w.fs.Add(root); err != nil {
		return fmt.Errorf("unable to watch %q: %w", root, err)
	}
	if fi, err := os.Stat(root); err != nil || !fi.IsDir() {
		return nil //nolint:nilerr
	}

	// gitignore rules don't apply to voice directories
	ch, err := gitcha.FindAllFilesExcept(root, voiceExtensions, nil)
	if err != nil {
		return fmt.Errorf("unable to search %q: %w", root, err)
	}

	seen := map[string]bool{filepath.Clean(root): true}
	for res := range ch {
		dir := filepath.Dir(res.Path)
		if seen[dir] {
			continue
		}
		seen[dir] = true
		if err := w.fs.Add(dir); err != nil {
			w.logger.Warn("Unable to watch voice directory", "path", dir, "err", err)
			continue
		}
		w.logger.Debug("Watching voice directory", "path", dir)
	}
	return nil
}

// SetLogger replaces the default logger.
func (w *Watcher) SetLogger(logger *log.Logger) {
	if logger != nil {
		w.logger = logger
	}
}

// Run processes events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Watcher error", "err", err)

		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if !relevant(ev) {
				continue
			}
			w.logger.Debug("Voice directory changed", "path", ev.Name, "op", ev.Op.String())

			// new subdirectories are watched from now on
			if ev.Has(fsnotify.Create) {
				if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
					if err := w.fs.Add(ev.Name); err != nil {
						w.logger.Warn("Unable to watch voice directory", "path", ev.Name, "err", err)
					}
				}
			}

			if err := w.limiter.Wait(ctx); err != nil {
				return ctx.Err()
			}
			if !w.drain() {
				return nil
			}
			w.target.Refresh()
		}
	}
}

// drain discards events that queued up while waiting. It reports false if
// the event channel was closed.
func (w *Watcher) drain() bool {
	for {
		select {
		case _, ok := <-w.fs.Events:
			if !ok {
				return false
			}
		default:
			return true
		}
	}
}

// relevant filters out permission-only changes.
func relevant(ev fsnotify.Event) bool {
	return ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) ||
		ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename)
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fs.Close()
}
