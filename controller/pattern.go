package controller

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	toml "github.com/pelletier/go-toml/v2"

	"github.com/calvinmclean/coilwinder"
	"github.com/calvinmclean/coilwinder/guide"
	"github.com/calvinmclean/coilwinder/log"
)

const defaultDebounce = 100 * time.Millisecond

// PatternFile is the TOML layout of a pattern overlay file
type PatternFile struct {
	Min           float64 `toml:"min"`
	Max           float64 `toml:"max"`
	TurnsPerLayer int     `toml:"turns_per_layer"`
	Scatter       float64 `toml:"scatter"`
}

// Layout converts the file into a sweep geometry
func (p PatternFile) Layout() guide.Layout {
	return guide.Layout{
		Min:           p.Min,
		Max:           p.Max,
		TurnsPerLayer: p.TurnsPerLayer,
		Scatter:       p.Scatter,
	}
}

// PatternCommand is the WIND PATTERN line that installs l as the live overlay
func PatternCommand(l guide.Layout) string {
	return fmt.Sprintf("WIND PATTERN %s %s %s %s",
		coilwinder.FormatFloat(l.Min),
		coilwinder.FormatFloat(l.Max),
		strconv.Itoa(l.TurnsPerLayer),
		coilwinder.FormatFloat(l.Scatter),
	)
}

// LoadPattern reads a pattern overlay file. The firmware validates ranges; only values that could
// never describe a sweep are rejected here.
func LoadPattern(path string) (guide.Layout, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return guide.Layout{}, err
	}

	var pf PatternFile
	if err := toml.Unmarshal(b, &pf); err != nil {
		return guide.Layout{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if pf.TurnsPerLayer < 1 {
		return guide.Layout{}, fmt.Errorf("parse %s: turns_per_layer must be at least 1", path)
	}
	return pf.Layout(), nil
}

// PatternWatcher pushes the pattern overlay to the device every time the file changes
type PatternWatcher struct {
	path     string
	send     func(string) error
	logger   log.Logger
	debounce time.Duration

	mu    sync.Mutex
	timer *time.Timer
}

func NewPatternWatcher(path string, send func(string) error, logger log.Logger) *PatternWatcher {
	return &PatternWatcher{
		path:     path,
		send:     send,
		logger:   log.OrNoop(logger),
		debounce: defaultDebounce,
	}
}

// Run sends the current pattern and then watches the file's directory until ctx is done
func (w *PatternWatcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	// editors replace files on save, so the directory is watched instead of the file
	dir := filepath.Dir(w.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	w.push()

	for {
		select {
		case <-ctx.Done():
			w.stopTimer()
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.debounceSend()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("pattern watcher error", log.Err(err))
		}
	}
}

func (w *PatternWatcher) debounceSend() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.push)
}

func (w *PatternWatcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
}

func (w *PatternWatcher) push() {
	l, err := LoadPattern(w.path)
	if err != nil {
		w.logger.Warn("pattern not sent", log.String("path", w.path), log.Err(err))
		return
	}

	cmd := PatternCommand(l)
	if err := w.send(cmd); err != nil {
		w.logger.Error("failed to send pattern", log.Err(err))
		return
	}
	w.logger.Info("pattern sent", log.String("command", cmd))
}
