package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultReloadDebounce collapses the burst of events an editor save produces
const DefaultReloadDebounce = 200 * time.Millisecond

// Watcher keeps the effective config current while a long-running server is up.
// A reload that fails validation is logged and the previous config stays active.
type Watcher struct {
	root     string
	explicit string
	debounce time.Duration
	logger   zerolog.Logger

	fsw      *fsnotify.Watcher
	current  atomic.Pointer[Config]
	onReload func(*Config)
}

// NewWatcher watches the directory holding the config file: explicitPath when
// set, otherwise the project root. Watching the directory rather than the file
// survives editors that replace files on save.
func NewWatcher(initial *Config, explicitPath string, logger zerolog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	dir := initial.Project.Root
	if explicitPath != "" {
		dir = filepath.Dir(explicitPath)
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	w := &Watcher{
		root:     initial.Project.Root,
		explicit: explicitPath,
		debounce: DefaultReloadDebounce,
		logger:   logger,
		fsw:      fsw,
	}
	w.current.Store(initial)
	return w, nil
}

// Current returns the config to use for the next invocation
func (w *Watcher) Current() *Config {
	return w.current.Load()
}

// OnReload registers fn to run after each successful reload. Call before Run.
func (w *Watcher) OnReload(fn func(*Config)) {
	w.onReload = fn
}

// Run processes file events until ctx is done, then releases the watcher
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !w.isConfigFile(event.Name) {
				continue
			}
			w.logger.Debug().Str("file", event.Name).Stringer("op", event.Op).Msg("config file changed")
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(w.debounce)
			fire = timer.C

		case <-fire:
			fire = nil
			w.reload()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn().Err(err).Msg("config watcher error")
		}
	}
}

func (w *Watcher) isConfigFile(name string) bool {
	if w.explicit != "" {
		return filepath.Clean(name) == filepath.Clean(w.explicit)
	}
	base := filepath.Base(name)
	return base == KDLFileName || base == TOMLFileName
}

func (w *Watcher) reload() {
	cfg, err := LoadWithRoot(w.explicit, w.root)
	if err != nil {
		w.logger.Warn().Err(err).Msg("config reload failed, keeping previous config")
		return
	}
	w.current.Store(cfg)
	w.logger.Info().Strs("sources", cfg.Sources).Msg("config reloaded")
	if w.onReload != nil {
		w.onReload(cfg)
	}
}
