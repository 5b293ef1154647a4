package config

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// ChangeFunc receives the previous and the reloaded config together with
// their [Diff].
type ChangeFunc func(old, new *Config, diff ConfigDiff)

// fileState identifies one revision of the watched file.
type fileState struct {
	modTime time.Time
	size    int64
	sum     [sha256.Size]byte
}

// Watcher reloads a config file when it changes and reports valid changes to
// a [ChangeFunc]. Rejected edits leave the last valid config current.
type Watcher struct {
	path     string
	interval time.Duration
	onChange ChangeFunc
	onReject func(error)

	// reload serializes polling and manual reloads.
	reload sync.Mutex
	state  fileState

	mu      sync.RWMutex
	current *Config
}

// WatcherOption configures a [Watcher].
type WatcherOption func(*Watcher)

// WithInterval sets the polling interval used by [Watcher.Run]. The default
// is 5 seconds.
func WithInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithRejectHandler is called with the error of every rejected reload, after
// it has been logged.
func WithRejectHandler(fn func(error)) WatcherOption {
	return func(w *Watcher) { w.onReject = fn }
}

// NewWatcher loads the config at path. Call [Watcher.Run] to poll it.
func NewWatcher(path string, onChange ChangeFunc, opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{
		path:     path,
		interval: 5 * time.Second,
		onChange: onChange,
	}
	for _, opt := range opts {
		opt(w)
	}

	cfg, st, err := w.read()
	if err != nil {
		return nil, fmt.Errorf("config: watcher initial load: %w", err)
	}
	w.current, w.state = cfg, st
	return w, nil
}

// Current returns the most recently loaded valid config.
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Run polls the file every interval until ctx ends, then returns ctx.Err().
func (w *Watcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			info, err := os.Stat(w.path)
			if err != nil {
				slog.Warn("config: cannot stat watched file", "path", w.path, "err", err)
				continue
			}
			w.reload.Lock()
			unchanged := info.ModTime().Equal(w.state.modTime) && info.Size() == w.state.size
			w.reload.Unlock()
			if unchanged {
				continue
			}
			_, _ = w.Reload()
		}
	}
}

// Reload reads the file now, for example on SIGHUP. It returns the diff it
// reported, which is empty when the content did not change, or the reason
// the file was rejected.
func (w *Watcher) Reload() (ConfigDiff, error) {
	w.reload.Lock()
	defer w.reload.Unlock()

	cfg, st, err := w.read()
	if err != nil {
		if !st.modTime.IsZero() {
			// Don't poll the same broken revision again.
			w.state.modTime, w.state.size = st.modTime, st.size
		}
		slog.Warn("config: reload rejected, keeping previous config", "path", w.path, "err", err)
		if w.onReject != nil {
			w.onReject(err)
		}
		return ConfigDiff{}, err
	}
	sameContent := st.sum == w.state.sum
	w.state = st
	if sameContent {
		return ConfigDiff{}, nil
	}

	w.mu.Lock()
	old := w.current
	w.current = cfg
	w.mu.Unlock()

	diff := Diff(old, cfg)
	slog.Info("config: reloaded", "path", w.path,
		"log_level_changed", diff.LogLevelChanged,
		"music_changed", diff.MusicChanged,
		"style_changed", diff.StyleChanged)
	if len(diff.RestartRequired) > 0 {
		slog.Warn("config: some changes only apply after a restart", "settings", diff.RestartRequired)
	}
	if w.onChange != nil {
		w.onChange(old, cfg, diff)
	}
	return diff, nil
}

// read fingerprints the file and parses it. The returned state is filled
// whenever the file could be read, even if its content is invalid.
func (w *Watcher) read() (*Config, fileState, error) {
	info, err := os.Stat(w.path)
	if err != nil {
		return nil, fileState{}, err
	}
	data, err := os.ReadFile(w.path)
	if err != nil {
		return nil, fileState{}, err
	}
	st := fileState{modTime: info.ModTime(), size: int64(len(data)), sum: sha256.Sum256(data)}
	cfg, err := LoadFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, st, err
	}
	return cfg, st, nil
}
