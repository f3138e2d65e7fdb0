package layout

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

// Store holds the named layouts found under a directory. Names come from
// configName, falling back to the file name without extension.
type Store struct {
	dir     string
	pattern string
	logger  *slog.Logger

	mu      sync.RWMutex
	layouts map[string]*CardConfig
}

// NewStore creates a Store over dir. pattern is a doublestar glob relative
// to dir, e.g. "**/*.json".
func NewStore(dir, pattern string, logger *slog.Logger) *Store {
	if pattern == "" {
		pattern = "**/*.json"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{dir: dir, pattern: pattern, logger: logger, layouts: map[string]*CardConfig{}}
}

// Reload rescans the directory. Files that fail to parse are logged and
// left out; the previous set is replaced only when the scan itself works.
func (s *Store) Reload() error {
	matches, err := doublestar.Glob(os.DirFS(s.dir), s.pattern)
	if err != nil {
		return fmt.Errorf("scanning layouts in %s: %w", s.dir, err)
	}
	sort.Strings(matches)

	next := make(map[string]*CardConfig, len(matches))
	for _, m := range matches {
		cfg, err := LoadFile(filepath.Join(s.dir, filepath.FromSlash(m)))
		if err != nil {
			s.logger.Warn("skipping layout", "file", m, "error", err)
			continue
		}
		name := cfg.ConfigName
		if name == "" {
			name = strings.TrimSuffix(path.Base(m), path.Ext(m))
		}
		if _, dup := next[name]; dup {
			s.logger.Warn("duplicate layout name, later file wins", "name", name, "file", m)
		}
		next[name] = cfg
	}

	s.mu.Lock()
	s.layouts = next
	s.mu.Unlock()
	s.logger.Info("layouts loaded", "dir", s.dir, "count", len(next))
	return nil
}

// Get returns the layout registered under name.
func (s *Store) Get(name string) (*CardConfig, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.layouts[name]
	return cfg, ok
}

// Names lists the registered layout names in sorted order.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.layouts))
	for name := range s.layouts {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// reloadDelay coalesces bursts of write events from editors.
const reloadDelay = 250 * time.Millisecond

// dirPollInterval is how often Watch checks for a missing directory.
var dirPollInterval = 2 * time.Second

// Watch reloads the store whenever a matching file under the directory is
// written, created, removed or renamed. A directory that does not exist yet
// is waited for and loaded once it appears. It blocks until ctx is done.
func (s *Store) Watch(ctx context.Context) error {
	if !s.waitForDir(ctx) {
		return nil
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fsw.Close()

	err = filepath.WalkDir(s.dir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return fsw.Add(p)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("watching %s: %w", s.dir, err)
	}

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = fsw.Add(event.Name)
					continue
				}
			}
			if !s.matches(event.Name) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDelay)
			} else {
				timer.Reset(reloadDelay)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			if err := s.Reload(); err != nil {
				s.logger.Error("layout reload failed", "error", err)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("layout watcher error", "error", err)
		}
	}
}

// waitForDir blocks until the layout directory exists, reloading once it
// shows up. It reports false when ctx ends first.
func (s *Store) waitForDir(ctx context.Context) bool {
	if info, err := os.Stat(s.dir); err == nil && info.IsDir() {
		return true
	}
	s.logger.Warn("layout directory missing, waiting for it", "dir", s.dir)
	ticker := time.NewTicker(dirPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
			info, err := os.Stat(s.dir)
			if err != nil || !info.IsDir() {
				continue
			}
			if err := s.Reload(); err != nil {
				s.logger.Error("layout reload failed", "error", err)
			}
			return true
		}
	}
}

func (s *Store) matches(name string) bool {
	rel, err := filepath.Rel(s.dir, name)
	if err != nil {
		return false
	}
	ok, err := doublestar.Match(s.pattern, filepath.ToSlash(rel))
	return err == nil && ok
}
