package venue

import (
	"fmt"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/Shivanand-hulikatti/campus-events/internal/metrics"
)

// Loader holds the current catalog. When built from a file it can watch the
// file and swap in a new catalog whenever it changes; a file that fails to
// parse or validate leaves the previous catalog in place.
type Loader struct {
	path     string
	logger   zerolog.Logger
	mu       sync.RWMutex
	current  *Catalog
	onChange []func(*Catalog)
}

// NewStaticLoader serves a fixed catalog.
func NewStaticLoader(c *Catalog) *Loader {
	return &Loader{current: c, logger: zerolog.Nop()}
}

// NewLoader performs the initial load of the catalog at path.
func NewLoader(path string, logger zerolog.Logger) (*Loader, error) {
	l := &Loader{path: path, logger: logger}
	c, err := l.load()
	if err != nil {
		return nil, err
	}
	l.current = c
	return l, nil
}

// Catalog returns the current catalog.
func (l *Loader) Catalog() *Catalog {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

// Recommend runs the recommender over the current catalog.
func (l *Loader) Recommend(req Request) (*Recommendation, error) {
	return l.Catalog().Recommend(req)
}

// OnChange registers a callback invoked after every successful reload.
func (l *Loader) OnChange(fn func(*Catalog)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onChange = append(l.onChange, fn)
}

// Watch hot-reloads the catalog on file changes until stop is called.
// stop waits for the watcher goroutine to exit.
func (l *Loader) Watch() (stop func(), err error) {
	if l.path == "" {
		return func() {}, nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("venue watcher: %w", err)
	}
	if err := w.Add(l.path); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("venue watcher add %s: %w", l.path, err)
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer func() { _ = w.Close() }()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
					if _, err := l.Reload(); err != nil {
						l.logger.Warn().Err(err).Str("path", l.path).Msg("venue catalog reload failed, keeping previous")
					}
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				l.logger.Warn().Err(err).Msg("venue watcher error")
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(done) })
		wg.Wait()
	}, nil
}

// Reload forces an immediate re-read of the catalog file.
func (l *Loader) Reload() (*Catalog, error) {
	c, err := l.load()
	if err != nil {
		metrics.VenueCatalogReloads.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.VenueCatalogReloads.WithLabelValues("ok").Inc()

	l.mu.Lock()
	l.current = c
	callbacks := make([]func(*Catalog), len(l.onChange))
	copy(callbacks, l.onChange)
	l.mu.Unlock()

	l.logger.Info().Int("venues", len(c.Venues)).Str("path", l.path).Msg("venue catalog loaded")
	for _, fn := range callbacks {
		fn(c)
	}
	return c, nil
}

func (l *Loader) load() (*Catalog, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("read venue catalog %s: %w", l.path, err)
	}
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse venue catalog %s: %w", l.path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("venue catalog %s: %w", l.path, err)
	}
	return &c, nil
}
