package dataset

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-errors/errors"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/spektr-org/cropyield/engine"
	"github.com/spektr-org/cropyield/helpers"
	"github.com/spektr-org/cropyield/schema"
)

// ============================================================================
// DATASET STORE — Loaded CSV plus its aggregated table
// ============================================================================
// A Snapshot is immutable once published. Reload builds a new one off to the
// side and swaps it in under the write lock, so readers never see a half
// loaded dataset.
// ============================================================================

// ErrNoData is returned by Current before the first successful load.
var ErrNoData = errors.New("no dataset loaded")

// Snapshot is one load of the CSV.
type Snapshot struct {
	Raw        []engine.RawRecord        `json:"-"`
	Keys       engine.KeySets            `json:"keys"`
	Aggregated []engine.AggregatedRecord `json:"-"`
	Skipped    int                       `json:"skipped"`
	Dropped    []string                  `json:"dropped,omitempty"`
	Source     string                    `json:"source"`
	LoadedAt   time.Time                 `json:"loadedAt"`
}

// View wraps the aggregated table as a RecordView.
func (s *Snapshot) View() engine.RecordView {
	return engine.NewAggregatedView(s.Aggregated)
}

// RawView wraps the loaded rows as a RecordView.
func (s *Snapshot) RawView() engine.RecordView {
	return engine.NewRawView(s.Raw)
}

// Store owns the current snapshot.
type Store struct {
	fs         afero.Fs
	path       string
	schema     schema.Config
	aggregator *engine.CachedAggregator
	logger     *zap.Logger

	// loadMu serialises Load; the last load to start publishes last.
	loadMu sync.Mutex

	mu       sync.RWMutex
	snapshot *Snapshot
}

// Option configures a Store.
type Option func(*Store)

// WithFs replaces the OS filesystem.
func WithFs(fs afero.Fs) Option {
	return func(s *Store) { s.fs = fs }
}

// WithAggregator sets the aggregator used on load.
func WithAggregator(a *engine.CachedAggregator) Option {
	return func(s *Store) { s.aggregator = a }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// NewStore returns an empty store for the CSV at path. Call Load before use.
func NewStore(path string, opts ...Option) *Store {
	s := &Store{
		fs:     afero.NewOsFs(),
		path:   path,
		schema: schema.YieldDataset(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.aggregator == nil {
		s.aggregator = engine.NewCachedAggregator(engine.WithLogger(s.logger))
	}
	return s
}

// Path returns the CSV location.
func (s *Store) Path() string { return s.path }

// Load parses the CSV, aggregates it and publishes the result. On error the
// previous snapshot stays current.
func (s *Store) Load(ctx context.Context) (*Snapshot, error) {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := helpers.LoadCSV(s.fs, s.path, s.schema)
	if err != nil {
		s.logger.Error("dataset load failed", zap.String("path", s.path), zap.Error(err))
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	keys := engine.Distinct(res.Records)
	keys.Countries = withoutBlank(keys.Countries)
	snap := &Snapshot{
		Raw:        res.Records,
		Keys:       keys,
		Aggregated: s.aggregator.Aggregate(res.Records, keys.Countries, keys.Crops, keys.Years),
		Skipped:    res.Skipped,
		Dropped:    res.Dropped,
		Source:     s.path,
		LoadedAt:   time.Now().UTC(),
	}

	s.mu.Lock()
	s.snapshot = snap
	s.mu.Unlock()

	if res.Skipped > 0 {
		s.logger.Warn("skipped malformed rows", zap.String("path", s.path), zap.Int("skipped", res.Skipped))
	}
	s.logger.Info("dataset loaded",
		zap.String("path", s.path),
		zap.Int("rows", len(snap.Raw)),
		zap.Int("aggregated", len(snap.Aggregated)),
		zap.Int("countries", len(keys.Countries)),
		zap.Int("crops", len(keys.Crops)),
		zap.Duration("took", time.Since(start)))
	return snap, nil
}

// Reload is Load under the name the HTTP API uses.
func (s *Store) Reload(ctx context.Context) (*Snapshot, error) {
	return s.Load(ctx)
}

// Current returns the published snapshot.
func (s *Store) Current() (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snapshot == nil {
		return nil, ErrNoData
	}
	return s.snapshot, nil
}

// Watch reloads the dataset whenever its file is written, until ctx is done.
// Bursts of events within debounce collapse into one reload. The parent
// directory is watched so editors that replace the file are seen too.
func (s *Store) Watch(ctx context.Context, debounce time.Duration) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.WrapPrefix(err, "create watcher", 0)
	}
	defer watcher.Close()

	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		return errors.WrapPrefix(err, "watch "+dir, 0)
	}
	target := filepath.Clean(s.path)
	s.logger.Info("watching dataset", zap.String("path", target))

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("watcher error", zap.Error(err))
		case <-fire:
			fire = nil
			if _, err := s.Load(ctx); err != nil {
				s.logger.Warn("reload after change failed, keeping previous dataset", zap.Error(err))
			}
		}
	}
}

func withoutBlank(countries []string) []string {
	out := make([]string, 0, len(countries))
	for _, c := range countries {
		if !engine.IsBlankCountry(c) {
			out = append(out, c)
		}
	}
	return out
}
