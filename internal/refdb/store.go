// Package refdb keeps the active referer database. Loads parse and index a
// database from a storage.Provider and swap the resulting classifier in
// atomically; readers always see one complete, immutable classifier.
package refdb

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/referer-classifier/internal/metrics"
	"github.com/JakeFAU/referer-classifier/internal/referer"
	"github.com/JakeFAU/referer-classifier/internal/storage"
)

// ErrNotLoaded is returned before any database has been installed.
var ErrNotLoaded = errors.New("referer database not loaded")

// ErrNoProvider is returned by Load when the Store only serves the bundled
// database.
var ErrNoProvider = errors.New("no database provider configured")

// EmbeddedObject names the bundled database in Info.
const EmbeddedObject = "embedded:referers.json"

// Info describes the active database.
type Info struct {
	Object      string    `json:"object"`
	Fingerprint string    `json:"fingerprint"`
	Entries     int       `json:"entries"`
	Keys        int       `json:"keys"`
	Media       []string  `json:"media"`
	LoadedAt    time.Time `json:"loaded_at"`
}

type snapshot struct {
	classifier *referer.Classifier
	info       Info
}

// Store holds the active classifier.
type Store struct {
	provider storage.Provider
	object   string
	cache    *referer.Cache
	logger   *zap.Logger
	now      func() time.Time

	loadMu  sync.Mutex
	current atomic.Pointer[snapshot]
}

// NewStore creates a Store reading object from provider. provider may be nil
// when only the bundled database is used.
func NewStore(provider storage.Provider, object string, cache *referer.Cache, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		provider: provider,
		object:   object,
		cache:    cache,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// UseDefault installs the bundled database.
func (s *Store) UseDefault() {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	s.install(EmbeddedObject, referer.Default())
	metrics.ObserveDatabaseReload(nil, referer.Default().Keys())
}

// Load fetches, parses and indexes the configured object. On failure the
// previously active classifier stays in place.
func (s *Store) Load(ctx context.Context) error {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	cl, err := s.build(ctx)
	if err != nil {
		metrics.ObserveDatabaseReload(err, 0)
		s.logger.Error("Referer database load failed", zap.String("object", s.object), zap.Error(err))
		return err
	}
	s.install(s.object, cl)
	metrics.ObserveDatabaseReload(nil, cl.Keys())
	s.logger.Info("Referer database loaded",
		zap.String("object", s.object),
		zap.String("fingerprint", cl.Fingerprint()),
		zap.Int("entries", cl.Entries()),
		zap.Int("keys", cl.Keys()),
	)
	return nil
}

func (s *Store) build(ctx context.Context) (*referer.Classifier, error) {
	if s.provider == nil {
		return nil, ErrNoProvider
	}
	data, err := s.provider.Load(ctx, s.object)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", s.object, err)
	}
	src, err := referer.Parse(s.object, data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.object, err)
	}
	if s.cache == nil {
		cl, err := referer.New(src)
		if err != nil {
			return nil, fmt.Errorf("index %s: %w", s.object, err)
		}
		return cl, nil
	}
	cl, cached, err := s.cache.Get(src)
	if err != nil {
		return nil, fmt.Errorf("index %s: %w", s.object, err)
	}
	metrics.ObserveIndexLookup(cached)
	return cl, nil
}

func (s *Store) install(object string, cl *referer.Classifier) {
	s.current.Store(&snapshot{
		classifier: cl,
		info: Info{
			Object:      object,
			Fingerprint: cl.Fingerprint(),
			Entries:     cl.Entries(),
			Keys:        cl.Keys(),
			Media:       cl.Media(),
			LoadedAt:    s.now(),
		},
	})
}

// Classifier returns the active classifier.
func (s *Store) Classifier() (*referer.Classifier, error) {
	snap := s.current.Load()
	if snap == nil {
		return nil, ErrNotLoaded
	}
	return snap.classifier, nil
}

// Info describes the active database.
func (s *Store) Info() (Info, error) {
	snap := s.current.Load()
	if snap == nil {
		return Info{}, ErrNotLoaded
	}
	info := snap.info
	info.Media = append([]string(nil), snap.info.Media...)
	return info, nil
}

// Ready reports whether a database is installed.
func (s *Store) Ready() bool {
	return s.current.Load() != nil
}

// Watch reloads the database whenever the provider reports a change. It
// returns immediately when the provider cannot watch.
func (s *Store) Watch(ctx context.Context) error {
	watcher, ok := s.provider.(storage.Watcher)
	if !ok {
		s.logger.Debug("Database provider does not support watching", zap.String("object", s.object))
		return nil
	}
	err := watcher.Watch(ctx, s.object, func() {
		// Errors are logged by Load and the previous database stays active.
		_ = s.Load(ctx)
	})
	if err != nil {
		return fmt.Errorf("watch %s: %w", s.object, err)
	}
	return nil
}
