// Package catalog serves the read-only collection and item views with a
// short-lived in-memory cache in front of the backend.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/txn2/storefront/pkg/backend"
)

const (
	// DefaultTTL is how long a cached read is served.
	DefaultTTL = time.Minute

	// warmConcurrency bounds parallel collection fetches during Warm.
	warmConcurrency = 4
)

// Backend is the part of the backend client the catalog needs.
type Backend interface {
	Collections(ctx context.Context) ([]backend.Collection, error)
	Collection(ctx context.Context, slug string) (*backend.CollectionDetail, error)
	Item(ctx context.Context, id string) (*backend.Item, error)
}

// Config configures a Service.
type Config struct {
	TTL    time.Duration
	Logger *slog.Logger

	// Now overrides the clock (tests).
	Now func() time.Time
}

type entry struct {
	value   any
	expires time.Time
}

// Service caches catalog reads. Errors are never cached. Expired entries are
// swept whenever a new entry is stored. Returned values are
// shared between callers and must not be modified.
type Service struct {
	backend Backend
	ttl     time.Duration
	logger  *slog.Logger
	now     func() time.Time

	mu      sync.RWMutex
	entries map[string]entry
}

// New creates a catalog service. A zero TTL uses DefaultTTL; a negative TTL
// disables caching.
func New(b Backend, cfg Config) *Service {
	ttl := cfg.TTL
	if ttl == 0 {
		ttl = DefaultTTL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		backend: b,
		ttl:     ttl,
		logger:  logger,
		now:     now,
		entries: make(map[string]entry),
	}
}

// Collections lists all collections.
func (s *Service) Collections(ctx context.Context) ([]backend.Collection, error) {
	return cached(s, "collections", func() ([]backend.Collection, error) {
		return s.backend.Collections(ctx)
	})
}

// Collection returns a collection with its items.
func (s *Service) Collection(ctx context.Context, slug string) (*backend.CollectionDetail, error) {
	return cached(s, "collection:"+slug, func() (*backend.CollectionDetail, error) {
		return s.backend.Collection(ctx, slug)
	})
}

// Item returns one item.
func (s *Service) Item(ctx context.Context, id string) (*backend.Item, error) {
	return cached(s, "item:"+id, func() (*backend.Item, error) {
		return s.backend.Item(ctx, id)
	})
}

// Warm loads the collection list and every collection detail into the cache.
// Items of each collection are cached as well.
func (s *Service) Warm(ctx context.Context) error {
	collections, err := s.Collections(ctx)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(warmConcurrency)
	for _, c := range collections {
		g.Go(func() error {
			detail, err := s.Collection(gctx, c.Slug)
			if err != nil {
				return err
			}
			for i := range detail.Items {
				item := detail.Items[i]
				s.store("item:"+item.ID, &item)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("warming catalog: %w", err)
	}
	s.logger.Info("catalog warmed", "collections", len(collections), "entries", s.Len())
	return nil
}

// Len returns the number of cached entries. Entries that expired since the
// last store are included until the next store sweeps them.
func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *Service) lookup(key string) (any, bool) {
	if s.ttl < 0 {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	if !ok || !s.now().Before(e.expires) {
		return nil, false
	}
	return e.value, true
}

func (s *Service) store(key string, value any) {
	if s.ttl < 0 {
		return
	}
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, e := range s.entries {
		if !now.Before(e.expires) {
			delete(s.entries, k)
		}
	}
	s.entries[key] = entry{value: value, expires: now.Add(s.ttl)}
}

func cached[T any](s *Service, key string, fetch func() (T, error)) (T, error) {
	if v, ok := s.lookup(key); ok {
		if typed, ok := v.(T); ok {
			return typed, nil
		}
	}
	v, err := fetch()
	if err != nil {
		var zero T
		return zero, fmt.Errorf("catalog %s: %w", key, err)
	}
	s.store(key, v)
	return v, nil
}
