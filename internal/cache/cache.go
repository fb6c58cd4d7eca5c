package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"
)

// Cache is the read side shared by the report caches.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Size() int
}

var _ Cache[int] = (*LRUCache[int])(nil)

// Loader fronts an LRUCache with a single in-flight load per key.
type Loader[T any] struct {
	cache *LRUCache[T]
	group singleflight.Group
}

func NewLoader[T any](c *LRUCache[T]) *Loader[T] {
	return &Loader[T]{cache: c}
}

// Load returns the fresh cached value for key or calls fn once for all
// concurrent callers. A load that races with Invalidate is stored as stale.
// fn runs detached from the caller's cancellation since other callers may
// be waiting on it.
func (l *Loader[T]) Load(ctx context.Context, key string, fn func(context.Context) (T, error)) (T, error) {
	if v, ok := l.cache.Get(key); ok {
		return v, nil
	}

	gen := l.cache.Generation()
	v, err, _ := l.group.Do(fmt.Sprintf("%s#%d", key, gen), func() (any, error) {
		data, err := fn(context.WithoutCancel(ctx))
		if err != nil {
			return data, err
		}
		l.cache.SetIfCurrent(key, data, gen)
		return data, nil
	})
	data, _ := v.(T)
	return data, err
}

// Stale returns the last stored value for key, fresh or not.
func (l *Loader[T]) Stale(key string) (T, bool) {
	v, _, ok := l.cache.GetStale(key)
	return v, ok
}

// Invalidate marks every cached value stale.
func (l *Loader[T]) Invalidate() int {
	return l.cache.ExpireAll()
}

// Cleaner is implemented by caches that drop old entries on demand.
type Cleaner interface {
	CleanExpired() int
}

// Manager periodically cleans the registered caches.
type Manager struct {
	caches      []Cleaner
	stopCleanup chan struct{}
	cleanupDone chan struct{}
	logger      *slog.Logger
	started     bool
}

func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		caches:      make([]Cleaner, 0),
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
		logger:      logger,
	}
}

func (m *Manager) Register(cache Cleaner) {
	m.caches = append(m.caches, cache)
}

// StartCleanup begins periodic cleanup of all registered caches.
func (m *Manager) StartCleanup(interval time.Duration) {
	m.started = true
	go m.cleanup(interval)
}

func (m *Manager) cleanup(interval time.Duration) {
	defer close(m.cleanupDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := m.CleanNow(); n > 0 {
				m.logger.Debug("Cache cleanup", "removed", n)
			}
		case <-m.stopCleanup:
			return
		}
	}
}

// CleanNow runs one cleanup pass and returns the number of removed entries.
func (m *Manager) CleanNow() int {
	total := 0
	for _, c := range m.caches {
		total += c.CleanExpired()
	}
	return total
}

// Stop ends the cleanup routine started by StartCleanup.
func (m *Manager) Stop() {
	select {
	case <-m.stopCleanup:
		return
	default:
	}
	close(m.stopCleanup)
	if m.started {
		<-m.cleanupDone
	}
}
