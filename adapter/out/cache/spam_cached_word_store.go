// Package cache decorates the word counter store with a Redis read-through
// cache invalidated by committed writes.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"spam_filter/core/domain"
	"spam_filter/core/port/out"
	rediscache "spam_filter/pkg/cache"
	"spam_filter/pkg/metrics"
	"spam_filter/pkg/resilience"
)

const (
	resultHit   = "hit"
	resultMiss  = "miss"
	resultError = "error"
)

// Options configures CachedWordStore.
type Options struct {
	Prefix string
	TTL    time.Duration
}

// DefaultOptions returns the default cache key prefix and entry lifetime.
func DefaultOptions() Options {
	return Options{Prefix: "spamfilter:bayes:", TTL: 24 * time.Hour}
}

// cachedCounter is the cached form of a lookup. Present=false caches an
// unknown word.
type cachedCounter struct {
	Present bool  `json:"p"`
	Spam    int64 `json:"s"`
	Ham     int64 `json:"h"`
}

// CachedWordStore implements out.WordCounterStore in front of another store.
// Cache failures never fail a read; they fall through to the wrapped store.
type CachedWordStore struct {
	next    out.WordCounterStore
	cache   *rediscache.RedisCache
	breaker *resilience.CircuitBreaker
	opts    Options
	log     zerolog.Logger

	mu   sync.RWMutex
	hook out.InvalidationHook
}

var _ out.WordCounterStore = (*CachedWordStore)(nil)

// NewCachedWordStore wraps next and subscribes to its invalidations.
func NewCachedWordStore(next out.WordCounterStore, c *rediscache.RedisCache, breaker *resilience.CircuitBreaker,
	opts Options, log zerolog.Logger) *CachedWordStore {
	if opts.Prefix == "" {
		opts.Prefix = DefaultOptions().Prefix
	}
	s := &CachedWordStore{
		next:    next,
		cache:   c,
		breaker: breaker,
		opts:    opts,
		log:     log.With().Str("component", "word_cache").Logger(),
	}
	next.SetInvalidationHook(s.invalidate)
	return s
}

func (s *CachedWordStore) sumsKey() string {
	return s.opts.Prefix + "sums"
}

func (s *CachedWordStore) wordKey(word string) string {
	return s.opts.Prefix + "w:" + word
}

// SetInvalidationHook registers a hook called after the cache was invalidated.
func (s *CachedWordStore) SetInvalidationHook(hook out.InvalidationHook) {
	s.mu.Lock()
	s.hook = hook
	s.mu.Unlock()
}

func (s *CachedWordStore) invalidate(ctx context.Context, inv out.Invalidation) {
	err := s.breaker.Execute(func() error {
		if inv.All {
			_, err := s.cache.DeleteByPrefix(ctx, s.opts.Prefix)
			return err
		}
		keys := make([]string, 0, len(inv.Words)+1)
		keys = append(keys, s.sumsKey())
		for _, w := range inv.Words {
			keys = append(keys, s.wordKey(w))
		}
		return s.cache.DeleteMulti(ctx, keys)
	})
	if err != nil {
		s.log.Warn().Err(err).Bool("all", inv.All).Int("words", len(inv.Words)).Msg("cache invalidation failed")
	}

	s.mu.RLock()
	hook := s.hook
	s.mu.RUnlock()
	if hook != nil {
		hook(ctx, inv)
	}
}

// Merge writes through; invalidation arrives via the wrapped store's hook.
func (s *CachedWordStore) Merge(ctx context.Context, counters []domain.WordCounter, reset bool) error {
	return s.next.Merge(ctx, counters, reset)
}

// DeleteAll writes through.
func (s *CachedWordStore) DeleteAll(ctx context.Context) error {
	return s.next.DeleteAll(ctx)
}

// Sums reads the cached aggregate, loading it on a miss. Reads inside an
// out.Tx see uncommitted rows and bypass the cache.
func (s *CachedWordStore) Sums(ctx context.Context) (domain.CounterSums, error) {
	if _, ok := out.TxFrom(ctx); ok {
		return s.next.Sums(ctx)
	}
	var sums domain.CounterSums
	var found bool
	err := s.breaker.Execute(func() error {
		var err error
		found, err = s.cache.GetJSON(ctx, s.sumsKey(), &sums)
		return err
	})
	switch {
	case err != nil:
		s.record(resultError, 1)
		s.log.Debug().Err(err).Msg("sums cache read failed")
	case found:
		s.record(resultHit, 1)
		return sums, nil
	default:
		s.record(resultMiss, 1)
	}

	sums, err = s.next.Sums(ctx)
	if err != nil {
		return domain.CounterSums{}, err
	}
	s.store(func() error { return s.cache.SetJSON(ctx, s.sumsKey(), sums, s.opts.TTL) })
	return sums, nil
}

// Lookup serves cached words and loads the rest from the wrapped store.
// Like Sums it bypasses the cache inside an out.Tx.
func (s *CachedWordStore) Lookup(ctx context.Context, words []string) (map[string]domain.WordCounter, error) {
	if _, ok := out.TxFrom(ctx); ok {
		return s.next.Lookup(ctx, words)
	}
	found := make(map[string]domain.WordCounter, len(words))
	if len(words) == 0 {
		return found, nil
	}

	keys := make([]string, len(words))
	for i, w := range words {
		keys[i] = s.wordKey(w)
	}

	var cached map[string]string
	err := s.breaker.Execute(func() error {
		var err error
		cached, err = s.cache.GetMulti(ctx, keys)
		return err
	})
	if err != nil {
		s.record(resultError, len(words))
		s.log.Debug().Err(err).Msg("word cache read failed")
		cached = nil
	}

	missing := make([]string, 0, len(words))
	for i, w := range words {
		raw, ok := cached[keys[i]]
		if !ok {
			missing = append(missing, w)
			continue
		}
		var entry cachedCounter
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			missing = append(missing, w)
			continue
		}
		if entry.Present {
			found[w] = domain.WordCounter{Word: w, SpamCount: entry.Spam, HamCount: entry.Ham}
		}
	}
	if cached != nil {
		s.record(resultHit, len(words)-len(missing))
		s.record(resultMiss, len(missing))
	}
	if len(missing) == 0 {
		return found, nil
	}

	loaded, err := s.next.Lookup(ctx, missing)
	if err != nil {
		return nil, err
	}
	items := make(map[string]interface{}, len(missing))
	for _, w := range missing {
		c, ok := loaded[w]
		if ok {
			found[w] = c
		}
		items[s.wordKey(w)] = cachedCounter{Present: ok, Spam: c.SpamCount, Ham: c.HamCount}
	}
	s.store(func() error { return s.cache.SetMultiJSON(ctx, items, s.opts.TTL) })
	return found, nil
}

func (s *CachedWordStore) store(fn func() error) {
	if err := s.breaker.Execute(fn); err != nil {
		s.log.Debug().Err(err).Msg("cache write failed")
	}
}

func (s *CachedWordStore) record(result string, n int) {
	if n > 0 {
		metrics.CacheRequests.WithLabelValues(result).Add(float64(n))
	}
}
