// Package memory provides in-process stores with the same transactional
// semantics as the database adapters.
package memory

import (
	"context"
	"sync"

	"spam_filter/core/domain"
	"spam_filter/core/port/out"
)

// WordCounterStore keeps word counters in a map guarded by a mutex.
type WordCounterStore struct {
	mu       sync.RWMutex
	counters map[string]domain.WordCounter
	hook     out.InvalidationHook
	// FailNextMerge makes the next Merge fail without changing state.
	FailNextMerge error
}

var _ out.WordCounterStore = (*WordCounterStore)(nil)

func NewWordCounterStore() *WordCounterStore {
	return &WordCounterStore{counters: make(map[string]domain.WordCounter)}
}

func (s *WordCounterStore) SetInvalidationHook(hook out.InvalidationHook) {
	s.mu.Lock()
	s.hook = hook
	s.mu.Unlock()
}

// Merge applies counters at once. When ctx carries an out.Tx the previous
// state is restored on rollback and the hook waits for the commit.
func (s *WordCounterStore) Merge(ctx context.Context, counters []domain.WordCounter, reset bool) error {
	s.mu.Lock()
	if err := s.FailNextMerge; err != nil {
		s.FailNextMerge = nil
		s.mu.Unlock()
		return err
	}
	utx, joined := out.TxFrom(ctx)
	if joined {
		utx.OnRollback(s.snapshot(counters, reset))
	}
	if reset {
		s.counters = make(map[string]domain.WordCounter, len(counters))
	}
	for _, c := range counters {
		existing := s.counters[c.Word]
		existing.Word = c.Word
		existing.SpamCount += c.SpamCount
		existing.HamCount += c.HamCount
		s.counters[c.Word] = existing
	}
	hook := s.hook
	s.mu.Unlock()

	if hook == nil {
		return nil
	}
	inv := out.Invalidation{Words: domain.Words(counters), All: reset}
	if joined {
		utx.AfterCommit(func(ctx context.Context) { hook(ctx, inv) })
		return nil
	}
	hook(ctx, inv)
	return nil
}

// snapshot captures what a merge of counters overwrites and returns the
// restore step. Callers hold mu.
func (s *WordCounterStore) snapshot(counters []domain.WordCounter, reset bool) func() {
	if reset {
		saved := make(map[string]domain.WordCounter, len(s.counters))
		for w, c := range s.counters {
			saved[w] = c
		}
		return func() {
			s.mu.Lock()
			s.counters = saved
			s.mu.Unlock()
		}
	}
	saved := make(map[string]*domain.WordCounter, len(counters))
	for _, c := range counters {
		if prev, ok := s.counters[c.Word]; ok {
			saved[c.Word] = &prev
		} else {
			saved[c.Word] = nil
		}
	}
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for w, prev := range saved {
			if prev == nil {
				delete(s.counters, w)
			} else {
				s.counters[w] = *prev
			}
		}
	}
}

func (s *WordCounterStore) Sums(context.Context) (domain.CounterSums, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var sums domain.CounterSums
	for _, c := range s.counters {
		sums.Spam += c.SpamCount
		sums.Ham += c.HamCount
	}
	return sums, nil
}

func (s *WordCounterStore) Lookup(_ context.Context, words []string) (map[string]domain.WordCounter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	found := make(map[string]domain.WordCounter, len(words))
	for _, w := range words {
		if c, ok := s.counters[w]; ok {
			found[w] = c
		}
	}
	return found, nil
}

func (s *WordCounterStore) DeleteAll(ctx context.Context) error {
	s.mu.Lock()
	s.counters = make(map[string]domain.WordCounter)
	hook := s.hook
	s.mu.Unlock()

	if hook != nil {
		hook(ctx, out.Invalidation{All: true})
	}
	return nil
}

// Get returns one counter for assertions.
func (s *WordCounterStore) Get(word string) (domain.WordCounter, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.counters[word]
	return c, ok
}

// Len returns the number of stored words.
func (s *WordCounterStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.counters)
}

// Put stores a counter directly, bypassing the invalidation hook.
func (s *WordCounterStore) Put(c domain.WordCounter) {
	s.mu.Lock()
	s.counters[c.Word] = c
	s.mu.Unlock()
}
