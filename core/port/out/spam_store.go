package out

import (
	"context"
	"errors"

	"spam_filter/core/domain"
)

var (
	// ErrWeightsNotFound is returned when no network weights were persisted yet.
	ErrWeightsNotFound = errors.New("network weights not found")
)

// Invalidation describes which cached word counters became stale after a
// committed write. All is set when the whole store was reset.
type Invalidation struct {
	Words []string
	All   bool
}

// InvalidationHook is fired once per committed write.
type InvalidationHook func(ctx context.Context, inv Invalidation)

// WordCounterStore persists Bayes word counters.
type WordCounterStore interface {
	// Merge adds the counters to existing rows, inserting missing words,
	// inside one transaction. With reset the store is emptied first in the
	// same transaction. A Tx carried by ctx is joined instead.
	Merge(ctx context.Context, counters []domain.WordCounter, reset bool) error
	Sums(ctx context.Context) (domain.CounterSums, error)
	Lookup(ctx context.Context, words []string) (map[string]domain.WordCounter, error)
	DeleteAll(ctx context.Context) error
	SetInvalidationHook(hook InvalidationHook)
}

// WeightBlobStore persists the single serialized network.
type WeightBlobStore interface {
	Get(ctx context.Context) ([]byte, error)
	// CreateIfAbsent stores blob unless a row exists already. A lost race
	// against a concurrent creator reports created=false with a nil error.
	CreateIfAbsent(ctx context.Context, blob []byte) (created bool, err error)
	// Replace updates the stored blob, creating it when missing.
	Replace(ctx context.Context, blob []byte) error
}

// MessageSource yields raw message contents. maxItems <= 0 means no limit.
type MessageSource interface {
	Content(ctx context.Context, maxItems int) ([]string, error)
}

// LearningMessageRepository stores labeled messages for auto-learning.
type LearningMessageRepository interface {
	Create(ctx context.Context, msg *domain.LearningMessage) error
	BulkCreate(ctx context.Context, msgs []domain.LearningMessage) error
	ListByLabel(ctx context.Context, spam bool, limit int) ([]domain.LearningMessage, error)
	// ProcessUnprocessed locks every unprocessed message, hands them to fn
	// and marks them processed when fn succeeds, all in one transaction.
	ProcessUnprocessed(ctx context.Context, fn func(ctx context.Context, msgs []domain.LearningMessage) error) (int, error)
}
