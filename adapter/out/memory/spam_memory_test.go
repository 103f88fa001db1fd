package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spam_filter/core/domain"
	"spam_filter/core/port/out"
)

func TestWordCounterStoreMerge(t *testing.T) {
	ctx := context.Background()
	store := NewWordCounterStore()

	var calls []out.Invalidation
	store.SetInvalidationHook(func(_ context.Context, inv out.Invalidation) {
		calls = append(calls, inv)
	})

	require.NoError(t, store.Merge(ctx, []domain.WordCounter{{Word: "spam", SpamCount: 1}}, true))
	require.NoError(t, store.Merge(ctx, []domain.WordCounter{{Word: "spam", SpamCount: 2, HamCount: 1}, {Word: "ham", HamCount: 1}}, false))

	c, ok := store.Get("spam")
	require.True(t, ok)
	assert.Equal(t, int64(3), c.SpamCount)
	assert.Equal(t, int64(1), c.HamCount)

	sums, err := store.Sums(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.CounterSums{Spam: 3, Ham: 2}, sums)

	require.Len(t, calls, 2)
	assert.True(t, calls[0].All)
	assert.Equal(t, []string{"spam", "ham"}, calls[1].Words)

	require.NoError(t, store.Merge(ctx, []domain.WordCounter{{Word: "new", HamCount: 1}}, true))
	assert.Equal(t, 1, store.Len())
}

func TestWordCounterStoreFailedMergeKeepsState(t *testing.T) {
	ctx := context.Background()
	store := NewWordCounterStore()
	require.NoError(t, store.Merge(ctx, []domain.WordCounter{{Word: "a", SpamCount: 1}}, false))

	store.FailNextMerge = errors.New("boom")
	assert.Error(t, store.Merge(ctx, []domain.WordCounter{{Word: "a", SpamCount: 5}}, true))

	c, _ := store.Get("a")
	assert.Equal(t, int64(1), c.SpamCount)
}

func TestWordCounterStoreMergeJoinsLearningPass(t *testing.T) {
	ctx := context.Background()
	words := NewWordCounterStore()
	words.Put(domain.WordCounter{Word: "buy", SpamCount: 4})
	fired := 0
	words.SetInvalidationHook(func(context.Context, out.Invalidation) { fired++ })

	msgs := NewLearningMessageStore()
	require.NoError(t, msgs.Create(ctx, &domain.LearningMessage{Message: "buy now", Spam: true}))

	tests := []struct {
		name      string
		reset     bool
		passErr   error
		wantBuy   int64
		wantNow   bool
		wantFired int
	}{
		{name: "failed merge pass", passErr: errors.New("weights down"), wantBuy: 4},
		{name: "failed reset pass", reset: true, passErr: errors.New("weights down"), wantBuy: 4},
		{name: "committed pass", wantBuy: 5, wantNow: true, wantFired: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fired = 0
			_, err := msgs.ProcessUnprocessed(ctx, func(ctx context.Context, _ []domain.LearningMessage) error {
				require.NoError(t, words.Merge(ctx, []domain.WordCounter{
					{Word: "buy", SpamCount: 1},
					{Word: "now", SpamCount: 1},
				}, tt.reset))
				assert.Zero(t, fired)
				return tt.passErr
			})
			if tt.passErr != nil {
				assert.ErrorIs(t, err, tt.passErr)
			} else {
				require.NoError(t, err)
			}

			c, ok := words.Get("buy")
			require.True(t, ok)
			assert.Equal(t, tt.wantBuy, c.SpamCount)
			_, ok = words.Get("now")
			assert.Equal(t, tt.wantNow, ok)
			assert.Equal(t, tt.wantFired, fired)
		})
	}
}

func TestWeightBlobStoreConcurrentCreate(t *testing.T) {
	ctx := context.Background()
	store := NewWeightBlobStore()

	var created atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ok, err := store.CreateIfAbsent(ctx, []byte{byte(i)})
			assert.NoError(t, err)
			if ok {
				created.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), created.Load())
	assert.Equal(t, 1, store.Count())
}

func TestWeightBlobStoreReplace(t *testing.T) {
	ctx := context.Background()
	store := NewWeightBlobStore()

	_, err := store.Get(ctx)
	assert.ErrorIs(t, err, out.ErrWeightsNotFound)

	require.NoError(t, store.Replace(ctx, []byte("a")))
	require.NoError(t, store.Replace(ctx, []byte("b")))
	blob, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("b"), blob)
	assert.Equal(t, 1, store.Count())
}

func TestLearningMessageStoreProcessUnprocessed(t *testing.T) {
	ctx := context.Background()
	store := NewLearningMessageStore()
	require.NoError(t, store.BulkCreate(ctx, []domain.LearningMessage{
		{Message: "spam", Spam: true},
		{Message: "ham"},
	}))

	failed, err := store.ProcessUnprocessed(ctx, func(context.Context, []domain.LearningMessage) error {
		return errors.New("training failed")
	})
	assert.Error(t, err)
	assert.Zero(t, failed)
	for _, m := range store.All() {
		assert.False(t, m.IsProcessed())
	}

	n, err := store.ProcessUnprocessed(ctx, func(_ context.Context, msgs []domain.LearningMessage) error {
		assert.Len(t, msgs, 2)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = store.ProcessUnprocessed(ctx, func(context.Context, []domain.LearningMessage) error {
		t.Fatal("nothing should be pending")
		return nil
	})
	require.NoError(t, err)
	assert.Zero(t, n)

	spam, err := store.ListByLabel(ctx, true, 0)
	require.NoError(t, err)
	require.Len(t, spam, 1)
	assert.Equal(t, "spam", spam[0].Message)
}
