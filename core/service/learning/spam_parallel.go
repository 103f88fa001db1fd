package learning

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/go-pkgz/pool"

	"spam_filter/core/domain"
)

type indexedSample struct {
	index  int
	sample domain.Sample
}

// sampleWorker implements pool.Worker. Every result lands in its own slot,
// so workers share no mutable state. After the first failure the remaining
// samples are drained without work.
type sampleWorker[R any] struct {
	fn      func(ctx context.Context, sample domain.Sample) (R, error)
	results []R

	failed  atomic.Bool
	errOnce sync.Once
	err     error
}

// Do implements pool.Worker interface.
func (w *sampleWorker[R]) Do(ctx context.Context, item indexedSample) error {
	if w.failed.Load() {
		return nil
	}
	if err := ctx.Err(); err != nil {
		w.fail(err)
		return nil
	}
	res, err := w.fn(ctx, item.sample)
	if err != nil {
		w.fail(fmt.Errorf("sample %d: %w", item.index, err))
		return nil
	}
	w.results[item.index] = res
	return nil
}

func (w *sampleWorker[R]) fail(err error) {
	w.errOnce.Do(func() {
		w.err = err
		w.failed.Store(true)
	})
}

// mapSamples applies fn to every sample on a pool of the given width and
// returns the results in input order. The first failure aborts the run.
func mapSamples[R any](ctx context.Context, width int, samples []domain.Sample,
	fn func(ctx context.Context, sample domain.Sample) (R, error)) ([]R, error) {
	results := make([]R, len(samples))
	if len(samples) == 0 {
		return results, nil
	}
	if width <= 0 {
		width = runtime.NumCPU()
	}
	if width > len(samples) {
		width = len(samples)
	}

	worker := &sampleWorker[R]{fn: fn, results: results}
	p := pool.New[indexedSample](width, worker).WithBatchSize(1)
	if err := p.Go(ctx); err != nil {
		return nil, fmt.Errorf("failed to start worker pool: %w", err)
	}
	for i, s := range samples {
		p.Submit(indexedSample{index: i, sample: s})
	}
	if err := p.Close(ctx); err != nil {
		return nil, err
	}
	if worker.err != nil {
		return nil, worker.err
	}
	return results, nil
}
