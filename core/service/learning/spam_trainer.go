// Package learning implements the Bayes and neural spam models and the
// batch training orchestration shared by both.
package learning

import (
	"context"
	"fmt"
	"iter"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"spam_filter/core/domain"
	"spam_filter/core/port/in"
	"spam_filter/core/port/out"
	"spam_filter/pkg/apperr"
	"spam_filter/pkg/logger"
)

// DefaultBatchSize is the stock training batch size.
const DefaultBatchSize = 1000

// TrainOptions control an orchestrated training run.
type TrainOptions struct {
	BatchSize int
	// Init replaces the persisted model state with the first batch.
	Init bool
	// MaxItems caps how many messages are read from each source.
	MaxItems int
}

// Trainer drives a model through batched training runs.
type Trainer struct {
	log zerolog.Logger
}

func NewTrainer(log zerolog.Logger) *Trainer {
	return &Trainer{log: log.With().Str("component", "trainer").Logger()}
}

// TrainFromSources trains model on every spam message followed by every ham
// message.
func (t *Trainer) TrainFromSources(ctx context.Context, model in.LearningModel, spam, ham out.MessageSource, opts TrainOptions) (int, error) {
	return t.Train(ctx, model, LabeledStream(ctx, spam, ham, opts.MaxItems), opts)
}

// Train consumes samples in batches of BatchSize. Only the first batch is
// trained with Init. The run stops after the first short batch; a failing
// batch aborts the run and leaves earlier batches committed. It returns the
// number of samples trained. Runs reuse the run id carried by ctx.
func (t *Trainer) Train(ctx context.Context, model in.LearningModel, samples iter.Seq2[domain.Sample, error], opts TrainOptions) (int, error) {
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	if _, ok := logger.RunID(ctx); !ok {
		ctx = logger.WithRunID(ctx, uuid.NewString())
	}
	log := logger.Annotate(ctx, t.log).With().Str("model", string(model.Name())).Logger()

	next, stop := iter.Pull2(samples)
	defer stop()

	init := opts.Init
	total := 0
	for batchNo := 0; ; batchNo++ {
		batch := make([]domain.Sample, 0, batchSize)
		for len(batch) < batchSize {
			sample, err, ok := next()
			if !ok {
				break
			}
			if err != nil {
				return total, err
			}
			batch = append(batch, sample)
		}

		if len(batch) > 0 {
			if err := model.TrainBatch(ctx, batch, init); err != nil {
				log.Error().Err(err).Int("batch", batchNo).Msg("training batch failed")
				return total, apperr.TrainingBatchFailure(string(model.Name()), batchNo, err)
			}
			total += len(batch)
			init = false
			log.Debug().Int("batch", batchNo).Int("size", len(batch)).Msg("batch committed")
		}

		if len(batch) < batchSize {
			break
		}
	}

	log.Info().Int("samples", total).Bool("init", opts.Init).Msg("training run finished")
	return total, nil
}

// TrainSamples trains on an in-memory sample list.
func (t *Trainer) TrainSamples(ctx context.Context, model in.LearningModel, samples []domain.Sample, opts TrainOptions) (int, error) {
	return t.Train(ctx, model, SliceStream(samples), opts)
}

// SliceStream yields samples in order.
func SliceStream(samples []domain.Sample) iter.Seq2[domain.Sample, error] {
	return func(yield func(domain.Sample, error) bool) {
		for _, s := range samples {
			if !yield(s, nil) {
				return
			}
		}
	}
}

// LabeledStream yields the content of spam labeled as spam, then the content
// of ham labeled as ham. Sources are read lazily when iteration reaches them.
func LabeledStream(ctx context.Context, spam, ham out.MessageSource, maxItems int) iter.Seq2[domain.Sample, error] {
	return func(yield func(domain.Sample, error) bool) {
		for _, src := range []struct {
			source out.MessageSource
			spam   bool
		}{{spam, true}, {ham, false}} {
			if src.source == nil {
				continue
			}
			contents, err := src.source.Content(ctx, maxItems)
			if err != nil {
				yield(domain.Sample{}, fmt.Errorf("failed to read %s source: %w", domain.Label(src.spam), err))
				return
			}
			for _, c := range contents {
				if !yield(domain.Sample{Content: c, Spam: src.spam}, nil) {
					return
				}
			}
		}
	}
}
