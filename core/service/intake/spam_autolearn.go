// Package intake captures checked and submitted messages and feeds them
// back into the models.
package intake

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"spam_filter/core/domain"
	"spam_filter/core/port/in"
	"spam_filter/core/port/out"
	"spam_filter/core/service/learning"
	"spam_filter/pkg/logger"
)

// AutoLearner trains every model on the learning messages that no pass has
// consumed yet.
type AutoLearner struct {
	repo      out.LearningMessageRepository
	trainer   *learning.Trainer
	models    []in.LearningModel
	batchSize int
	enabled   bool
	log       zerolog.Logger

	mu sync.Mutex
}

// AutoLearnerConfig configures an AutoLearner.
type AutoLearnerConfig struct {
	Enabled   bool
	BatchSize int
}

// NewAutoLearner creates an auto-learner. Models are trained in the given
// order, so the Bayes model must precede the neural model that reads it.
func NewAutoLearner(repo out.LearningMessageRepository, trainer *learning.Trainer, cfg AutoLearnerConfig,
	log zerolog.Logger, models ...in.LearningModel) *AutoLearner {
	return &AutoLearner{
		repo:      repo,
		trainer:   trainer,
		models:    models,
		batchSize: cfg.BatchSize,
		enabled:   cfg.Enabled,
		log:       log.With().Str("component", "auto_learner").Logger(),
	}
}

// Enabled reports whether Run does anything.
func (a *AutoLearner) Enabled() bool {
	return a.enabled
}

// Run trains on every unprocessed learning message and marks them processed
// in the same transaction. When training fails nothing is marked and the
// messages are retried by the next pass. It returns the number of messages
// consumed.
func (a *AutoLearner) Run(ctx context.Context) (int, error) {
	if !a.enabled {
		a.log.Debug().Msg("auto-learning disabled")
		return 0, nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := logger.RunID(ctx); !ok {
		ctx = logger.WithRunID(ctx, uuid.NewString())
	}
	log := logger.Annotate(ctx, a.log)

	started := time.Now()
	n, err := a.repo.ProcessUnprocessed(ctx, func(ctx context.Context, msgs []domain.LearningMessage) error {
		samples := make([]domain.Sample, len(msgs))
		for i, m := range msgs {
			samples[i] = domain.Sample{Content: m.Message, Spam: m.Spam}
		}
		opts := learning.TrainOptions{BatchSize: a.batchSize}
		for _, model := range a.models {
			if _, err := a.trainer.TrainSamples(ctx, model, samples, opts); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("auto-learning pass failed")
		return 0, err
	}

	if n > 0 {
		log.Info().
			Int("messages", n).
			Dur("duration", time.Since(started)).
			Msg("auto-learning pass completed")
	}
	return n, nil
}
