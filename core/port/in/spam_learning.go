package in

import (
	"context"

	"spam_filter/core/domain"
)

// SpamChecker classifies a single message.
type SpamChecker interface {
	CheckMessageForSpam(ctx context.Context, message string) (bool, error)
}

// LearningModel is implemented by the Bayes and neural variants.
type LearningModel interface {
	SpamChecker

	Name() domain.ModelName
	// TrainBatch trains on one batch. With init the persisted state is
	// replaced instead of extended.
	TrainBatch(ctx context.Context, samples []domain.Sample, init bool) error
	// Checker returns a checker bound to the currently persisted model, for
	// repeated checks without reloading state.
	Checker(ctx context.Context) (SpamChecker, error)
}
