package learning

import (
	"context"
	"fmt"

	"spam_filter/core/domain"
	"spam_filter/core/port/in"
	"spam_filter/core/port/out"
)

// CheckForValid classifies up to limit messages of each source with a
// checker bound to the current model and returns every disagreement with
// the source label.
func (t *Trainer) CheckForValid(ctx context.Context, model in.LearningModel, spam, ham out.MessageSource, limit int) ([]domain.Mismatch, error) {
	var samples []domain.Sample
	for sample, err := range LabeledStream(ctx, spam, ham, limit) {
		if err != nil {
			return nil, err
		}
		samples = append(samples, sample)
	}
	return t.Validate(ctx, model, samples)
}

// Validate classifies held-out samples and returns the mismatches in input
// order.
func (t *Trainer) Validate(ctx context.Context, model in.LearningModel, samples []domain.Sample) ([]domain.Mismatch, error) {
	checker, err := model.Checker(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s model: %w", model.Name(), err)
	}

	var mismatches []domain.Mismatch
	for i, s := range samples {
		got, err := checker.CheckMessageForSpam(ctx, s.Content)
		if err != nil {
			return nil, fmt.Errorf("failed to check sample %d: %w", i, err)
		}
		t.log.Debug().
			Int("sample", i).
			Str("expected", domain.Label(s.Spam)).
			Str("got", domain.Label(got)).
			Msg("validated")
		if got != s.Spam {
			mismatches = append(mismatches, domain.Mismatch{Message: s.Content, Expected: s.Spam})
		}
	}
	t.log.Info().
		Str("model", string(model.Name())).
		Int("checked", len(samples)).
		Int("mismatches", len(mismatches)).
		Msg("validation finished")
	return mismatches, nil
}
