package intake

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"spam_filter/core/domain"
	"spam_filter/core/port/in"
	"spam_filter/core/port/out"
	"spam_filter/pkg/apperr"
)

// MaxSubmission is the largest number of samples accepted by one Submit.
const MaxSubmission = 1000

// Service classifies incoming messages and queues labeled messages for
// auto-learning.
type Service struct {
	checker in.SpamChecker
	repo    out.LearningMessageRepository
	learner *AutoLearner
	log     zerolog.Logger
}

// NewService creates the intake service. checker is normally the neural model.
func NewService(checker in.SpamChecker, repo out.LearningMessageRepository, learner *AutoLearner, log zerolog.Logger) *Service {
	return &Service{
		checker: checker,
		repo:    repo,
		learner: learner,
		log:     log.With().Str("component", "intake").Logger(),
	}
}

// Check classifies message and stores it as a learning message labeled with
// the verdict.
func (s *Service) Check(ctx context.Context, message string) (bool, error) {
	if strings.TrimSpace(message) == "" {
		return false, apperr.InvalidInput("content", "must not be empty")
	}

	spam, err := s.checker.CheckMessageForSpam(ctx, message)
	if err != nil {
		return false, err
	}

	msg := &domain.LearningMessage{Message: message, Spam: spam}
	if err := s.repo.Create(ctx, msg); err != nil {
		return spam, apperr.DatabaseError("store checked message", err)
	}

	s.log.Debug().Int64("id", msg.ID).Str("verdict", domain.Label(spam)).Msg("message checked")
	return spam, nil
}

// Submit queues labeled samples for auto-learning. With immediately an
// auto-learning pass runs before returning.
func (s *Service) Submit(ctx context.Context, samples []domain.Sample, immediately bool) error {
	if len(samples) == 0 || len(samples) > MaxSubmission {
		return apperr.InvalidInput("learning_content", "must hold between 1 and 1000 entries").
			WithDetail("count", len(samples))
	}

	msgs := make([]domain.LearningMessage, len(samples))
	for i, sample := range samples {
		if strings.TrimSpace(sample.Content) == "" {
			return apperr.InvalidInput("content", "must not be empty").WithDetail("index", i)
		}
		msgs[i] = domain.LearningMessage{Message: sample.Content, Spam: sample.Spam}
	}

	if err := s.repo.BulkCreate(ctx, msgs); err != nil {
		return apperr.DatabaseError("store learning messages", err)
	}
	s.log.Info().Int("count", len(msgs)).Bool("immediately", immediately).Msg("learning messages queued")

	if immediately && s.learner != nil {
		if _, err := s.learner.Run(ctx); err != nil {
			return err
		}
	}
	return nil
}
