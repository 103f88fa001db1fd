package source

import (
	"context"

	"spam_filter/core/port/out"
)

// LearningMessageSource reads stored learning messages of one label.
type LearningMessageSource struct {
	repo out.LearningMessageRepository
	spam bool
}

var _ out.MessageSource = (*LearningMessageSource)(nil)

func NewLearningMessageSource(repo out.LearningMessageRepository, spam bool) *LearningMessageSource {
	return &LearningMessageSource{repo: repo, spam: spam}
}

func (s *LearningMessageSource) Content(ctx context.Context, maxItems int) ([]string, error) {
	msgs, err := s.repo.ListByLabel(ctx, s.spam, maxItems)
	if err != nil {
		return nil, err
	}
	contents := make([]string, len(msgs))
	for i, m := range msgs {
		contents[i] = m.Message
	}
	return contents, nil
}
