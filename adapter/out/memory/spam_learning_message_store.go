package memory

import (
	"context"
	"sync"
	"time"

	"spam_filter/core/domain"
	"spam_filter/core/port/out"
)

// LearningMessageStore keeps labeled messages in insertion order.
type LearningMessageStore struct {
	mu     sync.Mutex
	nextID int64
	msgs   []domain.LearningMessage
	now    func() time.Time
}

var _ out.LearningMessageRepository = (*LearningMessageStore)(nil)

func NewLearningMessageStore() *LearningMessageStore {
	return &LearningMessageStore{now: time.Now}
}

func (s *LearningMessageStore) Create(_ context.Context, msg *domain.LearningMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	msg.ID = s.nextID
	s.msgs = append(s.msgs, *msg)
	return nil
}

func (s *LearningMessageStore) BulkCreate(ctx context.Context, msgs []domain.LearningMessage) error {
	for i := range msgs {
		if err := s.Create(ctx, &msgs[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *LearningMessageStore) ListByLabel(_ context.Context, spam bool, limit int) ([]domain.LearningMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var found []domain.LearningMessage
	for _, m := range s.msgs {
		if m.Spam != spam {
			continue
		}
		found = append(found, m)
		if limit > 0 && len(found) == limit {
			break
		}
	}
	return found, nil
}

// ProcessUnprocessed holds the store lock for the whole callback, which
// stands in for the row locks of the database adapter. fn runs inside an
// out.Tx so memory stores joining it roll back with a failed pass.
func (s *LearningMessageStore) ProcessUnprocessed(ctx context.Context, fn func(ctx context.Context, msgs []domain.LearningMessage) error) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pending []int
	batch := make([]domain.LearningMessage, 0)
	for i, m := range s.msgs {
		if m.Processed == nil {
			pending = append(pending, i)
			batch = append(batch, m)
		}
	}
	if len(batch) == 0 {
		return 0, nil
	}
	utx := out.NewTx(nil)
	if err := fn(out.WithTx(ctx, utx), batch); err != nil {
		utx.RolledBack()
		return 0, err
	}
	now := s.now()
	for _, i := range pending {
		processed := now
		s.msgs[i].Processed = &processed
	}
	utx.Committed(ctx)
	return len(batch), nil
}

// All returns a copy of every stored message.
func (s *LearningMessageStore) All() []domain.LearningMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.LearningMessage(nil), s.msgs...)
}
