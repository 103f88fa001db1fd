package memory

import (
	"context"
	"errors"
	"sync"

	"spam_filter/core/port/out"
)

var errDuplicateRow = errors.New("memory: weights row already exists")

// WeightBlobStore holds at most one weights row.
type WeightBlobStore struct {
	mu   sync.Mutex
	rows [][]byte
	// FailNextReplace makes the next Replace fail without changing state.
	FailNextReplace error
}

var _ out.WeightBlobStore = (*WeightBlobStore)(nil)

func NewWeightBlobStore() *WeightBlobStore {
	return &WeightBlobStore{}
}

func (s *WeightBlobStore) Get(context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.rows) == 0 {
		return nil, out.ErrWeightsNotFound
	}
	return append([]byte(nil), s.rows[0]...), nil
}

// insert enforces the single-row constraint like the unique index does.
func (s *WeightBlobStore) insert(blob []byte) error {
	if len(s.rows) > 0 {
		return errDuplicateRow
	}
	s.rows = append(s.rows, append([]byte(nil), blob...))
	return nil
}

func (s *WeightBlobStore) CreateIfAbsent(_ context.Context, blob []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.insert(blob); err != nil {
		if errors.Is(err, errDuplicateRow) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *WeightBlobStore) Replace(_ context.Context, blob []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.FailNextReplace; err != nil {
		s.FailNextReplace = nil
		return err
	}
	if len(s.rows) == 0 {
		return s.insert(blob)
	}
	s.rows[0] = append([]byte(nil), blob...)
	return nil
}

// Count returns the number of stored rows.
func (s *WeightBlobStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}
