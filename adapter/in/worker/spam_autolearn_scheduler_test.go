package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingLearner struct {
	calls atomic.Int32
	err   error
}

func (l *countingLearner) Run(context.Context) (int, error) {
	l.calls.Add(1)
	return 1, l.err
}

func TestAutoLearnScheduler_RunsPeriodically(t *testing.T) {
	learner := &countingLearner{}
	s := NewAutoLearnScheduler(context.Background(), learner, 10*time.Millisecond)
	s.Start()

	assert.Eventually(t, func() bool { return learner.calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	s.Stop()

	after := learner.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, learner.calls.Load())
}

func TestAutoLearnScheduler_KeepsRunningAfterFailure(t *testing.T) {
	learner := &countingLearner{err: errors.New("db unavailable")}
	s := NewAutoLearnScheduler(context.Background(), learner, 10*time.Millisecond)
	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool { return learner.calls.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
}

func TestAutoLearnScheduler_StopsWithParent(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	s := NewAutoLearnScheduler(parent, &countingLearner{}, time.Hour)
	s.Start()
	cancel()

	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("scheduler did not observe parent cancellation")
	}
	s.Stop()
}
