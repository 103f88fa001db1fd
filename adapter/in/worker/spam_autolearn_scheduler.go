package worker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"spam_filter/pkg/logger"
)

// =============================================================================
// AutoLearnScheduler - periodic auto-learning passes
// =============================================================================

const (
	DefaultAutoLearnInterval = 5 * time.Minute
	autoLearnPassTimeout     = 30 * time.Minute
)

// Learner runs one auto-learning pass.
type Learner interface {
	Run(ctx context.Context) (int, error)
}

// AutoLearnScheduler triggers a Learner on a fixed interval.
type AutoLearnScheduler struct {
	learner       Learner
	checkInterval time.Duration
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}

// NewAutoLearnScheduler creates a scheduler bound to parent.
func NewAutoLearnScheduler(parent context.Context, learner Learner, interval time.Duration) *AutoLearnScheduler {
	if interval <= 0 {
		interval = DefaultAutoLearnInterval
	}
	ctx, cancel := context.WithCancel(parent)
	return &AutoLearnScheduler{
		learner:       learner,
		checkInterval: interval,
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Start starts the scheduler loop.
func (s *AutoLearnScheduler) Start() {
	logger.Info("[AutoLearnScheduler] Starting, interval %s", s.checkInterval)
	s.wg.Add(1)
	go s.run()
}

// Stop stops the loop and waits for a running pass to finish.
func (s *AutoLearnScheduler) Stop() {
	logger.Info("[AutoLearnScheduler] Stopping...")
	s.cancel()
	s.wg.Wait()
}

// Done is closed once the scheduler context is cancelled.
func (s *AutoLearnScheduler) Done() <-chan struct{} {
	return s.ctx.Done()
}

func (s *AutoLearnScheduler) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	// first pass right away
	s.pass()
	for {
		select {
		case <-s.ctx.Done():
			logger.Info("[AutoLearnScheduler] Stopped")
			return
		case <-ticker.C:
			s.pass()
		}
	}
}

func (s *AutoLearnScheduler) pass() {
	ctx, cancel := context.WithTimeout(s.ctx, autoLearnPassTimeout)
	defer cancel()
	ctx = logger.WithRunID(ctx, uuid.NewString())
	log := logger.WithContext(ctx)

	n, err := s.learner.Run(ctx)
	if err != nil {
		log.Error("[AutoLearnScheduler] Pass failed: %v", err)
		return
	}
	if n > 0 {
		log.Info("[AutoLearnScheduler] Learned from %d messages", n)
	}
}
