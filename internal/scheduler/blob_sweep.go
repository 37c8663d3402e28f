package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mrlokans/elibrary/internal/config"
)

// SweepEnqueuer starts an orphan blob sweep and returns its task id.
type SweepEnqueuer interface {
	EnqueueSweep(grace time.Duration) (string, error)
}

// SweepFunc adapts a function to SweepEnqueuer, for running the sweep
// inline when the task queue is disabled.
type SweepFunc func(grace time.Duration) (string, error)

func (f SweepFunc) EnqueueSweep(grace time.Duration) (string, error) {
	return f(grace)
}

// BlobSweepScheduler periodically triggers the orphan blob sweep.
type BlobSweepScheduler struct {
	enqueuer SweepEnqueuer
	config   config.BlobSweep

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	cancelFunc context.CancelFunc
}

// NewBlobSweepScheduler creates a new scheduler instance.
func NewBlobSweepScheduler(enqueuer SweepEnqueuer, cfg config.BlobSweep) *BlobSweepScheduler {
	return &BlobSweepScheduler{
		enqueuer: enqueuer,
		config:   cfg,
		cron:     cron.New(cron.WithParser(parser)),
	}
}

// Start begins the scheduler if the sweep is enabled. The scheduler stops
// when ctx is cancelled.
func (s *BlobSweepScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if !s.config.Enabled {
		log.Printf("Blob sweep scheduler: disabled")
		return nil
	}

	if err := ValidateSchedule(s.config.Schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", s.config.Schedule, err)
	}

	entryID, err := s.cron.AddFunc(s.config.Schedule, s.runSweep)
	if err != nil {
		return fmt.Errorf("failed to schedule blob sweep: %w", err)
	}
	s.entryID = entryID

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true

	next, _ := NextRun(s.config.Schedule, time.Now())
	log.Printf("Blob sweep scheduler: started with schedule '%s' (%s). Next run: %v",
		s.config.Schedule, Describe(s.config.Schedule), next)

	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop gracefully stops the scheduler, waiting for a running trigger.
func (s *BlobSweepScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()

	if s.cancelFunc != nil {
		s.cancelFunc()
	}
	s.isRunning = false
	s.cancelFunc = nil

	log.Printf("Blob sweep scheduler: stopped")
}

// RunNow triggers a sweep immediately.
func (s *BlobSweepScheduler) RunNow() (string, error) {
	return s.enqueuer.EnqueueSweep(s.config.GracePeriod)
}

// IsRunning returns whether the scheduler is active.
func (s *BlobSweepScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRunTime returns when the next sweep will occur, or nil when stopped.
func (s *BlobSweepScheduler) NextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}
	for _, entry := range s.cron.Entries() {
		if entry.ID == s.entryID {
			t := entry.Next
			return &t
		}
	}
	return nil
}

func (s *BlobSweepScheduler) runSweep() {
	id, err := s.enqueuer.EnqueueSweep(s.config.GracePeriod)
	if err != nil {
		log.Printf("Blob sweep scheduler: failed to start sweep: %v", err)
		return
	}
	log.Printf("Blob sweep scheduler: sweep started (%s)", id)
}
