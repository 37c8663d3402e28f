package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/elibrary/internal/library"
)

// SweepOrphanBlobsQueue is the queue name of SweepOrphanBlobsTask.
const SweepOrphanBlobsQueue = "sweep_orphan_blobs"

// BlobSweeper deletes stored files that no book references.
type BlobSweeper interface {
	SweepOrphanBlobs(ctx context.Context, grace time.Duration) (library.SweepResult, error)
}

// SweepOrphanBlobsTask removes files left behind by failed deletes or
// interrupted uploads. A zero GracePeriod uses the queue's default.
type SweepOrphanBlobsTask struct {
	GracePeriod time.Duration `json:"grace_period,omitempty"`
}

// Config returns the queue configuration for sweep tasks.
func (t SweepOrphanBlobsTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        SweepOrphanBlobsQueue,
		MaxAttempts: 1,
		Backoff:     time.Minute,
		Timeout:     10 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// SweepOrphanBlobsProcessor creates a processor function for SweepOrphanBlobsTask.
func SweepOrphanBlobsProcessor(sweeper BlobSweeper, defaultGrace time.Duration) backlite.QueueProcessor[SweepOrphanBlobsTask] {
	return func(ctx context.Context, task SweepOrphanBlobsTask) error {
		if sweeper == nil {
			return fmt.Errorf("blob sweeper not configured")
		}

		grace := task.GracePeriod
		if grace <= 0 {
			grace = defaultGrace
		}

		result, err := sweeper.SweepOrphanBlobs(ctx, grace)
		if err != nil {
			return fmt.Errorf("sweep orphan blobs: %w", err)
		}

		log.Printf("[TASK] Orphan sweep scanned %d files, removed %d, failed %d", result.Scanned, result.Removed, result.Failed)
		return nil
	}
}

// NewSweepOrphanBlobsQueue creates a backlite queue for orphan sweep tasks.
func NewSweepOrphanBlobsQueue(sweeper BlobSweeper, defaultGrace time.Duration) backlite.Queue {
	return backlite.NewQueue(SweepOrphanBlobsProcessor(sweeper, defaultGrace))
}
