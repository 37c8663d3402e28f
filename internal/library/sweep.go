package library

import (
	"context"
	"fmt"
	"log"
	"time"
)

// SweepResult reports what an orphan sweep did.
type SweepResult struct {
	Scanned int
	Removed int
	Failed  int
}

// SweepOrphanBlobs deletes stored files that no book references. Files
// younger than grace are kept so uploads still being recorded survive.
func (s *Service) SweepOrphanBlobs(ctx context.Context, grace time.Duration) (SweepResult, error) {
	var result SweepResult

	paths, err := s.books.FilePaths(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to load book paths: %w", err)
	}
	referenced := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		referenced[p] = struct{}{}
	}

	entries, err := s.blobs.List(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to list blobs: %w", err)
	}

	cutoff := s.now().Add(-grace)
	for _, entry := range entries {
		result.Scanned++
		if _, ok := referenced[entry.Path]; ok {
			continue
		}
		if entry.ModifiedAt.After(cutoff) {
			continue
		}
		if err := s.blobs.Delete(ctx, entry.Path); err != nil {
			log.Printf("Orphan sweep: failed to delete %s: %v", entry.Path, err)
			result.Failed++
			continue
		}
		result.Removed++
	}

	if result.Removed > 0 || result.Failed > 0 {
		log.Printf("Orphan sweep: scanned %d, removed %d, failed %d", result.Scanned, result.Removed, result.Failed)
	}
	return result, nil
}
