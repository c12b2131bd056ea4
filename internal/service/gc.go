package service

import (
	"context"
	"path/filepath"
	"time"

	"github.com/driftvault/driftvault/shared/domain"
	"github.com/driftvault/driftvault/shared/logger"
)

// GarbageCollector reclaims orphaned blobs: content that exists on disk but
// has no processed catalog entry. Orphans appear when an upload is abandoned
// after the blob write, or after a file is tombstoned.
type GarbageCollector struct {
	catalog          GCCatalog
	blobs            GCBlobStore
	safetyThreshold  time.Duration
	lastCleanupStats CleanupStats
}

// CleanupStats tracks metrics from the last garbage collection run.
type CleanupStats struct {
	RunAt         time.Time
	BlobsScanned  int
	OrphanedBlobs int
	BlobsDeleted  int
	Errors        []string
	DurationMs    int64
}

// GCCatalog is the catalog surface needed to decide which blobs are live.
type GCCatalog interface {
	ActiveFiles() ([]domain.File, error)
}

// GCBlobStore is the filesystem surface needed to find and remove blobs.
type GCBlobStore interface {
	WalkFiles() ([]string, error)
	GetFileModTime(relPath string) (time.Time, error)
	DeleteByPath(relPath string) error
}

// NewGarbageCollector creates a collector. safetyThreshold is the minimum age
// a blob must have before deletion, so a blob written by an in-flight upload
// that has not reached the ledger yet is never reaped.
func NewGarbageCollector(catalog GCCatalog, blobs GCBlobStore, safetyThreshold time.Duration) *GarbageCollector {
	return &GarbageCollector{
		catalog:         catalog,
		blobs:           blobs,
		safetyThreshold: safetyThreshold,
	}
}

// StartBackgroundCleanup starts a goroutine that runs cleanup periodically
// until the context is cancelled.
func (gc *GarbageCollector) StartBackgroundCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	logger.Log.Info("started blob garbage collector", "interval", interval, "safety_threshold", gc.safetyThreshold)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := gc.RunCleanup(); err != nil {
					logger.Log.Error("blob gc cycle failed", "error", err)
					continue
				}
				stats := gc.LastCleanupStats()
				logger.Log.Info("blob gc completed",
					"scanned", stats.BlobsScanned,
					"orphans", stats.OrphanedBlobs,
					"deleted", stats.BlobsDeleted,
					"duration_ms", stats.DurationMs,
					"errors", len(stats.Errors))
			case <-ctx.Done():
				logger.Log.Info("blob gc shutting down")
				return
			}
		}
	}()
}

// RunCleanup executes a single collection cycle. It can be called manually
// for testing or maintenance.
func (gc *GarbageCollector) RunCleanup() error {
	startTime := time.Now()
	stats := CleanupStats{RunAt: startTime, Errors: []string{}}

	active, err := gc.catalog.ActiveFiles()
	if err != nil {
		return err
	}
	live := make(map[string]bool, len(active))
	for _, f := range active {
		live[filepath.ToSlash(filepath.Join(f.Id[:2], f.Id))] = true
	}

	blobPaths, err := gc.blobs.WalkFiles()
	if err != nil {
		return err
	}
	stats.BlobsScanned = len(blobPaths)

	for _, relPath := range blobPaths {
		if live[filepath.ToSlash(relPath)] {
			continue
		}

		modTime, err := gc.blobs.GetFileModTime(relPath)
		if err != nil {
			stats.Errors = append(stats.Errors, "stat error: "+relPath+": "+err.Error())
			continue
		}
		if time.Since(modTime) < gc.safetyThreshold {
			// Too young, might belong to an upload still in flight.
			continue
		}

		stats.OrphanedBlobs++
		if err := gc.blobs.DeleteByPath(relPath); err != nil {
			stats.Errors = append(stats.Errors, "delete error: "+relPath+": "+err.Error())
		} else {
			stats.BlobsDeleted++
		}
	}

	stats.DurationMs = time.Since(startTime).Milliseconds()
	gc.lastCleanupStats = stats
	return nil
}

// LastCleanupStats returns statistics from the last cleanup run.
func (gc *GarbageCollector) LastCleanupStats() CleanupStats {
	return gc.lastCleanupStats
}
