package metrics

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"

	"github.com/dustin/go-humanize"
)

// Health is the admin view of the running process and its database.
type Health struct {
	AllocMB          uint64
	SysMB            uint64
	NumGC            uint32
	Goroutines       int
	DatabaseBytes    int64
	PlanVersions     int64
	Snapshots        int64
	PendingOverrides int64
}

// DatabaseSize renders DatabaseBytes for humans.
func (h Health) DatabaseSize() string {
	return humanize.IBytes(uint64(max(h.DatabaseBytes, 0)))
}

// Health collects runtime stats, the size of the SQLite file at dbPath and
// row counts for versions, snapshots and pending overrides. A database file
// that does not exist yet reports zero bytes.
func (s *Store) Health(ctx context.Context, dbPath string) (Health, error) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	h := Health{
		AllocMB:    m.Alloc / 1024 / 1024,
		SysMB:      m.Sys / 1024 / 1024,
		NumGC:      m.NumGC,
		Goroutines: runtime.NumGoroutine(),
	}

	info, err := os.Stat(dbPath)
	switch {
	case err == nil:
		h.DatabaseBytes = info.Size()
	case !errors.Is(err, fs.ErrNotExist):
		return h, fmt.Errorf("failed to stat database: %w", err)
	}

	counts, err := s.queries.GetRecordCounts(ctx)
	if err != nil {
		return h, fmt.Errorf("failed to count records: %w", err)
	}
	h.PlanVersions = counts.PlanVersions
	h.Snapshots = counts.Snapshots
	h.PendingOverrides = counts.PendingOverrides
	return h, nil
}
