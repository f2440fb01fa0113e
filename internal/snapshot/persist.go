package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"coach-planner/internal/apperr"
)

// Record is the stored form of a snapshot.
type Record struct {
	Data      []byte
	Seal      string
	CreatedAt time.Time
}

// Store is the write-once boundary. SaveIfAbsent must be an atomic
// conditional write that stores rec only while no snapshot exists for the
// version, reporting whether it wrote. Load returns (nil, nil) when absent.
type Store interface {
	LoadSnapshot(ctx context.Context, versionID string) (*Record, error)
	SaveSnapshotIfAbsent(ctx context.Context, versionID string, rec Record) (bool, error)
}

// Persister enforces one snapshot per plan version.
type Persister struct {
	store  Store
	sealer *Sealer
	logger *slog.Logger
}

// NewPersister creates a persister. A nil sealer disables sealing.
func NewPersister(store Store, sealer *Sealer, logger *slog.Logger) *Persister {
	if logger == nil {
		logger = slog.Default()
	}
	return &Persister{store: store, sealer: sealer, logger: logger}
}

// Persist stores snap for versionID unless a snapshot already exists. It
// returns the snapshot that is retained, which is the earlier one when the
// write was a no-op.
func (p *Persister) Persist(ctx context.Context, versionID string, snap Snapshot) (Snapshot, bool, error) {
	const op = "snapshot.Persist"

	existing, err := p.Fetch(ctx, versionID)
	if err != nil {
		return Snapshot{}, false, err
	}
	if existing != nil {
		p.logger.Info("SNAPSHOT: Already persisted, keeping existing", "plan_version_id", versionID)
		return *existing, false, nil
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	seal, err := p.sealer.Seal(versionID, data, snap.Metadata.SnapshotCreatedAt)
	if err != nil {
		return Snapshot{}, false, err
	}

	wrote, err := p.store.SaveSnapshotIfAbsent(ctx, versionID, Record{
		Data:      data,
		Seal:      seal,
		CreatedAt: snap.Metadata.SnapshotCreatedAt,
	})
	if err != nil {
		return Snapshot{}, false, apperr.Persistence(op, err)
	}
	if !wrote {
		// Another writer got there between the read and the conditional write.
		existing, err := p.Fetch(ctx, versionID)
		if err != nil {
			return Snapshot{}, false, err
		}
		if existing == nil {
			return Snapshot{}, false, apperr.NotFound(op, "plan version "+versionID+" does not exist")
		}
		p.logger.Info("SNAPSHOT: Lost write race, keeping existing", "plan_version_id", versionID)
		return *existing, false, nil
	}

	p.logger.Info("SNAPSHOT: Persisted",
		"plan_version_id", versionID,
		"status", snap.Status,
		"overrides_applied", len(snap.Metadata.OverridesApplied))
	return snap, true, nil
}

// Fetch returns the persisted snapshot for versionID, or nil when none exists.
// A seal that fails verification is a persistence error.
func (p *Persister) Fetch(ctx context.Context, versionID string) (*Snapshot, error) {
	const op = "snapshot.Fetch"
	rec, err := p.store.LoadSnapshot(ctx, versionID)
	if err != nil {
		return nil, apperr.Persistence(op, err)
	}
	if rec == nil {
		return nil, nil
	}
	if err := p.sealer.Verify(rec.Seal, versionID, rec.Data); err != nil {
		return nil, apperr.Persistence(op, err)
	}

	var snap Snapshot
	if err := json.Unmarshal(rec.Data, &snap); err != nil {
		return nil, apperr.Persistence(op, fmt.Errorf("invalid snapshot blob: %w", err))
	}
	return &snap, nil
}
