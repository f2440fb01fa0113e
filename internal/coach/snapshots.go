package coach

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"coach-planner/internal/apperr"
	"coach-planner/internal/snapshot"
)

// FinalizeSnapshot builds the snapshot of a plan version from its active
// overrides and persists it once. It returns the retained snapshot, which is
// the earlier one when the version was already snapshotted. A zero createdAt
// falls back to the lock time.
func (s *Service) FinalizeSnapshot(ctx context.Context, versionID string, createdAt time.Time) (snapshot.Snapshot, error) {
	const op = "coach.FinalizeSnapshot"
	ctx, span := s.start(ctx, op, attribute.String("plan_version_id", versionID))
	defer span.End()

	snap, err := s.finalize(ctx, op, versionID, createdAt)
	if err != nil {
		return snapshot.Snapshot{}, s.fail(ctx, span, op, err)
	}
	span.SetAttributes(
		attribute.String("snapshot_status", string(snap.Status)),
		attribute.Int("overrides_applied", len(snap.Metadata.OverridesApplied)))
	return snap, nil
}

func (s *Service) finalize(ctx context.Context, op, versionID string, createdAt time.Time) (snapshot.Snapshot, error) {
	existing, err := s.persister.Fetch(ctx, versionID)
	if err != nil {
		return snapshot.Snapshot{}, err
	}
	if existing != nil {
		return *existing, nil
	}

	v, err := s.version(ctx, op, versionID)
	if err != nil {
		return snapshot.Snapshot{}, err
	}
	overrides, err := s.ledger.FetchActive(ctx, v.ID)
	if err != nil {
		return snapshot.Snapshot{}, err
	}

	status := snapshot.StatusLocked
	if !s.now().Before(v.LockExpiry) {
		status = snapshot.StatusExpired
	}

	snap, err := s.builder.Build(snapshot.BuildInput{
		Status:        status,
		PlanID:        v.PlanID,
		PlanVersionID: v.ID,
		ClientID:      v.ClientID,
		Payload:       v.Payload,
		Overrides:     overrides,
		CreatedAt:     createdAt,
	})
	if err != nil {
		return snapshot.Snapshot{}, err
	}

	kept, wrote, err := s.persister.Persist(ctx, v.ID, snap)
	if err != nil {
		return snapshot.Snapshot{}, err
	}
	if wrote {
		s.inst.snapshotsWritten.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(status))))
	}
	return kept, nil
}

// FetchSnapshot returns the persisted snapshot of a version, or nil.
func (s *Service) FetchSnapshot(ctx context.Context, versionID string) (*snapshot.Snapshot, error) {
	return s.persister.Fetch(ctx, versionID)
}

// BackfillSnapshots finalises every expired version that has no snapshot.
// Versions that fail are logged and skipped; the joined errors are returned
// together with the number of snapshots written.
func (s *Service) BackfillSnapshots(ctx context.Context) (int, error) {
	const op = "coach.BackfillSnapshots"
	ctx, span := s.start(ctx, op)
	defer span.End()

	versions, err := s.plans.ListExpiredUnsnapshotted(ctx, s.now())
	if err != nil {
		return 0, s.fail(ctx, span, op, apperr.Persistence(op, err))
	}

	var (
		written int
		errs    []error
	)
	for _, v := range versions {
		if _, err := s.finalize(ctx, op, v.ID, time.Time{}); err != nil {
			s.logger.Error("COACH: Backfill failed", "plan_version_id", v.ID, "error", err)
			errs = append(errs, err)
			continue
		}
		written++
	}
	span.SetAttributes(attribute.Int("candidates", len(versions)), attribute.Int("written", written))
	s.logger.Info("COACH: Backfill finished", "candidates", len(versions), "written", written)
	return written, s.fail(ctx, span, op, errors.Join(errs...))
}
