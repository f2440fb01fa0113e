package plan

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"coach-planner/internal/database"
	"coach-planner/internal/nutrition"
	plandb "coach-planner/internal/plan/plan_db"
	"coach-planner/internal/snapshot"

	"github.com/google/uuid"
)

// Repository is a database-backed repository for plans and plan versions.
type Repository struct {
	db      *database.DB
	queries *plandb.Queries
	newID   func() (uuid.UUID, error)
}

// NewRepository creates a new Repository.
func NewRepository(db *database.DB) *Repository {
	return &Repository{
		db:      db,
		queries: plandb.New(db.SQL),
		newID:   uuid.NewV7,
	}
}

// FetchActivePlan returns the latest locked version for the client, expired
// or not, or nil when the client has never locked a plan.
func (r *Repository) FetchActivePlan(ctx context.Context, clientID string) (*Version, error) {
	row, err := r.queries.GetLatestVersionByClient(ctx, clientID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch active plan for client %s: %w", clientID, err)
	}
	v, err := fromRow(row)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// GetVersion returns a version by id, or nil when unknown.
func (r *Repository) GetVersion(ctx context.Context, id string) (*Version, error) {
	row, err := r.queries.GetPlanVersion(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch plan version %s: %w", id, err)
	}
	v, err := fromRow(row)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// LockPlan persists a new version for the client's plan, creating the plan
// on first lock. Version numbers start at 1 and increase by one.
func (r *Repository) LockPlan(ctx context.Context, req LockRequest) (Version, error) {
	if err := req.Validate(); err != nil {
		return Version{}, err
	}
	payload, err := json.Marshal(req.Payload)
	if err != nil {
		return Version{}, fmt.Errorf("failed to marshal plan payload: %w", err)
	}

	var out Version
	err = r.db.WithTx(ctx, func(tx *sql.Tx) error {
		q := r.queries.WithTx(tx)

		planID, err := r.ensurePlan(ctx, q, req.ClientID, req.LockedAt)
		if err != nil {
			return err
		}
		next, err := q.NextVersionNumber(ctx, planID)
		if err != nil {
			return fmt.Errorf("failed to compute next version: %w", err)
		}
		id, err := r.newID()
		if err != nil {
			return fmt.Errorf("failed to generate version id: %w", err)
		}

		if err := q.InsertPlanVersion(ctx, plandb.InsertPlanVersionParams{
			ID:         id.String(),
			PlanID:     planID,
			ClientID:   req.ClientID,
			Version:    next,
			Payload:    string(payload),
			LockedAt:   database.FormatTime(req.LockedAt),
			LockExpiry: database.FormatTime(req.LockExpiry),
			LockedBy:   req.LockedBy,
		}); err != nil {
			return fmt.Errorf("failed to insert plan version: %w", err)
		}

		out = Version{
			ID:         id.String(),
			PlanID:     planID,
			ClientID:   req.ClientID,
			Number:     int(next),
			Payload:    req.Payload.Clone(),
			LockedAt:   req.LockedAt.UTC(),
			LockExpiry: req.LockExpiry.UTC(),
			LockedBy:   req.LockedBy,
		}
		return nil
	})
	return out, err
}

func (r *Repository) ensurePlan(ctx context.Context, q *plandb.Queries, clientID string, now time.Time) (string, error) {
	existing, err := q.GetPlanByClient(ctx, clientID)
	if err == nil {
		return existing.ID, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("failed to fetch plan: %w", err)
	}
	id, err := r.newID()
	if err != nil {
		return "", fmt.Errorf("failed to generate plan id: %w", err)
	}
	if err := q.InsertPlan(ctx, plandb.InsertPlanParams{
		ID:        id.String(),
		ClientID:  clientID,
		CreatedAt: database.FormatTime(now),
	}); err != nil {
		return "", fmt.Errorf("failed to insert plan: %w", err)
	}
	return id.String(), nil
}

// ListExpiredUnsnapshotted returns versions whose lock expired at or before
// now and that have no snapshot yet, oldest expiry first.
func (r *Repository) ListExpiredUnsnapshotted(ctx context.Context, now time.Time) ([]Version, error) {
	rows, err := r.queries.ListExpiredUnsnapshotted(ctx, database.FormatTime(now))
	if err != nil {
		return nil, fmt.Errorf("failed to list expired plan versions: %w", err)
	}
	out := make([]Version, 0, len(rows))
	for _, row := range rows {
		v, err := fromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// LoadSnapshot implements snapshot.Store.
func (r *Repository) LoadSnapshot(ctx context.Context, versionID string) (*snapshot.Record, error) {
	row, err := r.queries.GetPlanVersion(ctx, versionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load snapshot for %s: %w", versionID, err)
	}
	if !row.Snapshot.Valid {
		return nil, nil
	}
	createdAt, err := database.ParseNullTime(row.SnapshotCreatedAt)
	if err != nil {
		return nil, err
	}
	rec := &snapshot.Record{Data: []byte(row.Snapshot.String), Seal: row.SnapshotSeal.String}
	if createdAt != nil {
		rec.CreatedAt = *createdAt
	}
	return rec, nil
}

// SaveSnapshotIfAbsent implements snapshot.Store with a single conditional
// UPDATE, so concurrent writers cannot both succeed.
func (r *Repository) SaveSnapshotIfAbsent(ctx context.Context, versionID string, rec snapshot.Record) (bool, error) {
	n, err := r.queries.SetSnapshotIfAbsent(ctx, plandb.SetSnapshotIfAbsentParams{
		Snapshot:          sql.NullString{String: string(rec.Data), Valid: true},
		SnapshotSeal:      sql.NullString{String: rec.Seal, Valid: rec.Seal != ""},
		SnapshotCreatedAt: database.NullTime(&rec.CreatedAt),
		ID:                versionID,
	})
	if err != nil {
		return false, fmt.Errorf("failed to write snapshot for %s: %w", versionID, err)
	}
	return n == 1, nil
}

// fromRow is the single mapping from a stored version row to Version.
func fromRow(row plandb.PlanVersion) (Version, error) {
	var payload nutrition.MealPlanPayload
	if err := json.Unmarshal([]byte(row.Payload), &payload); err != nil {
		return Version{}, fmt.Errorf("plan version %s: invalid payload: %w", row.ID, err)
	}
	lockedAt, err := database.ParseTime(row.LockedAt)
	if err != nil {
		return Version{}, fmt.Errorf("plan version %s: %w", row.ID, err)
	}
	expiry, err := database.ParseTime(row.LockExpiry)
	if err != nil {
		return Version{}, fmt.Errorf("plan version %s: %w", row.ID, err)
	}
	if payload.LockedAt == nil {
		return Version{}, fmt.Errorf("plan version %s: stored payload has no lockedAt", row.ID)
	}
	return Version{
		ID:          row.ID,
		PlanID:      row.PlanID,
		ClientID:    row.ClientID,
		Number:      int(row.Version),
		Payload:     payload,
		LockedAt:    lockedAt,
		LockExpiry:  expiry,
		LockedBy:    row.LockedBy,
		HasSnapshot: row.Snapshot.Valid,
	}, nil
}
