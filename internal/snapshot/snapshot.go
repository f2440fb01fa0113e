// Package snapshot reconciles a locked plan with its override set into an
// immutable record and persists that record once per plan version.
package snapshot

import (
	"fmt"
	"time"

	"coach-planner/internal/nutrition"
	"coach-planner/internal/override"
)

// Status is the lock status recorded on a snapshot.
type Status string

const (
	StatusLocked  Status = "LOCKED"
	StatusExpired Status = "EXPIRED"
)

// ParseStatus accepts only the statuses a snapshot may carry.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusLocked, StatusExpired:
		return Status(s), nil
	}
	return "", fmt.Errorf("invalid snapshot status %q", s)
}

// Metadata describes where a snapshot came from.
type Metadata struct {
	PlanID            string              `json:"plan_id"`
	PlanVersionID     string              `json:"plan_version_id"`
	ClientID          string              `json:"client_id"`
	GeneratedAt       time.Time           `json:"generated_at"`
	LockedAt          time.Time           `json:"locked_at"`
	SnapshotCreatedAt time.Time           `json:"snapshot_created_at"`
	MacroTargets      nutrition.Macros    `json:"macro_targets"`
	LikedIngredients  []string            `json:"liked_ingredients"`
	OverridesApplied  []override.Override `json:"overrides_applied"`
}

// Snapshot is what the client actually received for one plan version.
type Snapshot struct {
	Status     Status               `json:"status"`
	Metadata   Metadata             `json:"metadata"`
	WeeklyPlan nutrition.WeeklyPlan `json:"weekly_plan"`
}

// Clone deep-copies the snapshot.
func (s Snapshot) Clone() Snapshot {
	if s.Metadata.LikedIngredients != nil {
		s.Metadata.LikedIngredients = append([]string(nil), s.Metadata.LikedIngredients...)
	}
	s.Metadata.OverridesApplied = override.CloneAll(s.Metadata.OverridesApplied)
	s.WeeklyPlan = s.WeeklyPlan.Clone()
	return s
}
