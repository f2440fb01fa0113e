// Package plan stores locked plan versions and their write-once snapshots.
package plan

import (
	"fmt"
	"time"

	"coach-planner/internal/nutrition"
)

// Version is one locked, persisted revision of a client's plan.
type Version struct {
	ID          string
	PlanID      string
	ClientID    string
	Number      int
	Payload     nutrition.MealPlanPayload
	LockedAt    time.Time
	LockExpiry  time.Time
	LockedBy    string
	HasSnapshot bool
}

// Clone deep-copies the version.
func (v Version) Clone() Version {
	v.Payload = v.Payload.Clone()
	return v
}

// LockRequest is what the lifecycle hands over when a draft is locked.
// Payload.LockedAt must already equal LockedAt.
type LockRequest struct {
	ClientID   string
	Payload    nutrition.MealPlanPayload
	LockedAt   time.Time
	LockExpiry time.Time
	LockedBy   string
}

// Validate checks the request before it reaches storage.
func (r LockRequest) Validate() error {
	switch {
	case r.ClientID == "":
		return fmt.Errorf("client id is required")
	case r.LockedBy == "":
		return fmt.Errorf("locking actor is required")
	case r.Payload.LockedAt == nil || !r.Payload.LockedAt.Equal(r.LockedAt):
		return fmt.Errorf("payload lockedAt must match the lock time")
	case !r.LockExpiry.After(r.LockedAt):
		return fmt.Errorf("lock expiry must be after the lock time")
	}
	return nil
}
