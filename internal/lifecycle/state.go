// Package lifecycle drives a client's active plan through draft, lock and
// expiry. The current state is a single tagged value; every read-only flag
// is derived from it.
package lifecycle

import (
	"math"
	"time"

	"coach-planner/internal/nutrition"
	"coach-planner/internal/plan"
)

// Tag names the lifecycle state.
type Tag string

const (
	TagEmpty   Tag = "EMPTY"
	TagLoading Tag = "LOADING"
	TagDraft   Tag = "DRAFT"
	TagLocked  Tag = "LOCKED"
	TagSaving  Tag = "SAVING"
	TagError   Tag = "ERROR"
)

// LabelExpired is shown instead of LOCKED once the lock window has passed.
const LabelExpired = "EXPIRED"

// State is implemented only by the state types of this package.
type State interface {
	Tag() Tag
	sealed()
}

// Empty means the client has no draft and no locked plan.
type Empty struct{}

// Loading means a fetch is in flight.
type Loading struct{}

// Draft holds an unpersisted plan.
type Draft struct {
	Payload nutrition.MealPlanPayload
}

// Locked holds the latest persisted version; it may already be expired.
type Locked struct {
	Version plan.Version
}

// Saving holds the draft being locked.
type Saving struct {
	Draft nutrition.MealPlanPayload
}

// Failed is the blocking ERROR state.
type Failed struct {
	Err error
}

func (Empty) Tag() Tag   { return TagEmpty }
func (Loading) Tag() Tag { return TagLoading }
func (Draft) Tag() Tag   { return TagDraft }
func (Locked) Tag() Tag  { return TagLocked }
func (Saving) Tag() Tag  { return TagSaving }
func (Failed) Tag() Tag  { return TagError }

func (Empty) sealed()   {}
func (Loading) sealed() {}
func (Draft) sealed()   {}
func (Locked) sealed()  {}
func (Saving) sealed()  {}
func (Failed) sealed()  {}

// LockStatus is recomputed from the wall clock on every read.
type LockStatus struct {
	IsLocked      bool
	DaysRemaining int
}

// ComputeLockStatus reports whether now is still inside the lock window.
func ComputeLockStatus(expiry, now time.Time) LockStatus {
	remaining := expiry.Sub(now)
	if remaining <= 0 {
		return LockStatus{}
	}
	days := int(math.Ceil(remaining.Hours() / 24))
	return LockStatus{IsLocked: true, DaysRemaining: days}
}

// View is a read-only picture of the manager at one instant.
type View struct {
	ClientID string
	Tag      Tag
	// Label is Tag, except EXPIRED for a lock whose window has passed.
	Label      string
	Payload    *nutrition.MealPlanPayload
	Version    *plan.Version
	LockStatus LockStatus
	Error      string

	IsDraft   bool
	IsLocked  bool
	IsBlocked bool
	CanLock   bool
}

func viewOf(clientID string, s State, now time.Time) View {
	v := View{ClientID: clientID, Tag: s.Tag(), Label: string(s.Tag())}
	switch st := s.(type) {
	case Empty, Loading:
	case Draft:
		p := st.Payload.Clone()
		v.Payload = &p
	case Saving:
		p := st.Draft.Clone()
		v.Payload = &p
	case Locked:
		ver := st.Version.Clone()
		v.Version = &ver
		v.Payload = &ver.Payload
		v.LockStatus = ComputeLockStatus(ver.LockExpiry, now)
		if !v.LockStatus.IsLocked {
			v.Label = LabelExpired
		}
	case Failed:
		if st.Err != nil {
			v.Error = st.Err.Error()
		}
	}
	v.IsDraft = v.Tag == TagDraft
	v.IsLocked = v.LockStatus.IsLocked
	v.IsBlocked = v.Tag == TagError
	v.CanLock = v.IsDraft && !v.IsBlocked
	return v
}
