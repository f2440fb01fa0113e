package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"coach-planner/internal/apperr"
	"coach-planner/internal/gate"
	"coach-planner/internal/nutrition"
	"coach-planner/internal/plan"
)

// DefaultLockDuration is the immutability window started by a lock.
const DefaultLockDuration = 7 * 24 * time.Hour

// PlanStore is the persistence the lifecycle needs. FetchActivePlan returns
// (nil, nil) when the client has never locked a plan.
type PlanStore interface {
	FetchActivePlan(ctx context.Context, clientID string) (*plan.Version, error)
	LockPlan(ctx context.Context, req plan.LockRequest) (plan.Version, error)
}

// GenerateRequest is what the external generator needs to produce a draft.
type GenerateRequest struct {
	ClientID         string
	PlanType         gate.PlanType
	LikedIngredients []string
	MacroTargets     nutrition.Macros
	Restrictions     nutrition.ClientIngredientRestrictions
}

// Generator produces meal plan payloads. It is never asked to persist anything.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (nutrition.MealPlanPayload, error)
}

// Manager owns the lifecycle of one session's active client. It is safe
// for concurrent use; operations are serialized.
type Manager struct {
	mu sync.Mutex

	store        PlanStore
	generator    Generator
	gate         gate.Gate
	now          func() time.Time
	lockDuration time.Duration
	logger       *slog.Logger

	clientID string
	state    State
	// lastLocked is restored when a draft is discarded.
	lastLocked *plan.Version
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithLockDuration changes the lock window.
func WithLockDuration(d time.Duration) Option {
	return func(m *Manager) { m.lockDuration = d }
}

// WithGate replaces the default validation gate.
func WithGate(g gate.Gate) Option {
	return func(m *Manager) { m.gate = g }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// NewManager creates a manager in the EMPTY state.
func NewManager(store PlanStore, generator Generator, opts ...Option) *Manager {
	m := &Manager{
		store:        store,
		generator:    generator,
		gate:         gate.New(),
		now:          time.Now,
		lockDuration: DefaultLockDuration,
		logger:       slog.Default(),
		state:        Empty{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// View returns the current state with derived flags evaluated now.
func (m *Manager) View() View {
	m.mu.Lock()
	defer m.mu.Unlock()
	return viewOf(m.clientID, m.state, m.now())
}

// State returns the raw current state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Load selects clientID and fetches its plan. Any draft for the previous
// client is discarded. A fetch failure moves to the blocking ERROR state.
func (m *Manager) Load(ctx context.Context, clientID string) (View, error) {
	const op = "lifecycle.Load"
	m.mu.Lock()
	defer m.mu.Unlock()

	if clientID == "" {
		return m.viewLocked(), apperr.Validation(op, "client id is required")
	}
	switch m.state.(type) {
	case Failed:
		return m.viewLocked(), apperr.Conflict(op, "plan is in an error state; retry before loading")
	case Loading, Saving:
		return m.viewLocked(), apperr.Conflict(op, "another plan operation is in progress")
	}

	if _, isDraft := m.state.(Draft); isDraft {
		if clientID == m.clientID {
			return m.viewLocked(), nil
		}
		m.logger.Info("LIFECYCLE: Discarding draft on client switch", "from_client_id", m.clientID, "to_client_id", clientID)
	}
	m.clientID = clientID
	m.lastLocked = nil
	return m.fetch(ctx, op)
}

// Retry clears the ERROR state and re-enters LOADING for the current client.
func (m *Manager) Retry(ctx context.Context) (View, error) {
	const op = "lifecycle.Retry"
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, failed := m.state.(Failed); !failed {
		return m.viewLocked(), apperr.Conflict(op, "nothing to retry")
	}
	if m.clientID == "" {
		m.state = Empty{}
		return m.viewLocked(), nil
	}
	return m.fetch(ctx, op)
}

// fetch runs LOADING -> LOCKED | EMPTY | ERROR. Caller holds mu.
func (m *Manager) fetch(ctx context.Context, op string) (View, error) {
	m.state = Loading{}
	v, err := m.store.FetchActivePlan(ctx, m.clientID)
	if err != nil {
		perr := apperr.Persistence(op, err)
		m.state = Failed{Err: perr}
		m.logger.Error("LIFECYCLE: Plan fetch failed", "client_id", m.clientID, "error", err)
		return m.viewLocked(), perr
	}
	if v == nil {
		m.state = Empty{}
		return m.viewLocked(), nil
	}
	locked := v.Clone()
	m.lastLocked = &locked
	m.state = Locked{Version: locked}
	return m.viewLocked(), nil
}

// GenerateDraft asks the generator for a new draft after the validation gate
// passes. Regenerating a draft replaces it in place.
func (m *Manager) GenerateDraft(ctx context.Context, actor Actor, req GenerateRequest) (View, error) {
	const op = "lifecycle.GenerateDraft"
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := actor.Validate(); err != nil {
		return m.viewLocked(), apperr.Validation(op, err.Error())
	}
	if err := m.refuseGeneration(op); err != nil {
		return m.viewLocked(), err
	}

	req.ClientID = m.clientID
	if req.Restrictions.ClientID == "" {
		req.Restrictions.ClientID = m.clientID
	}
	if res := m.gate.Validate(m.clientID, req.Restrictions, req.PlanType); !res.Valid {
		return m.viewLocked(), apperr.Validation(op, res.Message)
	}

	payload, err := m.generator.Generate(ctx, req)
	if err != nil {
		// Generator failures are not persistence failures; the state is kept.
		return m.viewLocked(), fmt.Errorf("%s: plan generation failed: %w", op, err)
	}
	payload = payload.Clone()
	payload.LockedAt = nil
	if payload.GeneratedAt.IsZero() {
		payload.GeneratedAt = m.now().UTC()
	}

	m.state = Draft{Payload: payload}
	m.logger.Info("LIFECYCLE: Draft generated",
		"client_id", m.clientID,
		"actor_id", actor.ID,
		"plan_type", req.PlanType,
		"days", len(payload.WeeklyPlan.Days))
	return m.viewLocked(), nil
}

func (m *Manager) refuseGeneration(op string) error {
	if m.clientID == "" {
		return apperr.Conflict(op, "no client selected")
	}
	switch st := m.state.(type) {
	case Failed:
		return apperr.Conflict(op, "plan is in an error state; retry first")
	case Loading, Saving:
		return apperr.Conflict(op, "another plan operation is in progress")
	case Locked:
		if status := ComputeLockStatus(st.Version.LockExpiry, m.now()); status.IsLocked {
			return apperr.Conflict(op, fmt.Sprintf("plan is locked for %d more day(s)", status.DaysRemaining))
		}
	}
	return nil
}

// Lock persists the current draft with lockedAt = now. On failure the draft
// is kept and the error is reported without blocking.
func (m *Manager) Lock(ctx context.Context, actor Actor) (View, error) {
	const op = "lifecycle.Lock"
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := actor.Validate(); err != nil {
		return m.viewLocked(), apperr.Validation(op, err.Error())
	}
	if v := m.viewLocked(); !v.CanLock {
		if v.IsBlocked {
			return v, apperr.Conflict(op, "plan is in an error state; retry first")
		}
		return v, apperr.Conflict(op, "only a draft can be locked")
	}

	draft := m.state.(Draft).Payload
	m.state = Saving{Draft: draft}

	lockedAt := m.now().UTC()
	payload := draft.Clone()
	payload.LockedAt = &lockedAt
	v, err := m.store.LockPlan(ctx, plan.LockRequest{
		ClientID:   m.clientID,
		Payload:    payload,
		LockedAt:   lockedAt,
		LockExpiry: lockedAt.Add(m.lockDuration),
		LockedBy:   actor.ID,
	})
	if err != nil {
		m.state = Draft{Payload: draft}
		m.logger.Error("LIFECYCLE: Lock failed, draft kept", "client_id", m.clientID, "error", err)
		return m.viewLocked(), apperr.Persistence(op, err)
	}

	locked := v.Clone()
	m.lastLocked = &locked
	m.state = Locked{Version: locked}
	m.logger.Info("LIFECYCLE: Plan locked",
		"client_id", m.clientID,
		"plan_version_id", v.ID,
		"version", v.Number,
		"locked_by", actor.ID,
		"lock_expiry", v.LockExpiry)
	return m.viewLocked(), nil
}

// Discard drops the draft, restoring the previous lock if there was one.
// Outside DRAFT it does nothing.
func (m *Manager) Discard(actor Actor) (View, error) {
	const op = "lifecycle.Discard"
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := actor.Validate(); err != nil {
		return m.viewLocked(), apperr.Validation(op, err.Error())
	}
	if _, isDraft := m.state.(Draft); !isDraft {
		return m.viewLocked(), nil
	}
	if m.lastLocked != nil {
		m.state = Locked{Version: m.lastLocked.Clone()}
	} else {
		m.state = Empty{}
	}
	m.logger.Info("LIFECYCLE: Draft discarded", "client_id", m.clientID, "actor_id", actor.ID)
	return m.viewLocked(), nil
}

// Fail forces the blocking ERROR state for an unrecoverable failure found
// outside the manager.
func (m *Manager) Fail(err error) {
	if err == nil {
		err = errors.New("unknown failure")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = Failed{Err: err}
}

func (m *Manager) viewLocked() View {
	return viewOf(m.clientID, m.state, m.now())
}
