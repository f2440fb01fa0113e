package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"coach-planner/internal/apperr"
	"coach-planner/internal/gate"
	"coach-planner/internal/nutrition"
	"coach-planner/internal/plan"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	active   map[string]*plan.Version
	fetchErr error
	lockErr  error
	locks    []plan.LockRequest
}

func newFakeStore() *fakeStore {
	return &fakeStore{active: map[string]*plan.Version{}}
}

func (f *fakeStore) FetchActivePlan(_ context.Context, clientID string) (*plan.Version, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	if v, ok := f.active[clientID]; ok {
		c := v.Clone()
		return &c, nil
	}
	return nil, nil
}

func (f *fakeStore) LockPlan(_ context.Context, req plan.LockRequest) (plan.Version, error) {
	if f.lockErr != nil {
		return plan.Version{}, f.lockErr
	}
	if err := req.Validate(); err != nil {
		return plan.Version{}, err
	}
	f.locks = append(f.locks, req)
	v := plan.Version{
		ID:         "v" + string(rune('0'+len(f.locks))),
		PlanID:     "p-" + req.ClientID,
		ClientID:   req.ClientID,
		Number:     len(f.locks),
		Payload:    req.Payload.Clone(),
		LockedAt:   req.LockedAt,
		LockExpiry: req.LockExpiry,
		LockedBy:   req.LockedBy,
	}
	f.active[req.ClientID] = &v
	return v, nil
}

type fakeGenerator struct {
	calls int
	err   error
}

func (g *fakeGenerator) Generate(_ context.Context, req GenerateRequest) (nutrition.MealPlanPayload, error) {
	g.calls++
	if g.err != nil {
		return nutrition.MealPlanPayload{}, g.err
	}
	week := nutrition.WeeklyPlan{TargetMacros: req.MacroTargets.Scale(float64(req.PlanType.Days()))}
	for i := 1; i <= req.PlanType.Days(); i++ {
		week.Days = append(week.Days, nutrition.PlanDay{DayNumber: i, DayName: "Day", Plan: nutrition.DailyPlan{TargetMacros: req.MacroTargets}})
	}
	return nutrition.MealPlanPayload{
		MacroTargets:     req.MacroTargets,
		WeeklyPlan:       week,
		LikedIngredients: req.LikedIngredients,
	}, nil
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

var (
	coach = Actor{ID: "coach-1", Role: RoleCoach}
	t0    = time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
)

func weeklyRequest() GenerateRequest {
	liked := []string{"chicken", "rice", "broccoli", "oats", "salmon"}
	return GenerateRequest{
		PlanType:         gate.PlanWeekly,
		LikedIngredients: liked,
		MacroTargets:     nutrition.Macros{Calories: 2000, Protein: 150, Carbs: 200, Fat: 70},
		Restrictions:     nutrition.ClientIngredientRestrictions{Preferred: liked},
	}
}

func newTestManager(store *fakeStore, gen *fakeGenerator, c *clock) *Manager {
	return NewManager(store, gen, WithClock(c.now))
}

func TestLoadResolvesToEmptyOrLocked(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	c := &clock{t: t0}
	m := newTestManager(store, &fakeGenerator{}, c)

	assert.Equal(t, TagEmpty, m.View().Tag)

	v, err := m.Load(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, TagEmpty, v.Tag)

	store.active["c2"] = &plan.Version{ID: "v9", ClientID: "c2", LockedAt: t0, LockExpiry: t0.Add(DefaultLockDuration)}
	v, err = m.Load(ctx, "c2")
	require.NoError(t, err)
	assert.Equal(t, TagLocked, v.Tag)
	assert.Equal(t, "LOCKED", v.Label)
	assert.True(t, v.IsLocked)
	assert.Equal(t, 7, v.LockStatus.DaysRemaining)
}

func TestLoadExpiredLockIsLockedButUnlocked(t *testing.T) {
	store := newFakeStore()
	store.active["c1"] = &plan.Version{ID: "v1", ClientID: "c1", LockedAt: t0, LockExpiry: t0.Add(DefaultLockDuration)}
	c := &clock{t: t0.Add(DefaultLockDuration)}
	m := newTestManager(store, &fakeGenerator{}, c)

	v, err := m.Load(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, TagLocked, v.Tag)
	assert.Equal(t, LabelExpired, v.Label)
	assert.False(t, v.IsLocked)
	assert.Equal(t, 0, v.LockStatus.DaysRemaining)
}

func TestLoadFailureBlocksUntilRetry(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.fetchErr = errors.New("database is locked")
	gen := &fakeGenerator{}
	m := newTestManager(store, gen, &clock{t: t0})

	v, err := m.Load(ctx, "c1")
	assert.ErrorIs(t, err, apperr.ErrPersistence)
	assert.Equal(t, TagError, v.Tag)
	assert.True(t, v.IsBlocked)
	assert.Contains(t, v.Error, "database is locked")

	_, err = m.GenerateDraft(ctx, coach, weeklyRequest())
	assert.ErrorIs(t, err, apperr.ErrStateConflict)
	_, err = m.Lock(ctx, coach)
	assert.ErrorIs(t, err, apperr.ErrStateConflict)
	_, err = m.Load(ctx, "c2")
	assert.ErrorIs(t, err, apperr.ErrStateConflict)
	assert.Zero(t, gen.calls)

	store.fetchErr = nil
	v, err = m.Retry(ctx)
	require.NoError(t, err)
	assert.Equal(t, TagEmpty, v.Tag)
	assert.False(t, v.IsBlocked)

	_, err = m.Retry(ctx)
	assert.ErrorIs(t, err, apperr.ErrStateConflict)
}

func TestGenerateDraftRunsGate(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGenerator{}
	m := newTestManager(newFakeStore(), gen, &clock{t: t0})
	_, err := m.Load(ctx, "c1")
	require.NoError(t, err)

	req := weeklyRequest()
	req.Restrictions.Preferred = req.Restrictions.Preferred[:4]
	v, err := m.GenerateDraft(ctx, coach, req)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Contains(t, apperr.Message(err), "at least 5")
	assert.Equal(t, TagEmpty, v.Tag)
	assert.Zero(t, gen.calls)

	req.PlanType = gate.PlanDaily
	v, err = m.GenerateDraft(ctx, coach, req)
	require.NoError(t, err)
	assert.Equal(t, TagDraft, v.Tag)
	assert.True(t, v.CanLock)
	require.NotNil(t, v.Payload)
	assert.Len(t, v.Payload.WeeklyPlan.Days, 1)
	assert.Nil(t, v.Payload.LockedAt)
	assert.Equal(t, t0, v.Payload.GeneratedAt)
}

func TestDraftRegenerationAndDiscard(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGenerator{}
	store := newFakeStore()
	m := newTestManager(store, gen, &clock{t: t0})
	_, err := m.Load(ctx, "c1")
	require.NoError(t, err)

	_, err = m.GenerateDraft(ctx, coach, weeklyRequest())
	require.NoError(t, err)
	v, err := m.GenerateDraft(ctx, coach, weeklyRequest())
	require.NoError(t, err)
	assert.Equal(t, TagDraft, v.Tag)
	assert.Equal(t, 2, gen.calls)
	assert.Empty(t, store.locks, "drafts are never persisted")

	v, err = m.Discard(coach)
	require.NoError(t, err)
	assert.Equal(t, TagEmpty, v.Tag)
	assert.Nil(t, v.Payload)
}

func TestLockCountdown(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	c := &clock{t: t0}
	m := newTestManager(store, &fakeGenerator{}, c)
	_, err := m.Load(ctx, "c1")
	require.NoError(t, err)
	_, err = m.GenerateDraft(ctx, coach, weeklyRequest())
	require.NoError(t, err)

	v, err := m.Lock(ctx, coach)
	require.NoError(t, err)
	assert.Equal(t, TagLocked, v.Tag)
	assert.True(t, v.IsLocked)
	assert.Equal(t, 7, v.LockStatus.DaysRemaining)
	require.NotNil(t, v.Version)
	assert.Equal(t, t0, v.Version.LockedAt)
	assert.Equal(t, t0.Add(7*24*time.Hour), v.Version.LockExpiry)
	require.Len(t, store.locks, 1)
	assert.Equal(t, t0, *store.locks[0].Payload.LockedAt)
	assert.Equal(t, "coach-1", store.locks[0].LockedBy)

	c.advance(36 * time.Hour)
	v = m.View()
	assert.True(t, v.IsLocked)
	assert.Equal(t, 6, v.LockStatus.DaysRemaining)

	_, err = m.GenerateDraft(ctx, coach, weeklyRequest())
	assert.ErrorIs(t, err, apperr.ErrStateConflict)

	c.t = t0.Add(7 * 24 * time.Hour)
	v = m.View()
	assert.False(t, v.IsLocked)
	assert.Equal(t, LabelExpired, v.Label)
	assert.Equal(t, TagLocked, v.Tag)

	c.advance(24 * time.Hour)
	assert.False(t, m.View().IsLocked)
}

func TestRegenerateOverExpiredLockAndDiscardRestores(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.active["c1"] = &plan.Version{ID: "v1", ClientID: "c1", LockedAt: t0, LockExpiry: t0.Add(DefaultLockDuration)}
	c := &clock{t: t0.Add(8 * 24 * time.Hour)}
	m := newTestManager(store, &fakeGenerator{}, c)

	_, err := m.Load(ctx, "c1")
	require.NoError(t, err)
	v, err := m.GenerateDraft(ctx, coach, weeklyRequest())
	require.NoError(t, err)
	assert.Equal(t, TagDraft, v.Tag)

	v, err = m.Discard(coach)
	require.NoError(t, err)
	assert.Equal(t, TagLocked, v.Tag)
	assert.Equal(t, "v1", v.Version.ID)
}

func TestLockFailureKeepsDraft(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	m := newTestManager(store, &fakeGenerator{}, &clock{t: t0})
	_, err := m.Load(ctx, "c1")
	require.NoError(t, err)
	_, err = m.GenerateDraft(ctx, coach, weeklyRequest())
	require.NoError(t, err)

	store.lockErr = errors.New("disk full")
	v, err := m.Lock(ctx, coach)
	assert.ErrorIs(t, err, apperr.ErrPersistence)
	assert.Equal(t, TagDraft, v.Tag)
	assert.False(t, v.IsBlocked)
	assert.True(t, v.CanLock)

	store.lockErr = nil
	v, err = m.Lock(ctx, coach)
	require.NoError(t, err)
	assert.Equal(t, TagLocked, v.Tag)
}

func TestLockRequiresDraft(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(newFakeStore(), &fakeGenerator{}, &clock{t: t0})
	_, err := m.Load(ctx, "c1")
	require.NoError(t, err)

	_, err = m.Lock(ctx, coach)
	assert.ErrorIs(t, err, apperr.ErrStateConflict)
}

func TestClientSwitchDropsDraft(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(newFakeStore(), &fakeGenerator{}, &clock{t: t0})
	_, err := m.Load(ctx, "c1")
	require.NoError(t, err)
	_, err = m.GenerateDraft(ctx, coach, weeklyRequest())
	require.NoError(t, err)

	v, err := m.Load(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, TagDraft, v.Tag, "reloading the same client keeps the draft")

	v, err = m.Load(ctx, "c2")
	require.NoError(t, err)
	assert.Equal(t, TagEmpty, v.Tag)
	assert.Equal(t, "c2", v.ClientID)
}

func TestGeneratorFailureKeepsState(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGenerator{err: errors.New("rate limited")}
	m := newTestManager(newFakeStore(), gen, &clock{t: t0})
	_, err := m.Load(ctx, "c1")
	require.NoError(t, err)

	v, err := m.GenerateDraft(ctx, coach, weeklyRequest())
	assert.Error(t, err)
	assert.Equal(t, TagEmpty, v.Tag)
	assert.False(t, v.IsBlocked)
}

func TestMutationsRequireActor(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(newFakeStore(), &fakeGenerator{}, &clock{t: t0})
	_, err := m.Load(ctx, "c1")
	require.NoError(t, err)

	_, err = m.GenerateDraft(ctx, Actor{}, weeklyRequest())
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = m.Lock(ctx, Actor{ID: "x", Role: "admin"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = m.Discard(Actor{})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestComputeLockStatus(t *testing.T) {
	expiry := t0.Add(7 * 24 * time.Hour)
	tests := []struct {
		now  time.Time
		want LockStatus
	}{
		{t0, LockStatus{IsLocked: true, DaysRemaining: 7}},
		{t0.Add(time.Minute), LockStatus{IsLocked: true, DaysRemaining: 7}},
		{t0.Add(24 * time.Hour), LockStatus{IsLocked: true, DaysRemaining: 6}},
		{expiry.Add(-time.Second), LockStatus{IsLocked: true, DaysRemaining: 1}},
		{expiry, LockStatus{}},
		{expiry.Add(48 * time.Hour), LockStatus{}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ComputeLockStatus(expiry, tt.now), tt.now.String())
	}
}
