package coach

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coach-planner/internal/apperr"
	"coach-planner/internal/catalog"
	"coach-planner/internal/config"
	"coach-planner/internal/database"
	"coach-planner/internal/gate"
	"coach-planner/internal/lifecycle"
	"coach-planner/internal/nutrition"
	"coach-planner/internal/override"
	"coach-planner/internal/plan"
	"coach-planner/internal/snapshot"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

type fakeGenerator struct {
	requests []lifecycle.GenerateRequest
}

var lunch = nutrition.MealData{
	Ingredients: []nutrition.IngredientData{ingredients[0], ingredients[3]},
	RecipeText:  "Chicken and rice",
	Macros:      nutrition.Macros{Calories: 400, Protein: 40, Carbs: 40, Fat: 8},
}

func (g *fakeGenerator) Generate(_ context.Context, req lifecycle.GenerateRequest) (nutrition.MealPlanPayload, error) {
	g.requests = append(g.requests, req)
	week := nutrition.WeeklyPlan{}
	for i := 0; i < req.PlanType.Days(); i++ {
		day := nutrition.DailyPlan{Lunch: lunch.Clone(), TargetMacros: req.MacroTargets}
		day.Summarize()
		week.Days = append(week.Days, nutrition.PlanDay{DayNumber: i + 1, DayName: "Day", Plan: day})
	}
	week.Summarize()
	return nutrition.MealPlanPayload{MacroTargets: req.MacroTargets, WeeklyPlan: week, LikedIngredients: req.LikedIngredients}, nil
}

var ingredients = []nutrition.IngredientData{
	{ID: "chicken", Name: "Chicken Breast", Category: nutrition.CategoryProtein, Per100g: nutrition.Macros{Calories: 165, Protein: 31, Fat: 3.6}, ServingSize: 150, Tags: []string{"lean", "poultry"}},
	{ID: "salmon", Name: "Salmon", Category: nutrition.CategoryProtein, Per100g: nutrition.Macros{Calories: 208, Protein: 20, Fat: 13}, ServingSize: 140, Tags: []string{"fish"}},
	{ID: "turkey", Name: "Turkey Breast", Category: nutrition.CategoryProtein, Per100g: nutrition.Macros{Calories: 135, Protein: 30, Fat: 1}, ServingSize: 150, Tags: []string{"lean", "poultry"}},
	{ID: "rice", Name: "Rice", Category: nutrition.CategoryCarbohydrate, Per100g: nutrition.Macros{Calories: 130, Protein: 2.7, Carbs: 28, Fat: 0.3}, ServingSize: 180},
	{ID: "quinoa", Name: "Quinoa", Category: nutrition.CategoryCarbohydrate, Per100g: nutrition.Macros{Calories: 120, Protein: 4.4, Carbs: 21, Fat: 1.9}, ServingSize: 180},
	{ID: "oats", Name: "Oats", Category: nutrition.CategoryCarbohydrate, Per100g: nutrition.Macros{Calories: 380, Protein: 13, Carbs: 67, Fat: 7}, ServingSize: 50},
	{ID: "broccoli", Name: "Broccoli", Category: nutrition.CategoryVegetable, Per100g: nutrition.Macros{Calories: 34, Protein: 2.8, Carbs: 7, Fat: 0.4}, ServingSize: 90},
	{ID: "banana", Name: "Banana", Category: nutrition.CategoryFruit, Per100g: nutrition.Macros{Calories: 89, Protein: 1.1, Carbs: 23, Fat: 0.3}, ServingSize: 120},
}

var (
	coachActor  = lifecycle.Actor{ID: "coach-1", Role: lifecycle.RoleCoach}
	clientActor = lifecycle.Actor{ID: "c1", Role: lifecycle.RoleClient}
	targets     = nutrition.Macros{Calories: 2000, Protein: 150, Carbs: 200, Fat: 70}
)

type fixture struct {
	svc   *Service
	gen   *fakeGenerator
	clock *clock
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "coach.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	catRepo := catalog.NewRepository(db)
	cat, err := catalog.New(ingredients)
	require.NoError(t, err)
	require.NoError(t, catRepo.SaveIngredients(ctx, cat))

	c := &clock{t: time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)}
	gen := &fakeGenerator{}
	svc := NewService(Deps{
		Plans:     plan.NewRepository(db),
		Catalogs:  catRepo,
		Overrides: override.NewRepository(db.SQL),
		Generator: gen,
		Sealer:    snapshot.NewSealer("test-secret"),
		Policy:    config.DefaultPolicy(),
		Now:       c.now,
	})
	n, err := svc.ReloadCatalog(ctx)
	require.NoError(t, err)
	require.Equal(t, len(ingredients), n)

	for _, client := range []string{"c1", "c2"} {
		require.NoError(t, svc.SaveRestrictions(ctx, coachActor, nutrition.ClientIngredientRestrictions{
			ClientID:  client,
			Preferred: []string{"chicken", "rice", "oats", "broccoli", "quinoa"},
		}))
	}
	return fixture{svc: svc, gen: gen, clock: c}
}

// lockPlan drives a session from EMPTY to LOCKED and returns the version.
func (f fixture) lockPlan(t *testing.T, session, client string) plan.Version {
	t.Helper()
	ctx := context.Background()

	v, err := f.svc.LoadPlan(ctx, session, client)
	require.NoError(t, err)
	require.Equal(t, lifecycle.TagEmpty, v.Tag)

	v, err = f.svc.GenerateDraft(ctx, session, coachActor, gate.PlanWeekly, targets)
	require.NoError(t, err)
	require.True(t, v.CanLock)

	v, err = f.svc.LockPlan(ctx, session, coachActor)
	require.NoError(t, err)
	require.NotNil(t, v.Version)
	return *v.Version
}

func TestPlanLifecycleThroughService(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	version := f.lockPlan(t, "s1", "c1")
	assert.Equal(t, 1, version.Number)
	assert.True(t, version.LockedAt.Equal(f.clock.now()))
	assert.True(t, version.LockExpiry.Equal(f.clock.now().Add(7*24*time.Hour)))

	require.Len(t, f.gen.requests, 1)
	assert.Equal(t, []string{"chicken", "rice", "oats", "broccoli", "quinoa"}, f.gen.requests[0].LikedIngredients)
	assert.Equal(t, "c1", f.gen.requests[0].Restrictions.ClientID)

	status := f.svc.Status("s1")
	assert.Equal(t, lifecycle.TagLocked, status.Tag)
	assert.Equal(t, 7, status.LockStatus.DaysRemaining)

	_, err := f.svc.GenerateDraft(ctx, "s1", coachActor, gate.PlanWeekly, targets)
	assert.ErrorIs(t, err, apperr.ErrStateConflict)

	// a fresh session sees the persisted lock
	v, err := f.svc.LoadPlan(ctx, "s9", "c1")
	require.NoError(t, err)
	assert.Equal(t, lifecycle.TagLocked, v.Tag)
	assert.Equal(t, version.ID, v.Version.ID)
}

func TestGenerateDraftRunsGateOnStoredRestrictions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.GenerateDraft(ctx, "s1", coachActor, gate.PlanDaily, targets)
	assert.ErrorIs(t, err, apperr.ErrStateConflict, "no client selected")

	_, err = f.svc.LoadPlan(ctx, "s1", "newcomer")
	require.NoError(t, err)
	_, err = f.svc.GenerateDraft(ctx, "s1", coachActor, gate.PlanWeekly, targets)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Contains(t, apperr.Message(err), "needs at least 5")
	assert.Empty(t, f.gen.requests)
}

func TestSaveRestrictionsRequiresCoach(t *testing.T) {
	f := newFixture(t)
	err := f.svc.SaveRestrictions(context.Background(), clientActor, nutrition.ClientIngredientRestrictions{ClientID: "c1"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestSaveRestrictionsRejectsUnknownIngredients(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.svc.SaveRestrictions(ctx, coachActor, nutrition.ClientIngredientRestrictions{
		ClientID:  "c1",
		Preferred: []string{"chicken", "seitan"},
		Blocked:   []string{"durian"},
	})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, "unknown ingredient(s): seitan, durian", apperr.Message(err))

	res, err := f.svc.Restrictions(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, []string{"chicken", "rice", "oats", "broccoli", "quinoa"}, res.Preferred, "stored restrictions are untouched")
	assert.Empty(t, res.Blocked)
}

func TestOverrideFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	version := f.lockPlan(t, "s1", "c1")

	f.clock.advance(time.Minute)
	suggested, err := f.svc.SuggestOverride(ctx, coachActor, OverrideRequest{
		PlanVersionID: version.ID,
		MealType:      "Lunch",
		Original:      "chicken",
	})
	require.NoError(t, err)
	assert.Equal(t, "turkey", suggested.ReplacementIngredient)
	assert.Equal(t, nutrition.MealLunch, suggested.MealType)
	assert.Equal(t, "c1", suggested.ClientID)
	assert.Equal(t, override.SuggestedByCoach, suggested.SuggestedBy)
	assert.Equal(t, nutrition.Macros{Calories: 0, Protein: 8.5, Carbs: 0, Fat: -3.6}, suggested.MacroDelta)
	assert.False(t, suggested.WithinTolerance)
	assert.False(t, suggested.Approved())

	f.clock.advance(time.Minute)
	explicit, err := f.svc.CreateOverride(ctx, clientActor, OverrideRequest{
		PlanVersionID: version.ID,
		MealType:      nutrition.MealLunch,
		Original:      "rice",
		Replacement:   "quinoa",
	})
	require.NoError(t, err)
	assert.Equal(t, override.SuggestedByClient, explicit.SuggestedBy)

	pending, err := f.svc.FetchPendingOverrides(ctx, version.ID)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, []string{explicit.ID, suggested.ID}, []string{pending[0].ID, pending[1].ID})

	assert.ErrorIs(t, f.svc.ApproveOverride(ctx, clientActor, suggested.ID), apperr.ErrValidation)
	require.NoError(t, f.svc.ApproveOverride(ctx, coachActor, suggested.ID))
	require.NoError(t, f.svc.ArchiveOverride(ctx, coachActor, explicit.ID))
	assert.ErrorIs(t, f.svc.ApproveOverride(ctx, coachActor, suggested.ID), apperr.ErrStateConflict)
	assert.ErrorIs(t, f.svc.ArchiveOverride(ctx, coachActor, "missing"), apperr.ErrNotFound)

	pending, err = f.svc.FetchPendingOverrides(ctx, version.ID)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestOverrideErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	version := f.lockPlan(t, "s1", "c1")

	tests := []struct {
		name string
		req  OverrideRequest
		want error
	}{
		{"unknown version", OverrideRequest{PlanVersionID: "nope", MealType: nutrition.MealLunch, Original: "chicken"}, apperr.ErrNotFound},
		{"bad meal", OverrideRequest{PlanVersionID: version.ID, MealType: "brunch", Original: "chicken"}, apperr.ErrValidation},
		{"unknown original", OverrideRequest{PlanVersionID: version.ID, MealType: nutrition.MealLunch, Original: "tofu"}, apperr.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.SuggestOverride(ctx, coachActor, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := f.svc.CreateOverride(ctx, coachActor, OverrideRequest{PlanVersionID: version.ID, MealType: nutrition.MealLunch, Original: "rice"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestFinalizeSnapshotIsWriteOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	version := f.lockPlan(t, "s1", "c1")

	f.clock.advance(time.Hour)
	approved, err := f.svc.SuggestOverride(ctx, coachActor, OverrideRequest{PlanVersionID: version.ID, MealType: nutrition.MealLunch, Original: "chicken"})
	require.NoError(t, err)
	require.NoError(t, f.svc.ApproveOverride(ctx, coachActor, approved.ID))
	archived, err := f.svc.CreateOverride(ctx, coachActor, OverrideRequest{PlanVersionID: version.ID, MealType: nutrition.MealLunch, Original: "rice", Replacement: "quinoa"})
	require.NoError(t, err)
	require.NoError(t, f.svc.ArchiveOverride(ctx, coachActor, archived.ID))

	snap, err := f.svc.FinalizeSnapshot(ctx, version.ID, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, snapshot.StatusLocked, snap.Status)
	assert.True(t, version.LockedAt.Equal(snap.Metadata.SnapshotCreatedAt))
	require.Len(t, snap.Metadata.OverridesApplied, 1)
	assert.Equal(t, approved.ID, snap.Metadata.OverridesApplied[0].ID)

	require.Len(t, snap.WeeklyPlan.Days, 7)
	for _, d := range snap.WeeklyPlan.Days {
		assert.Equal(t, "turkey", d.Plan.Lunch.Ingredients[0].ID)
		assert.Equal(t, "rice", d.Plan.Lunch.Ingredients[1].ID)
		assert.Equal(t, nutrition.Macros{Calories: 400, Protein: 49, Carbs: 40, Fat: 4}, d.Plan.Lunch.Macros)
		assert.Equal(t, nutrition.Macros{Calories: 400, Protein: 49, Carbs: 40, Fat: 4}, d.Plan.TotalMacros)
	}
	assert.Equal(t, nutrition.Macros{Calories: 2800, Protein: 343, Carbs: 280, Fat: 28}, snap.WeeklyPlan.TotalMacros)

	// the persisted snapshot is final, so later overrides are refused
	_, err = f.svc.CreateOverride(ctx, coachActor, OverrideRequest{PlanVersionID: version.ID, MealType: nutrition.MealLunch, Original: "rice", Replacement: "oats"})
	assert.ErrorIs(t, err, apperr.ErrStateConflict)
	assert.Contains(t, apperr.Message(err), "already has a snapshot")
	_, err = f.svc.SuggestOverride(ctx, coachActor, OverrideRequest{PlanVersionID: version.ID, MealType: nutrition.MealDinner, Original: "chicken"})
	assert.ErrorIs(t, err, apperr.ErrStateConflict)
	pending, err := f.svc.FetchPendingOverrides(ctx, version.ID)
	require.NoError(t, err)
	assert.Empty(t, pending)

	f.clock.advance(8 * 24 * time.Hour)
	again, err := f.svc.FinalizeSnapshot(ctx, version.ID, f.clock.now())
	require.NoError(t, err)
	assert.Equal(t, snapshot.StatusLocked, again.Status)
	assert.Len(t, again.Metadata.OverridesApplied, 1)
	assert.True(t, snap.Metadata.SnapshotCreatedAt.Equal(again.Metadata.SnapshotCreatedAt))

	stored, err := f.svc.FetchSnapshot(ctx, version.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, again.WeeklyPlan, stored.WeeklyPlan)
}

func TestBackfillSnapshots(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	v1 := f.lockPlan(t, "s1", "c1")
	_, err := f.svc.FinalizeSnapshot(ctx, v1.ID, time.Time{})
	require.NoError(t, err)
	v2 := f.lockPlan(t, "s2", "c2")

	n, err := f.svc.BackfillSnapshots(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "nothing has expired yet")

	f.clock.advance(7 * 24 * time.Hour)
	n, err = f.svc.BackfillSnapshots(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	snap, err := f.svc.FetchSnapshot(ctx, v2.ID)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, snapshot.StatusExpired, snap.Status)
	assert.Empty(t, snap.Metadata.OverridesApplied)

	n, err = f.svc.BackfillSnapshots(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMacroDelta(t *testing.T) {
	d := MacroDelta(ingredients[0], ingredients[2], 1)
	assert.Equal(t, nutrition.Macros{Calories: -45, Protein: -1.5, Carbs: 0, Fat: -3.9}, d)
}
