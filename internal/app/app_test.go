package app

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coach-planner/internal/apperr"
	"coach-planner/internal/catalog"
	"coach-planner/internal/coach"
	"coach-planner/internal/config"
	"coach-planner/internal/database"
	"coach-planner/internal/gate"
	"coach-planner/internal/lifecycle"
	"coach-planner/internal/metrics"
	"coach-planner/internal/nutrition"
	"coach-planner/internal/override"
	"coach-planner/internal/plan"
	"coach-planner/internal/snapshot"
)

const seedYAML = `
ingredients:
  - id: chicken
    name: Chicken Breast
    category: protein
    per_100g: {calories: 165, protein: 31, carbs: 0, fat: 3.6}
    serving_size: 150
  - id: rice
    name: Rice
    category: carbohydrate
    per_100g: {calories: 130, protein: 2.7, carbs: 28, fat: 0.3}
    serving_size: 180
  - id: oats
    name: Oats
    category: carbohydrate
    per_100g: {calories: 380, protein: 13, carbs: 67, fat: 7}
    serving_size: 50
`

const tableHTML = `<table>
  <tr><th>ID</th><th>Name</th><th>Category</th><th>Calories</th><th>Protein</th><th>Carbs</th><th>Fat</th><th>Serving</th></tr>
  <tr><td>tofu</td><td>Tofu</td><td>protein</td><td>76</td><td>8</td><td>1.9</td><td>4.8</td><td>120</td></tr>
</table>`

type stubGenerator struct{}

func (stubGenerator) Generate(_ context.Context, req lifecycle.GenerateRequest) (nutrition.MealPlanPayload, error) {
	day := nutrition.DailyPlan{Breakfast: nutrition.MealData{Macros: nutrition.Macros{Calories: 500}}}
	day.Summarize()
	week := nutrition.WeeklyPlan{Days: []nutrition.PlanDay{{DayNumber: 1, DayName: "Monday", Plan: day}}}
	week.Summarize()
	return nutrition.MealPlanPayload{MacroTargets: req.MacroTargets, WeeklyPlan: week}, nil
}

type fixture struct {
	app *App
	svc *coach.Service
	out *bytes.Buffer
	now time.Time
	db  *database.DB
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "coach.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	f := &fixture{out: &bytes.Buffer{}, now: time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC), db: db}
	f.svc = coach.NewService(coach.Deps{
		Plans:     plan.NewRepository(db),
		Catalogs:  catalog.NewRepository(db),
		Overrides: override.NewRepository(db.SQL),
		Generator: stubGenerator{},
		Sealer:    snapshot.NewSealer("s3cret"),
		Policy:    config.DefaultPolicy(),
		Now:       func() time.Time { return f.now },
	})
	f.app = NewApp(f.svc, catalog.NewImporter(), metrics.NewStore(db.SQL), f.out)
	return f
}

func TestSeedAndImportCatalog(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "ingredients.yaml")
	require.NoError(t, os.WriteFile(path, []byte(seedYAML), 0o644))
	require.NoError(t, f.app.SeedCatalog(ctx, path))
	assert.Contains(t, f.out.String(), "Seeded 3 ingredients")

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(tableHTML))
	}))
	defer ts.Close()
	require.NoError(t, f.app.ImportCatalog(ctx, ts.URL))
	assert.Contains(t, f.out.String(), "Imported 1 ingredients")

	n, err := f.svc.ReloadCatalog(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	assert.Error(t, f.app.SeedCatalog(ctx, filepath.Join(t.TempDir(), "missing.yaml")))
}

func TestBackfillAndShowSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	coachActor := lifecycle.Actor{ID: "coach-1", Role: lifecycle.RoleCoach}

	path := filepath.Join(t.TempDir(), "ingredients.yaml")
	require.NoError(t, os.WriteFile(path, []byte(seedYAML), 0o644))
	require.NoError(t, f.app.SeedCatalog(ctx, path))
	require.NoError(t, f.svc.SaveRestrictions(ctx, coachActor, nutrition.ClientIngredientRestrictions{
		ClientID:  "c1",
		Preferred: []string{"chicken", "rice", "oats"},
	}))

	_, err := f.svc.LoadPlan(ctx, "cli", "c1")
	require.NoError(t, err)
	_, err = f.svc.GenerateDraft(ctx, "cli", coachActor, gate.PlanDaily, nutrition.Macros{Calories: 2000})
	require.NoError(t, err)
	v, err := f.svc.LockPlan(ctx, "cli", coachActor)
	require.NoError(t, err)
	versionID := v.Version.ID

	err = f.app.ShowSnapshot(ctx, versionID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	f.now = f.now.Add(8 * 24 * time.Hour)
	require.NoError(t, f.app.BackfillSnapshots(ctx))
	assert.Contains(t, f.out.String(), "Wrote 1 snapshot(s).")

	f.out.Reset()
	require.NoError(t, f.app.ShowSnapshot(ctx, versionID))
	assert.Contains(t, f.out.String(), `"status": "EXPIRED"`)
	assert.Contains(t, f.out.String(), `"plan_version_id": "`+versionID+`"`)
}

func TestCleanupMetrics(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.Error(t, f.app.CleanupMetrics(ctx, 0))

	store := metrics.NewStore(f.db.SQL)
	require.NoError(t, store.Record(ctx, metrics.ExecutionMetric{AgentName: "Planner", Model: "m", PromptTokens: 1, Timestamp: time.Now().AddDate(0, 0, -60)}))
	require.NoError(t, store.Record(ctx, metrics.ExecutionMetric{AgentName: "Planner", Model: "m", PromptTokens: 1}))

	require.NoError(t, f.app.CleanupMetrics(ctx, 30))
	assert.Contains(t, f.out.String(), "Successfully removed 1 old metric records.")
}
