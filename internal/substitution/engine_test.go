package substitution

import (
	"testing"

	"coach-planner/internal/nutrition"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCatalog() []nutrition.IngredientData {
	return []nutrition.IngredientData{
		{ID: "chicken", Name: "Chicken Breast", Category: nutrition.CategoryProtein, Per100g: nutrition.Macros{Calories: 165, Protein: 31, Carbs: 0, Fat: 3.6}, ServingSize: 150, Tags: []string{"lean", "poultry"}},
		{ID: "tofu", Name: "Tofu", Category: nutrition.CategoryProtein, Per100g: nutrition.Macros{Calories: 76, Protein: 8, Carbs: 1.9, Fat: 4.8}, ServingSize: 120, Tags: []string{"vegan", "soy"}},
		{ID: "salmon", Name: "Salmon", Category: nutrition.CategoryProtein, Per100g: nutrition.Macros{Calories: 208, Protein: 20, Carbs: 0, Fat: 13}, ServingSize: 140, Tags: []string{"fish"}},
		{ID: "turkey", Name: "Turkey Breast", Category: nutrition.CategoryProtein, Per100g: nutrition.Macros{Calories: 135, Protein: 30, Carbs: 0, Fat: 1}, ServingSize: 150, Tags: []string{"lean", "poultry"}},
		{ID: "rice", Name: "Rice", Category: nutrition.CategoryCarbohydrate, Per100g: nutrition.Macros{Calories: 130, Protein: 2.7, Carbs: 28, Fat: 0.3}, ServingSize: 180, Tags: []string{"grain"}},
		{ID: "quinoa", Name: "Quinoa", Category: nutrition.CategoryCarbohydrate, Per100g: nutrition.Macros{Calories: 120, Protein: 4.4, Carbs: 21, Fat: 1.9}, ServingSize: 180, Tags: []string{"grain", "gluten-free"}},
		{ID: "olive-oil", Name: "Olive Oil", Category: nutrition.CategoryFat, Per100g: nutrition.Macros{Calories: 884, Protein: 0, Carbs: 0, Fat: 100}, ServingSize: 10, Tags: []string{"oil"}},
		{ID: "broccoli", Name: "Broccoli", Category: nutrition.CategoryVegetable, Per100g: nutrition.Macros{Calories: 34, Protein: 2.8, Carbs: 7, Fat: 0.4}, ServingSize: 90, Tags: []string{"green"}},
	}
}

func mustIngredient(t *testing.T, e *Engine, id string) nutrition.IngredientData {
	t.Helper()
	ing, ok := e.Ingredient(id)
	require.True(t, ok, "ingredient %s missing from test catalog", id)
	return ing
}

func TestFindSubstituteCascade(t *testing.T) {
	tests := []struct {
		name         string
		restrictions nutrition.ClientIngredientRestrictions
		want         string
	}{
		{
			name:         "same category best score",
			restrictions: nutrition.ClientIngredientRestrictions{Blocked: []string{"chicken"}},
			want:         "turkey",
		},
		{
			name:         "next best when winner blocked",
			restrictions: nutrition.ClientIngredientRestrictions{Blocked: []string{"chicken", "turkey"}},
			want:         "salmon",
		},
		{
			name: "preferred subset narrows",
			restrictions: nutrition.ClientIngredientRestrictions{
				Blocked:   []string{"chicken"},
				Preferred: []string{"tofu", "rice"},
			},
			want: "tofu",
		},
		{
			name: "explicit preference list wins across categories",
			restrictions: nutrition.ClientIngredientRestrictions{
				Blocked:                 []string{"chicken"},
				SubstitutionPreferences: map[string][]string{"chicken": {"quinoa", "turkey"}},
			},
			want: "quinoa",
		},
		{
			name: "blocked preference falls through",
			restrictions: nutrition.ClientIngredientRestrictions{
				Blocked:                 []string{"chicken", "turkey"},
				SubstitutionPreferences: map[string][]string{"chicken": {"turkey"}},
			},
			want: "salmon",
		},
		{
			name: "unknown preference falls through",
			restrictions: nutrition.ClientIngredientRestrictions{
				Blocked:                 []string{"chicken"},
				SubstitutionPreferences: map[string][]string{"chicken": {"seitan"}},
			},
			want: "turkey",
		},
		{
			name:         "widens when category exhausted",
			restrictions: nutrition.ClientIngredientRestrictions{Blocked: []string{"chicken", "tofu", "salmon", "turkey"}},
			want:         "quinoa",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine(testCatalog())
			res, ok := e.FindSubstitute(mustIngredient(t, e, "chicken"), tt.restrictions)
			require.True(t, ok)
			assert.Equal(t, tt.want, res.Substitute.ID)
			assert.Equal(t, "chicken", res.Rule.OriginalID)
			assert.Equal(t, tt.want, res.Rule.SubstituteID)
		})
	}
}

func TestFindSubstituteScores(t *testing.T) {
	e := NewEngine(testCatalog())
	res, ok := e.FindSubstitute(mustIngredient(t, e, "chicken"), nutrition.ClientIngredientRestrictions{Blocked: []string{"chicken"}})
	require.True(t, ok)

	assert.InDelta(t, 0.939333, res.Rule.MacroSimilarity, 1e-5)
	assert.InDelta(t, 165.0/135.0, res.Rule.ConversionRatio, 1e-9)

	require.Len(t, res.Ranked, 3)
	assert.Equal(t, []string{"turkey", "salmon", "tofu"}, []string{
		res.Ranked[0].Ingredient.ID, res.Ranked[1].Ingredient.ID, res.Ranked[2].Ingredient.ID,
	})
	assert.InDelta(t, 0.957533, res.Ranked[0].Score, 1e-5)
	assert.Equal(t, 1.0, res.Ranked[0].TagOverlap)
}

func TestFindSubstituteWithoutMacroPreservation(t *testing.T) {
	e := NewEngine(testCatalog(), WithMacroPreservation(false))
	res, ok := e.FindSubstitute(mustIngredient(t, e, "chicken"), nutrition.ClientIngredientRestrictions{Blocked: []string{"chicken"}})
	require.True(t, ok)

	// all candidates tie at the neutral score, so input order decides
	assert.Equal(t, "tofu", res.Substitute.ID)
	assert.Equal(t, 1.0, res.Rule.ConversionRatio)
	assert.Equal(t, 0.5, res.Rule.MacroSimilarity)
	for _, c := range res.Ranked {
		assert.Equal(t, 0.5, c.Score)
	}
}

func TestFindSubstituteNoCandidate(t *testing.T) {
	e := NewEngine(testCatalog()[:1])
	_, ok := e.FindSubstitute(mustIngredient(t, e, "chicken"), nutrition.ClientIngredientRestrictions{Blocked: []string{"chicken"}})
	assert.False(t, ok)
}

func TestScoresStayInBounds(t *testing.T) {
	cat := testCatalog()
	for _, a := range cat {
		for _, b := range cat {
			ms := MacroSimilarity(a, b)
			to := TagOverlap(a, b)
			rs := RankScore(ms, to)
			assert.GreaterOrEqual(t, ms, 0.0)
			assert.LessOrEqual(t, ms, 1.0+1e-12)
			assert.GreaterOrEqual(t, to, 0.0)
			assert.LessOrEqual(t, to, 1.0)
			assert.GreaterOrEqual(t, rs, 0.0)
			assert.LessOrEqual(t, rs, 1.0+1e-12)
		}
	}
	assert.InDelta(t, 1.0, MacroSimilarity(cat[0], cat[0]), 1e-12)
}

func TestTagOverlap(t *testing.T) {
	a := nutrition.IngredientData{Tags: []string{"lean", "poultry"}}
	b := nutrition.IngredientData{Tags: []string{"poultry", "smoked"}}
	assert.Equal(t, 0.5, TagOverlap(a, b))
	assert.Equal(t, 0.0, TagOverlap(nutrition.IngredientData{}, b))
}

func TestConversionRatioZeroCalories(t *testing.T) {
	water := nutrition.IngredientData{ID: "water"}
	assert.Equal(t, 1.0, ConversionRatio(testCatalog()[0], water))
}
