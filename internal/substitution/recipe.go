package substitution

import (
	"math"

	"coach-planner/internal/nutrition"
)

// AdaptedRecipe is a recipe after blocked ingredients were handled.
type AdaptedRecipe struct {
	Recipe        nutrition.Recipe
	Substitutions []Rule
	// Dropped lists ingredient names removed because no substitute existed.
	Dropped []string
	// MacroAdjustment is the average fidelity loss over the substitutions made.
	MacroAdjustment float64
}

// ScaledRecipe is a recipe whose masses were scaled toward a macro target.
type ScaledRecipe struct {
	Recipe      nutrition.Recipe
	ScaleFactor float64
	Accuracy    float64
}

// RecipeMacros sums per-100g macros over the ingredient list and rounds each
// axis once at the end. Lines that resolve to no reference ingredient add nothing.
func (e *Engine) RecipeMacros(lines []nutrition.RecipeIngredient) nutrition.Macros {
	var total nutrition.Macros
	for _, line := range lines {
		ref, ok := e.Resolve(line.Name)
		if !ok {
			continue
		}
		total = total.Add(ref.MacrosFor(line.Amount))
	}
	return total.Round()
}

// AdaptRecipe replaces every blocked ingredient with a substitute, dropping
// those that have none, and recomputes the recipe macros.
func (e *Engine) AdaptRecipe(rec nutrition.Recipe, r nutrition.ClientIngredientRestrictions) AdaptedRecipe {
	out := AdaptedRecipe{Recipe: nutrition.Recipe{Name: rec.Name}}
	var loss float64

	for _, line := range rec.Ingredients {
		ref, ok := e.Resolve(line.Name)
		if !ok || !r.IsBlocked(ref.ID) {
			out.Recipe.Ingredients = append(out.Recipe.Ingredients, line)
			continue
		}

		res, found := e.FindSubstitute(ref, r)
		if !found {
			e.logger.Warn("SUBSTITUTION: No substitute found, dropping ingredient",
				"recipe", rec.Name, "ingredient_id", ref.ID, "client_id", r.ClientID)
			out.Dropped = append(out.Dropped, line.Name)
			continue
		}

		out.Recipe.Ingredients = append(out.Recipe.Ingredients, nutrition.RecipeIngredient{
			Name:   res.Substitute.Name,
			Amount: nutrition.RoundTo(line.Amount*res.Rule.ConversionRatio, 1),
		})
		out.Substitutions = append(out.Substitutions, res.Rule)
		loss += math.Abs(1 - res.Rule.MacroSimilarity)
	}

	out.Recipe.Macros = e.RecipeMacros(out.Recipe.Ingredients)
	out.MacroAdjustment = loss / math.Max(1, float64(len(out.Substitutions)))
	return out
}

// Positional weights for the combined scale factor, in axis order
// protein, carbs, fat, calories. Weights are not renormalized when an axis
// is discarded; the surviving factors take the leading weights.
var scaleWeights = [4]float64{0.4, 0.2, 0.2, 0.2}

// Accuracy weights in axis order calories, protein, carbs, fat.
const (
	accCaloriesWeight = 0.25
	accProteinWeight  = 0.35
	accCarbsWeight    = 0.20
	accFatWeight      = 0.20
)

// ScaleToTarget applies one uniform scale factor to every ingredient mass so
// the recipe moves toward target, then reports how close it landed.
func (e *Engine) ScaleToTarget(rec nutrition.Recipe, target nutrition.Macros) ScaledRecipe {
	current := e.RecipeMacros(rec.Ingredients)

	var factors []float64
	for _, pair := range [4][2]float64{
		{target.Protein, current.Protein},
		{target.Carbs, current.Carbs},
		{target.Fat, current.Fat},
		{target.Calories, current.Calories},
	} {
		f := pair[0] / pair[1]
		if math.IsNaN(f) || math.IsInf(f, 0) {
			continue
		}
		factors = append(factors, f)
	}

	scale := 1.0
	if len(factors) > 0 {
		scale = 0
		for i, f := range factors {
			scale += scaleWeights[i] * f
		}
	}

	scaled := nutrition.Recipe{Name: rec.Name}
	for _, line := range rec.Ingredients {
		line.Amount = nutrition.RoundTo(line.Amount*scale, 1)
		scaled.Ingredients = append(scaled.Ingredients, line)
	}
	scaled.Macros = e.RecipeMacros(scaled.Ingredients)

	return ScaledRecipe{
		Recipe:      scaled,
		ScaleFactor: scale,
		Accuracy:    accuracy(scaled.Macros, target),
	}
}

func accuracy(got, target nutrition.Macros) float64 {
	score := 1 - (accCaloriesWeight*relErr(got.Calories, target.Calories) +
		accProteinWeight*relErr(got.Protein, target.Protein) +
		accCarbsWeight*relErr(got.Carbs, target.Carbs) +
		accFatWeight*relErr(got.Fat, target.Fat))
	return math.Max(0, score)
}

// relErr is |got-target|/target; a zero target is met only by zero.
func relErr(got, target float64) float64 {
	if target == 0 {
		if got == 0 {
			return 0
		}
		return 1
	}
	return math.Abs(got-target) / math.Abs(target)
}
