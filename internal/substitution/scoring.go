package substitution

import (
	"math"

	"coach-planner/internal/nutrition"
)

// Per-axis distance at which similarity reaches zero.
const (
	proteinScale  = 30.0
	carbsScale    = 50.0
	fatScale      = 30.0
	caloriesScale = 200.0
)

// Axis weights for macro similarity. They sum to 1.
const (
	proteinWeight  = 0.4
	carbsWeight    = 0.2
	fatWeight      = 0.2
	caloriesWeight = 0.2
)

// Rank blend between macro similarity and tag overlap.
const (
	macroRankWeight = 0.7
	tagRankWeight   = 0.3
)

// neutralScore is used for every candidate when macro preservation is off.
const neutralScore = 0.5

// MacroSimilarity scores how close two per-100g macro profiles are, in [0,1].
func MacroSimilarity(a, b nutrition.IngredientData) float64 {
	pa, pb := a.Per100g, b.Per100g
	return proteinWeight*closeness(pa.Protein, pb.Protein, proteinScale) +
		carbsWeight*closeness(pa.Carbs, pb.Carbs, carbsScale) +
		fatWeight*closeness(pa.Fat, pb.Fat, fatScale) +
		caloriesWeight*closeness(pa.Calories, pb.Calories, caloriesScale)
}

func closeness(a, b, scale float64) float64 {
	return math.Max(0, 1-math.Abs(a-b)/scale)
}

// TagOverlap is the share of the original's tags the candidate also carries.
// An original without tags overlaps nothing.
func TagOverlap(original, candidate nutrition.IngredientData) float64 {
	if len(original.Tags) == 0 {
		return 0
	}
	have := make(map[string]struct{}, len(candidate.Tags))
	for _, t := range candidate.Tags {
		have[t] = struct{}{}
	}
	wanted := make(map[string]struct{}, len(original.Tags))
	shared := 0
	for _, t := range original.Tags {
		if _, dup := wanted[t]; dup {
			continue
		}
		wanted[t] = struct{}{}
		if _, ok := have[t]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(wanted))
}

// RankScore blends macro similarity and tag overlap.
func RankScore(macroSimilarity, tagOverlap float64) float64 {
	return macroRankWeight*macroSimilarity + tagRankWeight*tagOverlap
}

// ConversionRatio is the mass multiplier that keeps calories comparable when
// original is replaced by substitute. A zero-calorie substitute keeps the mass.
func ConversionRatio(original, substitute nutrition.IngredientData) float64 {
	if substitute.Per100g.Calories <= 0 {
		return 1
	}
	return original.Per100g.Calories / substitute.Per100g.Calories
}
