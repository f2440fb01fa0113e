// Package substitution replaces blocked ingredients with the closest allowed
// alternative and rescales recipes toward macro targets.
package substitution

import (
	"cmp"
	"log/slog"
	"slices"
	"strings"

	"coach-planner/internal/nutrition"
)

// Candidate is a scored replacement option.
type Candidate struct {
	Ingredient      nutrition.IngredientData
	MacroSimilarity float64
	TagOverlap      float64
	Score           float64
}

// Rule describes a chosen substitution. It is computed on demand and never stored.
type Rule struct {
	OriginalID      string  `json:"original_id"`
	SubstituteID    string  `json:"substitute_id"`
	ConversionRatio float64 `json:"conversion_ratio"`
	MacroSimilarity float64 `json:"macro_similarity"`
}

// Result is the outcome of a successful substitute lookup.
type Result struct {
	Rule       Rule
	Substitute nutrition.IngredientData
	// Ranked holds every candidate that survived the cascade, best first.
	Ranked []Candidate
}

// Engine selects substitutes from a fixed reference table.
type Engine struct {
	ingredients    []nutrition.IngredientData
	byID           map[string]int
	byName         map[string]int
	preserveMacros bool
	logger         *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithMacroPreservation toggles macro-aware scoring and calorie conversion.
func WithMacroPreservation(enabled bool) Option {
	return func(e *Engine) { e.preserveMacros = enabled }
}

// WithLogger sets the logger used for non-fatal warnings.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine builds an engine over the reference ingredients. The slice order
// is the tiebreak order for equally scored candidates.
func NewEngine(ingredients []nutrition.IngredientData, opts ...Option) *Engine {
	e := &Engine{
		ingredients:    nutrition.CloneIngredients(ingredients),
		byID:           make(map[string]int, len(ingredients)),
		byName:         make(map[string]int, len(ingredients)),
		preserveMacros: true,
		logger:         slog.Default(),
	}
	for i, ing := range e.ingredients {
		e.byID[ing.ID] = i
		key := nameKey(ing.Name)
		if _, taken := e.byName[key]; !taken {
			e.byName[key] = i
		}
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Ingredient looks up reference data by id.
func (e *Engine) Ingredient(id string) (nutrition.IngredientData, bool) {
	i, ok := e.byID[id]
	if !ok {
		return nutrition.IngredientData{}, false
	}
	return e.ingredients[i], true
}

// Resolve looks up reference data by name, falling back to id.
func (e *Engine) Resolve(name string) (nutrition.IngredientData, bool) {
	if i, ok := e.byName[nameKey(name)]; ok {
		return e.ingredients[i], true
	}
	return e.Ingredient(strings.TrimSpace(name))
}

func nameKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// FindSubstitute picks the best replacement for blocked under r. The second
// return is false when no candidate exists; callers treat that as a skip.
func (e *Engine) FindSubstitute(blocked nutrition.IngredientData, r nutrition.ClientIngredientRestrictions) (Result, bool) {
	pool := e.candidates(blocked, r)
	if len(pool) == 0 {
		return Result{}, false
	}

	ranked := make([]Candidate, len(pool))
	for i, ing := range pool {
		c := Candidate{Ingredient: ing, MacroSimilarity: neutralScore, Score: neutralScore}
		if e.preserveMacros {
			c.MacroSimilarity = MacroSimilarity(blocked, ing)
			c.TagOverlap = TagOverlap(blocked, ing)
			c.Score = RankScore(c.MacroSimilarity, c.TagOverlap)
		}
		ranked[i] = c
	}
	slices.SortStableFunc(ranked, func(a, b Candidate) int {
		return cmp.Compare(b.Score, a.Score)
	})

	best := ranked[0]
	ratio := 1.0
	if e.preserveMacros {
		ratio = ConversionRatio(blocked, best.Ingredient)
	}
	return Result{
		Rule: Rule{
			OriginalID:      blocked.ID,
			SubstituteID:    best.Ingredient.ID,
			ConversionRatio: ratio,
			MacroSimilarity: best.MacroSimilarity,
		},
		Substitute: best.Ingredient,
		Ranked:     ranked,
	}, true
}

// candidates runs the selection cascade; the first non-empty step wins.
func (e *Engine) candidates(blocked nutrition.IngredientData, r nutrition.ClientIngredientRestrictions) []nutrition.IngredientData {
	allowed := func(ing nutrition.IngredientData) bool {
		return ing.ID != blocked.ID && !r.IsBlocked(ing.ID)
	}

	if prefs := r.SubstitutionPreferences[blocked.ID]; len(prefs) > 0 {
		if ing, ok := e.Ingredient(prefs[0]); ok && allowed(ing) {
			return []nutrition.IngredientData{ing}
		}
	}

	var pool []nutrition.IngredientData
	for _, ing := range e.ingredients {
		if allowed(ing) && ing.Category == blocked.Category {
			pool = append(pool, ing)
		}
	}
	if len(pool) == 0 {
		for _, ing := range e.ingredients {
			if allowed(ing) {
				pool = append(pool, ing)
			}
		}
	}

	var preferred []nutrition.IngredientData
	for _, ing := range pool {
		if r.IsPreferred(ing.ID) {
			preferred = append(preferred, ing)
		}
	}
	if len(preferred) > 0 {
		return preferred
	}
	return pool
}
