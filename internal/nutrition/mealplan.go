package nutrition

import (
	"fmt"
	"strings"
	"time"
)

// MealType names one of the four daily meal slots.
type MealType string

const (
	MealBreakfast MealType = "breakfast"
	MealLunch     MealType = "lunch"
	MealDinner    MealType = "dinner"
	MealSnack     MealType = "snack"
)

// MealTypes lists the slots in their canonical order.
var MealTypes = []MealType{MealBreakfast, MealLunch, MealDinner, MealSnack}

// ParseMealType accepts a slot name in any case.
func ParseMealType(s string) (MealType, error) {
	mt := MealType(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range MealTypes {
		if mt == known {
			return mt, nil
		}
	}
	return "", fmt.Errorf("unknown meal type %q", s)
}

// MealData is the content of one meal slot on one day.
type MealData struct {
	Ingredients []IngredientData `json:"ingredients"`
	RecipeText  string           `json:"recipe_text"`
	Macros      Macros           `json:"macros"`
}

// Clone deep-copies the meal.
func (m MealData) Clone() MealData {
	m.Ingredients = CloneIngredients(m.Ingredients)
	return m
}

// DailyPlan holds the four meal slots of one day.
type DailyPlan struct {
	Breakfast    MealData `json:"breakfast"`
	Lunch        MealData `json:"lunch"`
	Dinner       MealData `json:"dinner"`
	Snack        MealData `json:"snack"`
	TotalMacros  Macros   `json:"total_macros"`
	TargetMacros Macros   `json:"target_macros"`
	Variance     Macros   `json:"variance"`
}

// Meal returns a pointer to the slot for mt, or nil for an unknown slot.
func (d *DailyPlan) Meal(mt MealType) *MealData {
	switch mt {
	case MealBreakfast:
		return &d.Breakfast
	case MealLunch:
		return &d.Lunch
	case MealDinner:
		return &d.Dinner
	case MealSnack:
		return &d.Snack
	}
	return nil
}

// Clone deep-copies the day.
func (d DailyPlan) Clone() DailyPlan {
	d.Breakfast = d.Breakfast.Clone()
	d.Lunch = d.Lunch.Clone()
	d.Dinner = d.Dinner.Clone()
	d.Snack = d.Snack.Clone()
	return d
}

// Summarize recomputes total and variance from the meal slots.
func (d *DailyPlan) Summarize() {
	d.TotalMacros = Sum(d.Breakfast.Macros, d.Lunch.Macros, d.Dinner.Macros, d.Snack.Macros).Round()
	d.Variance = d.TotalMacros.Sub(d.TargetMacros)
}

// PlanDay places a DailyPlan in the week.
type PlanDay struct {
	DayNumber int       `json:"day_number"`
	DayName   string    `json:"day_name"`
	Plan      DailyPlan `json:"plan"`
}

// WeeklyPlan is the ordered list of days plus weekly aggregates.
type WeeklyPlan struct {
	Days         []PlanDay `json:"days"`
	TotalMacros  Macros    `json:"total_macros"`
	TargetMacros Macros    `json:"target_macros"`
	Variance     Macros    `json:"variance"`
}

// Clone deep-copies the week.
func (w WeeklyPlan) Clone() WeeklyPlan {
	if w.Days != nil {
		days := make([]PlanDay, len(w.Days))
		for i, d := range w.Days {
			d.Plan = d.Plan.Clone()
			days[i] = d
		}
		w.Days = days
	}
	return w
}

// Summarize recomputes the weekly total and variance from the days.
func (w *WeeklyPlan) Summarize() {
	var total Macros
	for _, d := range w.Days {
		total = total.Add(d.Plan.TotalMacros)
	}
	w.TotalMacros = total.Round()
	w.Variance = w.TotalMacros.Sub(w.TargetMacros)
}

// MealPlanPayload is what the external generator produces. Once LockedAt is
// set it is immutable input to the snapshot builder.
type MealPlanPayload struct {
	GeneratedAt      time.Time  `json:"generated_at"`
	LockedAt         *time.Time `json:"locked_at"`
	MacroTargets     Macros     `json:"macro_targets"`
	WeeklyPlan       WeeklyPlan `json:"weekly_plan"`
	LikedIngredients []string   `json:"liked_ingredients_snapshot"`
}

// Clone deep-copies the payload.
func (p MealPlanPayload) Clone() MealPlanPayload {
	if p.LockedAt != nil {
		t := *p.LockedAt
		p.LockedAt = &t
	}
	p.WeeklyPlan = p.WeeklyPlan.Clone()
	if p.LikedIngredients != nil {
		p.LikedIngredients = append([]string(nil), p.LikedIngredients...)
	}
	return p
}

// RecipeIngredient is one line of a recipe: a named ingredient and its mass in grams.
type RecipeIngredient struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

// Recipe is the unit the substitution engine adapts and scales.
type Recipe struct {
	Name        string             `json:"name"`
	Ingredients []RecipeIngredient `json:"ingredients"`
	Macros      Macros             `json:"macros"`
}

// Clone deep-copies the recipe.
func (r Recipe) Clone() Recipe {
	if r.Ingredients != nil {
		r.Ingredients = append([]RecipeIngredient(nil), r.Ingredients...)
	}
	return r
}
