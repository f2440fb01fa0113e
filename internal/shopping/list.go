// Package shopping derives a shopping list from a finalized plan.
package shopping

import (
	"cmp"
	"slices"

	"coach-planner/internal/nutrition"
)

// Item is one ingredient to buy. Grams assumes a typical serving per use.
type Item struct {
	IngredientID string             `json:"ingredient_id"`
	Name         string             `json:"name"`
	Category     nutrition.Category `json:"category"`
	Servings     int                `json:"servings"`
	Grams        float64            `json:"grams"`
}

// ShoppingList represents a shopping list for a plan version.
type ShoppingList struct {
	PlanVersionID string `json:"plan_version_id"`
	Items         []Item `json:"items"`
}

// FromWeek counts every ingredient occurrence across all meals of week.
// Items are ordered by category, then name.
func FromWeek(planVersionID string, week nutrition.WeeklyPlan) ShoppingList {
	byID := map[string]*Item{}
	for _, d := range week.Days {
		for _, mt := range nutrition.MealTypes {
			for _, ing := range d.Plan.Meal(mt).Ingredients {
				it, ok := byID[ing.ID]
				if !ok {
					it = &Item{IngredientID: ing.ID, Name: ing.Name, Category: ing.Category}
					byID[ing.ID] = it
				}
				it.Servings++
				it.Grams += ing.ServingSize
			}
		}
	}

	items := make([]Item, 0, len(byID))
	for _, it := range byID {
		items = append(items, *it)
	}
	slices.SortFunc(items, func(a, b Item) int {
		if c := cmp.Compare(a.Category, b.Category); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return ShoppingList{PlanVersionID: planVersionID, Items: items}
}
