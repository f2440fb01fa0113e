package nutrition

import (
	"fmt"
	"slices"
	"strings"
)

// Category groups ingredients by their dominant role in a meal.
type Category string

const (
	CategoryProtein      Category = "protein"
	CategoryCarbohydrate Category = "carbohydrate"
	CategoryFat          Category = "fat"
	CategoryFruit        Category = "fruit"
	CategoryVegetable    Category = "vegetable"
	CategoryMisc         Category = "misc"
)

// ParseCategory accepts a category name in any case. Unknown names are an error.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	switch c {
	case CategoryProtein, CategoryCarbohydrate, CategoryFat, CategoryFruit, CategoryVegetable, CategoryMisc:
		return c, nil
	case "carb", "carbs":
		return CategoryCarbohydrate, nil
	}
	return "", fmt.Errorf("unknown ingredient category %q", s)
}

// IngredientData is immutable reference data for one ingredient.
type IngredientData struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Category    Category `json:"category" yaml:"category"`
	Per100g     Macros   `json:"per_100g" yaml:"per_100g"`
	ServingSize float64  `json:"serving_size" yaml:"serving_size"`
	Tags        []string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// Clone returns a copy that shares no memory with i.
func (i IngredientData) Clone() IngredientData {
	i.Tags = slices.Clone(i.Tags)
	return i
}

// MacrosFor returns the macros of amount grams of the ingredient.
func (i IngredientData) MacrosFor(grams float64) Macros {
	return i.Per100g.Scale(grams / 100)
}

// Validate checks the invariants of reference data.
func (i IngredientData) Validate() error {
	if strings.TrimSpace(i.ID) == "" {
		return fmt.Errorf("ingredient id is required")
	}
	if strings.TrimSpace(i.Name) == "" {
		return fmt.Errorf("ingredient %s: name is required", i.ID)
	}
	if _, err := ParseCategory(string(i.Category)); err != nil {
		return fmt.Errorf("ingredient %s: %w", i.ID, err)
	}
	m := i.Per100g
	if m.Calories < 0 || m.Protein < 0 || m.Carbs < 0 || m.Fat < 0 || m.Fiber < 0 {
		return fmt.Errorf("ingredient %s: macros must be non-negative", i.ID)
	}
	return nil
}

// CloneIngredients deep-copies a list of ingredients.
func CloneIngredients(in []IngredientData) []IngredientData {
	if in == nil {
		return nil
	}
	out := make([]IngredientData, len(in))
	for i, ing := range in {
		out[i] = ing.Clone()
	}
	return out
}
