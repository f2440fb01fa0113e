// Package catalog owns the ingredient reference table and client
// restrictions: loading, importing and storing them.
package catalog

import (
	"fmt"

	"coach-planner/internal/nutrition"
)

// Catalog is an immutable, validated ingredient reference table.
type Catalog struct {
	ingredients []nutrition.IngredientData
	byID        map[string]int
}

// New validates ingredients and rejects duplicate ids. Order is kept; it is
// the tiebreak order the substitution engine uses.
func New(ingredients []nutrition.IngredientData) (*Catalog, error) {
	c := &Catalog{
		ingredients: make([]nutrition.IngredientData, 0, len(ingredients)),
		byID:        make(map[string]int, len(ingredients)),
	}
	for _, ing := range ingredients {
		if err := ing.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.byID[ing.ID]; dup {
			return nil, fmt.Errorf("duplicate ingredient id %q", ing.ID)
		}
		ing.Category, _ = nutrition.ParseCategory(string(ing.Category))
		c.byID[ing.ID] = len(c.ingredients)
		c.ingredients = append(c.ingredients, ing.Clone())
	}
	return c, nil
}

// Ingredient looks up an ingredient by id.
func (c *Catalog) Ingredient(id string) (nutrition.IngredientData, bool) {
	i, ok := c.byID[id]
	if !ok {
		return nutrition.IngredientData{}, false
	}
	return c.ingredients[i].Clone(), true
}

// All returns a copy of every ingredient in table order.
func (c *Catalog) All() []nutrition.IngredientData {
	return nutrition.CloneIngredients(c.ingredients)
}

// Len is the number of ingredients.
func (c *Catalog) Len() int { return len(c.ingredients) }

// Known filters ids down to those present in the catalog.
func (c *Catalog) Known(ids []string) []string {
	var out []string
	for _, id := range ids {
		if _, ok := c.byID[id]; ok {
			out = append(out, id)
		}
	}
	return out
}
