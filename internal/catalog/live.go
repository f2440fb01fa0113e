package catalog

import (
	"sync/atomic"

	"coach-planner/internal/nutrition"
)

// Live serves the current catalog and can be swapped after a reseed
// without restarting long running consumers.
type Live struct {
	cur atomic.Pointer[Catalog]
}

// NewLive wraps c. A nil c serves an empty table.
func NewLive(c *Catalog) *Live {
	l := &Live{}
	l.Set(c)
	return l
}

// Set replaces the served catalog.
func (l *Live) Set(c *Catalog) {
	if c == nil {
		c, _ = New(nil)
	}
	l.cur.Store(c)
}

// Current returns the catalog being served.
func (l *Live) Current() *Catalog { return l.cur.Load() }

// Ingredient looks up an ingredient by id in the current catalog.
func (l *Live) Ingredient(id string) (nutrition.IngredientData, bool) {
	return l.Current().Ingredient(id)
}

// All returns every ingredient of the current catalog.
func (l *Live) All() []nutrition.IngredientData { return l.Current().All() }
