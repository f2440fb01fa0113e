package nutrition

import (
	"fmt"
	"math"
	"slices"
)

// ClientIngredientRestrictions are a client's ingredient constraints. They are
// edited by coaches and read by the substitution engine and the validation gate.
type ClientIngredientRestrictions struct {
	ClientID  string   `json:"client_id"`
	Blocked   []string `json:"blocked"`
	Preferred []string `json:"preferred"`
	// SubstitutionPreferences maps an ingredient id to an ordered list of
	// replacement ids the client would rather have.
	SubstitutionPreferences map[string][]string `json:"substitution_preferences,omitempty"`
}

// IsBlocked reports whether id is in the blocked set.
func (r ClientIngredientRestrictions) IsBlocked(id string) bool {
	return slices.Contains(r.Blocked, id)
}

// IsPreferred reports whether id is in the preferred set.
func (r ClientIngredientRestrictions) IsPreferred(id string) bool {
	return slices.Contains(r.Preferred, id)
}

// LikedCount is the number of distinct preferred ingredients.
func (r ClientIngredientRestrictions) LikedCount() int {
	seen := make(map[string]struct{}, len(r.Preferred))
	for _, id := range r.Preferred {
		seen[id] = struct{}{}
	}
	return len(seen)
}

// Validate enforces that preferred and blocked sets are disjoint.
func (r ClientIngredientRestrictions) Validate() error {
	if r.ClientID == "" {
		return fmt.Errorf("client id is required")
	}
	for _, id := range r.Preferred {
		if r.IsBlocked(id) {
			return fmt.Errorf("ingredient %s is both preferred and blocked", id)
		}
	}
	return nil
}

// Tolerance is the allowed deviation per axis, as percentages.
type Tolerance struct {
	Calories float64 `json:"calories" yaml:"calories"`
	Protein  float64 `json:"protein" yaml:"protein"`
	Carbs    float64 `json:"carbs" yaml:"carbs"`
	Fat      float64 `json:"fat" yaml:"fat"`
}

// DefaultTolerance is 5% for calories and protein, 8% for carbs and fat.
var DefaultTolerance = Tolerance{Calories: 5, Protein: 5, Carbs: 8, Fat: 8}

// Within reports whether every axis of delta stays inside the tolerance
// relative to base. A zero base only tolerates a zero delta.
func (t Tolerance) Within(delta, base Macros) bool {
	return withinPct(delta.Calories, base.Calories, t.Calories) &&
		withinPct(delta.Protein, base.Protein, t.Protein) &&
		withinPct(delta.Carbs, base.Carbs, t.Carbs) &&
		withinPct(delta.Fat, base.Fat, t.Fat)
}

func withinPct(delta, base, pct float64) bool {
	return math.Abs(delta) <= math.Abs(base)*pct/100
}
