// Package override records proposed single-ingredient substitutions against
// a locked plan version. Overrides start unapproved and end either approved
// or archived; they are never deleted.
package override

import (
	"fmt"
	"time"

	"coach-planner/internal/nutrition"
)

// Suggester identifies who proposed an override.
type Suggester string

const (
	SuggestedByClient Suggester = "client"
	SuggestedByCoach  Suggester = "coach"
	SuggestedBySystem Suggester = "system"
)

// ParseSuggester validates a stored or user-supplied suggester.
func ParseSuggester(s string) (Suggester, error) {
	switch Suggester(s) {
	case SuggestedByClient, SuggestedByCoach, SuggestedBySystem:
		return Suggester(s), nil
	}
	return "", fmt.Errorf("unknown suggester %q", s)
}

// Override is a single proposed ingredient swap.
type Override struct {
	ID                    string             `json:"id"`
	PlanVersionID         string             `json:"plan_version_id"`
	ClientID              string             `json:"client_id"`
	MealType              nutrition.MealType `json:"meal_type"`
	OriginalIngredient    string             `json:"original_ingredient"`
	ReplacementIngredient string             `json:"replacement_ingredient"`
	MacroDelta            nutrition.Macros   `json:"macro_delta"`
	WithinTolerance       bool               `json:"within_tolerance"`
	SuggestedBy           Suggester          `json:"suggested_by"`
	ApprovedBy            *string            `json:"approved_by"`
	CreatedAt             time.Time          `json:"created_at"`
	Archived              bool               `json:"archived"`
}

// Approved reports whether a coach signed off on the override.
func (o Override) Approved() bool { return o.ApprovedBy != nil }

// Terminal reports whether the override can no longer change.
func (o Override) Terminal() bool { return o.Approved() || o.Archived }

// Clone returns a copy that shares no pointers with o.
func (o Override) Clone() Override {
	if o.ApprovedBy != nil {
		v := *o.ApprovedBy
		o.ApprovedBy = &v
	}
	return o
}

// CloneAll copies a slice of overrides.
func CloneAll(in []Override) []Override {
	if in == nil {
		return nil
	}
	out := make([]Override, len(in))
	for i, o := range in {
		out[i] = o.Clone()
	}
	return out
}

// CreateParams are the caller-supplied fields of a new override.
type CreateParams struct {
	PlanVersionID         string
	ClientID              string
	MealType              nutrition.MealType
	OriginalIngredient    string
	ReplacementIngredient string
	MacroDelta            nutrition.Macros
	WithinTolerance       bool
	SuggestedBy           Suggester
}

// Validate checks the parameters before anything is stored.
func (p CreateParams) Validate() error {
	switch {
	case p.PlanVersionID == "":
		return fmt.Errorf("plan version id is required")
	case p.ClientID == "":
		return fmt.Errorf("client id is required")
	case p.OriginalIngredient == "" || p.ReplacementIngredient == "":
		return fmt.Errorf("original and replacement ingredients are required")
	case p.OriginalIngredient == p.ReplacementIngredient:
		return fmt.Errorf("replacement must differ from the original ingredient")
	}
	if _, err := nutrition.ParseMealType(string(p.MealType)); err != nil {
		return err
	}
	if _, err := ParseSuggester(string(p.SuggestedBy)); err != nil {
		return err
	}
	return nil
}
