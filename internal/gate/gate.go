// Package gate decides whether a client has enough liked ingredients for a
// plan to be generated.
package gate

import (
	"fmt"

	"coach-planner/internal/nutrition"
)

// PlanType is the horizon of a generated plan.
type PlanType string

const (
	PlanDaily  PlanType = "daily"
	PlanWeekly PlanType = "weekly"
)

// Default thresholds.
const (
	DefaultDailyMinimum  = 3
	DefaultWeeklyMinimum = 5
)

// Result is the outcome of a gate check. Message is advisory text only.
type Result struct {
	Valid   bool
	Message string
}

// Gate holds the liked-ingredient thresholds per plan type.
type Gate struct {
	DailyMinimum  int
	WeeklyMinimum int
}

// New returns a Gate with the default thresholds.
func New() Gate {
	return Gate{DailyMinimum: DefaultDailyMinimum, WeeklyMinimum: DefaultWeeklyMinimum}
}

// Validate checks restrictions against the threshold for planType. It reads
// nothing but its arguments so restriction edits are reflected on the next call.
func (g Gate) Validate(clientID string, r nutrition.ClientIngredientRestrictions, planType PlanType) Result {
	var minimum int
	switch planType {
	case PlanDaily:
		minimum = g.DailyMinimum
	case PlanWeekly:
		minimum = g.WeeklyMinimum
	default:
		return Result{Message: fmt.Sprintf("Unknown plan type %q.", planType)}
	}

	liked := r.LikedCount()
	if liked < minimum {
		return Result{
			Message: fmt.Sprintf(
				"Client %s has %d liked ingredients; a %s plan needs at least %d. Add %d more before generating.",
				clientID, liked, planType, minimum, minimum-liked,
			),
		}
	}
	return Result{
		Valid:   true,
		Message: fmt.Sprintf("Client %s has %d liked ingredients, ready for a %s plan.", clientID, liked, planType),
	}
}

// ParsePlanType maps user input onto a PlanType.
func ParsePlanType(s string) (PlanType, error) {
	switch PlanType(s) {
	case PlanDaily, PlanWeekly:
		return PlanType(s), nil
	case "":
		return PlanWeekly, nil
	}
	return "", fmt.Errorf("unknown plan type %q (want daily or weekly)", s)
}

// Days returns how many days a plan of this type spans.
func (p PlanType) Days() int {
	if p == PlanDaily {
		return 1
	}
	return 7
}
