package coach

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"coach-planner/internal/apperr"
	"coach-planner/internal/lifecycle"
	"coach-planner/internal/nutrition"
	"coach-planner/internal/override"
	"coach-planner/internal/plan"
	"coach-planner/internal/substitution"
)

// OverrideRequest names a swap against a locked plan version. An empty
// Replacement asks the substitution engine to choose one.
type OverrideRequest struct {
	PlanVersionID string
	MealType      nutrition.MealType
	Original      string
	Replacement   string
}

// SuggestOverride lets the substitution engine pick a replacement for
// req.Original under the client's restrictions and records the result.
func (s *Service) SuggestOverride(ctx context.Context, actor lifecycle.Actor, req OverrideRequest) (override.Override, error) {
	req.Replacement = ""
	return s.recordOverride(ctx, "coach.SuggestOverride", actor, req)
}

// CreateOverride records an explicit swap chosen by the actor.
func (s *Service) CreateOverride(ctx context.Context, actor lifecycle.Actor, req OverrideRequest) (override.Override, error) {
	const op = "coach.CreateOverride"
	if req.Replacement == "" {
		return override.Override{}, apperr.Validation(op, "replacement ingredient is required")
	}
	return s.recordOverride(ctx, op, actor, req)
}

func (s *Service) recordOverride(ctx context.Context, op string, actor lifecycle.Actor, req OverrideRequest) (override.Override, error) {
	ctx, span := s.start(ctx, op,
		attribute.String("plan_version_id", req.PlanVersionID),
		attribute.String("meal_type", string(req.MealType)),
		attribute.String("original_ingredient", req.Original))
	defer span.End()

	o, err := s.buildOverride(ctx, op, actor, req)
	if err != nil {
		return override.Override{}, s.fail(ctx, span, op, err)
	}
	s.inst.overridesCreated.Add(ctx, 1, metric.WithAttributes(attribute.String("suggested_by", string(o.SuggestedBy))))
	return o, nil
}

func (s *Service) buildOverride(ctx context.Context, op string, actor lifecycle.Actor, req OverrideRequest) (override.Override, error) {
	if err := actor.Validate(); err != nil {
		return override.Override{}, apperr.Validation(op, err.Error())
	}
	mealType, err := nutrition.ParseMealType(string(req.MealType))
	if err != nil {
		return override.Override{}, apperr.Validation(op, err.Error())
	}

	version, err := s.version(ctx, op, req.PlanVersionID)
	if err != nil {
		return override.Override{}, err
	}
	// A persisted snapshot is never rebuilt.
	if version.HasSnapshot {
		return override.Override{}, apperr.Conflict(op, "plan version "+version.ID+" already has a snapshot; new overrides would never apply")
	}

	original, ok := s.live.Ingredient(req.Original)
	if !ok {
		return override.Override{}, apperr.Validation(op, fmt.Sprintf("unknown ingredient %q", req.Original))
	}

	engine := substitution.NewEngine(s.live.All(),
		substitution.WithMacroPreservation(s.policy.PreserveMacros),
		substitution.WithLogger(s.logger))

	var (
		replacement nutrition.IngredientData
		ratio       = 1.0
	)
	if req.Replacement == "" {
		res, err := s.Restrictions(ctx, version.ClientID)
		if err != nil {
			return override.Override{}, err
		}
		found, ok := engine.FindSubstitute(original, res)
		if !ok {
			return override.Override{}, apperr.NotFound(op, fmt.Sprintf("no substitute available for %s", original.ID))
		}
		replacement, ratio = found.Substitute, found.Rule.ConversionRatio
	} else {
		replacement, ok = s.live.Ingredient(req.Replacement)
		if !ok {
			return override.Override{}, apperr.Validation(op, fmt.Sprintf("unknown ingredient %q", req.Replacement))
		}
		if s.policy.PreserveMacros {
			ratio = substitution.ConversionRatio(original, replacement)
		}
	}

	delta := MacroDelta(original, replacement, ratio)
	within := s.policy.Tolerance.Within(delta, targetMeal(version, mealType, original.ID).Macros)

	return s.ledger.Create(ctx, override.CreateParams{
		PlanVersionID:         version.ID,
		ClientID:              version.ClientID,
		MealType:              mealType,
		OriginalIngredient:    original.ID,
		ReplacementIngredient: replacement.ID,
		MacroDelta:            delta,
		WithinTolerance:       within,
		SuggestedBy:           suggesterFor(actor),
	})
}

// MacroDelta is the macro change of one typical serving of original when it
// is replaced by ratio times as much replacement, to one decimal.
func MacroDelta(original, replacement nutrition.IngredientData, ratio float64) nutrition.Macros {
	d := replacement.Per100g.Scale(ratio).Sub(original.Per100g).Scale(original.ServingSize / 100)
	return nutrition.Macros{
		Calories: nutrition.RoundTo(d.Calories, 1),
		Protein:  nutrition.RoundTo(d.Protein, 1),
		Carbs:    nutrition.RoundTo(d.Carbs, 1),
		Fat:      nutrition.RoundTo(d.Fat, 1),
		Fiber:    nutrition.RoundTo(d.Fiber, 1),
	}
}

// targetMeal is the first meal in the slot that holds ingredientID, else
// the slot on the first day.
func targetMeal(v *plan.Version, mt nutrition.MealType, ingredientID string) nutrition.MealData {
	days := v.Payload.WeeklyPlan.Days
	for i := range days {
		meal := days[i].Plan.Meal(mt)
		for _, ing := range meal.Ingredients {
			if ing.ID == ingredientID {
				return *meal
			}
		}
	}
	if len(days) == 0 {
		return nutrition.MealData{}
	}
	return *days[0].Plan.Meal(mt)
}

func suggesterFor(a lifecycle.Actor) override.Suggester {
	switch a.Role {
	case lifecycle.RoleCoach:
		return override.SuggestedByCoach
	case lifecycle.RoleSystem:
		return override.SuggestedBySystem
	}
	return override.SuggestedByClient
}

// FetchPendingOverrides lists unapproved, unarchived overrides, newest first.
func (s *Service) FetchPendingOverrides(ctx context.Context, planVersionID string) ([]override.Override, error) {
	return s.ledger.FetchPending(ctx, planVersionID)
}

// ApproveOverride signs off an override. Only coaches may approve.
func (s *Service) ApproveOverride(ctx context.Context, actor lifecycle.Actor, id string) error {
	const op = "coach.ApproveOverride"
	ctx, span := s.start(ctx, op, attribute.String("override_id", id))
	defer span.End()

	if err := requireCoach(op, actor); err != nil {
		return s.fail(ctx, span, op, err)
	}
	return s.fail(ctx, span, op, s.ledger.Approve(ctx, id, actor.ID))
}

// ArchiveOverride tombstones an override. Only coaches may archive.
func (s *Service) ArchiveOverride(ctx context.Context, actor lifecycle.Actor, id string) error {
	const op = "coach.ArchiveOverride"
	ctx, span := s.start(ctx, op, attribute.String("override_id", id))
	defer span.End()

	if err := requireCoach(op, actor); err != nil {
		return s.fail(ctx, span, op, err)
	}
	return s.fail(ctx, span, op, s.ledger.Archive(ctx, id))
}

func requireCoach(op string, actor lifecycle.Actor) error {
	if err := actor.Validate(); err != nil {
		return apperr.Validation(op, err.Error())
	}
	if !actor.IsCoach() {
		return apperr.Validation(op, "only coaches may approve or archive overrides")
	}
	return nil
}

func (s *Service) version(ctx context.Context, op, id string) (*plan.Version, error) {
	if id == "" {
		return nil, apperr.Validation(op, "plan version id is required")
	}
	v, err := s.plans.GetVersion(ctx, id)
	if err != nil {
		return nil, apperr.Persistence(op, err)
	}
	if v == nil {
		return nil, apperr.NotFound(op, "plan version "+id+" does not exist")
	}
	return v, nil
}
