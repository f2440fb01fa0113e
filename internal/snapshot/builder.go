package snapshot

import (
	"cmp"
	"log/slog"
	"slices"
	"time"

	"coach-planner/internal/apperr"
	"coach-planner/internal/nutrition"
	"coach-planner/internal/override"
)

// Catalog resolves reference ingredients by id.
type Catalog interface {
	Ingredient(id string) (nutrition.IngredientData, bool)
}

// BuildInput is everything a build reads. Nothing in it is modified.
type BuildInput struct {
	Status        Status
	PlanID        string
	PlanVersionID string
	ClientID      string
	Payload       nutrition.MealPlanPayload
	Overrides     []override.Override
	// CreatedAt stamps the snapshot; zero falls back to lockedAt, then generatedAt.
	CreatedAt time.Time
}

// Builder turns BuildInput into a Snapshot. It holds no mutable state.
type Builder struct {
	catalog Catalog
	logger  *slog.Logger
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithLogger sets the logger used to report skipped overrides.
func WithLogger(logger *slog.Logger) BuilderOption {
	return func(b *Builder) { b.logger = logger }
}

// NewBuilder creates a builder resolving replacements against catalog.
func NewBuilder(catalog Catalog, opts ...BuilderOption) *Builder {
	b := &Builder{catalog: catalog, logger: slog.Default()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build reconciles the payload with the overrides. Overrides that target an
// ingredient missing from the meal, or name an unknown replacement, are
// skipped and left out of OverridesApplied.
func (b *Builder) Build(in BuildInput) (Snapshot, error) {
	const op = "snapshot.Build"
	if in.Status != StatusLocked && in.Status != StatusExpired {
		return Snapshot{}, apperr.Precondition(op, "snapshot status must be LOCKED or EXPIRED, got "+string(in.Status))
	}
	if in.Payload.LockedAt == nil {
		return Snapshot{}, apperr.Precondition(op, "plan payload has no lockedAt")
	}

	ordered := Normalize(in.Overrides)
	applied := make(map[string]bool, len(ordered))

	week := in.Payload.WeeklyPlan.Clone()
	for d := range week.Days {
		day := &week.Days[d].Plan
		touched := false
		for _, mt := range nutrition.MealTypes {
			if b.applyToMeal(day.Meal(mt), mt, ordered, applied) {
				touched = true
			}
		}
		// Meals are rounded after their delta, so the day is re-totalled
		// from them rather than from the raw deltas.
		if touched {
			day.Summarize()
		}
	}
	week.Summarize()

	var appliedList []override.Override
	for _, o := range ordered {
		if applied[o.ID] {
			appliedList = append(appliedList, o)
			continue
		}
		b.logger.Info("SNAPSHOT: Override not applied",
			"override_id", o.ID,
			"plan_version_id", in.PlanVersionID,
			"meal_type", o.MealType,
			"original_ingredient", o.OriginalIngredient,
			"replacement_ingredient", o.ReplacementIngredient)
	}

	payload := in.Payload
	createdAt := in.CreatedAt
	if createdAt.IsZero() {
		createdAt = *payload.LockedAt
	}
	if createdAt.IsZero() {
		createdAt = payload.GeneratedAt
	}

	var liked []string
	if payload.LikedIngredients != nil {
		liked = append([]string(nil), payload.LikedIngredients...)
	}

	return Snapshot{
		Status: in.Status,
		Metadata: Metadata{
			PlanID:            in.PlanID,
			PlanVersionID:     in.PlanVersionID,
			ClientID:          in.ClientID,
			GeneratedAt:       payload.GeneratedAt,
			LockedAt:          *payload.LockedAt,
			SnapshotCreatedAt: createdAt,
			MacroTargets:      payload.MacroTargets,
			LikedIngredients:  liked,
			OverridesApplied:  appliedList,
		},
		WeeklyPlan: week,
	}, nil
}

// applyToMeal swaps ingredients in place, adds the accumulated delta to the
// meal macros and reports whether any override applied.
func (b *Builder) applyToMeal(meal *nutrition.MealData, mt nutrition.MealType, ordered []override.Override, applied map[string]bool) bool {
	var delta nutrition.Macros
	touched := false
	for _, o := range ordered {
		if o.MealType != mt {
			continue
		}
		idx := slices.IndexFunc(meal.Ingredients, func(ing nutrition.IngredientData) bool {
			return ing.ID == o.OriginalIngredient
		})
		if idx < 0 {
			continue
		}
		replacement, ok := b.catalog.Ingredient(o.ReplacementIngredient)
		if !ok {
			continue
		}
		meal.Ingredients[idx] = replacement.Clone()
		delta = delta.Add(o.MacroDelta)
		applied[o.ID] = true
		touched = true
	}
	if touched {
		meal.Macros = meal.Macros.Add(delta).Round()
	}
	return touched
}

// Normalize returns a copy of overrides sorted by (createdAt, id) ascending.
func Normalize(overrides []override.Override) []override.Override {
	out := override.CloneAll(overrides)
	slices.SortStableFunc(out, func(a, b override.Override) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}
