// Package planner turns client preferences into a meal plan payload by
// prompting a language model.
package planner

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"text/template"
	"time"

	"coach-planner/internal/lifecycle"
	"coach-planner/internal/llm"
	"coach-planner/internal/nutrition"
	"coach-planner/internal/shared"
	"coach-planner/internal/substitution"
)

// AgentName identifies generator executions in the metrics store.
const AgentName = "Planner"

//go:embed generator_prompt.md
var generatorPrompt string

var promptTemplate = template.Must(template.New("Planner").Parse(generatorPrompt))

var weekDays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// Catalog is the reference table the generator offers to the model.
type Catalog interface {
	Ingredient(id string) (nutrition.IngredientData, bool)
	All() []nutrition.IngredientData
}

// MetaRecorder receives the metadata of every model call.
type MetaRecorder interface {
	RecordMeta(ctx context.Context, meta shared.AgentMeta) error
}

// Generator implements lifecycle.Generator on top of a TextGenerator.
type Generator struct {
	textGen        llm.TextGenerator
	catalog        Catalog
	recorder       MetaRecorder
	preserveMacros bool
	now            func() time.Time
	logger         *slog.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithRecorder stores token usage and latency after each call.
func WithRecorder(r MetaRecorder) Option {
	return func(g *Generator) { g.recorder = r }
}

// WithMacroPreservation toggles calorie-preserving conversion when blocked
// ingredients in the model output are substituted.
func WithMacroPreservation(enabled bool) Option {
	return func(g *Generator) { g.preserveMacros = enabled }
}

// WithClock overrides the generation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Generator) { g.logger = l }
}

// NewGenerator creates a Generator.
func NewGenerator(textGen llm.TextGenerator, catalog Catalog, opts ...Option) *Generator {
	g := &Generator{
		textGen:        textGen,
		catalog:        catalog,
		preserveMacros: true,
		now:            time.Now,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

var _ lifecycle.Generator = (*Generator)(nil)

type promptData struct {
	ClientID  string
	PlanType  string
	Targets   nutrition.Macros
	Liked     []nutrition.IngredientData
	Blocked   []string
	Available []nutrition.IngredientData
	Days      []string
}

type rawIngredient struct {
	ID    string  `json:"id"`
	Grams float64 `json:"grams"`
}

type rawMeal struct {
	Ingredients []rawIngredient `json:"ingredients"`
	Recipe      string          `json:"recipe"`
}

type rawDay struct {
	Day       string  `json:"day"`
	Breakfast rawMeal `json:"breakfast"`
	Lunch     rawMeal `json:"lunch"`
	Dinner    rawMeal `json:"dinner"`
	Snack     rawMeal `json:"snack"`
}

type rawPlan struct {
	Days []rawDay `json:"days"`
}

// Generate prompts the model and converts its answer into a draft payload.
// The payload is never locked by this call.
func (g *Generator) Generate(ctx context.Context, req lifecycle.GenerateRequest) (nutrition.MealPlanPayload, error) {
	start := g.now()
	days := g.dayNames(req, start)

	prompt, err := buildPrompt(g.promptData(req, days))
	if err != nil {
		return nutrition.MealPlanPayload{}, err
	}

	resp, err := g.textGen.GenerateContent(ctx, prompt)
	if err != nil {
		return nutrition.MealPlanPayload{}, fmt.Errorf("failed to generate meal plan from LLM: %w", err)
	}
	g.record(ctx, shared.AgentMeta{
		AgentName: AgentName,
		ClientID:  req.ClientID,
		Usage:     resp.Usage,
		Latency:   g.now().Sub(start),
	})

	var raw rawPlan
	if err := json.Unmarshal([]byte(stripFences(resp.Content)), &raw); err != nil {
		return nutrition.MealPlanPayload{}, fmt.Errorf("failed to parse meal plan JSON: %w. Response: %s", err, resp.Content)
	}
	if len(raw.Days) < len(days) {
		return nutrition.MealPlanPayload{}, fmt.Errorf("model returned %d day(s), want %d", len(raw.Days), len(days))
	}

	engine := substitution.NewEngine(g.catalog.All(),
		substitution.WithMacroPreservation(g.preserveMacros),
		substitution.WithLogger(g.logger))

	week := nutrition.WeeklyPlan{TargetMacros: req.MacroTargets.Scale(float64(len(days))).Round()}
	for i, name := range days {
		d := raw.Days[i]
		daily := nutrition.DailyPlan{
			Breakfast:    g.meal(engine, req, d.Breakfast),
			Lunch:        g.meal(engine, req, d.Lunch),
			Dinner:       g.meal(engine, req, d.Dinner),
			Snack:        g.meal(engine, req, d.Snack),
			TargetMacros: req.MacroTargets,
		}
		daily.Summarize()
		week.Days = append(week.Days, nutrition.PlanDay{DayNumber: i + 1, DayName: name, Plan: daily})
	}
	week.Summarize()

	return nutrition.MealPlanPayload{
		GeneratedAt:      g.now().UTC(),
		MacroTargets:     req.MacroTargets,
		WeeklyPlan:       week,
		LikedIngredients: append([]string(nil), req.LikedIngredients...),
	}, nil
}

// meal resolves ingredient ids against the catalog. Unknown ids are dropped
// and a missing mass falls back to the serving size. Blocked ingredients go
// through recipe adaptation; an adapted meal is then scaled back toward the
// macros the model planned for it.
func (g *Generator) meal(engine *substitution.Engine, req lifecycle.GenerateRequest, raw rawMeal) nutrition.MealData {
	out := nutrition.MealData{RecipeText: strings.TrimSpace(raw.Recipe)}
	rec := nutrition.Recipe{Name: out.RecipeText}
	blocked := false
	for _, line := range raw.Ingredients {
		ing, ok := g.catalog.Ingredient(line.ID)
		if !ok {
			g.logger.Warn("PLANNER: Unknown ingredient in model output", "ingredient_id", line.ID, "client_id", req.ClientID)
			continue
		}
		if req.Restrictions.IsBlocked(ing.ID) {
			g.logger.Warn("PLANNER: Blocked ingredient in model output", "ingredient_id", ing.ID, "client_id", req.ClientID)
			blocked = true
		}
		grams := line.Grams
		if grams <= 0 {
			grams = ing.ServingSize
		}
		rec.Ingredients = append(rec.Ingredients, nutrition.RecipeIngredient{Name: ing.Name, Amount: grams})
	}

	planned := engine.RecipeMacros(rec.Ingredients)
	if blocked {
		adapted := engine.AdaptRecipe(rec, req.Restrictions)
		scaled := engine.ScaleToTarget(adapted.Recipe, planned)
		g.logger.Info("PLANNER: Adapted meal",
			"client_id", req.ClientID,
			"substitutions", len(adapted.Substitutions),
			"dropped", len(adapted.Dropped),
			"scale_factor", scaled.ScaleFactor,
			"accuracy", scaled.Accuracy)
		rec = scaled.Recipe
		planned = scaled.Recipe.Macros
	}

	for _, line := range rec.Ingredients {
		if ing, ok := engine.Resolve(line.Name); ok {
			out.Ingredients = append(out.Ingredients, ing)
		}
	}
	out.Macros = planned
	return out
}

func (g *Generator) promptData(req lifecycle.GenerateRequest, days []string) promptData {
	data := promptData{
		ClientID: req.ClientID,
		PlanType: string(req.PlanType),
		Targets:  req.MacroTargets,
		Blocked:  req.Restrictions.Blocked,
		Days:     days,
	}
	for _, id := range req.LikedIngredients {
		if ing, ok := g.catalog.Ingredient(id); ok {
			data.Liked = append(data.Liked, ing)
		}
	}
	for _, ing := range g.catalog.All() {
		if !req.Restrictions.IsBlocked(ing.ID) {
			data.Available = append(data.Available, ing)
		}
	}
	return data
}

// dayNames is Monday to Sunday for a week; a single day plan is named after
// the day it is generated on.
func (g *Generator) dayNames(req lifecycle.GenerateRequest, at time.Time) []string {
	if n := req.PlanType.Days(); n < len(weekDays) {
		return []string{at.Weekday().String()}
	}
	return weekDays
}

func (g *Generator) record(ctx context.Context, meta shared.AgentMeta) {
	if g.recorder == nil {
		return
	}
	if err := g.recorder.RecordMeta(ctx, meta); err != nil {
		g.logger.Warn("PLANNER: Failed to record metrics", "error", err)
	}
}

func buildPrompt(data promptData) (string, error) {
	var buf bytes.Buffer
	if err := promptTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render prompt: %w", err)
	}
	return buf.String(), nil
}

// stripFences removes a markdown code fence some models wrap JSON in.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
