package telegram

import (
	"errors"
	"fmt"
	"strings"

	"coach-planner/internal/apperr"
	"coach-planner/internal/lifecycle"
	"coach-planner/internal/metrics"
	"coach-planner/internal/nutrition"
	"coach-planner/internal/override"
	"coach-planner/internal/shared"
	"coach-planner/internal/shopping"
	"coach-planner/internal/snapshot"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	noClientText = "No client selected. Use /client <id>."
	noLockText   = "No locked plan. Use /generate and /lock first."
)

func esc(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func formatMacros(m nutrition.Macros) string {
	return fmt.Sprintf("%.0f kcal | P %.0fg | C %.0fg | F %.0fg", m.Calories, m.Protein, m.Carbs, m.Fat)
}

func formatDelta(m nutrition.Macros) string {
	return fmt.Sprintf("%+.1f kcal | P %+.1fg | C %+.1fg | F %+.1fg", m.Calories, m.Protein, m.Carbs, m.Fat)
}

func formatError(err error) string {
	msg := esc(apperr.Message(err))
	switch {
	case errors.Is(err, apperr.ErrValidation):
		return "⚠️ " + msg
	case errors.Is(err, apperr.ErrStateConflict):
		return "🚫 " + msg
	case errors.Is(err, apperr.ErrNotFound):
		return "🔍 " + msg
	}
	return fmt.Sprintf("❌ *Error:*\n```\n%s\n```", strings.ReplaceAll(err.Error(), "`", "'"))
}

func formatView(v lifecycle.View) string {
	if v.ClientID == "" {
		return noClientText
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📋 *Client %s*: %s\n", esc(v.ClientID), v.Label))
	switch v.Tag {
	case lifecycle.TagEmpty:
		sb.WriteString("No plan yet. Use /generate daily or /generate weekly.")
	case lifecycle.TagDraft:
		sb.WriteString("📝 Draft ready. /lock to save it or /discard to drop it.")
	case lifecycle.TagLocked:
		ver := v.Version
		if v.LockStatus.IsLocked {
			sb.WriteString(fmt.Sprintf("🔒 Version %d locked for %d more day(s), until %s.",
				ver.Number, v.LockStatus.DaysRemaining, ver.LockExpiry.Format("2006-01-02 15:04")))
		} else {
			sb.WriteString(fmt.Sprintf("⌛ Version %d lock expired on %s. /generate starts a new draft.",
				ver.Number, ver.LockExpiry.Format("2006-01-02")))
		}
	case lifecycle.TagError:
		sb.WriteString(fmt.Sprintf("❌ %s\nUse /retry.", esc(v.Error)))
	default:
		sb.WriteString("⏳ Working...")
	}
	return sb.String()
}

func formatPlan(p *nutrition.MealPlanPayload) string {
	if p == nil {
		return ""
	}
	var sb strings.Builder
	if len(p.WeeklyPlan.Days) == 1 {
		sb.WriteString("📅 *Daily Meal Plan*\n\n")
	} else {
		sb.WriteString("📅 *Weekly Meal Plan*\n\n")
	}

	for _, d := range p.WeeklyPlan.Days {
		sb.WriteString(fmt.Sprintf("*Day %d - %s*: %s\n", d.DayNumber, d.DayName, formatMacros(d.Plan.TotalMacros)))
		for _, mt := range nutrition.MealTypes {
			meal := d.Plan.Meal(mt)
			if len(meal.Ingredients) == 0 {
				continue
			}
			names := make([]string, len(meal.Ingredients))
			for i, ing := range meal.Ingredients {
				names[i] = esc(ing.Name)
			}
			sb.WriteString(fmt.Sprintf("• %s: %s (%.0f kcal)\n", title(string(mt)), strings.Join(names, ", "), meal.Macros.Calories))
		}
		sb.WriteString("\n")
	}

	sb.WriteString(fmt.Sprintf("🎯 *Total:* %s\n", formatMacros(p.WeeklyPlan.TotalMacros)))
	sb.WriteString(fmt.Sprintf("📐 *Variance:* %s", formatDelta(p.WeeklyPlan.Variance)))
	return sb.String()
}

func formatRestrictions(r nutrition.ClientIngredientRestrictions) string {
	list := func(ids []string) string {
		if len(ids) == 0 {
			return "_none_"
		}
		return esc(strings.Join(ids, ", "))
	}
	return fmt.Sprintf("🥕 *Restrictions for %s*\nLiked (%d): %s\nBlocked: %s",
		esc(r.ClientID), r.LikedCount(), list(r.Preferred), list(r.Blocked))
}

func formatOverride(o override.Override) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🔁 *Override* `%s`\n", o.ID))
	sb.WriteString(fmt.Sprintf("%s: %s → %s\n", title(string(o.MealType)), esc(o.OriginalIngredient), esc(o.ReplacementIngredient)))
	sb.WriteString(fmt.Sprintf("Δ %s\n", formatDelta(o.MacroDelta)))
	if o.WithinTolerance {
		sb.WriteString("Within tolerance: yes\n")
	} else {
		sb.WriteString("Within tolerance: no\n")
	}
	sb.WriteString(fmt.Sprintf("Suggested by %s", o.SuggestedBy))
	switch {
	case o.Archived:
		sb.WriteString(", archived")
	case o.Approved():
		sb.WriteString(fmt.Sprintf(", approved by %s", esc(*o.ApprovedBy)))
	}
	return sb.String()
}

func formatPending(list []override.Override) string {
	if len(list) == 0 {
		return "✅ No overrides awaiting review."
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📝 *Pending overrides* (%d)\n\n", len(list)))
	for _, o := range list {
		sb.WriteString(fmt.Sprintf("• `%s` %s: %s → %s (%s)\n",
			o.ID, o.MealType, esc(o.OriginalIngredient), esc(o.ReplacementIngredient), o.CreatedAt.Format("Jan 2 15:04")))
	}
	return sb.String()
}

func formatSnapshot(s snapshot.Snapshot) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📸 *Snapshot* %s\n", s.Status))
	sb.WriteString(fmt.Sprintf("Version `%s`\n", s.Metadata.PlanVersionID))
	sb.WriteString(fmt.Sprintf("Created %s\n", s.Metadata.SnapshotCreatedAt.Format("2006-01-02 15:04")))
	sb.WriteString(fmt.Sprintf("%d override(s) applied\n", len(s.Metadata.OverridesApplied)))
	for _, o := range s.Metadata.OverridesApplied {
		sb.WriteString(fmt.Sprintf("• %s: %s → %s\n", o.MealType, esc(o.OriginalIngredient), esc(o.ReplacementIngredient)))
	}
	sb.WriteString(fmt.Sprintf("🎯 *Total:* %s", formatMacros(s.WeeklyPlan.TotalMacros)))
	return sb.String()
}

func formatShoppingList(l shopping.ShoppingList) string {
	if len(l.Items) == 0 {
		return "🛒 Nothing to buy."
	}
	var sb strings.Builder
	sb.WriteString("🛒 *Shopping List*\n")
	var category nutrition.Category
	for _, it := range l.Items {
		if it.Category != category {
			category = it.Category
			sb.WriteString(fmt.Sprintf("\n*%s*\n", title(string(category))))
		}
		sb.WriteString(fmt.Sprintf("• %s x%d (~%.0fg)\n", esc(it.Name), it.Servings, it.Grams))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatUsageReport(usage []metrics.DailyUsage, health metrics.Health) string {
	var sb strings.Builder
	sb.WriteString("📊 *Usage & Health Report*\n\n")

	sb.WriteString("🗓 *Recent LLM Activity*\n")
	if len(usage) == 0 {
		sb.WriteString("_No data yet_\n")
	}
	for _, d := range usage {
		sb.WriteString(fmt.Sprintf("• *%s*: %d tokens (%d execs)\n", d.Date, d.TotalPrompt+d.TotalCompletion, d.TotalExecution))
	}

	sb.WriteString("\n🧠 *System Health*\n")
	sb.WriteString(fmt.Sprintf("• RAM: %dMB (Alloc) / %dMB (Sys)\n", health.AllocMB, health.SysMB))
	sb.WriteString(fmt.Sprintf("• Goroutines: %d\n", health.Goroutines))
	sb.WriteString(fmt.Sprintf("• Database: %s\n", health.DatabaseSize()))

	sb.WriteString("\n📦 *Records*\n")
	sb.WriteString(fmt.Sprintf("• Plan versions: %d (%d snapshotted)\n", health.PlanVersions, health.Snapshots))
	sb.WriteString(fmt.Sprintf("• Pending overrides: %d\n", health.PendingOverrides))
	return sb.String()
}

func formatBloatAlert(meta shared.AgentMeta) string {
	return fmt.Sprintf("⚠️ *Context Bloat Alert*\nAgent: %s\nClient: %s\nModel: %s\nPrompt Tokens: %d",
		meta.AgentName, esc(meta.ClientID), esc(meta.Usage.Model), meta.Usage.PromptTokens)
}
