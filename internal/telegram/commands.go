package telegram

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"coach-planner/internal/coach"
	"coach-planner/internal/gate"
	"coach-planner/internal/lifecycle"
	"coach-planner/internal/nutrition"
	"coach-planner/internal/shopping"
)

type request struct {
	chatID int64
	userID int64
	text   string
}

func (r request) actor() lifecycle.Actor {
	return lifecycle.Actor{ID: strconv.FormatInt(r.userID, 10), Role: lifecycle.RoleCoach}
}

const helpText = `🥗 *Coach Planner*

/client <id> - select a client
/status - current plan state
/targets [kcal protein carbs fat] - daily macro targets
/prefer <ids...> - mark liked ingredients
/block <ids...> - block ingredients
/restrictions - show the client's restrictions
/generate daily|weekly - draft a plan
/lock - save the draft
/discard - drop the draft
/retry - recover from a load error
/suggest <meal> <ingredient> - let the engine pick a swap
/override <meal> <ingredient> <replacement> - propose a swap
/pending - overrides awaiting review
/approve <id> - approve an override
/archive <id> - archive an override
/snapshot - finalize the locked plan
/shopping - shopping list for the finalized plan`

// splitCommand returns the lower-cased command without slash or bot suffix,
// and its arguments.
func splitCommand(text string) (string, []string) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "", fields
	}
	name := strings.TrimPrefix(fields[0], "/")
	if i := strings.IndexByte(name, '@'); i >= 0 {
		name = name[:i]
	}
	return strings.ToLower(name), fields[1:]
}

// dispatch runs one command and returns the Markdown reply.
func (b *Bot) dispatch(ctx context.Context, req request) string {
	name, args := splitCommand(req.text)
	b.logger.Info("TELEGRAM: Command received", "chat_id", req.chatID, "user_id", req.userID, "command", name)

	switch name {
	case "", "start", "help":
		return helpText
	case "metrics":
		return b.handleMetrics(ctx, req)
	case "client":
		return b.handleClient(ctx, req, args)
	}

	if err := b.resume(ctx, req); err != nil {
		return formatError(err)
	}

	switch name {
	case "status":
		return formatView(b.svc.Status(sessionID(req.chatID)))
	case "targets":
		return b.handleTargets(ctx, req, args)
	case "prefer", "block":
		return b.handleRestrictionEdit(ctx, req, name, args)
	case "restrictions":
		return b.handleRestrictions(ctx, req)
	case "generate":
		return b.handleGenerate(ctx, req, args)
	case "lock":
		v, err := b.svc.LockPlan(ctx, sessionID(req.chatID), req.actor())
		if err != nil {
			return formatError(err)
		}
		return formatView(v)
	case "discard":
		v, err := b.svc.DiscardDraft(sessionID(req.chatID), req.actor())
		if err != nil {
			return formatError(err)
		}
		return formatView(v)
	case "retry":
		v, err := b.svc.Retry(ctx, sessionID(req.chatID))
		if err != nil {
			return formatError(err)
		}
		return formatView(v)
	case "suggest":
		return b.handleSuggest(ctx, req, args)
	case "override":
		return b.handleOverride(ctx, req, args)
	case "pending":
		return b.handlePending(ctx, req)
	case "approve":
		return b.handleReview(ctx, req, args, b.svc.ApproveOverride, "✅ Override approved.")
	case "archive":
		return b.handleReview(ctx, req, args, b.svc.ArchiveOverride, "🗄 Override archived.")
	case "snapshot":
		return b.handleSnapshot(ctx, req)
	case "shopping":
		return b.handleShopping(ctx, req)
	}
	return fmt.Sprintf("Unknown command /%s. Send /help for the list.", esc(name))
}

// resume reselects the chat's stored client after a restart.
func (b *Bot) resume(ctx context.Context, req request) error {
	sid := sessionID(req.chatID)
	if b.svc.Status(sid).ClientID != "" {
		return nil
	}
	s, err := b.sessions.Get(ctx, req.chatID)
	if err != nil || s == nil || s.ClientID == "" {
		return err
	}
	_, err = b.svc.LoadPlan(ctx, sid, s.ClientID)
	return err
}

func (b *Bot) session(ctx context.Context, req request) (ChatSession, error) {
	s, err := b.sessions.Get(ctx, req.chatID)
	if err != nil {
		return ChatSession{}, err
	}
	if s == nil {
		return ChatSession{ChatID: req.chatID, Targets: DefaultTargets}, nil
	}
	return *s, nil
}

func (b *Bot) handleClient(ctx context.Context, req request, args []string) string {
	if len(args) != 1 {
		return "Usage: /client <id>"
	}
	v, err := b.svc.LoadPlan(ctx, sessionID(req.chatID), args[0])
	if err != nil {
		return formatError(err)
	}

	s, err := b.session(ctx, req)
	if err != nil {
		return formatError(err)
	}
	s.ClientID = args[0]
	s.UpdatedBy = req.actor().ID
	s.UpdatedAt = time.Time{}
	if err := b.sessions.Save(ctx, s); err != nil {
		b.logger.Warn("TELEGRAM: Failed to save chat session", "chat_id", req.chatID, "error", err)
	}
	return formatView(v)
}

func (b *Bot) handleTargets(ctx context.Context, req request, args []string) string {
	s, err := b.session(ctx, req)
	if err != nil {
		return formatError(err)
	}
	if len(args) == 0 {
		return "🎯 *Daily targets:* " + formatMacros(s.Targets)
	}
	targets, err := parseTargets(args)
	if err != nil {
		return "Usage: /targets <kcal> <protein> <carbs> <fat>\n" + esc(err.Error())
	}
	s.Targets = targets
	s.UpdatedBy = req.actor().ID
	s.UpdatedAt = time.Time{}
	if err := b.sessions.Save(ctx, s); err != nil {
		return formatError(err)
	}
	return "🎯 *Daily targets set:* " + formatMacros(s.Targets)
}

func parseTargets(args []string) (nutrition.Macros, error) {
	if len(args) != 4 {
		return nutrition.Macros{}, fmt.Errorf("want 4 numbers, got %d", len(args))
	}
	var vals [4]float64
	for i, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil || v < 0 {
			return nutrition.Macros{}, fmt.Errorf("invalid value %q", a)
		}
		vals[i] = v
	}
	return nutrition.Macros{Calories: vals[0], Protein: vals[1], Carbs: vals[2], Fat: vals[3]}, nil
}

func (b *Bot) clientID(req request) (string, bool) {
	id := b.svc.Status(sessionID(req.chatID)).ClientID
	return id, id != ""
}

func (b *Bot) handleRestrictionEdit(ctx context.Context, req request, name string, args []string) string {
	clientID, ok := b.clientID(req)
	if !ok {
		return noClientText
	}
	if len(args) == 0 {
		return fmt.Sprintf("Usage: /%s <ingredient ids...>", name)
	}
	res, err := b.svc.Restrictions(ctx, clientID)
	if err != nil {
		return formatError(err)
	}
	if name == "prefer" {
		res.Preferred = addIDs(res.Preferred, args)
		res.Blocked = removeIDs(res.Blocked, args)
	} else {
		res.Blocked = addIDs(res.Blocked, args)
		res.Preferred = removeIDs(res.Preferred, args)
	}
	if err := b.svc.SaveRestrictions(ctx, req.actor(), res); err != nil {
		return formatError(err)
	}
	return formatRestrictions(res)
}

func addIDs(list, ids []string) []string {
	for _, id := range ids {
		if !slices.Contains(list, id) {
			list = append(list, id)
		}
	}
	return list
}

func removeIDs(list, ids []string) []string {
	return slices.DeleteFunc(list, func(id string) bool { return slices.Contains(ids, id) })
}

func (b *Bot) handleRestrictions(ctx context.Context, req request) string {
	clientID, ok := b.clientID(req)
	if !ok {
		return noClientText
	}
	res, err := b.svc.Restrictions(ctx, clientID)
	if err != nil {
		return formatError(err)
	}
	return formatRestrictions(res)
}

func (b *Bot) handleGenerate(ctx context.Context, req request, args []string) string {
	var arg string
	if len(args) > 0 {
		arg = strings.ToLower(args[0])
	}
	planType, err := gate.ParsePlanType(arg)
	if err != nil {
		return "Usage: /generate daily|weekly"
	}
	s, err := b.session(ctx, req)
	if err != nil {
		return formatError(err)
	}
	v, err := b.svc.GenerateDraft(ctx, sessionID(req.chatID), req.actor(), planType, s.Targets)
	if err != nil {
		return formatError(err)
	}
	return formatView(v) + "\n\n" + formatPlan(v.Payload)
}

// lockedVersionID is the id of the session's locked version.
func (b *Bot) lockedVersionID(req request) (string, bool) {
	v := b.svc.Status(sessionID(req.chatID))
	if v.Version == nil {
		return "", false
	}
	return v.Version.ID, true
}

func (b *Bot) handleSuggest(ctx context.Context, req request, args []string) string {
	if len(args) != 2 {
		return "Usage: /suggest <meal> <ingredient>"
	}
	versionID, ok := b.lockedVersionID(req)
	if !ok {
		return noLockText
	}
	o, err := b.svc.SuggestOverride(ctx, req.actor(), coach.OverrideRequest{
		PlanVersionID: versionID,
		MealType:      nutrition.MealType(args[0]),
		Original:      args[1],
	})
	if err != nil {
		return formatError(err)
	}
	return formatOverride(o)
}

func (b *Bot) handleOverride(ctx context.Context, req request, args []string) string {
	if len(args) != 3 {
		return "Usage: /override <meal> <ingredient> <replacement>"
	}
	versionID, ok := b.lockedVersionID(req)
	if !ok {
		return noLockText
	}
	o, err := b.svc.CreateOverride(ctx, req.actor(), coach.OverrideRequest{
		PlanVersionID: versionID,
		MealType:      nutrition.MealType(args[0]),
		Original:      args[1],
		Replacement:   args[2],
	})
	if err != nil {
		return formatError(err)
	}
	return formatOverride(o)
}

func (b *Bot) handlePending(ctx context.Context, req request) string {
	versionID, ok := b.lockedVersionID(req)
	if !ok {
		return noLockText
	}
	list, err := b.svc.FetchPendingOverrides(ctx, versionID)
	if err != nil {
		return formatError(err)
	}
	return formatPending(list)
}

func (b *Bot) handleReview(ctx context.Context, req request, args []string, review func(context.Context, lifecycle.Actor, string) error, done string) string {
	if len(args) != 1 {
		return "Usage: /approve <id> or /archive <id>"
	}
	if err := review(ctx, req.actor(), args[0]); err != nil {
		return formatError(err)
	}
	return done
}

func (b *Bot) handleSnapshot(ctx context.Context, req request) string {
	versionID, ok := b.lockedVersionID(req)
	if !ok {
		return noLockText
	}
	snap, err := b.svc.FinalizeSnapshot(ctx, versionID, time.Time{})
	if err != nil {
		return formatError(err)
	}
	return formatSnapshot(snap)
}

// handleShopping reads the finalized snapshot, never the live plan.
func (b *Bot) handleShopping(ctx context.Context, req request) string {
	versionID, ok := b.lockedVersionID(req)
	if !ok {
		return noLockText
	}
	snap, err := b.svc.FetchSnapshot(ctx, versionID)
	if err != nil {
		return formatError(err)
	}
	if snap == nil {
		return "No snapshot yet. Use /snapshot first."
	}
	return formatShoppingList(shopping.FromWeek(versionID, snap.WeeklyPlan))
}

func (b *Bot) handleMetrics(ctx context.Context, req request) string {
	if req.userID != b.cfg.AdminTelegramID {
		return "⛔ *Access Denied*: Admin only."
	}
	usage, err := b.metricsStore.GetDailyUsage(ctx, 7)
	if err != nil {
		b.logger.Error("TELEGRAM: Failed to read metrics", "error", err)
		return "❌ Error fetching metrics."
	}
	health, err := b.metricsStore.Health(ctx, b.cfg.DatabasePath)
	if err != nil {
		b.logger.Error("TELEGRAM: Failed to collect health", "error", err)
		return "❌ Error fetching metrics."
	}
	return formatUsageReport(usage, health)
}
