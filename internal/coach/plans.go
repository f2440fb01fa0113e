package coach

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"coach-planner/internal/apperr"
	"coach-planner/internal/gate"
	"coach-planner/internal/lifecycle"
	"coach-planner/internal/nutrition"
)

// LoadPlan selects clientID in the session and fetches its active plan.
func (s *Service) LoadPlan(ctx context.Context, sessionID, clientID string) (lifecycle.View, error) {
	const op = "coach.LoadPlan"
	ctx, span := s.start(ctx, op, attribute.String("session_id", sessionID), attribute.String("client_id", clientID))
	defer span.End()

	v, err := s.Session(sessionID).Load(ctx, clientID)
	span.SetAttributes(attribute.String("plan_state", v.Label))
	return v, s.fail(ctx, span, op, err)
}

// Retry leaves the blocking error state by loading again.
func (s *Service) Retry(ctx context.Context, sessionID string) (lifecycle.View, error) {
	const op = "coach.Retry"
	ctx, span := s.start(ctx, op, attribute.String("session_id", sessionID))
	defer span.End()

	v, err := s.Session(sessionID).Retry(ctx)
	return v, s.fail(ctx, span, op, err)
}

// Status reports the session's current plan state.
func (s *Service) Status(sessionID string) lifecycle.View {
	return s.Session(sessionID).View()
}

// GenerateDraft asks the generator for a draft for the session's client.
// Liked ingredients come from the client's stored preferred set.
func (s *Service) GenerateDraft(ctx context.Context, sessionID string, actor lifecycle.Actor, planType gate.PlanType, targets nutrition.Macros) (lifecycle.View, error) {
	const op = "coach.GenerateDraft"
	ctx, span := s.start(ctx, op, attribute.String("session_id", sessionID), attribute.String("plan_type", string(planType)))
	defer span.End()

	m := s.Session(sessionID)
	clientID := m.View().ClientID
	if clientID == "" {
		return m.View(), s.fail(ctx, span, op, apperr.Conflict(op, "no client selected"))
	}

	res, err := s.Restrictions(ctx, clientID)
	if err != nil {
		return m.View(), s.fail(ctx, span, op, err)
	}

	v, err := m.GenerateDraft(ctx, actor, lifecycle.GenerateRequest{
		ClientID:         clientID,
		PlanType:         planType,
		LikedIngredients: res.Preferred,
		MacroTargets:     targets,
		Restrictions:     res,
	})
	if err != nil {
		return v, s.fail(ctx, span, op, err)
	}
	s.inst.draftsGenerated.Add(ctx, 1)
	return v, nil
}

// LockPlan persists the session's draft and starts its lock window.
func (s *Service) LockPlan(ctx context.Context, sessionID string, actor lifecycle.Actor) (lifecycle.View, error) {
	const op = "coach.LockPlan"
	ctx, span := s.start(ctx, op, attribute.String("session_id", sessionID))
	defer span.End()

	v, err := s.Session(sessionID).Lock(ctx, actor)
	if err != nil {
		return v, s.fail(ctx, span, op, err)
	}
	if v.Version != nil {
		span.SetAttributes(attribute.String("plan_version_id", v.Version.ID), attribute.Int("version", v.Version.Number))
	}
	s.inst.plansLocked.Add(ctx, 1)
	return v, nil
}

// DiscardDraft drops the session's draft.
func (s *Service) DiscardDraft(sessionID string, actor lifecycle.Actor) (lifecycle.View, error) {
	return s.Session(sessionID).Discard(actor)
}
