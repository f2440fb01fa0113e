// Package coach wires the planning core into the operations a coaching
// surface calls: plan lifecycle per session, overrides and snapshots.
package coach

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"coach-planner/internal/apperr"
	"coach-planner/internal/catalog"
	"coach-planner/internal/config"
	"coach-planner/internal/lifecycle"
	"coach-planner/internal/nutrition"
	"coach-planner/internal/override"
	"coach-planner/internal/plan"
	"coach-planner/internal/snapshot"
	"coach-planner/internal/telemetry"
)

// PlanRepository is the plan-version storage the service needs.
type PlanRepository interface {
	lifecycle.PlanStore
	snapshot.Store
	GetVersion(ctx context.Context, id string) (*plan.Version, error)
	ListExpiredUnsnapshotted(ctx context.Context, now time.Time) ([]plan.Version, error)
}

// CatalogRepository stores reference ingredients and client restrictions.
type CatalogRepository interface {
	LoadCatalog(ctx context.Context) (*catalog.Catalog, error)
	SaveIngredients(ctx context.Context, c *catalog.Catalog) error
	GetRestrictions(ctx context.Context, clientID string) (*nutrition.ClientIngredientRestrictions, error)
	SaveRestrictions(ctx context.Context, actor lifecycle.Actor, res nutrition.ClientIngredientRestrictions) error
}

// Deps are the collaborators of a Service.
type Deps struct {
	Plans     PlanRepository
	Catalogs  CatalogRepository
	Overrides override.Store
	Generator lifecycle.Generator
	// Catalog is the table shared with the generator; it is refreshed by
	// ReloadCatalog.
	Catalog *catalog.Live
	Sealer  *snapshot.Sealer
	Policy  config.Policy
	Now     func() time.Time
	Logger  *slog.Logger
}

// Service implements the coaching operations. It is safe for concurrent
// use; each session gets its own lifecycle manager.
type Service struct {
	plans     PlanRepository
	catalogs  CatalogRepository
	generator lifecycle.Generator
	live      *catalog.Live
	ledger    *override.Ledger
	persister *snapshot.Persister
	builder   *snapshot.Builder
	policy    config.Policy
	now       func() time.Time
	logger    *slog.Logger

	tracer trace.Tracer
	inst   instruments

	mu       sync.Mutex
	sessions map[string]*lifecycle.Manager
}

type instruments struct {
	draftsGenerated   metric.Int64Counter
	plansLocked       metric.Int64Counter
	overridesCreated  metric.Int64Counter
	snapshotsWritten  metric.Int64Counter
	operationFailures metric.Int64Counter
}

// NewService builds a Service from deps.
func NewService(deps Deps) *Service {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Catalog == nil {
		deps.Catalog = catalog.NewLive(nil)
	}

	meter := otel.Meter(telemetry.MeterName)
	var inst instruments
	inst.draftsGenerated, _ = meter.Int64Counter("coach_drafts_generated_total",
		metric.WithDescription("Drafts produced by the generator"))
	inst.plansLocked, _ = meter.Int64Counter("coach_plans_locked_total",
		metric.WithDescription("Plan versions locked"))
	inst.overridesCreated, _ = meter.Int64Counter("coach_overrides_created_total",
		metric.WithDescription("Overrides recorded in the ledger"))
	inst.snapshotsWritten, _ = meter.Int64Counter("coach_snapshots_written_total",
		metric.WithDescription("Snapshots persisted for the first time"))
	inst.operationFailures, _ = meter.Int64Counter("coach_operation_failures_total",
		metric.WithDescription("Operations that returned an error"))

	return &Service{
		plans:     deps.Plans,
		catalogs:  deps.Catalogs,
		generator: deps.Generator,
		live:      deps.Catalog,
		ledger:    override.NewLedger(deps.Overrides, override.WithClock(deps.Now), override.WithLogger(deps.Logger)),
		persister: snapshot.NewPersister(deps.Plans, deps.Sealer, deps.Logger),
		builder:   snapshot.NewBuilder(deps.Catalog, snapshot.WithLogger(deps.Logger)),
		policy:    deps.Policy,
		now:       deps.Now,
		logger:    deps.Logger,
		tracer:    otel.Tracer(telemetry.TracerName),
		inst:      inst,
		sessions:  make(map[string]*lifecycle.Manager),
	}
}

// Policy returns the thresholds the service enforces.
func (s *Service) Policy() config.Policy { return s.policy }

// Ledger exposes the override ledger.
func (s *Service) Ledger() *override.Ledger { return s.ledger }

// Session returns the lifecycle manager for sessionID, creating it on first use.
func (s *Service) Session(sessionID string) *lifecycle.Manager {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.sessions[sessionID]
	if !ok {
		m = lifecycle.NewManager(s.plans, s.generator,
			lifecycle.WithClock(s.now),
			lifecycle.WithGate(s.policy.Gate()),
			lifecycle.WithLockDuration(s.policy.LockDuration()),
			lifecycle.WithLogger(s.logger.With("session_id", sessionID)),
		)
		s.sessions[sessionID] = m
	}
	return m
}

// ReloadCatalog replaces the shared reference table with what is stored.
func (s *Service) ReloadCatalog(ctx context.Context) (int, error) {
	const op = "coach.ReloadCatalog"
	c, err := s.catalogs.LoadCatalog(ctx)
	if err != nil {
		return 0, apperr.Persistence(op, err)
	}
	s.live.Set(c)
	s.logger.Info("COACH: Catalog loaded", "ingredients", c.Len())
	return c.Len(), nil
}

// ImportCatalog stores c and starts serving it.
func (s *Service) ImportCatalog(ctx context.Context, c *catalog.Catalog) error {
	const op = "coach.ImportCatalog"
	if err := s.catalogs.SaveIngredients(ctx, c); err != nil {
		return apperr.Persistence(op, err)
	}
	_, err := s.ReloadCatalog(ctx)
	return err
}

// Restrictions returns the stored restrictions for clientID, or an empty
// set when none were saved.
func (s *Service) Restrictions(ctx context.Context, clientID string) (nutrition.ClientIngredientRestrictions, error) {
	const op = "coach.Restrictions"
	res, err := s.catalogs.GetRestrictions(ctx, clientID)
	if err != nil {
		return nutrition.ClientIngredientRestrictions{}, apperr.Persistence(op, err)
	}
	if res == nil {
		return nutrition.ClientIngredientRestrictions{ClientID: clientID}, nil
	}
	return *res, nil
}

// SaveRestrictions stores restrictions on behalf of a coach. Every id must
// exist in the live catalog.
func (s *Service) SaveRestrictions(ctx context.Context, actor lifecycle.Actor, res nutrition.ClientIngredientRestrictions) error {
	const op = "coach.SaveRestrictions"
	ctx, span := s.start(ctx, op, attribute.String("client_id", res.ClientID))
	defer span.End()

	if unknown := unknownIDs(s.live.Current(), res); len(unknown) > 0 {
		return s.fail(ctx, span, op, apperr.Validation(op, "unknown ingredient(s): "+strings.Join(unknown, ", ")))
	}
	return s.fail(ctx, span, op, s.catalogs.SaveRestrictions(ctx, actor, res))
}

func unknownIDs(c *catalog.Catalog, res nutrition.ClientIngredientRestrictions) []string {
	var out []string
	for _, list := range [][]string{res.Preferred, res.Blocked} {
		for _, id := range list {
			if _, ok := c.Ingredient(id); !ok {
				out = append(out, id)
			}
		}
	}
	return out
}

func (s *Service) start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// fail marks span and counts the failure when err is non-nil, then returns err.
func (s *Service) fail(ctx context.Context, span trace.Span, op string, err error) error {
	if err == nil {
		return nil
	}
	span.SetStatus(codes.Error, apperr.Message(err))
	span.RecordError(err)
	s.inst.operationFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", op)))
	return err
}
