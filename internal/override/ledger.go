package override

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"coach-planner/internal/apperr"
	"coach-planner/internal/nutrition"

	"github.com/google/uuid"
)

// Store persists overrides. Get returns (nil, nil) for an unknown id.
// Approve and Archive report false when no unapproved, unarchived row matched.
type Store interface {
	Insert(ctx context.Context, o Override) error
	Get(ctx context.Context, id string) (*Override, error)
	Approve(ctx context.Context, id, approverID string) (bool, error)
	Archive(ctx context.Context, id string) (bool, error)
	ListPending(ctx context.Context, planVersionID string) ([]Override, error)
	ListActive(ctx context.Context, planVersionID string) ([]Override, error)
}

// Ledger is the only writer of overrides.
type Ledger struct {
	store  Store
	now    func() time.Time
	newID  func() (uuid.UUID, error)
	logger *slog.Logger
}

// LedgerOption configures a Ledger.
type LedgerOption func(*Ledger)

// WithClock replaces the wall clock used for createdAt.
func WithClock(now func() time.Time) LedgerOption {
	return func(l *Ledger) { l.now = now }
}

// WithIDGenerator replaces the UUIDv7 id source.
func WithIDGenerator(gen func() (uuid.UUID, error)) LedgerOption {
	return func(l *Ledger) { l.newID = gen }
}

// WithLogger sets the ledger logger.
func WithLogger(logger *slog.Logger) LedgerOption {
	return func(l *Ledger) { l.logger = logger }
}

// NewLedger creates a ledger over store. Ids are UUIDv7 so their string
// order follows creation order.
func NewLedger(store Store, opts ...LedgerOption) *Ledger {
	l := &Ledger{
		store:  store,
		now:    time.Now,
		newID:  uuid.NewV7,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Create records a new, unapproved override.
func (l *Ledger) Create(ctx context.Context, p CreateParams) (Override, error) {
	const op = "override.Create"
	if err := p.Validate(); err != nil {
		return Override{}, apperr.Validation(op, err.Error())
	}
	mealType, _ := nutrition.ParseMealType(string(p.MealType))

	id, err := l.newID()
	if err != nil {
		return Override{}, fmt.Errorf("failed to generate override id: %w", err)
	}

	o := Override{
		ID:                    id.String(),
		PlanVersionID:         p.PlanVersionID,
		ClientID:              p.ClientID,
		MealType:              mealType,
		OriginalIngredient:    p.OriginalIngredient,
		ReplacementIngredient: p.ReplacementIngredient,
		MacroDelta:            p.MacroDelta,
		WithinTolerance:       p.WithinTolerance,
		SuggestedBy:           p.SuggestedBy,
		CreatedAt:             l.now().UTC(),
	}
	if err := l.store.Insert(ctx, o); err != nil {
		return Override{}, apperr.Persistence(op, err)
	}

	l.logger.Info("OVERRIDE: Created",
		"override_id", o.ID,
		"plan_version_id", o.PlanVersionID,
		"meal_type", o.MealType,
		"suggested_by", o.SuggestedBy,
		"within_tolerance", o.WithinTolerance)
	return o, nil
}

// Approve marks an override approved by approverID.
func (l *Ledger) Approve(ctx context.Context, id, approverID string) error {
	const op = "override.Approve"
	if approverID == "" {
		return apperr.Validation(op, "approver id is required")
	}
	ok, err := l.store.Approve(ctx, id, approverID)
	if err != nil {
		return apperr.Persistence(op, err)
	}
	if !ok {
		return l.explainMiss(ctx, op, id)
	}
	l.logger.Info("OVERRIDE: Approved", "override_id", id, "approved_by", approverID)
	return nil
}

// Archive tombstones an override; archived overrides are excluded from every read.
func (l *Ledger) Archive(ctx context.Context, id string) error {
	const op = "override.Archive"
	ok, err := l.store.Archive(ctx, id)
	if err != nil {
		return apperr.Persistence(op, err)
	}
	if !ok {
		return l.explainMiss(ctx, op, id)
	}
	l.logger.Info("OVERRIDE: Archived", "override_id", id)
	return nil
}

// explainMiss distinguishes an unknown id from a terminal override.
func (l *Ledger) explainMiss(ctx context.Context, op, id string) error {
	o, err := l.store.Get(ctx, id)
	if err != nil {
		return apperr.Persistence(op, err)
	}
	if o == nil {
		return apperr.NotFound(op, fmt.Sprintf("override %s does not exist", id))
	}
	state := "approved"
	if o.Archived {
		state = "archived"
	}
	return apperr.Conflict(op, fmt.Sprintf("override %s is already %s", id, state))
}

// Get returns a single override, or ErrNotFound.
func (l *Ledger) Get(ctx context.Context, id string) (Override, error) {
	const op = "override.Get"
	o, err := l.store.Get(ctx, id)
	if err != nil {
		return Override{}, apperr.Persistence(op, err)
	}
	if o == nil {
		return Override{}, apperr.NotFound(op, fmt.Sprintf("override %s does not exist", id))
	}
	return *o, nil
}

// FetchPending lists unarchived, unapproved overrides for a version, newest first.
func (l *Ledger) FetchPending(ctx context.Context, planVersionID string) ([]Override, error) {
	list, err := l.store.ListPending(ctx, planVersionID)
	if err != nil {
		return nil, apperr.Persistence("override.FetchPending", err)
	}
	return list, nil
}

// FetchActive lists every unarchived override for a version, newest first,
// approved or not. This is the set a snapshot is built from.
func (l *Ledger) FetchActive(ctx context.Context, planVersionID string) ([]Override, error) {
	list, err := l.store.ListActive(ctx, planVersionID)
	if err != nil {
		return nil, apperr.Persistence("override.FetchActive", err)
	}
	return list, nil
}
