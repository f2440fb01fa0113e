package override

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"coach-planner/internal/database"
	"coach-planner/internal/nutrition"
	overridedb "coach-planner/internal/override/override_db"
)

// Repository is the SQLite Store.
type Repository struct {
	queries *overridedb.Queries
}

// NewRepository creates a repository over an open connection.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{queries: overridedb.New(db)}
}

func (r *Repository) Insert(ctx context.Context, o Override) error {
	delta, err := json.Marshal(o.MacroDelta)
	if err != nil {
		return fmt.Errorf("failed to marshal macro delta: %w", err)
	}
	return r.queries.InsertOverride(ctx, overridedb.InsertOverrideParams{
		ID:                    o.ID,
		PlanVersionID:         o.PlanVersionID,
		ClientID:              o.ClientID,
		MealType:              string(o.MealType),
		OriginalIngredient:    o.OriginalIngredient,
		ReplacementIngredient: o.ReplacementIngredient,
		MacroDelta:            string(delta),
		WithinTolerance:       o.WithinTolerance,
		SuggestedBy:           string(o.SuggestedBy),
		CreatedAt:             database.FormatTime(o.CreatedAt),
	})
}

func (r *Repository) Get(ctx context.Context, id string) (*Override, error) {
	row, err := r.queries.GetOverride(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	o, err := fromRow(row)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *Repository) Approve(ctx context.Context, id, approverID string) (bool, error) {
	n, err := r.queries.ApproveOverride(ctx, overridedb.ApproveOverrideParams{
		ApprovedBy: sql.NullString{String: approverID, Valid: true},
		ID:         id,
	})
	return n == 1, err
}

func (r *Repository) Archive(ctx context.Context, id string) (bool, error) {
	n, err := r.queries.ArchiveOverride(ctx, id)
	return n == 1, err
}

func (r *Repository) ListPending(ctx context.Context, planVersionID string) ([]Override, error) {
	rows, err := r.queries.ListPendingOverrides(ctx, planVersionID)
	if err != nil {
		return nil, err
	}
	return fromRows(rows)
}

func (r *Repository) ListActive(ctx context.Context, planVersionID string) ([]Override, error) {
	rows, err := r.queries.ListActiveOverrides(ctx, planVersionID)
	if err != nil {
		return nil, err
	}
	return fromRows(rows)
}

// fromRow is the single mapping from the stored shape to the domain type.
// Rows that fail validation are reported, not silently coerced.
func fromRow(row overridedb.PlanOverride) (Override, error) {
	mealType, err := nutrition.ParseMealType(row.MealType)
	if err != nil {
		return Override{}, fmt.Errorf("override %s: %w", row.ID, err)
	}
	suggester, err := ParseSuggester(row.SuggestedBy)
	if err != nil {
		return Override{}, fmt.Errorf("override %s: %w", row.ID, err)
	}
	var delta nutrition.Macros
	if err := json.Unmarshal([]byte(row.MacroDelta), &delta); err != nil {
		return Override{}, fmt.Errorf("override %s: invalid macro delta: %w", row.ID, err)
	}
	createdAt, err := database.ParseTime(row.CreatedAt)
	if err != nil {
		return Override{}, fmt.Errorf("override %s: %w", row.ID, err)
	}

	o := Override{
		ID:                    row.ID,
		PlanVersionID:         row.PlanVersionID,
		ClientID:              row.ClientID,
		MealType:              mealType,
		OriginalIngredient:    row.OriginalIngredient,
		ReplacementIngredient: row.ReplacementIngredient,
		MacroDelta:            delta,
		WithinTolerance:       row.WithinTolerance,
		SuggestedBy:           suggester,
		CreatedAt:             createdAt,
		Archived:              row.Archived,
	}
	if row.ApprovedBy.Valid {
		approver := row.ApprovedBy.String
		o.ApprovedBy = &approver
	}
	return o, nil
}

func fromRows(rows []overridedb.PlanOverride) ([]Override, error) {
	out := make([]Override, 0, len(rows))
	for _, row := range rows {
		o, err := fromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}
