package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"coach-planner/internal/apperr"
	catalogdb "coach-planner/internal/catalog/catalog_db"
	"coach-planner/internal/database"
	"coach-planner/internal/lifecycle"
	"coach-planner/internal/nutrition"
)

// Repository stores reference ingredients and client restrictions.
type Repository struct {
	db      *database.DB
	queries *catalogdb.Queries
	now     func() time.Time
}

// NewRepository creates a new Repository.
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db, queries: catalogdb.New(db.SQL), now: time.Now}
}

// SaveIngredients upserts every ingredient of c in one transaction.
func (r *Repository) SaveIngredients(ctx context.Context, c *Catalog) error {
	ts := database.FormatTime(r.now())
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		q := r.queries.WithTx(tx)
		for _, ing := range c.All() {
			data, err := json.Marshal(ing)
			if err != nil {
				return fmt.Errorf("failed to marshal ingredient %s: %w", ing.ID, err)
			}
			if err := q.UpsertIngredient(ctx, catalogdb.UpsertIngredientParams{
				ID:        ing.ID,
				Name:      ing.Name,
				Category:  string(ing.Category),
				Data:      string(data),
				UpdatedAt: ts,
			}); err != nil {
				return fmt.Errorf("failed to upsert ingredient %s: %w", ing.ID, err)
			}
		}
		return nil
	})
}

// LoadCatalog reads the stored reference table, ordered by id.
func (r *Repository) LoadCatalog(ctx context.Context) (*Catalog, error) {
	rows, err := r.queries.ListIngredients(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list ingredients: %w", err)
	}
	list := make([]nutrition.IngredientData, 0, len(rows))
	for _, row := range rows {
		ing, err := ingredientFromRow(row)
		if err != nil {
			return nil, err
		}
		list = append(list, ing)
	}
	return New(list)
}

// GetRestrictions returns the client's restrictions, or nil if none were saved.
func (r *Repository) GetRestrictions(ctx context.Context, clientID string) (*nutrition.ClientIngredientRestrictions, error) {
	row, err := r.queries.GetRestrictions(ctx, clientID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch restrictions for %s: %w", clientID, err)
	}
	res, err := restrictionsFromRow(row)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// SaveRestrictions stores restrictions on behalf of a coach. Other roles
// are refused.
func (r *Repository) SaveRestrictions(ctx context.Context, actor lifecycle.Actor, res nutrition.ClientIngredientRestrictions) error {
	const op = "catalog.SaveRestrictions"
	if err := actor.Validate(); err != nil {
		return apperr.Validation(op, err.Error())
	}
	if !actor.IsCoach() {
		return apperr.Validation(op, "only coaches may edit restrictions")
	}
	if err := res.Validate(); err != nil {
		return apperr.Validation(op, err.Error())
	}

	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("failed to marshal restrictions: %w", err)
	}
	if err := r.queries.UpsertRestrictions(ctx, catalogdb.UpsertRestrictionsParams{
		ClientID:  res.ClientID,
		Data:      string(data),
		UpdatedBy: actor.ID,
		UpdatedAt: database.FormatTime(r.now()),
	}); err != nil {
		return apperr.Persistence(op, err)
	}
	return nil
}

func ingredientFromRow(row catalogdb.Ingredient) (nutrition.IngredientData, error) {
	var ing nutrition.IngredientData
	if err := json.Unmarshal([]byte(row.Data), &ing); err != nil {
		return ing, fmt.Errorf("ingredient %s: invalid data: %w", row.ID, err)
	}
	if ing.ID != row.ID {
		return ing, fmt.Errorf("ingredient %s: stored data carries id %q", row.ID, ing.ID)
	}
	return ing, ing.Validate()
}

func restrictionsFromRow(row catalogdb.ClientRestriction) (nutrition.ClientIngredientRestrictions, error) {
	var res nutrition.ClientIngredientRestrictions
	if err := json.Unmarshal([]byte(row.Data), &res); err != nil {
		return res, fmt.Errorf("restrictions for %s: invalid data: %w", row.ClientID, err)
	}
	res.ClientID = row.ClientID
	return res, nil
}
