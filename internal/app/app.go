// Package app holds the maintenance operations behind the coach-planner CLI.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"coach-planner/internal/apperr"
	"coach-planner/internal/catalog"
	"coach-planner/internal/coach"
	"coach-planner/internal/metrics"
)

// App holds the application's dependencies.
type App struct {
	svc          *coach.Service
	importer     *catalog.Importer
	metricsStore *metrics.Store
	out          io.Writer
}

// NewApp creates and initializes a new App instance. Reports go to out.
func NewApp(svc *coach.Service, importer *catalog.Importer, metricsStore *metrics.Store, out io.Writer) *App {
	return &App{
		svc:          svc,
		importer:     importer,
		metricsStore: metricsStore,
		out:          out,
	}
}

// SeedCatalog upserts the ingredients of a YAML seed file.
func (a *App) SeedCatalog(ctx context.Context, path string) error {
	c, err := catalog.LoadYAMLFile(path)
	if err != nil {
		return err
	}
	if err := a.svc.ImportCatalog(ctx, c); err != nil {
		return fmt.Errorf("failed to store seed: %w", err)
	}
	fmt.Fprintf(a.out, "Seeded %d ingredients from %s.\n", c.Len(), path)
	return nil
}

// ImportCatalog upserts the ingredient table found at url.
func (a *App) ImportCatalog(ctx context.Context, url string) error {
	list, err := a.importer.FetchHTML(ctx, url)
	if err != nil {
		return fmt.Errorf("failed to import %s: %w", url, err)
	}
	c, err := catalog.New(list)
	if err != nil {
		return err
	}
	if err := a.svc.ImportCatalog(ctx, c); err != nil {
		return fmt.Errorf("failed to store import: %w", err)
	}
	fmt.Fprintf(a.out, "Imported %d ingredients from %s.\n", c.Len(), url)
	return nil
}

// BackfillSnapshots finalizes every expired plan version without a snapshot.
func (a *App) BackfillSnapshots(ctx context.Context) error {
	n, err := a.svc.BackfillSnapshots(ctx)
	fmt.Fprintf(a.out, "Wrote %d snapshot(s).\n", n)
	return err
}

// ShowSnapshot prints the persisted snapshot of a version as indented JSON.
func (a *App) ShowSnapshot(ctx context.Context, versionID string) error {
	snap, err := a.svc.FetchSnapshot(ctx, versionID)
	if err != nil {
		return err
	}
	if snap == nil {
		return apperr.NotFound("app.ShowSnapshot", "no snapshot for plan version "+versionID)
	}
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

// CleanupMetrics removes metric records older than days.
func (a *App) CleanupMetrics(ctx context.Context, days int) error {
	if days <= 0 {
		return fmt.Errorf("days must be positive, got %d", days)
	}
	affected, err := a.metricsStore.Cleanup(ctx, days)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Successfully removed %d old metric records.\n", affected)
	return nil
}
