package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"coach-planner/internal/app"
	"coach-planner/internal/catalog"
	"coach-planner/internal/coach"
	"coach-planner/internal/config"
	"coach-planner/internal/database"
	"coach-planner/internal/metrics"
	"coach-planner/internal/override"
	"coach-planner/internal/plan"
	"coach-planner/internal/snapshot"
	"coach-planner/internal/telemetry"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx := context.Background()

	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	policy, err := config.LoadPolicyFile(cfg.PolicyPath)
	if err != nil {
		log.Fatalf("Failed to load policy: %v", err)
	}

	shutdownTelemetry, err := telemetry.Init(ctx)
	if err != nil {
		log.Fatalf("Failed to initialize telemetry: %v", err)
	}
	defer shutdownTelemetry(context.Background())

	db, err := database.NewDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// No generator: the CLI never drafts plans.
	svc := coach.NewService(coach.Deps{
		Plans:     plan.NewRepository(db),
		Catalogs:  catalog.NewRepository(db),
		Overrides: override.NewRepository(db.SQL),
		Sealer:    snapshot.NewSealer(cfg.SnapshotSealSecret),
		Policy:    policy,
	})
	if _, err := svc.ReloadCatalog(ctx); err != nil {
		log.Fatalf("Failed to load ingredient catalog: %v", err)
	}

	application := app.NewApp(svc, catalog.NewImporter(), metrics.NewStore(db.SQL), os.Stdout)

	args := os.Args[2:]
	switch os.Args[1] {
	case "seed-catalog":
		requireArg(args, "seed-catalog <file.yaml>")
		if err := application.SeedCatalog(ctx, args[0]); err != nil {
			log.Fatalf("Seeding failed: %v", err)
		}
	case "import-catalog":
		requireArg(args, "import-catalog <url>")
		if err := application.ImportCatalog(ctx, args[0]); err != nil {
			log.Fatalf("Import failed: %v", err)
		}
	case "backfill-snapshots":
		if err := application.BackfillSnapshots(ctx); err != nil {
			log.Fatalf("Backfill finished with errors: %v", err)
		}
	case "show-snapshot":
		requireArg(args, "show-snapshot <plan-version-id>")
		if err := application.ShowSnapshot(ctx, args[0]); err != nil {
			log.Fatalf("Failed to show snapshot: %v", err)
		}
	case "metrics-cleanup":
		cleanupCmd := flag.NewFlagSet("metrics-cleanup", flag.ExitOnError)
		days := cleanupCmd.Int("days", 30, "Keep records for the last N days")
		cleanupCmd.Parse(args)

		if err := application.CleanupMetrics(ctx, *days); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func requireArg(args []string, usage string) {
	if len(args) < 1 {
		fmt.Printf("Usage: coach-planner %s\n", usage)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: coach-planner <command> [arguments]")
	fmt.Println("\nCommands:")
	fmt.Println("  seed-catalog <file>        Upsert ingredients from a YAML seed file")
	fmt.Println("  import-catalog <url>       Upsert ingredients from an HTML nutrition table")
	fmt.Println("  backfill-snapshots         Snapshot every expired plan version that has none")
	fmt.Println("  show-snapshot <id>         Print the snapshot of a plan version as JSON")
	fmt.Println("  metrics-cleanup [-days N]  Remove old metric records")
}
