package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coach-planner/internal/catalog"
	"coach-planner/internal/coach"
	"coach-planner/internal/config"
	"coach-planner/internal/database"
	"coach-planner/internal/llm"
	"coach-planner/internal/metrics"
	"coach-planner/internal/override"
	"coach-planner/internal/plan"
	"coach-planner/internal/planner"
	"coach-planner/internal/snapshot"
	"coach-planner/internal/telegram"
	"coach-planner/internal/telemetry"
)

// Chats idle this long forget their selected client.
const staleSessionAge = 90 * 24 * time.Hour

func main() {
	// 1. Load Configuration
	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.RequireTelegram(); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	policy, err := config.LoadPolicyFile(cfg.PolicyPath)
	if err != nil {
		log.Fatalf("Failed to load policy: %v", err)
	}

	ctx := context.Background()

	shutdownTelemetry, err := telemetry.Init(ctx)
	if err != nil {
		log.Fatalf("Failed to initialize telemetry: %v", err)
	}
	defer shutdownTelemetry(context.Background())

	// 2. Storage
	db, err := database.NewDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	planRepo := plan.NewRepository(db)
	catalogRepo := catalog.NewRepository(db)
	overrideRepo := override.NewRepository(db.SQL)
	sessionRepo := telegram.NewSessionRepository(db.SQL)
	metricsStore := metrics.NewStore(db.SQL)

	if n, err := sessionRepo.CleanupStale(ctx, staleSessionAge); err != nil {
		log.Printf("Warning: failed to clean up chat sessions: %v", err)
	} else if n > 0 {
		log.Printf("Removed %d stale chat session(s)", n)
	}

	// 3. Generator
	textGen, err := llm.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to create LLM client: %v", err)
	}
	if c, ok := textGen.(llm.Closer); ok {
		defer c.Close()
	}

	live := catalog.NewLive(nil)
	recorder := telegram.NewAlertingRecorder(metricsStore, telegram.ContextBloatThreshold)
	generator := planner.NewGenerator(textGen, live,
		planner.WithRecorder(recorder),
		planner.WithMacroPreservation(policy.PreserveMacros))

	// 4. Service
	svc := coach.NewService(coach.Deps{
		Plans:     planRepo,
		Catalogs:  catalogRepo,
		Overrides: overrideRepo,
		Generator: generator,
		Catalog:   live,
		Sealer:    snapshot.NewSealer(cfg.SnapshotSealSecret),
		Policy:    policy,
	})
	n, err := svc.ReloadCatalog(ctx)
	if err != nil {
		log.Fatalf("Failed to load ingredient catalog: %v", err)
	}
	if n == 0 {
		log.Printf("Warning: ingredient catalog is empty; run coach-planner seed-catalog first")
	}

	// 5. Telegram Bot
	bot, err := telegram.NewBot(cfg, svc, sessionRepo, metricsStore)
	if err != nil {
		log.Fatalf("Failed to initialize Telegram Bot: %v", err)
	}
	recorder.Attach(bot.SendAdminAlert)

	// 6. Start Server with Graceful Shutdown
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	mux := http.NewServeMux()
	bot.RegisterHandlers(mux)

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: mux,
	}

	go func() {
		log.Printf("Coach Bot Server listening on port %s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting")
}
