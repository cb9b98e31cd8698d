package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/fortuna/oddspipeline/internal/engine/config"
	"github.com/fortuna/oddspipeline/internal/engine/dedup"
	"github.com/fortuna/oddspipeline/internal/engine/ingest"
	"github.com/fortuna/oddspipeline/internal/engine/monaco"
	"github.com/fortuna/oddspipeline/internal/engine/persistence"
	"github.com/fortuna/oddspipeline/internal/engine/pinnacle"
	"github.com/fortuna/oddspipeline/internal/engine/publisher"
	"github.com/fortuna/oddspipeline/pkg/models"
)

func main() {
	fmt.Println("🚀 Starting Odds Engine...")

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("❌ Configuration error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := persistence.Open(cfg.DatabaseURL)
	if err != nil {
		fmt.Printf("❌ Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	if err := store.Ping(ctx); err != nil {
		fmt.Printf("❌ Database ping failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("✓ Connected to database")

	pub := publisher.New(cfg.ProcessorHost + ":" + cfg.ProcessorPort)
	if cfg.ProcessorEnabled {
		go pub.Run(ctx)
		fmt.Printf("✓ Publishing to processor at %s:%s\n", cfg.ProcessorHost, cfg.ProcessorPort)
	}

	pipeline := ingest.NewPipeline(store, pub)
	engine := monaco.New()

	// resolveFixture is the opaque event/team-name matcher against the
	// fixture catalog; real fuzzy matching lives outside this pipeline,
	// so events are resolved against their own numeric id.
	resolveFixture := func(eventID string) (int64, bool) {
		return parseFixtureID(eventID)
	}

	if cfg.MonacoOdds {
		startMonaco(ctx, cfg, engine, pipeline, store, resolveFixture)
	}

	if cfg.PinnacleOdds {
		startPinnacle(ctx, cfg, pipeline, store, resolveFixture)
	}

	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(chimiddleware.Timeout(10 * time.Second))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET"},
	}))
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	server := &http.Server{Addr: ":" + cfg.Port, Handler: router}

	go func() {
		fmt.Printf("✓ Health endpoint listening on :%s\n", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("❌ Server error: %v\n", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	fmt.Println("\n🛑 Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		fmt.Printf("⚠️  Server shutdown error: %v\n", err)
	}

	store.Close()
	fmt.Println("✓ Shutdown complete")
}

func startMonaco(ctx context.Context, cfg *config.Config, engine *monaco.Engine, pipeline *ingest.Pipeline, store *persistence.Store, resolveFixture ingest.FixtureResolver) {
	client := monaco.NewClient(cfg.MonacoBaseURL, cfg.MonacoAppID, cfg.MonacoAPIKey, nil)

	runDiscovery := func() {
		if err := discoverMonacoMarkets(ctx, client, engine, pipeline, resolveFixture); err != nil {
			fmt.Printf("⚠️  [monaco-discovery] cycle failed: %v\n", err)
		}
	}
	runDiscovery()

	go func() {
		ticker := time.NewTicker(60 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				runDiscovery()
			}
		}
	}()

	handler := ingest.NewMonacoHandler(engine, pipeline)
	stream := monaco.NewStreamClient(cfg.MonacoStreamURL, handler)
	go stream.Run(ctx)
	fmt.Println("✓ Monaco stream started")
}

// discoverMonacoMarkets fetches the full market listing, registers any
// market the pipeline tracks, resolves each event to a catalog fixture,
// and ensures a persisted row exists for every newly-resolved fixture.
// Safe to call repeatedly: RegisterMapping and ResolveFixture are both
// idempotent against markets/fixtures they've already seen.
func discoverMonacoMarkets(ctx context.Context, client *monaco.Client, engine *monaco.Engine, pipeline *ingest.Pipeline, resolveFixture ingest.FixtureResolver) error {
	markets, events, err := client.FetchAllMarkets(ctx)
	if err != nil {
		return err
	}

	for _, market := range markets {
		mapping, ok := monaco.BuildMapping(market)
		if !ok {
			continue
		}
		engine.RegisterMapping(mapping)
	}

	for _, ev := range events {
		fixtureID, ok := resolveFixture(ev.ID)
		if !ok {
			continue // mapping miss: dropped silently, next refresh may map it
		}
		resolved := engine.ResolveFixture(ev.ID, fixtureID)
		if len(resolved) == 0 {
			continue
		}

		t := time.Now().UnixMilli()
		ahLines := monaco.BuildLines(engine.MappingsFor(fixtureID, models.MarketAH))
		ouLines := monaco.BuildLines(engine.MappingsFor(fixtureID, models.MarketOU))
		pipeline.EnsureRecord(ctx, fixtureID, ingest.MonacoBookieID, "Monaco", models.LinesEntry{T: t, AH: ahLines, OU: ouLines}, t)
	}
	return nil
}

func startPinnacle(ctx context.Context, cfg *config.Config, pipeline *ingest.Pipeline, store *persistence.Store, resolveFixture ingest.FixtureResolver) {
	client := pinnacle.NewClient(cfg.PinnacleBaseURL, cfg.PinnacleAPIKey, nil)
	leagues := pinnacle.LeaguesFromEnv(cfg.PinnacleLeagues)
	resolve := func(eventID int64) (int64, bool) {
		return resolveFixture(fmt.Sprintf("%d", eventID))
	}
	service := pinnacle.NewService(client, store, resolve, ingest.PinnacleSink(pipeline), leagues)

	if cfg.RedisURL != "" {
		checker := dedup.NewRedisChecker(cfg.RedisURL, 24*time.Hour)
		if err := checker.Ping(ctx); err != nil {
			fmt.Printf("⚠️  Redis dedup cache unavailable, polling without suppression: %v\n", err)
		} else {
			service.SetDedup(checker)
			fmt.Println("✓ Pinnacle dedup cache connected")
		}
	}

	go service.Run(ctx)
	fmt.Println("✓ Pinnacle poll loop started")
}

func parseFixtureID(eventID string) (int64, bool) {
	var id int64
	_, err := fmt.Sscanf(eventID, "%d", &id)
	if err != nil {
		return 0, false
	}
	return id, true
}
