package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	_ "github.com/lib/pq"

	"github.com/fortuna/oddspipeline/internal/processor/cache"
	"github.com/fortuna/oddspipeline/internal/processor/config"
	"github.com/fortuna/oddspipeline/internal/processor/edge"
	"github.com/fortuna/oddspipeline/pkg/models"
)

func main() {
	fmt.Println("🚀 Starting Odds Processor...")

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("❌ Configuration error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		fmt.Printf("❌ Failed to open database: %v\n", err)
		os.Exit(1)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		fmt.Printf("❌ Database ping failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("✓ Connected to database")

	updates := make(chan *models.NormalizedUpdate, 1000)

	tcpListener := edge.NewTCPListener("127.0.0.1:" + cfg.TCPPort)
	go func() {
		if err := tcpListener.Run(ctx, updates); err != nil {
			fmt.Printf("❌ TCP ingest error: %v\n", err)
		}
	}()
	fmt.Printf("✓ TCP ingest listening on 127.0.0.1:%s\n", cfg.TCPPort)

	dbListener := edge.NewDBListener(db, cfg.DatabaseURL)
	go func() {
		if err := dbListener.Run(ctx, updates); err != nil {
			fmt.Printf("❌ Database listener error: %v\n", err)
		}
	}()

	fixtureCache := cache.New(cfg.MaxFixtures)
	hub := edge.NewHub(fixtureCache, updates)
	go hub.Run(ctx)

	server := edge.NewServer(hub, ctx)
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET"},
	}))
	r.Get("/ws", server.HandleWebSocket)
	r.Get("/health", server.HandleHealth)
	httpServer := &http.Server{Addr: ":" + cfg.WSPort, Handler: r}

	go func() {
		fmt.Printf("✓ WebSocket server listening on :%s\n", cfg.WSPort)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		fmt.Printf("⚠️  Server shutdown error: %v\n", err)
	}

	db.Close()
	fmt.Println("✓ Shutdown complete")
}
