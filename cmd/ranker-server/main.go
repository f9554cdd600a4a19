package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/searchforge/catalog-ranker/internal/api"
	"github.com/searchforge/catalog-ranker/internal/config"
	"github.com/searchforge/catalog-ranker/internal/database"
	"github.com/searchforge/catalog-ranker/internal/evaluate"
	"github.com/searchforge/catalog-ranker/internal/inference"
	"github.com/searchforge/catalog-ranker/pkg/logger"
)

func main() {
	var (
		configPath = flag.String("config", "sites.yaml", "path to the site configuration file")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	sites, err := config.LoadSitesFile(*configPath)
	if err != nil {
		log.Error("failed to load site configuration", "path", *configPath, "error", err)
		os.Exit(1)
	}

	if sites.Inference.Endpoint == "" || sites.Inference.Model == "" {
		log.Error("inference endpoint and model must be configured")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := inference.NewClient(inference.Options{
		Endpoint:    sites.Inference.Endpoint,
		Model:       sites.Inference.Model,
		Timeout:     sites.Inference.Timeout(),
		MaxAttempts: sites.Inference.MaxRetries,
		Backoff:     sites.Inference.Backoff(),
	}, log)

	evaluator := evaluate.New(client, sites.Evaluation.ApplyPostRanking, log)

	var runs api.RunReader
	if cfg.Database.Enabled() {
		db, err := database.New(ctx, cfg.Database)
		if err != nil {
			log.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		runs = database.NewRunRepository(db)
	}

	handlers := api.NewHandlers(evaluator, runs, log)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://localhost:*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":      "ok",
			"model":       sites.Inference.Model,
			"persistence": cfg.Database.Enabled(),
		})
	})

	r.Route("/api/v1", handlers.Routes)

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		log.Info("shutting down server...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
	}()

	log.Info("server starting", "addr", server.Addr, "model", sites.Inference.Model)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server failed", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
