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
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/cvstudio/cvstudio-backend/internal/cv/handler"
	"github.com/cvstudio/cvstudio-backend/internal/cv/objectstore"
	"github.com/cvstudio/cvstudio-backend/internal/cv/pipeline"
	"github.com/cvstudio/cvstudio-backend/internal/cv/store"
	"github.com/cvstudio/cvstudio-backend/pkg/config"
	"github.com/cvstudio/cvstudio-backend/pkg/database"
	"github.com/cvstudio/cvstudio-backend/pkg/httputil"
	"github.com/cvstudio/cvstudio-backend/pkg/logger"
	"github.com/cvstudio/cvstudio-backend/pkg/messaging"
)

func main() {
	// Load configuration
	cfg, err := config.LoadWithValidation("cv-service")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New("cv-service", cfg.Server.Environment)
	log.Info().Msg("starting CV Service")

	// Connect to database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Connect to RabbitMQ
	rmq, err := messaging.New(&cfg.RabbitMQ, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	defer rmq.Close()

	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangeCVEvents, "cv-service", log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create event publisher")
	}

	// Object storage for raw uploads
	objects, err := objectstore.New(&cfg.Minio)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create object store client")
	}
	if err := objects.EnsureBucket(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure upload bucket")
	}

	// Document store client over the Postgres backend
	storeClient := store.NewClient(store.NewPostgresBackend(db), log)

	// Pipeline stages
	extractors := pipeline.NewExtractorRegistry(
		pipeline.NewDocxExtractor(),
		pipeline.NewXlsxExtractor(),
		pipeline.NewRemoteExtractor(&cfg.Extractor),
	)

	var parser pipeline.Parser
	if cfg.LLM.Provider != "" {
		parser, err = pipeline.NewLLMParser(&cfg.LLM)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create LLM parser")
		}
		log.Info().Str("provider", cfg.LLM.Provider).Str("model", cfg.LLM.Model).Msg("using LLM parser")
	} else {
		parser = pipeline.NewRuleParser()
	}

	runner := pipeline.NewRunner(
		storeClient,
		extractors,
		parser,
		pipeline.NewFormatter(),
		objects,
		publisher,
		cfg.Pipeline.StageTimeout,
		log,
	)

	cvHandler := handler.NewHandler(storeClient, runner, cfg.Pipeline.MaxUploadSize, log)

	// Create router
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]interface{}{
			"status":   "healthy",
			"service":  "cv-service",
			"database": db.Health(r.Context()),
			"rabbitmq": rmq.Health(),
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		cvHandler.Routes(r)
	})

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("CV Service listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down CV Service")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}

	log.Info().Msg("CV Service stopped")
}
