package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"htmlsearch/internal/config"
	"htmlsearch/internal/database/milvus"
	"htmlsearch/internal/embedding"
	"htmlsearch/internal/search_service/api"
	"htmlsearch/internal/search_service/service"
	"htmlsearch/pkg/logger"
)

func main() {
	// .env is optional; real environment variables win either way.
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(logger.ParseLevel(cfg.Logger.Level))
	appLogger := logger.New("SearchService", "")
	appLogger.Info("Starting HTML Semantic Search service...")

	// The embedding client is created once and shared read-only across
	// requests.
	embedder, err := embedding.New(&cfg.Embedding)
	if err != nil {
		log.Fatalf("Failed to create embedding client: %v", err)
	}
	appLogger.Info(fmt.Sprintf("Embedding provider ready: %s", cfg.Embedding.Provider))

	ctx := context.Background()
	milvusClient, err := milvus.GetClient(ctx, &cfg.Milvus)
	if err != nil {
		log.Fatalf("Failed to connect to Milvus: %v", err)
	}
	defer milvusClient.Close()

	// Provisioning is idempotent, so ensuring the collection at startup is
	// safe even when cmd/create_collection already ran.
	if err := milvusClient.EnsureCollection(ctx); err != nil {
		log.Fatalf("Failed to ensure Milvus collection: %v", err)
	}
	appLogger.Info(fmt.Sprintf("Milvus collection '%s' ready", cfg.Milvus.Schema.CollectionName))

	svc, err := service.New(cfg, embedder, milvusClient, appLogger)
	if err != nil {
		log.Fatalf("Failed to create service: %v", err)
	}

	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(svc, &cfg.Server)

	srv := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: router,
	}

	go func() {
		appLogger.Info(fmt.Sprintf("HTTP server listening at %s", cfg.Server.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to serve HTTP: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(fmt.Sprintf("HTTP server shutdown failed: %v", err))
	}
	appLogger.Info("Server gracefully stopped")
}
