// Command create_collection provisions the Milvus collection and its vector
// index from the configured schema. Safe to run repeatedly.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"htmlsearch/internal/config"
	"htmlsearch/internal/database/milvus"
)

func main() {
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()
	milvusClient, err := milvus.GetClient(ctx, &cfg.Milvus)
	if err != nil {
		log.Fatalf("Failed to connect to Milvus: %v", err)
	}
	defer milvusClient.Close()

	if err := milvusClient.EnsureCollection(ctx); err != nil {
		log.Fatalf("Failed to ensure collection: %v", err)
	}

	fmt.Printf("Collection '%s' exists with its index and is loaded.\n", cfg.Milvus.Schema.CollectionName)
}
