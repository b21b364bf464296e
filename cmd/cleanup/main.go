package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"go-venue/internal/config"
	"go-venue/internal/database"
	"go-venue/internal/features/mapping"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Standalone retention cleanup. Removes inactive mappings whose last update is
// older than the cutoff; active mappings are never touched.
func main() {
	days := flag.Int("days", 0, "age threshold in days (0 uses MAPPING_RETENTION_DAYS)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if *days <= 0 {
		*days = cfg.MappingRetentionDays
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Disconnect(ctx)

	db := &database.MongodbDB{DB: client.Database(cfg.DBName)}
	repo := mapping.NewMappingRepository(db)

	deleted, err := repo.CleanupOldInactive(ctx, *days)
	if err != nil {
		log.Fatalf("Cleanup failed: %v", err)
	}

	fmt.Printf("Deleted %d inactive mappings older than %d days\n", deleted, *days)
}
