package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/mansoorceksport/storeit/internal/config"
	"github.com/mansoorceksport/storeit/internal/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Deletes objects in the bucket that no files document points at. These are left
// behind when an upload's metadata write and its rollback both fail.
func main() {
	mongoURI := flag.String("mongo", envOr("MONGODB_URI", "mongodb://localhost:27017"), "MongoDB connection URI")
	dbName := flag.String("db", envOr("MONGODB_DATABASE", "storeit"), "Database name")
	bucket := flag.String("bucket", envOr("S3_BUCKET", "storeit"), "Bucket name")
	endpoint := flag.String("endpoint", envOr("S3_ENDPOINT", "http://localhost:8333"), "S3 endpoint")
	region := flag.String("region", envOr("S3_REGION", "us-east-1"), "S3 region")
	minAge := flag.Duration("min-age", time.Hour, "Skip objects newer than this (uploads may still be in flight)")
	dryRun := flag.Bool("dry-run", false, "Show what would be deleted without deleting")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(*mongoURI))
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Disconnect(context.Background())

	store, err := repository.NewS3BlobStore(ctx, config.S3Config{
		Endpoint:  *endpoint,
		Region:    *region,
		Bucket:    *bucket,
		AccessKey: envOr("S3_ACCESS_KEY", "any"),
		SecretKey: envOr("S3_SECRET_KEY", "any"),
	})
	if err != nil {
		log.Fatalf("Failed to open bucket: %v", err)
	}

	filesCol := client.Database(*dbName).Collection("files")
	known, err := filesCol.Distinct(ctx, "bucket_file_id", bson.M{})
	if err != nil {
		log.Fatalf("Failed to load file keys: %v", err)
	}
	referenced := make(map[string]bool, len(known))
	for _, k := range known {
		if key, ok := k.(string); ok {
			referenced[key] = true
		}
	}
	fmt.Printf("📋 %d files reference a blob\n", len(referenced))

	if *dryRun {
		fmt.Println("🏃 DRY RUN - nothing will be deleted")
	}

	cutoff := time.Now().Add(-*minAge)
	var scanned, orphaned int
	var reclaimed int64

	err = store.ListKeys(ctx, func(obj repository.BlobObject) error {
		scanned++
		if referenced[obj.Key] || obj.LastModified.After(cutoff) {
			return nil
		}
		orphaned++
		reclaimed += obj.Size
		fmt.Printf("🗑️  %s (%d bytes)\n", obj.Key, obj.Size)
		if *dryRun {
			return nil
		}
		if err := store.Delete(ctx, obj.Key); err != nil {
			log.Printf("Warning: failed to delete %s: %v", obj.Key, err)
		}
		return nil
	})
	if err != nil {
		log.Fatalf("Failed to list bucket: %v", err)
	}

	fmt.Printf("\n✅ Scanned %d objects, %d orphaned, %d bytes reclaimable\n", scanned, orphaned, reclaimed)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
