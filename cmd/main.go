package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mansoorceksport/storeit/internal/config"
	"github.com/mansoorceksport/storeit/internal/domain"
	"github.com/mansoorceksport/storeit/internal/middleware"
	"github.com/mansoorceksport/storeit/internal/repository"
	"github.com/mansoorceksport/storeit/internal/server"
	"github.com/mansoorceksport/storeit/internal/service"
	"github.com/mansoorceksport/storeit/internal/telemetry"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/mongo/otelmongo"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log.Println("Starting StoreIt API...")

	ctx := context.Background()

	otelProvider, err := telemetry.Initialize(ctx, telemetry.FromConfig(cfg.OTEL))
	if err != nil {
		log.Printf("Warning: Failed to initialize OpenTelemetry: %v", err)
	}
	if otelProvider != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := otelProvider.Shutdown(shutdownCtx); err != nil {
				log.Printf("Warning: OpenTelemetry shutdown: %v", err)
			}
		}()
	}

	// Firebase is optional; without it only email codes can sign in
	var authClient service.FirebaseAuthClient
	if cfg.Firebase.Enabled() {
		client, err := middleware.InitFirebase(ctx, cfg.Firebase)
		if err != nil {
			log.Fatalf("Failed to initialize Firebase: %v", err)
		}
		authClient = client
		log.Println("✓ Firebase initialized")
	}

	// Connect to MongoDB with OpenTelemetry instrumentation
	ctxMongo, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	mongoOpts := options.Client().ApplyURI(cfg.MongoDB.URI)
	if cfg.OTEL.Enabled {
		mongoOpts.SetMonitor(otelmongo.NewMonitor())
	}

	mongoClient, err := mongo.Connect(ctxMongo, mongoOpts)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			log.Printf("Error disconnecting from MongoDB: %v", err)
		}
	}()

	if err := mongoClient.Ping(ctxMongo, nil); err != nil {
		log.Fatalf("Failed to ping MongoDB: %v", err)
	}
	log.Println("✓ MongoDB connected")

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       0,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	log.Println("✓ Redis connected")

	blobStore, err := repository.NewS3BlobStore(ctx, cfg.S3)
	if err != nil {
		log.Fatalf("Failed to initialize object storage: %v", err)
	}
	log.Printf("✓ Object storage ready (bucket: %s)", cfg.S3.Bucket)

	var mailer domain.Mailer = service.LogMailer{}
	if cfg.SMTP.Host != "" {
		mailer = service.NewSMTPMailer(cfg.SMTP)
		log.Printf("✓ SMTP mailer configured (%s:%d)", cfg.SMTP.Host, cfg.SMTP.Port)
	} else {
		log.Println("⚠️  SMTP_HOST not set, sign-in codes will be logged")
	}

	app := server.NewApp(server.AppDependencies{
		Config:      cfg,
		MongoDB:     mongoClient.Database(cfg.MongoDB.Database),
		RedisClient: redisClient,
		BlobStore:   blobStore,
		AuthClient:  authClient,
		Mailer:      mailer,
	})

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		log.Println("Shutting down gracefully...")
		app.Shutdown()
	}()

	log.Printf("🚀 Server starting on port %s", cfg.Server.Port)
	if err := app.Listen(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
