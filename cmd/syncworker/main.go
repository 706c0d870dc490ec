// The sync worker is the background reconciliation context: a separate
// process that shares only the database and the Redis event channel with the
// server, and drains the queue when asked to, even if the server is gone.
package main

import (
	"context"
	"database/sql"
	"log"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	config "postqueue/configs"
	"postqueue/internal/metrics"
	"postqueue/internal/notify"
	"postqueue/internal/queue"
	"postqueue/internal/repository"
	"postqueue/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Database is unreachable: %v", err)
	}

	if err := repository.EnsureSchema(context.Background(), db); err != nil {
		log.Fatalf("Failed to prepare schema: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisURI})
	defer redisClient.Close()

	postRepo := repository.NewPostRepository(db)
	credRepo := repository.NewCredentialRepository(db)

	storageService := service.NewStorageService(*cfg)
	instagramService := service.NewInstagramService(*cfg, credRepo)
	publisher := service.NewPublisherService(postRepo, storageService, instagramService)

	// Completion reports go out over Redis; a foreground page may or may not
	// be listening.
	bridge := notify.NewBridge(redisClient)

	q := queue.NewQueue(postRepo, publisher)
	worker := queue.NewWorker(q, bridge)

	metricsServer, err := metrics.NewHTTPServer(cfg.WorkerMetricsAddr, db.Ping)
	if err != nil {
		log.Fatalf("Failed to start metrics server: %v", err)
	}
	defer metricsServer.Shutdown()

	server := asynq.NewServer(asynq.RedisClientOpt{Addr: cfg.RedisURI}, asynq.Config{
		// Drains must not interleave: one record at a time, one drain at a
		// time per process.
		Concurrency: 1,
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TaskTypeSyncPosts, worker.HandleSyncTask)
	mux.HandleFunc(queue.TaskTypeSchedulePost, worker.HandleSchedulePostTask)

	log.Println("Starting the sync worker...")
	if err := server.Run(mux); err != nil {
		log.Fatalf("Could not start sync worker: %v", err)
	}
}
