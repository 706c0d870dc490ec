package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/websocket/v2"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron"

	config "postqueue/configs"
	"postqueue/internal/api/handlers"
	"postqueue/internal/api/middleware"
	job "postqueue/internal/jobs"
	"postqueue/internal/metrics"
	"postqueue/internal/netmon"
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
	defer closeDB(db)

	if err := db.Ping(); err != nil {
		log.Fatalf("Database is unreachable: %v", err)
	}

	if err := repository.EnsureSchema(context.Background(), db); err != nil {
		log.Fatalf("Failed to prepare schema: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisURI})
	defer redisClient.Close()

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisURI})
	defer asynqClient.Close()

	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		BodyLimit:    16 * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOriginsFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	postRepo := repository.NewPostRepository(db)
	credRepo := repository.NewCredentialRepository(db)

	postService := service.NewPostService(postRepo)
	storageService := service.NewStorageService(*cfg)
	instagramService := service.NewInstagramService(*cfg, credRepo)
	publisher := service.NewPublisherService(postRepo, storageService, instagramService)

	hub := notify.NewHub()
	q := queue.NewQueue(postRepo, publisher)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Background worker events reach websocket clients through Redis.
	go notify.Relay(ctx, redisClient, hub)

	source := netmon.NewDialSource(cfg.ProbeAddr)
	monitor := netmon.NewMonitor(source.Probe(ctx))
	go source.Watch(ctx, monitor)

	drainAndSync := func() {
		go func() {
			if _, err := q.Drain(context.Background(), "online", hub); err != nil {
				log.Printf("Drain failed: %v", err)
			}
		}()
		if err := queue.RegisterSync(asynqClient); err != nil {
			log.Printf("Failed to register background sync: %v", err)
		}
	}

	// Connectivity drives the primary drain path. Each online edge drains the
	// queue here and registers a background sync as a second chance in case
	// this process dies mid-drain.
	unsubscribe := monitor.Subscribe(func(online bool) {
		if online {
			drainAndSync()
		}
	})
	defer unsubscribe()

	authMiddleware := middleware.NewAuthMiddleware(*cfg)

	auth := handlers.NewAuthHandler(*cfg)
	app.Post("/login", auth.Login)

	platform := handlers.NewPlatformHandler(instagramService, *cfg)
	app.Get("/auth/instagram", platform.ConnectInstagram)
	app.Get("/auth/instagram/callback", platform.CallbackHandler)

	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	// A post saved while already online has no edge to wait for; drain it
	// right away.
	post := handlers.NewPostHandler(postService, asynqClient, hub, func() {
		if monitor.Online() {
			drainAndSync()
		}
	})
	api.Post("/posts/create", post.CreatePost)
	api.Get("/posts", post.ListPosts)
	api.Post("/posts/remove", post.RemovePost)

	api.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	api.Get("/ws", websocket.New(hub.Handler))

	// cron jobs
	refreshTokenJob := job.NewTokenRefreshJob(credRepo, instagramService)
	sweepJob := job.NewScheduledSweepJob(q, monitor, hub)

	c := cron.New()
	c.AddFunc("@every 01h00m00s", refreshTokenJob.RefreshTokens)
	c.AddFunc("@every 00h01m00s", sweepJob.Run)
	c.Start()
	defer c.Stop()

	metricsServer, err := metrics.NewHTTPServer(cfg.MetricsAddr, db.Ping)
	if err != nil {
		log.Fatalf("Failed to start metrics server: %v", err)
	}
	defer metricsServer.Shutdown()

	go func() {
		if err := app.Listen(":3000"); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Println("Server is running on http://localhost:3000")

	gracefulShutdown(app, db)
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, db *sql.DB) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Fatalf("Failed to shut down server: %v", err)
	}

	log.Println("Server shutdown complete.")
}
