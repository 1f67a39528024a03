package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"whiteboard-backend/internal/config"
	"whiteboard-backend/internal/database"
	"whiteboard-backend/internal/jobs"
	"whiteboard-backend/internal/presence"
	"whiteboard-backend/internal/preview"
	"whiteboard-backend/internal/queue"
	"whiteboard-backend/internal/realtime"
	"whiteboard-backend/internal/render"
	"whiteboard-backend/internal/server"
	"whiteboard-backend/internal/service"
	"whiteboard-backend/internal/session"
	"whiteboard-backend/internal/storage"
	"whiteboard-backend/internal/store"
)

func main() {
	cfg := config.Load()

	db, err := database.ConnectDB()
	if err != nil {
		log.Fatalf("❌ Database connection failed: %v", err)
	}
	defer database.Close()

	if err := database.Ping(); err != nil {
		log.Fatalf("❌ Database ping failed: %v", err)
	}
	log.Printf("✅ Database connected successfully")

	s3Service, err := storage.NewS3Service(&cfg.S3)
	if err != nil {
		log.Fatalf("❌ S3 service initialization failed: %v", err)
	}
	log.Printf("✅ S3 service initialized (bucket: %s)", cfg.S3.BucketName)

	presenceManager := presence.NewManager(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	defer presenceManager.Close()

	// Stores
	whiteboardStore := store.NewWhiteboardStore(db)
	elementStore := store.NewElementStore(db)
	assetStore := store.NewAssetStore(db)
	activityStore := store.NewActivityStore(db)
	sessionStore := session.NewStore(db, cfg.Session.StaleAfter)

	// Realtime fan-out and preview invalidation
	hub := realtime.NewHub()
	dirty := preview.NewDirtySet()

	// Services
	boards := service.NewWhiteboardService(whiteboardStore, elementStore, assetStore, activityStore, sessionStore)
	pipeline := service.NewPipeline(elementStore, whiteboardStore, assetStore, activityStore, sessionStore, dirty, hub)

	// Single worker serializes all element mutations.
	mutationQueue := queue.NewMutationQueue()
	worker := queue.NewWorker(mutationQueue, pipeline)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	workerDone := make(chan struct{})
	go func() {
		worker.Run(ctx)
		close(workerDone)
	}()

	// Preview housekeeper: one instance renders at a time, guarded by a
	// Postgres advisory lock.
	renderer := render.NewRenderer(cfg.Renderer)
	housekeeper := preview.NewHousekeeper(
		dirty,
		whiteboardStore,
		elementStore,
		renderer,
		s3Service,
		database.NewAdvisoryLock(db, cfg.Housekeeper.LockID),
		presenceManager,
		cfg.Housekeeper.Interval,
	)
	go housekeeper.Run(ctx)

	// Stale session reaper
	go jobs.RunForever(ctx, "SessionReaper", cfg.Session.ReapInterval, func(ctx context.Context) error {
		reaped, err := sessionStore.Reap()
		if err != nil {
			return err
		}
		if reaped > 0 {
			log.Printf("[SessionReaper] Removed %d stale sessions", reaped)
		}
		return nil
	})

	srv := server.New(cfg, &server.Deps{
		DB:       db,
		Boards:   boards,
		Pipeline: pipeline,
		Queue:    mutationQueue,
		Sessions: sessionStore,
		Presence: presenceManager,
		Hub:      hub,
	})
	srv.SetupMiddleware()
	srv.SetupRoutes()

	// Graceful shutdown: stop accepting, drain the queue, stop loops.
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("ℹ️ Shutting down...")

		if err := srv.Shutdown(); err != nil {
			log.Printf("⚠️ Server shutdown error: %v", err)
		}
		mutationQueue.Close()
	}()

	if err := srv.Start(); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}

	// Accepted mutations are applied before exit.
	<-workerDone
	cancel()
	log.Println("✅ Shutdown complete")
}
