package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/markhenning/buildcomply/internal/aging"
	"github.com/markhenning/buildcomply/internal/audit"
	"github.com/markhenning/buildcomply/internal/cache"
	"github.com/markhenning/buildcomply/internal/config"
	"github.com/markhenning/buildcomply/internal/database"
	"github.com/markhenning/buildcomply/internal/embedding"
	"github.com/markhenning/buildcomply/internal/queue"
	"github.com/markhenning/buildcomply/internal/queue/workers"
	"github.com/markhenning/buildcomply/internal/rules"
	"github.com/markhenning/buildcomply/internal/scoring"
	"github.com/markhenning/buildcomply/internal/snapshot"
	"github.com/markhenning/buildcomply/internal/storage"
	"github.com/markhenning/buildcomply/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	db, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		slog.Error("database unavailable", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.RunMigrations(ctx, db, cfg.Database.MigrationsPath); err != nil {
		slog.Error("migrations failed", "error", err)
		os.Exit(1)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	// Stores and services
	docStore := store.NewDocumentStore(db)
	rfiStore := store.NewRFIStore(db)
	eventStore := store.NewChangeEventStore(db)
	checkStore := store.NewCheckStore(db)
	snapStore := store.NewSnapshotStore(db)
	auditSvc := audit.NewService(db)

	embedder := embedding.NewClient(cfg.Embedding)
	refCache := cache.NewCache(rdb)

	catalog := rules.DefaultCatalog()
	if err := rules.LoadReferences(ctx, catalog, embedder, refCache); err != nil {
		slog.Error("load rule reference vectors", "error", err)
		os.Exit(1)
	}
	engine := rules.NewEngine(catalog, checkStore)

	monitor := aging.NewMonitor(rfiStore, checkStore, cfg.Aging)
	scorer := scoring.NewService(checkStore, catalog, cfg.Scoring)
	snapSvc := snapshot.NewService(scorer, snapStore, checkStore)

	blobs := storage.NewSupabaseStorage(cfg.Storage.SupabaseURL, cfg.Storage.SupabaseKey)
	queueClient := queue.NewClient(cfg.Redis)
	defer queueClient.Close()

	// Workers
	ingestWorker := workers.NewIngestWorker(docStore, blobs, cfg.Storage.Bucket, embedder, queueClient, auditSvc, cfg.Ingestion.StalenessWindow)
	evaluateWorker := workers.NewEvaluateWorker(docStore, engine)
	rfiWorker := workers.NewRFIRecheckWorker(rfiStore, engine)
	eventWorker := workers.NewChangeEventRecheckWorker(eventStore, engine)
	agingWorker := workers.NewAgingWorker(monitor)
	snapshotWorker := workers.NewSnapshotWorker(checkStore, snapSvc, auditSvc)
	summaryWorker := workers.NewSummaryWorker(checkStore, snapSvc)

	registry := queue.NewHandlersRegistry()
	registry.Register(queue.TypeDocumentIngest, asynq.HandlerFunc(ingestWorker.ProcessTask))
	registry.Register(queue.TypeDocumentEvaluate, asynq.HandlerFunc(evaluateWorker.ProcessTask))
	registry.Register(queue.TypeRFIRecheck, asynq.HandlerFunc(rfiWorker.ProcessTask))
	registry.Register(queue.TypeChangeEventRecheck, asynq.HandlerFunc(eventWorker.ProcessTask))
	registry.Register(queue.TypeAgingSweep, asynq.HandlerFunc(agingWorker.ProcessTask))
	registry.Register(queue.TypeSeveritySweep, asynq.HandlerFunc(agingWorker.ProcessTask))
	registry.Register(queue.TypeDailySnapshot, asynq.HandlerFunc(snapshotWorker.ProcessTask))
	registry.Register(queue.TypeWeeklySummary, asynq.HandlerFunc(summaryWorker.ProcessTask))

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
		},
	)

	scheduler, err := queue.NewScheduler(cfg.Redis)
	if err != nil {
		slog.Error("scheduler setup failed", "error", err)
		os.Exit(1)
	}
	go func() {
		if err := scheduler.Run(); err != nil {
			slog.Error("scheduler error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("starting worker", "concurrency", 10)
	if err := srv.Run(registry.Mux()); err != nil {
		slog.Error("worker error", "error", err)
		os.Exit(1)
	}
}
