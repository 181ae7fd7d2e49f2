package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"clipstream/internal/config"
	"clipstream/internal/infra/database"
	infraES "clipstream/internal/infra/elasticsearch"
	infraKafka "clipstream/internal/infra/kafka"
	infraMinio "clipstream/internal/infra/minio"
	"clipstream/internal/repository"
	"clipstream/internal/service"
	"clipstream/pkg/logger"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load(config.Path())
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.Output, cfg.Log.FilePath); err != nil {
		panic(fmt.Sprintf("Failed to init logger: %v", err))
	}
	defer logger.Sync()

	if err := database.Init(&cfg.Database); err != nil {
		logger.Fatal("Failed to init database", zap.Error(err))
	}
	defer database.Close()

	storage, err := infraMinio.NewGateway(&cfg.MinIO)
	if err != nil {
		logger.Fatal("Failed to init minio", zap.Error(err))
	}

	var events service.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		producer := infraKafka.NewProducer(&cfg.Kafka)
		defer producer.Close()
		events = producer
	}

	db := database.Get()
	videoRepo := repository.NewVideoRepository(db)
	uploads, err := service.NewUploadCoordinator(storage, repository.NewUploadRepository(db), videoRepo, events, service.UploadOptions{
		Bucket:     cfg.MinIO.VideoBucket,
		SessionTTL: cfg.Upload.SessionTTL,
		ReapBatch:  cfg.Upload.ReapBatch,
	})
	if err != nil {
		logger.Fatal("Failed to init upload coordinator", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return runReaper(ctx, uploads, cfg.Upload.ReapInterval)
	})

	if len(cfg.Kafka.Brokers) == 0 {
		logger.Warn("Kafka brokers not configured, search index sync disabled")
	} else if esClient, err := infraES.NewClient(&cfg.Elasticsearch); err != nil {
		logger.Warn("Elasticsearch unavailable, search index sync disabled", zap.Error(err))
	} else {
		if err := esClient.EnsureVideosIndex(ctx); err != nil {
			logger.Fatal("Failed to ensure videos index", zap.Error(err))
		}
		indexSync := service.NewSearchSync(videoRepo, esClient)
		g.Go(func() error {
			return infraKafka.ConsumeVideoEvents(ctx, cfg.Kafka.Brokers, cfg.Kafka.VideoEventsTopic(), cfg.Kafka.GroupID, indexSync.HandleEvent)
		})
	}

	logger.Info("Worker started", zap.Duration("reap_interval", cfg.Upload.ReapInterval))
	if err := g.Wait(); err != nil {
		logger.Error("Worker stopped with error", zap.Error(err))
		return
	}
	logger.Info("Worker stopped")
}

// runReaper aborts expired upload sessions every interval until ctx ends.
func runReaper(ctx context.Context, uploads *service.UploadCoordinator, interval time.Duration) error {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		n, err := uploads.ReapExpired(ctx)
		if err != nil && ctx.Err() == nil {
			logger.Error("Upload reaper pass failed", zap.Error(err))
		} else if n > 0 {
			logger.Info("Reaped expired uploads", zap.Int("count", n))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
