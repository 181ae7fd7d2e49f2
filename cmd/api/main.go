package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clipstream/internal/api/handler"
	"clipstream/internal/api/middleware"
	"clipstream/internal/api/router"
	"clipstream/internal/config"
	"clipstream/internal/infra/database"
	infraES "clipstream/internal/infra/elasticsearch"
	infraKafka "clipstream/internal/infra/kafka"
	infraMinio "clipstream/internal/infra/minio"
	infraRedis "clipstream/internal/infra/redis"
	"clipstream/internal/repository"
	"clipstream/internal/service"
	"clipstream/pkg/logger"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
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

	if err := database.AutoMigrate(database.Get()); err != nil {
		logger.Fatal("Failed to auto migrate", zap.Error(err))
	}

	// Redis only backs the view gate; without it views dedup in the database alone.
	var viewGate service.ViewGate
	rdb, err := infraRedis.Connect(context.Background(), &cfg.Redis)
	if err != nil {
		logger.Warn("Redis unavailable, view dedup runs on the database only", zap.Error(err))
	} else {
		defer rdb.Close()
		viewGate = infraRedis.NewViewGate(rdb, cfg.View.DedupWindow)
	}

	storage, err := infraMinio.NewGateway(&cfg.MinIO)
	if err != nil {
		logger.Fatal("Failed to init minio", zap.Error(err))
	}
	bucketCtx, bucketCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := storage.EnsureBuckets(bucketCtx, cfg.MinIO.Buckets()...); err != nil {
		logger.Fatal("Failed to ensure minio buckets", zap.Error(err))
	}
	bucketCancel()

	var events service.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		producer := infraKafka.NewProducer(&cfg.Kafka)
		defer producer.Close()
		events = producer
	} else {
		logger.Warn("Kafka brokers not configured, video events disabled")
	}

	// The index is only written by the worker from video events, so without
	// Kafka it would never be populated.
	var searchIndex service.SearchIndex
	if events == nil {
		logger.Warn("Video events disabled, search runs on the database only")
	} else if esClient, err := infraES.NewClient(&cfg.Elasticsearch); err != nil {
		logger.Warn("Elasticsearch init failed, search will fallback to DB", zap.Error(err))
	} else {
		searchIndex = esClient
	}

	db := database.Get()
	userRepo := repository.NewUserRepository(db)
	channelRepo := repository.NewChannelRepository(db)
	videoRepo := repository.NewVideoRepository(db)
	uploadRepo := repository.NewUploadRepository(db)
	likeRepo := repository.NewLikeRepository(db)
	viewRepo := repository.NewViewRepository(db)
	feedRepo := repository.NewFeedRepository(db)
	subRepo := repository.NewSubscriptionRepository(db)
	commentRepo := repository.NewCommentRepository(db)

	uploadCoordinator, err := service.NewUploadCoordinator(storage, uploadRepo, videoRepo, events, service.UploadOptions{
		Bucket:         cfg.MinIO.VideoBucket,
		PartURLTTL:     cfg.Upload.PartURLTTL,
		DownloadURLTTL: cfg.Upload.DownloadURLTTL,
		SessionTTL:     cfg.Upload.SessionTTL,
		ReapBatch:      cfg.Upload.ReapBatch,
	})
	if err != nil {
		logger.Fatal("Failed to init upload coordinator", zap.Error(err))
	}
	feedService := service.NewFeedService(feedRepo, channelRepo, searchIndex, service.FeedOptions{
		DefaultPageSize: cfg.Feed.DefaultPageSize,
		MaxPageSize:     cfg.Feed.MaxPageSize,
		SearchLimit:     cfg.Feed.SearchLimit,
	})
	engagementService := service.NewEngagementService(videoRepo, likeRepo, viewRepo, viewGate, cfg.View.DedupWindow)
	videoService := service.NewVideoService(videoRepo, storage, events, cfg.MinIO.VideoBucket)
	channelService := service.NewChannelService(channelRepo, storage, events, cfg.MinIO.AvatarBucket, cfg.Upload.AvatarURLTTL)
	subscriptionService := service.NewSubscriptionService(subRepo, channelRepo)
	commentService := service.NewCommentService(commentRepo, videoRepo)
	authService := service.NewAuthService(userRepo, &cfg.JWT)

	gin.SetMode(cfg.App.Mode)
	r := gin.New()
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())

	r.GET("/healthz", healthCheckHandler(cfg, rdb))

	router.Setup(r, &cfg.JWT, router.Handlers{
		Auth:       handler.NewAuthHandler(authService),
		Upload:     handler.NewUploadHandler(uploadCoordinator),
		Video:      handler.NewVideoHandler(videoService),
		Engagement: handler.NewEngagementHandler(engagementService, feedService),
		Channel:    handler.NewChannelHandler(channelService, subscriptionService, feedService),
		Comment:    handler.NewCommentHandler(commentService),
	})

	addr := fmt.Sprintf(":%d", cfg.App.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Starting application",
		zap.String("name", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("mode", cfg.App.Mode),
		zap.String("addr", addr),
	)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Info("Received signal, shutting down", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
	}
	logger.Info("Server stopped")
}

// healthCheckHandler reports degraded only when the database is down; Redis
// is optional and shown for information.
func healthCheckHandler(cfg *config.Config, rdb *goredis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := "ok"
		code := http.StatusOK
		dbState := "up"
		if sqlDB, err := database.Get().DB(); err != nil || sqlDB.PingContext(ctx) != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
			dbState = "down"
		}

		redisState := "up"
		if err := infraRedis.Ping(ctx, rdb); errors.Is(err, infraRedis.ErrDisabled) {
			redisState = "disabled"
		} else if err != nil {
			redisState = "down"
		}

		c.JSON(code, gin.H{
			"status":    status,
			"timestamp": time.Now().Format(time.RFC3339),
			"service":   cfg.App.Name,
			"version":   cfg.App.Version,
			"mode":      cfg.App.Mode,
			"checks": gin.H{
				"database": dbState,
				"redis":    redisState,
			},
		})
	}
}
