package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"clipstream/internal/config"
	"clipstream/internal/infra/database"
	infraES "clipstream/internal/infra/elasticsearch"
	"clipstream/internal/model"
	"clipstream/internal/repository"
	"clipstream/internal/service"
	"clipstream/pkg/logger"
	"clipstream/pkg/utils"

	"github.com/go-faker/faker/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var statuses = []model.VideoStatus{
	model.VideoStatusPublic,
	model.VideoStatusPublic,
	model.VideoStatusPublic,
	model.VideoStatusUnlisted,
	model.VideoStatusPrivate,
}

func main() {
	users := flag.Int("users", 20, "channels to create")
	videos := flag.Int("videos", 200, "videos to create")
	reset := flag.Bool("reset", false, "drop and recreate every table first")
	flag.Parse()

	cfg, err := config.Load(config.Path())
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}
	if err := logger.Init(cfg.Log.Level, "console", "stdout", ""); err != nil {
		panic(fmt.Sprintf("Failed to init logger: %v", err))
	}
	defer logger.Sync()

	if err := database.Init(&cfg.Database); err != nil {
		logger.Fatal("Failed to init database", zap.Error(err))
	}
	defer database.Close()
	db := database.Get()

	if *reset {
		if err := db.Migrator().DropTable(model.All()...); err != nil {
			logger.Fatal("Failed to drop tables", zap.Error(err))
		}
		logger.Info("Tables dropped")
	}
	if err := database.AutoMigrate(db); err != nil {
		logger.Fatal("Failed to auto migrate", zap.Error(err))
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	ctx := context.Background()

	channels := seedChannels(ctx, db, *users)
	if len(channels) == 0 {
		logger.Fatal("No channels created")
	}
	ids := seedVideos(ctx, db, rng, channels, *videos)
	seedEngagement(db, rng, channels, ids)

	if esClient, err := infraES.NewClient(&cfg.Elasticsearch); err != nil {
		logger.Warn("Elasticsearch unavailable, skipping index", zap.Error(err))
	} else {
		indexVideos(ctx, db, esClient)
	}
	logger.Info("Seeding finished", zap.Int("channels", len(channels)), zap.Int("videos", len(ids)))
}

func seedChannels(ctx context.Context, db *gorm.DB, n int) []model.Channel {
	repo := repository.NewUserRepository(db)
	password, err := utils.HashPassword("password")
	if err != nil {
		logger.Fatal("Failed to hash password", zap.Error(err))
	}

	out := make([]model.Channel, 0, n)
	for i := 0; i < n; i++ {
		username := fmt.Sprintf("%s%d", strings.ToLower(faker.Username()), i)
		slug, err := service.NormalizeSlug(username)
		if err != nil {
			continue
		}
		user := &model.User{UserName: username, Password: password}
		channel := &model.Channel{Name: faker.Name(), Slug: slug, Description: faker.Sentence()}
		if err := repo.CreateWithChannel(ctx, user, channel); err != nil {
			logger.Warn("Skip channel", zap.String("slug", slug), zap.Error(err))
			continue
		}
		out = append(out, *channel)
	}
	logger.Info("Channels created", zap.Int("count", len(out)))
	return out
}

func seedVideos(ctx context.Context, db *gorm.DB, rng *rand.Rand, channels []model.Channel, n int) []string {
	videoRepo := repository.NewVideoRepository(db)
	videoSvc := service.NewVideoService(videoRepo, nil, nil, "")

	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		author := channels[rng.Intn(len(channels))]
		video, err := videoSvc.Create(ctx, service.Caller{UserID: author.UserID, ChannelID: author.ID}, service.CreateVideoInput{
			Name:        truncate(faker.Sentence(), 100),
			Description: faker.Paragraph(),
			Status:      statuses[rng.Intn(len(statuses))],
			Link:        "https://example.com/media/" + faker.UUIDDigit() + ".mp4",
		})
		if err != nil {
			logger.Warn("Skip video", zap.Error(err))
			continue
		}
		// spread creation times over the past year so recency filters have data
		created := time.Now().UTC().Add(-time.Duration(rng.Int63n(int64(365 * 24 * time.Hour))))
		db.Model(&model.Video{}).Where("id = ?", video.ID).Update("created_at", created)
		ids = append(ids, video.ID)
	}
	logger.Info("Videos created", zap.Int("count", len(ids)))
	return ids
}

func seedEngagement(db *gorm.DB, rng *rand.Rand, channels []model.Channel, videoIDs []string) {
	if len(videoIDs) == 0 {
		return
	}

	var likes []model.VideoLike
	var views []model.VideoView
	var subs []model.SubscriptionItem
	for _, ch := range channels {
		for i := 0; i < 10; i++ {
			videoID := videoIDs[rng.Intn(len(videoIDs))]
			likes = append(likes, model.VideoLike{ChannelID: ch.ID, VideoID: videoID, IsLike: rng.Intn(5) > 0})
			channelID := ch.ID
			views = append(views, model.VideoView{
				VideoID:   videoID,
				ChannelID: &channelID,
				IPAddress: faker.IPv4(),
				CreatedAt: time.Now().UTC().Add(-time.Duration(rng.Intn(72)) * time.Hour),
			})
		}
		target := channels[rng.Intn(len(channels))]
		if target.ID != ch.ID {
			subs = append(subs, model.SubscriptionItem{SubscriberID: ch.ID, SubscribedToID: target.ID})
		}
	}

	db.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(likes, 100)
	db.CreateInBatches(views, 100)
	db.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(subs, 100)
	logger.Info("Engagement created",
		zap.Int("likes", len(likes)),
		zap.Int("views", len(views)),
		zap.Int("subscriptions", len(subs)),
	)
}

func indexVideos(ctx context.Context, db *gorm.DB, es *infraES.Client) {
	if err := es.EnsureVideosIndex(ctx); err != nil {
		logger.Warn("Failed to ensure videos index", zap.Error(err))
		return
	}

	feed := repository.NewFeedRepository(db)
	rows, err := feed.List(ctx, repository.FeedQuery{
		Visibility: repository.VisibilityFilter{
			Statuses:         []model.VideoStatus{model.VideoStatusPublic},
			ExcludeUploading: true,
		},
		Limit: 10000,
	})
	if err != nil {
		logger.Warn("Failed to load videos for indexing", zap.Error(err))
		return
	}

	docs := make([]infraES.VideoDoc, 0, len(rows))
	for i := range rows {
		docs = append(docs, *service.ToVideoDoc(&rows[i]))
	}
	success, failed, err := es.BulkIndexVideos(ctx, docs)
	if err != nil {
		logger.Warn("Bulk index failed", zap.Error(err))
		return
	}
	logger.Info("Videos indexed", zap.Int("success", success), zap.Int("failed", failed))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
