package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	infraES "clipstream/internal/infra/elasticsearch"
	infraKafka "clipstream/internal/infra/kafka"
	"clipstream/internal/model"
	"clipstream/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SearchWriter is the write side of the search index.
type SearchWriter interface {
	IndexVideo(ctx context.Context, doc *infraES.VideoDoc) error
	DeleteVideo(ctx context.Context, videoID string) error
}

// SearchSync keeps the search index in step with video lifecycle events.
type SearchSync struct {
	videos VideoStore
	index  SearchWriter
}

func NewSearchSync(videos VideoStore, index SearchWriter) *SearchSync {
	return &SearchSync{videos: videos, index: index}
}

// Searchable reports whether a video belongs in the search index.
func Searchable(v *model.Video) bool {
	return v.Status == model.VideoStatusPublic && v.UploadState != model.UploadStateUploading
}

// ToVideoDoc projects an annotated video into its search document.
func ToVideoDoc(v *model.VideoWithStats) *infraES.VideoDoc {
	return &infraES.VideoDoc{
		ID:          v.ID,
		AuthorID:    v.AuthorID,
		AuthorName:  v.AuthorName,
		AuthorSlug:  v.AuthorSlug,
		Name:        v.Name,
		Description: v.Description,
		Status:      string(v.Status),
		CreatedAt:   v.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// HandleEvent reloads the video named by event and indexes or removes it. A
// channel event refreshes every video of the channel, since documents carry
// the author's name and slug.
func (s *SearchSync) HandleEvent(ctx context.Context, event *infraKafka.VideoEvent) error {
	if event.Type == infraKafka.EventChannelUpdated {
		return s.syncChannel(ctx, event.ChannelID)
	}
	if err := s.syncVideo(ctx, event.VideoID); err != nil {
		return err
	}
	logger.Debug("Video synced", zap.String("video_id", event.VideoID), zap.String("event", string(event.Type)))
	return nil
}

func (s *SearchSync) syncChannel(ctx context.Context, channelID int64) error {
	ids, err := s.videos.ListIDsByAuthor(ctx, channelID)
	if err != nil {
		return fmt.Errorf("list videos of channel %d: %w", channelID, err)
	}
	for _, id := range ids {
		if err := s.syncVideo(ctx, id); err != nil {
			return err
		}
	}
	logger.Debug("Channel videos synced", zap.Int64("channel_id", channelID), zap.Int("videos", len(ids)))
	return nil
}

func (s *SearchSync) syncVideo(ctx context.Context, videoID string) error {
	video, err := s.videos.GetWithStats(ctx, videoID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return s.index.DeleteVideo(ctx, videoID)
		}
		return fmt.Errorf("load video %s: %w", videoID, err)
	}

	if !Searchable(video.Video()) {
		return s.index.DeleteVideo(ctx, video.ID)
	}
	return s.index.IndexVideo(ctx, ToVideoDoc(video))
}
