package repository

import (
	"context"
	"time"

	"clipstream/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LikeRepository struct {
	db *gorm.DB
}

func NewLikeRepository(db *gorm.DB) *LikeRepository {
	return &LikeRepository{db: db}
}

// Upsert records the latest like/dislike for (channel, video). Concurrent
// callers converge on the unique index instead of inserting duplicates.
func (r *LikeRepository) Upsert(ctx context.Context, channelID int64, videoID string, isLike bool) (*model.VideoLike, error) {
	like := &model.VideoLike{ChannelID: channelID, VideoID: videoID, IsLike: isLike}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "channel_id"}, {Name: "video_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"is_like": isLike, "updated_at": time.Now().UTC()}),
	}).Create(like).Error
	if err != nil {
		return nil, err
	}
	return like, nil
}

func (r *LikeRepository) Delete(ctx context.Context, channelID int64, videoID string) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("channel_id = ? AND video_id = ?", channelID, videoID).
		Delete(&model.VideoLike{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
