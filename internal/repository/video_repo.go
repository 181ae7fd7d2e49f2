package repository

import (
	"context"

	"clipstream/internal/model"

	"gorm.io/gorm"
)

type VideoRepository struct {
	db *gorm.DB
}

func NewVideoRepository(db *gorm.DB) *VideoRepository {
	return &VideoRepository{db: db}
}

func (r *VideoRepository) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Video{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func (r *VideoRepository) Create(ctx context.Context, video *model.Video) error {
	return r.db.WithContext(ctx).Create(video).Error
}

func (r *VideoRepository) GetByID(ctx context.Context, id string) (*model.Video, error) {
	var video model.Video
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&video).Error; err != nil {
		return nil, err
	}
	return &video, nil
}

// GetWithStats loads one video with author fields and engagement counts.
func (r *VideoRepository) GetWithStats(ctx context.Context, id string) (*model.VideoWithStats, error) {
	var out model.VideoWithStats
	err := annotatedVideos(r.db.WithContext(ctx)).
		Where("videos.id = ?", id).
		Take(&out).Error
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListIDsByAuthor returns the ids of every video of one channel.
func (r *VideoRepository) ListIDsByAuthor(ctx context.Context, authorID int64) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&model.Video{}).
		Where("author_id = ?", authorID).
		Order("id").
		Pluck("id", &ids).Error
	return ids, err
}

func (r *VideoRepository) Update(ctx context.Context, id string, updates map[string]interface{}) (*model.Video, error) {
	if len(updates) > 0 {
		result := r.db.WithContext(ctx).Model(&model.Video{}).Where("id = ?", id).Updates(updates)
		if result.Error != nil {
			return nil, result.Error
		}
		if result.RowsAffected == 0 {
			return nil, gorm.ErrRecordNotFound
		}
	}
	return r.GetByID(ctx, id)
}

// Delete removes the video; likes, views, comments and sessions cascade.
func (r *VideoRepository) Delete(ctx context.Context, id string) (bool, error) {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Video{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
