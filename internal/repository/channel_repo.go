package repository

import (
	"context"

	"clipstream/internal/model"

	"gorm.io/gorm"
)

type ChannelRepository struct {
	db *gorm.DB
}

func NewChannelRepository(db *gorm.DB) *ChannelRepository {
	return &ChannelRepository{db: db}
}

func (r *ChannelRepository) GetByID(ctx context.Context, id int64) (*model.Channel, error) {
	var ch model.Channel
	if err := r.db.WithContext(ctx).First(&ch, id).Error; err != nil {
		return nil, err
	}
	return &ch, nil
}

func (r *ChannelRepository) GetBySlug(ctx context.Context, slug string) (*model.Channel, error) {
	var ch model.Channel
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&ch).Error; err != nil {
		return nil, err
	}
	return &ch, nil
}

// GetDetailBySlug loads a channel with its subscriber count.
func (r *ChannelRepository) GetDetailBySlug(ctx context.Context, slug string) (*model.ChannelWithStats, error) {
	var out model.ChannelWithStats
	err := r.db.WithContext(ctx).
		Table("channels").
		Select("channels.*, (?) AS subs_count", subsCountByChannel(r.db)).
		Where("channels.slug = ?", slug).
		Take(&out).Error
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Update applies non-empty fields and returns the fresh row.
func (r *ChannelRepository) Update(ctx context.Context, id int64, updates map[string]interface{}) (*model.Channel, error) {
	if len(updates) > 0 {
		result := r.db.WithContext(ctx).Model(&model.Channel{}).Where("id = ?", id).Updates(updates)
		if result.Error != nil {
			return nil, result.Error
		}
		if result.RowsAffected == 0 {
			return nil, gorm.ErrRecordNotFound
		}
	}
	return r.GetByID(ctx, id)
}
