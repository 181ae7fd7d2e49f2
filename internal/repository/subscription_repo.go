package repository

import (
	"context"

	"clipstream/internal/model"

	"gorm.io/gorm"
)

type SubscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// Create inserts the pair; an existing pair surfaces as gorm.ErrDuplicatedKey.
func (r *SubscriptionRepository) Create(ctx context.Context, subscriberID, subscribedToID int64) (*model.SubscriptionItem, error) {
	item := &model.SubscriptionItem{SubscriberID: subscriberID, SubscribedToID: subscribedToID}
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

func (r *SubscriptionRepository) Delete(ctx context.Context, subscriberID, subscribedToID int64) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("subscriber_id = ? AND subscribed_to_id = ?", subscriberID, subscribedToID).
		Delete(&model.SubscriptionItem{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *SubscriptionRepository) Exists(ctx context.Context, subscriberID, subscribedToID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.SubscriptionItem{}).
		Where("subscriber_id = ? AND subscribed_to_id = ?", subscriberID, subscribedToID).
		Count(&count).Error
	return count > 0, err
}

// ListSubscribedChannels returns the channels subscriberID follows, newest first.
func (r *SubscriptionRepository) ListSubscribedChannels(ctx context.Context, subscriberID int64, skip, limit int) ([]model.ChannelWithStats, int64, error) {
	base := r.db.WithContext(ctx).Model(&model.SubscriptionItem{}).Where("subscriber_id = ?", subscriberID)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var channels []model.ChannelWithStats
	err := r.db.WithContext(ctx).
		Table("channels").
		Select("channels.*, (?) AS subs_count", subsCountByChannel(r.db)).
		Joins("JOIN subscription_items s ON s.subscribed_to_id = channels.id").
		Where("s.subscriber_id = ?", subscriberID).
		Order("s.created_at DESC").
		Offset(skip).Limit(limit).
		Scan(&channels).Error
	if err != nil {
		return nil, 0, err
	}
	return channels, total, nil
}
