package repository

import (
	"context"
	"strconv"
	"time"

	"clipstream/internal/model"

	"gorm.io/gorm"
)

type ViewRepository struct {
	db *gorm.DB
}

func NewViewRepository(db *gorm.DB) *ViewRepository {
	return &ViewRepository{db: db}
}

// identityKey names the advisory lock that serializes registrations for one
// (video, viewer) pair.
func identityKey(v *model.VideoView) string {
	if v.ChannelID != nil {
		return "view:" + v.VideoID + ":c:" + strconv.FormatInt(*v.ChannelID, 10)
	}
	return "view:" + v.VideoID + ":ip:" + v.IPAddress
}

// RegisterIfFresh inserts view unless the same viewer already has a view of
// the video newer than since. The check and the insert run under a
// transaction-scoped advisory lock so concurrent registrations cannot both pass.
func (r *ViewRepository) RegisterIfFresh(ctx context.Context, view *model.VideoView, since time.Time) (bool, error) {
	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", identityKey(view)).Error; err != nil {
			return err
		}

		q := tx.Model(&model.VideoView{}).Where("video_id = ? AND created_at > ?", view.VideoID, since)
		if view.ChannelID != nil {
			q = q.Where("channel_id = ?", *view.ChannelID)
		} else {
			q = q.Where("channel_id IS NULL AND ip_address = ?", view.IPAddress)
		}

		var count int64
		if err := q.Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		if err := tx.Create(view).Error; err != nil {
			return err
		}
		created = true
		return nil
	})
	return created, err
}
