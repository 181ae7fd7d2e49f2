package repository

import (
	"context"
	"time"

	"clipstream/internal/model"

	"gorm.io/gorm"
)

type UploadRepository struct {
	db *gorm.DB
}

func NewUploadRepository(db *gorm.DB) *UploadRepository {
	return &UploadRepository{db: db}
}

// CreateVideoWithSession inserts the UPLOADING video and its session in one transaction.
func (r *UploadRepository) CreateVideoWithSession(ctx context.Context, video *model.Video, session *model.UploadSession) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(video).Error; err != nil {
			return err
		}
		return tx.Create(session).Error
	})
}

// GetSession returns the session in any state.
func (r *UploadRepository) GetSession(ctx context.Context, videoID, uploadID string) (*model.UploadSession, error) {
	var s model.UploadSession
	err := r.db.WithContext(ctx).
		Where("video_id = ? AND upload_id = ?", videoID, uploadID).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ClaimSession moves an active session into state `to`. Only one caller can
// win the claim; the others see false.
func (r *UploadRepository) ClaimSession(ctx context.Context, videoID, uploadID string, to model.UploadSessionState) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.UploadSession{}).
		Where("video_id = ? AND upload_id = ? AND state = ?", videoID, uploadID, model.UploadSessionActive).
		Update("state", to)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ReleaseSession returns a claimed session to active so the client can retry.
func (r *UploadRepository) ReleaseSession(ctx context.Context, videoID, uploadID string, from model.UploadSessionState) error {
	return r.db.WithContext(ctx).Model(&model.UploadSession{}).
		Where("video_id = ? AND upload_id = ? AND state = ?", videoID, uploadID, from).
		Update("state", model.UploadSessionActive).Error
}

// FinishCompleted consumes a completing session and marks the video READY.
func (r *UploadRepository) FinishCompleted(ctx context.Context, videoID, uploadID string) (*model.Video, error) {
	var video model.Video
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("video_id = ? AND upload_id = ? AND state = ?", videoID, uploadID, model.UploadSessionCompleting).
			Delete(&model.UploadSession{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		if err := tx.Model(&model.Video{}).Where("id = ?", videoID).
			Update("upload_state", model.UploadStateReady).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", videoID).First(&video).Error
	})
	if err != nil {
		return nil, err
	}
	return &video, nil
}

// FinishAborted consumes an aborting session, deletes its video and leaves
// an AbortedUpload record behind.
func (r *UploadRepository) FinishAborted(ctx context.Context, videoID, uploadID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("video_id = ? AND upload_id = ? AND state = ?", videoID, uploadID, model.UploadSessionAborting).
			Delete(&model.UploadSession{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		if err := tx.Create(&model.AbortedUpload{
			VideoID:   videoID,
			UploadID:  uploadID,
			AbortedAt: time.Now().UTC(),
		}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", videoID).Delete(&model.Video{}).Error
	})
}

// WasAborted reports whether an upload for the video was aborted.
func (r *UploadRepository) WasAborted(ctx context.Context, videoID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.AbortedUpload{}).
		Where("video_id = ?", videoID).
		Count(&count).Error
	return count > 0, err
}

// PurgeAborted forgets aborted uploads older than before.
func (r *UploadRepository) PurgeAborted(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("aborted_at < ?", before).Delete(&model.AbortedUpload{})
	return result.RowsAffected, result.Error
}

// ListExpired returns active sessions whose expiry is before now, oldest first.
func (r *UploadRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]model.UploadSession, error) {
	var sessions []model.UploadSession
	err := r.db.WithContext(ctx).
		Where("state = ? AND expires_at < ?", model.UploadSessionActive, now).
		Order("expires_at ASC").
		Limit(limit).
		Find(&sessions).Error
	return sessions, err
}

// ReleaseStaleClaims reopens claims left behind by a process that died
// between claiming and finishing.
func (r *UploadRepository) ReleaseStaleClaims(ctx context.Context, olderThan time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&model.UploadSession{}).
		Where("state <> ? AND updated_at < ?", model.UploadSessionActive, olderThan).
		Update("state", model.UploadSessionActive)
	return result.RowsAffected, result.Error
}
