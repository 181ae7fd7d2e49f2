package model

import "time"

type UploadSessionState string

const (
	UploadSessionActive     UploadSessionState = "active"
	UploadSessionCompleting UploadSessionState = "completing"
	UploadSessionAborting   UploadSessionState = "aborting"
)

// UploadSession tracks one in-flight multipart upload. The row exists only
// while the upload is open; completing or aborting deletes it.
type UploadSession struct {
	VideoID   string             `gorm:"primaryKey;size:11" json:"video_id"`
	UploadID  string             `gorm:"primaryKey;size:255" json:"upload_id"`
	State     UploadSessionState `gorm:"size:16;not null;default:'active'" json:"state"`
	CreatedAt time.Time          `gorm:"autoCreateTime;index:idx_upload_sessions_created_at" json:"created_at"`
	ExpiresAt time.Time          `gorm:"not null;index:idx_upload_sessions_expires_at" json:"expires_at"`
	UpdatedAt time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
}

func (UploadSession) TableName() string {
	return "upload_sessions"
}

// AbortedUpload outlives the video an abort deleted, so later calls on the
// same upload still resolve to the upload rather than an unknown video.
type AbortedUpload struct {
	VideoID   string    `gorm:"primaryKey;size:11" json:"video_id"`
	UploadID  string    `gorm:"primaryKey;size:255" json:"upload_id"`
	AbortedAt time.Time `gorm:"not null;index:idx_aborted_uploads_aborted_at" json:"aborted_at"`
}

func (AbortedUpload) TableName() string {
	return "aborted_uploads"
}
