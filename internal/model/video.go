package model

import "time"

type VideoStatus string

const (
	VideoStatusPrivate  VideoStatus = "PRIVATE"
	VideoStatusUnlisted VideoStatus = "UNLISTED"
	VideoStatusPublic   VideoStatus = "PUBLIC"
)

// Valid reports whether s is a known status.
func (s VideoStatus) Valid() bool {
	switch s {
	case VideoStatusPrivate, VideoStatusUnlisted, VideoStatusPublic:
		return true
	}
	return false
}

type UploadState string

const (
	UploadStateNone      UploadState = "NONE"
	UploadStateUploading UploadState = "UPLOADING"
	UploadStateReady     UploadState = "READY"
)

// VideoIDLength is the length of the opaque public video id.
const VideoIDLength = 11

// Video is keyed by an opaque random id rather than a sequence so ids are not enumerable.
type Video struct {
	ID          string      `gorm:"primaryKey;size:11" json:"id"`
	AuthorID    int64       `gorm:"not null;index:idx_videos_author_created,priority:1" json:"author_id"`
	Name        string      `gorm:"size:100;not null" json:"name"`
	Description string      `gorm:"type:text" json:"description"`
	Status      VideoStatus `gorm:"size:10;not null;default:'PRIVATE';index:idx_videos_status_state,priority:1" json:"status"`
	Link        string      `gorm:"size:500" json:"link"`
	StorageKey  string      `gorm:"size:500" json:"-"`
	UploadState UploadState `gorm:"size:10;not null;default:'NONE';index:idx_videos_status_state,priority:2" json:"upload_state"`
	CreatedAt   time.Time   `gorm:"autoCreateTime;index:idx_videos_created_at;index:idx_videos_author_created,priority:2" json:"created_at"`
	UpdatedAt   time.Time   `gorm:"autoUpdateTime" json:"updated_at"`

	Author   Channel         `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"-"`
	Sessions []UploadSession `gorm:"foreignKey:VideoID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Video) TableName() string {
	return "videos"
}
