package model

import "time"

// VideoWithStats is a video row joined with its author and annotated with
// engagement counts. It is read-only; counts are computed per query.
type VideoWithStats struct {
	ID          string
	AuthorID    int64
	Name        string
	Description string
	Status      VideoStatus
	Link        string
	StorageKey  string
	UploadState UploadState
	CreatedAt   time.Time
	UpdatedAt   time.Time

	AuthorName    string
	AuthorSlug    string
	LikesCount    int64
	DislikesCount int64
	ViewsCount    int64
	CommentsCount int64
	SubsCount     int64
}

// Video returns the plain record portion.
func (v *VideoWithStats) Video() *Video {
	return &Video{
		ID:          v.ID,
		AuthorID:    v.AuthorID,
		Name:        v.Name,
		Description: v.Description,
		Status:      v.Status,
		Link:        v.Link,
		StorageKey:  v.StorageKey,
		UploadState: v.UploadState,
		CreatedAt:   v.CreatedAt,
		UpdatedAt:   v.UpdatedAt,
	}
}

// ChannelWithStats is a channel annotated with its subscriber count.
type ChannelWithStats struct {
	ID          int64
	UserID      int64
	Name        string
	Slug        string
	Description string
	AvatarKey   string
	CreatedAt   time.Time
	SubsCount   int64
}
