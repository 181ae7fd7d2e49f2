package dto

import (
	"time"

	"clipstream/internal/model"
)

// UploadCreateRequest opens a multipart upload.
type UploadCreateRequest struct {
	Filename    string `json:"filename"`
	Name        string `json:"name" binding:"omitempty,max=100"`
	Description string `json:"description"`
	Status      string `json:"status" binding:"omitempty,oneof=PRIVATE UNLISTED PUBLIC"`
}

type UploadCreateData struct {
	VideoID  string `json:"videoId"`
	UploadID string `json:"uploadId"`
}

type UploadPartURLRequest struct {
	VideoID    string `json:"videoId" binding:"required"`
	UploadID   string `json:"uploadId" binding:"required"`
	PartNumber int    `json:"partNumber"`
}

type UploadPart struct {
	PartNumber int    `json:"partNumber"`
	ETag       string `json:"eTag"`
}

type UploadCompleteRequest struct {
	VideoID  string       `json:"videoId" binding:"required"`
	UploadID string       `json:"uploadId" binding:"required"`
	Parts    []UploadPart `json:"parts"`
}

type UploadAbortRequest struct {
	VideoID  string `json:"videoId" binding:"required"`
	UploadID string `json:"uploadId" binding:"required"`
}

type DownloadURLRequest struct {
	VideoID string `json:"videoId" binding:"required"`
}

// URLData wraps a single presigned URL.
type URLData struct {
	URL string `json:"url"`
}

// VideoCreateRequest creates a video that points at external media.
type VideoCreateRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=100"`
	Description string `json:"description"`
	Status      string `json:"status" binding:"omitempty,oneof=PRIVATE UNLISTED PUBLIC"`
	Link        string `json:"link" binding:"omitempty,max=500"`
}

type VideoUpdateRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=100"`
	Description *string `json:"description"`
	Status      *string `json:"status" binding:"omitempty,oneof=PRIVATE UNLISTED PUBLIC"`
}

// VideoInfo is a plain video resource.
type VideoInfo struct {
	ID          string    `json:"id"`
	AuthorID    int64     `json:"author_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	Link        string    `json:"link"`
	UploadState string    `json:"upload_state"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// VideoDetail is a video with author and engagement counts.
type VideoDetail struct {
	VideoInfo
	AuthorName    string `json:"author_name"`
	AuthorSlug    string `json:"author_slug"`
	LikesCount    int64  `json:"likes_count"`
	DislikesCount int64  `json:"dislikes_count"`
	ViewsCount    int64  `json:"views_count"`
	CommentsCount int64  `json:"comments_count"`
	SubsCount     int64  `json:"subs_count"`
}

func NewVideoInfo(v *model.Video) VideoInfo {
	return VideoInfo{
		ID:          v.ID,
		AuthorID:    v.AuthorID,
		Name:        v.Name,
		Description: v.Description,
		Status:      string(v.Status),
		Link:        v.Link,
		UploadState: string(v.UploadState),
		CreatedAt:   v.CreatedAt,
		UpdatedAt:   v.UpdatedAt,
	}
}

func NewVideoDetail(v *model.VideoWithStats) VideoDetail {
	return VideoDetail{
		VideoInfo:     NewVideoInfo(v.Video()),
		AuthorName:    v.AuthorName,
		AuthorSlug:    v.AuthorSlug,
		LikesCount:    v.LikesCount,
		DislikesCount: v.DislikesCount,
		ViewsCount:    v.ViewsCount,
		CommentsCount: v.CommentsCount,
		SubsCount:     v.SubsCount,
	}
}

// LikeRequest defaults to a like when is_like is omitted.
type LikeRequest struct {
	IsLike *bool `json:"is_like"`
}

type LikeData struct {
	Status string `json:"status"`
	IsLike bool   `json:"is_like"`
}

// FeedData is one page of a listing. Next is the cursor for the following
// page and is null on the last one.
type FeedData struct {
	Results   []VideoDetail `json:"results"`
	Next      *string       `json:"next"`
	NoResults bool          `json:"no_results"`
}

func NewFeedData(rows []model.VideoWithStats, next string, noResults bool) FeedData {
	results := make([]VideoDetail, 0, len(rows))
	for i := range rows {
		results = append(results, NewVideoDetail(&rows[i]))
	}
	data := FeedData{Results: results, NoResults: noResults}
	if next != "" {
		data.Next = &next
	}
	return data
}
