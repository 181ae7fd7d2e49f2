package service

import (
	"context"
	"time"

	infraKafka "clipstream/internal/infra/kafka"
	infraMinio "clipstream/internal/infra/minio"
	"clipstream/internal/model"
	"clipstream/internal/repository"
)

// ObjectStorage is the slice of the blob store the services use.
type ObjectStorage interface {
	CreateMultipartUpload(ctx context.Context, bucket, key, contentType string) (string, error)
	SignPartURL(ctx context.Context, bucket, key, uploadID string, partNumber int, ttl time.Duration) (string, error)
	CompleteMultipartUpload(ctx context.Context, bucket, key, uploadID string, parts []infraMinio.Part) (*infraMinio.ObjectRef, error)
	AbortMultipartUpload(ctx context.Context, bucket, key, uploadID string) error
	SignGetURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
	SignPutURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
	RemoveObject(ctx context.Context, bucket, key string) error
}

type VideoStore interface {
	Exists(ctx context.Context, id string) (bool, error)
	Create(ctx context.Context, video *model.Video) error
	GetByID(ctx context.Context, id string) (*model.Video, error)
	GetWithStats(ctx context.Context, id string) (*model.VideoWithStats, error)
	ListIDsByAuthor(ctx context.Context, authorID int64) ([]string, error)
	Update(ctx context.Context, id string, updates map[string]interface{}) (*model.Video, error)
	Delete(ctx context.Context, id string) (bool, error)
}

type UploadStore interface {
	CreateVideoWithSession(ctx context.Context, video *model.Video, session *model.UploadSession) error
	GetSession(ctx context.Context, videoID, uploadID string) (*model.UploadSession, error)
	ClaimSession(ctx context.Context, videoID, uploadID string, to model.UploadSessionState) (bool, error)
	ReleaseSession(ctx context.Context, videoID, uploadID string, from model.UploadSessionState) error
	FinishCompleted(ctx context.Context, videoID, uploadID string) (*model.Video, error)
	FinishAborted(ctx context.Context, videoID, uploadID string) error
	WasAborted(ctx context.Context, videoID string) (bool, error)
	PurgeAborted(ctx context.Context, before time.Time) (int64, error)
	ListExpired(ctx context.Context, now time.Time, limit int) ([]model.UploadSession, error)
	ReleaseStaleClaims(ctx context.Context, olderThan time.Time) (int64, error)
}

type LikeStore interface {
	Upsert(ctx context.Context, channelID int64, videoID string, isLike bool) (*model.VideoLike, error)
	Delete(ctx context.Context, channelID int64, videoID string) (bool, error)
}

type ViewStore interface {
	RegisterIfFresh(ctx context.Context, view *model.VideoView, since time.Time) (bool, error)
}

// ViewGate is an optional fast-path dedup marker in front of ViewStore.
type ViewGate interface {
	Acquire(ctx context.Context, videoID, identity string) (bool, error)
	Release(ctx context.Context, videoID, identity string) error
}

type FeedStore interface {
	List(ctx context.Context, q repository.FeedQuery) ([]model.VideoWithStats, error)
}

// SearchIndex resolves a search term to candidate video ids.
type SearchIndex interface {
	SearchVideoIDs(ctx context.Context, term string, limit int) ([]string, error)
}

type ChannelStore interface {
	GetByID(ctx context.Context, id int64) (*model.Channel, error)
	GetBySlug(ctx context.Context, slug string) (*model.Channel, error)
	GetDetailBySlug(ctx context.Context, slug string) (*model.ChannelWithStats, error)
	Update(ctx context.Context, id int64, updates map[string]interface{}) (*model.Channel, error)
}

type SubscriptionStore interface {
	Create(ctx context.Context, subscriberID, subscribedToID int64) (*model.SubscriptionItem, error)
	Delete(ctx context.Context, subscriberID, subscribedToID int64) (bool, error)
	ListSubscribedChannels(ctx context.Context, subscriberID int64, skip, limit int) ([]model.ChannelWithStats, int64, error)
}

type CommentStore interface {
	Create(ctx context.Context, comment *model.VideoComment) error
	GetByID(ctx context.Context, id int64) (*model.VideoComment, error)
	Delete(ctx context.Context, id int64) (bool, error)
	ListByVideo(ctx context.Context, videoID string, skip, limit int) ([]model.VideoComment, int64, error)
}

type UserStore interface {
	CreateWithChannel(ctx context.Context, user *model.User, channel *model.Channel) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
}

// EventPublisher emits video lifecycle events.
type EventPublisher interface {
	Publish(ctx context.Context, event *infraKafka.VideoEvent) error
}
