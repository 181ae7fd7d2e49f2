package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"clipstream/internal/errcode"
	infraKafka "clipstream/internal/infra/kafka"
	"clipstream/internal/model"
	"clipstream/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CreateVideoInput describes a video that links to externally hosted media.
type CreateVideoInput struct {
	Name        string
	Description string
	Status      model.VideoStatus
	Link        string
}

// UpdateVideoInput holds optional metadata changes; nil fields are left alone.
type UpdateVideoInput struct {
	Name        *string
	Description *string
	Status      *model.VideoStatus
}

type VideoService struct {
	videos  VideoStore
	storage ObjectStorage
	events  EventPublisher
	policy  VisibilityPolicy
	bucket  string

	newID func() (string, error)
}

func NewVideoService(videos VideoStore, storage ObjectStorage, events EventPublisher, bucket string) *VideoService {
	return &VideoService{
		videos:  videos,
		storage: storage,
		events:  events,
		bucket:  bucket,
		newID:   randomVideoID,
	}
}

// Create stores a video without an upload; its media lives at Link.
func (s *VideoService) Create(ctx context.Context, caller Caller, in CreateVideoInput) (*model.Video, error) {
	if !caller.Authenticated() {
		return nil, errcode.AuthenticationMissing
	}
	link := strings.TrimSpace(in.Link)
	if link == "" {
		return nil, errcode.VideoLinkMissing
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, errcode.InvalidRequest.WithMessage("name is required")
	}
	status := in.Status
	if status == "" {
		status = model.VideoStatusPrivate
	}
	if !status.Valid() {
		return nil, errcode.InvalidRequest.WithMessage("invalid video status")
	}

	id, err := allocateVideoID(ctx, s.newID, s.videos)
	if err != nil {
		return nil, fmt.Errorf("allocate video id: %w", err)
	}

	video := &model.Video{
		ID:          id,
		AuthorID:    caller.ChannelID,
		Name:        name,
		Description: in.Description,
		Status:      status,
		Link:        link,
		UploadState: model.UploadStateNone,
	}
	if err := s.videos.Create(ctx, video); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || errors.Is(err, gorm.ErrForeignKeyViolated) {
			return nil, errcode.VideoNotFound
		}
		return nil, err
	}

	publishEvent(ctx, s.events, infraKafka.EventVideoCreated, id)
	return video, nil
}

// Detail returns an annotated video the caller is allowed to see.
func (s *VideoService) Detail(ctx context.Context, caller Caller, id string) (*model.VideoWithStats, error) {
	video, err := s.videos.GetWithStats(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errcode.VideoNotFound
		}
		return nil, err
	}
	if err := s.policy.CheckAccess(caller, video.Video()); err != nil {
		return nil, err
	}
	return video, nil
}

// owned loads a video the caller may modify: its owner or staff.
func (s *VideoService) owned(ctx context.Context, caller Caller, id string) (*model.Video, error) {
	if !caller.Authenticated() {
		return nil, errcode.AuthenticationMissing
	}
	video, err := s.videos.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errcode.VideoNotFound
		}
		return nil, err
	}
	if !caller.Owns(video) && !caller.IsStaff {
		return nil, errcode.NotVideoOwner
	}
	return video, nil
}

func (s *VideoService) Update(ctx context.Context, caller Caller, id string, in UpdateVideoInput) (*model.Video, error) {
	video, err := s.owned(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, errcode.InvalidRequest.WithMessage("name must not be empty")
		}
		updates["name"] = name
	}
	if in.Description != nil {
		updates["description"] = *in.Description
	}
	if in.Status != nil {
		if !in.Status.Valid() {
			return nil, errcode.InvalidRequest.WithMessage("invalid video status")
		}
		updates["status"] = *in.Status
	}
	if len(updates) == 0 {
		return video, nil
	}

	updated, err := s.videos.Update(ctx, id, updates)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errcode.VideoNotFound
		}
		return nil, err
	}

	publishEvent(ctx, s.events, infraKafka.EventVideoUpdated, id)
	return updated, nil
}

// Delete removes a video and, best effort, its stored object. Videos still
// uploading must be aborted instead.
func (s *VideoService) Delete(ctx context.Context, caller Caller, id string) error {
	video, err := s.owned(ctx, caller, id)
	if err != nil {
		return err
	}
	if video.UploadState == model.UploadStateUploading {
		return errcode.VideoUploading
	}

	deleted, err := s.videos.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return errcode.VideoNotFound
	}

	if video.StorageKey != "" && s.storage != nil {
		if err := s.storage.RemoveObject(ctx, s.bucket, video.StorageKey); err != nil {
			logger.Warn("Failed to remove video object",
				zap.String("video_id", id),
				zap.String("key", video.StorageKey),
				zap.Error(err),
			)
		}
	}

	publishEvent(ctx, s.events, infraKafka.EventVideoDeleted, id)
	return nil
}
