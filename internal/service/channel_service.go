package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"clipstream/internal/errcode"
	infraKafka "clipstream/internal/infra/kafka"
	"clipstream/internal/model"
	"clipstream/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var acceptedAvatarExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// ChannelDetail is a channel with its signed avatar URL, if any.
type ChannelDetail struct {
	Channel   *model.ChannelWithStats
	AvatarURL string
}

// ChannelUpdate holds optional profile changes; nil fields are left alone.
type ChannelUpdate struct {
	Name        *string
	Description *string
}

// AvatarUpload is a presigned PUT target for a new avatar.
type AvatarUpload struct {
	URL string
	Key string
}

type ChannelService struct {
	channels  ChannelStore
	storage   ObjectStorage
	events    EventPublisher
	bucket    string
	avatarTTL time.Duration
}

func NewChannelService(channels ChannelStore, storage ObjectStorage, events EventPublisher, avatarBucket string, avatarTTL time.Duration) *ChannelService {
	if avatarTTL <= 0 {
		avatarTTL = 120 * time.Second
	}
	return &ChannelService{
		channels:  channels,
		storage:   storage,
		events:    events,
		bucket:    avatarBucket,
		avatarTTL: avatarTTL,
	}
}

func (s *ChannelService) Detail(ctx context.Context, slug string) (*ChannelDetail, error) {
	ch, err := s.channels.GetDetailBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errcode.ChannelNotFound
		}
		return nil, err
	}

	detail := &ChannelDetail{Channel: ch}
	if ch.AvatarKey != "" {
		u, err := s.storage.SignGetURL(ctx, s.bucket, ch.AvatarKey, s.avatarTTL)
		if err != nil {
			logger.Warn("Failed to sign avatar url", zap.String("slug", slug), zap.Error(err))
		} else {
			detail.AvatarURL = u
		}
	}
	return detail, nil
}

// UpdateMe edits the caller's own channel profile.
func (s *ChannelService) UpdateMe(ctx context.Context, caller Caller, in ChannelUpdate) (*model.Channel, error) {
	if !caller.Authenticated() {
		return nil, errcode.AuthenticationMissing
	}

	updates := map[string]interface{}{}
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
	if len(updates) == 0 {
		return s.ownChannel(ctx, caller)
	}

	ch, err := s.channels.Update(ctx, caller.ChannelID, updates)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errcode.ChannelNotFound
		}
		return nil, err
	}
	if _, renamed := updates["name"]; renamed {
		publishChannelEvent(ctx, s.events, infraKafka.EventChannelUpdated, ch.ID)
	}
	return ch, nil
}

// AvatarUploadURL presigns a PUT for a new avatar and records its key on the
// caller's channel.
func (s *ChannelService) AvatarUploadURL(ctx context.Context, caller Caller, filename string) (*AvatarUpload, error) {
	if !caller.Authenticated() {
		return nil, errcode.AuthenticationMissing
	}
	base := uploadBaseName(filename)
	if base == "" {
		return nil, errcode.FilenameMissing
	}
	ext := strings.ToLower(path.Ext(base))
	if !acceptedAvatarExtensions[ext] {
		return nil, errcode.AvatarFormatError
	}

	ch, err := s.ownChannel(ctx, caller)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("avatars/%s/%s%s", ch.Slug, uuid.NewString(), ext)
	u, err := s.storage.SignPutURL(ctx, s.bucket, key, s.avatarTTL)
	if err != nil {
		return nil, err
	}
	if _, err := s.channels.Update(ctx, ch.ID, map[string]interface{}{"avatar_key": key}); err != nil {
		return nil, err
	}
	return &AvatarUpload{URL: u, Key: key}, nil
}

func (s *ChannelService) ownChannel(ctx context.Context, caller Caller) (*model.Channel, error) {
	ch, err := s.channels.GetByID(ctx, caller.ChannelID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errcode.ChannelNotFound
		}
		return nil, err
	}
	return ch, nil
}
