package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"clipstream/internal/errcode"
	"clipstream/internal/model"
	"clipstream/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// EngagementService records likes and views.
type EngagementService struct {
	videos VideoStore
	likes  LikeStore
	views  ViewStore
	gate   ViewGate
	policy VisibilityPolicy
	window time.Duration
	now    func() time.Time
}

// NewEngagementService wires the engagement writes. gate may be nil.
func NewEngagementService(videos VideoStore, likes LikeStore, views ViewStore, gate ViewGate, window time.Duration) *EngagementService {
	if window <= 0 {
		window = 24 * time.Hour
	}
	return &EngagementService{
		videos: videos,
		likes:  likes,
		views:  views,
		gate:   gate,
		window: window,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// visibleVideo loads a video and applies the visibility policy for caller.
func (s *EngagementService) visibleVideo(ctx context.Context, caller Caller, videoID string) (*model.Video, error) {
	video, err := s.videos.GetByID(ctx, videoID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errcode.VideoNotFound
		}
		return nil, err
	}
	if err := s.policy.CheckAccess(caller, video); err != nil {
		return nil, err
	}
	return video, nil
}

// Like stores a like or dislike. Repeating it overwrites the previous value.
func (s *EngagementService) Like(ctx context.Context, caller Caller, videoID string, isLike bool) (*model.VideoLike, error) {
	if _, err := s.visibleVideo(ctx, caller, videoID); err != nil {
		return nil, err
	}
	if !caller.Authenticated() {
		return nil, errcode.AuthenticationMissing
	}
	like, err := s.likes.Upsert(ctx, caller.ChannelID, videoID, isLike)
	if err != nil {
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			return nil, errcode.VideoNotFound
		}
		return nil, err
	}
	return like, nil
}

// Unlike removes the caller's like or dislike.
func (s *EngagementService) Unlike(ctx context.Context, caller Caller, videoID string) error {
	if !caller.Authenticated() {
		return errcode.AuthenticationMissing
	}
	deleted, err := s.likes.Delete(ctx, caller.ChannelID, videoID)
	if err != nil {
		return err
	}
	if !deleted {
		return errcode.LikeNotFound
	}
	return nil
}

func viewIdentity(caller Caller, ip string) string {
	if caller.Authenticated() {
		return "c:" + strconv.FormatInt(caller.ChannelID, 10)
	}
	return "ip:" + ip
}

// RegisterView counts a view unless the same viewer already has one inside
// the dedup window. Viewers are identified by channel when signed in, by IP
// otherwise.
func (s *EngagementService) RegisterView(ctx context.Context, caller Caller, videoID, ip string) error {
	if _, err := s.visibleVideo(ctx, caller, videoID); err != nil {
		return err
	}

	identity := viewIdentity(caller, ip)
	gated := false
	if s.gate != nil {
		fresh, err := s.gate.Acquire(ctx, videoID, identity)
		switch {
		case err != nil:
			logger.Warn("View gate unavailable", zap.String("video_id", videoID), zap.Error(err))
		case !fresh:
			return errcode.ViewExists
		default:
			gated = true
		}
	}

	now := s.now()
	view := &model.VideoView{VideoID: videoID, IPAddress: ip, CreatedAt: now}
	if caller.Authenticated() {
		channelID := caller.ChannelID
		view.ChannelID = &channelID
	}

	created, err := s.views.RegisterIfFresh(ctx, view, now.Add(-s.window))
	if err != nil {
		if gated {
			s.releaseGate(ctx, videoID, identity)
		}
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			return errcode.VideoNotFound
		}
		return err
	}
	if !created {
		// the existing row decides when the window ends, not a fresh gate key
		if gated {
			s.releaseGate(ctx, videoID, identity)
		}
		return errcode.ViewExists
	}
	return nil
}

func (s *EngagementService) releaseGate(ctx context.Context, videoID, identity string) {
	if err := s.gate.Release(context.WithoutCancel(ctx), videoID, identity); err != nil {
		logger.Warn("Failed to release view gate", zap.String("video_id", videoID), zap.Error(err))
	}
}
