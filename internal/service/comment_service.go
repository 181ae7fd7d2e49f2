package service

import (
	"context"
	"errors"
	"strings"

	"clipstream/internal/errcode"
	"clipstream/internal/model"

	"gorm.io/gorm"
)

type CommentService struct {
	comments CommentStore
	videos   VideoStore
	policy   VisibilityPolicy
}

func NewCommentService(comments CommentStore, videos VideoStore) *CommentService {
	return &CommentService{comments: comments, videos: videos}
}

func (s *CommentService) visibleVideo(ctx context.Context, caller Caller, videoID string) (*model.Video, error) {
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

// Create posts a comment on a video the caller can see.
func (s *CommentService) Create(ctx context.Context, caller Caller, videoID, content string) (*model.VideoComment, error) {
	if _, err := s.visibleVideo(ctx, caller, videoID); err != nil {
		return nil, err
	}
	if !caller.Authenticated() {
		return nil, errcode.AuthenticationMissing
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errcode.InvalidRequest.WithMessage("content must not be empty")
	}

	comment := &model.VideoComment{VideoID: videoID, AuthorID: caller.ChannelID, Content: content}
	if err := s.comments.Create(ctx, comment); err != nil {
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			return nil, errcode.VideoNotFound
		}
		return nil, err
	}
	return s.comments.GetByID(ctx, comment.ID)
}

// List pages through a video's comments, newest first.
func (s *CommentService) List(ctx context.Context, caller Caller, videoID string, skip, limit int) ([]model.VideoComment, int64, error) {
	if _, err := s.visibleVideo(ctx, caller, videoID); err != nil {
		return nil, 0, err
	}
	return s.comments.ListByVideo(ctx, videoID, skip, limit)
}

// Delete removes a comment. The comment author, the video owner and staff
// may delete it.
func (s *CommentService) Delete(ctx context.Context, caller Caller, commentID int64) error {
	if !caller.Authenticated() {
		return errcode.AuthenticationMissing
	}
	comment, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errcode.CommentNotFound
		}
		return err
	}

	if comment.AuthorID != caller.ChannelID && !caller.IsStaff {
		video, err := s.videos.GetByID(ctx, comment.VideoID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if video == nil || !caller.Owns(video) {
			return errcode.NotCommentOwner
		}
	}

	deleted, err := s.comments.Delete(ctx, commentID)
	if err != nil {
		return err
	}
	if !deleted {
		return errcode.CommentNotFound
	}
	return nil
}
