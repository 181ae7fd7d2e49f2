package service

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path"
	"strings"
	"time"

	"clipstream/internal/errcode"
	infraKafka "clipstream/internal/infra/kafka"
	infraMinio "clipstream/internal/infra/minio"
	"clipstream/internal/model"
	"clipstream/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	minPartNumber = 1
	maxPartNumber = 10000

	// claims older than this belonged to a process that died mid-call
	staleClaimAge = 10 * time.Minute
)

var acceptedVideoExtensions = map[string]bool{
	".mp4":  true,
	".avi":  true,
	".mov":  true,
	".mkv":  true,
	".flv":  true,
	".webm": true,
}

// UploadOptions configures an UploadCoordinator.
type UploadOptions struct {
	Bucket         string
	PartURLTTL     time.Duration
	DownloadURLTTL time.Duration
	SessionTTL     time.Duration
	ReapBatch      int
}

// CreateUploadInput is the metadata accompanying a new upload.
type CreateUploadInput struct {
	Filename    string
	Name        string
	Description string
	Status      model.VideoStatus
}

// UploadTicket identifies a freshly opened upload.
type UploadTicket struct {
	VideoID  string
	UploadID string
}

// UploadCoordinator runs the multipart upload lifecycle of a video:
// create, part URL issuance, then exactly one of complete or abort.
type UploadCoordinator struct {
	storage ObjectStorage
	uploads UploadStore
	videos  VideoStore
	events  EventPublisher
	policy  VisibilityPolicy
	opts    UploadOptions

	now   func() time.Time
	newID func() (string, error)
}

func NewUploadCoordinator(storage ObjectStorage, uploads UploadStore, videos VideoStore, events EventPublisher, opts UploadOptions) (*UploadCoordinator, error) {
	if storage == nil {
		return nil, errors.New("upload coordinator: storage is required")
	}
	if uploads == nil {
		return nil, errors.New("upload coordinator: upload store is required")
	}
	if videos == nil {
		return nil, errors.New("upload coordinator: video store is required")
	}
	if opts.Bucket == "" {
		return nil, errors.New("upload coordinator: bucket is required")
	}
	if opts.PartURLTTL <= 0 {
		opts.PartURLTTL = 120 * time.Second
	}
	if opts.DownloadURLTTL <= 0 {
		opts.DownloadURLTTL = time.Hour
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 24 * time.Hour
	}
	if opts.ReapBatch <= 0 {
		opts.ReapBatch = 100
	}
	return &UploadCoordinator{
		storage: storage,
		uploads: uploads,
		videos:  videos,
		events:  events,
		opts:    opts,
		now:     func() time.Time { return time.Now().UTC() },
		newID:   randomVideoID,
	}, nil
}

// uploadBaseName returns the final path element of a client filename, or ""
// when nothing usable remains.
func uploadBaseName(filename string) string {
	name := strings.TrimSpace(strings.ReplaceAll(filename, `\`, "/"))
	if name == "" {
		return ""
	}
	base := path.Base(name)
	if base == "." || base == "/" {
		return ""
	}
	return base
}

// ValidateVideoFilename returns the sanitized base name of filename.
func ValidateVideoFilename(filename string) (string, error) {
	base := uploadBaseName(filename)
	if base == "" {
		return "", errcode.FilenameMissing
	}
	if !acceptedVideoExtensions[strings.ToLower(path.Ext(base))] {
		return "", errcode.FilenameFormatError
	}
	return base, nil
}

// CreateUpload opens a multipart upload and records an UPLOADING video for it.
func (s *UploadCoordinator) CreateUpload(ctx context.Context, caller Caller, in CreateUploadInput) (*UploadTicket, error) {
	if !caller.Authenticated() {
		return nil, errcode.AuthenticationMissing
	}
	base, err := ValidateVideoFilename(in.Filename)
	if err != nil {
		return nil, err
	}

	status := in.Status
	if status == "" {
		status = model.VideoStatusPrivate
	}
	if !status.Valid() {
		return nil, errcode.InvalidRequest.WithMessage("invalid video status")
	}

	videoID, err := allocateVideoID(ctx, s.newID, s.videos)
	if err != nil {
		return nil, fmt.Errorf("allocate video id: %w", err)
	}

	ext := strings.ToLower(path.Ext(base))
	key := fmt.Sprintf("videos/%s/%s", videoID, base)

	uploadID, err := s.storage.CreateMultipartUpload(ctx, s.opts.Bucket, key, mime.TypeByExtension(ext))
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = strings.TrimSuffix(base, path.Ext(base))
	}

	now := s.now()
	video := &model.Video{
		ID:          videoID,
		AuthorID:    caller.ChannelID,
		Name:        name,
		Description: in.Description,
		Status:      status,
		StorageKey:  key,
		UploadState: model.UploadStateUploading,
	}
	session := &model.UploadSession{
		VideoID:   videoID,
		UploadID:  uploadID,
		State:     model.UploadSessionActive,
		ExpiresAt: now.Add(s.opts.SessionTTL),
	}

	if err := s.uploads.CreateVideoWithSession(ctx, video, session); err != nil {
		s.discardStorageUpload(ctx, key, uploadID)
		if errors.Is(err, gorm.ErrDuplicatedKey) || errors.Is(err, gorm.ErrForeignKeyViolated) {
			return nil, errcode.VideoNotFound
		}
		return nil, fmt.Errorf("create upload records: %w", err)
	}

	logger.Info("Upload created",
		zap.String("video_id", videoID),
		zap.String("upload_id", uploadID),
		zap.Int64("channel_id", caller.ChannelID),
	)
	return &UploadTicket{VideoID: videoID, UploadID: uploadID}, nil
}

// loadSession resolves an upload and authorizes the caller against it. The
// video is resolved first so an unknown video and an unknown upload of a
// known video fail differently.
func (s *UploadCoordinator) loadSession(ctx context.Context, caller Caller, videoID, uploadID string) (*model.Video, *model.UploadSession, error) {
	video, err := s.videos.GetByID(ctx, videoID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, s.missingVideoError(ctx, videoID)
		}
		return nil, nil, err
	}
	if video.StorageKey == "" {
		return nil, nil, errcode.VideoNotFoundByKey
	}
	if !caller.Owns(video) {
		return nil, nil, errcode.NotVideoOwner
	}

	session, err := s.uploads.GetSession(ctx, videoID, uploadID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, errcode.NotFoundByUploadID
		}
		return nil, nil, err
	}
	return video, session, nil
}

// missingVideoError tells a video deleted by an abort apart from one that
// never existed.
func (s *UploadCoordinator) missingVideoError(ctx context.Context, videoID string) error {
	aborted, err := s.uploads.WasAborted(ctx, videoID)
	if err != nil {
		return err
	}
	if aborted {
		return errcode.NotFoundByUploadID
	}
	return errcode.VideoNotFoundByKey
}

// GeneratePartURL signs a short-lived PUT URL for one part.
func (s *UploadCoordinator) GeneratePartURL(ctx context.Context, caller Caller, videoID, uploadID string, partNumber int) (string, error) {
	if partNumber < minPartNumber || partNumber > maxPartNumber {
		return "", errcode.InvalidPartNumber
	}
	video, session, err := s.loadSession(ctx, caller, videoID, uploadID)
	if err != nil {
		return "", err
	}
	if session.State != model.UploadSessionActive {
		return "", errcode.NotFoundByUploadID
	}
	return s.storage.SignPartURL(ctx, s.opts.Bucket, video.StorageKey, uploadID, partNumber, s.opts.PartURLTTL)
}

// ValidateParts checks the client's part list before it reaches storage:
// non-empty, part numbers strictly ascending within range, every ETag set.
func ValidateParts(parts []infraMinio.Part) error {
	if len(parts) == 0 {
		return errcode.UploadPartsInvalid.WithMessage("at least one part is required")
	}
	prev := 0
	for _, p := range parts {
		if p.Number < minPartNumber || p.Number > maxPartNumber {
			return errcode.UploadPartsInvalid.WithMessage("part number out of range")
		}
		if p.Number <= prev {
			return errcode.UploadPartsInvalid.WithMessage("part numbers must be strictly ascending")
		}
		if strings.TrimSpace(p.ETag) == "" {
			return errcode.UploadPartsInvalid.WithMessage("every part needs an etag")
		}
		prev = p.Number
	}
	return nil
}

// CompleteUpload finalizes the object and marks the video READY. The session
// is claimed first so a concurrent complete or abort cannot also succeed.
func (s *UploadCoordinator) CompleteUpload(ctx context.Context, caller Caller, videoID, uploadID string, parts []infraMinio.Part) (*model.Video, error) {
	if err := ValidateParts(parts); err != nil {
		return nil, err
	}
	video, _, err := s.loadSession(ctx, caller, videoID, uploadID)
	if err != nil {
		return nil, err
	}

	claimed, err := s.uploads.ClaimSession(ctx, videoID, uploadID, model.UploadSessionCompleting)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, errcode.NotFoundByUploadID
	}

	if _, err := s.storage.CompleteMultipartUpload(ctx, s.opts.Bucket, video.StorageKey, uploadID, parts); err != nil {
		s.releaseClaim(ctx, videoID, uploadID, model.UploadSessionCompleting)
		switch {
		case errors.Is(err, infraMinio.ErrPartsMismatch):
			return nil, errcode.UploadPartsInvalid
		case errors.Is(err, infraMinio.ErrUploadNotFound):
			return nil, errcode.NotFoundByUploadID
		}
		return nil, err
	}

	ready, err := s.uploads.FinishCompleted(ctx, videoID, uploadID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errcode.NotFoundByUploadID
		}
		logger.Error("Upload completed in storage but video not marked ready",
			zap.String("video_id", videoID),
			zap.String("upload_id", uploadID),
			zap.Error(err),
		)
		return nil, err
	}

	publishEvent(ctx, s.events, infraKafka.EventUploadCompleted, videoID)
	logger.Info("Upload completed", zap.String("video_id", videoID), zap.Int("parts", len(parts)))
	return ready, nil
}

// AbortUpload discards the multipart upload and deletes its video.
func (s *UploadCoordinator) AbortUpload(ctx context.Context, caller Caller, videoID, uploadID string) error {
	video, _, err := s.loadSession(ctx, caller, videoID, uploadID)
	if err != nil {
		return err
	}
	return s.abort(ctx, video, uploadID)
}

func (s *UploadCoordinator) abort(ctx context.Context, video *model.Video, uploadID string) error {
	claimed, err := s.uploads.ClaimSession(ctx, video.ID, uploadID, model.UploadSessionAborting)
	if err != nil {
		return err
	}
	if !claimed {
		return errcode.NotFoundByUploadID
	}

	err = s.storage.AbortMultipartUpload(ctx, s.opts.Bucket, video.StorageKey, uploadID)
	switch {
	case errors.Is(err, infraMinio.ErrUploadNotFound):
		// storage already closed the upload, possibly by completing it
		s.removeOrphanedObject(ctx, video.StorageKey)
	case err != nil:
		s.releaseClaim(ctx, video.ID, uploadID, model.UploadSessionAborting)
		return err
	}

	if err := s.uploads.FinishAborted(ctx, video.ID, uploadID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errcode.NotFoundByUploadID
		}
		return err
	}

	publishEvent(ctx, s.events, infraKafka.EventUploadAborted, video.ID)
	logger.Info("Upload aborted", zap.String("video_id", video.ID), zap.String("upload_id", uploadID))
	return nil
}

// GenerateDownloadURL signs a GET URL for a READY video the caller may see.
func (s *UploadCoordinator) GenerateDownloadURL(ctx context.Context, caller Caller, videoID string) (string, error) {
	video, err := s.videos.GetByID(ctx, videoID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", errcode.VideoNotFound
		}
		return "", err
	}
	if err := s.policy.CheckAccess(caller, video); err != nil {
		return "", err
	}
	if video.UploadState != model.UploadStateReady || video.StorageKey == "" {
		return "", errcode.VideoNotReady
	}
	return s.storage.SignGetURL(ctx, s.opts.Bucket, video.StorageKey, s.opts.DownloadURLTTL)
}

// ReapExpired aborts sessions past their expiry and returns how many were
// aborted. It reuses the claim protocol, so a client completing at the same
// moment either wins or sees the upload gone.
func (s *UploadCoordinator) ReapExpired(ctx context.Context) (int, error) {
	now := s.now()
	if released, err := s.uploads.ReleaseStaleClaims(ctx, now.Add(-staleClaimAge)); err != nil {
		return 0, fmt.Errorf("release stale claims: %w", err)
	} else if released > 0 {
		logger.Warn("Released stale upload claims", zap.Int64("count", released))
	}

	if purged, err := s.uploads.PurgeAborted(ctx, now.Add(-s.opts.SessionTTL)); err != nil {
		logger.Warn("Failed to purge aborted uploads", zap.Error(err))
	} else if purged > 0 {
		logger.Debug("Purged aborted uploads", zap.Int64("count", purged))
	}

	sessions, err := s.uploads.ListExpired(ctx, now, s.opts.ReapBatch)
	if err != nil {
		return 0, fmt.Errorf("list expired sessions: %w", err)
	}

	aborted := 0
	for _, sess := range sessions {
		if ctx.Err() != nil {
			return aborted, ctx.Err()
		}
		video, err := s.videos.GetByID(ctx, sess.VideoID)
		if err != nil {
			logger.Warn("Skip expired session without video",
				zap.String("video_id", sess.VideoID),
				zap.Error(err),
			)
			continue
		}
		if err := s.abort(ctx, video, sess.UploadID); err != nil {
			if errors.Is(err, errcode.NotFoundByUploadID) {
				continue
			}
			logger.Error("Failed to reap upload",
				zap.String("video_id", sess.VideoID),
				zap.String("upload_id", sess.UploadID),
				zap.Error(err),
			)
			continue
		}
		aborted++
	}
	return aborted, nil
}

func (s *UploadCoordinator) releaseClaim(ctx context.Context, videoID, uploadID string, from model.UploadSessionState) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.uploads.ReleaseSession(ctx, videoID, uploadID, from); err != nil {
		logger.Error("Failed to release upload claim",
			zap.String("video_id", videoID),
			zap.String("upload_id", uploadID),
			zap.Error(err),
		)
	}
}

func (s *UploadCoordinator) discardStorageUpload(ctx context.Context, key, uploadID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.storage.AbortMultipartUpload(ctx, s.opts.Bucket, key, uploadID); err != nil {
		logger.Warn("Failed to discard orphaned multipart upload",
			zap.String("key", key),
			zap.String("upload_id", uploadID),
			zap.Error(err),
		)
	}
}

func (s *UploadCoordinator) removeOrphanedObject(ctx context.Context, key string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.storage.RemoveObject(ctx, s.opts.Bucket, key); err != nil {
		logger.Warn("Failed to remove object of aborted upload",
			zap.String("key", key),
			zap.Error(err),
		)
	}
}
