package service

import (
	"clipstream/internal/errcode"
	"clipstream/internal/model"
	"clipstream/internal/repository"
)

// Caller identifies who is making a request. A zero ChannelID is anonymous.
type Caller struct {
	UserID    int64
	ChannelID int64
	IsStaff   bool
}

func (c Caller) Authenticated() bool {
	return c.ChannelID != 0
}

// Owns reports whether the caller's channel authored v.
func (c Caller) Owns(v *model.Video) bool {
	return c.Authenticated() && v.AuthorID == c.ChannelID
}

// VisibilityPolicy decides which videos a caller may see or act on.
type VisibilityPolicy struct{}

// CheckAccess authorizes access to a single video by direct reference.
// Owners and staff see everything. Everyone else is refused UPLOADING and
// PRIVATE videos; UNLISTED and PUBLIC videos are open.
func (VisibilityPolicy) CheckAccess(c Caller, v *model.Video) error {
	if c.Owns(v) || c.IsStaff {
		return nil
	}
	if v.UploadState == model.UploadStateUploading {
		return errcode.VideoUploading
	}
	if v.Status == model.VideoStatusPrivate {
		return errcode.PrivateVideo
	}
	return nil
}

// ListingFilter scopes a listing. authorID is set when listing one channel's
// videos; its owner and staff then see every video of that channel. All other
// listings contain only PUBLIC videos that are not mid-upload.
func (VisibilityPolicy) ListingFilter(c Caller, authorID *int64) repository.VisibilityFilter {
	if authorID != nil && (c.IsStaff || (c.Authenticated() && c.ChannelID == *authorID)) {
		return repository.VisibilityFilter{}
	}
	return repository.VisibilityFilter{
		Statuses:         []model.VideoStatus{model.VideoStatusPublic},
		ExcludeUploading: true,
	}
}
