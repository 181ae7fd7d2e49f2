// Package errcode enumerates the domain errors returned by services. Each
// error carries a stable machine code that clients branch on and the HTTP
// status the API layer answers with.
package errcode

import (
	"errors"
	"net/http"
)

// Kind groups codes into the four failure classes.
type Kind string

const (
	KindNotFound   Kind = "not_found"
	KindValidation Kind = "validation"
	KindPermission Kind = "permission"
	KindConflict   Kind = "conflict"
)

// Error is a domain failure.
type Error struct {
	Kind    Kind
	Code    string
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches by code so a wrapped or re-messaged error still compares equal.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithMessage returns a copy carrying a more specific message.
func (e *Error) WithMessage(msg string) *Error {
	cp := *e
	cp.Message = msg
	return &cp
}

func newError(kind Kind, status int, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Status: status, Message: msg}
}

func notFound(code, msg string) *Error {
	return newError(KindNotFound, http.StatusNotFound, code, msg)
}

func validation(code, msg string) *Error {
	return newError(KindValidation, http.StatusBadRequest, code, msg)
}

func permission(code, msg string) *Error {
	return newError(KindPermission, http.StatusForbidden, code, msg)
}

func conflict(code, msg string) *Error {
	return newError(KindConflict, http.StatusBadRequest, code, msg)
}

// upload
var (
	FilenameMissing       = validation("filename_missing", "filename is required")
	FilenameFormatError   = validation("filename_format_error", "unsupported file format")
	InvalidPartNumber     = validation("invalid_part_number", "part number must be between 1 and 10000")
	UploadPartsInvalid    = validation("upload_parts_invalid", "uploaded parts do not match the upload")
	VideoNotFound         = notFound("video_not_found", "video not found")
	VideoNotFoundByKey    = notFound("video_not_found_by_key", "no upload exists for this video")
	NotFoundByUploadID    = notFound("video_not_found_by_upload_id", "upload session not found")
	VideoNotReady         = validation("video_not_ready", "video upload is not complete")
	AvatarFormatError     = validation("avatar_format_error", "unsupported image format")
	VideoLinkMissing      = validation("video_link_missing", "link is required")
	NotVideoOwner         = permission("not_video_owner", "only the owner can modify this video")
	PrivateVideo          = permission("private_video", "this video is private")
	VideoUploading        = permission("video_uploading", "this video is still uploading")
	AuthenticationMissing = newError(KindPermission, http.StatusUnauthorized, "not_authenticated", "authentication credentials were not provided")
)

// engagement
var (
	LikeNotFound         = notFound("like_not_found", "like not found")
	ViewExists           = conflict("view_exists", "view already registered")
	CommentNotFound      = notFound("comment_not_found", "comment not found")
	NotCommentOwner      = permission("not_comment_owner", "only the author or video owner can delete this comment")
	SelfSubscription     = conflict("self_subscription", "cannot subscribe to your own channel")
	SubscriptionExists   = conflict("subscription_exists", "already subscribed")
	SubscriptionNotFound = notFound("subscription_not_found", "subscription not found")
)

// channel and account
var (
	ChannelNotFound    = notFound("channel_not_found", "channel not found")
	ChannelSlugExists  = conflict("channel_slug_exists", "channel slug already taken")
	InvalidChannelSlug = validation("invalid_channel_slug", "slug must be 3-50 characters of a-z, 0-9, '-' or '_'")
	UsernameExists     = conflict("username_exists", "username already taken")
	InvalidCredential  = newError(KindPermission, http.StatusUnauthorized, "invalid_credentials", "invalid username or password")
	UserNotFound       = notFound("user_not_found", "user not found")
)

// feed
var (
	InvalidOrdering       = validation("invalid_ordering", "ordering must be -created_at or -views_count")
	InvalidUploadedFilter = validation("invalid_uploaded_filter", "uploaded must be one of last_hour, today, this_week, this_month, this_year")
	InvalidCursor         = validation("invalid_cursor", "invalid cursor")
	InvalidRequest        = validation("invalid_request", "invalid request")
)

// As extracts a domain error from err.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
