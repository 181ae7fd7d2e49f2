package dto

import (
	"time"

	"clipstream/internal/model"
)

type LoginRequest struct {
	Username string `json:"username" binding:"required,min=1,max=150"`
	Password string `json:"password" binding:"required,min=6,max=255"`
}

// RegisterRequest creates an account and its channel. channel_slug defaults
// to the username.
type RegisterRequest struct {
	Username    string `json:"username" binding:"required,min=1,max=150"`
	Password    string `json:"password" binding:"required,min=6,max=255"`
	ChannelName string `json:"channel_name" binding:"omitempty,max=100"`
	ChannelSlug string `json:"channel_slug" binding:"omitempty,max=100"`
}

type TokenData struct {
	Token     string   `json:"token"`
	TokenType string   `json:"token_type"`
	ExpiresIn int      `json:"expires_in"`
	User      UserInfo `json:"user"`
}

type UserInfo struct {
	ID        int64        `json:"id"`
	Username  string       `json:"user_name"`
	IsStaff   bool         `json:"is_staff"`
	CreatedAt time.Time    `json:"created_at"`
	Channel   *ChannelInfo `json:"channel,omitempty"`
}

func NewUserInfo(u *model.User) UserInfo {
	info := UserInfo{
		ID:        u.ID,
		Username:  u.UserName,
		IsStaff:   u.IsStaff,
		CreatedAt: u.CreatedAt,
	}
	if u.Channel != nil {
		ch := NewChannelInfo(u.Channel)
		info.Channel = &ch
	}
	return info
}
