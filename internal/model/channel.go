package model

import "time"

// Channel is the public identity that owns videos, comments and subscriptions.
type Channel struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      int64     `gorm:"not null;uniqueIndex:uq_channels_user_id" json:"user_id"`
	Name        string    `gorm:"size:100;not null" json:"name"`
	Slug        string    `gorm:"size:50;not null;uniqueIndex:uq_channels_slug" json:"slug"`
	Description string    `gorm:"type:text" json:"description"`
	AvatarKey   string    `gorm:"size:255" json:"avatar_key"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Channel) TableName() string {
	return "channels"
}
