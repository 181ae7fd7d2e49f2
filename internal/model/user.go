package model

import "time"

// User is a login account. Every user owns exactly one Channel.
type User struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserName  string    `gorm:"size:150;not null;uniqueIndex:uq_users_user_name" json:"user_name"`
	Password  string    `gorm:"size:255;not null" json:"-"`
	IsStaff   bool      `gorm:"not null;default:false" json:"is_staff"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	Channel *Channel `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"channel,omitempty"`
}

func (User) TableName() string {
	return "users"
}
