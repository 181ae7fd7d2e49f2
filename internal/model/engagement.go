package model

import "time"

// VideoLike stores a like or dislike; one row per (channel, video).
type VideoLike struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ChannelID int64     `gorm:"not null;uniqueIndex:uq_video_likes_channel_video,priority:1" json:"channel_id"`
	VideoID   string    `gorm:"size:11;not null;uniqueIndex:uq_video_likes_channel_video,priority:2;index:idx_video_likes_video_id" json:"video_id"`
	IsLike    bool      `gorm:"not null" json:"is_like"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Channel Channel `gorm:"foreignKey:ChannelID;constraint:OnDelete:CASCADE" json:"-"`
	Video   Video   `gorm:"foreignKey:VideoID;constraint:OnDelete:CASCADE" json:"-"`
}

func (VideoLike) TableName() string {
	return "video_likes"
}

// VideoView is one counted view. Identity is the viewer's channel when
// authenticated, otherwise the client IP.
type VideoView struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	VideoID   string    `gorm:"size:11;not null;index:idx_video_views_identity,priority:1" json:"video_id"`
	ChannelID *int64    `gorm:"index:idx_video_views_identity,priority:2" json:"channel_id"`
	IPAddress string    `gorm:"size:45;index:idx_video_views_identity,priority:3" json:"ip_address"`
	CreatedAt time.Time `gorm:"not null;index:idx_video_views_identity,priority:4" json:"created_at"`

	Video Video `gorm:"foreignKey:VideoID;constraint:OnDelete:CASCADE" json:"-"`
}

func (VideoView) TableName() string {
	return "video_views"
}

// VideoComment is a top-level comment on a video.
type VideoComment struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	VideoID   string    `gorm:"size:11;not null;index:idx_video_comments_video_created,priority:1" json:"video_id"`
	AuthorID  int64     `gorm:"not null;index" json:"author_id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"autoCreateTime;index:idx_video_comments_video_created,priority:2" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Author Channel `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"-"`
	Video  Video   `gorm:"foreignKey:VideoID;constraint:OnDelete:CASCADE" json:"-"`
}

func (VideoComment) TableName() string {
	return "video_comments"
}

// SubscriptionItem links a subscriber channel to the channel it follows.
type SubscriptionItem struct {
	ID             int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	SubscriberID   int64     `gorm:"not null;uniqueIndex:uq_subscriptions_pair,priority:1" json:"subscriber_id"`
	SubscribedToID int64     `gorm:"not null;uniqueIndex:uq_subscriptions_pair,priority:2;index:idx_subscriptions_subscribed_to" json:"subscribed_to_id"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`

	Subscriber   Channel `gorm:"foreignKey:SubscriberID;constraint:OnDelete:CASCADE" json:"-"`
	SubscribedTo Channel `gorm:"foreignKey:SubscribedToID;constraint:OnDelete:CASCADE" json:"-"`
}

func (SubscriptionItem) TableName() string {
	return "subscription_items"
}

// All lists every model for AutoMigrate, parents first.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Channel{},
		&Video{},
		&UploadSession{},
		&AbortedUpload{},
		&VideoLike{},
		&VideoView{},
		&VideoComment{},
		&SubscriptionItem{},
	}
}
