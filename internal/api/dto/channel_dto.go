package dto

import (
	"time"

	"clipstream/internal/model"
)

type ChannelInfo struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// ChannelDetail is a channel page with its subscriber count.
type ChannelDetail struct {
	ChannelInfo
	AvatarURL string `json:"avatar_url,omitempty"`
	SubsCount int64  `json:"subs_count"`
}

type ChannelUpdateRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=100"`
	Description *string `json:"description"`
}

type AvatarURLRequest struct {
	Filename string `json:"filename"`
}

type AvatarURLData struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

type ChannelListData struct {
	Channels   []ChannelDetail `json:"channels"`
	Total      int64           `json:"total"`
	Page       int             `json:"page"`
	PageSize   int             `json:"page_size"`
	TotalPages int64           `json:"total_pages"`
}

func NewChannelInfo(ch *model.Channel) ChannelInfo {
	return ChannelInfo{
		ID:          ch.ID,
		Name:        ch.Name,
		Slug:        ch.Slug,
		Description: ch.Description,
		CreatedAt:   ch.CreatedAt,
	}
}

func NewChannelDetail(ch *model.ChannelWithStats, avatarURL string) ChannelDetail {
	return ChannelDetail{
		ChannelInfo: ChannelInfo{
			ID:          ch.ID,
			Name:        ch.Name,
			Slug:        ch.Slug,
			Description: ch.Description,
			CreatedAt:   ch.CreatedAt,
		},
		AvatarURL: avatarURL,
		SubsCount: ch.SubsCount,
	}
}

func NewChannelListData(rows []model.ChannelWithStats, total int64, page, pageSize int) ChannelListData {
	items := make([]ChannelDetail, 0, len(rows))
	for i := range rows {
		items = append(items, NewChannelDetail(&rows[i], ""))
	}
	return ChannelListData{
		Channels:   items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages(total, pageSize),
	}
}

func totalPages(total int64, pageSize int) int64 {
	if pageSize <= 0 {
		return 0
	}
	return (total + int64(pageSize) - 1) / int64(pageSize)
}
