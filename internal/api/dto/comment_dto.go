package dto

import (
	"time"

	"clipstream/internal/model"
)

type CommentCreateRequest struct {
	Content string `json:"content" binding:"required,min=1,max=1000"`
}

type CommentInfo struct {
	ID         int64     `json:"id"`
	VideoID    string    `json:"video_id"`
	AuthorID   int64     `json:"author_id"`
	AuthorName string    `json:"author_name"`
	AuthorSlug string    `json:"author_slug"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type CommentListData struct {
	Comments   []CommentInfo `json:"comments"`
	Total      int64         `json:"total"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
	TotalPages int64         `json:"total_pages"`
}

func NewCommentInfo(cm *model.VideoComment) CommentInfo {
	return CommentInfo{
		ID:         cm.ID,
		VideoID:    cm.VideoID,
		AuthorID:   cm.AuthorID,
		AuthorName: cm.Author.Name,
		AuthorSlug: cm.Author.Slug,
		Content:    cm.Content,
		CreatedAt:  cm.CreatedAt,
		UpdatedAt:  cm.UpdatedAt,
	}
}

func NewCommentListData(rows []model.VideoComment, total int64, page, pageSize int) CommentListData {
	items := make([]CommentInfo, 0, len(rows))
	for i := range rows {
		items = append(items, NewCommentInfo(&rows[i]))
	}
	return CommentListData{
		Comments:   items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages(total, pageSize),
	}
}
