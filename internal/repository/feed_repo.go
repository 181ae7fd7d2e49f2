package repository

import (
	"context"
	"strings"
	"time"

	"clipstream/internal/model"

	"gorm.io/gorm"
)

type Ordering string

const (
	OrderNewest     Ordering = "-created_at"
	OrderMostViewed Ordering = "-views_count"
)

// Cursor is the position of the last row of the previous page.
type Cursor struct {
	CreatedAt time.Time
	Views     int64
	ID        string
}

// VisibilityFilter restricts rows to what a caller may list. The zero value
// lists everything.
type VisibilityFilter struct {
	Statuses         []model.VideoStatus
	ExcludeUploading bool
}

// FeedQuery describes one page of a video listing.
type FeedQuery struct {
	Visibility  VisibilityFilter
	AuthorID    *int64
	RestrictIDs bool
	IDs         []string
	Search      string
	Since       *time.Time
	Ordering    Ordering
	After       *Cursor
	Limit       int
}

type FeedRepository struct {
	db *gorm.DB
}

func NewFeedRepository(db *gorm.DB) *FeedRepository {
	return &FeedRepository{db: db}
}

// List runs q and returns up to q.Limit annotated rows in q.Ordering.
func (r *FeedRepository) List(ctx context.Context, q FeedQuery) ([]model.VideoWithStats, error) {
	if q.RestrictIDs && len(q.IDs) == 0 {
		return []model.VideoWithStats{}, nil
	}

	db := annotatedVideos(r.db.WithContext(ctx))
	db = applyVisibility(db, q.Visibility)

	if q.AuthorID != nil {
		db = db.Where("videos.author_id = ?", *q.AuthorID)
	}
	if q.RestrictIDs {
		db = db.Where("videos.id IN ?", q.IDs)
	}
	if q.Search != "" {
		pattern := "%" + escapeLike(q.Search) + "%"
		db = db.Where(
			"(videos.name ILIKE ? OR videos.description ILIKE ? OR channels.name ILIKE ? OR channels.slug ILIKE ?)",
			pattern, pattern, pattern, pattern,
		)
	}
	if q.Since != nil {
		db = db.Where("videos.created_at >= ?", *q.Since)
	}

	switch q.Ordering {
	case OrderMostViewed:
		if q.After != nil {
			db = db.Where("("+viewsCountExpr+", videos.id) < (?, ?)", q.After.Views, q.After.ID)
		}
		db = db.Order("views_count DESC").Order("videos.id DESC")
	default:
		if q.After != nil {
			db = db.Where("(videos.created_at, videos.id) < (?, ?)", q.After.CreatedAt, q.After.ID)
		}
		db = db.Order("videos.created_at DESC").Order("videos.id DESC")
	}

	var rows []model.VideoWithStats
	if err := db.Limit(q.Limit).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func applyVisibility(db *gorm.DB, f VisibilityFilter) *gorm.DB {
	var parts []string
	var args []interface{}

	if len(f.Statuses) > 0 {
		statuses := make([]string, 0, len(f.Statuses))
		for _, s := range f.Statuses {
			statuses = append(statuses, string(s))
		}
		parts = append(parts, "videos.status IN ?")
		args = append(args, statuses)
	}
	if f.ExcludeUploading {
		parts = append(parts, "videos.upload_state <> ?")
		args = append(args, string(model.UploadStateUploading))
	}
	if len(parts) == 0 {
		return db
	}

	return db.Where(strings.Join(parts, " AND "), args...)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
