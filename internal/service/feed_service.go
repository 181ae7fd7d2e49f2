package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"clipstream/internal/errcode"
	"clipstream/internal/model"
	"clipstream/internal/repository"
	"clipstream/pkg/logger"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

// Upload recency buckets accepted by the uploaded filter.
const (
	UploadedLastHour  = "last_hour"
	UploadedToday     = "today"
	UploadedThisWeek  = "this_week"
	UploadedThisMonth = "this_month"
	UploadedThisYear  = "this_year"
)

// FeedOptions bounds page sizes and search fan-out.
type FeedOptions struct {
	DefaultPageSize int
	MaxPageSize     int
	SearchLimit     int
}

// FeedParams are the raw listing parameters of a request.
type FeedParams struct {
	Search   string
	Uploaded string
	Ordering string
	Cursor   string
	PageSize int
}

// FeedPage is one page of annotated videos. Next is empty on the last page.
type FeedPage struct {
	Results   []model.VideoWithStats
	Next      string
	NoResults bool
}

type FeedService struct {
	feed     FeedStore
	channels ChannelStore
	search   SearchIndex
	policy   VisibilityPolicy
	opts     FeedOptions
	now      func() time.Time

	// collapses concurrent lookups of the same search term
	sf singleflight.Group
}

// NewFeedService builds the listing service. search may be nil, in which
// case search terms are matched in the database only.
func NewFeedService(feed FeedStore, channels ChannelStore, search SearchIndex, opts FeedOptions) *FeedService {
	if opts.DefaultPageSize <= 0 {
		opts.DefaultPageSize = 10
	}
	if opts.MaxPageSize <= 0 {
		opts.MaxPageSize = 20
	}
	if opts.DefaultPageSize > opts.MaxPageSize {
		opts.DefaultPageSize = opts.MaxPageSize
	}
	if opts.SearchLimit <= 0 {
		opts.SearchLimit = 500
	}
	return &FeedService{
		feed:     feed,
		channels: channels,
		search:   search,
		opts:     opts,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// pageCursor is the wire form of repository.Cursor.
type pageCursor struct {
	Ordering  string     `json:"o"`
	CreatedAt *time.Time `json:"t,omitempty"`
	Views     *int64     `json:"n,omitempty"`
	ID        string     `json:"id"`
}

func encodeCursor(ordering repository.Ordering, row *model.VideoWithStats) string {
	pc := pageCursor{Ordering: string(ordering), ID: row.ID}
	switch ordering {
	case repository.OrderMostViewed:
		views := row.ViewsCount
		pc.Views = &views
	default:
		created := row.CreatedAt.UTC()
		pc.CreatedAt = &created
	}
	raw, _ := json.Marshal(pc)
	return base64.RawURLEncoding.EncodeToString(raw)
}

func decodeCursor(s string, ordering repository.Ordering) (*repository.Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, errcode.InvalidCursor
	}
	var pc pageCursor
	if err := json.Unmarshal(raw, &pc); err != nil {
		return nil, errcode.InvalidCursor
	}
	if pc.ID == "" || repository.Ordering(pc.Ordering) != ordering {
		return nil, errcode.InvalidCursor
	}

	c := &repository.Cursor{ID: pc.ID}
	switch ordering {
	case repository.OrderMostViewed:
		if pc.Views == nil {
			return nil, errcode.InvalidCursor
		}
		c.Views = *pc.Views
	default:
		if pc.CreatedAt == nil {
			return nil, errcode.InvalidCursor
		}
		c.CreatedAt = *pc.CreatedAt
	}
	return c, nil
}

func parseOrdering(s string) (repository.Ordering, error) {
	switch repository.Ordering(s) {
	case "", repository.OrderNewest:
		return repository.OrderNewest, nil
	case repository.OrderMostViewed:
		return repository.OrderMostViewed, nil
	}
	return "", errcode.InvalidOrdering
}

// uploadedSince resolves a recency bucket to its lower bound. Buckets other
// than last_hour start at calendar boundaries in UTC; weeks start on Monday.
func uploadedSince(bucket string, now time.Time) (*time.Time, error) {
	now = now.UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var since time.Time
	switch bucket {
	case "":
		return nil, nil
	case UploadedLastHour:
		since = now.Add(-time.Hour)
	case UploadedToday:
		since = midnight
	case UploadedThisWeek:
		offset := (int(now.Weekday()) + 6) % 7
		since = midnight.AddDate(0, 0, -offset)
	case UploadedThisMonth:
		since = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	case UploadedThisYear:
		since = time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	default:
		return nil, errcode.InvalidUploadedFilter
	}
	return &since, nil
}

func (s *FeedService) pageSize(n int) int {
	if n <= 0 {
		return s.opts.DefaultPageSize
	}
	if n > s.opts.MaxPageSize {
		return s.opts.MaxPageSize
	}
	return n
}

// buildQuery validates the shared listing parameters into a FeedQuery.
func (s *FeedService) buildQuery(p FeedParams) (repository.FeedQuery, error) {
	ordering, err := parseOrdering(p.Ordering)
	if err != nil {
		return repository.FeedQuery{}, err
	}
	since, err := uploadedSince(p.Uploaded, s.now())
	if err != nil {
		return repository.FeedQuery{}, err
	}

	q := repository.FeedQuery{
		Ordering: ordering,
		Since:    since,
		Limit:    s.pageSize(p.PageSize),
	}
	if p.Cursor != "" {
		after, err := decodeCursor(p.Cursor, ordering)
		if err != nil {
			return repository.FeedQuery{}, err
		}
		q.After = after
	}
	return q, nil
}

// Browse lists public videos matching a search term. Without a term it
// answers with the no-results marker instead of the unfiltered catalogue.
func (s *FeedService) Browse(ctx context.Context, caller Caller, p FeedParams) (*FeedPage, error) {
	q, err := s.buildQuery(p)
	if err != nil {
		return nil, err
	}

	term := strings.TrimSpace(p.Search)
	if term == "" {
		return &FeedPage{Results: []model.VideoWithStats{}, NoResults: true}, nil
	}

	q.Visibility = s.policy.ListingFilter(caller, nil)
	s.applySearch(ctx, &q, term)
	return s.run(ctx, q)
}

// ChannelVideos lists one channel's videos. The channel owner and staff see
// every video; everyone else sees its public ones.
func (s *FeedService) ChannelVideos(ctx context.Context, caller Caller, slug string, p FeedParams) (*FeedPage, error) {
	q, err := s.buildQuery(p)
	if err != nil {
		return nil, err
	}

	channel, err := s.channels.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errcode.ChannelNotFound
		}
		return nil, err
	}

	q.AuthorID = &channel.ID
	q.Visibility = s.policy.ListingFilter(caller, &channel.ID)
	// the index only holds public videos, so channel search stays in the database
	q.Search = strings.TrimSpace(p.Search)
	return s.run(ctx, q)
}

// applySearch narrows q to the ids the search index returns. It falls back
// to a database match when the index is unavailable or returns a full page
// of hits, so results are never cut off at SearchLimit.
func (s *FeedService) applySearch(ctx context.Context, q *repository.FeedQuery, term string) {
	if s.search == nil {
		q.Search = term
		return
	}
	result, err, _ := s.sf.Do("search:"+strings.ToLower(term), func() (interface{}, error) {
		return s.search.SearchVideoIDs(ctx, term, s.opts.SearchLimit)
	})
	if err != nil {
		logger.Warn("Search index unavailable, falling back to database match",
			zap.String("term", term),
			zap.Error(err),
		)
		q.Search = term
		return
	}
	ids := result.([]string)
	if len(ids) >= s.opts.SearchLimit {
		// the hit list may be truncated; only the database sees every match
		logger.Debug("Search hits reached the limit, matching in database", zap.String("term", term))
		q.Search = term
		return
	}
	q.RestrictIDs = true
	q.IDs = ids
}

func (s *FeedService) run(ctx context.Context, q repository.FeedQuery) (*FeedPage, error) {
	limit := q.Limit
	q.Limit = limit + 1

	rows, err := s.feed.List(ctx, q)
	if err != nil {
		return nil, err
	}

	page := &FeedPage{Results: rows}
	if len(rows) > limit {
		page.Results = rows[:limit]
		page.Next = encodeCursor(q.Ordering, &page.Results[limit-1])
	}
	if page.Results == nil {
		page.Results = []model.VideoWithStats{}
	}
	return page, nil
}
