package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"clipstream/internal/errcode"
	"clipstream/internal/model"
	"clipstream/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feedRows(n int) []model.VideoWithStats {
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	rows := make([]model.VideoWithStats, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, model.VideoWithStats{
			ID:         fmt.Sprintf("video%06d", n-i),
			Name:       fmt.Sprintf("cats %d", i),
			Status:     model.VideoStatusPublic,
			CreatedAt:  base.Add(-time.Duration(i) * time.Hour),
			ViewsCount: int64(100 - i),
		})
	}
	return rows
}

func TestCursor_RoundTrip(t *testing.T) {
	row := &model.VideoWithStats{
		ID:         "abcDEF12345",
		CreatedAt:  time.Date(2024, 1, 2, 3, 4, 5, 6000, time.UTC),
		ViewsCount: 42,
	}

	c, err := decodeCursor(encodeCursor(repository.OrderNewest, row), repository.OrderNewest)
	require.NoError(t, err)
	assert.Equal(t, row.ID, c.ID)
	assert.True(t, row.CreatedAt.Equal(c.CreatedAt))

	c, err = decodeCursor(encodeCursor(repository.OrderMostViewed, row), repository.OrderMostViewed)
	require.NoError(t, err)
	assert.Equal(t, row.ID, c.ID)
	assert.Equal(t, int64(42), c.Views)
}

func TestCursor_Invalid(t *testing.T) {
	row := &model.VideoWithStats{ID: "abcDEF12345", CreatedAt: time.Now()}

	for _, raw := range []string{"!!!", "bm90LWpzb24", encodeCursor(repository.OrderNewest, &model.VideoWithStats{})} {
		_, err := decodeCursor(raw, repository.OrderNewest)
		assert.ErrorIs(t, err, errcode.InvalidCursor, raw)
	}

	// a cursor only resumes the ordering it was issued for
	_, err := decodeCursor(encodeCursor(repository.OrderNewest, row), repository.OrderMostViewed)
	assert.ErrorIs(t, err, errcode.InvalidCursor)
}

func TestUploadedSince(t *testing.T) {
	// Wednesday
	now := time.Date(2024, 7, 17, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		bucket string
		want   time.Time
	}{
		{UploadedLastHour, time.Date(2024, 7, 17, 14, 30, 0, 0, time.UTC)},
		{UploadedToday, time.Date(2024, 7, 17, 0, 0, 0, 0, time.UTC)},
		{UploadedThisWeek, time.Date(2024, 7, 15, 0, 0, 0, 0, time.UTC)},
		{UploadedThisMonth, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)},
		{UploadedThisYear, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.bucket, func(t *testing.T) {
			got, err := uploadedSince(tt.bucket, now)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.True(t, tt.want.Equal(*got), "got %s", got)
		})
	}

	got, err := uploadedSince("", now)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = uploadedSince("yesterday", now)
	assert.ErrorIs(t, err, errcode.InvalidUploadedFilter)

	// Sunday belongs to the week that started the previous Monday
	sunday := time.Date(2024, 7, 21, 8, 0, 0, 0, time.UTC)
	got, err = uploadedSince(UploadedThisWeek, sunday)
	require.NoError(t, err)
	assert.True(t, time.Date(2024, 7, 15, 0, 0, 0, 0, time.UTC).Equal(*got))
}

func TestFeedService_BrowseWithoutTerm(t *testing.T) {
	feed := &stubFeed{rows: feedRows(5)}
	svc := NewFeedService(feed, newMemChannels(), nil, FeedOptions{})

	page, err := svc.Browse(context.Background(), Caller{}, FeedParams{})
	require.NoError(t, err)
	assert.True(t, page.NoResults)
	assert.Empty(t, page.Results)
	assert.NotNil(t, page.Results)
	assert.Empty(t, page.Next)
	assert.Zero(t, feed.calls)
}

func TestFeedService_BrowseValidatesFirst(t *testing.T) {
	svc := NewFeedService(&stubFeed{}, newMemChannels(), nil, FeedOptions{})
	ctx := context.Background()

	_, err := svc.Browse(ctx, Caller{}, FeedParams{Ordering: "name"})
	assert.ErrorIs(t, err, errcode.InvalidOrdering)

	_, err = svc.Browse(ctx, Caller{}, FeedParams{Uploaded: "decade"})
	assert.ErrorIs(t, err, errcode.InvalidUploadedFilter)

	_, err = svc.Browse(ctx, Caller{}, FeedParams{Search: "cats", Cursor: "%%%"})
	assert.ErrorIs(t, err, errcode.InvalidCursor)
}

func TestFeedService_BrowsePaginates(t *testing.T) {
	feed := &stubFeed{rows: feedRows(25)}
	svc := NewFeedService(feed, newMemChannels(), nil, FeedOptions{})
	ctx := context.Background()

	page, err := svc.Browse(ctx, Caller{}, FeedParams{Search: " cats "})
	require.NoError(t, err)
	assert.Len(t, page.Results, 10)
	assert.NotEmpty(t, page.Next)
	assert.False(t, page.NoResults)

	assert.Equal(t, 11, feed.last.Limit)
	assert.Equal(t, "cats", feed.last.Search)
	assert.Equal(t, repository.OrderNewest, feed.last.Ordering)
	assert.Equal(t, []model.VideoStatus{model.VideoStatusPublic}, feed.last.Visibility.Statuses)
	assert.True(t, feed.last.Visibility.ExcludeUploading)

	_, err = svc.Browse(ctx, Caller{}, FeedParams{Search: "cats", Cursor: page.Next})
	require.NoError(t, err)
	require.NotNil(t, feed.last.After)
	assert.Equal(t, page.Results[9].ID, feed.last.After.ID)

	page, err = svc.Browse(ctx, Caller{}, FeedParams{Search: "cats", PageSize: 500})
	require.NoError(t, err)
	assert.Len(t, page.Results, 20)
	assert.Equal(t, 21, feed.last.Limit)
}

func TestFeedService_LastPageHasNoNext(t *testing.T) {
	feed := &stubFeed{rows: feedRows(3)}
	svc := NewFeedService(feed, newMemChannels(), nil, FeedOptions{})

	page, err := svc.Browse(context.Background(), Caller{}, FeedParams{Search: "cats", Ordering: "-views_count"})
	require.NoError(t, err)
	assert.Len(t, page.Results, 3)
	assert.Empty(t, page.Next)
	assert.Equal(t, repository.OrderMostViewed, feed.last.Ordering)
}

func TestFeedService_EmptyMatchIsNotNoResults(t *testing.T) {
	svc := NewFeedService(&stubFeed{}, newMemChannels(), nil, FeedOptions{})

	page, err := svc.Browse(context.Background(), Caller{}, FeedParams{Search: "nothing matches"})
	require.NoError(t, err)
	assert.Empty(t, page.Results)
	assert.False(t, page.NoResults)
}

func TestFeedService_SearchIndex(t *testing.T) {
	feed := &stubFeed{rows: feedRows(2)}
	index := &stubSearch{ids: []string{"video000002", "video000001"}}
	svc := NewFeedService(feed, newMemChannels(), index, FeedOptions{})

	_, err := svc.Browse(context.Background(), Caller{}, FeedParams{Search: "cats"})
	require.NoError(t, err)
	assert.True(t, feed.last.RestrictIDs)
	assert.Equal(t, index.ids, feed.last.IDs)
	assert.Empty(t, feed.last.Search)
}

func TestFeedService_SearchIndexFallback(t *testing.T) {
	feed := &stubFeed{rows: feedRows(2)}
	svc := NewFeedService(feed, newMemChannels(), &stubSearch{err: errors.New("cluster red")}, FeedOptions{})

	page, err := svc.Browse(context.Background(), Caller{}, FeedParams{Search: "cats"})
	require.NoError(t, err)
	assert.Len(t, page.Results, 2)
	assert.False(t, feed.last.RestrictIDs)
	assert.Equal(t, "cats", feed.last.Search)
}

func TestFeedService_SearchIndexLimitFallsBackToDatabase(t *testing.T) {
	feed := &stubFeed{rows: feedRows(2)}
	index := &stubSearch{ids: []string{"video000001", "video000002", "video000003"}}
	svc := NewFeedService(feed, newMemChannels(), index, FeedOptions{SearchLimit: 3})

	_, err := svc.Browse(context.Background(), Caller{}, FeedParams{Search: "cats"})
	require.NoError(t, err)
	assert.False(t, feed.last.RestrictIDs)
	assert.Equal(t, "cats", feed.last.Search)

	index.ids = index.ids[:2]
	_, err = svc.Browse(context.Background(), Caller{}, FeedParams{Search: "dogs"})
	require.NoError(t, err)
	assert.True(t, feed.last.RestrictIDs)
	assert.Equal(t, []string{"video000001", "video000002"}, feed.last.IDs)
}

func TestFeedService_ChannelVideos(t *testing.T) {
	channels := newMemChannels(model.Channel{ID: owner.ChannelID, UserID: owner.UserID, Slug: "owner"})
	feed := &stubFeed{rows: feedRows(4)}
	svc := NewFeedService(feed, channels, &stubSearch{ids: []string{"x"}}, FeedOptions{})
	ctx := context.Background()

	_, err := svc.ChannelVideos(ctx, stranger, "nobody", FeedParams{})
	assert.ErrorIs(t, err, errcode.ChannelNotFound)

	page, err := svc.ChannelVideos(ctx, stranger, "owner", FeedParams{})
	require.NoError(t, err)
	assert.Len(t, page.Results, 4)
	require.NotNil(t, feed.last.AuthorID)
	assert.Equal(t, owner.ChannelID, *feed.last.AuthorID)
	assert.Equal(t, []model.VideoStatus{model.VideoStatusPublic}, feed.last.Visibility.Statuses)

	_, err = svc.ChannelVideos(ctx, owner, "owner", FeedParams{Search: "cats"})
	require.NoError(t, err)
	assert.Empty(t, feed.last.Visibility.Statuses)
	assert.False(t, feed.last.Visibility.ExcludeUploading)
	assert.False(t, feed.last.RestrictIDs)
	assert.Equal(t, "cats", feed.last.Search)
}
