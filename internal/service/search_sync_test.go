package service

import (
	"context"
	"testing"
	"time"

	infraES "clipstream/internal/infra/elasticsearch"
	infraKafka "clipstream/internal/infra/kafka"
	"clipstream/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingIndex struct {
	indexed map[string]*infraES.VideoDoc
	deleted []string
}

func (r *recordingIndex) IndexVideo(_ context.Context, doc *infraES.VideoDoc) error {
	if r.indexed == nil {
		r.indexed = map[string]*infraES.VideoDoc{}
	}
	r.indexed[doc.ID] = doc
	return nil
}

func (r *recordingIndex) DeleteVideo(_ context.Context, videoID string) error {
	r.deleted = append(r.deleted, videoID)
	return nil
}

func TestSearchable(t *testing.T) {
	assert.True(t, Searchable(&model.Video{Status: model.VideoStatusPublic, UploadState: model.UploadStateReady}))
	assert.True(t, Searchable(&model.Video{Status: model.VideoStatusPublic, UploadState: model.UploadStateNone}))
	assert.False(t, Searchable(&model.Video{Status: model.VideoStatusPublic, UploadState: model.UploadStateUploading}))
	assert.False(t, Searchable(&model.Video{Status: model.VideoStatusUnlisted, UploadState: model.UploadStateReady}))
	assert.False(t, Searchable(&model.Video{Status: model.VideoStatusPrivate, UploadState: model.UploadStateReady}))
}

func TestToVideoDoc(t *testing.T) {
	doc := ToVideoDoc(&model.VideoWithStats{
		ID:         "abcDEF12345",
		AuthorID:   7,
		AuthorName: "Cats Daily",
		AuthorSlug: "cats",
		Name:       "Cat jumps",
		Status:     model.VideoStatusPublic,
		CreatedAt:  time.Date(2024, 4, 5, 6, 7, 8, 0, time.FixedZone("X", 3600)),
	})
	assert.Equal(t, "abcDEF12345", doc.ID)
	assert.Equal(t, "cats", doc.AuthorSlug)
	assert.Equal(t, "PUBLIC", doc.Status)
	assert.Equal(t, "2024-04-05T05:07:08Z", doc.CreatedAt)
}

func TestSearchSync_HandleEvent(t *testing.T) {
	videos := newMemStore()
	videos.put(&model.Video{ID: "publicVid01", Status: model.VideoStatusPublic, UploadState: model.UploadStateReady})
	videos.put(&model.Video{ID: "privateVid1", Status: model.VideoStatusPrivate, UploadState: model.UploadStateReady})
	index := &recordingIndex{}
	indexer := NewSearchSync(videos, index)
	ctx := context.Background()

	require.NoError(t, indexer.HandleEvent(ctx, infraKafka.NewVideoEvent(infraKafka.EventVideoCreated, "publicVid01")))
	require.NoError(t, indexer.HandleEvent(ctx, infraKafka.NewVideoEvent(infraKafka.EventVideoUpdated, "privateVid1")))
	require.NoError(t, indexer.HandleEvent(ctx, infraKafka.NewVideoEvent(infraKafka.EventVideoDeleted, "goneVideo01")))

	assert.Contains(t, index.indexed, "publicVid01")
	assert.NotContains(t, index.indexed, "privateVid1")
	assert.Equal(t, []string{"privateVid1", "goneVideo01"}, index.deleted)
}

func TestSearchSync_ChannelEventRefreshesChannelVideos(t *testing.T) {
	videos := newMemStore()
	videos.put(&model.Video{ID: "ownerPublic", AuthorID: owner.ChannelID, Status: model.VideoStatusPublic, UploadState: model.UploadStateReady})
	videos.put(&model.Video{ID: "ownerHidden", AuthorID: owner.ChannelID, Status: model.VideoStatusPrivate, UploadState: model.UploadStateReady})
	videos.put(&model.Video{ID: "otherPublic", AuthorID: stranger.ChannelID, Status: model.VideoStatusPublic, UploadState: model.UploadStateReady})
	index := &recordingIndex{}
	indexer := NewSearchSync(videos, index)

	event := infraKafka.NewChannelEvent(infraKafka.EventChannelUpdated, owner.ChannelID)
	assert.Equal(t, "channel:1", event.Key())
	require.NoError(t, indexer.HandleEvent(context.Background(), event))

	assert.Len(t, index.indexed, 1)
	assert.Contains(t, index.indexed, "ownerPublic")
	assert.Equal(t, []string{"ownerHidden"}, index.deleted)
}
