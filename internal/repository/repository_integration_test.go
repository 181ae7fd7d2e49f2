package repository_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"clipstream/internal/errcode"
	"clipstream/internal/infra/database"
	infraMinio "clipstream/internal/infra/minio"
	"clipstream/internal/model"
	"clipstream/internal/repository"
	"clipstream/internal/service"

	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"
)

func startPostgres(ctx context.Context, t *testing.T) *gorm.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skip integration in short mode")
	}

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_PASSWORD": "postgres",
			"POSTGRES_USER":     "postgres",
			"POSTGRES_DB":       "clipstream",
		},
		WaitingFor: wait.ForSQL("5432/tcp", "pgx", func(host string, port nat.Port) string {
			return fmt.Sprintf("postgres://postgres:postgres@%s:%s/clipstream?sslmode=disable", host, port.Port())
		}).WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("skip integration: cannot start postgres container: %v", err)
	}
	t.Cleanup(func() {
		termCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = container.Terminate(termCtx)
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	db, err := database.Open(fmt.Sprintf("postgres://postgres:postgres@%s:%s/clipstream?sslmode=disable", host, port.Port()))
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	return db
}

func seedChannel(ctx context.Context, t *testing.T, db *gorm.DB, slug string) *model.Channel {
	t.Helper()
	user := &model.User{UserName: slug, Password: "x"}
	channel := &model.Channel{Name: slug, Slug: slug}
	require.NoError(t, repository.NewUserRepository(db).CreateWithChannel(ctx, user, channel))
	return channel
}

// acceptingStorage opens and closes every multipart upload it is asked for.
type acceptingStorage struct {
	seq int
}

func (s *acceptingStorage) CreateMultipartUpload(_ context.Context, _, _, _ string) (string, error) {
	s.seq++
	return fmt.Sprintf("mp-int-%d", s.seq), nil
}

func (s *acceptingStorage) SignPartURL(_ context.Context, bucket, key, uploadID string, part int, _ time.Duration) (string, error) {
	return fmt.Sprintf("https://storage.test/%s/%s?uploadId=%s&partNumber=%d", bucket, key, uploadID, part), nil
}

func (s *acceptingStorage) CompleteMultipartUpload(_ context.Context, bucket, key, _ string, _ []infraMinio.Part) (*infraMinio.ObjectRef, error) {
	return &infraMinio.ObjectRef{Bucket: bucket, Key: key}, nil
}

func (s *acceptingStorage) AbortMultipartUpload(_ context.Context, _, _, _ string) error {
	return nil
}

func (s *acceptingStorage) SignGetURL(_ context.Context, bucket, key string, _ time.Duration) (string, error) {
	return "https://storage.test/" + bucket + "/" + key, nil
}

func (s *acceptingStorage) SignPutURL(_ context.Context, bucket, key string, _ time.Duration) (string, error) {
	return "https://storage.test/" + bucket + "/" + key, nil
}

func (s *acceptingStorage) RemoveObject(_ context.Context, _, _ string) error {
	return nil
}

// pageThrough follows cursors until a short page and returns every id seen.
func pageThrough(ctx context.Context, t *testing.T, feed *repository.FeedRepository, q repository.FeedQuery) []string {
	t.Helper()
	var ids []string
	for page := 0; page < 10; page++ {
		rows, err := feed.List(ctx, q)
		require.NoError(t, err)
		for _, row := range rows {
			ids = append(ids, row.ID)
		}
		if len(rows) < q.Limit {
			return ids
		}
		last := rows[len(rows)-1]
		q.After = &repository.Cursor{CreatedAt: last.CreatedAt, Views: last.ViewsCount, ID: last.ID}
	}
	t.Fatalf("pagination did not terminate, seen %v", ids)
	return nil
}

func TestRepositories_Integration(t *testing.T) {
	ctx := context.Background()
	db := startPostgres(ctx, t)

	alice := seedChannel(ctx, t, db, "alice")
	bob := seedChannel(ctx, t, db, "bob")

	t.Run("duplicate slug", func(t *testing.T) {
		err := repository.NewUserRepository(db).CreateWithChannel(ctx,
			&model.User{UserName: "alice2", Password: "x"},
			&model.Channel{Name: "dup", Slug: "alice"},
		)
		require.ErrorIs(t, err, gorm.ErrDuplicatedKey)

		exists, err := repository.NewUserRepository(db).ExistsByUsername(ctx, "alice2")
		require.NoError(t, err)
		require.False(t, exists)
	})

	t.Run("upload claim is exclusive", func(t *testing.T) {
		uploads := repository.NewUploadRepository(db)
		video := &model.Video{ID: "upload00001", AuthorID: alice.ID, Name: "u", Status: model.VideoStatusPrivate, StorageKey: "videos/upload00001/a.mp4", UploadState: model.UploadStateUploading}
		session := &model.UploadSession{VideoID: video.ID, UploadID: "mp-1", State: model.UploadSessionActive, ExpiresAt: time.Now().Add(time.Hour)}
		require.NoError(t, uploads.CreateVideoWithSession(ctx, video, session))

		won, err := uploads.ClaimSession(ctx, video.ID, "mp-1", model.UploadSessionCompleting)
		require.NoError(t, err)
		require.True(t, won)
		won, err = uploads.ClaimSession(ctx, video.ID, "mp-1", model.UploadSessionAborting)
		require.NoError(t, err)
		require.False(t, won)

		require.ErrorIs(t, uploads.FinishAborted(ctx, video.ID, "mp-1"), gorm.ErrRecordNotFound)

		ready, err := uploads.FinishCompleted(ctx, video.ID, "mp-1")
		require.NoError(t, err)
		require.Equal(t, model.UploadStateReady, ready.UploadState)

		_, err = uploads.GetSession(ctx, video.ID, "mp-1")
		require.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})

	t.Run("expired sessions", func(t *testing.T) {
		uploads := repository.NewUploadRepository(db)
		video := &model.Video{ID: "expired0001", AuthorID: alice.ID, Name: "e", Status: model.VideoStatusPrivate, StorageKey: "k", UploadState: model.UploadStateUploading}
		session := &model.UploadSession{VideoID: video.ID, UploadID: "mp-2", State: model.UploadSessionActive, ExpiresAt: time.Now().Add(-time.Minute)}
		require.NoError(t, uploads.CreateVideoWithSession(ctx, video, session))

		expired, err := uploads.ListExpired(ctx, time.Now(), 10)
		require.NoError(t, err)
		require.Len(t, expired, 1)
		require.Equal(t, "mp-2", expired[0].UploadID)

		won, err := uploads.ClaimSession(ctx, video.ID, "mp-2", model.UploadSessionAborting)
		require.NoError(t, err)
		require.True(t, won)
		released, err := uploads.ReleaseStaleClaims(ctx, time.Now().Add(time.Minute))
		require.NoError(t, err)
		require.Equal(t, int64(1), released)

		won, err = uploads.ClaimSession(ctx, video.ID, "mp-2", model.UploadSessionAborting)
		require.NoError(t, err)
		require.True(t, won)
		require.NoError(t, uploads.FinishAborted(ctx, video.ID, "mp-2"))

		exists, err := repository.NewVideoRepository(db).Exists(ctx, video.ID)
		require.NoError(t, err)
		require.False(t, exists)
	})

	videos := repository.NewVideoRepository(db)
	public := &model.Video{ID: "public00001", AuthorID: bob.ID, Name: "Cats on a boat", Status: model.VideoStatusPublic, Link: "https://x", UploadState: model.UploadStateNone}
	hidden := &model.Video{ID: "private0001", AuthorID: bob.ID, Name: "Cats at home", Status: model.VideoStatusPrivate, Link: "https://x", UploadState: model.UploadStateNone}
	require.NoError(t, videos.Create(ctx, public))
	require.NoError(t, videos.Create(ctx, hidden))

	t.Run("like upsert keeps one row", func(t *testing.T) {
		likes := repository.NewLikeRepository(db)
		_, err := likes.Upsert(ctx, alice.ID, public.ID, true)
		require.NoError(t, err)
		_, err = likes.Upsert(ctx, alice.ID, public.ID, false)
		require.NoError(t, err)

		var rows []model.VideoLike
		require.NoError(t, db.Where("video_id = ?", public.ID).Find(&rows).Error)
		require.Len(t, rows, 1)
		require.False(t, rows[0].IsLike)

		_, err = likes.Upsert(ctx, alice.ID, "missing0001", true)
		require.ErrorIs(t, err, gorm.ErrForeignKeyViolated)
	})

	t.Run("view dedup window", func(t *testing.T) {
		views := repository.NewViewRepository(db)
		now := time.Now().UTC()
		channelID := alice.ID

		created, err := views.RegisterIfFresh(ctx, &model.VideoView{VideoID: public.ID, ChannelID: &channelID, IPAddress: "1.1.1.1", CreatedAt: now}, now.Add(-24*time.Hour))
		require.NoError(t, err)
		require.True(t, created)

		created, err = views.RegisterIfFresh(ctx, &model.VideoView{VideoID: public.ID, ChannelID: &channelID, IPAddress: "2.2.2.2", CreatedAt: now}, now.Add(-24*time.Hour))
		require.NoError(t, err)
		require.False(t, created)

		created, err = views.RegisterIfFresh(ctx, &model.VideoView{VideoID: public.ID, IPAddress: "1.1.1.1", CreatedAt: now}, now.Add(-24*time.Hour))
		require.NoError(t, err)
		require.True(t, created)

		var count int64
		require.NoError(t, db.Model(&model.VideoView{}).Where("video_id = ?", public.ID).Count(&count).Error)
		require.Equal(t, int64(2), count)
	})

	t.Run("feed visibility and search", func(t *testing.T) {
		feed := repository.NewFeedRepository(db)
		publicOnly := repository.VisibilityFilter{Statuses: []model.VideoStatus{model.VideoStatusPublic}, ExcludeUploading: true}

		rows, err := feed.List(ctx, repository.FeedQuery{Visibility: publicOnly, Search: "cats", Limit: 10})
		require.NoError(t, err)
		require.Len(t, rows, 1)
		require.Equal(t, public.ID, rows[0].ID)
		require.Equal(t, "bob", rows[0].AuthorSlug)
		require.Equal(t, int64(1), rows[0].DislikesCount)
		require.Equal(t, int64(2), rows[0].ViewsCount)

		rows, err = feed.List(ctx, repository.FeedQuery{AuthorID: &bob.ID, Search: "CATS", Limit: 10})
		require.NoError(t, err)
		require.Len(t, rows, 2)

		rows, err = feed.List(ctx, repository.FeedQuery{Visibility: publicOnly, Search: "100%", Limit: 10})
		require.NoError(t, err)
		require.Empty(t, rows)

		rows, err = feed.List(ctx, repository.FeedQuery{Visibility: publicOnly, RestrictIDs: true, Limit: 10})
		require.NoError(t, err)
		require.Empty(t, rows)
	})

	t.Run("keyset pagination", func(t *testing.T) {
		carol := seedChannel(ctx, t, db, "carol")
		base := time.Now().UTC().Truncate(time.Second)
		ages := map[string]time.Duration{
			"carol000001": 5 * time.Hour,
			"carol000002": 3 * time.Hour,
			"carol000003": 3 * time.Hour,
			"carol000004": 30 * time.Minute,
			"carol000005": 10 * time.Minute,
		}
		views := map[string]int{"carol000001": 3, "carol000002": 1, "carol000003": 1, "carol000004": 0, "carol000005": 2}
		for id, age := range ages {
			require.NoError(t, videos.Create(ctx, &model.Video{
				ID: id, AuthorID: carol.ID, Name: "clip " + id, Status: model.VideoStatusPublic,
				Link: "https://x", UploadState: model.UploadStateNone, CreatedAt: base.Add(-age),
			}))
			for i := 0; i < views[id]; i++ {
				require.NoError(t, db.Create(&model.VideoView{
					VideoID: id, IPAddress: fmt.Sprintf("10.0.0.%d", i+1), CreatedAt: base,
				}).Error)
			}
		}

		feed := repository.NewFeedRepository(db)
		publicOnly := repository.VisibilityFilter{Statuses: []model.VideoStatus{model.VideoStatusPublic}, ExcludeUploading: true}
		query := repository.FeedQuery{Visibility: publicOnly, AuthorID: &carol.ID, Limit: 2}

		newest := query
		newest.Ordering = repository.OrderNewest
		require.Equal(t,
			[]string{"carol000005", "carol000004", "carol000003", "carol000002", "carol000001"},
			pageThrough(ctx, t, feed, newest),
		)

		mostViewed := query
		mostViewed.Ordering = repository.OrderMostViewed
		require.Equal(t,
			[]string{"carol000001", "carol000005", "carol000003", "carol000002", "carol000004"},
			pageThrough(ctx, t, feed, mostViewed),
		)

		since := base.Add(-time.Hour)
		recent := newest
		recent.Since = &since
		require.Equal(t, []string{"carol000005", "carol000004"}, pageThrough(ctx, t, feed, recent))
	})

	t.Run("upload lifecycle through the coordinator", func(t *testing.T) {
		uploads := repository.NewUploadRepository(db)
		coord, err := service.NewUploadCoordinator(&acceptingStorage{}, uploads, videos, nil, service.UploadOptions{Bucket: "videos"})
		require.NoError(t, err)
		caller := service.Caller{UserID: alice.UserID, ChannelID: alice.ID}
		parts := []infraMinio.Part{{Number: 1, ETag: "etag-1"}}

		done, err := coord.CreateUpload(ctx, caller, service.CreateUploadInput{Filename: "clip.mp4"})
		require.NoError(t, err)
		ready, err := coord.CompleteUpload(ctx, caller, done.VideoID, done.UploadID, parts)
		require.NoError(t, err)
		require.Equal(t, model.UploadStateReady, ready.UploadState)

		_, err = coord.CompleteUpload(ctx, caller, done.VideoID, done.UploadID, parts)
		require.ErrorIs(t, err, errcode.NotFoundByUploadID)
		require.ErrorIs(t, coord.AbortUpload(ctx, caller, done.VideoID, done.UploadID), errcode.NotFoundByUploadID)

		stored, err := videos.GetByID(ctx, done.VideoID)
		require.NoError(t, err)
		require.Equal(t, model.UploadStateReady, stored.UploadState)

		dropped, err := coord.CreateUpload(ctx, caller, service.CreateUploadInput{Filename: "drop.mp4"})
		require.NoError(t, err)
		require.NoError(t, coord.AbortUpload(ctx, caller, dropped.VideoID, dropped.UploadID))
		_, err = coord.GeneratePartURL(ctx, caller, dropped.VideoID, dropped.UploadID, 1)
		require.ErrorIs(t, err, errcode.NotFoundByUploadID)

		_, err = coord.GeneratePartURL(ctx, caller, "nosuchvideo", dropped.UploadID, 1)
		require.ErrorIs(t, err, errcode.VideoNotFoundByKey)

		purged, err := uploads.PurgeAborted(ctx, time.Now().Add(time.Minute))
		require.NoError(t, err)
		require.GreaterOrEqual(t, purged, int64(1))
		_, err = coord.GeneratePartURL(ctx, caller, dropped.VideoID, dropped.UploadID, 1)
		require.ErrorIs(t, err, errcode.VideoNotFoundByKey)
	})
}
