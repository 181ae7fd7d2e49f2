package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	infraKafka "clipstream/internal/infra/kafka"
	infraMinio "clipstream/internal/infra/minio"
	"clipstream/internal/model"
	"clipstream/internal/repository"

	"gorm.io/gorm"
)

// memStore is an in-memory VideoStore and UploadStore.
type memStore struct {
	mu       sync.Mutex
	videos   map[string]*model.Video
	sessions map[string]*model.UploadSession
	aborted  map[string]time.Time
}

func newMemStore() *memStore {
	return &memStore{
		videos:   map[string]*model.Video{},
		sessions: map[string]*model.UploadSession{},
		aborted:  map[string]time.Time{},
	}
}

func sessionKey(videoID, uploadID string) string {
	return videoID + "/" + uploadID
}

func (m *memStore) put(v *model.Video) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *v
	m.videos[v.ID] = &cp
}

func (m *memStore) Exists(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.videos[id]
	return ok, nil
}

func (m *memStore) Create(_ context.Context, video *model.Video) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.videos[video.ID]; ok {
		return gorm.ErrDuplicatedKey
	}
	video.CreatedAt = time.Now().UTC()
	cp := *video
	m.videos[video.ID] = &cp
	return nil
}

func (m *memStore) GetByID(_ context.Context, id string) (*model.Video, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.videos[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *v
	return &cp, nil
}

func (m *memStore) ListIDsByAuthor(_ context.Context, authorID int64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for id, v := range m.videos {
		if v.AuthorID == authorID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *memStore) GetWithStats(ctx context.Context, id string) (*model.VideoWithStats, error) {
	v, err := m.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &model.VideoWithStats{
		ID:          v.ID,
		AuthorID:    v.AuthorID,
		Name:        v.Name,
		Description: v.Description,
		Status:      v.Status,
		Link:        v.Link,
		StorageKey:  v.StorageKey,
		UploadState: v.UploadState,
		CreatedAt:   v.CreatedAt,
		UpdatedAt:   v.UpdatedAt,
	}, nil
}

func (m *memStore) Update(_ context.Context, id string, updates map[string]interface{}) (*model.Video, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.videos[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	for k, val := range updates {
		switch k {
		case "name":
			v.Name = val.(string)
		case "description":
			v.Description = val.(string)
		case "status":
			v.Status = val.(model.VideoStatus)
		case "link":
			v.Link = val.(string)
		}
	}
	cp := *v
	return &cp, nil
}

func (m *memStore) Delete(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.videos[id]; !ok {
		return false, nil
	}
	delete(m.videos, id)
	return true, nil
}

func (m *memStore) CreateVideoWithSession(_ context.Context, video *model.Video, session *model.UploadSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.videos[video.ID]; ok {
		return gorm.ErrDuplicatedKey
	}
	video.CreatedAt = time.Now().UTC()
	v := *video
	s := *session
	m.videos[video.ID] = &v
	m.sessions[sessionKey(session.VideoID, session.UploadID)] = &s
	return nil
}

func (m *memStore) GetSession(_ context.Context, videoID, uploadID string) (*model.UploadSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionKey(videoID, uploadID)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memStore) ClaimSession(_ context.Context, videoID, uploadID string, to model.UploadSessionState) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionKey(videoID, uploadID)]
	if !ok || s.State != model.UploadSessionActive {
		return false, nil
	}
	s.State = to
	return true, nil
}

func (m *memStore) ReleaseSession(_ context.Context, videoID, uploadID string, from model.UploadSessionState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[sessionKey(videoID, uploadID)]; ok && s.State == from {
		s.State = model.UploadSessionActive
	}
	return nil
}

func (m *memStore) FinishCompleted(_ context.Context, videoID, uploadID string) (*model.Video, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := sessionKey(videoID, uploadID)
	s, ok := m.sessions[key]
	if !ok || s.State != model.UploadSessionCompleting {
		return nil, gorm.ErrRecordNotFound
	}
	delete(m.sessions, key)
	v := m.videos[videoID]
	v.UploadState = model.UploadStateReady
	cp := *v
	return &cp, nil
}

func (m *memStore) FinishAborted(_ context.Context, videoID, uploadID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := sessionKey(videoID, uploadID)
	s, ok := m.sessions[key]
	if !ok || s.State != model.UploadSessionAborting {
		return gorm.ErrRecordNotFound
	}
	delete(m.sessions, key)
	delete(m.videos, videoID)
	m.aborted[videoID] = time.Now().UTC()
	return nil
}

func (m *memStore) WasAborted(_ context.Context, videoID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.aborted[videoID]
	return ok, nil
}

func (m *memStore) PurgeAborted(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, at := range m.aborted {
		if at.Before(before) {
			delete(m.aborted, id)
			n++
		}
	}
	return n, nil
}

func (m *memStore) ListExpired(_ context.Context, now time.Time, limit int) ([]model.UploadSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.UploadSession
	for _, s := range m.sessions {
		if s.State == model.UploadSessionActive && s.ExpiresAt.Before(now) {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VideoID < out[j].VideoID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) ReleaseStaleClaims(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

func (m *memStore) sessionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// fakeStorage records multipart uploads without touching a network.
type fakeStorage struct {
	mu          sync.Mutex
	seq         int
	open        map[string]string
	completed   map[string]bool
	aborted     []string
	removed     []string
	completeErr error
	createErr   error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{open: map[string]string{}, completed: map[string]bool{}}
}

func (f *fakeStorage) CreateMultipartUpload(_ context.Context, _, key, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return "", f.createErr
	}
	f.seq++
	id := fmt.Sprintf("upload-%d", f.seq)
	f.open[id] = key
	return id, nil
}

func (f *fakeStorage) SignPartURL(_ context.Context, bucket, key, uploadID string, partNumber int, _ time.Duration) (string, error) {
	return fmt.Sprintf("https://storage.test/%s/%s?uploadId=%s&partNumber=%d", bucket, key, uploadID, partNumber), nil
}

func (f *fakeStorage) CompleteMultipartUpload(_ context.Context, bucket, key, uploadID string, _ []infraMinio.Part) (*infraMinio.ObjectRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.completeErr != nil {
		return nil, f.completeErr
	}
	if _, ok := f.open[uploadID]; !ok {
		return nil, infraMinio.ErrUploadNotFound
	}
	delete(f.open, uploadID)
	f.completed[key] = true
	return &infraMinio.ObjectRef{Bucket: bucket, Key: key}, nil
}

func (f *fakeStorage) AbortMultipartUpload(_ context.Context, _, _, uploadID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.aborted = append(f.aborted, uploadID)
	if _, ok := f.open[uploadID]; !ok {
		return infraMinio.ErrUploadNotFound
	}
	delete(f.open, uploadID)
	return nil
}

func (f *fakeStorage) SignGetURL(_ context.Context, bucket, key string, _ time.Duration) (string, error) {
	return "https://storage.test/" + bucket + "/" + key + "?signed=get", nil
}

func (f *fakeStorage) SignPutURL(_ context.Context, bucket, key string, _ time.Duration) (string, error) {
	return "https://storage.test/" + bucket + "/" + key + "?signed=put", nil
}

func (f *fakeStorage) RemoveObject(_ context.Context, _, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, key)
	return nil
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []*infraKafka.VideoEvent
}

func (p *recordingPublisher) Publish(_ context.Context, event *infraKafka.VideoEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) types() []infraKafka.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]infraKafka.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// memLikes keeps one row per (channel, video).
type memLikes struct {
	mu   sync.Mutex
	rows map[string]*model.VideoLike
}

func newMemLikes() *memLikes {
	return &memLikes{rows: map[string]*model.VideoLike{}}
}

func likeKey(channelID int64, videoID string) string {
	return fmt.Sprintf("%d/%s", channelID, videoID)
}

func (m *memLikes) Upsert(_ context.Context, channelID int64, videoID string, isLike bool) (*model.VideoLike, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := likeKey(channelID, videoID)
	row, ok := m.rows[key]
	if !ok {
		row = &model.VideoLike{ID: int64(len(m.rows) + 1), ChannelID: channelID, VideoID: videoID}
		m.rows[key] = row
	}
	row.IsLike = isLike
	cp := *row
	return &cp, nil
}

func (m *memLikes) Delete(_ context.Context, channelID int64, videoID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := likeKey(channelID, videoID)
	if _, ok := m.rows[key]; !ok {
		return false, nil
	}
	delete(m.rows, key)
	return true, nil
}

// memViews dedups by identity inside the window like the database query does.
type memViews struct {
	mu   sync.Mutex
	rows []model.VideoView
}

func (m *memViews) RegisterIfFresh(_ context.Context, view *model.VideoView, since time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.VideoID != view.VideoID || r.CreatedAt.Before(since) {
			continue
		}
		sameChannel := r.ChannelID != nil && view.ChannelID != nil && *r.ChannelID == *view.ChannelID
		sameIP := r.ChannelID == nil && view.ChannelID == nil && r.IPAddress == view.IPAddress
		if sameChannel || sameIP {
			return false, nil
		}
	}
	m.rows = append(m.rows, *view)
	return true, nil
}

// memGate mimics SETNX without expiry.
type memGate struct {
	mu   sync.Mutex
	keys map[string]bool
	err  error
}

func (g *memGate) Acquire(_ context.Context, videoID, identity string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return false, g.err
	}
	if g.keys == nil {
		g.keys = map[string]bool{}
	}
	k := videoID + ":" + identity
	if g.keys[k] {
		return false, nil
	}
	g.keys[k] = true
	return true, nil
}

func (g *memGate) Release(_ context.Context, videoID, identity string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.keys, videoID+":"+identity)
	return nil
}

// expiringGate mimics SET NX EX against a caller-controlled clock.
type expiringGate struct {
	mu   sync.Mutex
	now  func() time.Time
	ttl  time.Duration
	keys map[string]time.Time
	err  error
}

func newExpiringGate(now func() time.Time, ttl time.Duration) *expiringGate {
	return &expiringGate{now: now, ttl: ttl, keys: map[string]time.Time{}}
}

func (g *expiringGate) Acquire(_ context.Context, videoID, identity string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return false, g.err
	}
	k := videoID + ":" + identity
	if expires, ok := g.keys[k]; ok && g.now().Before(expires) {
		return false, nil
	}
	g.keys[k] = g.now().Add(g.ttl)
	return true, nil
}

func (g *expiringGate) Release(_ context.Context, videoID, identity string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return g.err
	}
	delete(g.keys, videoID+":"+identity)
	return nil
}

// memChannels serves channels by id and slug.
type memChannels struct {
	byID map[int64]*model.Channel
}

func newMemChannels(chs ...model.Channel) *memChannels {
	m := &memChannels{byID: map[int64]*model.Channel{}}
	for i := range chs {
		ch := chs[i]
		m.byID[ch.ID] = &ch
	}
	return m
}

func (m *memChannels) GetByID(_ context.Context, id int64) (*model.Channel, error) {
	ch, ok := m.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *ch
	return &cp, nil
}

func (m *memChannels) GetBySlug(_ context.Context, slug string) (*model.Channel, error) {
	for _, ch := range m.byID {
		if ch.Slug == slug {
			cp := *ch
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memChannels) GetDetailBySlug(ctx context.Context, slug string) (*model.ChannelWithStats, error) {
	ch, err := m.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	return &model.ChannelWithStats{ID: ch.ID, UserID: ch.UserID, Name: ch.Name, Slug: ch.Slug, AvatarKey: ch.AvatarKey}, nil
}

func (m *memChannels) Update(_ context.Context, id int64, updates map[string]interface{}) (*model.Channel, error) {
	ch, ok := m.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	for k, val := range updates {
		switch k {
		case "name":
			ch.Name = val.(string)
		case "description":
			ch.Description = val.(string)
		case "avatar_key":
			ch.AvatarKey = val.(string)
		}
	}
	cp := *ch
	return &cp, nil
}

// memSubs stores subscription pairs.
type memSubs struct {
	pairs map[[2]int64]bool
}

func (m *memSubs) Create(_ context.Context, subscriberID, subscribedToID int64) (*model.SubscriptionItem, error) {
	if m.pairs == nil {
		m.pairs = map[[2]int64]bool{}
	}
	k := [2]int64{subscriberID, subscribedToID}
	if m.pairs[k] {
		return nil, gorm.ErrDuplicatedKey
	}
	m.pairs[k] = true
	return &model.SubscriptionItem{SubscriberID: subscriberID, SubscribedToID: subscribedToID}, nil
}

func (m *memSubs) Delete(_ context.Context, subscriberID, subscribedToID int64) (bool, error) {
	k := [2]int64{subscriberID, subscribedToID}
	if !m.pairs[k] {
		return false, nil
	}
	delete(m.pairs, k)
	return true, nil
}

func (m *memSubs) ListSubscribedChannels(_ context.Context, _ int64, _, _ int) ([]model.ChannelWithStats, int64, error) {
	return nil, 0, nil
}

// stubFeed returns canned rows and records the last query.
type stubFeed struct {
	rows  []model.VideoWithStats
	last  repository.FeedQuery
	calls int
}

func (f *stubFeed) List(_ context.Context, q repository.FeedQuery) ([]model.VideoWithStats, error) {
	f.calls++
	f.last = q
	rows := f.rows
	if q.Limit < len(rows) {
		rows = rows[:q.Limit]
	}
	return rows, nil
}

// stubSearch returns fixed ids or an error.
type stubSearch struct {
	ids []string
	err error
}

func (s *stubSearch) SearchVideoIDs(_ context.Context, _ string, _ int) ([]string, error) {
	return s.ids, s.err
}
