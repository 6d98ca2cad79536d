package services

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oultic/oultic-backend/internal/logger"
	"github.com/oultic/oultic-backend/internal/repos"
	"github.com/oultic/oultic-backend/internal/types"
)

func testLogger(t interface{ Fatalf(string, ...interface{}) }) *logger.Logger {
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("init test logger: %v", err)
	}
	return log
}

// fakeUserRepo keeps users in a map. Only the methods the recommendation
// paths touch are meaningful; the rest satisfy the interface.
type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*types.User
	err   error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[uuid.UUID]*types.User{}}
}

func (f *fakeUserRepo) add(u *types.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[u.ID] = u
}

func (f *fakeUserRepo) Create(ctx context.Context, user *types.User) error {
	f.add(user)
	return nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*types.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, repos.ErrNotFound
	}
	return u, nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, repos.ErrNotFound
}

func (f *fakeUserRepo) GetByUsername(ctx context.Context, username string) (*types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, repos.ErrNotFound
}

func (f *fakeUserRepo) GetByOAuth(ctx context.Context, provider, subject string) (*types.User, error) {
	return nil, repos.ErrNotFound
}

func (f *fakeUserRepo) Update(ctx context.Context, user *types.User) error {
	f.add(user)
	return nil
}

func (f *fakeUserRepo) ApplyStatsDelta(ctx context.Context, id uuid.UUID, delta types.UserStatsDelta) error {
	return nil
}

func (f *fakeUserRepo) Search(ctx context.Context, query string, limit, offset int) ([]*types.User, error) {
	return []*types.User{}, nil
}

func (f *fakeUserRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	_, err := f.GetByEmail(ctx, email)
	if errors.Is(err, repos.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (f *fakeUserRepo) UsernameExists(ctx context.Context, username string) (bool, error) {
	_, err := f.GetByUsername(ctx, username)
	if errors.Is(err, repos.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// fakeVideoRepo serves videos from a map and mimics the tie-break ordering of
// the real stores.
type fakeVideoRepo struct {
	mu     sync.Mutex
	videos map[uuid.UUID]*types.Video

	trendingErr error
	listErr     error
}

func newFakeVideoRepo() *fakeVideoRepo {
	return &fakeVideoRepo{videos: map[uuid.UUID]*types.Video{}}
}

func (f *fakeVideoRepo) add(v *types.Video) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.videos[v.ID] = v
}

func (f *fakeVideoRepo) Create(ctx context.Context, video *types.Video) error {
	f.add(video)
	return nil
}

func (f *fakeVideoRepo) GetByID(ctx context.Context, id uuid.UUID) (*types.Video, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.videos[id]
	if !ok {
		return nil, repos.ErrNotFound
	}
	return v, nil
}

func (f *fakeVideoRepo) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*types.Video, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*types.Video, 0, len(ids))
	for _, id := range ids {
		if v, ok := f.videos[id]; ok {
			out = append(out, v)
		}
	}
	return out, nil
}

func (f *fakeVideoRepo) Update(ctx context.Context, video *types.Video) error {
	f.add(video)
	return nil
}

func (f *fakeVideoRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	v, err := f.GetByID(ctx, id)
	if err != nil {
		return err
	}
	v.Status = types.VideoStatusRemoved
	return nil
}

func (f *fakeVideoRepo) ListByCategory(ctx context.Context, category types.VideoCategory, limit, offset int) ([]*types.Video, error) {
	return []*types.Video{}, nil
}

func (f *fakeVideoRepo) ListByChannel(ctx context.Context, channelID uuid.UUID, publishedOnly bool, limit, offset int) ([]*types.Video, error) {
	return []*types.Video{}, nil
}

func (f *fakeVideoRepo) Search(ctx context.Context, query string, category types.VideoCategory, limit, offset int) ([]*types.Video, error) {
	return []*types.Video{}, nil
}

func (f *fakeVideoRepo) GetTrending(ctx context.Context, limit int) ([]*types.Video, error) {
	if f.trendingErr != nil {
		return nil, f.trendingErr
	}
	published := f.published()
	sort.Slice(published, func(i, j int) bool {
		if published[i].TrendingScore != published[j].TrendingScore {
			return published[i].TrendingScore > published[j].TrendingScore
		}
		if !published[i].CreatedAt.Equal(published[j].CreatedAt) {
			return published[i].CreatedAt.After(published[j].CreatedAt)
		}
		return published[i].ID.String() < published[j].ID.String()
	})
	if len(published) > limit {
		published = published[:limit]
	}
	return published, nil
}

func (f *fakeVideoRepo) GetPopularSince(ctx context.Context, since time.Time, limit int) ([]*types.Video, error) {
	published := f.published()
	kept := published[:0]
	for _, v := range published {
		if !v.CreatedAt.Before(since) {
			kept = append(kept, v)
		}
	}
	sort.Slice(kept, func(i, j int) bool {
		return kept[i].Metrics.Views > kept[j].Metrics.Views
	})
	if len(kept) > limit {
		kept = kept[:limit]
	}
	return kept, nil
}

func (f *fakeVideoRepo) ListRecentPublished(ctx context.Context, exclude []uuid.UUID, limit int) ([]*types.Video, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	excluded := make(map[uuid.UUID]struct{}, len(exclude))
	for _, id := range exclude {
		excluded[id] = struct{}{}
	}
	published := f.published()
	kept := published[:0]
	for _, v := range published {
		if _, ok := excluded[v.ID]; !ok {
			kept = append(kept, v)
		}
	}
	sort.Slice(kept, func(i, j int) bool {
		return kept[i].CreatedAt.After(kept[j].CreatedAt)
	})
	if len(kept) > limit {
		kept = kept[:limit]
	}
	return kept, nil
}

func (f *fakeVideoRepo) ApplyCounterDelta(ctx context.Context, id uuid.UUID, delta types.CounterDelta) error {
	v, err := f.GetByID(ctx, id)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	v.Metrics.Views += delta.Views
	v.Metrics.Likes += delta.Likes
	v.Metrics.Dislikes += delta.Dislikes
	v.Metrics.CommentCount += delta.Comments
	v.Metrics.Shares += delta.Shares
	v.Metrics.WatchMinutes += delta.WatchMinutes
	return nil
}

func (f *fakeVideoRepo) PersistTrendingScore(ctx context.Context, id uuid.UUID, engagementRate, trendingScore float64) error {
	v, err := f.GetByID(ctx, id)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	v.Metrics.EngagementRate = engagementRate
	v.TrendingScore = trendingScore
	return nil
}

func (f *fakeVideoRepo) published() []*types.Video {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*types.Video, 0, len(f.videos))
	for _, v := range f.videos {
		if v.Status == types.VideoStatusPublished {
			out = append(out, v)
		}
	}
	return out
}

// fakeInteractionRepo stores interaction records in a slice. A nonzero delay
// makes reads block until the delay elapses or the context is done.
type fakeInteractionRepo struct {
	mu      sync.Mutex
	records []*types.InteractionRecord
	err     error
	delay   time.Duration
}

func newFakeInteractionRepo() *fakeInteractionRepo {
	return &fakeInteractionRepo{}
}

func (f *fakeInteractionRepo) addRecord(userID, videoID uuid.UUID, kind types.InteractionType, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, &types.InteractionRecord{
		ID:        uuid.New(),
		UserID:    userID,
		VideoID:   videoID,
		Type:      kind,
		CreatedAt: at,
	})
}

func (f *fakeInteractionRepo) matches(rec *types.InteractionRecord, kinds []types.InteractionType) bool {
	if len(kinds) == 0 {
		return true
	}
	for _, k := range kinds {
		if rec.Type == k {
			return true
		}
	}
	return false
}

func (f *fakeInteractionRepo) ListByUser(ctx context.Context, userID uuid.UUID, kinds ...types.InteractionType) ([]*types.InteractionRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.delay):
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.InteractionRecord
	for _, rec := range f.records {
		if rec.UserID == userID && f.matches(rec, kinds) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeInteractionRepo) ListVideoIDsByUser(ctx context.Context, userID uuid.UUID, kinds ...types.InteractionType) ([]uuid.UUID, error) {
	recs, err := f.ListByUser(ctx, userID, kinds...)
	if err != nil {
		return nil, err
	}
	seen := map[uuid.UUID]struct{}{}
	var out []uuid.UUID
	for _, rec := range recs {
		if _, ok := seen[rec.VideoID]; ok {
			continue
		}
		seen[rec.VideoID] = struct{}{}
		out = append(out, rec.VideoID)
	}
	return out, nil
}

func (f *fakeInteractionRepo) GroupByUserForVideos(ctx context.Context, videoIDs []uuid.UUID, excludeUserID uuid.UUID) (map[uuid.UUID]repos.UserOverlap, error) {
	if f.err != nil {
		return nil, f.err
	}
	target := make(map[uuid.UUID]struct{}, len(videoIDs))
	for _, id := range videoIDs {
		target[id] = struct{}{}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	grouped := map[uuid.UUID]map[uuid.UUID]struct{}{}
	records := map[uuid.UUID]int{}
	for _, rec := range f.records {
		if rec.UserID == excludeUserID {
			continue
		}
		if rec.Type != types.InteractionView && rec.Type != types.InteractionLike {
			continue
		}
		if _, ok := target[rec.VideoID]; !ok {
			continue
		}
		if grouped[rec.UserID] == nil {
			grouped[rec.UserID] = map[uuid.UUID]struct{}{}
		}
		grouped[rec.UserID][rec.VideoID] = struct{}{}
		records[rec.UserID]++
	}
	out := make(map[uuid.UUID]repos.UserOverlap, len(grouped))
	for userID, set := range grouped {
		ids := make([]uuid.UUID, 0, len(set))
		for id := range set {
			ids = append(ids, id)
		}
		out[userID] = repos.UserOverlap{VideoIDs: ids, Records: records[userID]}
	}
	return out, nil
}

func (f *fakeInteractionRepo) Has(ctx context.Context, userID, videoID uuid.UUID, kind types.InteractionType) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rec := range f.records {
		if rec.UserID == userID && rec.VideoID == videoID && rec.Type == kind {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeInteractionRepo) Record(ctx context.Context, userID, videoID uuid.UUID, kind types.InteractionType) error {
	has, _ := f.Has(ctx, userID, videoID, kind)
	if has {
		return nil
	}
	f.addRecord(userID, videoID, kind, time.Now().UTC())
	return nil
}

func (f *fakeInteractionRepo) Remove(ctx context.Context, userID, videoID uuid.UUID, kind types.InteractionType) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.records[:0]
	for _, rec := range f.records {
		if rec.UserID == userID && rec.VideoID == videoID && rec.Type == kind {
			continue
		}
		kept = append(kept, rec)
	}
	f.records = kept
	return nil
}

// memoryCache is an in-process Cache for tests.
type memoryCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string][]byte{}}
}

func (m *memoryCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	m.mu.Lock()
	data, ok := m.entries[key]
	m.mu.Unlock()
	if !ok {
		return false, nil
	}
	if dest == nil {
		return true, nil
	}
	return true, json.Unmarshal(data, dest)
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.entries[key] = data
	m.mu.Unlock()
	return nil
}

func (m *memoryCache) Delete(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	for _, key := range keys {
		delete(m.entries, key)
	}
	m.mu.Unlock()
	return nil
}

func (m *memoryCache) DeletePattern(ctx context.Context, pattern string) error {
	// Pattern support limited to "prefix*", which is all the services use.
	prefix := pattern
	if n := len(pattern); n > 0 && pattern[n-1] == '*' {
		prefix = pattern[:n-1]
	}
	m.mu.Lock()
	for key := range m.entries {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			delete(m.entries, key)
		}
	}
	m.mu.Unlock()
	return nil
}

func (m *memoryCache) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	_, ok := m.entries[key]
	m.mu.Unlock()
	return ok, nil
}

func (m *memoryCache) Close() error { return nil }
