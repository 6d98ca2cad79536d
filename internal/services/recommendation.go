package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	redisclient "github.com/oultic/oultic-backend/internal/clients/redis"
	"github.com/oultic/oultic-backend/internal/logger"
	"github.com/oultic/oultic-backend/internal/repos"
	"github.com/oultic/oultic-backend/internal/types"
)

const (
	// recommendationCacheTTL keeps a user's feed stable for half an hour.
	recommendationCacheTTL = 30 * time.Minute

	// similarUsersTopK bounds the collaborative neighborhood.
	similarUsersTopK = 20

	// candidateBudget is the fixed number of candidates each source
	// contributes before merging. Fixing it per source, rather than
	// deriving it from the page size, keeps the merged ordering identical
	// across pages so offset pagination never skips or repeats videos.
	candidateBudget = 50

	// coldStartWindow selects "popular this week" for users with an
	// account but no history yet.
	coldStartWindow = 168 * time.Hour

	// storeTimeout bounds the store round trips of one feed build. Hitting
	// it is a soft failure that degrades to the trending fallback.
	storeTimeout = 5 * time.Second
)

// Content match weights. Category and channel matches dominate; raw
// popularity only breaks ties between equally matched videos.
const (
	categoryMatchWeight = 2.0
	channelMatchWeight  = 3.0
	likesTieWeight      = 0.01
	viewsTieWeight      = 0.001
)

type RecommendationService interface {
	// GetPersonalizedVideos returns the personalized feed page for a user.
	// Unknown users and any downstream failure degrade to the trending
	// list rather than surfacing an error.
	GetPersonalizedVideos(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*types.Video, error)

	// InvalidateUser drops the cached feed pages for a user. Routine
	// interaction writes do not call this; cached pages ride out their TTL.
	// It exists for explicit account events that must not serve stale
	// pages, such as account deactivation.
	InvalidateUser(ctx context.Context, userID uuid.UUID) error
}

type recommendationService struct {
	log             *logger.Logger
	cache           redisclient.Cache
	userRepo        repos.UserRepo
	videoRepo       repos.VideoRepo
	interactionRepo repos.InteractionRepo
	preferences     PreferenceService
	similarity      SimilarityService
	storeTimeout    time.Duration
}

func NewRecommendationService(
	log *logger.Logger,
	cache redisclient.Cache,
	userRepo repos.UserRepo,
	videoRepo repos.VideoRepo,
	interactionRepo repos.InteractionRepo,
	preferences PreferenceService,
	similarity SimilarityService,
) RecommendationService {
	return &recommendationService{
		log:             log.With("service", "RecommendationService"),
		cache:           cache,
		userRepo:        userRepo,
		videoRepo:       videoRepo,
		interactionRepo: interactionRepo,
		preferences:     preferences,
		similarity:      similarity,
		storeTimeout:    storeTimeout,
	}
}

func (s *recommendationService) GetPersonalizedVideos(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*types.Video, error) {
	if limit <= 0 || offset < 0 {
		return nil, fmt.Errorf("invalid pagination: limit=%d offset=%d", limit, offset)
	}

	cacheKey := recommendationCacheKey(userID, limit, offset)
	var cached []*types.Video
	if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
		return cached, nil
	}

	feedCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	videos, err := s.buildFeed(feedCtx, userID, limit, offset)
	cancel()
	if err != nil {
		// Personalization is best effort. Any failure in the pipeline,
		// a store timeout included, falls back to the global trending
		// list under the caller's own context.
		s.log.Warn("personalized feed failed, serving trending fallback",
			"user_id", userID.String(), "error", err)
		return s.trendingFallback(ctx, limit, offset)
	}

	if err := s.cache.Set(ctx, cacheKey, videos, recommendationCacheTTL); err != nil {
		s.log.Debug("feed cache write failed", "error", err)
	}
	return videos, nil
}

func (s *recommendationService) InvalidateUser(ctx context.Context, userID uuid.UUID) error {
	return s.cache.DeletePattern(ctx, "recommendations:"+userID.String()+":*")
}

func recommendationCacheKey(userID uuid.UUID, limit, offset int) string {
	return fmt.Sprintf("recommendations:%s:%d:%d", userID.String(), limit, offset)
}

func (s *recommendationService) buildFeed(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*types.Video, error) {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		if errors.Is(err, repos.ErrNotFound) {
			return s.trendingFallback(ctx, limit, offset)
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	interacted, err := s.interactionRepo.ListVideoIDsByUser(ctx, userID,
		types.InteractionView, types.InteractionLike)
	if err != nil {
		return nil, fmt.Errorf("load interaction history: %w", err)
	}
	if len(interacted) == 0 {
		return s.coldStartFeed(ctx, limit, offset)
	}

	interactedSet := make(map[uuid.UUID]struct{}, len(interacted))
	for _, id := range interacted {
		interactedSet[id] = struct{}{}
	}

	var collabVideos, contentVideos []*types.Video
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		collabVideos, err = s.collaborativeCandidates(gctx, userID, interactedSet)
		return err
	})
	g.Go(func() error {
		var err error
		contentVideos, err = s.contentBasedCandidates(gctx, userID, interactedSet)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Collaborative candidates rank ahead of content matches; the first
	// source to propose a video keeps it.
	merged := make([]*types.Video, 0, len(collabVideos)+len(contentVideos))
	seen := make(map[uuid.UUID]struct{}, len(collabVideos)+len(contentVideos))
	for _, v := range collabVideos {
		if _, ok := seen[v.ID]; ok {
			continue
		}
		seen[v.ID] = struct{}{}
		merged = append(merged, v)
	}
	for _, v := range contentVideos {
		if _, ok := seen[v.ID]; ok {
			continue
		}
		seen[v.ID] = struct{}{}
		merged = append(merged, v)
	}

	return pageOf(merged, limit, offset), nil
}

// coldStartFeed blends this week's popular videos with the trending list for
// users who have not interacted with anything yet. The shuffle keeps repeat
// visits from looking identical; this path is intentionally nondeterministic.
func (s *recommendationService) coldStartFeed(ctx context.Context, limit, offset int) ([]*types.Video, error) {
	// Each source contributes half of the requested window; the blend has
	// to reach past the offset before the page is cut.
	half := (offset + limit + 1) / 2
	if half == 0 {
		half = 1
	}
	since := time.Now().UTC().Add(-coldStartWindow)
	popular, err := s.videoRepo.GetPopularSince(ctx, since, half)
	if err != nil {
		return nil, fmt.Errorf("load popular videos: %w", err)
	}
	trending, err := s.videoRepo.GetTrending(ctx, half)
	if err != nil {
		return nil, fmt.Errorf("load trending videos: %w", err)
	}

	blend := make([]*types.Video, 0, len(popular)+len(trending))
	seen := make(map[uuid.UUID]struct{}, len(popular)+len(trending))
	for _, v := range append(popular, trending...) {
		if _, ok := seen[v.ID]; ok {
			continue
		}
		seen[v.ID] = struct{}{}
		blend = append(blend, v)
	}
	rand.Shuffle(len(blend), func(i, j int) {
		blend[i], blend[j] = blend[j], blend[i]
	})
	return pageOf(blend, limit, offset), nil
}

// collaborativeCandidates gathers videos that similar users liked but the
// target user has not touched. Views are enough to make two users similar;
// only likes make a neighbor's video worth recommending.
func (s *recommendationService) collaborativeCandidates(ctx context.Context, userID uuid.UUID, interactedSet map[uuid.UUID]struct{}) ([]*types.Video, error) {
	neighbors, err := s.similarity.FindSimilarUsers(ctx, userID, similarUsersTopK)
	if err != nil {
		return nil, fmt.Errorf("find similar users: %w", err)
	}
	if len(neighbors) == 0 {
		return []*types.Video{}, nil
	}

	// Weight each candidate by the summed similarity of the neighbors who
	// liked it, so videos backed by closer neighbors rank first.
	weights := make(map[uuid.UUID]float64)
	for _, n := range neighbors {
		videoIDs, err := s.interactionRepo.ListVideoIDsByUser(ctx, n.UserID, types.InteractionLike)
		if err != nil {
			return nil, fmt.Errorf("load neighbor likes: %w", err)
		}
		for _, id := range videoIDs {
			if _, ok := interactedSet[id]; ok {
				continue
			}
			weights[id] += n.Score
		}
	}
	if len(weights) == 0 {
		return []*types.Video{}, nil
	}

	ids := make([]uuid.UUID, 0, len(weights))
	for id := range weights {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if weights[ids[i]] != weights[ids[j]] {
			return weights[ids[i]] > weights[ids[j]]
		}
		return ids[i].String() < ids[j].String()
	})
	if len(ids) > candidateBudget {
		ids = ids[:candidateBudget]
	}

	videos, err := s.videoRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("hydrate collaborative candidates: %w", err)
	}
	byID := make(map[uuid.UUID]*types.Video, len(videos))
	for _, v := range videos {
		if v.Status == types.VideoStatusPublished {
			byID[v.ID] = v
		}
	}
	ordered := make([]*types.Video, 0, len(byID))
	for _, id := range ids {
		if v, ok := byID[id]; ok {
			ordered = append(ordered, v)
		}
	}
	return ordered, nil
}

// contentBasedCandidates scores recent published videos against the user's
// preference vector and keeps the best matches.
func (s *recommendationService) contentBasedCandidates(ctx context.Context, userID uuid.UUID, interactedSet map[uuid.UUID]struct{}) ([]*types.Video, error) {
	prefs, err := s.preferences.BuildPreferences(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("build preferences: %w", err)
	}
	if prefs.IsEmpty() {
		return []*types.Video{}, nil
	}

	exclude := make([]uuid.UUID, 0, len(interactedSet))
	for id := range interactedSet {
		exclude = append(exclude, id)
	}
	pool, err := s.videoRepo.ListRecentPublished(ctx, exclude, candidateBudget*4)
	if err != nil {
		return nil, fmt.Errorf("load candidate pool: %w", err)
	}

	type scored struct {
		video *types.Video
		score float64
	}
	matches := make([]scored, 0, len(pool))
	for _, v := range pool {
		score := contentMatchScore(prefs, v)
		if score > 0 {
			matches = append(matches, scored{video: v, score: score})
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		return matches[i].video.ID.String() < matches[j].video.ID.String()
	})
	if len(matches) > candidateBudget {
		matches = matches[:candidateBudget]
	}
	out := make([]*types.Video, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.video)
	}
	return out, nil
}

func contentMatchScore(prefs PreferenceVector, v *types.Video) float64 {
	var score float64
	if _, ok := prefs.Categories[v.Category]; ok {
		score += categoryMatchWeight
	}
	for _, tag := range v.Tags {
		if _, ok := prefs.Tags[tag]; ok {
			score += 1.0
		}
	}
	if _, ok := prefs.Channels[v.ChannelID]; ok {
		score += channelMatchWeight
	}
	score += float64(v.Metrics.Likes) * likesTieWeight
	score += float64(v.Metrics.Views) * viewsTieWeight
	return score
}

func (s *recommendationService) trendingFallback(ctx context.Context, limit, offset int) ([]*types.Video, error) {
	videos, err := s.videoRepo.GetTrending(ctx, offset+limit)
	if err != nil {
		return nil, fmt.Errorf("trending fallback: %w", err)
	}
	return pageOf(videos, limit, offset), nil
}

func pageOf(videos []*types.Video, limit, offset int) []*types.Video {
	if offset >= len(videos) {
		return []*types.Video{}
	}
	end := offset + limit
	if end > len(videos) {
		end = len(videos)
	}
	return videos[offset:end]
}
