package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/oultic/oultic-backend/internal/types"
)

// ErrNotFound is returned by every backend when the requested record does not
// exist. Callers that can degrade (the recommendation paths) treat it as a
// fallback trigger, not a failure.
var ErrNotFound = errors.New("record not found")

type UserRepo interface {
	Create(ctx context.Context, user *types.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*types.User, error)
	GetByEmail(ctx context.Context, email string) (*types.User, error)
	GetByUsername(ctx context.Context, username string) (*types.User, error)
	GetByOAuth(ctx context.Context, provider, subject string) (*types.User, error)
	Update(ctx context.Context, user *types.User) error
	ApplyStatsDelta(ctx context.Context, id uuid.UUID, delta types.UserStatsDelta) error
	Search(ctx context.Context, query string, limit, offset int) ([]*types.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
}

type VideoRepo interface {
	Create(ctx context.Context, video *types.Video) error
	GetByID(ctx context.Context, id uuid.UUID) (*types.Video, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*types.Video, error)
	Update(ctx context.Context, video *types.Video) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	ListByCategory(ctx context.Context, category types.VideoCategory, limit, offset int) ([]*types.Video, error)
	ListByChannel(ctx context.Context, channelID uuid.UUID, publishedOnly bool, limit, offset int) ([]*types.Video, error)
	Search(ctx context.Context, query string, category types.VideoCategory, limit, offset int) ([]*types.Video, error)

	// GetTrending returns published videos sorted by trending_score
	// descending; ties break by created_at descending, then id ascending.
	GetTrending(ctx context.Context, limit int) ([]*types.Video, error)

	// GetPopularSince returns published videos created within the window,
	// sorted by views, likes, then engagement rate, all descending.
	GetPopularSince(ctx context.Context, since time.Time, limit int) ([]*types.Video, error)

	// ListRecentPublished returns a bounded candidate pool of published
	// videos, newest first, excluding the given ids.
	ListRecentPublished(ctx context.Context, exclude []uuid.UUID, limit int) ([]*types.Video, error)

	// ApplyCounterDelta atomically adjusts the engagement counters of one
	// video. Implementations must be safe under concurrent deltas to the
	// same video.
	ApplyCounterDelta(ctx context.Context, id uuid.UUID, delta types.CounterDelta) error

	// PersistTrendingScore stores the derived engagement rate and trending
	// score computed from the current counters.
	PersistTrendingScore(ctx context.Context, id uuid.UUID, engagementRate, trendingScore float64) error
}

// UserOverlap summarizes one user's interactions with a target video set:
// the distinct videos touched and the raw record count. A view and a like on
// the same video are one entry in VideoIDs but two Records.
type UserOverlap struct {
	VideoIDs []uuid.UUID
	Records  int
}

type InteractionRepo interface {
	ListByUser(ctx context.Context, userID uuid.UUID, kinds ...types.InteractionType) ([]*types.InteractionRecord, error)
	ListVideoIDsByUser(ctx context.Context, userID uuid.UUID, kinds ...types.InteractionType) ([]uuid.UUID, error)

	// GroupByUserForVideos returns, for every other user that interacted
	// (view or like) with any of the given videos, their overlap with that
	// set.
	GroupByUserForVideos(ctx context.Context, videoIDs []uuid.UUID, excludeUserID uuid.UUID) (map[uuid.UUID]UserOverlap, error)

	Has(ctx context.Context, userID, videoID uuid.UUID, kind types.InteractionType) (bool, error)

	// Record upserts on (user_id, video_id, interaction_type), refreshing
	// created_at, so the dedup invariant holds under retries.
	Record(ctx context.Context, userID, videoID uuid.UUID, kind types.InteractionType) error
	Remove(ctx context.Context, userID, videoID uuid.UUID, kind types.InteractionType) error
}

type CommentRepo interface {
	Create(ctx context.Context, comment *types.Comment) error
	GetByID(ctx context.Context, id uuid.UUID) (*types.Comment, error)
	Update(ctx context.Context, comment *types.Comment) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	ListByVideo(ctx context.Context, videoID uuid.UUID, limit, offset int) ([]*types.Comment, error)
	ListReplies(ctx context.Context, parentID uuid.UUID, limit, offset int) ([]*types.Comment, error)
	ListByAuthor(ctx context.Context, authorID uuid.UUID, limit, offset int) ([]*types.Comment, error)
	AdjustLikes(ctx context.Context, id uuid.UUID, delta int64) error
	AdjustReplies(ctx context.Context, id uuid.UUID, delta int64) error
}
