package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/oultic/oultic-backend/internal/logger"
	"github.com/oultic/oultic-backend/internal/repos"
	"github.com/oultic/oultic-backend/internal/types"
)

// ComputeTrending derives the engagement rate and trending score from a
// video's current counters. Pure arithmetic: calling it twice with the same
// inputs yields identical outputs.
//
// The age penalty halves roughly every 24 hours and floors at 0.1 so old
// high-engagement videos never decay to zero.
func ComputeTrending(m types.VideoMetrics, createdAt, now time.Time) (engagementRate, trendingScore float64) {
	if m.Views > 0 {
		interactions := float64(m.Likes + m.Dislikes + m.CommentCount + m.Shares)
		engagementRate = interactions / float64(m.Views)
		if engagementRate > 1.0 {
			engagementRate = 1.0
		}
	}

	ageHours := now.Sub(createdAt).Hours()
	if ageHours < 0 {
		ageHours = 0
	}
	agePenalty := 1.0 / (1.0 + ageHours/24.0)
	if agePenalty < 0.1 {
		agePenalty = 0.1
	}

	engagementScore := float64(m.Likes)*1.0 +
		float64(m.CommentCount)*2.0 +
		float64(m.Shares)*3.0 +
		float64(m.Views)*0.1

	return engagementRate, engagementScore * agePenalty
}

// TrendingService applies engagement counter deltas and keeps the derived
// scores consistent with the counters. The recompute happens inline with the
// write that changed the counter, never in a background sweep.
type TrendingService interface {
	ApplyEngagementDelta(ctx context.Context, videoID uuid.UUID, delta types.CounterDelta) error
	RecomputeForVideo(ctx context.Context, videoID uuid.UUID) error
}

type trendingService struct {
	log       *logger.Logger
	videoRepo repos.VideoRepo
}

func NewTrendingService(log *logger.Logger, videoRepo repos.VideoRepo) TrendingService {
	return &trendingService{
		log:       log.With("service", "TrendingService"),
		videoRepo: videoRepo,
	}
}

func (s *trendingService) ApplyEngagementDelta(ctx context.Context, videoID uuid.UUID, delta types.CounterDelta) error {
	if delta.IsZero() {
		return nil
	}
	if err := s.videoRepo.ApplyCounterDelta(ctx, videoID, delta); err != nil {
		return fmt.Errorf("apply engagement delta: %w", err)
	}
	return s.RecomputeForVideo(ctx, videoID)
}

func (s *trendingService) RecomputeForVideo(ctx context.Context, videoID uuid.UUID) error {
	video, err := s.videoRepo.GetByID(ctx, videoID)
	if err != nil {
		return fmt.Errorf("load video for trending recompute: %w", err)
	}
	engagementRate, trendingScore := ComputeTrending(video.Metrics, video.CreatedAt, time.Now().UTC())
	if err := s.videoRepo.PersistTrendingScore(ctx, videoID, engagementRate, trendingScore); err != nil {
		return fmt.Errorf("persist trending score: %w", err)
	}
	return nil
}
