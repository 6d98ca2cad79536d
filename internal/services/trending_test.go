package services

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/oultic/oultic-backend/internal/types"
)

func TestComputeTrendingKnownScenario(t *testing.T) {
	// 1000 views, 100 likes, 50 comments, 20 shares, 12 hours old.
	m := types.VideoMetrics{
		Views:        1000,
		Likes:        100,
		Dislikes:     0,
		CommentCount: 50,
		Shares:       20,
	}
	now := time.Now().UTC()
	createdAt := now.Add(-12 * time.Hour)

	rate, score := ComputeTrending(m, createdAt, now)

	// engagement = 100 + 50 + 20 = 170, rate = 170/1000
	if math.Abs(rate-0.17) > 1e-9 {
		t.Fatalf("engagement rate = %v, want 0.17", rate)
	}
	// engagementScore = 100 + 100 + 60 + 100 = 360, penalty = 1/1.5
	want := 360.0 * (1.0 / 1.5)
	if math.Abs(score-want) > 1e-6 {
		t.Fatalf("trending score = %v, want %v", score, want)
	}
}

func TestComputeTrendingIdempotent(t *testing.T) {
	m := types.VideoMetrics{Views: 500, Likes: 40, CommentCount: 10, Shares: 5}
	now := time.Now().UTC()
	createdAt := now.Add(-48 * time.Hour)

	rate1, score1 := ComputeTrending(m, createdAt, now)
	rate2, score2 := ComputeTrending(m, createdAt, now)
	if rate1 != rate2 || score1 != score2 {
		t.Fatalf("repeated computation differs: (%v,%v) vs (%v,%v)", rate1, score1, rate2, score2)
	}
}

func TestComputeTrendingZeroViews(t *testing.T) {
	m := types.VideoMetrics{Likes: 10, CommentCount: 5}
	now := time.Now().UTC()
	rate, _ := ComputeTrending(m, now.Add(-time.Hour), now)
	if rate != 0 {
		t.Fatalf("engagement rate with zero views = %v, want 0", rate)
	}
}

func TestComputeTrendingRateCappedAtOne(t *testing.T) {
	m := types.VideoMetrics{Views: 10, Likes: 50, Dislikes: 30, CommentCount: 40, Shares: 20}
	now := time.Now().UTC()
	rate, _ := ComputeTrending(m, now, now)
	if rate != 1.0 {
		t.Fatalf("engagement rate = %v, want capped at 1.0", rate)
	}
}

func TestComputeTrendingAgePenaltyMonotone(t *testing.T) {
	m := types.VideoMetrics{Views: 1000, Likes: 100}
	now := time.Now().UTC()
	var prev float64 = math.Inf(1)
	for _, hours := range []int{0, 6, 24, 72, 240} {
		_, score := ComputeTrending(m, now.Add(-time.Duration(hours)*time.Hour), now)
		if score > prev {
			t.Fatalf("score increased with age at %dh: %v > %v", hours, score, prev)
		}
		prev = score
	}
}

func TestComputeTrendingAgePenaltyFloor(t *testing.T) {
	m := types.VideoMetrics{Views: 1000, Likes: 100}
	now := time.Now().UTC()
	// engagementScore = 100 + 100*0.1*... : 100 + 100 = 200
	_, score := ComputeTrending(m, now.Add(-10000*time.Hour), now)
	engagementScore := 100.0 + 0.1*1000.0
	if math.Abs(score-engagementScore*0.1) > 1e-9 {
		t.Fatalf("very old video score = %v, want floor %v", score, engagementScore*0.1)
	}
}

func TestComputeTrendingFutureCreatedAtClamped(t *testing.T) {
	m := types.VideoMetrics{Views: 100, Likes: 10}
	now := time.Now().UTC()
	_, future := ComputeTrending(m, now.Add(time.Hour), now)
	_, fresh := ComputeTrending(m, now, now)
	if future != fresh {
		t.Fatalf("future created_at not clamped: %v vs %v", future, fresh)
	}
}

func TestTrendingServiceApplyDeltaRecomputes(t *testing.T) {
	log := testLogger(t)
	videoRepo := newFakeVideoRepo()
	video := &types.Video{
		ID:        uuid.New(),
		Status:    types.VideoStatusPublished,
		CreatedAt: time.Now().UTC().Add(-2 * time.Hour),
	}
	videoRepo.add(video)

	svc := NewTrendingService(log, videoRepo)
	if err := svc.ApplyEngagementDelta(context.Background(), video.ID, types.CounterDelta{Views: 10, Likes: 2}); err != nil {
		t.Fatalf("ApplyEngagementDelta: %v", err)
	}
	if video.Metrics.Views != 10 || video.Metrics.Likes != 2 {
		t.Fatalf("counters not applied: %+v", video.Metrics)
	}
	if video.TrendingScore <= 0 {
		t.Fatalf("trending score not recomputed: %v", video.TrendingScore)
	}
}

func TestTrendingServiceZeroDeltaIsNoop(t *testing.T) {
	log := testLogger(t)
	videoRepo := newFakeVideoRepo()
	svc := NewTrendingService(log, videoRepo)
	// Unknown video id: a zero delta must not even hit the store.
	if err := svc.ApplyEngagementDelta(context.Background(), uuid.New(), types.CounterDelta{}); err != nil {
		t.Fatalf("zero delta returned error: %v", err)
	}
}
