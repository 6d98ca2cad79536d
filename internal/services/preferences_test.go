package services

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/oultic/oultic-backend/internal/types"
)

func TestBuildPreferencesEmptyHistory(t *testing.T) {
	log := testLogger(t)
	svc := NewPreferenceService(log, newFakeVideoRepo(), newFakeInteractionRepo())

	vector, err := svc.BuildPreferences(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("BuildPreferences: %v", err)
	}
	if !vector.IsEmpty() {
		t.Fatalf("expected empty vector, got %+v", vector)
	}
}

func TestBuildPreferencesLikeOutweighsView(t *testing.T) {
	log := testLogger(t)
	videoRepo := newFakeVideoRepo()
	interactionRepo := newFakeInteractionRepo()
	userID := uuid.New()
	now := time.Now().UTC()

	gaming := &types.Video{
		ID:        uuid.New(),
		Category:  types.CategoryGaming,
		ChannelID: uuid.New(),
		Status:    types.VideoStatusPublished,
	}
	music := &types.Video{
		ID:        uuid.New(),
		Category:  types.CategoryMusic,
		ChannelID: uuid.New(),
		Status:    types.VideoStatusPublished,
	}
	videoRepo.add(gaming)
	videoRepo.add(music)

	// Same recency, but the gaming video is liked.
	interactionRepo.addRecord(userID, gaming.ID, types.InteractionLike, now)
	interactionRepo.addRecord(userID, music.ID, types.InteractionView, now)

	svc := NewPreferenceService(log, videoRepo, interactionRepo)
	vector, err := svc.BuildPreferences(context.Background(), userID)
	if err != nil {
		t.Fatalf("BuildPreferences: %v", err)
	}

	// Gaming holds the max, so it normalizes to 1.0 and music to ~0.5.
	if math.Abs(vector.Categories[types.CategoryGaming]-1.0) > 1e-9 {
		t.Fatalf("liked category weight = %v, want 1.0", vector.Categories[types.CategoryGaming])
	}
	if math.Abs(vector.Categories[types.CategoryMusic]-0.5) > 1e-9 {
		t.Fatalf("viewed category weight = %v, want 0.5", vector.Categories[types.CategoryMusic])
	}
}

func TestBuildPreferencesTimeDecay(t *testing.T) {
	log := testLogger(t)
	videoRepo := newFakeVideoRepo()
	interactionRepo := newFakeInteractionRepo()
	userID := uuid.New()
	now := time.Now().UTC()

	fresh := &types.Video{ID: uuid.New(), Category: types.CategoryNews, ChannelID: uuid.New(), Status: types.VideoStatusPublished}
	stale := &types.Video{ID: uuid.New(), Category: types.CategorySports, ChannelID: uuid.New(), Status: types.VideoStatusPublished}
	videoRepo.add(fresh)
	videoRepo.add(stale)

	interactionRepo.addRecord(userID, fresh.ID, types.InteractionView, now)
	interactionRepo.addRecord(userID, stale.ID, types.InteractionView, now.Add(-60*24*time.Hour))

	svc := NewPreferenceService(log, videoRepo, interactionRepo)
	vector, err := svc.BuildPreferences(context.Background(), userID)
	if err != nil {
		t.Fatalf("BuildPreferences: %v", err)
	}

	if vector.Categories[types.CategoryNews] <= vector.Categories[types.CategorySports] {
		t.Fatalf("recent interaction should outweigh old one: news=%v sports=%v",
			vector.Categories[types.CategoryNews], vector.Categories[types.CategorySports])
	}
	// exp(-60/30) relative to exp(0), after normalization by the max.
	want := math.Exp(-2.0)
	if math.Abs(vector.Categories[types.CategorySports]-want) > 1e-6 {
		t.Fatalf("decayed weight = %v, want %v", vector.Categories[types.CategorySports], want)
	}
}

func TestBuildPreferencesAccumulatesTagsAndChannels(t *testing.T) {
	log := testLogger(t)
	videoRepo := newFakeVideoRepo()
	interactionRepo := newFakeInteractionRepo()
	userID := uuid.New()
	now := time.Now().UTC()
	channel := uuid.New()

	v1 := &types.Video{
		ID:        uuid.New(),
		Category:  types.CategoryTechnology,
		ChannelID: channel,
		Tags:      []string{"go", "backend"},
		Status:    types.VideoStatusPublished,
	}
	v2 := &types.Video{
		ID:        uuid.New(),
		Category:  types.CategoryTechnology,
		ChannelID: channel,
		Tags:      []string{"go"},
		Status:    types.VideoStatusPublished,
	}
	videoRepo.add(v1)
	videoRepo.add(v2)
	interactionRepo.addRecord(userID, v1.ID, types.InteractionView, now)
	interactionRepo.addRecord(userID, v2.ID, types.InteractionView, now)

	svc := NewPreferenceService(log, videoRepo, interactionRepo)
	vector, err := svc.BuildPreferences(context.Background(), userID)
	if err != nil {
		t.Fatalf("BuildPreferences: %v", err)
	}

	if vector.Tags["go"] != 1.0 {
		t.Fatalf("tag seen twice should hold the max: %v", vector.Tags["go"])
	}
	if math.Abs(vector.Tags["backend"]-0.5) > 1e-9 {
		t.Fatalf("tag seen once = %v, want 0.5", vector.Tags["backend"])
	}
	if vector.Channels[channel] != 1.0 {
		t.Fatalf("channel weight = %v, want 1.0", vector.Channels[channel])
	}
}

func TestBuildPreferencesSkipsMissingVideos(t *testing.T) {
	log := testLogger(t)
	videoRepo := newFakeVideoRepo()
	interactionRepo := newFakeInteractionRepo()
	userID := uuid.New()

	// Interaction with a video that no longer exists.
	interactionRepo.addRecord(userID, uuid.New(), types.InteractionView, time.Now().UTC())

	svc := NewPreferenceService(log, videoRepo, interactionRepo)
	vector, err := svc.BuildPreferences(context.Background(), userID)
	if err != nil {
		t.Fatalf("BuildPreferences: %v", err)
	}
	if !vector.IsEmpty() {
		t.Fatalf("dangling interaction should contribute nothing, got %+v", vector)
	}
}
