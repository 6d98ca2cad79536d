package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/oultic/oultic-backend/internal/types"
)

type videoFixture struct {
	svc             VideoService
	userRepo        *fakeUserRepo
	videoRepo       *fakeVideoRepo
	interactionRepo *fakeInteractionRepo
	cache           *memoryCache
}

func newVideoFixture(t *testing.T) *videoFixture {
	log := testLogger(t)
	userRepo := newFakeUserRepo()
	videoRepo := newFakeVideoRepo()
	interactionRepo := newFakeInteractionRepo()
	cache := newMemoryCache()
	trending := NewTrendingService(log, videoRepo)
	svc := NewVideoService(log, cache, userRepo, videoRepo, interactionRepo, trending)
	return &videoFixture{
		svc:             svc,
		userRepo:        userRepo,
		videoRepo:       videoRepo,
		interactionRepo: interactionRepo,
		cache:           cache,
	}
}

func (fx *videoFixture) addCreator() *types.User {
	user := &types.User{
		ID:          uuid.New(),
		Role:        types.UserRoleCreator,
		Status:      types.UserStatusActive,
		ChannelID:   uuid.New(),
		ChannelName: "chan",
	}
	fx.userRepo.add(user)
	return user
}

func (fx *videoFixture) addViewer() *types.User {
	user := &types.User{ID: uuid.New(), Role: types.UserRoleViewer, Status: types.UserStatusActive}
	fx.userRepo.add(user)
	return user
}

func (fx *videoFixture) addPublished(owner *types.User) *types.Video {
	v := &types.Video{
		ID:        uuid.New(),
		Title:     "a video",
		ChannelID: owner.ChannelID,
		Category:  types.CategoryGaming,
		Status:    types.VideoStatusPublished,
		CreatedAt: time.Now().UTC().Add(-time.Hour),
	}
	fx.videoRepo.add(v)
	return v
}

func TestCreateVideoRequiresChannel(t *testing.T) {
	fx := newVideoFixture(t)
	viewer := fx.addViewer()

	_, err := fx.svc.CreateVideo(context.Background(), viewer.ID, VideoInput{
		Title:    "no channel",
		Category: types.CategoryGaming,
	})
	if err == nil {
		t.Fatalf("viewer without channel should not upload")
	}
}

func TestCreateVideoRejectsInvalidCategory(t *testing.T) {
	fx := newVideoFixture(t)
	creator := fx.addCreator()

	_, err := fx.svc.CreateVideo(context.Background(), creator.ID, VideoInput{
		Title:    "bad category",
		Category: "podcasts",
	})
	if err == nil {
		t.Fatalf("invalid category should be rejected")
	}
}

func TestRecordViewDedupWithinWindow(t *testing.T) {
	fx := newVideoFixture(t)
	creator := fx.addCreator()
	viewer := fx.addViewer()
	video := fx.addPublished(creator)

	ctx := context.Background()
	if err := fx.svc.RecordView(ctx, viewer.ID, video.ID, 1.5); err != nil {
		t.Fatalf("first view: %v", err)
	}
	if err := fx.svc.RecordView(ctx, viewer.ID, video.ID, 2.0); err != nil {
		t.Fatalf("second view: %v", err)
	}
	if video.Metrics.Views != 1 {
		t.Fatalf("view counted %d times within dedup window, want 1", video.Metrics.Views)
	}
	if video.Metrics.WatchMinutes != 3.5 {
		t.Fatalf("watch time = %v, want 3.5 (accumulates every call)", video.Metrics.WatchMinutes)
	}
	has, _ := fx.interactionRepo.Has(ctx, viewer.ID, video.ID, types.InteractionView)
	if !has {
		t.Fatalf("view interaction not recorded")
	}
}

func TestReactToggleAndSwitch(t *testing.T) {
	fx := newVideoFixture(t)
	creator := fx.addCreator()
	viewer := fx.addViewer()
	video := fx.addPublished(creator)
	ctx := context.Background()

	// like
	if err := fx.svc.React(ctx, viewer.ID, video.ID, types.InteractionLike); err != nil {
		t.Fatalf("like: %v", err)
	}
	if video.Metrics.Likes != 1 || video.Metrics.Dislikes != 0 {
		t.Fatalf("after like: %+v", video.Metrics)
	}

	// switch to dislike
	if err := fx.svc.React(ctx, viewer.ID, video.ID, types.InteractionDislike); err != nil {
		t.Fatalf("switch: %v", err)
	}
	if video.Metrics.Likes != 0 || video.Metrics.Dislikes != 1 {
		t.Fatalf("after switch: %+v", video.Metrics)
	}

	// toggle dislike off
	if err := fx.svc.React(ctx, viewer.ID, video.ID, types.InteractionDislike); err != nil {
		t.Fatalf("toggle off: %v", err)
	}
	if video.Metrics.Likes != 0 || video.Metrics.Dislikes != 0 {
		t.Fatalf("after toggle off: %+v", video.Metrics)
	}
	hasLike, _ := fx.interactionRepo.Has(ctx, viewer.ID, video.ID, types.InteractionLike)
	hasDislike, _ := fx.interactionRepo.Has(ctx, viewer.ID, video.ID, types.InteractionDislike)
	if hasLike || hasDislike {
		t.Fatalf("reaction records linger: like=%v dislike=%v", hasLike, hasDislike)
	}
}

func TestInteractionWritesLeaveCachedFeedAlone(t *testing.T) {
	fx := newVideoFixture(t)
	creator := fx.addCreator()
	viewer := fx.addViewer()
	video := fx.addPublished(creator)
	ctx := context.Background()

	// A cached feed page for the viewer; interaction writes must not
	// drop it, the TTL is what retires it.
	key := recommendationCacheKey(viewer.ID, 5, 0)
	if err := fx.cache.Set(ctx, key, []*types.Video{video}, time.Minute); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	if err := fx.svc.RecordView(ctx, viewer.ID, video.ID, 1.0); err != nil {
		t.Fatalf("RecordView: %v", err)
	}
	if err := fx.svc.React(ctx, viewer.ID, video.ID, types.InteractionLike); err != nil {
		t.Fatalf("React: %v", err)
	}
	if ok, _ := fx.cache.Exists(ctx, key); !ok {
		t.Fatalf("cached feed page was invalidated by an interaction write")
	}
}

func TestReactRejectsView(t *testing.T) {
	fx := newVideoFixture(t)
	creator := fx.addCreator()
	viewer := fx.addViewer()
	video := fx.addPublished(creator)

	if err := fx.svc.React(context.Background(), viewer.ID, video.ID, types.InteractionView); err == nil {
		t.Fatalf("view is not a reaction")
	}
}

func TestUpdateVideoOwnershipEnforced(t *testing.T) {
	fx := newVideoFixture(t)
	creator := fx.addCreator()
	stranger := fx.addCreator()
	video := fx.addPublished(creator)

	_, err := fx.svc.UpdateVideo(context.Background(), stranger.ID, video.ID, VideoInput{
		Title:    "hijack",
		Category: types.CategoryGaming,
	})
	if err != ErrNotVideoOwner {
		t.Fatalf("expected ErrNotVideoOwner, got %v", err)
	}
}

func TestGetVideoHidesPrivateFromStrangers(t *testing.T) {
	fx := newVideoFixture(t)
	creator := fx.addCreator()
	stranger := fx.addViewer()
	video := fx.addPublished(creator)
	video.Status = types.VideoStatusPrivate

	if _, err := fx.svc.GetVideo(context.Background(), stranger.ID, video.ID); err != ErrVideoNotVisible {
		t.Fatalf("expected ErrVideoNotVisible, got %v", err)
	}
	if _, err := fx.svc.GetVideo(context.Background(), creator.ID, video.ID); err != nil {
		t.Fatalf("owner should see private video: %v", err)
	}
}
