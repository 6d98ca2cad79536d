package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/oultic/oultic-backend/internal/repos"
	"github.com/oultic/oultic-backend/internal/types"
)

// fakeCommentRepo covers what the comment service needs.
type fakeCommentRepo struct {
	mu       sync.Mutex
	comments map[uuid.UUID]*types.Comment
}

func newFakeCommentRepo() *fakeCommentRepo {
	return &fakeCommentRepo{comments: map[uuid.UUID]*types.Comment{}}
}

func (f *fakeCommentRepo) Create(ctx context.Context, comment *types.Comment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	comment.CreatedAt = time.Now().UTC()
	f.comments[comment.ID] = comment
	return nil
}

func (f *fakeCommentRepo) GetByID(ctx context.Context, id uuid.UUID) (*types.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.comments[id]
	if !ok {
		return nil, repos.ErrNotFound
	}
	return c, nil
}

func (f *fakeCommentRepo) Update(ctx context.Context, comment *types.Comment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.comments[comment.ID] = comment
	return nil
}

func (f *fakeCommentRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	c, err := f.GetByID(ctx, id)
	if err != nil {
		return err
	}
	c.Status = types.CommentStatusRemoved
	return nil
}

func (f *fakeCommentRepo) ListByVideo(ctx context.Context, videoID uuid.UUID, limit, offset int) ([]*types.Comment, error) {
	return []*types.Comment{}, nil
}

func (f *fakeCommentRepo) ListReplies(ctx context.Context, parentID uuid.UUID, limit, offset int) ([]*types.Comment, error) {
	return []*types.Comment{}, nil
}

func (f *fakeCommentRepo) ListByAuthor(ctx context.Context, authorID uuid.UUID, limit, offset int) ([]*types.Comment, error) {
	return []*types.Comment{}, nil
}

func (f *fakeCommentRepo) AdjustLikes(ctx context.Context, id uuid.UUID, delta int64) error {
	c, err := f.GetByID(ctx, id)
	if err != nil {
		return err
	}
	c.Metrics.Likes += delta
	return nil
}

func (f *fakeCommentRepo) AdjustReplies(ctx context.Context, id uuid.UUID, delta int64) error {
	c, err := f.GetByID(ctx, id)
	if err != nil {
		return err
	}
	c.Metrics.RepliesCount += delta
	return nil
}

type commentFixture struct {
	svc         CommentService
	userRepo    *fakeUserRepo
	videoRepo   *fakeVideoRepo
	commentRepo *fakeCommentRepo
}

func newCommentFixture(t *testing.T) *commentFixture {
	log := testLogger(t)
	userRepo := newFakeUserRepo()
	videoRepo := newFakeVideoRepo()
	commentRepo := newFakeCommentRepo()
	trending := NewTrendingService(log, videoRepo)
	svc := NewCommentService(log, userRepo, videoRepo, commentRepo, trending)
	return &commentFixture{svc: svc, userRepo: userRepo, videoRepo: videoRepo, commentRepo: commentRepo}
}

func (fx *commentFixture) seed() (*types.User, *types.Video) {
	author := &types.User{ID: uuid.New(), Username: "commenter", Status: types.UserStatusActive}
	fx.userRepo.add(author)
	video := &types.Video{
		ID:        uuid.New(),
		ChannelID: uuid.New(),
		Status:    types.VideoStatusPublished,
		CreatedAt: time.Now().UTC().Add(-time.Hour),
	}
	fx.videoRepo.add(video)
	return author, video
}

func TestCreateCommentStartsThread(t *testing.T) {
	fx := newCommentFixture(t)
	author, video := fx.seed()

	comment, err := fx.svc.CreateComment(context.Background(), author.ID, video.ID, nil, "first!")
	if err != nil {
		t.Fatalf("CreateComment: %v", err)
	}
	if comment.ThreadID != comment.ID || comment.Depth != 0 {
		t.Fatalf("top-level comment thread wrong: %+v", comment)
	}
	if comment.AuthorUsername != "commenter" {
		t.Fatalf("author snapshot missing: %+v", comment)
	}
	if video.Metrics.CommentCount != 1 {
		t.Fatalf("comment counter = %d, want 1", video.Metrics.CommentCount)
	}
}

func TestCreateReplyInheritsThreadAndDepth(t *testing.T) {
	fx := newCommentFixture(t)
	author, video := fx.seed()
	ctx := context.Background()

	root, err := fx.svc.CreateComment(ctx, author.ID, video.ID, nil, "root")
	if err != nil {
		t.Fatalf("root: %v", err)
	}
	reply, err := fx.svc.CreateComment(ctx, author.ID, video.ID, &root.ID, "reply")
	if err != nil {
		t.Fatalf("reply: %v", err)
	}
	if reply.ThreadID != root.ID || reply.Depth != 1 {
		t.Fatalf("reply threading wrong: %+v", reply)
	}
	if root.Metrics.RepliesCount != 1 {
		t.Fatalf("reply counter = %d, want 1", root.Metrics.RepliesCount)
	}
}

func TestCreateReplyDepthLimit(t *testing.T) {
	fx := newCommentFixture(t)
	author, video := fx.seed()
	ctx := context.Background()

	parent, err := fx.svc.CreateComment(ctx, author.ID, video.ID, nil, "level 0")
	if err != nil {
		t.Fatalf("root: %v", err)
	}
	for i := 1; i <= types.MaxCommentDepth; i++ {
		parent, err = fx.svc.CreateComment(ctx, author.ID, video.ID, &parent.ID, "deeper")
		if err != nil {
			t.Fatalf("depth %d: %v", i, err)
		}
	}
	if _, err := fx.svc.CreateComment(ctx, author.ID, video.ID, &parent.ID, "too deep"); !errors.Is(err, ErrCommentTooDeep) {
		t.Fatalf("expected ErrCommentTooDeep, got %v", err)
	}
}

func TestEditCommentAuthorOnly(t *testing.T) {
	fx := newCommentFixture(t)
	author, video := fx.seed()
	stranger := &types.User{ID: uuid.New(), Status: types.UserStatusActive}
	fx.userRepo.add(stranger)
	ctx := context.Background()

	comment, err := fx.svc.CreateComment(ctx, author.ID, video.ID, nil, "original")
	if err != nil {
		t.Fatalf("CreateComment: %v", err)
	}
	if _, err := fx.svc.EditComment(ctx, stranger.ID, comment.ID, "hijacked"); !errors.Is(err, ErrNotCommentAuthor) {
		t.Fatalf("expected ErrNotCommentAuthor, got %v", err)
	}
	edited, err := fx.svc.EditComment(ctx, author.ID, comment.ID, "fixed typo")
	if err != nil {
		t.Fatalf("EditComment: %v", err)
	}
	if edited.EditedAt == nil || edited.Content != "fixed typo" {
		t.Fatalf("edit not applied: %+v", edited)
	}
}

func TestDeleteCommentDecrementsCounter(t *testing.T) {
	fx := newCommentFixture(t)
	author, video := fx.seed()
	ctx := context.Background()

	comment, err := fx.svc.CreateComment(ctx, author.ID, video.ID, nil, "going away")
	if err != nil {
		t.Fatalf("CreateComment: %v", err)
	}
	if err := fx.svc.DeleteComment(ctx, author.ID, comment.ID); err != nil {
		t.Fatalf("DeleteComment: %v", err)
	}
	if video.Metrics.CommentCount != 0 {
		t.Fatalf("comment counter = %d after delete, want 0", video.Metrics.CommentCount)
	}
	stored, _ := fx.commentRepo.GetByID(ctx, comment.ID)
	if stored.Status != types.CommentStatusRemoved {
		t.Fatalf("comment not soft deleted: %+v", stored)
	}
}
