package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/oultic/oultic-backend/internal/logger"
	"github.com/oultic/oultic-backend/internal/repos"
	"github.com/oultic/oultic-backend/internal/types"
)

var (
	ErrCommentTooDeep     = errors.New("reply nesting limit reached")
	ErrNotCommentAuthor   = errors.New("user is not the comment author")
	ErrCommentUnavailable = errors.New("comment is not available")
)

const maxCommentLength = 5000

type CommentService interface {
	// CreateComment posts a top-level comment or a reply. Replies inherit
	// the root comment's thread id and sit one level below their parent,
	// capped at MaxCommentDepth.
	CreateComment(ctx context.Context, authorID, videoID uuid.UUID, parentID *uuid.UUID, content string) (*types.Comment, error)
	EditComment(ctx context.Context, authorID, commentID uuid.UUID, content string) (*types.Comment, error)
	DeleteComment(ctx context.Context, requesterID, commentID uuid.UUID) error
	ListByVideo(ctx context.Context, videoID uuid.UUID, limit, offset int) ([]*types.Comment, error)
	ListReplies(ctx context.Context, parentID uuid.UUID, limit, offset int) ([]*types.Comment, error)
	LikeComment(ctx context.Context, commentID uuid.UUID) error
	PinComment(ctx context.Context, requesterID, commentID uuid.UUID, pinned bool) error
	HeartComment(ctx context.Context, requesterID, commentID uuid.UUID, hearted bool) error
}

type commentService struct {
	log         *logger.Logger
	userRepo    repos.UserRepo
	videoRepo   repos.VideoRepo
	commentRepo repos.CommentRepo
	trending    TrendingService
}

func NewCommentService(
	log *logger.Logger,
	userRepo repos.UserRepo,
	videoRepo repos.VideoRepo,
	commentRepo repos.CommentRepo,
	trending TrendingService,
) CommentService {
	return &commentService{
		log:         log.With("service", "CommentService"),
		userRepo:    userRepo,
		videoRepo:   videoRepo,
		commentRepo: commentRepo,
		trending:    trending,
	}
}

func (cs *commentService) CreateComment(ctx context.Context, authorID, videoID uuid.UUID, parentID *uuid.UUID, content string) (*types.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("comment content is required")
	}
	if len(content) > maxCommentLength {
		return nil, fmt.Errorf("comment exceeds %d characters", maxCommentLength)
	}

	video, err := cs.videoRepo.GetByID(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if video.Status != types.VideoStatusPublished && video.Status != types.VideoStatusUnlisted {
		return nil, ErrVideoNotVisible
	}
	author, err := cs.userRepo.GetByID(ctx, authorID)
	if err != nil {
		return nil, fmt.Errorf("load author: %w", err)
	}

	comment := &types.Comment{
		ID:             uuid.New(),
		VideoID:        videoID,
		AuthorID:       authorID,
		AuthorUsername: author.Username,
		AuthorAvatar:   author.AvatarURL,
		Content:        content,
		Status:         types.CommentStatusActive,
	}

	if parentID != nil {
		parent, err := cs.commentRepo.GetByID(ctx, *parentID)
		if err != nil {
			return nil, fmt.Errorf("load parent comment: %w", err)
		}
		if parent.VideoID != videoID {
			return nil, fmt.Errorf("parent comment belongs to a different video")
		}
		if parent.Status != types.CommentStatusActive {
			return nil, ErrCommentUnavailable
		}
		if parent.Depth+1 > types.MaxCommentDepth {
			return nil, ErrCommentTooDeep
		}
		comment.ParentID = parentID
		comment.ThreadID = parent.ThreadID
		comment.Depth = parent.Depth + 1
	} else {
		comment.ThreadID = comment.ID
	}

	if err := cs.commentRepo.Create(ctx, comment); err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	if comment.ParentID != nil {
		if err := cs.commentRepo.AdjustReplies(ctx, *comment.ParentID, 1); err != nil {
			cs.log.Warn("reply counter adjust failed", "error", err)
		}
	}
	if err := cs.trending.ApplyEngagementDelta(ctx, videoID, types.CounterDelta{Comments: 1}); err != nil {
		cs.log.Warn("comment engagement delta failed", "error", err)
	}
	if err := cs.userRepo.ApplyStatsDelta(ctx, authorID, types.UserStatsDelta{CommentsMade: 1}); err != nil {
		cs.log.Warn("comment stats delta failed", "error", err)
	}
	return comment, nil
}

func (cs *commentService) EditComment(ctx context.Context, authorID, commentID uuid.UUID, content string) (*types.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("comment content is required")
	}
	comment, err := cs.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if comment.AuthorID != authorID {
		return nil, ErrNotCommentAuthor
	}
	if comment.Status != types.CommentStatusActive {
		return nil, ErrCommentUnavailable
	}
	now := time.Now().UTC()
	comment.Content = content
	comment.EditedAt = &now
	if err := cs.commentRepo.Update(ctx, comment); err != nil {
		return nil, fmt.Errorf("update comment: %w", err)
	}
	return comment, nil
}

func (cs *commentService) DeleteComment(ctx context.Context, requesterID, commentID uuid.UUID) error {
	comment, err := cs.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return err
	}
	if comment.AuthorID != requesterID {
		allowed, err := cs.isVideoOwnerOrStaff(ctx, requesterID, comment.VideoID)
		if err != nil {
			return err
		}
		if !allowed {
			return ErrNotCommentAuthor
		}
	}
	if err := cs.commentRepo.SoftDelete(ctx, commentID); err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	if comment.ParentID != nil {
		if err := cs.commentRepo.AdjustReplies(ctx, *comment.ParentID, -1); err != nil {
			cs.log.Warn("reply counter adjust failed", "error", err)
		}
	}
	if err := cs.trending.ApplyEngagementDelta(ctx, comment.VideoID, types.CounterDelta{Comments: -1}); err != nil {
		cs.log.Warn("comment engagement delta failed", "error", err)
	}
	return nil
}

func (cs *commentService) ListByVideo(ctx context.Context, videoID uuid.UUID, limit, offset int) ([]*types.Comment, error) {
	return cs.commentRepo.ListByVideo(ctx, videoID, limit, offset)
}

func (cs *commentService) ListReplies(ctx context.Context, parentID uuid.UUID, limit, offset int) ([]*types.Comment, error) {
	return cs.commentRepo.ListReplies(ctx, parentID, limit, offset)
}

func (cs *commentService) LikeComment(ctx context.Context, commentID uuid.UUID) error {
	if err := cs.commentRepo.AdjustLikes(ctx, commentID, 1); err != nil {
		return fmt.Errorf("like comment: %w", err)
	}
	return nil
}

func (cs *commentService) PinComment(ctx context.Context, requesterID, commentID uuid.UUID, pinned bool) error {
	comment, err := cs.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return err
	}
	allowed, err := cs.isVideoOwnerOrStaff(ctx, requesterID, comment.VideoID)
	if err != nil {
		return err
	}
	if !allowed {
		return ErrNotVideoOwner
	}
	comment.IsPinned = pinned
	if err := cs.commentRepo.Update(ctx, comment); err != nil {
		return fmt.Errorf("pin comment: %w", err)
	}
	return nil
}

func (cs *commentService) HeartComment(ctx context.Context, requesterID, commentID uuid.UUID, hearted bool) error {
	comment, err := cs.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return err
	}
	allowed, err := cs.isVideoOwnerOrStaff(ctx, requesterID, comment.VideoID)
	if err != nil {
		return err
	}
	if !allowed {
		return ErrNotVideoOwner
	}
	comment.IsCreatorHearted = hearted
	if err := cs.commentRepo.Update(ctx, comment); err != nil {
		return fmt.Errorf("heart comment: %w", err)
	}
	return nil
}

func (cs *commentService) isVideoOwnerOrStaff(ctx context.Context, userID, videoID uuid.UUID) (bool, error) {
	video, err := cs.videoRepo.GetByID(ctx, videoID)
	if err != nil {
		return false, err
	}
	user, err := cs.userRepo.GetByID(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("load user: %w", err)
	}
	if user.Role == types.UserRoleAdmin || user.Role == types.UserRoleModerator {
		return true, nil
	}
	return user.ChannelID != uuid.Nil && user.ChannelID == video.ChannelID, nil
}
