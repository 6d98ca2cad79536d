package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	redisclient "github.com/oultic/oultic-backend/internal/clients/redis"
	"github.com/oultic/oultic-backend/internal/logger"
	"github.com/oultic/oultic-backend/internal/repos"
	"github.com/oultic/oultic-backend/internal/types"
)

var (
	ErrNotVideoOwner   = errors.New("user does not own this video")
	ErrVideoNotVisible = errors.New("video is not available")
	ErrInvalidCategory = errors.New("invalid video category")
)

// viewDedupTTL is how long a repeat view by the same user counts as the same
// view. Watch time still accumulates on every call.
const viewDedupTTL = time.Hour

type VideoInput struct {
	Title           string                `json:"title"`
	Description     string                `json:"description"`
	Category        types.VideoCategory   `json:"category"`
	Tags            []string              `json:"tags"`
	Language        string                `json:"language"`
	VideoURL        string                `json:"video_url"`
	EmbedURL        string                `json:"youtube_embed_url"`
	DurationSeconds int                   `json:"duration_seconds"`
	Thumbnails      []types.VideoThumbnail `json:"thumbnails"`
	Status          types.VideoStatus     `json:"status"`
}

type VideoService interface {
	CreateVideo(ctx context.Context, ownerID uuid.UUID, input VideoInput) (*types.Video, error)
	GetVideo(ctx context.Context, viewerID, videoID uuid.UUID) (*types.Video, error)
	UpdateVideo(ctx context.Context, ownerID, videoID uuid.UUID, input VideoInput) (*types.Video, error)
	DeleteVideo(ctx context.Context, ownerID, videoID uuid.UUID) error

	// RecordView registers a view with hourly per-user dedup, accumulates
	// watch time, and recomputes the trending score inline.
	RecordView(ctx context.Context, userID, videoID uuid.UUID, watchMinutes float64) error

	// React toggles a like or dislike. Reacting the same way twice removes
	// the reaction; switching sides moves the counter in one pass.
	React(ctx context.Context, userID, videoID uuid.UUID, kind types.InteractionType) error

	RecordShare(ctx context.Context, userID, videoID uuid.UUID) error

	ListByCategory(ctx context.Context, category types.VideoCategory, limit, offset int) ([]*types.Video, error)
	ListByChannel(ctx context.Context, viewerID, channelID uuid.UUID, limit, offset int) ([]*types.Video, error)
	Search(ctx context.Context, query string, category types.VideoCategory, limit, offset int) ([]*types.Video, error)
	GetTrending(ctx context.Context, limit int) ([]*types.Video, error)
}

type videoService struct {
	log             *logger.Logger
	cache           redisclient.Cache
	userRepo        repos.UserRepo
	videoRepo       repos.VideoRepo
	interactionRepo repos.InteractionRepo
	trending        TrendingService
}

func NewVideoService(
	log *logger.Logger,
	cache redisclient.Cache,
	userRepo repos.UserRepo,
	videoRepo repos.VideoRepo,
	interactionRepo repos.InteractionRepo,
	trending TrendingService,
) VideoService {
	return &videoService{
		log:             log.With("service", "VideoService"),
		cache:           cache,
		userRepo:        userRepo,
		videoRepo:       videoRepo,
		interactionRepo: interactionRepo,
		trending:        trending,
	}
}

func (vs *videoService) CreateVideo(ctx context.Context, ownerID uuid.UUID, input VideoInput) (*types.Video, error) {
	owner, err := vs.userRepo.GetByID(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("load owner: %w", err)
	}
	if !owner.CanUploadVideos() {
		return nil, fmt.Errorf("user cannot upload videos: no channel or inactive account")
	}
	if err := validateVideoInput(&input); err != nil {
		return nil, err
	}

	status := input.Status
	if status == "" {
		status = types.VideoStatusDraft
	}
	video := &types.Video{
		ID:              uuid.New(),
		Title:           input.Title,
		Description:     input.Description,
		ChannelID:       owner.ChannelID,
		ChannelName:     owner.ChannelName,
		ChannelAvatar:   owner.AvatarURL,
		VideoURL:        input.VideoURL,
		EmbedURL:        input.EmbedURL,
		DurationSeconds: input.DurationSeconds,
		Thumbnails:      input.Thumbnails,
		Category:        input.Category,
		Tags:            input.Tags,
		Language:        input.Language,
		Status:          status,
		SearchKeywords:  buildSearchKeywords(input.Title, input.Tags),
	}
	if err := vs.videoRepo.Create(ctx, video); err != nil {
		return nil, fmt.Errorf("create video: %w", err)
	}
	if err := vs.userRepo.ApplyStatsDelta(ctx, ownerID, types.UserStatsDelta{VideosUploaded: 1}); err != nil {
		vs.log.Warn("upload stats delta failed", "error", err)
	}
	vs.log.Info("video created", "video_id", video.ID.String(), "status", string(status))
	return video, nil
}

func (vs *videoService) GetVideo(ctx context.Context, viewerID, videoID uuid.UUID) (*types.Video, error) {
	video, err := vs.videoRepo.GetByID(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if !vs.visibleTo(ctx, viewerID, video) {
		return nil, ErrVideoNotVisible
	}
	return video, nil
}

func (vs *videoService) UpdateVideo(ctx context.Context, ownerID, videoID uuid.UUID, input VideoInput) (*types.Video, error) {
	video, err := vs.requireOwnership(ctx, ownerID, videoID)
	if err != nil {
		return nil, err
	}
	if err := validateVideoInput(&input); err != nil {
		return nil, err
	}
	video.Title = input.Title
	video.Description = input.Description
	video.Category = input.Category
	video.Tags = input.Tags
	video.Language = input.Language
	video.SearchKeywords = buildSearchKeywords(input.Title, input.Tags)
	if input.Status != "" {
		video.Status = input.Status
	}
	if len(input.Thumbnails) > 0 {
		video.Thumbnails = input.Thumbnails
	}
	if err := vs.videoRepo.Update(ctx, video); err != nil {
		return nil, fmt.Errorf("update video: %w", err)
	}
	return video, nil
}

func (vs *videoService) DeleteVideo(ctx context.Context, ownerID, videoID uuid.UUID) error {
	if _, err := vs.requireOwnership(ctx, ownerID, videoID); err != nil {
		return err
	}
	if err := vs.videoRepo.SoftDelete(ctx, videoID); err != nil {
		return fmt.Errorf("delete video: %w", err)
	}
	return nil
}

func (vs *videoService) RecordView(ctx context.Context, userID, videoID uuid.UUID, watchMinutes float64) error {
	video, err := vs.videoRepo.GetByID(ctx, videoID)
	if err != nil {
		return err
	}
	if video.Status != types.VideoStatusPublished && video.Status != types.VideoStatusUnlisted {
		return ErrVideoNotVisible
	}

	dedupKey := fmt.Sprintf("view:%s:%s", userID.String(), videoID.String())
	alreadyCounted, err := vs.cache.Exists(ctx, dedupKey)
	if err != nil {
		vs.log.Debug("view dedup check failed, counting view", "error", err)
		alreadyCounted = false
	}

	if watchMinutes > 0 {
		if err := vs.userRepo.ApplyStatsDelta(ctx, userID, types.UserStatsDelta{WatchMinutes: watchMinutes}); err != nil {
			vs.log.Warn("watch time stats delta failed", "error", err)
		}
	}

	// Watch time accumulates on every call; the view counter only moves
	// once per dedup window.
	delta := types.CounterDelta{WatchMinutes: watchMinutes}
	if !alreadyCounted {
		delta.Views = 1
	}

	if alreadyCounted {
		if err := vs.trending.ApplyEngagementDelta(ctx, videoID, delta); err != nil {
			return fmt.Errorf("apply watch time delta: %w", err)
		}
		return nil
	}

	if err := vs.cache.Set(ctx, dedupKey, 1, viewDedupTTL); err != nil {
		vs.log.Debug("view dedup write failed", "error", err)
	}
	if err := vs.interactionRepo.Record(ctx, userID, videoID, types.InteractionView); err != nil {
		return fmt.Errorf("record view interaction: %w", err)
	}
	if err := vs.trending.ApplyEngagementDelta(ctx, videoID, delta); err != nil {
		return fmt.Errorf("apply view delta: %w", err)
	}
	if err := vs.userRepo.ApplyStatsDelta(ctx, userID, types.UserStatsDelta{VideosWatched: 1}); err != nil {
		vs.log.Warn("view stats delta failed", "error", err)
	}
	return nil
}

func (vs *videoService) React(ctx context.Context, userID, videoID uuid.UUID, kind types.InteractionType) error {
	if kind != types.InteractionLike && kind != types.InteractionDislike {
		return fmt.Errorf("unsupported reaction: %s", kind)
	}
	if _, err := vs.videoRepo.GetByID(ctx, videoID); err != nil {
		return err
	}

	opposite := types.InteractionDislike
	if kind == types.InteractionDislike {
		opposite = types.InteractionLike
	}

	hasSame, err := vs.interactionRepo.Has(ctx, userID, videoID, kind)
	if err != nil {
		return fmt.Errorf("check reaction: %w", err)
	}
	hasOpposite, err := vs.interactionRepo.Has(ctx, userID, videoID, opposite)
	if err != nil {
		return fmt.Errorf("check opposite reaction: %w", err)
	}

	var delta types.CounterDelta
	var statsDelta types.UserStatsDelta
	switch {
	case hasSame:
		if err := vs.interactionRepo.Remove(ctx, userID, videoID, kind); err != nil {
			return fmt.Errorf("remove reaction: %w", err)
		}
		if kind == types.InteractionLike {
			delta.Likes = -1
			statsDelta.LikesGiven = -1
		} else {
			delta.Dislikes = -1
		}
	case hasOpposite:
		if err := vs.interactionRepo.Remove(ctx, userID, videoID, opposite); err != nil {
			return fmt.Errorf("remove opposite reaction: %w", err)
		}
		if err := vs.interactionRepo.Record(ctx, userID, videoID, kind); err != nil {
			return fmt.Errorf("record reaction: %w", err)
		}
		if kind == types.InteractionLike {
			delta.Likes = 1
			delta.Dislikes = -1
			statsDelta.LikesGiven = 1
		} else {
			delta.Likes = -1
			delta.Dislikes = 1
			statsDelta.LikesGiven = -1
		}
	default:
		if err := vs.interactionRepo.Record(ctx, userID, videoID, kind); err != nil {
			return fmt.Errorf("record reaction: %w", err)
		}
		if kind == types.InteractionLike {
			delta.Likes = 1
			statsDelta.LikesGiven = 1
		} else {
			delta.Dislikes = 1
		}
	}

	if err := vs.trending.ApplyEngagementDelta(ctx, videoID, delta); err != nil {
		return fmt.Errorf("apply reaction delta: %w", err)
	}
	if !statsDelta.IsZero() {
		if err := vs.userRepo.ApplyStatsDelta(ctx, userID, statsDelta); err != nil {
			vs.log.Warn("reaction stats delta failed", "error", err)
		}
	}
	// Cached feed pages are not touched here; they age out on their own
	// TTL rather than being invalidated on every interaction write.
	return nil
}

func (vs *videoService) RecordShare(ctx context.Context, userID, videoID uuid.UUID) error {
	if _, err := vs.videoRepo.GetByID(ctx, videoID); err != nil {
		return err
	}
	if err := vs.trending.ApplyEngagementDelta(ctx, videoID, types.CounterDelta{Shares: 1}); err != nil {
		return fmt.Errorf("apply share delta: %w", err)
	}
	return nil
}

func (vs *videoService) ListByCategory(ctx context.Context, category types.VideoCategory, limit, offset int) ([]*types.Video, error) {
	if !types.ValidVideoCategory(category) {
		return nil, ErrInvalidCategory
	}
	return vs.videoRepo.ListByCategory(ctx, category, limit, offset)
}

func (vs *videoService) ListByChannel(ctx context.Context, viewerID, channelID uuid.UUID, limit, offset int) ([]*types.Video, error) {
	publishedOnly := true
	if viewerID != uuid.Nil {
		if viewer, err := vs.userRepo.GetByID(ctx, viewerID); err == nil && viewer.ChannelID == channelID {
			publishedOnly = false
		}
	}
	return vs.videoRepo.ListByChannel(ctx, channelID, publishedOnly, limit, offset)
}

func (vs *videoService) Search(ctx context.Context, query string, category types.VideoCategory, limit, offset int) ([]*types.Video, error) {
	query = strings.TrimSpace(query)
	if query == "" && category == "" {
		return []*types.Video{}, nil
	}
	if category != "" && !types.ValidVideoCategory(category) {
		return nil, ErrInvalidCategory
	}
	return vs.videoRepo.Search(ctx, query, category, limit, offset)
}

func (vs *videoService) GetTrending(ctx context.Context, limit int) ([]*types.Video, error) {
	return vs.videoRepo.GetTrending(ctx, limit)
}

func (vs *videoService) requireOwnership(ctx context.Context, ownerID, videoID uuid.UUID) (*types.Video, error) {
	video, err := vs.videoRepo.GetByID(ctx, videoID)
	if err != nil {
		return nil, err
	}
	owner, err := vs.userRepo.GetByID(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("load owner: %w", err)
	}
	if owner.ChannelID == uuid.Nil || owner.ChannelID != video.ChannelID {
		if owner.Role != types.UserRoleAdmin && owner.Role != types.UserRoleModerator {
			return nil, ErrNotVideoOwner
		}
	}
	return video, nil
}

func (vs *videoService) visibleTo(ctx context.Context, viewerID uuid.UUID, video *types.Video) bool {
	switch video.Status {
	case types.VideoStatusPublished, types.VideoStatusUnlisted:
		return true
	case types.VideoStatusRemoved:
		return false
	}
	if viewerID == uuid.Nil {
		return false
	}
	viewer, err := vs.userRepo.GetByID(ctx, viewerID)
	if err != nil {
		return false
	}
	return viewer.ChannelID == video.ChannelID ||
		viewer.Role == types.UserRoleAdmin || viewer.Role == types.UserRoleModerator
}

func validateVideoInput(input *VideoInput) error {
	input.Title = strings.TrimSpace(input.Title)
	if input.Title == "" {
		return fmt.Errorf("title is required")
	}
	if len(input.Title) > 200 {
		return fmt.Errorf("title exceeds 200 characters")
	}
	if !types.ValidVideoCategory(input.Category) {
		return ErrInvalidCategory
	}
	if input.DurationSeconds < 0 {
		return fmt.Errorf("duration cannot be negative")
	}
	cleaned := make([]string, 0, len(input.Tags))
	for _, tag := range input.Tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag != "" {
			cleaned = append(cleaned, tag)
		}
	}
	input.Tags = cleaned
	return nil
}

func buildSearchKeywords(title string, tags []string) []string {
	seen := map[string]struct{}{}
	keywords := make([]string, 0, len(tags)+8)
	for _, word := range strings.Fields(strings.ToLower(title)) {
		word = strings.Trim(word, ".,!?:;\"'()")
		if len(word) < 3 {
			continue
		}
		if _, ok := seen[word]; ok {
			continue
		}
		seen[word] = struct{}{}
		keywords = append(keywords, word)
	}
	for _, tag := range tags {
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		keywords = append(keywords, tag)
	}
	return keywords
}
