package repos

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oultic/oultic-backend/internal/logger"
	"github.com/oultic/oultic-backend/internal/types"
)

type pgVideoRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPostgresVideoRepo(db *gorm.DB, baseLog *logger.Logger) VideoRepo {
	return &pgVideoRepo{db: db, log: baseLog.With("repo", "PostgresVideoRepo")}
}

func (r *pgVideoRepo) Create(ctx context.Context, video *types.Video) error {
	now := time.Now().UTC()
	video.CreatedAt = now
	video.UpdatedAt = now
	if err := r.db.WithContext(ctx).Create(video).Error; err != nil {
		return fmt.Errorf("insert video: %w", err)
	}
	return nil
}

func (r *pgVideoRepo) GetByID(ctx context.Context, id uuid.UUID) (*types.Video, error) {
	var video types.Video
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&video).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find video: %w", err)
	}
	return &video, nil
}

func (r *pgVideoRepo) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*types.Video, error) {
	if len(ids) == 0 {
		return []*types.Video{}, nil
	}
	var videos []*types.Video
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&videos).Error; err != nil {
		return nil, fmt.Errorf("find videos by ids: %w", err)
	}
	return videos, nil
}

func (r *pgVideoRepo) Update(ctx context.Context, video *types.Video) error {
	video.UpdatedAt = time.Now().UTC()
	res := r.db.WithContext(ctx).Save(video)
	if res.Error != nil {
		return fmt.Errorf("update video: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgVideoRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&types.Video{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     types.VideoStatusRemoved,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return fmt.Errorf("soft delete video: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgVideoRepo) ListByCategory(ctx context.Context, category types.VideoCategory, limit, offset int) ([]*types.Video, error) {
	var videos []*types.Video
	err := r.db.WithContext(ctx).
		Where("status = ? AND category = ?", types.VideoStatusPublished, category).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&videos).Error
	if err != nil {
		return nil, fmt.Errorf("list videos by category: %w", err)
	}
	return videos, nil
}

func (r *pgVideoRepo) ListByChannel(ctx context.Context, channelID uuid.UUID, publishedOnly bool, limit, offset int) ([]*types.Video, error) {
	q := r.db.WithContext(ctx).Where("channel_id = ?", channelID)
	if publishedOnly {
		q = q.Where("status = ?", types.VideoStatusPublished)
	} else {
		q = q.Where("status <> ?", types.VideoStatusRemoved)
	}
	var videos []*types.Video
	err := q.Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&videos).Error
	if err != nil {
		return nil, fmt.Errorf("list videos by channel: %w", err)
	}
	return videos, nil
}

func (r *pgVideoRepo) Search(ctx context.Context, query string, category types.VideoCategory, limit, offset int) ([]*types.Video, error) {
	pattern := "%" + query + "%"
	q := r.db.WithContext(ctx).
		Where("status = ?", types.VideoStatusPublished).
		Where("title ILIKE ? OR description ILIKE ?", pattern, pattern)
	if category != "" {
		q = q.Where("category = ?", category)
	}
	var videos []*types.Video
	err := q.Order("views DESC, created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&videos).Error
	if err != nil {
		return nil, fmt.Errorf("search videos: %w", err)
	}
	return videos, nil
}

func (r *pgVideoRepo) GetTrending(ctx context.Context, limit int) ([]*types.Video, error) {
	var videos []*types.Video
	err := r.db.WithContext(ctx).
		Where("status = ?", types.VideoStatusPublished).
		Order("trending_score DESC, created_at DESC, id ASC").
		Limit(limit).
		Find(&videos).Error
	if err != nil {
		return nil, fmt.Errorf("get trending videos: %w", err)
	}
	return videos, nil
}

func (r *pgVideoRepo) GetPopularSince(ctx context.Context, since time.Time, limit int) ([]*types.Video, error) {
	var videos []*types.Video
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at >= ?", types.VideoStatusPublished, since).
		Order("views DESC, likes DESC, engagement_rate DESC").
		Limit(limit).
		Find(&videos).Error
	if err != nil {
		return nil, fmt.Errorf("get popular videos: %w", err)
	}
	return videos, nil
}

func (r *pgVideoRepo) ListRecentPublished(ctx context.Context, exclude []uuid.UUID, limit int) ([]*types.Video, error) {
	q := r.db.WithContext(ctx).Where("status = ?", types.VideoStatusPublished)
	if len(exclude) > 0 {
		q = q.Where("id NOT IN ?", exclude)
	}
	var videos []*types.Video
	err := q.Order("created_at DESC").
		Limit(limit).
		Find(&videos).Error
	if err != nil {
		return nil, fmt.Errorf("list recent published videos: %w", err)
	}
	return videos, nil
}

// ApplyCounterDelta uses column arithmetic so concurrent deltas to the same
// video never lose updates.
func (r *pgVideoRepo) ApplyCounterDelta(ctx context.Context, id uuid.UUID, delta types.CounterDelta) error {
	if delta.IsZero() {
		return nil
	}
	updates := map[string]interface{}{"updated_at": time.Now().UTC()}
	if delta.Views != 0 {
		updates["views"] = gorm.Expr("views + ?", delta.Views)
	}
	if delta.Likes != 0 {
		updates["likes"] = gorm.Expr("likes + ?", delta.Likes)
	}
	if delta.Dislikes != 0 {
		updates["dislikes"] = gorm.Expr("dislikes + ?", delta.Dislikes)
	}
	if delta.Comments != 0 {
		updates["comment_count"] = gorm.Expr("comment_count + ?", delta.Comments)
	}
	if delta.Shares != 0 {
		updates["shares"] = gorm.Expr("shares + ?", delta.Shares)
	}
	if delta.WatchMinutes != 0 {
		updates["watch_time_minutes"] = gorm.Expr("watch_time_minutes + ?", delta.WatchMinutes)
	}
	res := r.db.WithContext(ctx).
		Model(&types.Video{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("apply counter delta: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgVideoRepo) PersistTrendingScore(ctx context.Context, id uuid.UUID, engagementRate, trendingScore float64) error {
	res := r.db.WithContext(ctx).
		Model(&types.Video{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"engagement_rate": engagementRate,
			"trending_score":  trendingScore,
			"updated_at":      time.Now().UTC(),
		})
	if res.Error != nil {
		return fmt.Errorf("persist trending score: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
