package repos

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/oultic/oultic-backend/internal/db"
	"github.com/oultic/oultic-backend/internal/logger"
	"github.com/oultic/oultic-backend/internal/types"
)

type mongoVideoRepo struct {
	col *mongo.Collection
	log *logger.Logger
}

func NewMongoVideoRepo(ms *db.MongoService, baseLog *logger.Logger) VideoRepo {
	return &mongoVideoRepo{
		col: ms.Collection(db.CollectionVideos),
		log: baseLog.With("repo", "MongoVideoRepo"),
	}
}

func (r *mongoVideoRepo) Create(ctx context.Context, video *types.Video) error {
	now := time.Now().UTC()
	video.CreatedAt = now
	video.UpdatedAt = now
	if _, err := r.col.InsertOne(ctx, video); err != nil {
		return fmt.Errorf("insert video: %w", err)
	}
	return nil
}

func (r *mongoVideoRepo) GetByID(ctx context.Context, id uuid.UUID) (*types.Video, error) {
	var video types.Video
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&video)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find video: %w", err)
	}
	return &video, nil
}

func (r *mongoVideoRepo) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*types.Video, error) {
	if len(ids) == 0 {
		return []*types.Video{}, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": ids}}, options.Find())
}

func (r *mongoVideoRepo) Update(ctx context.Context, video *types.Video) error {
	video.UpdatedAt = time.Now().UTC()
	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": video.ID}, video)
	if err != nil {
		return fmt.Errorf("update video: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoVideoRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"status": types.VideoStatusRemoved, "updated_at": time.Now().UTC()},
	})
	if err != nil {
		return fmt.Errorf("soft delete video: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoVideoRepo) ListByCategory(ctx context.Context, category types.VideoCategory, limit, offset int) ([]*types.Video, error) {
	filter := bson.M{"status": types.VideoStatusPublished, "category": category}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(offset))
	return r.find(ctx, filter, opts)
}

func (r *mongoVideoRepo) ListByChannel(ctx context.Context, channelID uuid.UUID, publishedOnly bool, limit, offset int) ([]*types.Video, error) {
	filter := bson.M{"channel_id": channelID}
	if publishedOnly {
		filter["status"] = types.VideoStatusPublished
	} else {
		filter["status"] = bson.M{"$ne": types.VideoStatusRemoved}
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(offset))
	return r.find(ctx, filter, opts)
}

func (r *mongoVideoRepo) Search(ctx context.Context, query string, category types.VideoCategory, limit, offset int) ([]*types.Video, error) {
	pattern := bson.M{"$regex": query, "$options": "i"}
	filter := bson.M{
		"status": types.VideoStatusPublished,
		"$or": []bson.M{
			{"title": pattern},
			{"description": pattern},
			{"tags": pattern},
		},
	}
	if category != "" {
		filter["category"] = category
	}
	opts := options.Find().
		SetSort(bson.D{
			{Key: "metrics.views", Value: -1},
			{Key: "created_at", Value: -1},
		}).
		SetLimit(int64(limit)).
		SetSkip(int64(offset))
	return r.find(ctx, filter, opts)
}

func (r *mongoVideoRepo) GetTrending(ctx context.Context, limit int) ([]*types.Video, error) {
	filter := bson.M{"status": types.VideoStatusPublished}
	opts := options.Find().
		SetSort(bson.D{
			{Key: "trending_score", Value: -1},
			{Key: "created_at", Value: -1},
			{Key: "_id", Value: 1},
		}).
		SetLimit(int64(limit))
	return r.find(ctx, filter, opts)
}

func (r *mongoVideoRepo) GetPopularSince(ctx context.Context, since time.Time, limit int) ([]*types.Video, error) {
	filter := bson.M{
		"status":     types.VideoStatusPublished,
		"created_at": bson.M{"$gte": since},
	}
	opts := options.Find().
		SetSort(bson.D{
			{Key: "metrics.views", Value: -1},
			{Key: "metrics.likes", Value: -1},
			{Key: "metrics.engagement_rate", Value: -1},
		}).
		SetLimit(int64(limit))
	return r.find(ctx, filter, opts)
}

func (r *mongoVideoRepo) ListRecentPublished(ctx context.Context, exclude []uuid.UUID, limit int) ([]*types.Video, error) {
	filter := bson.M{"status": types.VideoStatusPublished}
	if len(exclude) > 0 {
		filter["_id"] = bson.M{"$nin": exclude}
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))
	return r.find(ctx, filter, opts)
}

func (r *mongoVideoRepo) ApplyCounterDelta(ctx context.Context, id uuid.UUID, delta types.CounterDelta) error {
	if delta.IsZero() {
		return nil
	}
	inc := bson.M{}
	if delta.Views != 0 {
		inc["metrics.views"] = delta.Views
	}
	if delta.Likes != 0 {
		inc["metrics.likes"] = delta.Likes
	}
	if delta.Dislikes != 0 {
		inc["metrics.dislikes"] = delta.Dislikes
	}
	if delta.Comments != 0 {
		inc["metrics.comments_count"] = delta.Comments
	}
	if delta.Shares != 0 {
		inc["metrics.shares"] = delta.Shares
	}
	if delta.WatchMinutes != 0 {
		inc["metrics.watch_time_minutes"] = delta.WatchMinutes
	}
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$inc": inc,
		"$set": bson.M{"updated_at": time.Now().UTC()},
	})
	if err != nil {
		return fmt.Errorf("apply counter delta: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoVideoRepo) PersistTrendingScore(ctx context.Context, id uuid.UUID, engagementRate, trendingScore float64) error {
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{
			"metrics.engagement_rate": engagementRate,
			"trending_score":          trendingScore,
			"updated_at":              time.Now().UTC(),
		},
	})
	if err != nil {
		return fmt.Errorf("persist trending score: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoVideoRepo) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*types.Video, error) {
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find videos: %w", err)
	}
	defer cur.Close(ctx)
	var videos []*types.Video
	if err := cur.All(ctx, &videos); err != nil {
		return nil, fmt.Errorf("decode videos: %w", err)
	}
	return videos, nil
}
