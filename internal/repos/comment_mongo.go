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

type mongoCommentRepo struct {
	col *mongo.Collection
	log *logger.Logger
}

func NewMongoCommentRepo(ms *db.MongoService, baseLog *logger.Logger) CommentRepo {
	return &mongoCommentRepo{
		col: ms.Collection(db.CollectionComments),
		log: baseLog.With("repo", "MongoCommentRepo"),
	}
}

func (r *mongoCommentRepo) Create(ctx context.Context, comment *types.Comment) error {
	now := time.Now().UTC()
	comment.CreatedAt = now
	comment.UpdatedAt = now
	if _, err := r.col.InsertOne(ctx, comment); err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	return nil
}

func (r *mongoCommentRepo) GetByID(ctx context.Context, id uuid.UUID) (*types.Comment, error) {
	var comment types.Comment
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&comment)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find comment: %w", err)
	}
	return &comment, nil
}

func (r *mongoCommentRepo) Update(ctx context.Context, comment *types.Comment) error {
	comment.UpdatedAt = time.Now().UTC()
	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": comment.ID}, comment)
	if err != nil {
		return fmt.Errorf("update comment: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoCommentRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"status": types.CommentStatusRemoved, "updated_at": time.Now().UTC()},
	})
	if err != nil {
		return fmt.Errorf("soft delete comment: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoCommentRepo) ListByVideo(ctx context.Context, videoID uuid.UUID, limit, offset int) ([]*types.Comment, error) {
	filter := bson.M{
		"video_id":  videoID,
		"parent_id": nil,
		"status":    types.CommentStatusActive,
	}
	opts := options.Find().
		SetSort(bson.D{
			{Key: "is_pinned", Value: -1},
			{Key: "created_at", Value: -1},
		}).
		SetLimit(int64(limit)).
		SetSkip(int64(offset))
	return r.find(ctx, filter, opts)
}

func (r *mongoCommentRepo) ListReplies(ctx context.Context, parentID uuid.UUID, limit, offset int) ([]*types.Comment, error) {
	filter := bson.M{
		"parent_id": parentID,
		"status":    types.CommentStatusActive,
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(offset))
	return r.find(ctx, filter, opts)
}

func (r *mongoCommentRepo) ListByAuthor(ctx context.Context, authorID uuid.UUID, limit, offset int) ([]*types.Comment, error) {
	filter := bson.M{
		"author_id": authorID,
		"status":    types.CommentStatusActive,
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(offset))
	return r.find(ctx, filter, opts)
}

func (r *mongoCommentRepo) AdjustLikes(ctx context.Context, id uuid.UUID, delta int64) error {
	return r.adjust(ctx, id, "metrics.likes", delta)
}

func (r *mongoCommentRepo) AdjustReplies(ctx context.Context, id uuid.UUID, delta int64) error {
	return r.adjust(ctx, id, "metrics.replies_count", delta)
}

func (r *mongoCommentRepo) adjust(ctx context.Context, id uuid.UUID, field string, delta int64) error {
	if delta == 0 {
		return nil
	}
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$inc": bson.M{field: delta},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	})
	if err != nil {
		return fmt.Errorf("adjust %s: %w", field, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoCommentRepo) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*types.Comment, error) {
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find comments: %w", err)
	}
	defer cur.Close(ctx)
	var comments []*types.Comment
	if err := cur.All(ctx, &comments); err != nil {
		return nil, fmt.Errorf("decode comments: %w", err)
	}
	return comments, nil
}
