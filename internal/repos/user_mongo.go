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

type mongoUserRepo struct {
	col *mongo.Collection
	log *logger.Logger
}

func NewMongoUserRepo(ms *db.MongoService, baseLog *logger.Logger) UserRepo {
	return &mongoUserRepo{
		col: ms.Collection(db.CollectionUsers),
		log: baseLog.With("repo", "MongoUserRepo"),
	}
}

func (r *mongoUserRepo) Create(ctx context.Context, user *types.User) error {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	if _, err := r.col.InsertOne(ctx, user); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *mongoUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*types.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *mongoUserRepo) GetByEmail(ctx context.Context, email string) (*types.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *mongoUserRepo) GetByUsername(ctx context.Context, username string) (*types.User, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

func (r *mongoUserRepo) GetByOAuth(ctx context.Context, provider, subject string) (*types.User, error) {
	return r.findOne(ctx, bson.M{"oauth_provider": provider, "oauth_subject": subject})
}

func (r *mongoUserRepo) findOne(ctx context.Context, filter bson.M) (*types.User, error) {
	var user types.User
	err := r.col.FindOne(ctx, filter).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

func (r *mongoUserRepo) Update(ctx context.Context, user *types.User) error {
	user.UpdatedAt = time.Now().UTC()
	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": user.ID}, user)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoUserRepo) ApplyStatsDelta(ctx context.Context, id uuid.UUID, delta types.UserStatsDelta) error {
	if delta.IsZero() {
		return nil
	}
	inc := bson.M{}
	if delta.WatchMinutes != 0 {
		inc["stats.total_watch_time_minutes"] = delta.WatchMinutes
	}
	if delta.VideosWatched != 0 {
		inc["stats.videos_watched"] = delta.VideosWatched
	}
	if delta.Subscriptions != 0 {
		inc["stats.subscriptions_count"] = delta.Subscriptions
	}
	if delta.Subscribers != 0 {
		inc["stats.subscribers_count"] = delta.Subscribers
	}
	if delta.VideosUploaded != 0 {
		inc["stats.videos_uploaded"] = delta.VideosUploaded
	}
	if delta.LikesGiven != 0 {
		inc["stats.likes_given"] = delta.LikesGiven
	}
	if delta.CommentsMade != 0 {
		inc["stats.comments_made"] = delta.CommentsMade
	}
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$inc": inc,
		"$set": bson.M{"updated_at": time.Now().UTC()},
	})
	if err != nil {
		return fmt.Errorf("apply user stats delta: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoUserRepo) Search(ctx context.Context, query string, limit, offset int) ([]*types.User, error) {
	pattern := bson.M{"$regex": query, "$options": "i"}
	filter := bson.M{
		"status": types.UserStatusActive,
		"$or": []bson.M{
			{"username": pattern},
			{"channel_name": pattern},
			{"full_name": pattern},
		},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "stats.subscribers_count", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(offset))
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	defer cur.Close(ctx)
	var users []*types.User
	if err := cur.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	return users, nil
}

func (r *mongoUserRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, bson.M{"email": email})
}

func (r *mongoUserRepo) UsernameExists(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, bson.M{"username": username})
}

func (r *mongoUserRepo) exists(ctx context.Context, filter bson.M) (bool, error) {
	n, err := r.col.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}
	return n > 0, nil
}
