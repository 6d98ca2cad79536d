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

// groupScanLimit bounds how many interaction rows a single similarity query
// may touch, keeping the candidate search linear in interaction volume.
const groupScanLimit = 20000

type mongoInteractionRepo struct {
	col *mongo.Collection
	log *logger.Logger
}

func NewMongoInteractionRepo(ms *db.MongoService, baseLog *logger.Logger) InteractionRepo {
	return &mongoInteractionRepo{
		col: ms.Collection(db.CollectionInteractions),
		log: baseLog.With("repo", "MongoInteractionRepo"),
	}
}

func (r *mongoInteractionRepo) ListByUser(ctx context.Context, userID uuid.UUID, kinds ...types.InteractionType) ([]*types.InteractionRecord, error) {
	filter := bson.M{"user_id": userID}
	if len(kinds) > 0 {
		filter["interaction_type"] = bson.M{"$in": kinds}
	}
	cur, err := r.col.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list interactions: %w", err)
	}
	defer cur.Close(ctx)
	var records []*types.InteractionRecord
	if err := cur.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("decode interactions: %w", err)
	}
	return records, nil
}

func (r *mongoInteractionRepo) ListVideoIDsByUser(ctx context.Context, userID uuid.UUID, kinds ...types.InteractionType) ([]uuid.UUID, error) {
	records, err := r.ListByUser(ctx, userID, kinds...)
	if err != nil {
		return nil, err
	}
	seen := make(map[uuid.UUID]struct{}, len(records))
	ids := make([]uuid.UUID, 0, len(records))
	for _, rec := range records {
		if _, ok := seen[rec.VideoID]; ok {
			continue
		}
		seen[rec.VideoID] = struct{}{}
		ids = append(ids, rec.VideoID)
	}
	return ids, nil
}

func (r *mongoInteractionRepo) GroupByUserForVideos(ctx context.Context, videoIDs []uuid.UUID, excludeUserID uuid.UUID) (map[uuid.UUID]UserOverlap, error) {
	if len(videoIDs) == 0 {
		return map[uuid.UUID]UserOverlap{}, nil
	}
	filter := bson.M{
		"video_id":         bson.M{"$in": videoIDs},
		"user_id":          bson.M{"$ne": excludeUserID},
		"interaction_type": bson.M{"$in": []types.InteractionType{types.InteractionView, types.InteractionLike}},
	}
	cur, err := r.col.Find(ctx, filter, options.Find().SetLimit(groupScanLimit))
	if err != nil {
		return nil, fmt.Errorf("group interactions: %w", err)
	}
	defer cur.Close(ctx)

	grouped := make(map[uuid.UUID]map[uuid.UUID]struct{})
	records := make(map[uuid.UUID]int)
	for cur.Next(ctx) {
		var rec types.InteractionRecord
		if err := cur.Decode(&rec); err != nil {
			return nil, fmt.Errorf("decode interaction: %w", err)
		}
		set, ok := grouped[rec.UserID]
		if !ok {
			set = make(map[uuid.UUID]struct{})
			grouped[rec.UserID] = set
		}
		set[rec.VideoID] = struct{}{}
		records[rec.UserID]++
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate interactions: %w", err)
	}

	out := make(map[uuid.UUID]UserOverlap, len(grouped))
	for userID, set := range grouped {
		ids := make([]uuid.UUID, 0, len(set))
		for id := range set {
			ids = append(ids, id)
		}
		out[userID] = UserOverlap{VideoIDs: ids, Records: records[userID]}
	}
	return out, nil
}

func (r *mongoInteractionRepo) Has(ctx context.Context, userID, videoID uuid.UUID, kind types.InteractionType) (bool, error) {
	err := r.col.FindOne(ctx, bson.M{
		"user_id":          userID,
		"video_id":         videoID,
		"interaction_type": kind,
	}).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check interaction: %w", err)
	}
	return true, nil
}

func (r *mongoInteractionRepo) Record(ctx context.Context, userID, videoID uuid.UUID, kind types.InteractionType) error {
	_, err := r.col.UpdateOne(ctx,
		bson.M{
			"user_id":          userID,
			"video_id":         videoID,
			"interaction_type": kind,
		},
		bson.M{
			"$set":         bson.M{"created_at": time.Now().UTC()},
			"$setOnInsert": bson.M{"_id": uuid.New()},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("record interaction: %w", err)
	}
	return nil
}

func (r *mongoInteractionRepo) Remove(ctx context.Context, userID, videoID uuid.UUID, kind types.InteractionType) error {
	_, err := r.col.DeleteOne(ctx, bson.M{
		"user_id":          userID,
		"video_id":         videoID,
		"interaction_type": kind,
	})
	if err != nil {
		return fmt.Errorf("remove interaction: %w", err)
	}
	return nil
}
