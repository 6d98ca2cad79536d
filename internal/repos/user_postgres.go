package repos

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oultic/oultic-backend/internal/logger"
	"github.com/oultic/oultic-backend/internal/types"
)

type pgUserRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPostgresUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	return &pgUserRepo{db: db, log: baseLog.With("repo", "PostgresUserRepo")}
}

func (r *pgUserRepo) Create(ctx context.Context, user *types.User) error {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *pgUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*types.User, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *pgUserRepo) GetByEmail(ctx context.Context, email string) (*types.User, error) {
	return r.findOne(ctx, "email = ?", email)
}

func (r *pgUserRepo) GetByUsername(ctx context.Context, username string) (*types.User, error) {
	return r.findOne(ctx, "username = ?", username)
}

func (r *pgUserRepo) GetByOAuth(ctx context.Context, provider, subject string) (*types.User, error) {
	return r.findOne(ctx, "oauth_provider = ? AND oauth_subject = ?", provider, subject)
}

func (r *pgUserRepo) findOne(ctx context.Context, query string, args ...interface{}) (*types.User, error) {
	var user types.User
	err := r.db.WithContext(ctx).Where(query, args...).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

func (r *pgUserRepo) Update(ctx context.Context, user *types.User) error {
	user.UpdatedAt = time.Now().UTC()
	res := r.db.WithContext(ctx).Save(user)
	if res.Error != nil {
		return fmt.Errorf("update user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ApplyStatsDelta does a locked read-modify-write because the stats live in a
// serialized JSON column; the row lock keeps concurrent deltas from losing
// updates.
func (r *pgUserRepo) ApplyStatsDelta(ctx context.Context, id uuid.UUID, delta types.UserStatsDelta) error {
	if delta.IsZero() {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user types.User
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).
			First(&user).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("lock user: %w", err)
		}
		user.Stats.TotalWatchTimeMinutes += delta.WatchMinutes
		user.Stats.VideosWatched += delta.VideosWatched
		user.Stats.SubscriptionsCount += delta.Subscriptions
		user.Stats.SubscribersCount += delta.Subscribers
		user.Stats.VideosUploaded += delta.VideosUploaded
		user.Stats.LikesGiven += delta.LikesGiven
		user.Stats.CommentsMade += delta.CommentsMade
		user.UpdatedAt = time.Now().UTC()
		if err := tx.Save(&user).Error; err != nil {
			return fmt.Errorf("save user stats: %w", err)
		}
		return nil
	})
}

func (r *pgUserRepo) Search(ctx context.Context, query string, limit, offset int) ([]*types.User, error) {
	var users []*types.User
	pattern := "%" + query + "%"
	err := r.db.WithContext(ctx).
		Where("status = ?", types.UserStatusActive).
		Where("username ILIKE ? OR channel_name ILIKE ? OR full_name ILIKE ?", pattern, pattern, pattern).
		Order("username ASC").
		Limit(limit).
		Offset(offset).
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	return users, nil
}

func (r *pgUserRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, "email = ?", email)
}

func (r *pgUserRepo) UsernameExists(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, "username = ?", username)
}

func (r *pgUserRepo) exists(ctx context.Context, query string, args ...interface{}) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&types.User{}).
		Where(query, args...).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}
	return count > 0, nil
}
