package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/oultic/oultic-backend/internal/logger"
	"github.com/oultic/oultic-backend/internal/repos"
	"github.com/oultic/oultic-backend/internal/types"
)

var (
	ErrCannotSubscribeSelf = errors.New("cannot subscribe to your own channel")
	ErrNotAChannel         = errors.New("user does not own a channel")
)

// ProfileUpdate carries the editable profile fields. Nil pointers leave the
// stored value untouched.
type ProfileUpdate struct {
	FullName    *string                `json:"full_name"`
	Bio         *string                `json:"bio"`
	AvatarURL   *string                `json:"avatar_url"`
	Preferences *types.UserPreferences `json:"preferences"`
}

type UserService interface {
	GetByID(ctx context.Context, id uuid.UUID) (*types.User, error)
	GetByUsername(ctx context.Context, username string) (*types.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, update ProfileUpdate) (*types.User, error)
	CreateChannel(ctx context.Context, userID uuid.UUID, name, description string) (*types.User, error)
	Subscribe(ctx context.Context, userID, channelOwnerID uuid.UUID) error
	Unsubscribe(ctx context.Context, userID, channelOwnerID uuid.UUID) error
	Search(ctx context.Context, query string, limit, offset int) ([]*types.User, error)
}

type userService struct {
	log      *logger.Logger
	userRepo repos.UserRepo
}

func NewUserService(log *logger.Logger, userRepo repos.UserRepo) UserService {
	return &userService{
		log:      log.With("service", "UserService"),
		userRepo: userRepo,
	}
}

func (us *userService) GetByID(ctx context.Context, id uuid.UUID) (*types.User, error) {
	return us.userRepo.GetByID(ctx, id)
}

func (us *userService) GetByUsername(ctx context.Context, username string) (*types.User, error) {
	return us.userRepo.GetByUsername(ctx, strings.TrimSpace(username))
}

func (us *userService) UpdateProfile(ctx context.Context, userID uuid.UUID, update ProfileUpdate) (*types.User, error) {
	user, err := us.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if update.FullName != nil {
		user.FullName = strings.TrimSpace(*update.FullName)
	}
	if update.Bio != nil {
		user.Bio = strings.TrimSpace(*update.Bio)
	}
	if update.AvatarURL != nil {
		user.AvatarURL = strings.TrimSpace(*update.AvatarURL)
	}
	if update.Preferences != nil {
		user.Preferences = *update.Preferences
	}
	if err := us.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}

// CreateChannel turns a viewer account into a creator account. The channel id
// doubles as the subscription target, so it is minted once and never changes.
func (us *userService) CreateChannel(ctx context.Context, userID uuid.UUID, name, description string) (*types.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("channel name is required")
	}
	user, err := us.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if user.IsChannelOwner() {
		return nil, fmt.Errorf("user already owns a channel")
	}
	user.ChannelID = uuid.New()
	user.ChannelName = name
	user.ChannelDesc = strings.TrimSpace(description)
	if user.Role == types.UserRoleViewer {
		user.Role = types.UserRoleCreator
	}
	if err := us.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("save channel: %w", err)
	}
	us.log.Info("channel created", "user_id", user.ID.String())
	return user, nil
}

func (us *userService) Subscribe(ctx context.Context, userID, channelOwnerID uuid.UUID) error {
	if userID == channelOwnerID {
		return ErrCannotSubscribeSelf
	}
	owner, err := us.userRepo.GetByID(ctx, channelOwnerID)
	if err != nil {
		return fmt.Errorf("load channel owner: %w", err)
	}
	if !owner.IsChannelOwner() {
		return ErrNotAChannel
	}
	user, err := us.userRepo.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("load subscriber: %w", err)
	}
	if user.IsSubscribedTo(owner.ChannelID) {
		return nil
	}
	user.Subscriptions = append(user.Subscriptions, owner.ChannelID)
	if err := us.userRepo.Update(ctx, user); err != nil {
		return fmt.Errorf("save subscription: %w", err)
	}
	if err := us.userRepo.ApplyStatsDelta(ctx, userID, types.UserStatsDelta{Subscriptions: 1}); err != nil {
		us.log.Warn("subscriber stats delta failed", "error", err)
	}
	if err := us.userRepo.ApplyStatsDelta(ctx, channelOwnerID, types.UserStatsDelta{Subscribers: 1}); err != nil {
		us.log.Warn("owner stats delta failed", "error", err)
	}
	return nil
}

func (us *userService) Unsubscribe(ctx context.Context, userID, channelOwnerID uuid.UUID) error {
	owner, err := us.userRepo.GetByID(ctx, channelOwnerID)
	if err != nil {
		return fmt.Errorf("load channel owner: %w", err)
	}
	user, err := us.userRepo.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("load subscriber: %w", err)
	}
	if !user.IsSubscribedTo(owner.ChannelID) {
		return nil
	}
	kept := user.Subscriptions[:0]
	for _, id := range user.Subscriptions {
		if id != owner.ChannelID {
			kept = append(kept, id)
		}
	}
	user.Subscriptions = kept
	if err := us.userRepo.Update(ctx, user); err != nil {
		return fmt.Errorf("save subscription removal: %w", err)
	}
	if err := us.userRepo.ApplyStatsDelta(ctx, userID, types.UserStatsDelta{Subscriptions: -1}); err != nil {
		us.log.Warn("subscriber stats delta failed", "error", err)
	}
	if err := us.userRepo.ApplyStatsDelta(ctx, channelOwnerID, types.UserStatsDelta{Subscribers: -1}); err != nil {
		us.log.Warn("owner stats delta failed", "error", err)
	}
	return nil
}

func (us *userService) Search(ctx context.Context, query string, limit, offset int) ([]*types.User, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []*types.User{}, nil
	}
	return us.userRepo.Search(ctx, query, limit, offset)
}
