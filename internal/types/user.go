package types

import (
	"time"

	"github.com/google/uuid"
)

type UserRole string

const (
	UserRoleViewer    UserRole = "viewer"
	UserRoleCreator   UserRole = "creator"
	UserRoleModerator UserRole = "moderator"
	UserRoleAdmin     UserRole = "admin"
)

type UserStatus string

const (
	UserStatusActive      UserStatus = "active"
	UserStatusSuspended   UserStatus = "suspended"
	UserStatusDeactivated UserStatus = "deactivated"
)

type UserPreferences struct {
	Language             string `bson:"language" json:"language"`
	Theme                string `bson:"theme" json:"theme"`
	Autoplay             bool   `bson:"autoplay" json:"autoplay"`
	NotificationsEnabled bool   `bson:"notifications_enabled" json:"notifications_enabled"`
	ContentFilter        string `bson:"content_filter" json:"content_filter"`
	PreferredQuality     string `bson:"preferred_quality" json:"preferred_quality"`
}

func DefaultUserPreferences() UserPreferences {
	return UserPreferences{
		Language:             "en",
		Theme:                "light",
		Autoplay:             true,
		NotificationsEnabled: true,
		ContentFilter:        "moderate",
		PreferredQuality:     "auto",
	}
}

type UserStats struct {
	TotalWatchTimeMinutes float64 `bson:"total_watch_time_minutes" json:"total_watch_time_minutes"`
	VideosWatched         int64   `bson:"videos_watched" json:"videos_watched"`
	SubscriptionsCount    int64   `bson:"subscriptions_count" json:"subscriptions_count"`
	SubscribersCount      int64   `bson:"subscribers_count" json:"subscribers_count"`
	VideosUploaded        int64   `bson:"videos_uploaded" json:"videos_uploaded"`
	LikesGiven            int64   `bson:"likes_given" json:"likes_given"`
	CommentsMade          int64   `bson:"comments_made" json:"comments_made"`
}

type User struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey" bson:"_id" json:"id"`
	Username        string          `gorm:"uniqueIndex;not null;column:username" bson:"username" json:"username"`
	Email           string          `gorm:"uniqueIndex;not null;column:email" bson:"email" json:"email"`
	Password        string          `gorm:"column:password" bson:"password" json:"-"`
	FullName        string          `gorm:"column:full_name" bson:"full_name" json:"full_name"`
	Bio             string          `gorm:"column:bio" bson:"bio" json:"bio"`
	AvatarURL       string          `gorm:"column:avatar_url" bson:"avatar_url" json:"avatar_url"`
	IsEmailVerified bool            `gorm:"column:is_email_verified" bson:"is_email_verified" json:"is_email_verified"`
	Role            UserRole        `gorm:"not null;column:role" bson:"role" json:"role"`
	Status          UserStatus      `gorm:"not null;column:status" bson:"status" json:"status"`
	ChannelID       uuid.UUID       `gorm:"type:uuid;column:channel_id" bson:"channel_id" json:"channel_id"`
	ChannelName     string          `gorm:"column:channel_name" bson:"channel_name" json:"channel_name"`
	ChannelDesc     string          `gorm:"column:channel_description" bson:"channel_description" json:"channel_description"`
	OAuthProvider   string          `gorm:"column:oauth_provider" bson:"oauth_provider" json:"-"`
	OAuthSubject    string          `gorm:"column:oauth_subject" bson:"oauth_subject" json:"-"`
	TFAEnabled      bool            `gorm:"column:tfa_enabled" bson:"tfa_enabled" json:"tfa_enabled"`
	TOTPSecret      string          `gorm:"column:totp_secret" bson:"totp_secret" json:"-"`
	Preferences     UserPreferences `gorm:"serializer:json" bson:"preferences" json:"preferences"`
	Stats           UserStats       `gorm:"serializer:json" bson:"stats" json:"stats"`
	Subscriptions   []uuid.UUID     `gorm:"serializer:json" bson:"subscribed_channels" json:"subscribed_channels"`
	CreatedAt       time.Time       `gorm:"not null" bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"not null" bson:"updated_at" json:"updated_at"`
}

func (User) TableName() string {
	return "user"
}

func (u *User) IsChannelOwner() bool {
	return u.ChannelID != uuid.Nil
}

func (u *User) CanUploadVideos() bool {
	return u.Status == UserStatusActive && u.IsChannelOwner()
}

// UserStatsDelta is applied atomically to a user's counters; zero fields are
// no-ops.
type UserStatsDelta struct {
	WatchMinutes   float64
	VideosWatched  int64
	Subscriptions  int64
	Subscribers    int64
	VideosUploaded int64
	LikesGiven     int64
	CommentsMade   int64
}

func (d UserStatsDelta) IsZero() bool {
	return d == UserStatsDelta{}
}

func (u *User) IsSubscribedTo(channelID uuid.UUID) bool {
	for _, id := range u.Subscriptions {
		if id == channelID {
			return true
		}
	}
	return false
}
