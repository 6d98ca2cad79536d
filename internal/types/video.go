package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type VideoCategory string

const (
	CategoryEducation     VideoCategory = "education"
	CategoryEntertainment VideoCategory = "entertainment"
	CategoryGaming        VideoCategory = "gaming"
	CategoryMusic         VideoCategory = "music"
	CategoryNews          VideoCategory = "news"
	CategorySports        VideoCategory = "sports"
	CategoryTechnology    VideoCategory = "technology"
	CategoryLifestyle     VideoCategory = "lifestyle"
	CategoryCooking       VideoCategory = "cooking"
	CategoryTravel        VideoCategory = "travel"
)

func ValidVideoCategory(c VideoCategory) bool {
	switch c {
	case CategoryEducation, CategoryEntertainment, CategoryGaming, CategoryMusic,
		CategoryNews, CategorySports, CategoryTechnology, CategoryLifestyle,
		CategoryCooking, CategoryTravel:
		return true
	}
	return false
}

type VideoStatus string

const (
	VideoStatusDraft     VideoStatus = "draft"
	VideoStatusPublished VideoStatus = "published"
	VideoStatusPrivate   VideoStatus = "private"
	VideoStatusUnlisted  VideoStatus = "unlisted"
	VideoStatusRemoved   VideoStatus = "removed"
)

// VideoMetrics holds the per-video engagement counters. EngagementRate is
// derived from the counters and recomputed whenever a counter changes.
type VideoMetrics struct {
	Views          int64   `gorm:"column:views" bson:"views" json:"views"`
	Likes          int64   `gorm:"column:likes" bson:"likes" json:"likes"`
	Dislikes       int64   `gorm:"column:dislikes" bson:"dislikes" json:"dislikes"`
	CommentCount   int64   `gorm:"column:comment_count" bson:"comments_count" json:"comments_count"`
	Shares         int64   `gorm:"column:shares" bson:"shares" json:"shares"`
	WatchMinutes   float64 `gorm:"column:watch_time_minutes" bson:"watch_time_minutes" json:"watch_time_minutes"`
	EngagementRate float64 `gorm:"column:engagement_rate" bson:"engagement_rate" json:"engagement_rate"`
}

type VideoThumbnail struct {
	URL    string `bson:"url" json:"url"`
	Width  int    `bson:"width" json:"width"`
	Height int    `bson:"height" json:"height"`
}

type Video struct {
	ID              uuid.UUID                    `gorm:"type:uuid;primaryKey" bson:"_id" json:"id"`
	Title           string                       `gorm:"not null;column:title" bson:"title" json:"title"`
	Description     string                       `gorm:"column:description" bson:"description" json:"description"`
	ChannelID       uuid.UUID                    `gorm:"type:uuid;index;not null;column:channel_id" bson:"channel_id" json:"channel_id"`
	ChannelName     string                       `gorm:"column:channel_name" bson:"channel_name" json:"channel_name"`
	ChannelAvatar   string                       `gorm:"column:channel_avatar" bson:"channel_avatar" json:"channel_avatar"`
	VideoURL        string                       `gorm:"column:video_url" bson:"video_url" json:"video_url"`
	EmbedURL        string                       `gorm:"column:embed_url" bson:"youtube_embed_url" json:"youtube_embed_url"`
	DurationSeconds int                          `gorm:"column:duration_seconds" bson:"duration_seconds" json:"duration_seconds"`
	Thumbnails      []VideoThumbnail             `gorm:"serializer:json" bson:"thumbnails" json:"thumbnails"`
	Category        VideoCategory                `gorm:"index;not null;column:category" bson:"category" json:"category"`
	Tags            datatypes.JSONSlice[string]  `gorm:"column:tags" bson:"tags" json:"tags"`
	Language        string                       `gorm:"column:language" bson:"language" json:"language"`
	Status          VideoStatus                  `gorm:"index;not null;column:status" bson:"status" json:"status"`
	IsLive          bool                         `gorm:"column:is_live" bson:"is_live" json:"is_live"`
	Metrics         VideoMetrics                 `gorm:"embedded" bson:"metrics" json:"metrics"`
	SearchKeywords  datatypes.JSONSlice[string]  `gorm:"column:search_keywords" bson:"search_keywords" json:"-"`
	TrendingScore   float64                      `gorm:"index;column:trending_score" bson:"trending_score" json:"trending_score"`
	CreatedAt       time.Time                    `gorm:"index;not null" bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time                    `gorm:"not null" bson:"updated_at" json:"updated_at"`
}

func (Video) TableName() string {
	return "video"
}

func (v *Video) HasTag(tag string) bool {
	for _, t := range v.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// CounterDelta is applied atomically to a single video's counters; zero
// fields are no-ops.
type CounterDelta struct {
	Views        int64
	Likes        int64
	Dislikes     int64
	Comments     int64
	Shares       int64
	WatchMinutes float64
}

func (d CounterDelta) IsZero() bool {
	return d == CounterDelta{}
}
