package types

import (
	"time"

	"github.com/google/uuid"
)

type CommentStatus string

const (
	CommentStatusActive    CommentStatus = "active"
	CommentStatusFlagged   CommentStatus = "flagged"
	CommentStatusRemoved   CommentStatus = "removed"
	CommentStatusModerated CommentStatus = "moderated"
)

const MaxCommentDepth = 5

type CommentMetrics struct {
	Likes        int64 `gorm:"column:likes" bson:"likes" json:"likes"`
	RepliesCount int64 `gorm:"column:replies_count" bson:"replies_count" json:"replies_count"`
	ReportsCount int64 `gorm:"column:reports_count" bson:"reports_count" json:"reports_count"`
}

type Comment struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" bson:"_id" json:"id"`
	VideoID         uuid.UUID      `gorm:"type:uuid;index;not null;column:video_id" bson:"video_id" json:"video_id"`
	AuthorID        uuid.UUID      `gorm:"type:uuid;index;not null;column:author_id" bson:"author_id" json:"author_id"`
	AuthorUsername  string         `gorm:"column:author_username" bson:"author_username" json:"author_username"`
	AuthorAvatar    string         `gorm:"column:author_avatar" bson:"author_avatar" json:"author_avatar"`
	Content         string         `gorm:"not null;column:content" bson:"content" json:"content"`
	ParentID        *uuid.UUID     `gorm:"type:uuid;index;column:parent_id" bson:"parent_id,omitempty" json:"parent_id,omitempty"`
	ThreadID        uuid.UUID      `gorm:"type:uuid;index;column:thread_id" bson:"thread_id" json:"thread_id"`
	Depth           int            `gorm:"column:depth" bson:"depth" json:"depth"`
	Status          CommentStatus  `gorm:"not null;column:status" bson:"status" json:"status"`
	IsPinned         bool           `gorm:"column:is_pinned" bson:"is_pinned" json:"is_pinned"`
	IsCreatorHearted bool           `gorm:"column:is_creator_hearted" bson:"is_creator_hearted" json:"is_creator_hearted"`
	Metrics          CommentMetrics `gorm:"embedded" bson:"metrics" json:"metrics"`
	EditedAt         *time.Time     `gorm:"column:edited_at" bson:"edited_at,omitempty" json:"edited_at,omitempty"`
	CreatedAt        time.Time      `gorm:"not null" bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"not null" bson:"updated_at" json:"updated_at"`
}

func (Comment) TableName() string {
	return "comment"
}
