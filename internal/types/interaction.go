package types

import (
	"time"

	"github.com/google/uuid"
)

type InteractionType string

const (
	InteractionView    InteractionType = "view"
	InteractionLike    InteractionType = "like"
	InteractionDislike InteractionType = "dislike"
)

// InteractionRecord is one row of the append-only interaction log. The store
// enforces uniqueness on (user_id, video_id, interaction_type); records are
// immutable once written except for deletion on unlike/undislike.
type InteractionRecord struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" bson:"_id" json:"id"`
	UserID    uuid.UUID       `gorm:"type:uuid;uniqueIndex:ux_interaction;not null;column:user_id" bson:"user_id" json:"user_id"`
	VideoID   uuid.UUID       `gorm:"type:uuid;uniqueIndex:ux_interaction;not null;column:video_id" bson:"video_id" json:"video_id"`
	Type      InteractionType `gorm:"uniqueIndex:ux_interaction;not null;column:interaction_type" bson:"interaction_type" json:"interaction_type"`
	CreatedAt time.Time       `gorm:"not null" bson:"created_at" json:"created_at"`
}

func (InteractionRecord) TableName() string {
	return "user_video_interaction"
}
