package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ReactionType string

const (
	ReactionLike    ReactionType = "like"
	ReactionLaugh   ReactionType = "laugh"
	ReactionShocked ReactionType = "shocked"
	ReactionAngry   ReactionType = "angry"
	ReactionFire    ReactionType = "fire"
	ReactionEyes    ReactionType = "eyes"
)

// ReactionTypes lists the kinds in picker order.
var ReactionTypes = []ReactionType{
	ReactionLike, ReactionLaugh, ReactionShocked, ReactionAngry, ReactionFire, ReactionEyes,
}

func (r ReactionType) Valid() bool {
	for _, v := range ReactionTypes {
		if r == v {
			return true
		}
	}
	return false
}

// Emoji is the glyph shown in the reaction picker.
func (r ReactionType) Emoji() string {
	switch r {
	case ReactionLike:
		return "❤️"
	case ReactionLaugh:
		return "😂"
	case ReactionShocked:
		return "😱"
	case ReactionAngry:
		return "😡"
	case ReactionFire:
		return "🔥"
	case ReactionEyes:
		return "👀"
	}
	return ""
}

// Reaction is one user's reaction to a post; (post_id, user_id) is unique.
type Reaction struct {
	ID           string       `gorm:"type:char(36);primaryKey" json:"id"`
	PostID       string       `gorm:"type:char(36);uniqueIndex:idx_reactions_post_user;not null" json:"post_id"`
	UserID       string       `gorm:"type:char(36);uniqueIndex:idx_reactions_post_user;not null" json:"user_id"`
	ReactionType ReactionType `gorm:"size:16;not null" json:"reaction_type"`
	CreatedAt    time.Time    `json:"created_at"`
}

func (r *Reaction) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
