package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Comment is a reply to a post. Replies nest one level through ParentCommentID.
type Comment struct {
	ID              string       `gorm:"type:char(36);primaryKey" json:"id"`
	PostID          string       `gorm:"type:char(36);index;not null" json:"post_id"`
	UserID          string       `gorm:"type:char(36);index;not null" json:"user_id"`
	ParentCommentID *string      `gorm:"type:char(36);index" json:"parent_comment_id,omitempty"`
	Content         string       `gorm:"type:text;not null" json:"content"`
	LikesCount      int          `gorm:"default:0" json:"likes_count"`
	RepliesCount    int          `gorm:"default:0" json:"replies_count"`
	IsReported      bool         `json:"is_reported"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
	User            *User        `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Replies         []Comment    `gorm:"foreignKey:ParentCommentID" json:"replies,omitempty"`
	UserReaction    ReactionType `gorm:"-" json:"user_reaction,omitempty"`
}

// BeforeCreate assigns a UUID when the caller did not.
func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
