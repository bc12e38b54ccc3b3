package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type NotificationType string

const (
	NotifyPostLiked         NotificationType = "post_liked"
	NotifyPostCommented     NotificationType = "post_commented"
	NotifyCommentLiked      NotificationType = "comment_liked"
	NotifyPostTrending      NotificationType = "post_trending"
	NotifyChallengeResponse NotificationType = "challenge_response"
	NotifyPollVoted         NotificationType = "poll_voted"
	NotifyRumorUpdate       NotificationType = "rumor_update"
	NotifyTeaRankUp         NotificationType = "tea_rank_up"
)

func (t NotificationType) Valid() bool {
	switch t {
	case NotifyPostLiked, NotifyPostCommented, NotifyCommentLiked, NotifyPostTrending,
		NotifyChallengeResponse, NotifyPollVoted, NotifyRumorUpdate, NotifyTeaRankUp:
		return true
	}
	return false
}

type Notification struct {
	ID        string           `gorm:"type:char(36);primaryKey" json:"id"`
	UserID    string           `gorm:"type:char(36);index;not null" json:"user_id"`
	Type      NotificationType `gorm:"size:32;not null" json:"type"`
	Title     string           `gorm:"size:255;not null" json:"title"`
	Message   string           `gorm:"size:512;not null" json:"message"`
	Data      datatypes.JSON   `json:"data,omitempty"`
	IsRead    bool             `gorm:"index" json:"is_read"`
	CreatedAt time.Time        `gorm:"index" json:"created_at"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	return nil
}
