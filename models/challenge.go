package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChallengeType string

const (
	ChallengeConfession ChallengeType = "confession"
	ChallengeDare       ChallengeType = "dare"
	ChallengeStory      ChallengeType = "story"
)

func (t ChallengeType) Valid() bool {
	switch t {
	case ChallengeConfession, ChallengeDare, ChallengeStory:
		return true
	}
	return false
}

// Challenge belongs to a challenge post and collects responses until it expires.
type Challenge struct {
	ID                string              `gorm:"type:char(36);primaryKey" json:"id"`
	PostID            string              `gorm:"type:char(36);uniqueIndex;not null" json:"post_id"`
	ChallengeText     string              `gorm:"type:text;not null" json:"challenge_text"`
	ChallengeType     ChallengeType       `gorm:"size:16;not null" json:"challenge_type"`
	ParticipantsCount int                 `gorm:"default:0" json:"participants_count"`
	IsTrending        bool                `json:"is_trending"`
	ExpiresAt         *time.Time          `json:"expires_at,omitempty"`
	CreatedAt         time.Time           `json:"created_at"`
	Responses         []ChallengeResponse `gorm:"foreignKey:ChallengeID" json:"responses,omitempty"`
}

type ChallengeResponse struct {
	ID           string    `gorm:"type:char(36);primaryKey" json:"id"`
	ChallengeID  string    `gorm:"type:char(36);index;not null" json:"challenge_id"`
	UserID       string    `gorm:"type:char(36);index;not null" json:"user_id"`
	ResponseText string    `gorm:"type:text;not null" json:"response_text"`
	MediaURL     string    `gorm:"size:512" json:"media_url,omitempty"`
	LikesCount   int       `gorm:"default:0" json:"likes_count"`
	IsFeatured   bool      `json:"is_featured"`
	CreatedAt    time.Time `json:"created_at"`
	User         *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (c *Challenge) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

func (r *ChallengeResponse) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// Expired reports whether the challenge closed before now.
func (c *Challenge) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && c.ExpiresAt.Before(now)
}
