package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TrendingTopic struct {
	ID           string    `gorm:"type:char(36);primaryKey" json:"id"`
	CollegeID    string    `gorm:"type:char(36);index;not null" json:"college_id"`
	Topic        string    `gorm:"size:128;not null" json:"topic"`
	MentionCount int       `gorm:"default:0" json:"mention_count"`
	TrendScore   float64   `gorm:"default:0" json:"trend_score"`
	IsActive     bool      `gorm:"default:true;index" json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (t *TrendingTopic) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// All returns every model in migration order.
func All() []interface{} {
	return []interface{}{
		&College{}, &User{}, &Post{}, &Poll{}, &PollOption{}, &PollVote{},
		&Rumor{}, &RumorVote{}, &Challenge{}, &ChallengeResponse{},
		&Reaction{}, &Comment{}, &Notification{}, &TrendingTopic{},
	}
}
