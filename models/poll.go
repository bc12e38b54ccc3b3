package models

import (
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Poll belongs to a poll post. UserVote is the option id the viewer picked, empty when none.
type Poll struct {
	ID         string       `gorm:"type:char(36);primaryKey" json:"id"`
	PostID     string       `gorm:"type:char(36);uniqueIndex;not null" json:"post_id"`
	ExpiresAt  *time.Time   `json:"expires_at,omitempty"`
	TotalVotes int          `gorm:"default:0" json:"total_votes"`
	CreatedAt  time.Time    `json:"created_at"`
	Options    []PollOption `gorm:"foreignKey:PollID" json:"options"`
	UserVote   string       `gorm:"-" json:"user_vote,omitempty"`
}

type PollOption struct {
	ID         string    `gorm:"type:char(36);primaryKey" json:"id"`
	PollID     string    `gorm:"type:char(36);index;not null" json:"poll_id"`
	OptionText string    `gorm:"size:255;not null" json:"option_text"`
	VotesCount int       `gorm:"default:0" json:"votes_count"`
	OrderIndex int       `gorm:"default:0" json:"order_index"`
	CreatedAt  time.Time `json:"created_at"`
}

type PollVote struct {
	ID           string    `gorm:"type:char(36);primaryKey" json:"id"`
	PollID       string    `gorm:"type:char(36);uniqueIndex:idx_poll_votes_poll_user;not null" json:"poll_id"`
	PollOptionID string    `gorm:"type:char(36);index;not null" json:"poll_option_id"`
	UserID       string    `gorm:"type:char(36);uniqueIndex:idx_poll_votes_poll_user;not null" json:"user_id"`
	CreatedAt    time.Time `json:"created_at"`
}

func (p *Poll) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

func (o *PollOption) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	return nil
}

func (v *PollVote) BeforeCreate(tx *gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	return nil
}

// Expired reports whether the poll closed before now. Polls without a deadline never expire.
func (p *Poll) Expired(now time.Time) bool {
	return p.ExpiresAt != nil && p.ExpiresAt.Before(now)
}

// Option returns the option with the given id.
func (p *Poll) Option(id string) (*PollOption, bool) {
	for i := range p.Options {
		if p.Options[i].ID == id {
			return &p.Options[i], true
		}
	}
	return nil, false
}

// Percentage is the rounded share of votes for an option, 0 when nobody voted.
func (p *Poll) Percentage(o PollOption) int {
	return percent(o.VotesCount, p.TotalVotes)
}

// Percentages maps option id to its rounded share.
func (p *Poll) Percentages() map[string]int {
	out := make(map[string]int, len(p.Options))
	for _, o := range p.Options {
		out[o.ID] = p.Percentage(o)
	}
	return out
}

func percent(part, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(total) * 100))
}
