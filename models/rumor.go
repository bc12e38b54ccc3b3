package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Rumor belongs to a rumor post. UserVote is nil when the viewer has not voted,
// true for believe and false for doubt.
type Rumor struct {
	ID               string    `gorm:"type:char(36);primaryKey" json:"id"`
	PostID           string    `gorm:"type:char(36);uniqueIndex;not null" json:"post_id"`
	RumorText        string    `gorm:"type:text;not null" json:"rumor_text"`
	BelieveCount     int       `gorm:"default:0" json:"believe_count"`
	DoubtCount       int       `gorm:"default:0" json:"doubt_count"`
	TotalVotes       int       `gorm:"default:0" json:"total_votes"`
	CredibilityScore float64   `gorm:"default:0.5" json:"credibility_score"`
	CreatedAt        time.Time `json:"created_at"`
	UserVote         *bool     `gorm:"-" json:"user_vote,omitempty"`
}

type RumorVote struct {
	ID        string    `gorm:"type:char(36);primaryKey" json:"id"`
	RumorID   string    `gorm:"type:char(36);uniqueIndex:idx_rumor_votes_rumor_user;not null" json:"rumor_id"`
	UserID    string    `gorm:"type:char(36);uniqueIndex:idx_rumor_votes_rumor_user;not null" json:"user_id"`
	Believes  bool      `json:"believes"`
	CreatedAt time.Time `json:"created_at"`
}

func (r *Rumor) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

func (v *RumorVote) BeforeCreate(tx *gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	return nil
}

// BelievePercentage is the rounded share of believers, 0 without votes.
func (r *Rumor) BelievePercentage() int {
	return percent(r.BelieveCount, r.TotalVotes)
}

// DoubtPercentage complements BelievePercentage so both add up to 100 once anyone voted.
func (r *Rumor) DoubtPercentage() int {
	if r.TotalVotes <= 0 {
		return 0
	}
	return 100 - r.BelievePercentage()
}

// Recompute refreshes TotalVotes and CredibilityScore from the two counters.
func (r *Rumor) Recompute() {
	r.TotalVotes = r.BelieveCount + r.DoubtCount
	r.CredibilityScore = Credibility(r.BelieveCount, r.TotalVotes)
}

// Credibility is believers over voters, 0.5 when nobody voted.
func Credibility(believe, total int) float64 {
	if total <= 0 {
		return 0.5
	}
	return float64(believe) / float64(total)
}

// CredibilityLabel buckets a credibility score for display.
func CredibilityLabel(score float64) string {
	switch {
	case score >= 0.8:
		return "Highly Credible"
	case score >= 0.6:
		return "Likely True"
	case score >= 0.4:
		return "Mixed Opinions"
	case score >= 0.2:
		return "Doubtful"
	default:
		return "Highly Doubtful"
	}
}
