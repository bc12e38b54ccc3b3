package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Category tags a post and decides which nested record it carries.
type Category string

const (
	CategoryConfession Category = "confession"
	CategoryPoll       Category = "poll"
	CategoryTea        Category = "tea"
	CategoryRumor      Category = "rumor"
	CategoryChallenge  Category = "challenge"
	CategoryGeneral    Category = "general"
)

// Categories lists every valid post category.
var Categories = []Category{
	CategoryGeneral, CategoryConfession, CategoryTea, CategoryPoll, CategoryRumor, CategoryChallenge,
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, v := range Categories {
		if c == v {
			return true
		}
	}
	return false
}

// Post is a feed item. UserReaction is scoped to the viewer that loaded it and never stored.
type Post struct {
	ID            string                      `gorm:"type:char(36);primaryKey" json:"id"`
	UserID        string                      `gorm:"type:char(36);index;not null" json:"user_id"`
	CollegeID     string                      `gorm:"type:char(36);index;not null" json:"college_id"`
	Category      Category                    `gorm:"size:16;index;not null" json:"category"`
	Title         string                      `gorm:"size:255" json:"title,omitempty"`
	Content       string                      `gorm:"type:text;not null" json:"content"`
	MediaURLs     datatypes.JSONSlice[string] `gorm:"column:media_urls" json:"media_urls,omitempty"`
	IsAnonymous   bool                        `gorm:"default:true" json:"is_anonymous"`
	LikesCount    int                         `gorm:"default:0" json:"likes_count"`
	CommentsCount int                         `gorm:"default:0" json:"comments_count"`
	SharesCount   int                         `gorm:"default:0" json:"shares_count"`
	IsTrending    bool                        `gorm:"index" json:"is_trending"`
	IsFeatured    bool                        `json:"is_featured"`
	IsReported    bool                        `json:"is_reported"`
	ReportCount   int                         `gorm:"default:0" json:"report_count"`
	CreatedAt     time.Time                   `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time                   `json:"updated_at"`
	User          *User                       `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Poll          *Poll                       `gorm:"foreignKey:PostID" json:"poll,omitempty"`
	Rumor         *Rumor                      `gorm:"foreignKey:PostID" json:"rumor,omitempty"`
	Challenge     *Challenge                  `gorm:"foreignKey:PostID" json:"challenge,omitempty"`
	UserReaction  ReactionType                `gorm:"-" json:"user_reaction,omitempty"`
}

// BeforeCreate assigns a UUID when the caller did not.
func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// Clone returns a deep copy so an optimistic edit can be undone without aliasing.
func (p Post) Clone() Post {
	out := p
	if p.MediaURLs != nil {
		out.MediaURLs = append(datatypes.JSONSlice[string]{}, p.MediaURLs...)
	}
	if p.User != nil {
		u := *p.User
		out.User = &u
	}
	if p.Poll != nil {
		poll := *p.Poll
		poll.Options = append([]PollOption(nil), p.Poll.Options...)
		out.Poll = &poll
	}
	if p.Rumor != nil {
		r := *p.Rumor
		if p.Rumor.UserVote != nil {
			v := *p.Rumor.UserVote
			r.UserVote = &v
		}
		out.Rumor = &r
	}
	if p.Challenge != nil {
		c := *p.Challenge
		c.Responses = append([]ChallengeResponse(nil), p.Challenge.Responses...)
		out.Challenge = &c
	}
	return out
}
