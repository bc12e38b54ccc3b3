package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// College is a campus; users join the college matching their email domain.
type College struct {
	ID           string    `gorm:"type:char(36);primaryKey" json:"id"`
	Name         string    `gorm:"size:255;not null" json:"name"`
	Domain       string    `gorm:"size:255;uniqueIndex;not null" json:"domain"`
	LogoURL      string    `gorm:"size:512" json:"logo_url,omitempty"`
	Location     string    `gorm:"size:255" json:"location,omitempty"`
	StudentCount int       `gorm:"default:0" json:"student_count,omitempty"`
	IsVerified   bool      `gorm:"index" json:"is_verified"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// BeforeCreate assigns a UUID when the caller did not.
func (c *College) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// User is an account with an anonymous public identity. Email and password hash stay private.
type User struct {
	ID                  string    `gorm:"type:char(36);primaryKey" json:"id"`
	CollegeID           string    `gorm:"type:char(36);index" json:"college_id,omitempty"`
	Email               string    `gorm:"size:255;uniqueIndex" json:"email,omitempty"`
	PasswordHash        string    `gorm:"size:255" json:"-"`
	AnonymousUsername   string    `gorm:"size:64" json:"anonymous_username"`
	AnonymousAvatarSeed string    `gorm:"size:64" json:"anonymous_avatar_seed,omitempty"`
	TeaPoints           int       `gorm:"default:0" json:"tea_points"`
	TeaRank             string    `gorm:"size:32" json:"tea_rank"`
	IsVerified          bool      `json:"is_verified"`
	IsBanned            bool      `json:"is_banned"`
	LastActive          time.Time `json:"last_active"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
	College             *College  `gorm:"foreignKey:CollegeID" json:"college,omitempty"`
}

// BeforeCreate fills the id, rank and activity timestamp.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.TeaRank == "" {
		u.TeaRank = TeaRankFor(u.TeaPoints)
	}
	if u.LastActive.IsZero() {
		u.LastActive = time.Now()
	}
	return nil
}

// Public strips the private fields before a profile leaves the owner's session.
func (u User) Public() User {
	u.Email = ""
	u.PasswordHash = ""
	return u
}
