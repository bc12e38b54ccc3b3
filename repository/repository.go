// Package repository hides the relational store behind typed interfaces.
// Every write that touches a counter runs in a transaction together with the counter update.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/teatime/teatime/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrExpired   = errors.New("record expired")
	ErrForbidden = errors.New("forbidden")
	ErrConflict  = errors.New("record already exists")
	ErrInvalid   = errors.New("invalid input")
)

type UserRepository interface {
	Create(ctx context.Context, u *models.User) error
	ByID(ctx context.Context, id string) (*models.User, error)
	ByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateProfile(ctx context.Context, id string, username, avatarSeed string) (*models.User, error)
	Touch(ctx context.Context, id string) error
}

type CollegeRepository interface {
	List(ctx context.Context) ([]models.College, error)
	ByID(ctx context.Context, id string) (*models.College, error)
	ByDomain(ctx context.Context, domain string) (*models.College, error)
	Stats(ctx context.Context, id string) (*CollegeStats, error)
}

type PostRepository interface {
	Create(ctx context.Context, p *models.Post) error
	ByID(ctx context.Context, id, viewerID string) (*models.Post, error)
	Feed(ctx context.Context, collegeID, viewerID string, page, limit int) ([]models.Post, error)
	Trending(ctx context.Context, collegeID, viewerID string, limit int) ([]models.Post, error)
	Search(ctx context.Context, collegeID, viewerID, query string, limit int) ([]models.Post, error)
	RefreshTrending(ctx context.Context, since time.Time, threshold int) (int, error)
	CollegeOf(ctx context.Context, parent Parent, id string) (string, error)
}

// Parent names what an id passed to CollegeOf refers to.
type Parent int

const (
	ParentPost Parent = iota
	ParentPoll
	ParentRumor
	ParentChallenge
)

func (p Parent) table() string {
	switch p {
	case ParentPoll:
		return "polls"
	case ParentRumor:
		return "rumors"
	case ParentChallenge:
		return "challenges"
	}
	return ""
}

type ReactionRepository interface {
	Upsert(ctx context.Context, postID, userID string, kind models.ReactionType) error
	Delete(ctx context.Context, postID, userID string) error
}

type VoteRepository interface {
	VotePoll(ctx context.Context, pollID, optionID, userID string) error
	VoteRumor(ctx context.Context, rumorID, userID string, believes bool) error
	RespondToChallenge(ctx context.Context, challengeID, userID, text string) (*models.ChallengeResponse, error)
}

type CommentRepository interface {
	List(ctx context.Context, postID string) ([]models.Comment, error)
	Create(ctx context.Context, c *models.Comment) error
}

type NotificationRepository interface {
	List(ctx context.Context, userID string, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, id, userID string) error
}

type TrendingRepository interface {
	Topics(ctx context.Context, collegeID string, limit int) ([]models.TrendingTopic, error)
}

// CollegeStats summarizes a campus.
type CollegeStats struct {
	CollegeID string `json:"college_id"`
	Users     int64  `json:"users"`
	Posts     int64  `json:"posts"`
}

// Options tunes the reward rules applied on writes.
type Options struct {
	PostRewardPoints     int
	ResponseRewardPoints int
}

// Store bundles every repository over one database handle.
type Store struct {
	Users         UserRepository
	Colleges      CollegeRepository
	Posts         PostRepository
	Reactions     ReactionRepository
	Votes         VoteRepository
	Comments      CommentRepository
	Notifications NotificationRepository
	Trending      TrendingRepository
}

// NewStore builds the gorm backed repositories.
func NewStore(db *gorm.DB, opts Options) *Store {
	if opts.PostRewardPoints == 0 {
		opts.PostRewardPoints = 10
	}
	if opts.ResponseRewardPoints == 0 {
		opts.ResponseRewardPoints = 5
	}
	return &Store{
		Users:         &userRepository{db: db},
		Colleges:      &collegeRepository{db: db},
		Posts:         &postRepository{db: db, reward: opts.PostRewardPoints},
		Reactions:     &reactionRepository{db: db},
		Votes:         &voteRepository{db: db, reward: opts.ResponseRewardPoints},
		Comments:      &commentRepository{db: db},
		Notifications: &notificationRepository{db: db},
		Trending:      &trendingRepository{db: db},
	}
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// publicUser limits a joined author to the anonymous identity.
func publicUser(db *gorm.DB) *gorm.DB {
	return db.Select("id", "anonymous_username", "anonymous_avatar_seed", "tea_rank")
}

func notify(tx *gorm.DB, userID string, kind models.NotificationType, title, message string, data map[string]any) error {
	n := models.Notification{
		UserID:  userID,
		Type:    kind,
		Title:   title,
		Message: message,
	}
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return err
		}
		n.Data = datatypes.JSON(b)
	}
	if err := tx.Create(&n).Error; err != nil {
		return fmt.Errorf("create %s notification: %w", kind, err)
	}
	return nil
}

// awardPoints adds tea points and emits tea_rank_up when the rank title changes.
func awardPoints(tx *gorm.DB, userID string, points int) error {
	if points == 0 {
		return nil
	}
	if err := tx.Model(&models.User{}).Where("id = ?", userID).
		UpdateColumn("tea_points", gorm.Expr("tea_points + ?", points)).Error; err != nil {
		return fmt.Errorf("award points: %w", err)
	}

	var u models.User
	if err := tx.Select("id", "tea_points", "tea_rank").Where("id = ?", userID).Limit(1).Find(&u).Error; err != nil {
		return fmt.Errorf("load rank: %w", err)
	}
	if u.ID == "" {
		return nil
	}
	rank := models.TeaRankFor(u.TeaPoints)
	if rank == u.TeaRank {
		return nil
	}
	if err := tx.Model(&models.User{}).Where("id = ?", userID).UpdateColumn("tea_rank", rank).Error; err != nil {
		return fmt.Errorf("update rank: %w", err)
	}
	return notify(tx, userID, models.NotifyTeaRankUp, "Rank up!", "You are now a "+rank,
		map[string]any{"tea_rank": rank, "tea_points": u.TeaPoints})
}

// postAuthor returns the author of a post, ErrNotFound when it does not exist.
func postAuthor(tx *gorm.DB, postID string) (string, error) {
	var p models.Post
	if err := tx.Select("id", "user_id").Where("id = ?", postID).Limit(1).Find(&p).Error; err != nil {
		return "", err
	}
	if p.ID == "" {
		return "", ErrNotFound
	}
	return p.UserID, nil
}
