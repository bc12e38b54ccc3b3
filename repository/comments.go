package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/teatime/teatime/models"
)

type commentRepository struct {
	db *gorm.DB
}

// List returns the top level comments of a post, oldest first, with their replies.
func (r *commentRepository) List(ctx context.Context, postID string) ([]models.Comment, error) {
	var out []models.Comment
	err := r.db.WithContext(ctx).
		Preload("User", publicUser).
		Preload("Replies", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Replies.User", publicUser).
		Where("post_id = ? AND parent_comment_id IS NULL", postID).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return out, nil
}

// Create stores a comment. Replies to replies are attached to the top level comment.
func (r *commentRepository) Create(ctx context.Context, c *models.Comment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		author, err := postAuthor(tx, c.PostID)
		if err != nil {
			return err
		}

		if c.ParentCommentID != nil {
			var parent models.Comment
			if err := tx.Where("id = ? AND post_id = ?", *c.ParentCommentID, c.PostID).First(&parent).Error; err != nil {
				return translate(err)
			}
			if parent.ParentCommentID != nil {
				top := *parent.ParentCommentID
				c.ParentCommentID = &top
			}
		}

		if err := tx.Omit("User", "Replies").Create(c).Error; err != nil {
			return fmt.Errorf("create comment: %w", err)
		}
		if err := bump(tx, &models.Post{}, c.PostID, "comments_count", 1); err != nil {
			return err
		}
		if c.ParentCommentID != nil {
			if err := bump(tx, &models.Comment{}, *c.ParentCommentID, "replies_count", 1); err != nil {
				return err
			}
		}

		if author == c.UserID {
			return nil
		}
		return notify(tx, author, models.NotifyPostCommented, "New comment",
			"Someone spilled tea on your post", map[string]any{"post_id": c.PostID, "comment_id": c.ID})
	})
}
