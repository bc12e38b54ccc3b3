package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/teatime/teatime/models"
)

type reactionRepository struct {
	db *gorm.DB
}

// Upsert sets the user's reaction. A new reaction bumps likes_count and notifies the author,
// switching kinds only rewrites the row.
func (r *reactionRepository) Upsert(ctx context.Context, postID, userID string, kind models.ReactionType) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Reaction
		if err := tx.Where("post_id = ? AND user_id = ?", postID, userID).Limit(1).Find(&existing).Error; err != nil {
			return fmt.Errorf("load reaction: %w", err)
		}
		if existing.ID != "" {
			if existing.ReactionType == kind {
				return nil
			}
			return tx.Model(&models.Reaction{}).Where("id = ?", existing.ID).
				UpdateColumn("reaction_type", kind).Error
		}

		if err := tx.Create(&models.Reaction{PostID: postID, UserID: userID, ReactionType: kind}).Error; err != nil {
			return fmt.Errorf("create reaction: %w", err)
		}
		res := tx.Model(&models.Post{}).Where("id = ?", postID).
			UpdateColumn("likes_count", gorm.Expr("likes_count + ?", 1))
		if res.Error != nil {
			return fmt.Errorf("bump likes: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}

		author, err := postAuthor(tx, postID)
		if err != nil {
			return err
		}
		if author == userID {
			return nil
		}
		return notify(tx, author, models.NotifyPostLiked, "New reaction",
			"Someone reacted "+kind.Emoji()+" to your post",
			map[string]any{"post_id": postID, "reaction_type": kind})
	})
}

// Delete removes the user's reaction; likes_count drops only when a row went away.
func (r *reactionRepository) Delete(ctx context.Context, postID, userID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("post_id = ? AND user_id = ?", postID, userID).Delete(&models.Reaction{})
		if res.Error != nil {
			return fmt.Errorf("delete reaction: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}
		return tx.Model(&models.Post{}).Where("id = ? AND likes_count > ?", postID, 0).
			UpdateColumn("likes_count", gorm.Expr("likes_count - ?", 1)).Error
	})
}
