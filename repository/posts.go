package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/teatime/teatime/models"
)

type postRepository struct {
	db     *gorm.DB
	reward int
}

// Create stores the post with its poll, rumor or challenge and rewards the author.
func (r *postRepository) Create(ctx context.Context, p *models.Post) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var author models.User
		if err := tx.Select("id", "is_banned").Where("id = ?", p.UserID).Limit(1).Find(&author).Error; err != nil {
			return fmt.Errorf("load author: %w", err)
		}
		if author.ID == "" {
			return ErrNotFound
		}
		if author.IsBanned {
			return ErrForbidden
		}
		if err := tx.Omit("User").Create(p).Error; err != nil {
			return fmt.Errorf("create post: %w", err)
		}
		return awardPoints(tx, p.UserID, r.reward)
	})
}

func (r *postRepository) ByID(ctx context.Context, id, viewerID string) (*models.Post, error) {
	var p models.Post
	if err := r.withAggregates(ctx).Where("posts.id = ?", id).First(&p).Error; err != nil {
		return nil, translate(err)
	}
	posts := []models.Post{p}
	if err := r.annotate(ctx, viewerID, posts); err != nil {
		return nil, err
	}
	return &posts[0], nil
}

// Feed returns one zero-based page of a college's posts, newest first.
func (r *postRepository) Feed(ctx context.Context, collegeID, viewerID string, page, limit int) ([]models.Post, error) {
	if page < 0 {
		page = 0
	}
	var posts []models.Post
	err := r.withAggregates(ctx).
		Where("posts.college_id = ?", collegeID).
		Order("posts.created_at DESC").
		Offset(page * limit).
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("load feed: %w", err)
	}
	return posts, r.annotate(ctx, viewerID, posts)
}

func (r *postRepository) Trending(ctx context.Context, collegeID, viewerID string, limit int) ([]models.Post, error) {
	var posts []models.Post
	err := r.withAggregates(ctx).
		Where("posts.college_id = ? AND posts.is_trending = ?", collegeID, true).
		Order("posts.likes_count DESC").
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("load trending: %w", err)
	}
	return posts, r.annotate(ctx, viewerID, posts)
}

func (r *postRepository) Search(ctx context.Context, collegeID, viewerID, query string, limit int) ([]models.Post, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.Post{}, nil
	}
	like := "%" + escapeLike(query) + "%"
	var posts []models.Post
	err := r.withAggregates(ctx).
		Where("posts.college_id = ?", collegeID).
		Where("posts.title LIKE ? OR posts.content LIKE ?", like, like).
		Order("posts.created_at DESC").
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("search posts: %w", err)
	}
	return posts, r.annotate(ctx, viewerID, posts)
}

// RefreshTrending flags recent posts that crossed the likes threshold and
// clears the flag on posts that fell out of the window.
func (r *postRepository) RefreshTrending(ctx context.Context, since time.Time, threshold int) (int, error) {
	marked := 0
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Post{}).
			Where("is_trending = ? AND created_at < ?", true, since).
			UpdateColumn("is_trending", false).Error; err != nil {
			return fmt.Errorf("clear stale trending: %w", err)
		}

		var hot []models.Post
		if err := tx.Select("id", "user_id").
			Where("is_trending = ? AND created_at >= ? AND likes_count >= ?", false, since, threshold).
			Find(&hot).Error; err != nil {
			return fmt.Errorf("find trending candidates: %w", err)
		}
		if len(hot) == 0 {
			return nil
		}

		ids := make([]string, 0, len(hot))
		for _, p := range hot {
			ids = append(ids, p.ID)
		}
		if err := tx.Model(&models.Post{}).Where("id IN ?", ids).UpdateColumn("is_trending", true).Error; err != nil {
			return fmt.Errorf("mark trending: %w", err)
		}
		for _, p := range hot {
			if err := notify(tx, p.UserID, models.NotifyPostTrending, "Your tea is trending!",
				"Your post is trending on campus", map[string]any{"post_id": p.ID}); err != nil {
				return err
			}
		}
		marked = len(hot)
		return nil
	})
	return marked, err
}

// CollegeOf returns the college of a post, or of the post owning a poll, rumor or challenge.
func (r *postRepository) CollegeOf(ctx context.Context, parent Parent, id string) (string, error) {
	q := r.db.WithContext(ctx).Model(&models.Post{})
	if table := parent.table(); table != "" {
		q = q.Joins("JOIN "+table+" ON "+table+".post_id = posts.id").Where(table+".id = ?", id)
	} else {
		q = q.Where("posts.id = ?", id)
	}
	var ids []string
	if err := q.Limit(1).Pluck("posts.college_id", &ids).Error; err != nil {
		return "", fmt.Errorf("load post college: %w", err)
	}
	if len(ids) == 0 {
		return "", ErrNotFound
	}
	return ids[0], nil
}

func (r *postRepository) withAggregates(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("User", publicUser).
		Preload("Poll").
		Preload("Poll.Options", func(db *gorm.DB) *gorm.DB { return db.Order("order_index ASC") }).
		Preload("Rumor").
		Preload("Challenge").
		Preload("Challenge.Responses", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Challenge.Responses.User", publicUser)
}

// annotate fills the viewer scoped fields: reaction, poll choice and rumor vote.
func (r *postRepository) annotate(ctx context.Context, viewerID string, posts []models.Post) error {
	if viewerID == "" || len(posts) == 0 {
		return nil
	}
	db := r.db.WithContext(ctx)

	postIDs := make([]string, 0, len(posts))
	var pollIDs, rumorIDs []string
	for _, p := range posts {
		postIDs = append(postIDs, p.ID)
		if p.Poll != nil {
			pollIDs = append(pollIDs, p.Poll.ID)
		}
		if p.Rumor != nil {
			rumorIDs = append(rumorIDs, p.Rumor.ID)
		}
	}

	var reactions []models.Reaction
	if err := db.Where("user_id = ? AND post_id IN ?", viewerID, postIDs).Find(&reactions).Error; err != nil {
		return fmt.Errorf("load viewer reactions: %w", err)
	}
	byPost := make(map[string]models.ReactionType, len(reactions))
	for _, re := range reactions {
		byPost[re.PostID] = re.ReactionType
	}

	byPoll := map[string]string{}
	if len(pollIDs) > 0 {
		var votes []models.PollVote
		if err := db.Where("user_id = ? AND poll_id IN ?", viewerID, pollIDs).Find(&votes).Error; err != nil {
			return fmt.Errorf("load viewer poll votes: %w", err)
		}
		for _, v := range votes {
			byPoll[v.PollID] = v.PollOptionID
		}
	}

	byRumor := map[string]bool{}
	if len(rumorIDs) > 0 {
		var votes []models.RumorVote
		if err := db.Where("user_id = ? AND rumor_id IN ?", viewerID, rumorIDs).Find(&votes).Error; err != nil {
			return fmt.Errorf("load viewer rumor votes: %w", err)
		}
		for _, v := range votes {
			byRumor[v.RumorID] = v.Believes
		}
	}

	for i := range posts {
		p := &posts[i]
		p.UserReaction = byPost[p.ID]
		if p.Poll != nil {
			p.Poll.UserVote = byPoll[p.Poll.ID]
		}
		if p.Rumor != nil {
			if b, ok := byRumor[p.Rumor.ID]; ok {
				v := b
				p.Rumor.UserVote = &v
			}
		}
	}
	return nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
