package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/teatime/teatime/models"
)

type voteRepository struct {
	db     *gorm.DB
	reward int
	now    func() time.Time
}

func (r *voteRepository) clock() time.Time {
	if r.now != nil {
		return r.now()
	}
	return time.Now()
}

// VotePoll records or moves the user's single vote on a poll.
func (r *voteRepository) VotePoll(ctx context.Context, pollID, optionID, userID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var poll models.Poll
		if err := tx.Where("id = ?", pollID).First(&poll).Error; err != nil {
			return translate(err)
		}
		if poll.Expired(r.clock()) {
			return ErrExpired
		}

		var option models.PollOption
		if err := tx.Where("id = ? AND poll_id = ?", optionID, pollID).Limit(1).Find(&option).Error; err != nil {
			return fmt.Errorf("load option: %w", err)
		}
		if option.ID == "" {
			return ErrNotFound
		}

		var existing models.PollVote
		if err := tx.Where("poll_id = ? AND user_id = ?", pollID, userID).Limit(1).Find(&existing).Error; err != nil {
			return fmt.Errorf("load poll vote: %w", err)
		}

		switch {
		case existing.ID == "":
			if err := tx.Create(&models.PollVote{PollID: pollID, PollOptionID: optionID, UserID: userID}).Error; err != nil {
				return fmt.Errorf("create poll vote: %w", err)
			}
			if err := bump(tx, &models.PollOption{}, optionID, "votes_count", 1); err != nil {
				return err
			}
			return bump(tx, &models.Poll{}, pollID, "total_votes", 1)
		case existing.PollOptionID == optionID:
			return nil
		default:
			if err := tx.Model(&models.PollVote{}).Where("id = ?", existing.ID).
				UpdateColumn("poll_option_id", optionID).Error; err != nil {
				return fmt.Errorf("move poll vote: %w", err)
			}
			if err := bump(tx, &models.PollOption{}, existing.PollOptionID, "votes_count", -1); err != nil {
				return err
			}
			return bump(tx, &models.PollOption{}, optionID, "votes_count", 1)
		}
	})
}

// VoteRumor records or flips the user's believe/doubt vote and refreshes credibility.
func (r *voteRepository) VoteRumor(ctx context.Context, rumorID, userID string, believes bool) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rumor models.Rumor
		if err := tx.Where("id = ?", rumorID).First(&rumor).Error; err != nil {
			return translate(err)
		}

		var existing models.RumorVote
		if err := tx.Where("rumor_id = ? AND user_id = ?", rumorID, userID).Limit(1).Find(&existing).Error; err != nil {
			return fmt.Errorf("load rumor vote: %w", err)
		}

		column := "doubt_count"
		if believes {
			column = "believe_count"
		}

		switch {
		case existing.ID == "":
			if err := tx.Create(&models.RumorVote{RumorID: rumorID, UserID: userID, Believes: believes}).Error; err != nil {
				return fmt.Errorf("create rumor vote: %w", err)
			}
			if err := tx.Model(&models.Rumor{}).Where("id = ?", rumorID).UpdateColumns(map[string]interface{}{
				column:        gorm.Expr(column+" + ?", 1),
				"total_votes": gorm.Expr("total_votes + ?", 1),
			}).Error; err != nil {
				return fmt.Errorf("count rumor vote: %w", err)
			}
		case existing.Believes == believes:
			return nil
		default:
			other := "believe_count"
			if believes {
				other = "doubt_count"
			}
			if err := tx.Model(&models.RumorVote{}).Where("id = ?", existing.ID).
				UpdateColumn("believes", believes).Error; err != nil {
				return fmt.Errorf("flip rumor vote: %w", err)
			}
			if err := tx.Model(&models.Rumor{}).Where("id = ?", rumorID).UpdateColumns(map[string]interface{}{
				column: gorm.Expr(column+" + ?", 1),
				other:  gorm.Expr(other+" - ?", 1),
			}).Error; err != nil {
				return fmt.Errorf("move rumor vote: %w", err)
			}
		}

		// separate statement so both MySQL and Postgres see the new counters
		return tx.Model(&models.Rumor{}).Where("id = ? AND total_votes > ?", rumorID, 0).
			UpdateColumn("credibility_score", gorm.Expr("believe_count * 1.0 / total_votes")).Error
	})
}

// RespondToChallenge appends a response while the challenge is open.
func (r *voteRepository) RespondToChallenge(ctx context.Context, challengeID, userID, text string) (*models.ChallengeResponse, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("empty response: %w", ErrInvalid)
	}

	var resp *models.ChallengeResponse
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ch models.Challenge
		if err := tx.Where("id = ?", challengeID).First(&ch).Error; err != nil {
			return translate(err)
		}
		if ch.Expired(r.clock()) {
			return ErrExpired
		}

		resp = &models.ChallengeResponse{ChallengeID: challengeID, UserID: userID, ResponseText: text}
		if err := tx.Omit("User").Create(resp).Error; err != nil {
			return fmt.Errorf("create response: %w", err)
		}
		if err := bump(tx, &models.Challenge{}, challengeID, "participants_count", 1); err != nil {
			return err
		}

		var author models.User
		if err := publicUser(tx).Where("id = ?", userID).Limit(1).Find(&author).Error; err != nil {
			return fmt.Errorf("load responder: %w", err)
		}
		if author.ID != "" {
			resp.User = &author
		}

		owner, err := postAuthor(tx, ch.PostID)
		if err != nil {
			return err
		}
		if owner != userID {
			if err := notify(tx, owner, models.NotifyChallengeResponse, "New challenge response",
				"Someone took on your challenge", map[string]any{"challenge_id": challengeID, "post_id": ch.PostID}); err != nil {
				return err
			}
		}
		return awardPoints(tx, userID, r.reward)
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// bump adds delta to an integer counter column; decrements never go below zero.
func bump(tx *gorm.DB, model interface{}, id, column string, delta int) error {
	q := tx.Model(model).Where("id = ?", id)
	var err error
	if delta < 0 {
		err = q.Where(column+" >= ?", -delta).UpdateColumn(column, gorm.Expr(column+" - ?", -delta)).Error
	} else {
		err = q.UpdateColumn(column, gorm.Expr(column+" + ?", delta)).Error
	}
	if err != nil {
		return fmt.Errorf("update %s: %w", column, err)
	}
	return nil
}
