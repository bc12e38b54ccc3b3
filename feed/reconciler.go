package feed

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/teatime/teatime/models"
)

// ApplyReaction returns p with the viewer's reaction toggled or switched to kind.
// Picking the current kind removes it (-1), switching kinds keeps the count and
// reacting for the first time adds one.
func ApplyReaction(p models.Post, kind models.ReactionType) models.Post {
	switch p.UserReaction {
	case kind:
		p.UserReaction = ""
		p.LikesCount--
	case "":
		p.UserReaction = kind
		p.LikesCount++
	default:
		p.UserReaction = kind
	}
	return p
}

// React toggles the viewer's reaction on a loaded post and persists it.
func (f *Feed) React(ctx context.Context, postID string, kind models.ReactionType) error {
	if !kind.Valid() {
		return ErrInvalidReaction
	}

	f.mu.Lock()
	i, ok := f.index[postID]
	if !ok {
		f.mu.Unlock()
		return ErrPostNotLoaded
	}
	before := f.items[i]
	removing := before.UserReaction == kind
	after := ApplyReaction(before, kind)
	f.items[i] = after
	delta := after.LikesCount - before.LikesCount
	epoch := f.epoch
	f.mu.Unlock()

	var err error
	if removing {
		err = f.writer.DeleteReaction(ctx, postID, f.viewerID)
	} else {
		err = f.writer.UpsertReaction(ctx, postID, f.viewerID, kind)
	}
	if err != nil {
		f.undo(ctx, "react", postID, epoch, err, func(p *models.Post) {
			if p.UserReaction == after.UserReaction {
				p.UserReaction = before.UserReaction
			}
			p.LikesCount -= delta
		})
		return err
	}
	return nil
}

// VotePoll records the viewer's choice on a poll that is still open.
func (f *Feed) VotePoll(ctx context.Context, postID, optionID string) error {
	f.mu.Lock()
	i, ok := f.index[postID]
	if !ok {
		f.mu.Unlock()
		return ErrPostNotLoaded
	}
	p := &f.items[i]
	if p.Poll == nil {
		f.mu.Unlock()
		return ErrNotApplicable
	}
	if p.Poll.UserVote != "" {
		f.mu.Unlock()
		return ErrAlreadyVoted
	}
	if p.Poll.Expired(f.now()) {
		f.mu.Unlock()
		return ErrPollExpired
	}
	poll := copyPoll(p.Poll)
	opt, ok := poll.Option(optionID)
	if !ok {
		f.mu.Unlock()
		return ErrUnknownOption
	}
	opt.VotesCount++
	poll.TotalVotes++
	poll.UserVote = optionID
	p.Poll = poll
	pollID := poll.ID
	epoch := f.epoch
	f.mu.Unlock()

	if err := f.writer.VotePoll(ctx, pollID, optionID, f.viewerID); err != nil {
		f.undo(ctx, "vote_poll", postID, epoch, err, func(p *models.Post) {
			if p.Poll == nil || p.Poll.UserVote != optionID {
				return
			}
			poll := copyPoll(p.Poll)
			if opt, ok := poll.Option(optionID); ok && opt.VotesCount > 0 {
				opt.VotesCount--
			}
			if poll.TotalVotes > 0 {
				poll.TotalVotes--
			}
			poll.UserVote = ""
			p.Poll = poll
		})
		return err
	}
	return nil
}

// VoteRumor records believe (true) or doubt (false) once per rumor.
func (f *Feed) VoteRumor(ctx context.Context, postID string, believes bool) error {
	f.mu.Lock()
	i, ok := f.index[postID]
	if !ok {
		f.mu.Unlock()
		return ErrPostNotLoaded
	}
	p := &f.items[i]
	if p.Rumor == nil {
		f.mu.Unlock()
		return ErrNotApplicable
	}
	if p.Rumor.UserVote != nil {
		f.mu.Unlock()
		return ErrAlreadyVoted
	}
	r := *p.Rumor
	if believes {
		r.BelieveCount++
	} else {
		r.DoubtCount++
	}
	r.Recompute()
	vote := believes
	r.UserVote = &vote
	p.Rumor = &r
	rumorID := r.ID
	epoch := f.epoch
	f.mu.Unlock()

	if err := f.writer.VoteRumor(ctx, rumorID, f.viewerID, believes); err != nil {
		f.undo(ctx, "vote_rumor", postID, epoch, err, func(p *models.Post) {
			if p.Rumor == nil || p.Rumor.UserVote == nil || *p.Rumor.UserVote != believes {
				return
			}
			r := *p.Rumor
			if believes && r.BelieveCount > 0 {
				r.BelieveCount--
			} else if !believes && r.DoubtCount > 0 {
				r.DoubtCount--
			}
			r.Recompute()
			r.UserVote = nil
			p.Rumor = &r
		})
		return err
	}
	return nil
}

// RespondToChallenge submits a response while the challenge is open. The participant
// count moves right away, the response itself is appended once the write returns it.
func (f *Feed) RespondToChallenge(ctx context.Context, postID, text string) (*models.ChallengeResponse, error) {
	text = strings.TrimSpace(text)

	f.mu.Lock()
	i, ok := f.index[postID]
	if !ok {
		f.mu.Unlock()
		return nil, ErrPostNotLoaded
	}
	p := &f.items[i]
	if p.Challenge == nil {
		f.mu.Unlock()
		return nil, ErrNotApplicable
	}
	if text == "" {
		f.mu.Unlock()
		return nil, ErrEmptyResponse
	}
	if p.Challenge.Expired(f.now()) {
		f.mu.Unlock()
		return nil, ErrChallengeExpired
	}
	ch := *p.Challenge
	ch.ParticipantsCount++
	p.Challenge = &ch
	challengeID := ch.ID
	epoch := f.epoch
	f.mu.Unlock()

	resp, err := f.writer.RespondToChallenge(ctx, challengeID, f.viewerID, text)
	if err != nil {
		f.undo(ctx, "respond_challenge", postID, epoch, err, func(p *models.Post) {
			if p.Challenge == nil || p.Challenge.ParticipantsCount == 0 {
				return
			}
			c := *p.Challenge
			c.ParticipantsCount--
			p.Challenge = &c
		})
		return nil, err
	}
	if resp == nil {
		return nil, nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if epoch != f.epoch {
		return resp, nil
	}
	if i, ok := f.index[postID]; ok && f.items[i].Challenge != nil {
		for _, existing := range f.items[i].Challenge.Responses {
			if existing.ID == resp.ID {
				return resp, nil
			}
		}
		c := *f.items[i].Challenge
		c.Responses = append(append([]models.ChallengeResponse(nil), c.Responses...), *resp)
		f.items[i].Challenge = &c
	}
	return resp, nil
}

// undo applies the failure policy after a write error. Under RollbackEntity only the
// failed action is reverted on the current post, so writes that landed meanwhile stay.
func (f *Feed) undo(ctx context.Context, action, postID string, epoch uint64, cause error, revert func(*models.Post)) {
	f.log.Warn("optimistic update failed",
		zap.String("action", action),
		zap.String("post_id", postID),
		zap.Error(cause),
	)

	if f.policy == ReloadAll {
		if err := f.LoadPage(ctx, 0); err != nil {
			f.log.Error("reload after failed update", zap.Error(err))
		}
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if epoch != f.epoch {
		// list already holds fresh server data
		return
	}
	if i, ok := f.index[postID]; ok {
		revert(&f.items[i])
	}
}

func copyPoll(p *models.Poll) *models.Poll {
	c := *p
	c.Options = append([]models.PollOption(nil), p.Options...)
	return &c
}
