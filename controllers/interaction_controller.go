package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/teatime/teatime/middleware"
	"github.com/teatime/teatime/models"
	"github.com/teatime/teatime/repository"
	"github.com/teatime/teatime/utils"
)

const maxResponseRunes = 500

// InteractionController handles reactions, poll and rumor votes and challenge responses.
type InteractionController struct {
	posts     repository.PostRepository
	reactions repository.ReactionRepository
	votes     repository.VoteRepository
	cache     utils.Cache
	metrics   *middleware.Metrics
}

// NewInteractionController creates a new InteractionController instance.
func NewInteractionController(store *repository.Store, cache utils.Cache, metrics *middleware.Metrics) *InteractionController {
	return &InteractionController{
		posts:     store.Posts,
		reactions: store.Reactions,
		votes:     store.Votes,
		cache:     cache,
		metrics:   metrics,
	}
}

// SetReaction sets or replaces the caller's reaction on a post.
func (i *InteractionController) SetReaction(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}

	var req struct {
		ReactionType models.ReactionType `json:"reaction_type" validate:"required,reaction"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40040, "invalid request payload")
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40041, err.Error())
		return
	}

	if err := i.reactions.Upsert(ctx.Request.Context(), ctx.Param("id"), userID, req.ReactionType); err != nil {
		respondRepoError(ctx, err, "post", 50040)
		return
	}
	i.metrics.ObserveReaction(string(req.ReactionType), "set")
	invalidateParentFeeds(ctx, i.posts, i.cache, repository.ParentPost, ctx.Param("id"))
	utils.Success(ctx, gin.H{"post_id": ctx.Param("id"), "reaction_type": req.ReactionType})
}

// DeleteReaction removes the caller's reaction; removing a missing reaction succeeds.
func (i *InteractionController) DeleteReaction(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}

	if err := i.reactions.Delete(ctx.Request.Context(), ctx.Param("id"), userID); err != nil {
		respondRepoError(ctx, err, "post", 50041)
		return
	}
	i.metrics.ObserveReaction("any", "removed")
	invalidateParentFeeds(ctx, i.posts, i.cache, repository.ParentPost, ctx.Param("id"))
	utils.Success(ctx, gin.H{"post_id": ctx.Param("id")})
}

// VotePoll records or moves the caller's poll vote.
func (i *InteractionController) VotePoll(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}

	var req struct {
		OptionID string `json:"option_id" validate:"notblank"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40042, "invalid request payload")
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40043, err.Error())
		return
	}

	if err := i.votes.VotePoll(ctx.Request.Context(), ctx.Param("id"), strings.TrimSpace(req.OptionID), userID); err != nil {
		respondRepoError(ctx, err, "poll", 50042)
		return
	}
	invalidateParentFeeds(ctx, i.posts, i.cache, repository.ParentPoll, ctx.Param("id"))
	utils.Success(ctx, gin.H{"poll_id": ctx.Param("id"), "option_id": req.OptionID})
}

// VoteRumor records or flips the caller's believe/doubt vote.
func (i *InteractionController) VoteRumor(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}

	var req struct {
		Believes *bool `json:"believes"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil || req.Believes == nil {
		utils.Error(ctx, http.StatusBadRequest, 40044, "believes is required")
		return
	}

	if err := i.votes.VoteRumor(ctx.Request.Context(), ctx.Param("id"), userID, *req.Believes); err != nil {
		respondRepoError(ctx, err, "rumor", 50043)
		return
	}
	invalidateParentFeeds(ctx, i.posts, i.cache, repository.ParentRumor, ctx.Param("id"))
	utils.Success(ctx, gin.H{"rumor_id": ctx.Param("id"), "believes": *req.Believes})
}

// RespondToChallenge adds the caller's response to an open challenge.
func (i *InteractionController) RespondToChallenge(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}

	var req struct {
		ResponseText string `json:"response_text"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40045, "invalid request payload")
		return
	}
	text := utils.Sanitize(req.ResponseText)
	if text == "" {
		utils.Error(ctx, http.StatusBadRequest, 40046, "response cannot be empty")
		return
	}
	if len([]rune(text)) > maxResponseRunes {
		utils.Error(ctx, http.StatusBadRequest, 40046, "response is too long")
		return
	}

	resp, err := i.votes.RespondToChallenge(ctx.Request.Context(), ctx.Param("id"), userID, text)
	if err != nil {
		respondRepoError(ctx, err, "challenge", 50044)
		return
	}
	invalidateParentFeeds(ctx, i.posts, i.cache, repository.ParentChallenge, ctx.Param("id"))
	utils.Created(ctx, resp)
}
