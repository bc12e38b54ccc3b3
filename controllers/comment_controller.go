package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/teatime/teatime/models"
	"github.com/teatime/teatime/repository"
	"github.com/teatime/teatime/utils"
)

// CommentController lists and creates comments under a post.
type CommentController struct {
	posts    repository.PostRepository
	comments repository.CommentRepository
	cache    utils.Cache
}

// NewCommentController creates a new CommentController instance.
func NewCommentController(store *repository.Store, cache utils.Cache) *CommentController {
	return &CommentController{posts: store.Posts, comments: store.Comments, cache: cache}
}

// ListComments returns top level comments oldest first with their replies.
func (c *CommentController) ListComments(ctx *gin.Context) {
	comments, err := c.comments.List(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		respondRepoError(ctx, err, "post", 50050)
		return
	}
	if comments == nil {
		comments = []models.Comment{}
	}
	utils.Success(ctx, comments)
}

// CreateComment adds a comment; a reply to a reply is attached to the top level comment.
func (c *CommentController) CreateComment(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}

	var req struct {
		Content         string `json:"content" validate:"notblank,maxrunes=500"`
		ParentCommentID string `json:"parent_comment_id"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40050, "invalid request payload")
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40051, err.Error())
		return
	}
	content := utils.Sanitize(req.Content)
	if content == "" {
		utils.Error(ctx, http.StatusBadRequest, 40051, "comment cannot be empty")
		return
	}

	comment := models.Comment{
		PostID:  ctx.Param("id"),
		UserID:  userID,
		Content: content,
	}
	if parent := strings.TrimSpace(req.ParentCommentID); parent != "" {
		comment.ParentCommentID = &parent
	}

	if err := c.comments.Create(ctx.Request.Context(), &comment); err != nil {
		respondRepoError(ctx, err, "post", 50051)
		return
	}
	invalidateParentFeeds(ctx, c.posts, c.cache, repository.ParentPost, ctx.Param("id"))
	utils.Created(ctx, comment)
}
