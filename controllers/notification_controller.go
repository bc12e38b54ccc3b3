package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/teatime/teatime/models"
	"github.com/teatime/teatime/repository"
	"github.com/teatime/teatime/utils"
)

const (
	notificationsLimit = 50
	topicsLimit        = 10
)

// NotificationController serves the caller's notifications and the college's trending topics.
type NotificationController struct {
	notifications repository.NotificationRepository
	trending      repository.TrendingRepository
}

// NewNotificationController creates a new NotificationController instance.
func NewNotificationController(store *repository.Store) *NotificationController {
	return &NotificationController{notifications: store.Notifications, trending: store.Trending}
}

// ListNotifications returns the newest notifications of the caller.
func (n *NotificationController) ListNotifications(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}

	items, err := n.notifications.List(ctx.Request.Context(), userID, notificationsLimit)
	if err != nil {
		utils.InternalError(ctx, 50060, "failed to load notifications", err)
		return
	}
	if items == nil {
		items = []models.Notification{}
	}
	utils.Success(ctx, items)
}

// MarkRead flags one of the caller's notifications as read.
func (n *NotificationController) MarkRead(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}

	if err := n.notifications.MarkRead(ctx.Request.Context(), ctx.Param("id"), userID); err != nil {
		respondRepoError(ctx, err, "notification", 50061)
		return
	}
	utils.Success(ctx, gin.H{"id": ctx.Param("id"), "is_read": true})
}

// TrendingTopics returns the active topics of the caller's college.
func (n *NotificationController) TrendingTopics(ctx *gin.Context) {
	collegeID := feedCollege(ctx)
	if collegeID == "" {
		utils.Error(ctx, http.StatusBadRequest, 40025, "college_id is required")
		return
	}

	topics, err := n.trending.Topics(ctx.Request.Context(), collegeID, topicsLimit)
	if err != nil {
		utils.InternalError(ctx, 50062, "failed to load trending topics", err)
		return
	}
	if topics == nil {
		topics = []models.TrendingTopic{}
	}
	utils.Success(ctx, topics)
}
