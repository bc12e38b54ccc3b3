package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/teatime/teatime/middleware"
	"github.com/teatime/teatime/models"
	"github.com/teatime/teatime/repository"
	"github.com/teatime/teatime/utils"
)

const (
	maxContentRunes      = 500
	maxRumorRunes        = 1000
	minRumorRunes        = 20
	maxMediaURLs         = 4
	minPollOptions       = 2
	maxPollOptions       = 6
	defaultPollHours     = 24
	maxPollHours         = 168
	defaultChallengeDays = 7
	maxChallengeDays     = 30
	searchLimit          = 20
	maxTrendingLimit     = 50

	feedCacheTTL = 30 * time.Second
)

// PostController serves the feed, search and post creation.
type PostController struct {
	posts         repository.PostRepository
	cache         utils.Cache
	metrics       *middleware.Metrics
	pageSize      int
	trendingLimit int
	now           func() time.Time
}

// NewPostController creates a new PostController instance.
func NewPostController(store *repository.Store, cache utils.Cache, metrics *middleware.Metrics, pageSize, trendingLimit int) *PostController {
	if pageSize <= 0 {
		pageSize = 20
	}
	if trendingLimit <= 0 {
		trendingLimit = 10
	}
	return &PostController{
		posts:         store.Posts,
		cache:         cache,
		metrics:       metrics,
		pageSize:      pageSize,
		trendingLimit: trendingLimit,
		now:           time.Now,
	}
}

// Feed returns one zero based page of the college feed with the viewer's state.
func (p *PostController) Feed(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}
	collegeID := feedCollege(ctx)
	if collegeID == "" {
		utils.Error(ctx, http.StatusBadRequest, 40025, "college_id is required")
		return
	}

	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"), p.pageSize)
	key := fmt.Sprintf("%s%d:%d:%s", feedCachePrefix(collegeID), page, pageSize, userID)

	var cached utils.PageData
	if utils.CacheGetJSON(ctx.Request.Context(), p.cache, key, &cached) {
		utils.Success(ctx, cached)
		return
	}

	posts, err := p.posts.Feed(ctx.Request.Context(), collegeID, userID, page, pageSize)
	if err != nil {
		utils.InternalError(ctx, 50020, "failed to load feed", err)
		return
	}
	if posts == nil {
		posts = []models.Post{}
	}

	data := utils.PageData{Items: posts, Page: page, PageSize: pageSize, HasMore: len(posts) == pageSize}
	utils.CacheSetJSON(ctx.Request.Context(), p.cache, key, data, feedCacheTTL)
	utils.Success(ctx, data)
}

// Trending returns the trending posts of the college, most liked first.
func (p *PostController) Trending(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}
	collegeID := feedCollege(ctx)
	if collegeID == "" {
		utils.Error(ctx, http.StatusBadRequest, 40025, "college_id is required")
		return
	}

	limit := p.trendingLimit
	if l, err := strconv.Atoi(ctx.Query("limit")); err == nil && l > 0 && l <= maxTrendingLimit {
		limit = l
	}
	key := fmt.Sprintf("%s%d:%s", trendingCachePrefix(collegeID), limit, userID)

	var cached utils.PageData
	if utils.CacheGetJSON(ctx.Request.Context(), p.cache, key, &cached) {
		utils.Success(ctx, cached)
		return
	}

	posts, err := p.posts.Trending(ctx.Request.Context(), collegeID, userID, limit)
	if err != nil {
		utils.InternalError(ctx, 50021, "failed to load trending posts", err)
		return
	}
	if posts == nil {
		posts = []models.Post{}
	}

	data := utils.PageData{Items: posts, Page: 0, PageSize: limit}
	utils.CacheSetJSON(ctx.Request.Context(), p.cache, key, data, feedCacheTTL)
	utils.Success(ctx, data)
}

// Search matches title or content inside the caller's college.
func (p *PostController) Search(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}
	q := strings.TrimSpace(ctx.Query("q"))
	if q == "" {
		utils.Error(ctx, http.StatusBadRequest, 40026, "query is required")
		return
	}
	if utf8.RuneCountInString(q) > 100 {
		utils.Error(ctx, http.StatusBadRequest, 40026, "query is too long")
		return
	}

	posts, err := p.posts.Search(ctx.Request.Context(), feedCollege(ctx), userID, q, searchLimit)
	if err != nil {
		utils.InternalError(ctx, 50022, "failed to search posts", err)
		return
	}
	if posts == nil {
		posts = []models.Post{}
	}
	utils.Success(ctx, utils.PageData{Items: posts, Page: 0, PageSize: searchLimit})
}

// GetPost returns a single post with the viewer's state.
func (p *PostController) GetPost(ctx *gin.Context) {
	userID, _ := getUserID(ctx)
	post, err := p.posts.ByID(ctx.Request.Context(), ctx.Param("id"), userID)
	if err != nil {
		respondRepoError(ctx, err, "post", 50023)
		return
	}
	utils.Success(ctx, post)
}

type createPostRequest struct {
	Category      models.Category      `json:"category" validate:"required,category"`
	Title         string               `json:"title" validate:"maxrunes=255"`
	Content       string               `json:"content" validate:"notblank"`
	MediaURLs     []string             `json:"media_urls" validate:"dive,url"`
	IsAnonymous   *bool                `json:"is_anonymous"`
	PollOptions   []string             `json:"poll_options"`
	PollHours     int                  `json:"poll_duration_hours"`
	ChallengeType models.ChallengeType `json:"challenge_type" validate:"challenge_type"`
	ChallengeDays int                  `json:"challenge_duration_days"`
}

// CreatePost allows authenticated users to create new posts.
func (p *PostController) CreatePost(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}
	collegeID := ctx.GetString(middleware.ContextCollegeIDKey)
	if collegeID == "" {
		utils.Error(ctx, http.StatusForbidden, 40302, "join a college before posting")
		return
	}

	var req createPostRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40021, err.Error())
		return
	}

	post, err := buildPost(req, userID, collegeID, p.now())
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40021, err.Error())
		return
	}

	if err := p.posts.Create(ctx.Request.Context(), post); err != nil {
		respondRepoError(ctx, err, "author", 50024)
		return
	}
	p.metrics.ObservePost(string(post.Category))
	invalidateFeeds(ctx, p.cache, collegeID)
	utils.Created(ctx, post)
}

// buildPost applies the per category rules and fills the nested record.
func buildPost(req createPostRequest, userID, collegeID string, now time.Time) (*models.Post, error) {
	content := utils.Sanitize(req.Content)
	n := utf8.RuneCountInString(content)
	if n == 0 {
		return nil, errors.New("content is required")
	}
	limit := maxContentRunes
	if req.Category == models.CategoryRumor {
		limit = maxRumorRunes
	}
	if n > limit {
		return nil, fmt.Errorf("content must be at most %d characters", limit)
	}

	media := utils.UniqueStrings(req.MediaURLs)
	if len(media) > maxMediaURLs {
		return nil, fmt.Errorf("at most %d media items are allowed", maxMediaURLs)
	}

	anonymous := true
	if req.IsAnonymous != nil {
		anonymous = *req.IsAnonymous
	}

	post := &models.Post{
		UserID:      userID,
		CollegeID:   collegeID,
		Category:    req.Category,
		Title:       utils.SanitizePlain(req.Title),
		Content:     content,
		IsAnonymous: anonymous,
	}
	if len(media) > 0 {
		post.MediaURLs = datatypes.JSONSlice[string](media)
	}

	switch req.Category {
	case models.CategoryPoll:
		var options []string
		for _, o := range req.PollOptions {
			if o = utils.SanitizePlain(o); o != "" {
				options = append(options, o)
			}
		}
		if len(options) < minPollOptions || len(options) > maxPollOptions {
			return nil, fmt.Errorf("a poll needs %d to %d options", minPollOptions, maxPollOptions)
		}
		hours := req.PollHours
		if hours == 0 {
			hours = defaultPollHours
		}
		if hours < 1 || hours > maxPollHours {
			return nil, fmt.Errorf("poll duration must be between 1 and %d hours", maxPollHours)
		}
		expires := now.Add(time.Duration(hours) * time.Hour)
		poll := &models.Poll{ExpiresAt: &expires}
		for i, o := range options {
			poll.Options = append(poll.Options, models.PollOption{OptionText: o, OrderIndex: i})
		}
		post.Poll = poll

	case models.CategoryRumor:
		if n < minRumorRunes {
			return nil, fmt.Errorf("a rumor needs at least %d characters", minRumorRunes)
		}
		post.Rumor = &models.Rumor{RumorText: content, CredibilityScore: models.Credibility(0, 0)}

	case models.CategoryChallenge:
		if req.ChallengeType == "" {
			return nil, errors.New("challenge_type is required")
		}
		days := req.ChallengeDays
		if days == 0 {
			days = defaultChallengeDays
		}
		if days < 1 || days > maxChallengeDays {
			return nil, fmt.Errorf("challenge duration must be between 1 and %d days", maxChallengeDays)
		}
		expires := now.Add(time.Duration(days) * 24 * time.Hour)
		post.Challenge = &models.Challenge{
			ChallengeText: content,
			ChallengeType: req.ChallengeType,
			ExpiresAt:     &expires,
		}
	}
	return post, nil
}

func feedCachePrefix(collegeID string) string {
	return "cache:feed:" + collegeID + ":"
}

func trendingCachePrefix(collegeID string) string {
	return "cache:trending:" + collegeID + ":"
}

// invalidateFeeds drops every cached feed and trending page of a college.
func invalidateFeeds(ctx *gin.Context, cache utils.Cache, collegeID string) {
	if collegeID == "" {
		return
	}
	cache.InvalidateByPrefix(ctx.Request.Context(), feedCachePrefix(collegeID))
	cache.InvalidateByPrefix(ctx.Request.Context(), trendingCachePrefix(collegeID))
}

// invalidateParentFeeds drops the cached feeds of the college owning the target post.
// The caller's college is used when the lookup fails.
func invalidateParentFeeds(ctx *gin.Context, posts repository.PostRepository, cache utils.Cache, parent repository.Parent, id string) {
	collegeID, err := posts.CollegeOf(ctx.Request.Context(), parent, id)
	if err != nil {
		utils.Logger.Warn("resolve post college failed", zap.String("id", id), zap.Error(err))
		collegeID = ctx.GetString(middleware.ContextCollegeIDKey)
	}
	invalidateFeeds(ctx, cache, collegeID)
}

// feedCollege prefers an explicit college_id query and falls back to the caller's college.
func feedCollege(ctx *gin.Context) string {
	if id := strings.TrimSpace(ctx.Query("college_id")); id != "" {
		return id
	}
	return ctx.GetString(middleware.ContextCollegeIDKey)
}

// respondRepoError maps repository sentinels onto HTTP statuses and logs anything else.
func respondRepoError(ctx *gin.Context, err error, what string, internalCode int) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		utils.Error(ctx, http.StatusNotFound, 40400, what+" not found")
	case errors.Is(err, repository.ErrExpired):
		utils.Error(ctx, http.StatusConflict, 40921, what+" has ended")
	case errors.Is(err, repository.ErrConflict):
		utils.Error(ctx, http.StatusConflict, 40901, what+" already exists")
	case errors.Is(err, repository.ErrForbidden):
		utils.Error(ctx, http.StatusForbidden, 40301, "forbidden")
	case errors.Is(err, repository.ErrInvalid):
		utils.Error(ctx, http.StatusBadRequest, 40029, "invalid "+what)
	default:
		utils.InternalError(ctx, internalCode, "failed to process "+what, err)
	}
}

// parsePagination reads a zero based page index and a page size capped at 100.
func parsePagination(pageStr, sizeStr string, defaultSize int) (int, int) {
	page := 0
	pageSize := defaultSize
	if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
		page = p
	}
	if s, err := strconv.Atoi(sizeStr); err == nil && s > 0 && s <= 100 {
		pageSize = s
	}
	return page, pageSize
}

func getUserID(ctx *gin.Context) (string, bool) {
	value, exists := ctx.Get(middleware.ContextUserIDKey)
	if !exists {
		return "", false
	}
	id, ok := value.(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}
