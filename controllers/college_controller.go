package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/teatime/teatime/models"
	"github.com/teatime/teatime/repository"
	"github.com/teatime/teatime/utils"
)

const (
	collegesCacheKey = "cache:colleges:list"
	collegesCacheTTL = 10 * time.Minute
	statsCacheTTL    = time.Minute
)

// CollegeController serves the public campus directory and per campus counters.
type CollegeController struct {
	colleges repository.CollegeRepository
	users    repository.UserRepository
	cache    utils.Cache
}

// NewCollegeController creates a new CollegeController instance.
func NewCollegeController(store *repository.Store, cache utils.Cache) *CollegeController {
	return &CollegeController{colleges: store.Colleges, users: store.Users, cache: cache}
}

// ListColleges returns verified colleges ordered by name.
func (c *CollegeController) ListColleges(ctx *gin.Context) {
	var cached []models.College
	if utils.CacheGetJSON(ctx.Request.Context(), c.cache, collegesCacheKey, &cached) {
		utils.Success(ctx, cached)
		return
	}

	colleges, err := c.colleges.List(ctx.Request.Context())
	if err != nil {
		utils.InternalError(ctx, 50010, "failed to load colleges", err)
		return
	}
	if colleges == nil {
		colleges = []models.College{}
	}
	utils.CacheSetJSON(ctx.Request.Context(), c.cache, collegesCacheKey, colleges, collegesCacheTTL)
	utils.Success(ctx, colleges)
}

// GetByDomain resolves the college of an email domain.
func (c *CollegeController) GetByDomain(ctx *gin.Context) {
	domain := strings.ToLower(strings.TrimSpace(ctx.Param("domain")))
	if domain == "" {
		utils.Error(ctx, http.StatusBadRequest, 40010, "domain is required")
		return
	}
	college, err := c.colleges.ByDomain(ctx.Request.Context(), domain)
	if err != nil {
		respondRepoError(ctx, err, "college", 50011)
		return
	}
	utils.Success(ctx, college)
}

// GetStats returns user and post counts of a college.
func (c *CollegeController) GetStats(ctx *gin.Context) {
	id := ctx.Param("id")
	key := "cache:college:stats:" + id

	var cached repository.CollegeStats
	if utils.CacheGetJSON(ctx.Request.Context(), c.cache, key, &cached) {
		utils.Success(ctx, cached)
		return
	}

	stats, err := c.colleges.Stats(ctx.Request.Context(), id)
	if err != nil {
		respondRepoError(ctx, err, "college", 50012)
		return
	}
	utils.CacheSetJSON(ctx.Request.Context(), c.cache, key, stats, statsCacheTTL)
	utils.Success(ctx, stats)
}

// GetUserPublic returns the anonymous identity of a user.
func (c *CollegeController) GetUserPublic(ctx *gin.Context) {
	id := ctx.Param("id")
	key := "cache:user:public:" + id

	var cached models.User
	if utils.CacheGetJSON(ctx.Request.Context(), c.cache, key, &cached) {
		utils.Success(ctx, cached)
		return
	}

	user, err := c.users.ByID(ctx.Request.Context(), id)
	if err != nil {
		respondRepoError(ctx, err, "user", 50013)
		return
	}
	public := user.Public()
	utils.CacheSetJSON(ctx.Request.Context(), c.cache, key, public, statsCacheTTL)
	utils.Success(ctx, public)
}
