package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/teatime/teatime/config"
	"github.com/teatime/teatime/controllers"
	"github.com/teatime/teatime/middleware"
	"github.com/teatime/teatime/repository"
	"github.com/teatime/teatime/utils"
)

// Deps carries what the handlers need; nothing here reads global state.
type Deps struct {
	Config    config.AppConfig
	Store     *repository.Store
	Cache     utils.Cache
	Issuer    *utils.TokenIssuer
	Blacklist *utils.TokenBlacklist
	Guard     *utils.RegistrationGuard
	Registry  *prometheus.Registry
	Metrics   *middleware.Metrics
}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(d Deps) *gin.Engine {
	cfg := d.Config
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}
	if d.Cache == nil {
		d.Cache = utils.NopCache{}
	}
	if d.Registry == nil {
		d.Registry = prometheus.NewRegistry()
	}
	if d.Metrics == nil {
		d.Metrics = middleware.NewMetrics(d.Registry)
	}

	r := gin.New()
	// Access log goes to GIN_PATH, stdout when empty
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "apikey"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 || (len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))
	r.Use(d.Metrics.Handler())

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{})))

	authController := controllers.NewAuthController(d.Store, d.Issuer, d.Blacklist, d.Guard, d.Cache)
	collegeController := controllers.NewCollegeController(d.Store, d.Cache)
	postController := controllers.NewPostController(d.Store, d.Cache, d.Metrics, cfg.FeedPageSize, cfg.TrendingLimit)
	interactionController := controllers.NewInteractionController(d.Store, d.Cache, d.Metrics)
	commentController := controllers.NewCommentController(d.Store, d.Cache)
	notificationController := controllers.NewNotificationController(d.Store)

	authRequired := middleware.AuthRequired(d.Issuer, d.Blacklist)
	rateLimit := middleware.RateLimitMiddleware(cfg.RateLimitPerMinute)

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(rateLimit)
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.POST("/logout", authRequired, authController.Logout)
	authGroup.GET("/me", authRequired, authController.Me)
	authGroup.PATCH("/profile", authRequired, authController.UpdateProfile)

	// Public directory
	api.GET("/colleges", collegeController.ListColleges)
	api.GET("/colleges/by-domain/:domain", collegeController.GetByDomain)
	api.GET("/colleges/:id/stats", collegeController.GetStats)
	api.GET("/users/:id", collegeController.GetUserPublic)

	protected := api.Group("")
	protected.Use(authRequired, rateLimit)

	protected.GET("/feed", postController.Feed)
	protected.GET("/feed/trending", postController.Trending)
	protected.GET("/posts/search", postController.Search)
	protected.POST("/posts", postController.CreatePost)
	protected.GET("/posts/:id", postController.GetPost)

	protected.PUT("/posts/:id/reaction", interactionController.SetReaction)
	protected.DELETE("/posts/:id/reaction", interactionController.DeleteReaction)
	protected.POST("/polls/:id/votes", interactionController.VotePoll)
	protected.POST("/rumors/:id/votes", interactionController.VoteRumor)
	protected.POST("/challenges/:id/responses", interactionController.RespondToChallenge)

	protected.GET("/posts/:id/comments", commentController.ListComments)
	protected.POST("/posts/:id/comments", commentController.CreateComment)

	protected.GET("/notifications", notificationController.ListNotifications)
	protected.PATCH("/notifications/:id/read", notificationController.MarkRead)
	protected.GET("/trending-topics", notificationController.TrendingTopics)

	r.NoRoute(func(ctx *gin.Context) {
		if strings.HasPrefix(ctx.Request.URL.Path, "/api/") {
			utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
			return
		}
		utils.Error(ctx, http.StatusNotFound, 40400, "not found")
	})

	return r
}
