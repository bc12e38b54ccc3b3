package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teatime/teatime/middleware"
	"github.com/teatime/teatime/models"
	"github.com/teatime/teatime/repository"
	"github.com/teatime/teatime/utils"
)

// AuthController handles registration, login and the caller's own profile.
type AuthController struct {
	users     repository.UserRepository
	colleges  repository.CollegeRepository
	issuer    *utils.TokenIssuer
	blacklist *utils.TokenBlacklist
	guard     *utils.RegistrationGuard
	cache     utils.Cache
}

// NewAuthController creates a new AuthController instance.
// A nil guard disables registration throttling.
func NewAuthController(store *repository.Store, issuer *utils.TokenIssuer, blacklist *utils.TokenBlacklist, guard *utils.RegistrationGuard, cache utils.Cache) *AuthController {
	return &AuthController{
		users:     store.Users,
		colleges:  store.Colleges,
		issuer:    issuer,
		blacklist: blacklist,
		guard:     guard,
		cache:     cache,
	}
}

type credentialsRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// Register creates an account in the college owning the email domain.
func (a *AuthController) Register(ctx *gin.Context) {
	var req credentialsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := utils.ValidateStruct(req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40002, err.Error())
		return
	}

	college, err := a.colleges.ByDomain(ctx.Request.Context(), emailDomain(req.Email))
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		utils.InternalError(ctx, 50001, "failed to resolve college", err)
		return
	}
	if college == nil || !college.IsVerified {
		utils.Error(ctx, http.StatusBadRequest, 40004, "email domain does not belong to a registered college")
		return
	}

	// Anti-abuse: cooldown and per-IP daily limit
	ip := ctx.ClientIP()
	if !a.guard.Try(ctx.Request.Context(), ip) {
		utils.Error(ctx, http.StatusTooManyRequests, 42910, "too many attempts, try again later")
		return
	}
	if !a.guard.Allowed(ctx.Request.Context(), ip) {
		utils.Error(ctx, http.StatusTooManyRequests, 42921, "daily registration limit reached")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		utils.InternalError(ctx, 50002, "failed to hash password", err)
		return
	}

	seed := uuid.NewString()
	user := models.User{
		CollegeID:           college.ID,
		Email:               req.Email,
		PasswordHash:        hash,
		AnonymousUsername:   models.AnonymousName(seed),
		AnonymousAvatarSeed: seed,
	}
	if err := a.users.Create(ctx.Request.Context(), &user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			utils.Error(ctx, http.StatusConflict, 40901, "email already registered")
			return
		}
		utils.InternalError(ctx, 50003, "failed to create user", err)
		return
	}
	a.guard.Record(ctx.Request.Context(), ip)
	user.College = college
	a.cache.InvalidateByPrefix(ctx.Request.Context(), "cache:college:stats:"+college.ID)

	a.issue(ctx, user)
}

// Login verifies user credentials and issues a JWT.
func (a *AuthController) Login(ctx *gin.Context) {
	var req credentialsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Email) == "" || req.Password == "" {
		utils.Error(ctx, http.StatusBadRequest, 40003, "invalid request payload")
		return
	}

	user, err := a.users.ByEmail(ctx.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			utils.Error(ctx, http.StatusUnauthorized, 40106, "invalid email or password")
			return
		}
		utils.InternalError(ctx, 50004, "failed to load user", err)
		return
	}
	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		utils.Error(ctx, http.StatusUnauthorized, 40106, "invalid email or password")
		return
	}
	if user.IsBanned {
		utils.Error(ctx, http.StatusForbidden, 40301, "account is banned")
		return
	}

	if err := a.users.Touch(ctx.Request.Context(), user.ID); err != nil {
		utils.Logger.Warn("touch last_active failed", zap.String("user_id", user.ID), zap.Error(err))
	}

	a.issue(ctx, *user)
}

func (a *AuthController) issue(ctx *gin.Context, user models.User) {
	token, expiresAt, err := a.issuer.GenerateToken(user.ID, user.CollegeID)
	if err != nil {
		utils.InternalError(ctx, 50005, "failed to generate token", err)
		return
	}
	utils.Success(ctx, gin.H{
		"token":      token,
		"expires_at": expiresAt,
		"user":       user,
	})
}

// Logout invalidates the token by blacklisting it until expiration.
func (a *AuthController) Logout(ctx *gin.Context) {
	token := ctx.GetString(middleware.ContextTokenKey)
	if token == "" {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}
	expiresAt := time.Now().Add(a.issuer.TTL())
	if v, ok := ctx.Get(middleware.ContextTokenExpiryKey); ok {
		if t, ok := v.(time.Time); ok {
			expiresAt = t
		}
	}

	if err := a.blacklist.Add(ctx.Request.Context(), token, expiresAt); err != nil {
		utils.InternalError(ctx, 50006, "failed to revoke token", err)
		return
	}
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// Me returns the current authenticated user's information.
func (a *AuthController) Me(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}

	user, err := a.users.ByID(ctx.Request.Context(), userID)
	if err != nil {
		respondRepoError(ctx, err, "user", 50007)
		return
	}
	utils.Success(ctx, user)
}

type profileRequest struct {
	AnonymousUsername   string `json:"anonymous_username" validate:"omitempty,min=3,maxrunes=32"`
	AnonymousAvatarSeed string `json:"anonymous_avatar_seed" validate:"omitempty,max=64"`
}

// UpdateProfile changes the anonymous identity of the caller.
func (a *AuthController) UpdateProfile(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}

	var req profileRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40030, "invalid request payload")
		return
	}
	req.AnonymousUsername = utils.SanitizePlain(req.AnonymousUsername)
	req.AnonymousAvatarSeed = strings.TrimSpace(req.AnonymousAvatarSeed)
	if err := utils.ValidateStruct(req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40031, err.Error())
		return
	}

	user, err := a.users.UpdateProfile(ctx.Request.Context(), userID, req.AnonymousUsername, req.AnonymousAvatarSeed)
	if err != nil {
		respondRepoError(ctx, err, "user", 50031)
		return
	}
	a.cache.InvalidateByPrefix(ctx.Request.Context(), "cache:user:public:"+userID)
	utils.Success(ctx, user)
}

func emailDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return ""
	}
	return strings.ToLower(email[at+1:])
}
