package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teatime/teatime/middleware"
	"github.com/teatime/teatime/models"
	"github.com/teatime/teatime/repository"
	"github.com/teatime/teatime/utils"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type harness struct {
	fs     *fakeStore
	cache  *memCache
	issuer *utils.TokenIssuer
	bl     *utils.TokenBlacklist
	guard  *utils.RegistrationGuard
	router *gin.Engine
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	h := &harness{
		fs:     newFakeStore(),
		cache:  newMemCache(),
		issuer: utils.NewTokenIssuer("test-secret", time.Hour),
		bl:     utils.NewTokenBlacklist(nil),
	}
	store := h.fs.store()
	metrics := middleware.NewMetrics(prometheus.NewRegistry())

	auth := NewAuthController(store, h.issuer, h.bl, h.guard, h.cache)
	colleges := NewCollegeController(store, h.cache)
	posts := NewPostController(store, h.cache, metrics, 2, 10)
	posts.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	interactions := NewInteractionController(store, h.cache, metrics)
	comments := NewCommentController(store, h.cache)
	notifications := NewNotificationController(store)

	authRequired := middleware.AuthRequired(h.issuer, h.bl)

	r := gin.New()
	api := r.Group("/api/v1")
	api.POST("/auth/register", auth.Register)
	api.POST("/auth/login", auth.Login)
	api.POST("/auth/logout", authRequired, auth.Logout)
	api.GET("/auth/me", authRequired, auth.Me)
	api.PATCH("/auth/profile", authRequired, auth.UpdateProfile)
	api.GET("/colleges", colleges.ListColleges)
	api.GET("/colleges/by-domain/:domain", colleges.GetByDomain)
	api.GET("/colleges/:id/stats", colleges.GetStats)
	api.GET("/users/:id", colleges.GetUserPublic)

	p := api.Group("", authRequired)
	p.GET("/feed", posts.Feed)
	p.GET("/feed/trending", posts.Trending)
	p.GET("/posts/search", posts.Search)
	p.POST("/posts", posts.CreatePost)
	p.GET("/posts/:id", posts.GetPost)
	p.PUT("/posts/:id/reaction", interactions.SetReaction)
	p.DELETE("/posts/:id/reaction", interactions.DeleteReaction)
	p.POST("/polls/:id/votes", interactions.VotePoll)
	p.POST("/rumors/:id/votes", interactions.VoteRumor)
	p.POST("/challenges/:id/responses", interactions.RespondToChallenge)
	p.GET("/posts/:id/comments", comments.ListComments)
	p.POST("/posts/:id/comments", comments.CreateComment)
	p.GET("/notifications", notifications.ListNotifications)
	p.PATCH("/notifications/:id/read", notifications.MarkRead)
	p.GET("/trending-topics", notifications.TrendingTopics)

	h.router = r
	return h
}

func (h *harness) token(t *testing.T, userID, collegeID string) string {
	t.Helper()
	tok, _, err := h.issuer.GenerateToken(userID, collegeID)
	require.NoError(t, err)
	return tok
}

func (h *harness) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		var raw []byte
		switch b := body.(type) {
		case string:
			raw = []byte(b)
		default:
			var err error
			raw, err = json.Marshal(b)
			require.NoError(t, err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, "/api/v1"+path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

var verifiedCollege = &models.College{ID: "c1", Name: "Campus", Domain: "campus.edu", IsVerified: true}

func TestRegister(t *testing.T) {
	h := newHarness(t)
	h.fs.colleges.byDomain = func(_ context.Context, domain string) (*models.College, error) {
		if domain == "campus.edu" {
			return verifiedCollege, nil
		}
		return nil, repository.ErrNotFound
	}
	var created models.User
	h.fs.users.create = func(_ context.Context, u *models.User) error {
		u.ID = "u1"
		created = *u
		return nil
	}

	w, env := h.do(t, http.MethodPost, "/auth/register", "", gin.H{"email": " Alice@Campus.edu ", "password": "secret1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Equal(t, "alice@campus.edu", created.Email)
	assert.Equal(t, "c1", created.CollegeID)
	assert.NotEmpty(t, created.AnonymousAvatarSeed)
	assert.Equal(t, models.AnonymousName(created.AnonymousAvatarSeed), created.AnonymousUsername)
	assert.True(t, utils.CheckPassword(created.PasswordHash, "secret1"))
	assert.NotContains(t, string(env.Data), "password")

	var res struct {
		Token     string      `json:"token"`
		ExpiresAt time.Time   `json:"expires_at"`
		User      models.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, "u1", res.User.ID)
	assert.False(t, res.ExpiresAt.IsZero())

	claims, err := h.issuer.ParseToken(res.Token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "c1", claims.CollegeID)
}

func TestRegister_Rejections(t *testing.T) {
	h := newHarness(t)
	h.fs.colleges.byDomain = func(_ context.Context, domain string) (*models.College, error) {
		switch domain {
		case "campus.edu":
			return verifiedCollege, nil
		case "pending.edu":
			return &models.College{ID: "c2", Domain: domain}, nil
		}
		return nil, repository.ErrNotFound
	}
	h.fs.users.create = func(context.Context, *models.User) error { return repository.ErrConflict }

	cases := []struct {
		name   string
		body   interface{}
		status int
		code   int
	}{
		{"malformed", `{"email":`, http.StatusBadRequest, 40001},
		{"bad email", gin.H{"email": "nope", "password": "secret1"}, http.StatusBadRequest, 40002},
		{"short password", gin.H{"email": "a@campus.edu", "password": "abc"}, http.StatusBadRequest, 40002},
		{"unknown domain", gin.H{"email": "a@gmail.com", "password": "secret1"}, http.StatusBadRequest, 40004},
		{"unverified college", gin.H{"email": "a@pending.edu", "password": "secret1"}, http.StatusBadRequest, 40004},
		{"duplicate", gin.H{"email": "a@campus.edu", "password": "secret1"}, http.StatusConflict, 40901},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, env := h.do(t, http.MethodPost, "/auth/register", "", tc.body)
			assert.Equal(t, tc.status, w.Code)
			assert.Equal(t, tc.code, env.Code)
		})
	}
}

func TestLogin(t *testing.T) {
	h := newHarness(t)
	hash, err := utils.HashPassword("secret1")
	require.NoError(t, err)
	h.fs.users.byEmail = func(_ context.Context, email string) (*models.User, error) {
		switch email {
		case "a@campus.edu":
			return &models.User{ID: "u1", CollegeID: "c1", Email: email, PasswordHash: hash}, nil
		case "banned@campus.edu":
			return &models.User{ID: "u2", Email: email, PasswordHash: hash, IsBanned: true}, nil
		}
		return nil, repository.ErrNotFound
	}

	w, env := h.do(t, http.MethodPost, "/auth/login", "", gin.H{"email": "a@campus.edu", "password": "secret1"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"token"`)
	assert.Equal(t, []string{"u1"}, h.fs.users.touched)

	w, env = h.do(t, http.MethodPost, "/auth/login", "", gin.H{"email": "a@campus.edu", "password": "wrong1"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 40106, env.Code)

	w, _ = h.do(t, http.MethodPost, "/auth/login", "", gin.H{"email": "ghost@campus.edu", "password": "secret1"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, env = h.do(t, http.MethodPost, "/auth/login", "", gin.H{"email": "banned@campus.edu", "password": "secret1"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, 40301, env.Code)
}

func TestLogoutRevokesToken(t *testing.T) {
	h := newHarness(t)
	h.fs.users.byID = func(_ context.Context, id string) (*models.User, error) {
		return &models.User{ID: id, Email: "a@campus.edu", AnonymousUsername: "QuietOwl01"}, nil
	}
	tok := h.token(t, "u1", "c1")

	w, env := h.do(t, http.MethodGet, "/auth/me", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"email":"a@campus.edu"`)

	w, _ = h.do(t, http.MethodPost, "/auth/logout", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, env = h.do(t, http.MethodGet, "/auth/me", tok, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 40104, env.Code)
}

func TestUpdateProfile(t *testing.T) {
	h := newHarness(t)
	var gotName, gotSeed string
	h.fs.users.updateProfile = func(_ context.Context, id, username, seed string) (*models.User, error) {
		gotName, gotSeed = username, seed
		return &models.User{ID: id, AnonymousUsername: username, AnonymousAvatarSeed: seed}, nil
	}
	h.cache.SetBytes(context.Background(), "cache:user:public:u1", []byte(`{}`), 0)
	tok := h.token(t, "u1", "c1")

	w, _ := h.do(t, http.MethodPatch, "/auth/profile", tok, gin.H{"anonymous_username": "<b>Night</b>Owl", "anonymous_avatar_seed": " s2 "})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "NightOwl", gotName)
	assert.Equal(t, "s2", gotSeed)
	assert.Equal(t, 0, h.cache.len())

	w, env := h.do(t, http.MethodPatch, "/auth/profile", tok, gin.H{"anonymous_username": "ab"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 40031, env.Code)
}

func TestFeed_PaginationAndCache(t *testing.T) {
	h := newHarness(t)
	calls := 0
	h.fs.posts.feed = func(_ context.Context, collegeID, viewerID string, page, limit int) ([]models.Post, error) {
		calls++
		assert.Equal(t, "c1", collegeID)
		assert.Equal(t, "u1", viewerID)
		if page == 0 {
			return []models.Post{{ID: "p1"}, {ID: "p2"}}, nil
		}
		return []models.Post{{ID: "p3"}}, nil
	}
	tok := h.token(t, "u1", "c1")

	var page utils.PageData
	w, env := h.do(t, http.MethodGet, "/feed?page=0", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.True(t, page.HasMore)
	assert.Equal(t, 2, page.PageSize)

	_, env = h.do(t, http.MethodGet, "/feed?page=1", tok, nil)
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.False(t, page.HasMore)
	assert.Equal(t, 1, page.Page)

	// served from cache
	h.do(t, http.MethodGet, "/feed?page=0", tok, nil)
	assert.Equal(t, 2, calls)

	w, _ = h.do(t, http.MethodPost, "/posts", tok, gin.H{"category": "tea", "content": "fresh tea"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, 0, h.cache.len())

	h.do(t, http.MethodGet, "/feed?page=0", tok, nil)
	assert.Equal(t, 3, calls)
}

func TestFeed_EmptyIsArray(t *testing.T) {
	h := newHarness(t)
	w, env := h.do(t, http.MethodGet, "/feed", h.token(t, "u1", "c1"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"items":[]`)
	assert.Contains(t, string(env.Data), `"has_more":false`)
}

func TestFeed_RequiresAuthAndCollege(t *testing.T) {
	h := newHarness(t)
	w, _ := h.do(t, http.MethodGet, "/feed", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, env := h.do(t, http.MethodGet, "/feed", h.token(t, "u1", ""), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 40025, env.Code)
}

func TestTrendingAndSearch(t *testing.T) {
	h := newHarness(t)
	h.fs.posts.trending = func(_ context.Context, collegeID, _ string, limit int) ([]models.Post, error) {
		assert.Equal(t, 5, limit)
		return []models.Post{{ID: "hot", IsTrending: true}}, nil
	}
	h.fs.posts.search = func(_ context.Context, collegeID, _ string, q string, limit int) ([]models.Post, error) {
		assert.Equal(t, "c1", collegeID)
		assert.Equal(t, "exam", q)
		assert.Equal(t, searchLimit, limit)
		return []models.Post{{ID: "s1"}}, nil
	}
	tok := h.token(t, "u1", "c1")

	_, env := h.do(t, http.MethodGet, "/feed/trending?limit=5", tok, nil)
	assert.Contains(t, string(env.Data), `"id":"hot"`)

	_, env = h.do(t, http.MethodGet, "/posts/search?q=+exam+", tok, nil)
	assert.Contains(t, string(env.Data), `"id":"s1"`)

	w, env := h.do(t, http.MethodGet, "/posts/search?q=", tok, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 40026, env.Code)
}

func TestCreatePost(t *testing.T) {
	h := newHarness(t)
	var got *models.Post
	h.fs.posts.create = func(_ context.Context, p *models.Post) error {
		p.ID = "p9"
		got = p
		return nil
	}
	tok := h.token(t, "u1", "c1")

	w, env := h.do(t, http.MethodPost, "/posts", tok, gin.H{
		"category":     "poll",
		"title":        "<i>Lunch</i>",
		"content":      "Where do we eat?",
		"poll_options": []string{"Cafe", " ", "Hall"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.NotNil(t, got)
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, "c1", got.CollegeID)
	assert.Equal(t, "Lunch", got.Title)
	assert.True(t, got.IsAnonymous)
	require.NotNil(t, got.Poll)
	assert.Len(t, got.Poll.Options, 2)
	assert.Contains(t, string(env.Data), `"id":"p9"`)

	w, env = h.do(t, http.MethodPost, "/posts", tok, gin.H{"category": "gossip", "content": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 40021, env.Code)

	h.fs.posts.create = func(context.Context, *models.Post) error { return repository.ErrForbidden }
	w, _ = h.do(t, http.MethodPost, "/posts", tok, gin.H{"category": "tea", "content": "spill"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestBuildPost(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	no := false

	t.Run("poll defaults", func(t *testing.T) {
		p, err := buildPost(createPostRequest{
			Category:    models.CategoryPoll,
			Content:     "Best spot?",
			PollOptions: []string{"A", "B", ""},
			IsAnonymous: &no,
		}, "u1", "c1", now)
		require.NoError(t, err)
		require.NotNil(t, p.Poll)
		assert.Equal(t, now.Add(24*time.Hour), *p.Poll.ExpiresAt)
		assert.Equal(t, 1, p.Poll.Options[1].OrderIndex)
		assert.False(t, p.IsAnonymous)
	})

	t.Run("challenge defaults", func(t *testing.T) {
		p, err := buildPost(createPostRequest{
			Category:      models.CategoryChallenge,
			Content:       "Tell us your worst exam",
			ChallengeType: models.ChallengeStory,
		}, "u1", "c1", now)
		require.NoError(t, err)
		require.NotNil(t, p.Challenge)
		assert.Equal(t, now.Add(7*24*time.Hour), *p.Challenge.ExpiresAt)
		assert.Equal(t, p.Content, p.Challenge.ChallengeText)
	})

	t.Run("rumor", func(t *testing.T) {
		p, err := buildPost(createPostRequest{
			Category: models.CategoryRumor,
			Content:  strings.Repeat("r", 900),
		}, "u1", "c1", now)
		require.NoError(t, err)
		require.NotNil(t, p.Rumor)
		assert.Equal(t, 0.5, p.Rumor.CredibilityScore)
	})

	invalid := map[string]createPostRequest{
		"blank content":       {Category: models.CategoryTea, Content: "  "},
		"too long":            {Category: models.CategoryTea, Content: strings.Repeat("x", 501)},
		"rumor too long":      {Category: models.CategoryRumor, Content: strings.Repeat("x", 1001)},
		"rumor too short":     {Category: models.CategoryRumor, Content: "short rumor"},
		"one option":          {Category: models.CategoryPoll, Content: "q", PollOptions: []string{"A", " "}},
		"seven options":       {Category: models.CategoryPoll, Content: "q", PollOptions: []string{"1", "2", "3", "4", "5", "6", "7"}},
		"poll too long":       {Category: models.CategoryPoll, Content: "q", PollOptions: []string{"A", "B"}, PollHours: 169},
		"challenge no type":   {Category: models.CategoryChallenge, Content: "dare"},
		"challenge too long":  {Category: models.CategoryChallenge, Content: "dare", ChallengeType: models.ChallengeDare, ChallengeDays: 31},
		"too many media urls": {Category: models.CategoryTea, Content: "pics", MediaURLs: []string{"a", "b", "c", "d", "e"}},
	}
	for name, req := range invalid {
		t.Run(name, func(t *testing.T) {
			_, err := buildPost(req, "u1", "c1", now)
			assert.Error(t, err)
		})
	}
}

func TestReactions(t *testing.T) {
	h := newHarness(t)
	var kind models.ReactionType
	h.fs.reactions.upsert = func(_ context.Context, postID, userID string, k models.ReactionType) error {
		assert.Equal(t, "p1", postID)
		assert.Equal(t, "u1", userID)
		kind = k
		return nil
	}
	deleted := false
	h.fs.reactions.delete = func(context.Context, string, string) error {
		deleted = true
		return nil
	}
	tok := h.token(t, "u1", "c1")

	w, _ := h.do(t, http.MethodPut, "/posts/p1/reaction", tok, gin.H{"reaction_type": "laugh"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.ReactionLaugh, kind)

	w, env := h.do(t, http.MethodPut, "/posts/p1/reaction", tok, gin.H{"reaction_type": "meh"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 40041, env.Code)

	w, _ = h.do(t, http.MethodDelete, "/posts/p1/reaction", tok, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, deleted)

	h.fs.reactions.upsert = func(context.Context, string, string, models.ReactionType) error { return repository.ErrNotFound }
	w, _ = h.do(t, http.MethodPut, "/posts/missing/reaction", tok, gin.H{"reaction_type": "fire"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestInteractionInvalidatesOwningCollegeFeed(t *testing.T) {
	h := newHarness(t)
	tok := h.token(t, "u1", "c1")
	ctx := context.Background()
	own := feedCachePrefix("c1") + "0:20:u1"
	other := feedCachePrefix("c2") + "0:20:u1"

	var gotParent repository.Parent
	h.fs.posts.college = func(parent repository.Parent, id string) (string, error) {
		gotParent = parent
		if id == "poll9" {
			return "c2", nil
		}
		return "", repository.ErrNotFound
	}

	h.cache.SetBytes(ctx, own, []byte("{}"), time.Minute)
	h.cache.SetBytes(ctx, other, []byte("{}"), time.Minute)
	w, _ := h.do(t, http.MethodPost, "/polls/poll9/votes", tok, gin.H{"option_id": "o1"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, repository.ParentPoll, gotParent)
	_, ok := h.cache.GetBytes(ctx, other)
	assert.False(t, ok)
	_, ok = h.cache.GetBytes(ctx, own)
	assert.True(t, ok)

	// unknown owner falls back to the caller's college
	w, _ = h.do(t, http.MethodPut, "/posts/p1/reaction", tok, gin.H{"reaction_type": "fire"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, repository.ParentPost, gotParent)
	_, ok = h.cache.GetBytes(ctx, own)
	assert.False(t, ok)
}

func TestVotes(t *testing.T) {
	h := newHarness(t)
	tok := h.token(t, "u1", "c1")

	h.fs.votes.votePoll = func(_ context.Context, pollID, optionID, userID string) error {
		switch optionID {
		case "late":
			return repository.ErrExpired
		case "ghost":
			return repository.ErrNotFound
		}
		return nil
	}
	w, _ := h.do(t, http.MethodPost, "/polls/poll1/votes", tok, gin.H{"option_id": "o1"})
	assert.Equal(t, http.StatusOK, w.Code)
	w, env := h.do(t, http.MethodPost, "/polls/poll1/votes", tok, gin.H{"option_id": "late"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, 40921, env.Code)
	w, _ = h.do(t, http.MethodPost, "/polls/poll1/votes", tok, gin.H{"option_id": "ghost"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	w, _ = h.do(t, http.MethodPost, "/polls/poll1/votes", tok, gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var believed *bool
	h.fs.votes.voteRumor = func(_ context.Context, _, _ string, b bool) error {
		believed = &b
		return nil
	}
	w, _ = h.do(t, http.MethodPost, "/rumors/r1/votes", tok, gin.H{"believes": false})
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, believed)
	assert.False(t, *believed)
	w, env = h.do(t, http.MethodPost, "/rumors/r1/votes", tok, gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 40044, env.Code)
}

func TestRespondToChallenge(t *testing.T) {
	h := newHarness(t)
	tok := h.token(t, "u1", "c1")

	w, env := h.do(t, http.MethodPost, "/challenges/ch1/responses", tok, gin.H{"response_text": "I did it"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, string(env.Data), `"response_text":"I did it"`)

	w, env = h.do(t, http.MethodPost, "/challenges/ch1/responses", tok, gin.H{"response_text": "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 40046, env.Code)

	h.fs.votes.respond = func(context.Context, string, string, string) (*models.ChallengeResponse, error) {
		return nil, repository.ErrExpired
	}
	w, _ = h.do(t, http.MethodPost, "/challenges/ch1/responses", tok, gin.H{"response_text": "too late"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestComments(t *testing.T) {
	h := newHarness(t)
	var got models.Comment
	h.fs.comments.create = func(_ context.Context, c *models.Comment) error {
		c.ID = "c9"
		got = *c
		return nil
	}
	h.fs.comments.list = func(_ context.Context, postID string) ([]models.Comment, error) {
		return []models.Comment{{ID: "c1", PostID: postID, Replies: []models.Comment{{ID: "c2"}}}}, nil
	}
	tok := h.token(t, "u1", "c1")

	w, _ := h.do(t, http.MethodPost, "/posts/p1/comments", tok, gin.H{"content": "same", "parent_comment_id": "c1"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "p1", got.PostID)
	require.NotNil(t, got.ParentCommentID)
	assert.Equal(t, "c1", *got.ParentCommentID)

	w, env := h.do(t, http.MethodPost, "/posts/p1/comments", tok, gin.H{"content": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 40051, env.Code)

	_, env = h.do(t, http.MethodGet, "/posts/p1/comments", tok, nil)
	assert.Contains(t, string(env.Data), `"replies":[{"id":"c2"`)
}

func TestNotificationsAndTopics(t *testing.T) {
	h := newHarness(t)
	h.fs.notifications.list = func(_ context.Context, userID string, limit int) ([]models.Notification, error) {
		assert.Equal(t, notificationsLimit, limit)
		return []models.Notification{{ID: "n1", UserID: userID, Type: models.NotifyPostLiked}}, nil
	}
	h.fs.notifications.markRead = func(_ context.Context, id, _ string) error {
		if id == "n1" {
			return nil
		}
		return repository.ErrNotFound
	}
	h.fs.trending.topics = func(_ context.Context, collegeID string, limit int) ([]models.TrendingTopic, error) {
		return []models.TrendingTopic{{ID: "t1", CollegeID: collegeID, Topic: "finals"}}, nil
	}
	tok := h.token(t, "u1", "c1")

	_, env := h.do(t, http.MethodGet, "/notifications", tok, nil)
	assert.Contains(t, string(env.Data), `"id":"n1"`)

	w, _ := h.do(t, http.MethodPatch, "/notifications/n1/read", tok, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = h.do(t, http.MethodPatch, "/notifications/n2/read", tok, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	_, env = h.do(t, http.MethodGet, "/trending-topics", tok, nil)
	assert.Contains(t, string(env.Data), `"topic":"finals"`)
}

func TestColleges(t *testing.T) {
	h := newHarness(t)
	calls := 0
	h.fs.colleges.list = func(context.Context) ([]models.College, error) {
		calls++
		return []models.College{*verifiedCollege}, nil
	}
	h.fs.colleges.byDomain = func(_ context.Context, domain string) (*models.College, error) {
		if domain == "campus.edu" {
			return verifiedCollege, nil
		}
		return nil, repository.ErrNotFound
	}
	h.fs.colleges.stats = func(_ context.Context, id string) (*repository.CollegeStats, error) {
		return &repository.CollegeStats{CollegeID: id, Users: 3, Posts: 7}, nil
	}
	h.fs.users.byID = func(_ context.Context, id string) (*models.User, error) {
		return &models.User{ID: id, Email: "private@campus.edu", AnonymousUsername: "SneakyFox11"}, nil
	}

	h.do(t, http.MethodGet, "/colleges", "", nil)
	_, env := h.do(t, http.MethodGet, "/colleges", "", nil)
	assert.Equal(t, 1, calls)
	assert.Contains(t, string(env.Data), `"domain":"campus.edu"`)

	w, _ := h.do(t, http.MethodGet, "/colleges/by-domain/Campus.EDU", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = h.do(t, http.MethodGet, "/colleges/by-domain/other.edu", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	_, env = h.do(t, http.MethodGet, "/colleges/c1/stats", "", nil)
	assert.Contains(t, string(env.Data), `"posts":7`)

	_, env = h.do(t, http.MethodGet, "/users/u5", "", nil)
	assert.Contains(t, string(env.Data), `"anonymous_username":"SneakyFox11"`)
	assert.NotContains(t, string(env.Data), "private@campus.edu")
}

func TestRespondRepoError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		err    error
		status int
	}{
		{repository.ErrNotFound, http.StatusNotFound},
		{repository.ErrExpired, http.StatusConflict},
		{repository.ErrConflict, http.StatusConflict},
		{repository.ErrForbidden, http.StatusForbidden},
		{repository.ErrInvalid, http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		ctx, _ := gin.CreateTestContext(w)
		ctx.Request = httptest.NewRequest(http.MethodGet, "/x", nil)
		respondRepoError(ctx, tc.err, "post", 50000)
		assert.Equal(t, tc.status, w.Code, tc.err.Error())
	}
}

func TestParsePagination(t *testing.T) {
	page, size := parsePagination("", "", 20)
	assert.Equal(t, 0, page)
	assert.Equal(t, 20, size)

	page, size = parsePagination("3", "50", 20)
	assert.Equal(t, 3, page)
	assert.Equal(t, 50, size)

	page, size = parsePagination("-1", "500", 20)
	assert.Equal(t, 0, page)
	assert.Equal(t, 20, size)
}

func TestRegister_Throttled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	fs := newFakeStore()
	fs.colleges.byDomain = func(context.Context, string) (*models.College, error) { return verifiedCollege, nil }
	guard := utils.NewRegistrationGuard(nil, time.Hour, 5)
	auth := NewAuthController(fs.store(), utils.NewTokenIssuer("s", time.Hour), utils.NewTokenBlacklist(nil), guard, newMemCache())

	r := gin.New()
	r.POST("/register", auth.Register)
	post := func(email string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(`{"email":"`+email+`","password":"secret1"}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, post("a@campus.edu").Code)
	w := post("b@campus.edu")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "42910")
}
