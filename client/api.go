package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/teatime/teatime/feed"
	"github.com/teatime/teatime/models"
	"github.com/teatime/teatime/session"
)

var (
	_ feed.Source           = (*Client)(nil)
	_ feed.Writer           = (*Client)(nil)
	_ session.ProfileLoader = (*Client)(nil)
)

// AuthResult is what sign up and sign in return.
type AuthResult struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      models.User `json:"user"`
}

// Session converts the result into a client session.
func (r AuthResult) Session() *session.Session {
	return &session.Session{AccessToken: r.Token, UserID: r.User.ID, ExpiresAt: r.ExpiresAt}
}

// PostInput is the body of a new post.
type PostInput struct {
	Category      models.Category      `json:"category"`
	Title         string               `json:"title,omitempty"`
	Content       string               `json:"content"`
	MediaURLs     []string             `json:"media_urls,omitempty"`
	IsAnonymous   *bool                `json:"is_anonymous,omitempty"`
	PollOptions   []string             `json:"poll_options,omitempty"`
	PollHours     int                  `json:"poll_duration_hours,omitempty"`
	ChallengeType models.ChallengeType `json:"challenge_type,omitempty"`
	ChallengeDays int                  `json:"challenge_duration_days,omitempty"`
}

type page struct {
	Items []models.Post `json:"items"`
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignUp registers with a college email and keeps the returned session.
func (c *Client) SignUp(ctx context.Context, email, password string) (*AuthResult, error) {
	return c.authenticate(ctx, "/auth/register", email, password)
}

// SignIn authenticates and keeps the returned session.
func (c *Client) SignIn(ctx context.Context, email, password string) (*AuthResult, error) {
	return c.authenticate(ctx, "/auth/login", email, password)
}

func (c *Client) authenticate(ctx context.Context, path, email, password string) (*AuthResult, error) {
	var res AuthResult
	err := c.do(ctx, call{method: http.MethodPost, path: path, body: credentials{Email: email, Password: password}, anon: true}, &res)
	if err != nil {
		return nil, err
	}
	c.SetSession(res.Session())
	return &res, nil
}

// SignOut revokes the token server side and forgets it locally either way.
func (c *Client) SignOut(ctx context.Context) error {
	if c.Session() == nil {
		return nil
	}
	err := c.do(ctx, call{method: http.MethodPost, path: "/auth/logout"}, nil)
	c.SetSession(nil)
	return err
}

// Profile loads the user and college behind a session.
func (c *Client) Profile(ctx context.Context, s *session.Session) (*models.User, error) {
	if s == nil || s.AccessToken == "" {
		return nil, ErrNotSignedIn
	}
	var u models.User
	if err := c.do(ctx, call{method: http.MethodGet, path: "/auth/me", token: s.AccessToken}, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Feed loads one page of the college feed. The viewer is the signed in user.
func (c *Client) Feed(ctx context.Context, collegeID, _ string, pageIndex, limit int) ([]models.Post, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(pageIndex))
	q.Set("page_size", strconv.Itoa(limit))
	if collegeID != "" {
		q.Set("college_id", collegeID)
	}
	var p page
	if err := c.do(ctx, call{method: http.MethodGet, path: "/feed", query: q}, &p); err != nil {
		return nil, err
	}
	return p.Items, nil
}

func (c *Client) Trending(ctx context.Context, collegeID, _ string, limit int) ([]models.Post, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	if collegeID != "" {
		q.Set("college_id", collegeID)
	}
	var p page
	if err := c.do(ctx, call{method: http.MethodGet, path: "/feed/trending", query: q}, &p); err != nil {
		return nil, err
	}
	return p.Items, nil
}

func (c *Client) Search(ctx context.Context, query string) ([]models.Post, error) {
	var p page
	err := c.do(ctx, call{method: http.MethodGet, path: "/posts/search", query: url.Values{"q": {query}}}, &p)
	if err != nil {
		return nil, err
	}
	return p.Items, nil
}

func (c *Client) Post(ctx context.Context, id string) (*models.Post, error) {
	var p models.Post
	if err := c.do(ctx, call{method: http.MethodGet, path: "/posts/" + url.PathEscape(id)}, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) CreatePost(ctx context.Context, in PostInput) (*models.Post, error) {
	var p models.Post
	if err := c.do(ctx, call{method: http.MethodPost, path: "/posts", body: in}, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) UpsertReaction(ctx context.Context, postID, _ string, kind models.ReactionType) error {
	return c.do(ctx, call{
		method: http.MethodPut,
		path:   "/posts/" + url.PathEscape(postID) + "/reaction",
		body:   map[string]models.ReactionType{"reaction_type": kind},
	}, nil)
}

func (c *Client) DeleteReaction(ctx context.Context, postID, _ string) error {
	return c.do(ctx, call{method: http.MethodDelete, path: "/posts/" + url.PathEscape(postID) + "/reaction"}, nil)
}

func (c *Client) VotePoll(ctx context.Context, pollID, optionID, _ string) error {
	return c.do(ctx, call{
		method: http.MethodPost,
		path:   "/polls/" + url.PathEscape(pollID) + "/votes",
		body:   map[string]string{"option_id": optionID},
	}, nil)
}

func (c *Client) VoteRumor(ctx context.Context, rumorID, _ string, believes bool) error {
	return c.do(ctx, call{
		method: http.MethodPost,
		path:   "/rumors/" + url.PathEscape(rumorID) + "/votes",
		body:   map[string]bool{"believes": believes},
	}, nil)
}

func (c *Client) RespondToChallenge(ctx context.Context, challengeID, _, text string) (*models.ChallengeResponse, error) {
	var resp models.ChallengeResponse
	err := c.do(ctx, call{
		method: http.MethodPost,
		path:   "/challenges/" + url.PathEscape(challengeID) + "/responses",
		body:   map[string]string{"response_text": text},
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Comments(ctx context.Context, postID string) ([]models.Comment, error) {
	var out []models.Comment
	if err := c.do(ctx, call{method: http.MethodGet, path: "/posts/" + url.PathEscape(postID) + "/comments"}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateComment posts a comment; parentID is empty for a top level comment.
func (c *Client) CreateComment(ctx context.Context, postID, content, parentID string) (*models.Comment, error) {
	body := map[string]string{"content": content}
	if parentID != "" {
		body["parent_comment_id"] = parentID
	}
	var out models.Comment
	err := c.do(ctx, call{method: http.MethodPost, path: "/posts/" + url.PathEscape(postID) + "/comments", body: body}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Notifications(ctx context.Context) ([]models.Notification, error) {
	var out []models.Notification
	if err := c.do(ctx, call{method: http.MethodGet, path: "/notifications"}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) MarkNotificationRead(ctx context.Context, id string) error {
	return c.do(ctx, call{method: http.MethodPatch, path: "/notifications/" + url.PathEscape(id) + "/read"}, nil)
}

func (c *Client) TrendingTopics(ctx context.Context) ([]models.TrendingTopic, error) {
	var out []models.TrendingTopic
	if err := c.do(ctx, call{method: http.MethodGet, path: "/trending-topics"}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Colleges lists verified colleges; it needs no session.
func (c *Client) Colleges(ctx context.Context) ([]models.College, error) {
	var out []models.College
	if err := c.do(ctx, call{method: http.MethodGet, path: "/colleges", anon: true}, &out); err != nil {
		return nil, err
	}
	return out, nil
}
