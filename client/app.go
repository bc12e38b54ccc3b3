package client

import (
	"context"
	"errors"
	"strings"

	"github.com/teatime/teatime/config"
	"github.com/teatime/teatime/feed"
	"github.com/teatime/teatime/session"
)

// ErrNoEndpoint is returned when the configuration carries no API URL.
var ErrNoEndpoint = errors.New("client: TEATIME_API_URL is not configured")

// App is what a client process builds once at startup: the API client and the
// session context that tracks the signed in user.
type App struct {
	API     *Client
	Session *session.Context
}

// NewFromConfig builds an App from the endpoint and public API key in cfg.
func NewFromConfig(cfg config.AppConfig, opts ...Option) (*App, error) {
	if strings.TrimSpace(cfg.APIURL) == "" {
		return nil, ErrNoEndpoint
	}
	api := New(cfg.APIURL, cfg.APIKey, opts...)
	return &App{
		API:     api,
		Session: session.New(api, session.WithLogger(api.log)),
	}, nil
}

// SignIn authenticates and loads the profile into the session context.
func (a *App) SignIn(ctx context.Context, email, password string) error {
	res, err := a.API.SignIn(ctx, email, password)
	if err != nil {
		return err
	}
	return a.Session.Change(ctx, res.Session())
}

// SignOut revokes the token and clears the session context.
func (a *App) SignOut(ctx context.Context) error {
	err := a.API.SignOut(ctx)
	a.Session.SignOut()
	return err
}

// Feed returns a feed of the signed in user's college.
func (a *App) Feed(opts ...feed.Option) (*feed.Feed, error) {
	u := a.Session.User()
	if u == nil {
		return nil, ErrNotSignedIn
	}
	opts = append([]feed.Option{feed.WithLogger(a.API.log)}, opts...)
	return feed.New(a.API, a.API, u.CollegeID, u.ID, opts...), nil
}
