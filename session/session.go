// Package session tracks who is signed in on the client and their joined profile.
package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/teatime/teatime/models"
)

// Session is an authenticated access session.
type Session struct {
	AccessToken string    `json:"access_token"`
	UserID      string    `json:"user_id"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Expired reports whether the token is past its expiry. A zero expiry never expires.
func (s *Session) Expired(now time.Time) bool {
	return s != nil && !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// ProfileLoader fetches the user row with its college for a session.
type ProfileLoader interface {
	Profile(ctx context.Context, s *Session) (*models.User, error)
}

type Option func(*Context)

func WithLogger(l *zap.Logger) Option {
	return func(c *Context) {
		if l != nil {
			c.log = l
		}
	}
}

// Context replaces a process wide auth store: it is created once at startup and
// passed to whatever needs the current user.
type Context struct {
	loader ProfileLoader
	log    *zap.Logger

	mu      sync.RWMutex
	session *Session
	user    *models.User
	ready   bool
	// seq orders session changes; a profile load finishing after a newer change is dropped.
	seq uint64
}

func New(loader ProfileLoader, opts ...Option) *Context {
	c := &Context{loader: loader, log: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start applies the initial session, nil when nothing was stored, and marks the context ready.
func (c *Context) Start(ctx context.Context, initial *Session) error {
	err := c.Change(ctx, initial)
	c.mu.Lock()
	c.ready = true
	c.mu.Unlock()
	return err
}

// Change handles one session change event. nil signs out, anything else loads the profile.
// If loading fails the session is kept, the user stays cleared and the error is returned.
func (c *Context) Change(ctx context.Context, s *Session) error {
	c.mu.Lock()
	c.seq++
	seq := c.seq
	c.session = s
	c.user = nil
	c.mu.Unlock()

	if s == nil {
		return nil
	}

	user, err := c.loader.Profile(ctx, s)
	if err != nil {
		c.log.Warn("load profile failed", zap.String("user_id", s.UserID), zap.Error(err))
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq == c.seq {
		c.user = user
	}
	return nil
}

// Watch consumes session change events until the channel closes or ctx ends.
func (c *Context) Watch(ctx context.Context, events <-chan *Session) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case s, ok := <-events:
			if !ok {
				return nil
			}
			// errors are already logged; the next event may recover
			_ = c.Change(ctx, s)
		}
	}
}

// SignOut clears the session and profile.
func (c *Context) SignOut() {
	c.mu.Lock()
	c.seq++
	c.session = nil
	c.user = nil
	c.mu.Unlock()
}

// User returns a copy of the signed in profile, nil when signed out or not loaded.
func (c *Context) User() *models.User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.user == nil {
		return nil
	}
	u := *c.user
	if c.user.College != nil {
		col := *c.user.College
		u.College = &col
	}
	return &u
}

func (c *Context) Session() *Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return nil
	}
	s := *c.session
	return &s
}

// Ready turns true once Start has run, whatever its outcome.
func (c *Context) Ready() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ready
}

// SignedIn reports whether a profile is loaded.
func (c *Context) SignedIn() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.user != nil
}
