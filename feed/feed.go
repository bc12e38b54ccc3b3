// Package feed keeps the client side list of posts for one viewer: it pages posts in
// from a Source and applies reactions and votes optimistically before writing them.
package feed

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/teatime/teatime/models"
)

const (
	DefaultPageSize      = 20
	DefaultTrendingLimit = 10
)

var (
	ErrPostNotLoaded    = errors.New("feed: post is not loaded")
	ErrNotApplicable    = errors.New("feed: post has no matching poll, rumor or challenge")
	ErrInvalidReaction  = errors.New("feed: unknown reaction type")
	ErrUnknownOption    = errors.New("feed: unknown poll option")
	ErrAlreadyVoted     = errors.New("feed: already voted")
	ErrPollExpired      = errors.New("feed: poll has ended")
	ErrChallengeExpired = errors.New("feed: challenge has ended")
	ErrEmptyResponse    = errors.New("feed: response is empty")
)

// Source loads posts with the viewer scoped fields filled in.
type Source interface {
	Feed(ctx context.Context, collegeID, viewerID string, page, limit int) ([]models.Post, error)
	Trending(ctx context.Context, collegeID, viewerID string, limit int) ([]models.Post, error)
}

// Writer persists the viewer's actions.
type Writer interface {
	UpsertReaction(ctx context.Context, postID, userID string, kind models.ReactionType) error
	DeleteReaction(ctx context.Context, postID, userID string) error
	VotePoll(ctx context.Context, pollID, optionID, userID string) error
	VoteRumor(ctx context.Context, rumorID, userID string, believes bool) error
	RespondToChallenge(ctx context.Context, challengeID, userID, text string) (*models.ChallengeResponse, error)
}

type Tab int

const (
	TabLatest Tab = iota
	TabTrending
)

func (t Tab) String() string {
	if t == TabTrending {
		return "trending"
	}
	return "latest"
}

// FailurePolicy decides what happens to local state when a write fails.
type FailurePolicy int

const (
	// RollbackEntity reverts only the failed action on the affected post.
	RollbackEntity FailurePolicy = iota
	// ReloadAll drops every local change and reloads page 0 of the current tab.
	ReloadAll
)

type Option func(*Feed)

func WithPageSize(n int) Option {
	return func(f *Feed) {
		if n > 0 {
			f.pageSize = n
		}
	}
}

func WithTrendingLimit(n int) Option {
	return func(f *Feed) {
		if n > 0 {
			f.trendingLimit = n
		}
	}
}

func WithFailurePolicy(p FailurePolicy) Option {
	return func(f *Feed) { f.policy = p }
}

func WithLogger(l *zap.Logger) Option {
	return func(f *Feed) {
		if l != nil {
			f.log = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(f *Feed) {
		if now != nil {
			f.now = now
		}
	}
}

// Feed is safe for concurrent use. Remote calls run without holding the lock.
type Feed struct {
	src       Source
	writer    Writer
	collegeID string
	viewerID  string

	pageSize      int
	trendingLimit int
	policy        FailurePolicy
	log           *zap.Logger
	now           func() time.Time

	mu      sync.Mutex
	tab     Tab
	page    int
	hasMore bool
	items   []models.Post
	index   map[string]int
	// gen changes on tab switches; responses from an older gen are dropped.
	gen uint64
	// epoch changes whenever the list is replaced; rollbacks from an older epoch are dropped.
	epoch uint64
}

// New creates an empty feed for a viewer on a college's latest tab.
func New(src Source, writer Writer, collegeID, viewerID string, opts ...Option) *Feed {
	f := &Feed{
		src:           src,
		writer:        writer,
		collegeID:     collegeID,
		viewerID:      viewerID,
		pageSize:      DefaultPageSize,
		trendingLimit: DefaultTrendingLimit,
		policy:        RollbackEntity,
		log:           zap.NewNop(),
		now:           time.Now,
		hasMore:       true,
		index:         map[string]int{},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Items returns a copy of the loaded posts in display order.
func (f *Feed) Items() []models.Post {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Post, len(f.items))
	for i := range f.items {
		out[i] = f.items[i].Clone()
	}
	return out
}

// Post returns a copy of one loaded post.
func (f *Feed) Post(id string) (models.Post, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i, ok := f.index[id]
	if !ok {
		return models.Post{}, false
	}
	return f.items[i].Clone(), true
}

func (f *Feed) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

func (f *Feed) HasMore() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hasMore
}

func (f *Feed) Page() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.page
}

func (f *Feed) Tab() Tab {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tab
}

func (f *Feed) reindexLocked() {
	f.index = make(map[string]int, len(f.items))
	for i, p := range f.items {
		f.index[p.ID] = i
	}
}
