package controllers

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/teatime/teatime/models"
	"github.com/teatime/teatime/repository"
)

type fakeUsers struct {
	create        func(ctx context.Context, u *models.User) error
	byID          func(ctx context.Context, id string) (*models.User, error)
	byEmail       func(ctx context.Context, email string) (*models.User, error)
	updateProfile func(ctx context.Context, id, username, seed string) (*models.User, error)
	touched       []string
}

func (f *fakeUsers) Create(ctx context.Context, u *models.User) error {
	if f.create != nil {
		return f.create(ctx, u)
	}
	u.ID = "u-new"
	return nil
}

func (f *fakeUsers) ByID(ctx context.Context, id string) (*models.User, error) {
	if f.byID != nil {
		return f.byID(ctx, id)
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUsers) ByEmail(ctx context.Context, email string) (*models.User, error) {
	if f.byEmail != nil {
		return f.byEmail(ctx, email)
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUsers) UpdateProfile(ctx context.Context, id, username, seed string) (*models.User, error) {
	if f.updateProfile != nil {
		return f.updateProfile(ctx, id, username, seed)
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUsers) Touch(_ context.Context, id string) error {
	f.touched = append(f.touched, id)
	return nil
}

type fakeColleges struct {
	list     func(ctx context.Context) ([]models.College, error)
	byDomain func(ctx context.Context, domain string) (*models.College, error)
	stats    func(ctx context.Context, id string) (*repository.CollegeStats, error)
}

func (f *fakeColleges) List(ctx context.Context) ([]models.College, error) {
	if f.list != nil {
		return f.list(ctx)
	}
	return nil, nil
}

func (f *fakeColleges) ByID(context.Context, string) (*models.College, error) {
	return nil, repository.ErrNotFound
}

func (f *fakeColleges) ByDomain(ctx context.Context, domain string) (*models.College, error) {
	if f.byDomain != nil {
		return f.byDomain(ctx, domain)
	}
	return nil, repository.ErrNotFound
}

func (f *fakeColleges) Stats(ctx context.Context, id string) (*repository.CollegeStats, error) {
	if f.stats != nil {
		return f.stats(ctx, id)
	}
	return nil, repository.ErrNotFound
}

type fakePosts struct {
	create   func(ctx context.Context, p *models.Post) error
	byID     func(ctx context.Context, id, viewerID string) (*models.Post, error)
	feed     func(ctx context.Context, collegeID, viewerID string, page, limit int) ([]models.Post, error)
	trending func(ctx context.Context, collegeID, viewerID string, limit int) ([]models.Post, error)
	search   func(ctx context.Context, collegeID, viewerID, query string, limit int) ([]models.Post, error)
	college  func(parent repository.Parent, id string) (string, error)
}

func (f *fakePosts) Create(ctx context.Context, p *models.Post) error {
	if f.create != nil {
		return f.create(ctx, p)
	}
	p.ID = "p-new"
	return nil
}

func (f *fakePosts) ByID(ctx context.Context, id, viewerID string) (*models.Post, error) {
	if f.byID != nil {
		return f.byID(ctx, id, viewerID)
	}
	return nil, repository.ErrNotFound
}

func (f *fakePosts) Feed(ctx context.Context, collegeID, viewerID string, page, limit int) ([]models.Post, error) {
	if f.feed != nil {
		return f.feed(ctx, collegeID, viewerID, page, limit)
	}
	return nil, nil
}

func (f *fakePosts) Trending(ctx context.Context, collegeID, viewerID string, limit int) ([]models.Post, error) {
	if f.trending != nil {
		return f.trending(ctx, collegeID, viewerID, limit)
	}
	return nil, nil
}

func (f *fakePosts) Search(ctx context.Context, collegeID, viewerID, query string, limit int) ([]models.Post, error) {
	if f.search != nil {
		return f.search(ctx, collegeID, viewerID, query, limit)
	}
	return nil, nil
}

func (f *fakePosts) CollegeOf(_ context.Context, parent repository.Parent, id string) (string, error) {
	if f.college != nil {
		return f.college(parent, id)
	}
	return "", repository.ErrNotFound
}

func (f *fakePosts) RefreshTrending(context.Context, time.Time, int) (int, error) {
	return 0, nil
}

type fakeReactions struct {
	upsert func(ctx context.Context, postID, userID string, kind models.ReactionType) error
	delete func(ctx context.Context, postID, userID string) error
}

func (f *fakeReactions) Upsert(ctx context.Context, postID, userID string, kind models.ReactionType) error {
	if f.upsert != nil {
		return f.upsert(ctx, postID, userID, kind)
	}
	return nil
}

func (f *fakeReactions) Delete(ctx context.Context, postID, userID string) error {
	if f.delete != nil {
		return f.delete(ctx, postID, userID)
	}
	return nil
}

type fakeVotes struct {
	votePoll  func(ctx context.Context, pollID, optionID, userID string) error
	voteRumor func(ctx context.Context, rumorID, userID string, believes bool) error
	respond   func(ctx context.Context, challengeID, userID, text string) (*models.ChallengeResponse, error)
}

func (f *fakeVotes) VotePoll(ctx context.Context, pollID, optionID, userID string) error {
	if f.votePoll != nil {
		return f.votePoll(ctx, pollID, optionID, userID)
	}
	return nil
}

func (f *fakeVotes) VoteRumor(ctx context.Context, rumorID, userID string, believes bool) error {
	if f.voteRumor != nil {
		return f.voteRumor(ctx, rumorID, userID, believes)
	}
	return nil
}

func (f *fakeVotes) RespondToChallenge(ctx context.Context, challengeID, userID, text string) (*models.ChallengeResponse, error) {
	if f.respond != nil {
		return f.respond(ctx, challengeID, userID, text)
	}
	return &models.ChallengeResponse{ID: "r1", ChallengeID: challengeID, UserID: userID, ResponseText: text}, nil
}

type fakeComments struct {
	list   func(ctx context.Context, postID string) ([]models.Comment, error)
	create func(ctx context.Context, c *models.Comment) error
}

func (f *fakeComments) List(ctx context.Context, postID string) ([]models.Comment, error) {
	if f.list != nil {
		return f.list(ctx, postID)
	}
	return nil, nil
}

func (f *fakeComments) Create(ctx context.Context, c *models.Comment) error {
	if f.create != nil {
		return f.create(ctx, c)
	}
	c.ID = "c-new"
	return nil
}

type fakeNotifications struct {
	list     func(ctx context.Context, userID string, limit int) ([]models.Notification, error)
	markRead func(ctx context.Context, id, userID string) error
}

func (f *fakeNotifications) List(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	if f.list != nil {
		return f.list(ctx, userID, limit)
	}
	return nil, nil
}

func (f *fakeNotifications) MarkRead(ctx context.Context, id, userID string) error {
	if f.markRead != nil {
		return f.markRead(ctx, id, userID)
	}
	return nil
}

type fakeTrending struct {
	topics func(ctx context.Context, collegeID string, limit int) ([]models.TrendingTopic, error)
}

func (f *fakeTrending) Topics(ctx context.Context, collegeID string, limit int) ([]models.TrendingTopic, error) {
	if f.topics != nil {
		return f.topics(ctx, collegeID, limit)
	}
	return nil, nil
}

type fakeStore struct {
	users         *fakeUsers
	colleges      *fakeColleges
	posts         *fakePosts
	reactions     *fakeReactions
	votes         *fakeVotes
	comments      *fakeComments
	notifications *fakeNotifications
	trending      *fakeTrending
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:         &fakeUsers{},
		colleges:      &fakeColleges{},
		posts:         &fakePosts{},
		reactions:     &fakeReactions{},
		votes:         &fakeVotes{},
		comments:      &fakeComments{},
		notifications: &fakeNotifications{},
		trending:      &fakeTrending{},
	}
}

func (f *fakeStore) store() *repository.Store {
	return &repository.Store{
		Users:         f.users,
		Colleges:      f.colleges,
		Posts:         f.posts,
		Reactions:     f.reactions,
		Votes:         f.votes,
		Comments:      f.comments,
		Notifications: f.notifications,
		Trending:      f.trending,
	}
}

// memCache is an in-memory utils.Cache.
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemCache() *memCache {
	return &memCache{data: map[string][]byte{}}
}

func (c *memCache) GetBytes(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.data[key]
	return b, ok
}

func (c *memCache) SetBytes(_ context.Context, key string, b []byte, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = b
}

func (c *memCache) InvalidateByPrefix(_ context.Context, prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.data {
		if strings.HasPrefix(k, prefix) {
			delete(c.data, k)
		}
	}
}

func (c *memCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}
