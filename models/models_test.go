package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPollPercentages(t *testing.T) {
	p := Poll{
		TotalVotes: 4,
		Options: []PollOption{
			{ID: "a", VotesCount: 3},
			{ID: "b", VotesCount: 1},
		},
	}
	assert.Equal(t, map[string]int{"a": 75, "b": 25}, p.Percentages())

	p.TotalVotes = 0
	p.Options[0].VotesCount = 0
	p.Options[1].VotesCount = 0
	assert.Equal(t, map[string]int{"a": 0, "b": 0}, p.Percentages())
}

func TestPollPercentageRounds(t *testing.T) {
	p := Poll{TotalVotes: 3}
	assert.Equal(t, 33, p.Percentage(PollOption{VotesCount: 1}))
	assert.Equal(t, 67, p.Percentage(PollOption{VotesCount: 2}))
}

func TestPollExpired(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	assert.False(t, (&Poll{}).Expired(now))
	assert.True(t, (&Poll{ExpiresAt: &past}).Expired(now))
	assert.False(t, (&Poll{ExpiresAt: &future}).Expired(now))
}

func TestPollOption(t *testing.T) {
	p := Poll{Options: []PollOption{{ID: "a"}, {ID: "b"}}}
	o, ok := p.Option("b")
	require.True(t, ok)
	o.VotesCount++
	assert.Equal(t, 1, p.Options[1].VotesCount)

	_, ok = p.Option("zzz")
	assert.False(t, ok)
}

func TestRumorPercentages(t *testing.T) {
	r := Rumor{BelieveCount: 3, DoubtCount: 1}
	r.Recompute()

	assert.Equal(t, 4, r.TotalVotes)
	assert.Equal(t, 75, r.BelievePercentage())
	assert.Equal(t, 25, r.DoubtPercentage())
	assert.InDelta(t, 0.75, r.CredibilityScore, 1e-9)
}

func TestRumorWithoutVotes(t *testing.T) {
	var r Rumor
	r.Recompute()

	assert.Equal(t, 0, r.BelievePercentage())
	assert.Equal(t, 0, r.DoubtPercentage())
	assert.Equal(t, 0.5, r.CredibilityScore)
}

func TestCredibilityLabel(t *testing.T) {
	cases := map[float64]string{
		1:    "Highly Credible",
		0.8:  "Highly Credible",
		0.65: "Likely True",
		0.5:  "Mixed Opinions",
		0.2:  "Doubtful",
		0.1:  "Highly Doubtful",
	}
	for score, want := range cases {
		assert.Equal(t, want, CredibilityLabel(score), "score %v", score)
	}
}

func TestTeaRankFor(t *testing.T) {
	assert.Equal(t, "Tea Newbie", TeaRankFor(0))
	assert.Equal(t, "Tea Newbie", TeaRankFor(99))
	assert.Equal(t, "Tea Freshman", TeaRankFor(100))
	assert.Equal(t, "Tea Sophomore", TeaRankFor(1499))
	assert.Equal(t, "Tea Junior", TeaRankFor(1500))
	assert.Equal(t, "Tea Senior", TeaRankFor(4999))
	assert.Equal(t, "Tea Legend", TeaRankFor(5000))
}

func TestFormatCount(t *testing.T) {
	assert.Equal(t, "0", FormatCount(0))
	assert.Equal(t, "999", FormatCount(999))
	assert.Equal(t, "1.0k", FormatCount(1000))
	assert.Equal(t, "1.2k", FormatCount(1234))
}

func TestAvatarIndex(t *testing.T) {
	// "ab": h = 97, then 98 + 97*31 = 3105
	assert.Equal(t, 3105%8, AvatarIndex("ab", 8))
	assert.Equal(t, AvatarIndex("seed-1", 8), AvatarIndex("seed-1", 8))
	// the running hash leaves the 32 bit range for these seeds
	assert.Equal(t, 2, AvatarIndex("seed-123", 8))
	assert.Equal(t, 6, AvatarIndex("seed-123", 12))
	assert.Equal(t, 2, AvatarIndex("3f1c2a9e-seed", 12))
	assert.Equal(t, 6, AvatarIndex("abc", 12))
	assert.Equal(t, 0, AvatarIndex("", 8))
	assert.Equal(t, 0, AvatarIndex("x", 0))
}

func TestPostCloneIsDeep(t *testing.T) {
	yes := true
	p := Post{
		ID:        "p1",
		MediaURLs: []string{"https://cdn/1.png"},
		Poll:      &Poll{Options: []PollOption{{ID: "a", VotesCount: 1}}},
		Rumor:     &Rumor{UserVote: &yes},
		Challenge: &Challenge{Responses: []ChallengeResponse{{ID: "r1"}}},
	}
	c := p.Clone()

	c.MediaURLs[0] = "changed"
	c.Poll.Options[0].VotesCount = 9
	*c.Rumor.UserVote = false
	c.Challenge.Responses = append(c.Challenge.Responses, ChallengeResponse{ID: "r2"})

	assert.Equal(t, "https://cdn/1.png", p.MediaURLs[0])
	assert.Equal(t, 1, p.Poll.Options[0].VotesCount)
	assert.True(t, *p.Rumor.UserVote)
	assert.Len(t, p.Challenge.Responses, 1)
}

func TestEnumsValid(t *testing.T) {
	assert.True(t, CategoryRumor.Valid())
	assert.False(t, Category("meme").Valid())
	assert.True(t, ReactionEyes.Valid())
	assert.False(t, ReactionType("").Valid())
	assert.True(t, ChallengeDare.Valid())
	assert.False(t, ChallengeType("quiz").Valid())
	assert.True(t, NotifyTeaRankUp.Valid())
	assert.Equal(t, "🔥", ReactionFire.Emoji())
}

func TestUserBeforeCreate(t *testing.T) {
	u := User{TeaPoints: 120}
	require.NoError(t, u.BeforeCreate(nil))
	assert.Len(t, u.ID, 36)
	assert.Equal(t, "Tea Freshman", u.TeaRank)
	assert.False(t, u.LastActive.IsZero())

	pub := User{Email: "a@b.edu", PasswordHash: "x"}.Public()
	assert.Empty(t, pub.Email)
	assert.Empty(t, pub.PasswordHash)
}

func TestAnonymousName(t *testing.T) {
	name := AnonymousName("3f1c2a9e-seed")
	assert.Equal(t, name, AnonymousName("3f1c2a9e-seed"))
	assert.Regexp(t, `^[A-Z][a-z]+[A-Z][a-z]+\d{2}$`, name)
	assert.Regexp(t, `^[A-Z][a-z]+[A-Z][a-z]+\d{2}$`, AnonymousName(""))
}
