package utils

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RegistrationGuard throttles sign ups per client IP with a cooldown between
// attempts and a cap on successful registrations per day. Redis is preferred;
// without it the counters live in process memory. Redis errors fail open.
type RegistrationGuard struct {
	rc         *redis.Client
	cooldown   time.Duration
	dailyLimit int

	mu        sync.Mutex
	cooldowns map[string]time.Time
	daily     map[string]int
	now       func() time.Time
}

// NewRegistrationGuard builds a guard; a zero cooldown or limit disables that check.
func NewRegistrationGuard(rc *redis.Client, cooldown time.Duration, dailyLimit int) *RegistrationGuard {
	return &RegistrationGuard{
		rc:         rc,
		cooldown:   cooldown,
		dailyLimit: dailyLimit,
		cooldowns:  map[string]time.Time{},
		daily:      map[string]int{},
		now:        time.Now,
	}
}

func regKey(parts ...string) string {
	return "reg:" + strings.Join(parts, ":")
}

// Try starts the cooldown for ip and reports whether the attempt may proceed.
func (g *RegistrationGuard) Try(ctx context.Context, ip string) bool {
	if g == nil || g.cooldown <= 0 {
		return true
	}
	if g.rc != nil {
		ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
		defer cancel()
		ok, err := g.rc.SetNX(ctx, regKey("cooldown", ip), "1", g.cooldown).Result()
		if err != nil {
			return true
		}
		return ok
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()
	if until, ok := g.cooldowns[ip]; ok && now.Before(until) {
		return false
	}
	g.cooldowns[ip] = now.Add(g.cooldown)
	return true
}

// Allowed reports whether ip is still under today's registration cap.
func (g *RegistrationGuard) Allowed(ctx context.Context, ip string) bool {
	if g == nil || g.dailyLimit <= 0 {
		return true
	}
	key := regKey("succday", ip, g.now().Format("20060102"))
	if g.rc != nil {
		ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
		defer cancel()
		n, err := g.rc.Get(ctx, key).Int()
		if err == redis.Nil {
			return true
		}
		if err != nil {
			return true
		}
		return n < g.dailyLimit
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	return g.daily[key] < g.dailyLimit
}

// Record counts a successful registration for today.
func (g *RegistrationGuard) Record(ctx context.Context, ip string) {
	if g == nil || g.dailyLimit <= 0 {
		return
	}
	now := g.now()
	key := regKey("succday", ip, now.Format("20060102"))
	if g.rc != nil {
		ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
		defer cancel()
		if err := g.rc.Incr(ctx, key).Err(); err == nil {
			// expire at the end of the day
			ttl := now.Truncate(24 * time.Hour).Add(24 * time.Hour).Sub(now)
			_ = g.rc.Expire(ctx, key, ttl).Err()
		}
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	today := now.Format("20060102")
	for k := range g.daily {
		if !strings.HasSuffix(k, ":"+today) {
			delete(g.daily, k)
		}
	}
	g.daily[key]++
}
