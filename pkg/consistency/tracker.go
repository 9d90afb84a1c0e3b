// Package consistency bounds how stale aggregate reads can be after a write.
//
// Writers mark the scopes they touched; readers ask how long remains of the
// settle window and either report it to the client or wait it out.
package consistency

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// Scope names a family of records whose aggregate reads may lag together.
type Scope string

const (
	ScopeAvailability Scope = "availability"
	ScopeBlocked      Scope = "blocked"
	ScopeArtists      Scope = "artists"
	ScopeInvitations  Scope = "invitations"
)

// Tracker remembers recent writes per scope for one settle window.
type Tracker interface {
	MarkWrite(ctx context.Context, scopes ...Scope)
	// Remaining returns the longest time left in any of the scopes' windows.
	Remaining(ctx context.Context, scopes ...Scope) time.Duration
	Window() time.Duration
}

// WaitSettled blocks until the scopes' windows have passed, at most one
// window, or until ctx is done.
func WaitSettled(ctx context.Context, t Tracker, scopes ...Scope) error {
	d := t.Remaining(ctx, scopes...)
	if d <= 0 {
		return nil
	}
	if w := t.Window(); d > w {
		d = w
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// MemoryTracker is a single-process Tracker.
type MemoryTracker struct {
	mu     sync.Mutex
	window time.Duration
	now    func() time.Time
	last   map[Scope]time.Time
}

func NewMemoryTracker(window time.Duration) *MemoryTracker {
	return &MemoryTracker{window: window, now: time.Now, last: make(map[Scope]time.Time)}
}

func (m *MemoryTracker) Window() time.Duration { return m.window }

func (m *MemoryTracker) MarkWrite(_ context.Context, scopes ...Scope) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for _, s := range scopes {
		m.last[s] = now
	}
}

func (m *MemoryTracker) Remaining(_ context.Context, scopes ...Scope) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	var longest time.Duration
	for _, s := range scopes {
		at, ok := m.last[s]
		if !ok {
			continue
		}
		if left := at.Add(m.window).Sub(now); left > longest {
			longest = left
		}
	}
	return longest
}

// RedisTracker shares write marks across nodes: each mark is a key that
// expires after the window, and PTTL reports what is left of it.
type RedisTracker struct {
	client *redis.Client
	window time.Duration
	prefix string
	logger *slog.Logger
}

// NewRedisTracker accepts either a redis:// URL or a bare host:port.
func NewRedisTracker(addr, password string, window time.Duration, logger *slog.Logger) (*RedisTracker, error) {
	var opts *redis.Options
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: addr, DB: 0}
	}
	if password != "" {
		opts.Password = password
	}
	opts.DialTimeout = 2 * time.Second
	opts.ReadTimeout = time.Second
	opts.WriteTimeout = time.Second
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisTracker{client: redis.NewClient(opts), window: window, prefix: "calendar:settle:", logger: logger}, nil
}

func (r *RedisTracker) Window() time.Duration { return r.window }

func (r *RedisTracker) MarkWrite(ctx context.Context, scopes ...Scope) {
	pipe := r.client.Pipeline()
	for _, s := range scopes {
		pipe.Set(ctx, r.prefix+string(s), time.Now().UnixMilli(), r.window)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Warn("consistency mark failed", "scopes", scopes, "error", err)
	}
}

// Remaining reports the full window when Redis cannot be read, so callers
// never treat an unknown state as settled.
func (r *RedisTracker) Remaining(ctx context.Context, scopes ...Scope) time.Duration {
	pipe := r.client.Pipeline()
	cmds := make([]*redis.DurationCmd, 0, len(scopes))
	for _, s := range scopes {
		cmds = append(cmds, pipe.PTTL(ctx, r.prefix+string(s)))
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		r.logger.Warn("consistency read failed", "scopes", scopes, "error", err)
		return r.window
	}
	var longest time.Duration
	for _, c := range cmds {
		// PTTL yields negative durations for missing keys
		if d := c.Val(); d > longest {
			longest = d
		}
	}
	return longest
}

func (r *RedisTracker) Close() error { return r.client.Close() }
