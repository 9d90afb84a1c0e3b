package consistency

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestMemoryTrackerRemaining(t *testing.T) {
	tr := NewMemoryTracker(time.Second)
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return now }
	ctx := context.Background()

	if got := tr.Remaining(ctx, ScopeAvailability); got != 0 {
		t.Fatalf("untouched scope = %v", got)
	}

	tr.MarkWrite(ctx, ScopeAvailability, ScopeBlocked)
	now = now.Add(300 * time.Millisecond)
	if got := tr.Remaining(ctx, ScopeAvailability); got != 700*time.Millisecond {
		t.Errorf("remaining = %v", got)
	}
	if got := tr.Remaining(ctx, ScopeArtists); got != 0 {
		t.Errorf("other scope = %v", got)
	}

	now = now.Add(time.Second)
	if got := tr.Remaining(ctx, ScopeAvailability, ScopeBlocked); got != 0 {
		t.Errorf("after window = %v", got)
	}
}

func TestWaitSettledHonorsContext(t *testing.T) {
	tr := NewMemoryTracker(time.Hour)
	tr.MarkWrite(context.Background(), ScopeBlocked)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := WaitSettled(ctx, tr, ScopeBlocked); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v", err)
	}
	if err := WaitSettled(context.Background(), tr, ScopeArtists); err != nil {
		t.Errorf("settled scope: %v", err)
	}
}

func TestRedisTrackerUnreachableReportsFullWindow(t *testing.T) {
	tr, err := NewRedisTracker("127.0.0.1:1", "", 750*time.Millisecond, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer tr.Close()
	if got := tr.Remaining(context.Background(), ScopeAvailability); got != 750*time.Millisecond {
		t.Errorf("remaining = %v", got)
	}
}

func TestNewRedisTrackerRejectsBadURL(t *testing.T) {
	if _, err := NewRedisTracker("redis://:bad:port/x", "", time.Second, nil); err == nil {
		t.Error("expected error")
	}
}

type fakePurger struct {
	mu    sync.Mutex
	calls int
	n     int
	err   error
}

func (f *fakePurger) PurgeBlockedAvailability(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.n, f.err
}

func TestSweeperRunOnce(t *testing.T) {
	tr := NewMemoryTracker(time.Minute)
	p := &fakePurger{n: 2}
	s := NewSweeper(p, tr, nil)

	n, err := s.RunOnce(context.Background())
	if err != nil || n != 2 {
		t.Fatalf("run = %d, %v", n, err)
	}
	if tr.Remaining(context.Background(), ScopeAvailability) == 0 {
		t.Error("repair should mark availability as written")
	}

	p.err = errors.New("boom")
	if _, err := s.RunOnce(context.Background()); err == nil {
		t.Error("expected error")
	}
}

func TestSweeperStartStop(t *testing.T) {
	s := NewSweeper(&fakePurger{}, nil, nil)
	if err := s.Start("not a schedule"); err == nil {
		t.Fatal("expected schedule error")
	}
	if err := s.Start("@every 1h"); err != nil {
		t.Fatal(err)
	}
	if err := s.Start("@every 1h"); err == nil {
		t.Error("second start should fail")
	}
	s.Stop()
	s.Stop()
}
