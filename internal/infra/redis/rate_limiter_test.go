//go:build !integration

package redis

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRateLimiter_Allow(t *testing.T) {
	ctx := context.Background()
	cli := newMemClient()
	rl := NewRateLimiter(cli)
	key := UserActionKey("creator-1", "payout")

	for i := 1; i <= 3; i++ {
		ok, err := rl.Allow(ctx, key, 3, time.Minute)
		if err != nil || !ok {
			t.Fatalf("request %d: ok=%v err=%v", i, ok, err)
		}
	}
	ok, err := rl.Allow(ctx, key, 3, time.Minute)
	if err != nil || ok {
		t.Fatalf("4th request should be limited: ok=%v err=%v", ok, err)
	}
	if cli.expires[key] != time.Minute {
		t.Errorf("window not applied: %v", cli.expires[key])
	}

	other, _ := rl.Allow(ctx, UserActionKey("creator-2", "payout"), 3, time.Minute)
	if !other {
		t.Error("limits must be per key")
	}
}

func TestRateLimiter_BackendError(t *testing.T) {
	cli := newMemClient()
	cli.IncrFunc = func(context.Context, string) (int64, error) { return 0, errors.New("down") }
	if _, err := NewRateLimiter(cli).Allow(context.Background(), "k", 1, time.Second); err == nil {
		t.Fatal("expected backend error")
	}
}
