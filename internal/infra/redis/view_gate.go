package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type gateClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// ViewGate is a fast-path dedup marker for view registration. A key lives for
// the dedup window; the database remains the source of truth.
type ViewGate struct {
	rdb    gateClient
	window time.Duration
}

func NewViewGate(rdb gateClient, window time.Duration) *ViewGate {
	return &ViewGate{rdb: rdb, window: window}
}

func viewKey(videoID, identity string) string {
	return fmt.Sprintf("video:view:%s:%s", videoID, identity)
}

// Acquire sets the marker and reports whether it was absent.
func (g *ViewGate) Acquire(ctx context.Context, videoID, identity string) (bool, error) {
	ok, err := g.rdb.SetNX(ctx, viewKey(videoID, identity), 1, g.window).Result()
	if err != nil {
		return false, fmt.Errorf("view gate setnx: %w", err)
	}
	return ok, nil
}

// Release drops the marker after a failed registration.
func (g *ViewGate) Release(ctx context.Context, videoID, identity string) error {
	if err := g.rdb.Del(ctx, viewKey(videoID, identity)).Err(); err != nil {
		return fmt.Errorf("view gate del: %w", err)
	}
	return nil
}
