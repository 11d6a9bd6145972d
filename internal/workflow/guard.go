package workflow

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisGuard implements ApprovalGuard on a shared Redis instance so the
// suppression of duplicate approval requests holds across competing
// consumer processes.  Entries expire on their own in case a decision is
// never recorded; an expired guard only means operators might see one
// repeated request, so a generous TTL is fine.
type RedisGuard struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisGuard returns a guard whose entries expire after 24 hours.
func NewRedisGuard(rdb *redis.Client) *RedisGuard {
	return &RedisGuard{rdb: rdb, ttl: 24 * time.Hour}
}

func guardKey(plate string) string { return "approval_inflight:" + plate }

// Begin claims the in-flight slot for plate.  It returns true when no
// request is currently open.
func (g *RedisGuard) Begin(ctx context.Context, plate string) (bool, error) {
	return g.rdb.SetNX(ctx, guardKey(plate), "1", g.ttl).Result()
}

// End releases the in-flight slot after a decision.
func (g *RedisGuard) End(ctx context.Context, plate string) error {
	return g.rdb.Del(ctx, guardKey(plate)).Err()
}

// MemoryGuard implements ApprovalGuard in process memory.  It is used when
// no Redis is configured and by tests; with more than one consumer
// instance it cannot suppress duplicates across processes.
type MemoryGuard struct {
	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewMemoryGuard returns an empty in-process guard.
func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{inflight: make(map[string]struct{})}
}

// Begin claims the in-flight slot for plate.
func (g *MemoryGuard) Begin(_ context.Context, plate string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, open := g.inflight[plate]; open {
		return false, nil
	}
	g.inflight[plate] = struct{}{}
	return true, nil
}

// End releases the in-flight slot.
func (g *MemoryGuard) End(_ context.Context, plate string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.inflight, plate)
	return nil
}
