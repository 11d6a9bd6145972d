package lock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock key only if it still holds our token, so a
// lock that expired and was re-acquired by someone else is never released
// by the original holder.
var releaseScript = redis.NewScript(`
    if redis.call('GET', KEYS[1]) == ARGV[1] then
        return redis.call('DEL', KEYS[1])
    end
    return 0
`)

// RedisLocker implements Locker with SET NX PX, giving mutual exclusion
// across all service instances.  Locks expire after ttl as a safety net
// against a holder that dies without releasing.
type RedisLocker struct {
	rdb       *redis.Client
	ttl       time.Duration
	pollEvery time.Duration
}

// NewRedisLocker returns a distributed locker.  A ttl of 10 seconds
// comfortably covers one booking transaction.
func NewRedisLocker(rdb *redis.Client) *RedisLocker {
	return &RedisLocker{rdb: rdb, ttl: 10 * time.Second, pollEvery: 50 * time.Millisecond}
}

// Acquire takes the lock for key, polling until it is free or ctx is done.
func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	token, err := randomToken()
	if err != nil {
		return nil, err
	}
	redisKey := "lock:" + key
	for {
		ok, err := l.rdb.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			release := func() {
				// Best effort; the ttl cleans up after a failed release.
				bg, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				_ = releaseScript.Run(bg, l.rdb, []string{redisKey}, token).Err()
			}
			return release, nil
		}
		select {
		case <-time.After(l.pollEvery):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// randomToken returns a random hex string identifying one lock holder.
func randomToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
