package escalation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// releaseScript deletes the lock only if this holder still owns it.
const releaseScript = `
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
`

// RedisClient is the subset of *redis.Client the lock uses.
type RedisClient interface {
	SetArgs(ctx context.Context, key string, value interface{}, a redis.SetArgs) *redis.StatusCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// RedisLock is a single-holder lock built on SET NX with a TTL. The TTL
// bounds how long a crashed holder blocks other replicas.
type RedisLock struct {
	client RedisClient
	key    string
	ttl    time.Duration
	token  string
}

// NewRedisLock creates a lock on key.
func NewRedisLock(client RedisClient, key string, ttl time.Duration) (*RedisLock, error) {
	if client == nil {
		return nil, fmt.Errorf("escalation: redis client is required")
	}
	if key == "" {
		return nil, fmt.Errorf("escalation: lock key is required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("escalation: lock ttl must be positive")
	}
	return &RedisLock{client: client, key: key, ttl: ttl}, nil
}

// DialRedisLock parses url and returns a lock backed by a new client.
func DialRedisLock(url, key string, ttl time.Duration) (*RedisLock, *redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, nil, fmt.Errorf("escalation: parse redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	lock, err := NewRedisLock(rdb, key, ttl)
	if err != nil {
		rdb.Close()
		return nil, nil, err
	}
	return lock, rdb, nil
}

// Acquire tries to take the lock. It reports false when another holder
// owns it.
func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	token := uuid.NewString()
	res := l.client.SetArgs(ctx, l.key, token, redis.SetArgs{Mode: "NX", TTL: l.ttl})
	if err := res.Err(); err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("escalation: acquire lock %s: %w", l.key, err)
	}
	if res.Val() != "OK" {
		return false, nil
	}
	l.token = token
	return true, nil
}

// Release gives the lock up if this instance still holds it.
func (l *RedisLock) Release(ctx context.Context) error {
	if l.token == "" {
		return nil
	}
	token := l.token
	l.token = ""
	if err := l.client.Eval(ctx, releaseScript, []string{l.key}, token).Err(); err != nil {
		return fmt.Errorf("escalation: release lock %s: %w", l.key, err)
	}
	return nil
}
