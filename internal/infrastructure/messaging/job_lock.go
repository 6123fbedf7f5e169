package messaging

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// JobLock prevents the same scheduled job from running twice at once, which
// matters once more than one bot instance might share a schedule (the
// scheduler's max_instances=1 guarantee extended across processes).
type JobLock interface {
	// TryAcquire attempts to take the named lock for ttl. It reports
	// whether the lock was acquired; release releases it early (a no-op
	// past ttl, since the lock expires on its own).
	TryAcquire(ctx context.Context, name string, ttl time.Duration) (acquired bool, release func(context.Context), err error)
}

// RedisJobLock implements JobLock with a Redis SET NX PX, safe across
// multiple bot processes sharing one Redis instance.
type RedisJobLock struct {
	client *redis.Client
}

// NewRedisJobLock constructs a RedisJobLock.
func NewRedisJobLock(client *redis.Client) *RedisJobLock {
	return &RedisJobLock{client: client}
}

func (l *RedisJobLock) TryAcquire(ctx context.Context, name string, ttl time.Duration) (bool, func(context.Context), error) {
	token := uuid.New().String()
	key := "joblock:" + name

	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return false, nil, err
	}
	if !ok {
		return false, nil, nil
	}

	release := func(releaseCtx context.Context) {
		// Only clear the key if it still holds our token, so a slow
		// release after the TTL expired and someone else acquired it
		// doesn't delete their lock out from under them.
		current, err := l.client.Get(releaseCtx, key).Result()
		if err == nil && current == token {
			l.client.Del(releaseCtx, key)
		}
	}
	return true, release, nil
}

// InProcessJobLock is a single-process fallback JobLock for deployments
// without Redis (the SQLite backend's typical pairing).
type InProcessJobLock struct {
	heldMu sync.Mutex
	held   map[string]time.Time
}

// NewInProcessJobLock constructs an InProcessJobLock.
func NewInProcessJobLock() *InProcessJobLock {
	return &InProcessJobLock{held: make(map[string]time.Time)}
}

func (l *InProcessJobLock) TryAcquire(_ context.Context, name string, ttl time.Duration) (bool, func(context.Context), error) {
	l.heldMu.Lock()
	defer l.heldMu.Unlock()

	now := time.Now()
	if expiry, ok := l.held[name]; ok && now.Before(expiry) {
		return false, nil, nil
	}
	expiry := now.Add(ttl)
	l.held[name] = expiry

	release := func(_ context.Context) {
		l.heldMu.Lock()
		defer l.heldMu.Unlock()
		// Only clear the entry if it is still ours, so a release after the
		// ttl expired and someone else acquired it leaves their lock alone.
		if current, ok := l.held[name]; ok && current.Equal(expiry) {
			delete(l.held, name)
		}
	}
	return true, release, nil
}
