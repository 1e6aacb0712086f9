package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
)

// ErrLockNotObtained is returned when another holder keeps the lock past
// the retry budget.
var ErrLockNotObtained = errors.New("redis lock not obtained")

const (
	lockRetryBackoff = 50 * time.Millisecond
	lockRetryMax     = 40
)

// ReleaseFunc releases a held lock.
type ReleaseFunc func(ctx context.Context) error

type lockObtainer interface {
	Obtain(ctx context.Context, key string, ttl time.Duration, opt *redislock.Options) (*redislock.Lock, error)
}

// Locker hands out short-lived mutual-exclusion locks shared by every
// replica talking to the same Redis.
type Locker struct {
	client lockObtainer
	keys   interface{ LockKey(scope, id string) string }
}

// NewLocker builds a Locker on the client's underlying connection.
func NewLocker(c *Client) (*Locker, error) {
	if c == nil || c.raw == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	return &Locker{client: redislock.New(c.raw), keys: c}, nil
}

// Obtain blocks with linear backoff until the lock for scope/id is held or
// the retry budget runs out.
func (l *Locker) Obtain(ctx context.Context, scope, id string, ttl time.Duration) (ReleaseFunc, error) {
	if l == nil || l.client == nil {
		return nil, fmt.Errorf("locker not initialized")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("lock ttl must be positive")
	}

	lock, err := l.client.Obtain(ctx, l.keys.LockKey(scope, id), ttl, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(lockRetryBackoff), lockRetryMax),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrLockNotObtained
	}
	if err != nil {
		return nil, fmt.Errorf("obtain lock %s/%s: %w", scope, id, err)
	}

	return func(ctx context.Context) error {
		if err := lock.Release(ctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			return err
		}
		return nil
	}, nil
}
