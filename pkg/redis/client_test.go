package redis

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-process stand-in for the handful of commands Client
// issues. Expire can be made to fail to exercise TTL recovery.
type memStore struct {
	strings   map[string]string
	counters  map[string]int64
	ttls      map[string]time.Duration
	expires   int
	expireErr error
}

func newMemStore() *memStore {
	return &memStore{
		strings:  map[string]string{},
		counters: map[string]int64{},
		ttls:     map[string]time.Duration{},
	}
}

func (m *memStore) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *memStore) Set(_ context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	m.strings[key] = fmt.Sprint(value)
	return redis.NewStatusResult("OK", nil)
}

func (m *memStore) Get(_ context.Context, key string) *redis.StringCmd {
	if v, ok := m.strings[key]; ok {
		return redis.NewStringResult(v, nil)
	}
	return redis.NewStringResult("", redis.Nil)
}

func (m *memStore) SetNX(_ context.Context, key string, value any, _ time.Duration) *redis.BoolCmd {
	if _, taken := m.strings[key]; taken {
		return redis.NewBoolResult(false, nil)
	}
	m.strings[key] = fmt.Sprint(value)
	return redis.NewBoolResult(true, nil)
}

func (m *memStore) Incr(_ context.Context, key string) *redis.IntCmd {
	m.counters[key]++
	return redis.NewIntResult(m.counters[key], nil)
}

func (m *memStore) Expire(_ context.Context, key string, ttl time.Duration) *redis.BoolCmd {
	m.expires++
	if m.expireErr != nil {
		return redis.NewBoolResult(false, m.expireErr)
	}
	m.ttls[key] = ttl
	return redis.NewBoolResult(true, nil)
}

func (m *memStore) TTL(_ context.Context, key string) *redis.DurationCmd {
	if ttl, ok := m.ttls[key]; ok {
		return redis.NewDurationResult(ttl, nil)
	}
	return redis.NewDurationResult(noExpiry, nil)
}

func (m *memStore) Del(_ context.Context, keys ...string) *redis.IntCmd {
	for _, k := range keys {
		delete(m.strings, k)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func TestFixedWindowAllow(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	client := &Client{store: store}

	for want := int64(1); want <= 3; want++ {
		allowed, count, err := client.FixedWindowAllow(ctx, "login", 2, time.Second)
		require.NoError(t, err)
		assert.Equal(t, want, count)
		assert.Equal(t, want <= 2, allowed, "hit %d", want)
	}
	assert.Equal(t, 1, store.expires, "the window expiry is set once")
}

func TestFixedWindowRestoresLostExpiry(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.expireErr = errors.New("expire unavailable")
	client := &Client{store: store}
	const scope = "auth:login:ip:1.2.3.4"

	_, _, err := client.FixedWindowAllow(ctx, scope, 5, time.Minute)
	require.Error(t, err, "first hit surfaces the expire failure")

	store.expireErr = nil
	allowed, count, err := client.FixedWindowAllow(ctx, scope, 5, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.EqualValues(t, 2, count)
	assert.Equal(t, time.Minute, store.ttls[client.RateLimitKey(scope)])
}

func TestIncrWithTTLExpiresOnlyNewKeys(t *testing.T) {
	store := newMemStore()
	client := &Client{store: store}

	for i := 0; i < 3; i++ {
		_, err := client.IncrWithTTL(context.Background(), "k", time.Minute)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, store.expires)
	assert.Equal(t, time.Minute, store.ttls["k"])
}

func TestSetGetDel(t *testing.T) {
	ctx := context.Background()
	client := &Client{store: newMemStore()}
	key := client.SessionKey("access-1")

	require.NoError(t, client.Set(ctx, key, "digest", 10*time.Minute))
	got, err := client.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "digest", got)

	ok, err := client.SetNX(ctx, key, "other", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "existing key is kept")

	require.NoError(t, client.Del(ctx, key))
	_, err = client.Get(ctx, key)
	assert.ErrorIs(t, err, redis.Nil)
}

func TestUninitializedClient(t *testing.T) {
	client := &Client{}
	assert.ErrorIs(t, client.Ping(context.Background()), ErrNotInitialized)
	assert.NoError(t, client.Close())
}

func TestKeys(t *testing.T) {
	def := &Client{}
	staging := &Client{namespace: "ludi-staging"}

	tests := []struct {
		got, want string
	}{
		{def.IdempotencyKey("scope", "id"), "ludi:idempotency:scope:id"},
		{def.RateLimitKey("scope"), "ludi:rate_limit:scope"},
		{def.LockKey("points-send", "user-1"), "ludi:lock:points-send:user-1"},
		{def.LockKey("cron", ""), "ludi:lock:cron"},
		{def.SessionKey("abc"), "ludi:session:access:abc"},
		{staging.LockKey("points-send", "u1"), "ludi-staging:lock:points-send:u1"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.got)
	}
}
