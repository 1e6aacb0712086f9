package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newMockStore() *mockStore {
	return &mockStore{data: make(map[string]string)}
}

func (m *mockStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = fmt.Sprint(value)
	return nil
}

func (m *mockStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.data[key]
	if !ok {
		return "", redislib.Nil
	}
	return val, nil
}

func (m *mockStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *mockStore) SessionKey(accessID string) string {
	return "sess:" + accessID
}

func storedRecord(t *testing.T, store *mockStore, accessID string) record {
	t.Helper()
	raw, ok := store.data[store.SessionKey(accessID)]
	require.True(t, ok, "no session stored for %s", accessID)
	var rec record
	require.NoError(t, json.Unmarshal([]byte(raw), &rec))
	return rec
}

func TestManagerGenerateAndRotate(t *testing.T) {
	store := newMockStore()
	manager := newManager(store, time.Hour)
	ctx := context.Background()
	userID := uuid.New()

	token, err := manager.Generate(ctx, "access-123", userID)
	require.NoError(t, err)

	rec := storedRecord(t, store, "access-123")
	assert.Equal(t, userID, rec.UserID)
	assert.Equal(t, digest(token), rec.TokenHash)
	assert.False(t, strings.Contains(store.data[store.SessionKey("access-123")], token), "raw token must not be stored")

	_, err = manager.Rotate(ctx, "access-123", "wrong")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	rotation, err := manager.Rotate(ctx, "access-123", token)
	require.NoError(t, err)
	assert.Equal(t, userID, rotation.UserID)
	assert.NotContains(t, store.data, store.SessionKey("access-123"))
	assert.Equal(t, digest(rotation.RefreshToken), storedRecord(t, store, rotation.AccessID).TokenHash)

	_, err = manager.Rotate(ctx, "access-123", token)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken, "rotated session must not be reusable")
}

func TestManagerRevokeAndHasSession(t *testing.T) {
	store := newMockStore()
	manager := newManager(store, time.Hour)
	ctx := context.Background()

	_, err := manager.Generate(ctx, "access-1", uuid.New())
	require.NoError(t, err)

	ok, err := manager.HasSession(ctx, "access-1")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, manager.Revoke(ctx, "access-1"))

	ok, err = manager.HasSession(ctx, "access-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestManagerRejectsCorruptValue(t *testing.T) {
	store := newMockStore()
	manager := newManager(store, time.Hour)
	store.data[store.SessionKey("access-1")] = "legacy-token-without-user"

	_, err := manager.Rotate(context.Background(), "access-1", "legacy-token-without-user")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestManagerGenerateRequiresIdentifiers(t *testing.T) {
	manager := newManager(newMockStore(), time.Hour)

	_, err := manager.Generate(context.Background(), " ", uuid.New())
	assert.Error(t, err)

	_, err = manager.Generate(context.Background(), "access-1", uuid.Nil)
	assert.Error(t, err)
}
