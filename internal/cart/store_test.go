package cart

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bazarmoz/bazar-backend/pkg/logger"
	redisclient "github.com/bazarmoz/bazar-backend/pkg/redis"
)

type mockBackend struct {
	mu   sync.Mutex
	data map[string]string
}

func newMockBackend() *mockBackend {
	return &mockBackend{data: make(map[string]string)}
}

func (m *mockBackend) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch v := value.(type) {
	case []byte:
		m.data[key] = string(v)
	default:
		m.data[key] = fmt.Sprint(v)
	}
	return nil
}

func (m *mockBackend) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.data[key]
	if !ok {
		return "", redisclient.Nil
	}
	return val, nil
}

func (m *mockBackend) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *mockBackend) CartKey(userID string) string {
	return "cart:" + userID
}

func quietLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cart-test", Output: io.Discard})
}

func TestStoreSaveAndLoad(t *testing.T) {
	backend := newMockBackend()
	store := &Store{backend: backend, logg: quietLogger()}
	ctx := context.Background()
	userID := uuid.New()

	cart := NewCart()
	require.True(t, cart.Add(testProduct("2", 950, 25), 2))
	require.NoError(t, store.Save(ctx, userID, cart))

	loaded := store.Load(ctx, userID)
	assert.Equal(t, 2, loaded.TotalItems())
	assert.True(t, loaded.TotalPrice().Equal(cart.TotalPrice()))
}

func TestStoreLoadMissingSnapshotIsEmpty(t *testing.T) {
	store := &Store{backend: newMockBackend(), logg: quietLogger()}

	loaded := store.Load(context.Background(), uuid.New())
	assert.True(t, loaded.IsEmpty())
}

func TestStoreLoadCorruptSnapshotResets(t *testing.T) {
	backend := newMockBackend()
	store := &Store{backend: backend, logg: quietLogger()}
	ctx := context.Background()
	userID := uuid.New()

	backend.data[backend.CartKey(userID.String())] = "{not-json"

	loaded := store.Load(ctx, userID)
	assert.True(t, loaded.IsEmpty())
}

func TestStoreDeleteErasesSnapshot(t *testing.T) {
	backend := newMockBackend()
	store := &Store{backend: backend, logg: quietLogger()}
	ctx := context.Background()
	userID := uuid.New()

	cart := NewCart()
	require.True(t, cart.Add(testProduct("2", 950, 25), 1))
	require.NoError(t, store.Save(ctx, userID, cart))
	require.NoError(t, store.Delete(ctx, userID))

	assert.True(t, store.Load(ctx, userID).IsEmpty())
}
