package history

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/bazarmoz/bazar-backend/pkg/config"
	"github.com/bazarmoz/bazar-backend/pkg/db/models"
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

func (m *mockBackend) HistoryKey(userID string) string {
	return "history:" + userID
}

type mapFinder map[string]*models.Product

func (m mapFinder) FindProduct(ctx context.Context, id string) (*models.Product, error) {
	if p, ok := m[id]; ok {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func quietLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "history-test", Output: io.Discard})
}

func variantProduct(id, familyID, name string) *models.Product {
	fid := familyID
	p := &models.Product{
		ID:       id,
		Name:     name,
		Category: "Decoração",
		Price:    decimal.NewFromInt(1200),
		Stock:    10,
		ImageURL: "https://example.com/" + id + ".png",
	}
	if fid != "" {
		p.FamilyID = &fid
	}
	return p
}

func newHistoryService(t *testing.T, finder mapFinder, max int) (Service, *mockBackend) {
	t.Helper()
	backend := newMockBackend()
	store := &Store{backend: backend, logg: quietLogger()}
	svc, err := NewService(store, finder, config.HistoryConfig{MaxEntries: max})
	require.NoError(t, err)
	return svc, backend
}

func TestRecordKeepsMostRecentFirst(t *testing.T) {
	finder := mapFinder{
		"2": variantProduct("2", "", "Smart TagVed"),
		"3": variantProduct("3", "", "Cesto de Palha"),
	}
	svc, _ := newHistoryService(t, finder, 6)
	ctx := context.Background()
	userID := uuid.New()

	_, err := svc.Record(ctx, userID, "2")
	require.NoError(t, err)
	entries, err := svc.Record(ctx, userID, "3")
	require.NoError(t, err)

	require.Len(t, entries, 2)
	assert.Equal(t, "3", entries[0].ProductID)
	assert.Equal(t, "2", entries[1].ProductID)

	// Re-viewing moves the product back to the front without duplicating it.
	entries, err = svc.Record(ctx, userID, "2")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "2", entries[0].ProductID)
}

func TestRecordPurgesFamilySiblings(t *testing.T) {
	finder := mapFinder{
		"1-a4-amor":    variantProduct("1-a4-amor", "1", "Quadro Fé, Esperança e Amor (A4)"),
		"1-a3-familia": variantProduct("1-a3-familia", "1", "Quadro Definição de Família (A3)"),
		"2":            variantProduct("2", "", "Smart Tag Ved"),
	}
	svc, _ := newHistoryService(t, finder, 6)
	ctx := context.Background()
	userID := uuid.New()

	_, err := svc.Record(ctx, userID, "1-a4-amor")
	require.NoError(t, err)
	_, err = svc.Record(ctx, userID, "2")
	require.NoError(t, err)
	entries, err := svc.Record(ctx, userID, "1-a3-familia")
	require.NoError(t, err)

	require.Len(t, entries, 2)
	assert.Equal(t, "1-a3-familia", entries[0].ProductID)
	assert.Equal(t, "2", entries[1].ProductID)
}

func TestRecordCapsEntries(t *testing.T) {
	finder := mapFinder{}
	for i := 0; i < 8; i++ {
		id := fmt.Sprintf("p%d", i)
		finder[id] = variantProduct(id, "", "Produto "+id)
	}
	svc, _ := newHistoryService(t, finder, 6)
	ctx := context.Background()
	userID := uuid.New()

	var entries []Entry
	var err error
	for i := 0; i < 8; i++ {
		entries, err = svc.Record(ctx, userID, fmt.Sprintf("p%d", i))
		require.NoError(t, err)
	}

	require.Len(t, entries, 6)
	assert.Equal(t, "p7", entries[0].ProductID)
	assert.Equal(t, "p2", entries[5].ProductID)
}

func TestLoadResetsCorruptSnapshot(t *testing.T) {
	svc, backend := newHistoryService(t, mapFinder{}, 6)
	ctx := context.Background()
	userID := uuid.New()

	backend.data[backend.HistoryKey(userID.String())] = "{not json"

	entries, err := svc.List(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRecordUnknownProduct(t *testing.T) {
	svc, _ := newHistoryService(t, mapFinder{}, 6)

	_, err := svc.Record(context.Background(), uuid.New(), "missing")
	require.Error(t, err)
}
