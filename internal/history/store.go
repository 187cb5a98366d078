package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bazarmoz/bazar-backend/pkg/logger"
	redisclient "github.com/bazarmoz/bazar-backend/pkg/redis"
)

const snapshotTTL = 30 * 24 * time.Hour

type snapshotBackend interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	HistoryKey(userID string) string
}

// Store persists one serialized browsing history per user in Redis.
type Store struct {
	backend snapshotBackend
	logg    *logger.Logger
}

// NewStore builds the history store.
func NewStore(client *redisclient.Client, logg *logger.Logger) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Store{backend: client, logg: logg}, nil
}

// Load returns the user's history. A missing or corrupt snapshot loads as an
// empty list rather than an error.
func (s *Store) Load(ctx context.Context, userID uuid.UUID) []Entry {
	raw, err := s.backend.Get(ctx, s.backend.HistoryKey(userID.String()))
	if err != nil {
		if !errors.Is(err, redisclient.Nil) {
			s.logg.Warn(s.logg.WithUserID(ctx, userID.String()), "history read failed, starting empty")
		}
		return []Entry{}
	}

	var entries []Entry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		s.logg.Warn(s.logg.WithUserID(ctx, userID.String()), "history corrupt, resetting")
		return []Entry{}
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries
}

// Save overwrites the user's history snapshot.
func (s *Store) Save(ctx context.Context, userID uuid.UUID, entries []Entry) error {
	payload, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshal history snapshot: %w", err)
	}
	return s.backend.Set(ctx, s.backend.HistoryKey(userID.String()), payload, snapshotTTL)
}

// Delete erases the user's history.
func (s *Store) Delete(ctx context.Context, userID uuid.UUID) error {
	return s.backend.Del(ctx, s.backend.HistoryKey(userID.String()))
}
