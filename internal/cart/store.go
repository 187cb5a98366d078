package cart

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
	CartKey(userID string) string
}

// Store persists one serialized cart snapshot per user in Redis.
type Store struct {
	backend snapshotBackend
	logg    *logger.Logger
}

// NewStore builds the snapshot store.
func NewStore(client *redisclient.Client, logg *logger.Logger) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Store{backend: client, logg: logg}, nil
}

// Load returns the user's cart. A missing or corrupt snapshot loads as an
// empty cart rather than an error.
func (s *Store) Load(ctx context.Context, userID uuid.UUID) *Cart {
	raw, err := s.backend.Get(ctx, s.backend.CartKey(userID.String()))
	if err != nil {
		if !errors.Is(err, redisclient.Nil) {
			s.logg.Warn(s.logg.WithUserID(ctx, userID.String()), "cart snapshot read failed, starting empty")
		}
		return NewCart()
	}

	var cart Cart
	if err := json.Unmarshal([]byte(raw), &cart); err != nil {
		s.logg.Warn(s.logg.WithUserID(ctx, userID.String()), "cart snapshot corrupt, resetting")
		return NewCart()
	}
	if cart.Lines == nil {
		cart.Lines = []Line{}
	}
	return &cart
}

// Save overwrites the user's snapshot with the current cart state.
func (s *Store) Save(ctx context.Context, userID uuid.UUID, cart *Cart) error {
	payload, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal cart snapshot: %w", err)
	}
	return s.backend.Set(ctx, s.backend.CartKey(userID.String()), payload, snapshotTTL)
}

// Delete erases the user's snapshot.
func (s *Store) Delete(ctx context.Context, userID uuid.UUID) error {
	return s.backend.Del(ctx, s.backend.CartKey(userID.String()))
}
