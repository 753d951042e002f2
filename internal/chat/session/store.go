// Package session provides the keyed store for in-progress conversational
// resolutions. The state machine depends on Get/Put/Delete only, so the
// backing store can be swapped without touching it.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"shopchat_backend/internal/chat/domain"
)

const keyPrefix = "chat:session:"

// Store persists sessions in redis with a TTL. The TTL is the abandonment
// policy: a conversation that goes quiet evicts itself without a sweeper.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// New creates a session store. A zero ttl disables eviction.
func New(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

// Get loads the session for a conversation id, or nil when none exists.
func (s *Store) Get(ctx context.Context, chatID string) (*domain.Session, error) {
	raw, err := s.client.Get(ctx, keyPrefix+chatID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session get: %w", err)
	}

	var sess domain.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		// A corrupt session is unrecoverable; drop it so the conversation can
		// restart instead of erroring forever.
		_ = s.client.Del(ctx, keyPrefix+chatID).Err()
		return nil, nil
	}
	return &sess, nil
}

// Exists reports whether a session is open for the conversation id.
func (s *Store) Exists(ctx context.Context, chatID string) (bool, error) {
	n, err := s.client.Exists(ctx, keyPrefix+chatID).Result()
	if err != nil {
		return false, fmt.Errorf("session exists: %w", err)
	}
	return n > 0, nil
}

// Put stores the session, refreshing its TTL.
func (s *Store) Put(ctx context.Context, chatID string, sess *domain.Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("session marshal: %w", err)
	}
	if err := s.client.Set(ctx, keyPrefix+chatID, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("session put: %w", err)
	}
	return nil
}

// Delete removes the session. Removing a missing session is not an error.
func (s *Store) Delete(ctx context.Context, chatID string) error {
	if err := s.client.Del(ctx, keyPrefix+chatID).Err(); err != nil {
		return fmt.Errorf("session delete: %w", err)
	}
	return nil
}
