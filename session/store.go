package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable is returned by write paths when the session store is
// unreachable. Read probes never return it; they report absence instead.
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrSessionNotFound is returned when a looked-up session does not exist.
var ErrSessionNotFound = errors.New("session not found")

const keyPrefix = "sess:"

// Session is the record stored per login.
type Session struct {
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	ClientIP  string    `json:"client_ip,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists sessions in Redis.
type Store struct {
	rdb redis.UniversalClient
	ttl time.Duration
	now func() time.Time
}

// NewStore creates a store with the given session TTL. The clock is
// injectable for tests; nil means time.Now.
func NewStore(rdb redis.UniversalClient, ttl time.Duration, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{rdb: rdb, ttl: ttl, now: now}
}

// Create stores a new session and returns its key.
func (s *Store) Create(ctx context.Context, sess Session) (string, error) {
	sess.CreatedAt = s.now()
	blob, err := json.Marshal(sess)
	if err != nil {
		return "", fmt.Errorf("encode session: %w", err)
	}

	key := uuid.NewString()
	if err := s.rdb.Set(ctx, keyPrefix+key, blob, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return key, nil
}

// Exists reports whether the session key is still live. It is a pure read:
// the TTL is not refreshed. Store failures read as absent.
func (s *Store) Exists(ctx context.Context, key string) bool {
	if key == "" {
		return false
	}
	n, err := s.rdb.Exists(ctx, keyPrefix+key).Result()
	if err != nil {
		return false
	}
	return n == 1
}

// Get loads a session record.
func (s *Store) Get(ctx context.Context, key string) (Session, error) {
	blob, err := s.rdb.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Session{}, ErrSessionNotFound
		}
		return Session{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	var sess Session
	if err := json.Unmarshal(blob, &sess); err != nil {
		return Session{}, fmt.Errorf("decode session: %w", err)
	}
	return sess, nil
}

// Delete removes a session. Deleting an absent key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
