package guest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// maxEntries caps how many recent enhancements a guest session keeps.
	maxEntries = 3

	galleryTTL = 24 * time.Hour

	keyPrefix = "guest:gallery:"
)

// Entry is one guest enhancement: thumbnails only, full-size images are
// never persisted for unauthenticated sessions.
type Entry struct {
	OriginalThumb string `json:"originalThumb"`
	EnhancedThumb string `json:"enhancedThumb"`
	Timestamp     int64  `json:"timestamp"`
}

// Commands is the slice of the Redis API the store uses. *redis.Client
// satisfies it; tests substitute a fake built from go-redis result helpers.
type Commands interface {
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	LTrim(ctx context.Context, key string, start, stop int64) *redis.StatusCmd
	LRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Expire(ctx context.Context, key string, ttl time.Duration) *redis.BoolCmd
}

// Store keeps a short, TTL'd gallery of recent guest enhancements in Redis.
type Store struct {
	rdb Commands
}

func NewStore(rdb Commands) *Store {
	return &Store{rdb: rdb}
}

// Enabled reports whether guest galleries are available.
func (s *Store) Enabled() bool {
	return s != nil && s.rdb != nil
}

// Push prepends an entry and trims the gallery to the newest entries. When
// the initial write fails, the session's key is cleared and the write retried
// once before giving up.
func (s *Store) Push(ctx context.Context, sessionID string, entry Entry) error {
	if !s.Enabled() {
		return errors.New("guest: store not configured")
	}
	key, err := galleryKey(sessionID)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("guest: marshal entry: %w", err)
	}

	if err := s.rdb.LPush(ctx, key, payload).Err(); err != nil {
		if delErr := s.rdb.Del(ctx, key).Err(); delErr != nil {
			return fmt.Errorf("guest: push entry: %w", err)
		}
		if err := s.rdb.LPush(ctx, key, payload).Err(); err != nil {
			return fmt.Errorf("guest: push entry after clear: %w", err)
		}
	}
	if err := s.rdb.LTrim(ctx, key, 0, maxEntries-1).Err(); err != nil {
		return fmt.Errorf("guest: trim gallery: %w", err)
	}
	if err := s.rdb.Expire(ctx, key, galleryTTL).Err(); err != nil {
		return fmt.Errorf("guest: refresh ttl: %w", err)
	}
	return nil
}

// Recent returns the gallery, newest first.
func (s *Store) Recent(ctx context.Context, sessionID string) ([]Entry, error) {
	if !s.Enabled() {
		return nil, errors.New("guest: store not configured")
	}
	key, err := galleryKey(sessionID)
	if err != nil {
		return nil, err
	}
	raw, err := s.rdb.LRange(ctx, key, 0, maxEntries-1).Result()
	if err != nil {
		return nil, fmt.Errorf("guest: load gallery: %w", err)
	}
	entries := make([]Entry, 0, len(raw))
	for _, item := range raw {
		var e Entry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Clear drops the session's gallery.
func (s *Store) Clear(ctx context.Context, sessionID string) error {
	if !s.Enabled() {
		return errors.New("guest: store not configured")
	}
	key, err := galleryKey(sessionID)
	if err != nil {
		return err
	}
	return s.rdb.Del(ctx, key).Err()
}

func galleryKey(sessionID string) (string, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return "", errors.New("guest: session id required")
	}
	return keyPrefix + sessionID, nil
}
