package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// ConfigStore persists calendar configurations and each calendar's current
// time. It stores data only; validation happens in the engine.
type ConfigStore interface {
	// LoadConfig returns the stored configuration, or nil if none exists.
	LoadConfig(ctx context.Context, calendarID string) (*Config, error)
	SaveConfig(ctx context.Context, calendarID string, cfg Config) error
	Delete(ctx context.Context, calendarID string) error
	List(ctx context.Context) ([]string, error)

	// LoadNow returns the stored current time in linear seconds. The bool is
	// false when no time has been stored yet.
	LoadNow(ctx context.Context, calendarID string) (int64, bool, error)
	SaveNow(ctx context.Context, calendarID string, seconds int64) error
}

// Redis key layout.
const (
	calendarKeyPrefix = "calendar:"
	calendarIndexKey  = "calendars"
)

func configKey(id string) string { return calendarKeyPrefix + id + ":config" }
func nowKey(id string) string    { return calendarKeyPrefix + id + ":now" }

// redisConfigStore is the Redis implementation of ConfigStore. Configs are
// stored as JSON, current times as decimal strings, and the set of calendar
// IDs in a Redis set.
type redisConfigStore struct {
	rdb *redis.Client
}

// NewConfigStore creates a Redis-backed ConfigStore.
func NewConfigStore(rdb *redis.Client) ConfigStore {
	return &redisConfigStore{rdb: rdb}
}

// LoadConfig reads and decodes a calendar configuration.
func (s *redisConfigStore) LoadConfig(ctx context.Context, calendarID string) (*Config, error) {
	data, err := s.rdb.Get(ctx, configKey(calendarID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading calendar config from Redis: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decoding calendar config: %w", err)
	}
	return &cfg, nil
}

// SaveConfig writes the configuration and indexes the calendar ID in one
// transaction.
func (s *redisConfigStore) SaveConfig(ctx context.Context, calendarID string, cfg Config) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding calendar config: %w", err)
	}
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, configKey(calendarID), data, 0)
		pipe.SAdd(ctx, calendarIndexKey, calendarID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("storing calendar config in Redis: %w", err)
	}
	return nil
}

// Delete removes the configuration, current time and index entry.
func (s *redisConfigStore) Delete(ctx context.Context, calendarID string) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, configKey(calendarID), nowKey(calendarID))
		pipe.SRem(ctx, calendarIndexKey, calendarID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("deleting calendar from Redis: %w", err)
	}
	return nil
}

// List returns the IDs of all stored calendars.
func (s *redisConfigStore) List(ctx context.Context) ([]string, error) {
	ids, err := s.rdb.SMembers(ctx, calendarIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("listing calendars from Redis: %w", err)
	}
	return ids, nil
}

// LoadNow reads the stored current time.
func (s *redisConfigStore) LoadNow(ctx context.Context, calendarID string) (int64, bool, error) {
	v, err := s.rdb.Get(ctx, nowKey(calendarID)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("reading current time from Redis: %w", err)
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("decoding current time %q: %w", v, err)
	}
	return n, true, nil
}

// SaveNow writes the current time.
func (s *redisConfigStore) SaveNow(ctx context.Context, calendarID string, seconds int64) error {
	if err := s.rdb.Set(ctx, nowKey(calendarID), strconv.FormatInt(seconds, 10), 0).Err(); err != nil {
		return fmt.Errorf("storing current time in Redis: %w", err)
	}
	return nil
}
