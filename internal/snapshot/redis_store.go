package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"fcetrainer/internal/models"
)

const (
	redisKeyPrefix = "fce:snapshot:"
	redisTimeout   = 2 * time.Second
)

// RedisStore keeps each trainee's snapshot under its own key so several
// server instances can share recovery state. Keys expire after ttl.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// RedisConfig holds the connection settings for NewRedisStore
type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

// NewRedisStore connects to Redis and checks the connection
func NewRedisStore(cfg RedisConfig, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Address, err)
	}

	return &RedisStore{client: client, ttl: ttl}, nil
}

// Close releases the connection pool
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func redisKey(traineeID string) (string, error) {
	id, err := uuid.Parse(traineeID)
	if err != nil {
		return "", fmt.Errorf("invalid trainee ID %q: %w", traineeID, err)
	}
	return redisKeyPrefix + id.String(), nil
}

// Save overwrites the trainee's snapshot and refreshes its expiry
func (s *RedisStore) Save(traineeID string, snapshot models.Snapshot) error {
	key, err := redisKey(traineeID)
	if err != nil {
		return err
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()
	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// Load returns the trainee's snapshot when it is tagged with part, or nil
func (s *RedisStore) Load(traineeID string, part models.Part) (*models.Snapshot, error) {
	key, err := redisKey(traineeID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	snapshot, err := s.get(ctx, s.client, key)
	if err != nil || snapshot == nil || snapshot.ActivePart != part {
		return nil, err
	}
	return snapshot, nil
}

// Delete removes the trainee's snapshot if it is tagged with part. The check
// and the delete run in one transaction so a concurrent Save is never lost.
func (s *RedisStore) Delete(traineeID string, part models.Part) error {
	key, err := redisKey(traineeID)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		snapshot, err := s.get(ctx, tx, key)
		if err != nil || snapshot == nil || snapshot.ActivePart != part {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			return nil
		})
		return err
	}, key)
	if err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}

func (s *RedisStore) get(ctx context.Context, c redis.Cmdable, key string) (*models.Snapshot, error) {
	data, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var snapshot models.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", key, err)
	}
	return &snapshot, nil
}
