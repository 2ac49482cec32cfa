package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultJobKeyPrefix prefixes job record keys
const DefaultJobKeyPrefix = "billing:job:"

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// RedisJobResultStore stores job records as JSON strings with a TTL.
// Suitable when several server instances poll the same jobs.
type RedisJobResultStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisJobResultStore creates a store with an existing client
func NewRedisJobResultStore(client *redis.Client, keyPrefix string) *RedisJobResultStore {
	if keyPrefix == "" {
		keyPrefix = DefaultJobKeyPrefix
	}
	return &RedisJobResultStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Put stores the record
func (s *RedisJobResultStore) Put(ctx context.Context, rec JobRecord, ttl time.Duration) error {
	if rec.JobID == "" {
		return ErrEmptyJobID
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now()
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode job record: %w", err)
	}
	if err := s.client.Set(ctx, s.keyPrefix+rec.JobID, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store job record: %w", err)
	}
	return nil
}

// Get loads the record
func (s *RedisJobResultStore) Get(ctx context.Context, jobID string) (*JobRecord, bool, error) {
	data, err := s.client.Get(ctx, s.keyPrefix+jobID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load job record: %w", err)
	}

	var rec JobRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, false, fmt.Errorf("failed to decode job record: %w", err)
	}
	return &rec, true, nil
}

// Close is a no-op; the client is owned by whoever created it
func (s *RedisJobResultStore) Close() error {
	return nil
}

var _ JobResultStore = (*RedisJobResultStore)(nil)
