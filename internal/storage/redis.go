package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dgellow/research-hub/internal/log"
	"github.com/redis/go-redis/v9"
)

// DefaultRedisKeyPrefix namespaces profile keys.
const DefaultRedisKeyPrefix = "research-hub:profile:"

var (
	ErrFailedToParseRedisURL = errors.New("failed to parse redis connection url")
	ErrRedisNotReady         = errors.New("redis did not become ready")
)

// RedisConfig configures the Redis connection.
type RedisConfig struct {
	URL            string
	KeyPrefix      string
	ConnectTimeout time.Duration
	RetryAttempts  int
	RetryInterval  time.Duration
}

func (c RedisConfig) withDefaults() RedisConfig {
	if c.KeyPrefix == "" {
		c.KeyPrefix = DefaultRedisKeyPrefix
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 30 * time.Second
	}
	if c.RetryAttempts <= 0 {
		c.RetryAttempts = 3
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = 2 * time.Second
	}
	return c
}

// ConnectRedis connects to Redis, retrying until the server answers PING or
// the attempts run out.
func ConnectRedis(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	cfg = cfg.withDefaults()

	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, errors.Join(ErrFailedToParseRedisURL, err)
	}

	var lastErr error
	for attempt := 0; attempt < cfg.RetryAttempts; attempt++ {
		client := redis.NewClient(opts)
		if lastErr = client.Ping(ctx).Err(); lastErr == nil {
			return client, nil
		}
		_ = client.Close()

		log.LogWarnWithFields("storage", "Redis not ready", map[string]any{
			"attempt": attempt + 1,
			"error":   lastErr.Error(),
		})

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrRedisNotReady, ctx.Err())
		case <-time.After(cfg.RetryInterval):
		}
	}
	return nil, errors.Join(ErrRedisNotReady, lastErr)
}

// RedisStorage stores each profile as a JSON string under prefix+iD.
type RedisStorage struct {
	client        redis.UniversalClient
	prefix        string
	scanBatchSize int64
}

// Ensure RedisStorage implements ProfileStorage
var _ ProfileStorage = (*RedisStorage)(nil)

// NewRedisStorage wraps a connected client.
func NewRedisStorage(client redis.UniversalClient, prefix string) *RedisStorage {
	if prefix == "" {
		prefix = DefaultRedisKeyPrefix
	}
	return &RedisStorage{
		client:        client,
		prefix:        prefix,
		scanBatchSize: 1000,
	}
}

func (s *RedisStorage) key(orcidID string) string {
	return s.prefix + orcidID
}

// GetProfile retrieves the profile stored for orcidID
func (s *RedisStorage) GetProfile(ctx context.Context, orcidID string) (*ProfileDocument, error) {
	data, err := s.client.Get(ctx, s.key(orcidID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile from Redis: %w", err)
	}

	var doc ProfileDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptedProfile, err)
	}
	return &doc, nil
}

// PutProfile replaces the profile stored for doc.ORCID. Profiles never expire.
func (s *RedisStorage) PutProfile(ctx context.Context, doc *ProfileDocument) error {
	if doc == nil || doc.ORCID == "" {
		return fmt.Errorf("profile document requires an orcid iD")
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}
	if err := s.client.Set(ctx, s.key(doc.ORCID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to store profile in Redis: %w", err)
	}
	return nil
}

// ListProfiles scans the key prefix and returns every readable profile
// ordered by iD.
func (s *RedisStorage) ListProfiles(ctx context.Context) ([]*ProfileDocument, error) {
	var ids []string
	iter := s.client.Scan(ctx, 0, s.prefix+"*", s.scanBatchSize).Iterator()
	for iter.Next(ctx) {
		ids = append(ids, strings.TrimPrefix(iter.Val(), s.prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan profiles: %w", err)
	}
	sort.Strings(ids)

	docs := make([]*ProfileDocument, 0, len(ids))
	for _, id := range ids {
		doc, err := s.GetProfile(ctx, id)
		if err != nil {
			log.LogWarnWithFields("storage", "Skipping unreadable profile", map[string]any{
				"orcid": id,
				"error": err.Error(),
			})
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Close terminates the Redis connection.
func (s *RedisStorage) Close() error {
	return s.client.Close()
}
