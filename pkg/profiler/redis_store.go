package profiler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix = "ormbundle:profile:"
	// DefaultTTL is how long a RedisStore keeps a profile
	DefaultTTL = time.Hour
)

// RedisStore keeps profiles as JSON documents in redis.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

var _ ProfileStore = (*RedisStore)(nil)

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

// NewRedisStoreFromURL connects to the redis server at rawURL,
// e.g. redis://localhost:6379/0.
func NewRedisStoreFromURL(rawURL string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid profiler redis url: %w", err)
	}
	return NewRedisStore(redis.NewClient(opts), ttl), nil
}

func (s *RedisStore) Save(ctx context.Context, p *Profile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, redisKeyPrefix+p.Token, data, s.ttl).Err()
}

func (s *RedisStore) Load(ctx context.Context, token string) (*Profile, error) {
	data, err := s.client.Get(ctx, redisKeyPrefix+token).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}

	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("corrupt profile %s: %w", token, err)
	}
	return &p, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
