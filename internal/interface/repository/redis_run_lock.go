package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fare-crawler-service/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

var _ repository.RunLock = (*RedisRunLock)(nil)

// RedisRunLock is a single-key lease shared by every crawler process
type RedisRunLock struct {
	client *redis.Client
	key    string
	token  string
}

// NewRedisRunLock connects to Redis and verifies the connection
func NewRedisRunLock(addr, password string, db int, key string) (*RedisRunLock, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisRunLock{
		client: client,
		key:    key,
		token:  uuid.NewString(),
	}, nil
}

// Acquire takes the lease for ttl unless another process holds it
func (l *RedisRunLock) Acquire(ctx context.Context, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key, l.token, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire run lock: %w", err)
	}
	return ok, nil
}

// Release gives up the lease if this process still holds it
func (l *RedisRunLock) Release(ctx context.Context) error {
	err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to release run lock: %w", err)
	}
	return nil
}

// Close closes the redis client
func (l *RedisRunLock) Close() error {
	return l.client.Close()
}

var _ repository.RunLock = NoopRunLock{}

// NoopRunLock always grants the lease; used when no Redis is configured
type NoopRunLock struct{}

// Acquire always succeeds
func (NoopRunLock) Acquire(ctx context.Context, ttl time.Duration) (bool, error) { return true, nil }

// Release does nothing
func (NoopRunLock) Release(ctx context.Context) error { return nil }
