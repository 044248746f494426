package blob

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps assets as Redis hashes (data + content type per key).
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an already-connected client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	return s.client.HSet(ctx, key, "data", data, "contentType", contentType).Err()
}

func (s *RedisStore) Get(ctx context.Context, key string) (Object, error) {
	fields, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Object{}, ErrNotFound
		}
		return Object{}, err
	}
	if len(fields) == 0 {
		return Object{}, ErrNotFound
	}
	return Object{Key: key, Data: []byte(fields["data"]), ContentType: fields["contentType"]}, nil
}

func (s *RedisStore) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}
