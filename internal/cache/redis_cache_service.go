package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisEntryPrefix = "cache:"
	redisTagPrefix   = "cache-tag:"
)

func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// RedisCacheService keeps each entry as a string with a TTL and each tag as a
// set of entry keys.
type RedisCacheService struct {
	client redis.UniversalClient
	codec  *Codec
}

func NewRedisCacheService(client redis.UniversalClient, codec *Codec) *RedisCacheService {
	return &RedisCacheService{client: client, codec: codec}
}

func (s *RedisCacheService) Set(ctx context.Context, key string, data []byte, tags []string, duration time.Duration) error {
	entryKey := redisEntryPrefix + key
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, entryKey, s.codec.Compress(data), duration)
		for _, tag := range tags {
			tagKey := redisTagPrefix + tag
			pipe.SAdd(ctx, tagKey, entryKey)
			// a tag set must outlive every entry it points at
			pipe.ExpireGT(ctx, tagKey, duration)
			pipe.ExpireNX(ctx, tagKey, duration)
		}
		return nil
	})
	return err
}

func (s *RedisCacheService) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, redisEntryPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s.codec.Decompress(data)
}

func (s *RedisCacheService) Invalidate(ctx context.Context, tags ...string) error {
	var errs []error
	for _, tag := range tags {
		tagKey := redisTagPrefix + tag
		keys, err := s.client.SMembers(ctx, tagKey).Result()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := s.client.Del(ctx, append(keys, tagKey)...).Err(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
