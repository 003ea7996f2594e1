package cache

import (
	"context"
	"time"
)

// CacheService stores rendered GET responses under a key with invalidation tags.
type CacheService interface {
	// Set stores a value in the cache with the given key, tags, and duration
	Set(ctx context.Context, key string, data []byte, tags []string, duration time.Duration) error

	// Get returns nil, nil on a miss.
	Get(ctx context.Context, key string) ([]byte, error)

	// Invalidate removes all cache entries associated with the given tags
	Invalidate(ctx context.Context, tags ...string) error
}

// CacheEntry is the Mongo document for one cached response.
type CacheEntry struct {
	PK        string   `bson:"_id" json:"pk" store:"id"`
	Data      []byte   `bson:"data" json:"data"`
	TTL       int64    `bson:"ttl" json:"ttl"`
	CreatedAt int64    `bson:"createdAt" json:"createdAt"`
	Tags      []string `bson:"tags,omitempty" json:"tags,omitempty"`
}

func (CacheEntry) GetCollectionName() string {
	return "cache_entries"
}

func (e *CacheEntry) IsExpired(now time.Time) bool {
	return now.Unix() > e.TTL
}
