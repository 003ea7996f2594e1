package cache

import (
	"context"
	"errors"
	"time"

	"github.com/klass-lk/inkpost/internal/store"
	"go.mongodb.org/mongo-driver/mongo"
)

type MongoCacheService struct {
	repo  *store.MongoRepository[CacheEntry]
	codec *Codec
	now   func() time.Time
}

func NewMongoCacheService(repo *store.MongoRepository[CacheEntry], codec *Codec) *MongoCacheService {
	return &MongoCacheService{repo: repo, codec: codec, now: time.Now}
}

func (s *MongoCacheService) Set(ctx context.Context, key string, data []byte, tags []string, duration time.Duration) error {
	now := s.now()
	entry := CacheEntry{
		PK:        key,
		Data:      s.codec.Compress(data),
		Tags:      tags,
		TTL:       now.Add(duration).Unix(),
		CreatedAt: now.Unix(),
	}
	return s.repo.SaveOrUpdate(ctx, entry)
}

func (s *MongoCacheService) Get(ctx context.Context, key string) ([]byte, error) {
	entry, err := s.repo.FindById(ctx, key)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if entry.IsExpired(s.now()) {
		_ = s.repo.Delete(ctx, key)
		return nil, nil
	}

	return s.codec.Decompress(entry.Data)
}

// Invalidate relies on Mongo matching a scalar against array members.
func (s *MongoCacheService) Invalidate(ctx context.Context, tags ...string) error {
	var errs []error
	for _, tag := range tags {
		if err := s.repo.DeleteBy(ctx, "tags", tag); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
