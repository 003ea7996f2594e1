package repository

import (
	"context"
	"sync"
	"time"

	"github.com/klass-lk/inkpost/internal/model"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryPostRepository keeps posts in process memory. Used by tests and the
// "memory" storage driver.
type MemoryPostRepository struct {
	mu    sync.RWMutex
	posts map[string]model.Post
	now   func() time.Time
}

func NewMemoryPostRepository() *MemoryPostRepository {
	return &MemoryPostRepository{
		posts: make(map[string]model.Post),
		now:   model.Now,
	}
}

// WithClock replaces the time source.
func (r *MemoryPostRepository) WithClock(now func() time.Time) *MemoryPostRepository {
	r.now = now
	return r
}

func (r *MemoryPostRepository) Create(_ context.Context, fields model.PostFields) (model.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	post := model.Post{
		ID:        primitive.NewObjectID().Hex(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	fields.Apply(&post)
	r.posts[post.ID] = post
	return clonePost(post), nil
}

func (r *MemoryPostRepository) UpdateByID(_ context.Context, id string, fields model.PostFields) (model.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	post, ok := r.posts[id]
	if !ok {
		return model.Post{}, ErrPostNotFound
	}
	fields.Apply(&post)
	post.UpdatedAt = r.now()
	if post.UpdatedAt.Before(post.CreatedAt) {
		post.UpdatedAt = post.CreatedAt
	}
	r.posts[id] = post
	return clonePost(post), nil
}

func (r *MemoryPostRepository) GetByID(_ context.Context, id string) (model.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	post, ok := r.posts[id]
	if !ok {
		return model.Post{}, ErrPostNotFound
	}
	return clonePost(post), nil
}

func (r *MemoryPostRepository) ListAll(_ context.Context) ([]model.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	posts := make([]model.Post, 0, len(r.posts))
	for _, post := range r.posts {
		posts = append(posts, clonePost(post))
	}
	// map order is random; break recency ties by id
	sortByID(posts)
	sortByRecency(posts)
	return posts, nil
}

func clonePost(p model.Post) model.Post {
	p.Tags = append([]string{}, p.Tags...)
	return p
}
