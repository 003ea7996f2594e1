package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/klass-lk/inkpost/internal/model"
)

var (
	ErrPostNotFound     = errors.New("post not found")
	ErrStoreUnavailable = errors.New("store unavailable")
)

// PostRepository is the thin persistence layer under the post services.
// Writes are last-writer-wins; there is no version check.
type PostRepository interface {
	Create(ctx context.Context, fields model.PostFields) (model.Post, error)
	UpdateByID(ctx context.Context, id string, fields model.PostFields) (model.Post, error)
	GetByID(ctx context.Context, id string) (model.Post, error)
	// ListAll returns posts most recently updated first.
	ListAll(ctx context.Context) ([]model.Post, error)
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %s", ErrStoreUnavailable, err.Error())
}

func sortByRecency(posts []model.Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].UpdatedAt.After(posts[j].UpdatedAt)
	})
}

// sortByID orders newest first for ObjectID-shaped ids.
func sortByID(posts []model.Post) {
	sort.Slice(posts, func(i, j int) bool {
		return posts[i].ID > posts[j].ID
	})
}
