package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/klass-lk/inkpost/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryPostRepository(t *testing.T) {
	runPostRepositoryContract(t, func(t *testing.T) PostRepository {
		return NewMemoryPostRepository()
	})
}

func TestMemoryPostRepository_ListAllByRecency(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	repo := NewMemoryPostRepository().WithClock(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	})

	a, err := repo.Create(ctx, model.PostFields{Title: "A"})
	require.NoError(t, err)
	b, err := repo.Create(ctx, model.PostFields{Title: "B"})
	require.NoError(t, err)
	c, err := repo.Create(ctx, model.PostFields{Title: "C"})
	require.NoError(t, err)

	_, err = repo.UpdateByID(ctx, a.ID, model.PostFields{Title: "A2"})
	require.NoError(t, err)

	posts, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 3)
	assert.Equal(t, []string{a.ID, c.ID, b.ID}, []string{posts[0].ID, posts[1].ID, posts[2].ID})
}

func TestMemoryPostRepository_ClockSkewKeepsInvariant(t *testing.T) {
	ctx := context.Background()
	times := []time.Time{
		time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		time.Date(2024, 5, 1, 11, 0, 0, 0, time.UTC),
	}
	i := 0
	repo := NewMemoryPostRepository().WithClock(func() time.Time {
		now := times[i]
		i++
		return now
	})

	post, err := repo.Create(ctx, model.PostFields{})
	require.NoError(t, err)
	updated, err := repo.UpdateByID(ctx, post.ID, model.PostFields{Title: "later"})
	require.NoError(t, err)

	assert.False(t, updated.UpdatedAt.Before(updated.CreatedAt))
}

func TestMemoryPostRepository_ReturnedTagsAreDetached(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryPostRepository()

	post, err := repo.Create(ctx, model.PostFields{Tags: []string{"go"}})
	require.NoError(t, err)
	post.Tags[0] = "mutated"

	found, err := repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"go"}, found.Tags)
}

func TestMemoryPostRepository_ConcurrentCreates(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryPostRepository()

	var wg sync.WaitGroup
	ids := make([]string, 20)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			post, err := repo.Create(ctx, model.PostFields{Title: "dup"})
			assert.NoError(t, err)
			ids[i] = post.ID
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for _, id := range ids {
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}
