package repository

import (
	"context"
	"testing"

	"github.com/klass-lk/inkpost/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runPostRepositoryContract exercises the behavior every backend must share.
func runPostRepositoryContract(t *testing.T, newRepo func(t *testing.T) PostRepository) {
	ctx := context.Background()

	t.Run("Create assigns id and timestamps", func(t *testing.T) {
		repo := newRepo(t)

		post, err := repo.Create(ctx, model.PostFields{Title: "Hello", Content: "World", Tags: []string{"b", "a", "b", ""}})
		require.NoError(t, err)

		assert.NotEmpty(t, post.ID)
		assert.Equal(t, model.StatusDraft, post.Status)
		assert.Equal(t, post.CreatedAt, post.UpdatedAt)
		assert.Equal(t, []string{"b", "a", "b", ""}, post.Tags)

		found, err := repo.GetByID(ctx, post.ID)
		require.NoError(t, err)
		assert.Equal(t, post.ID, found.ID)
		assert.Equal(t, "Hello", found.Title)
		assert.Equal(t, []string{"b", "a", "b", ""}, found.Tags)
		assert.True(t, found.CreatedAt.Equal(post.CreatedAt))
	})

	t.Run("Create without tags stores an empty list", func(t *testing.T) {
		repo := newRepo(t)

		post, err := repo.Create(ctx, model.PostFields{})
		require.NoError(t, err)

		found, err := repo.GetByID(ctx, post.ID)
		require.NoError(t, err)
		assert.NotNil(t, found.Tags)
		assert.Empty(t, found.Tags)
	})

	t.Run("Create twice yields distinct ids", func(t *testing.T) {
		repo := newRepo(t)

		first, err := repo.Create(ctx, model.PostFields{Title: "same"})
		require.NoError(t, err)
		second, err := repo.Create(ctx, model.PostFields{Title: "same"})
		require.NoError(t, err)

		assert.NotEqual(t, first.ID, second.ID)
	})

	t.Run("UpdateByID keeps createdAt and moves updatedAt", func(t *testing.T) {
		repo := newRepo(t)

		created, err := repo.Create(ctx, model.PostFields{Title: "v1"})
		require.NoError(t, err)

		updated, err := repo.UpdateByID(ctx, created.ID, model.PostFields{
			Title:   "v2",
			Content: "body",
			Tags:    []string{"x"},
			Status:  model.StatusPublished,
		})
		require.NoError(t, err)

		assert.Equal(t, created.ID, updated.ID)
		assert.Equal(t, "v2", updated.Title)
		assert.Equal(t, "body", updated.Content)
		assert.Equal(t, []string{"x"}, updated.Tags)
		assert.Equal(t, model.StatusPublished, updated.Status)
		assert.True(t, updated.CreatedAt.Equal(created.CreatedAt))
		assert.False(t, updated.UpdatedAt.Before(updated.CreatedAt))
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		repo := newRepo(t)

		_, err := repo.UpdateByID(ctx, "000000000000000000000000", model.PostFields{Title: "x"})
		assert.ErrorIs(t, err, ErrPostNotFound)

		_, err = repo.GetByID(ctx, "000000000000000000000000")
		assert.ErrorIs(t, err, ErrPostNotFound)

		_, err = repo.GetByID(ctx, "not-an-object-id")
		assert.ErrorIs(t, err, ErrPostNotFound)
	})

	t.Run("ListAll returns every post", func(t *testing.T) {
		repo := newRepo(t)

		a, err := repo.Create(ctx, model.PostFields{Title: "A"})
		require.NoError(t, err)
		b, err := repo.Create(ctx, model.PostFields{Title: "B", Status: model.StatusPublished})
		require.NoError(t, err)

		posts, err := repo.ListAll(ctx)
		require.NoError(t, err)

		ids := make([]string, len(posts))
		for i, p := range posts {
			ids[i] = p.ID
			assert.False(t, p.UpdatedAt.Before(p.CreatedAt))
		}
		assert.Contains(t, ids, a.ID)
		assert.Contains(t, ids, b.ID)
	})
}
