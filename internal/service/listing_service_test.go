package service

import (
	"context"
	"errors"
	"testing"

	"github.com/klass-lk/inkpost/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticLister struct {
	posts []model.Post
	err   error
}

func (l staticLister) ListAll(context.Context) ([]model.Post, error) {
	out := make([]model.Post, len(l.posts))
	copy(out, l.posts)
	return out, l.err
}

func ids(posts []model.Post) []string {
	out := make([]string, len(posts))
	for i, p := range posts {
		out[i] = p.ID
	}
	return out
}

func TestListingService_List(t *testing.T) {
	source := staticLister{posts: []model.Post{
		{ID: "A", Status: model.StatusDraft},
		{ID: "B", Status: model.StatusPublished},
		{ID: "C", Status: model.StatusDraft},
		{ID: "D", Status: model.StatusPublished},
	}}
	svc := NewListingService(source)

	tests := []struct {
		name       string
		draftFirst bool
		want       []string
	}{
		{"drafts first", true, []string{"A", "C", "B", "D"}},
		{"published first", false, []string{"B", "D", "A", "C"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			posts, err := svc.List(context.Background(), tt.draftFirst)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(posts))
		})
	}
}

func TestListingService_ListThreePosts(t *testing.T) {
	svc := NewListingService(staticLister{posts: []model.Post{
		{ID: "A", Status: model.StatusDraft},
		{ID: "B", Status: model.StatusPublished},
		{ID: "C", Status: model.StatusDraft},
	}})

	posts, err := svc.List(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C", "B"}, ids(posts))
}

func TestListingService_ListAllKeepsSourceOrder(t *testing.T) {
	svc := NewListingService(staticLister{posts: []model.Post{
		{ID: "B", Status: model.StatusPublished},
		{ID: "A", Status: model.StatusDraft},
	}})

	posts, err := svc.ListAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A"}, ids(posts))
}

func TestListingService_SourceError(t *testing.T) {
	svc := NewListingService(staticLister{err: errors.New("boom")})

	_, err := svc.List(context.Background(), true)
	assert.EqualError(t, err, "boom")
}

func TestSortByStatus_EmptyAndSingleGroup(t *testing.T) {
	var none []model.Post
	SortByStatus(none, true)
	assert.Empty(t, none)

	drafts := []model.Post{{ID: "1", Status: model.StatusDraft}, {ID: "2", Status: model.StatusDraft}}
	SortByStatus(drafts, false)
	assert.Equal(t, []string{"1", "2"}, ids(drafts))
}
