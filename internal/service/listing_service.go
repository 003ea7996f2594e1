package service

import (
	"context"
	"sort"

	"github.com/klass-lk/inkpost/internal/model"
)

// PostLister is anything that can return every post, e.g. a repository or the API client.
type PostLister interface {
	ListAll(ctx context.Context) ([]model.Post, error)
}

type ListingService struct {
	source PostLister
}

func NewListingService(source PostLister) *ListingService {
	return &ListingService{source: source}
}

// ListAll returns posts in source order.
func (s *ListingService) ListAll(ctx context.Context) ([]model.Post, error) {
	return s.source.ListAll(ctx)
}

func (s *ListingService) List(ctx context.Context, sortDraftFirst bool) ([]model.Post, error) {
	posts, err := s.source.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	SortByStatus(posts, sortDraftFirst)
	return posts, nil
}

// SortByStatus moves one status group ahead of the other in place. Order
// inside each group is left as it was.
func SortByStatus(posts []model.Post, draftFirst bool) {
	first := model.StatusPublished
	if draftFirst {
		first = model.StatusDraft
	}
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].Status == first && posts[j].Status != first
	})
}
