package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/klass-lk/inkpost/internal/model"
	"github.com/klass-lk/inkpost/internal/repository"
	"github.com/rs/zerolog"
)

// DraftStatusPolicy decides what status a save-draft request may set.
type DraftStatusPolicy string

const (
	// DraftStatusPassthrough keeps a valid requested status, so a save-draft
	// call can still write "published". Anything else becomes draft.
	DraftStatusPassthrough DraftStatusPolicy = "passthrough"
	// DraftStatusForceDraft always writes draft.
	DraftStatusForceDraft DraftStatusPolicy = "force-draft"
)

func ParseDraftStatusPolicy(s string) (DraftStatusPolicy, error) {
	switch DraftStatusPolicy(s) {
	case DraftStatusPassthrough, DraftStatusForceDraft:
		return DraftStatusPolicy(s), nil
	case "":
		return DraftStatusPassthrough, nil
	}
	return "", fmt.Errorf("unknown draft status policy %q", s)
}

type SaveDraftRequest struct {
	ID      string          `json:"id"`
	Title   string          `json:"title"`
	Content string          `json:"content"`
	Tags    json.RawMessage `json:"tags"`
	Status  json.RawMessage `json:"status"`
}

type PublishRequest struct {
	ID      string          `json:"id"`
	Title   string          `json:"title"`
	Content string          `json:"content"`
	Tags    json.RawMessage `json:"tags"`
}

// Invalidator drops cached reads after a write.
type Invalidator interface {
	Invalidate(ctx context.Context, tags ...string) error
}

const (
	PostsCacheTag      = "posts"
	postCacheTagPrefix = "post:"
)

func PostCacheTag(id string) string {
	return postCacheTagPrefix + id
}

type PostService struct {
	postRepo    repository.PostRepository
	policy      DraftStatusPolicy
	invalidator Invalidator
}

func NewPostService(postRepo repository.PostRepository, policy DraftStatusPolicy) *PostService {
	if policy == "" {
		policy = DraftStatusPassthrough
	}
	return &PostService{
		postRepo: postRepo,
		policy:   policy,
	}
}

func (s *PostService) WithInvalidator(invalidator Invalidator) *PostService {
	s.invalidator = invalidator
	return s
}

// SaveDraft updates the post when the id resolves and creates a new one otherwise.
// Two calls without an id create two posts.
func (s *PostService) SaveDraft(ctx context.Context, req SaveDraftRequest) (model.Post, error) {
	fields := model.PostFields{
		Title:   req.Title,
		Content: req.Content,
		Tags:    parseTags(req.Tags),
		Status:  s.draftStatus(req.Status),
	}
	return s.upsert(ctx, req.ID, fields)
}

func (s *PostService) Publish(ctx context.Context, req PublishRequest) (model.Post, error) {
	fields := model.PostFields{
		Title:   req.Title,
		Content: req.Content,
		Tags:    parseTags(req.Tags),
		Status:  model.StatusPublished,
	}
	return s.upsert(ctx, req.ID, fields)
}

func (s *PostService) GetPost(ctx context.Context, id string) (model.Post, error) {
	return s.postRepo.GetByID(ctx, id)
}

func (s *PostService) upsert(ctx context.Context, id string, fields model.PostFields) (model.Post, error) {
	logger := zerolog.Ctx(ctx)

	if id != "" {
		post, err := s.postRepo.UpdateByID(ctx, id, fields)
		if err == nil {
			logger.Debug().Str("post_id", post.ID).Str("status", string(post.Status)).Msg("Post updated")
			s.invalidate(ctx, post.ID)
			return post, nil
		}
		if !errors.Is(err, repository.ErrPostNotFound) {
			return model.Post{}, err
		}
		logger.Debug().Str("requested_id", id).Msg("Post id did not resolve, creating a new post")
	}

	post, err := s.postRepo.Create(ctx, fields)
	if err != nil {
		return model.Post{}, err
	}
	logger.Debug().Str("post_id", post.ID).Str("status", string(post.Status)).Msg("Post created")
	s.invalidate(ctx, post.ID)
	return post, nil
}

func (s *PostService) invalidate(ctx context.Context, id string) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Invalidate(ctx, PostsCacheTag, PostCacheTag(id)); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("post_id", id).Msg("Failed to invalidate cached posts")
	}
}

func (s *PostService) draftStatus(raw json.RawMessage) model.Status {
	if s.policy == DraftStatusForceDraft {
		return model.StatusDraft
	}
	var requested string
	if err := json.Unmarshal(raw, &requested); err != nil {
		return model.StatusDraft
	}
	if status, ok := model.ParseStatus(requested); ok {
		return status
	}
	return model.StatusDraft
}

// parseTags keeps array elements in order; anything that is not an array yields
// no tags. Non-string scalars are stringified and null elements become "".
func parseTags(raw json.RawMessage) []string {
	var items []interface{}
	if len(raw) == 0 || json.Unmarshal(raw, &items) != nil || items == nil {
		return []string{}
	}

	tags := make([]string, len(items))
	for i, item := range items {
		switch v := item.(type) {
		case nil:
			tags[i] = ""
		case string:
			tags[i] = v
		case float64, bool:
			tags[i] = fmt.Sprint(v)
		default:
			encoded, _ := json.Marshal(v)
			tags[i] = string(encoded)
		}
	}
	return tags
}
