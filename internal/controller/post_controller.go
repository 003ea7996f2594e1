package controller

import (
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/klass-lk/inkpost/internal/model"
	"github.com/klass-lk/inkpost/internal/repository"
	"github.com/klass-lk/inkpost/internal/server"
	"github.com/klass-lk/inkpost/internal/service"
)

const (
	SortDraftsFirst    = "drafts-first"
	SortPublishedFirst = "published-first"
)

type PostController struct {
	postService     *service.PostService
	listingService  *service.ListingService
	cacheMiddleware gin.HandlerFunc
}

// NewPostController builds the blog routes. cacheMiddleware may be nil.
func NewPostController(postService *service.PostService, listingService *service.ListingService, cacheMiddleware gin.HandlerFunc) *PostController {
	return &PostController{
		postService:     postService,
		listingService:  listingService,
		cacheMiddleware: cacheMiddleware,
	}
}

func (c *PostController) Register(group *server.ControllerGroup) {
	var cached []gin.HandlerFunc
	if c.cacheMiddleware != nil {
		cached = append(cached, c.cacheMiddleware)
	}

	group.GET("", c.GetPosts, cached...)
	group.GET("/:id", c.GetPost, cached...)
	group.POST("/save-draft", c.SaveDraft)
	group.POST("/publish", c.Publish)
}

// CacheTags tags list responses with "posts" and single-post responses with
// "post:<id>", matching what PostService invalidates.
func CacheTags(c *gin.Context) []string {
	if id := c.Param("id"); id != "" {
		return []string{service.PostCacheTag(id)}
	}
	return []string{service.PostsCacheTag}
}

func (c *PostController) GetPosts(ctx *server.Context) ([]model.Post, error) {
	var (
		posts []model.Post
		err   error
	)
	switch sort := ctx.Query("sort"); sort {
	case "":
		posts, err = c.listingService.ListAll(ctx.Ctx())
	case SortDraftsFirst:
		posts, err = c.listingService.List(ctx.Ctx(), true)
	case SortPublishedFirst:
		posts, err = c.listingService.List(ctx.Ctx(), false)
	default:
		return nil, server.ErrBadRequest.New(fmt.Sprintf("unknown sort %q", sort))
	}
	if err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []model.Post{}
	}
	return posts, nil
}

func (c *PostController) GetPost(ctx *server.Context) (model.Post, error) {
	post, err := c.postService.GetPost(ctx.Ctx(), ctx.Param("id"))
	if errors.Is(err, repository.ErrPostNotFound) {
		return model.Post{}, server.ErrNotFound.New("Blog")
	}
	return post, err
}

func (c *PostController) SaveDraft(ctx *server.Context, req service.SaveDraftRequest) (model.Post, error) {
	return c.postService.SaveDraft(ctx.Ctx(), req)
}

func (c *PostController) Publish(ctx *server.Context, req service.PublishRequest) (model.Post, error) {
	return c.postService.Publish(ctx.Ctx(), req)
}
