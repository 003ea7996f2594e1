package controller

import (
	"github.com/klass-lk/inkpost/internal/server"
	"github.com/klass-lk/inkpost/internal/service"
)

type CacheController struct {
	invalidator service.Invalidator
}

func NewCacheController(invalidator service.Invalidator) *CacheController {
	return &CacheController{
		invalidator: invalidator,
	}
}

func (c *CacheController) Register(group *server.ControllerGroup) {
	group.POST("/invalidate", c.Invalidate)
}

// InvalidateResponse echoes the tags that were dropped.
type InvalidateResponse struct {
	Invalidated []string `json:"invalidated"`
}

// Invalidate drops cached responses by tag. Query param: tag (required, repeatable).
func (c *CacheController) Invalidate(ctx *server.Context) (InvalidateResponse, error) {
	tags := ctx.QueryArray("tag")
	if len(tags) == 0 {
		return InvalidateResponse{}, server.ErrBadRequest.New("Tag is required")
	}

	if err := c.invalidator.Invalidate(ctx.Ctx(), tags...); err != nil {
		return InvalidateResponse{}, err
	}
	return InvalidateResponse{Invalidated: tags}, nil
}
