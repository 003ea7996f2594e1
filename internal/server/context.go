package server

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Context is the request context handed to controller handlers.
type Context struct {
	*gin.Context
}

func NewContext(c *gin.Context) *Context {
	return &Context{Context: c}
}

// Ctx returns the request's context.Context, which carries the request logger.
func (c *Context) Ctx() context.Context {
	return c.Request.Context()
}

func (c *Context) Logger() *zerolog.Logger {
	return zerolog.Ctx(c.Ctx())
}

// GetRequest binds the JSON body into request. A body that does not decode
// yields ErrBadRequest.
func (c *Context) GetRequest(request interface{}) error {
	if err := c.ShouldBindJSON(request); err != nil {
		return ErrBadRequest.New(err.Error())
	}
	return nil
}

func (c *Context) SendError(err error) {
	SendError(c.Context, err)
}
