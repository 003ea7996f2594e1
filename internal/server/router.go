package server

import (
	"fmt"
	"net/http"
	"reflect"

	"github.com/gin-gonic/gin"
)

// Controller registers its routes on the group it is mounted at.
type Controller interface {
	Register(group *ControllerGroup)
}

// ControllerGroup is a gin router group whose routes take typed handlers.
//
// A handler is a gin.HandlerFunc or a func returning (T, error) that takes, in
// order, an optional *Context and an optional request value decoded from the
// JSON body. A string T is written as text, anything else as JSON.
type ControllerGroup struct {
	group *gin.RouterGroup
}

// Group returns a group under the server's base path.
func (s *Server) Group(path string, middleware ...gin.HandlerFunc) *ControllerGroup {
	return &ControllerGroup{group: s.engine.Group(s.basePath).Group(path, middleware...)}
}

func (s *Server) RegisterController(path string, controller Controller, middleware ...gin.HandlerFunc) {
	controller.Register(s.Group(path, middleware...))
}

func (g *ControllerGroup) Group(path string, middleware ...gin.HandlerFunc) *ControllerGroup {
	return &ControllerGroup{group: g.group.Group(path, middleware...)}
}

func (g *ControllerGroup) Use(middleware ...gin.HandlerFunc) *ControllerGroup {
	g.group.Use(middleware...)
	return g
}

func (g *ControllerGroup) GET(path string, handler interface{}, middleware ...gin.HandlerFunc) {
	g.handle(http.MethodGet, path, handler, middleware)
}

func (g *ControllerGroup) POST(path string, handler interface{}, middleware ...gin.HandlerFunc) {
	g.handle(http.MethodPost, path, handler, middleware)
}

func (g *ControllerGroup) PUT(path string, handler interface{}, middleware ...gin.HandlerFunc) {
	g.handle(http.MethodPut, path, handler, middleware)
}

func (g *ControllerGroup) DELETE(path string, handler interface{}, middleware ...gin.HandlerFunc) {
	g.handle(http.MethodDelete, path, handler, middleware)
}

func (g *ControllerGroup) PATCH(path string, handler interface{}, middleware ...gin.HandlerFunc) {
	g.handle(http.MethodPatch, path, handler, middleware)
}

func (g *ControllerGroup) OPTIONS(path string, handler interface{}, middleware ...gin.HandlerFunc) {
	g.handle(http.MethodOptions, path, handler, middleware)
}

func (g *ControllerGroup) HEAD(path string, handler interface{}, middleware ...gin.HandlerFunc) {
	g.handle(http.MethodHead, path, handler, middleware)
}

func (g *ControllerGroup) handle(method, path string, handler interface{}, middleware []gin.HandlerFunc) {
	handlers := make([]gin.HandlerFunc, 0, len(middleware)+1)
	handlers = append(handlers, middleware...)
	handlers = append(handlers, wrapHandler(handler))
	g.group.Handle(method, path, handlers...)
}

var (
	contextType = reflect.TypeOf((*Context)(nil))
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

// wrapHandler panics on an unsupported signature, like gin does for bad routes.
func wrapHandler(handler interface{}) gin.HandlerFunc {
	switch h := handler.(type) {
	case gin.HandlerFunc:
		return h
	case func(*gin.Context):
		return h
	}

	fn := reflect.ValueOf(handler)
	fnType := fn.Type()
	if fnType.Kind() != reflect.Func {
		panic(fmt.Sprintf("handler must be a func, got %s", fnType))
	}
	if fnType.NumOut() != 2 || !fnType.Out(1).Implements(errorType) {
		panic(fmt.Sprintf("handler %s must return (T, error)", fnType))
	}

	withContext := false
	var requestType reflect.Type
	switch fnType.NumIn() {
	case 0:
	case 1:
		if fnType.In(0) == contextType {
			withContext = true
		} else {
			requestType = fnType.In(0)
		}
	case 2:
		if fnType.In(0) != contextType {
			panic(fmt.Sprintf("handler %s must take *server.Context first", fnType))
		}
		withContext = true
		requestType = fnType.In(1)
	default:
		panic(fmt.Sprintf("handler %s takes too many arguments", fnType))
	}

	return func(c *gin.Context) {
		ctx := NewContext(c)
		args := make([]reflect.Value, 0, 2)
		if withContext {
			args = append(args, reflect.ValueOf(ctx))
		}
		if requestType != nil {
			request, err := bindRequest(ctx, requestType)
			if err != nil {
				ctx.SendError(err)
				return
			}
			args = append(args, request)
		}

		out := fn.Call(args)
		if errVal := out[1]; !errVal.IsNil() {
			ctx.SendError(errVal.Interface().(error))
			return
		}
		if c.Writer.Written() {
			return
		}

		result := out[0]
		if result.Kind() == reflect.String {
			c.String(http.StatusOK, result.String())
			return
		}
		c.JSON(http.StatusOK, result.Interface())
	}
}

func bindRequest(ctx *Context, requestType reflect.Type) (reflect.Value, error) {
	if requestType.Kind() == reflect.Ptr {
		request := reflect.New(requestType.Elem())
		return request, ctx.GetRequest(request.Interface())
	}
	request := reflect.New(requestType)
	if err := ctx.GetRequest(request.Interface()); err != nil {
		return reflect.Value{}, err
	}
	return request.Elem(), nil
}
