package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type Runtime string

const (
	RuntimeLambda Runtime = "lambda"
	RuntimeHTTP   Runtime = "http"
)

const defaultShutdownTimeout = 10 * time.Second

type Server struct {
	engine          *gin.Engine
	runtime         Runtime
	corsConfig      *cors.Config
	basePath        string
	shutdownTimeout time.Duration
}

func New() *Server {
	runtime := RuntimeHTTP
	if os.Getenv("LAMBDA_RUNTIME") == "true" {
		runtime = RuntimeLambda
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	return &Server{
		engine:          engine,
		runtime:         runtime,
		shutdownTimeout: defaultShutdownTimeout,
	}
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Use adds global middleware. Call it before registering routes.
func (s *Server) Use(middleware ...gin.HandlerFunc) *Server {
	s.engine.Use(middleware...)
	return s
}

// SetBasePath prefixes every group created afterwards.
func (s *Server) SetBasePath(path string) *Server {
	s.basePath = path
	return s
}

func (s *Server) SetRuntime(runtime Runtime) {
	s.runtime = runtime
}

func (s *Server) SetShutdownTimeout(timeout time.Duration) *Server {
	s.shutdownTimeout = timeout
	return s
}

// HealthCheck serves GET path outside the base path. A failing check answers 503.
func (s *Server) HealthCheck(path string, check func(ctx context.Context) error) *Server {
	s.engine.GET(path, func(c *gin.Context) {
		if check != nil {
			if err := check(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return s
}

// Start serves until ctx is cancelled, then shuts down gracefully. In the
// Lambda runtime it hands the engine to the Lambda loop instead.
func (s *Server) Start(ctx context.Context, port int) error {
	if s.runtime == RuntimeLambda {
		return s.startLambda(ctx)
	}
	return s.startHTTP(ctx, port)
}

func (s *Server) startHTTP(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger := zerolog.Ctx(ctx)
	logger.Info().Str("addr", srv.Addr).Msg("HTTP server listening")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info().Msg("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// LambdaHandler adapts API Gateway proxy events onto the engine.
func (s *Server) LambdaHandler() func(context.Context, events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	ginLambda := ginadapter.New(s.engine)

	return func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		return ginLambda.ProxyWithContext(ctx, req)
	}
}

func (s *Server) startLambda(ctx context.Context) error {
	lambda.StartWithOptions(s.LambdaHandler(), lambda.WithContext(ctx))
	return nil
}

func (s *Server) WithCORS(config *cors.Config) *Server {
	s.corsConfig = config
	s.engine.Use(cors.New(*config))
	return s
}

func (s *Server) DefaultCORS() *Server {
	config := cors.DefaultConfig()
	config.AllowAllOrigins = true
	config.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "X-Request-ID"}
	config.ExposeHeaders = []string{"X-Request-ID", "X-Cache"}
	config.MaxAge = 12 * time.Hour
	return s.WithCORS(&config)
}

func (s *Server) CustomCORS(allowOrigins []string, allowMethods []string, allowHeaders []string, maxAge time.Duration) *Server {
	config := cors.Config{
		AllowOrigins: allowOrigins,
		AllowMethods: allowMethods,
		AllowHeaders: allowHeaders,
		MaxAge:       maxAge,
	}
	return s.WithCORS(&config)
}
