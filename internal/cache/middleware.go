package cache

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// KeyGenerator defines a function to generate a cache key from the request
type KeyGenerator func(c *gin.Context) string

// TagGenerator defines a function to generate tags for the cache entry
type TagGenerator func(c *gin.Context) []string

type cacheWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *cacheWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *cacheWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// DefaultKeyGenerator hashes the request URL including its query.
func DefaultKeyGenerator(c *gin.Context) string {
	hash := sha256.Sum256([]byte(c.Request.URL.String()))
	return hex.EncodeToString(hash[:])
}

// Middleware serves GET requests from the cache and stores 200 responses.
// Cache errors are logged and treated as misses.
func Middleware(service CacheService, duration time.Duration, tagGen TagGenerator, keyGen KeyGenerator) gin.HandlerFunc {
	if keyGen == nil {
		keyGen = DefaultKeyGenerator
	}

	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		logger := zerolog.Ctx(c.Request.Context())
		key := keyGen(c)

		cachedData, err := service.Get(c.Request.Context(), key)
		if err != nil {
			logger.Warn().Err(err).Msg("Cache lookup failed")
		}
		if err == nil && cachedData != nil {
			c.Header("X-Cache", "HIT")
			c.Data(http.StatusOK, "application/json; charset=utf-8", cachedData)
			c.Abort()
			return
		}

		c.Header("X-Cache", "MISS")
		writer := &cacheWriter{
			ResponseWriter: c.Writer,
			body:           &bytes.Buffer{},
		}
		c.Writer = writer

		c.Next()

		if c.Writer.Status() != http.StatusOK {
			return
		}
		tags := []string{}
		if tagGen != nil {
			tags = tagGen(c)
		}
		// must outlive the request context
		if err := service.Set(context.WithoutCancel(c.Request.Context()), key, writer.body.Bytes(), tags, duration); err != nil {
			logger.Warn().Err(err).Msg("Cache store failed")
		}
	}
}
