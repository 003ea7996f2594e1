package server

import (
	"bytes"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestContext_GetRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name        string
		body        string
		expectError bool
		expected    TestRouterRequest
	}{
		{
			name:     "valid body",
			body:     `{"name":"inkpost"}`,
			expected: TestRouterRequest{Name: "inkpost"},
		},
		{
			name:        "malformed body",
			body:        `{"name":`,
			expectError: true,
		},
		{
			name:        "empty body",
			body:        ``,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest("POST", "/", strings.NewReader(tt.body))
			c.Request.Header.Set("Content-Type", "application/json")

			var req TestRouterRequest
			err := NewContext(c).GetRequest(&req)

			if tt.expectError {
				var apiErr ApiError
				assert.ErrorAs(t, err, &apiErr)
				assert.Equal(t, ErrBadRequest.Status, apiErr.Status)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, req)
		})
	}
}

func TestContext_Logger(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	req := httptest.NewRequest("GET", "/", nil)
	c.Request = req.WithContext(logger.WithContext(req.Context()))

	ctx := NewContext(c)
	ctx.Logger().Info().Msg("hello")

	assert.Contains(t, buf.String(), `"message":"hello"`)
	assert.Equal(t, c.Request.Context(), ctx.Ctx())
}
