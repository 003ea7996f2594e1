// Package client talks to the blog API over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/klass-lk/inkpost/internal/model"
	"github.com/pkg/errors"
)

// ErrNetwork marks failures where no HTTP response was received.
var ErrNetwork = errors.New("network error")

// StatusError is a non-2xx answer from the API.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api returned %d: %s", e.Code, e.Message)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.Code == http.StatusNotFound
}

// DraftPayload is the body of save-draft. A nil Status is omitted.
type DraftPayload struct {
	ID      string        `json:"id,omitempty"`
	Title   string        `json:"title"`
	Content string        `json:"content"`
	Tags    []string      `json:"tags"`
	Status  *model.Status `json:"status,omitempty"`
}

type PublishPayload struct {
	ID      string   `json:"id,omitempty"`
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New returns a client for the blog routes mounted at baseURL, e.g.
// http://localhost:5000/api/blogs.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		// no client timeout; callers bound requests with ctx
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

func (c *Client) SaveDraft(ctx context.Context, payload DraftPayload) (model.Post, error) {
	var post model.Post
	err := c.do(ctx, http.MethodPost, "/save-draft", payload, &post)
	return post, err
}

func (c *Client) Publish(ctx context.Context, payload PublishPayload) (model.Post, error) {
	var post model.Post
	err := c.do(ctx, http.MethodPost, "/publish", payload, &post)
	return post, err
}

func (c *Client) GetPost(ctx context.Context, id string) (model.Post, error) {
	var post model.Post
	err := c.do(ctx, http.MethodGet, "/"+url.PathEscape(id), nil, &post)
	return post, err
}

// ListAll returns posts in the server's order.
func (c *Client) ListAll(ctx context.Context) ([]model.Post, error) {
	posts := []model.Post{}
	err := c.do(ctx, http.MethodGet, "", nil, &posts)
	return posts, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encode request")
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrNetwork, method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", ErrNetwork, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode, Message: errorMessage(data, resp.Status)}
	}
	if out == nil {
		return nil
	}
	return errors.Wrap(json.Unmarshal(data, out), "decode response")
}

// errorMessage reads {"error": ...} or {"message": ...} bodies.
func errorMessage(data []byte, fallback string) string {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &body); err == nil {
		if body.Error != "" {
			return body.Error
		}
		if body.Message != "" {
			return body.Message
		}
	}
	return fallback
}
