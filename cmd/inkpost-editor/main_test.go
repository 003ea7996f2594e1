package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/klass-lk/inkpost/internal/client"
	"github.com/klass-lk/inkpost/internal/controller"
	"github.com/klass-lk/inkpost/internal/editor"
	"github.com/klass-lk/inkpost/internal/repository"
	"github.com/klass-lk/inkpost/internal/server"
	"github.com/klass-lk/inkpost/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAPI(t *testing.T) *client.Client {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := repository.NewMemoryPostRepository()
	srv := server.New().SetBasePath("/api")
	srv.RegisterController("/blogs", controller.NewPostController(
		service.NewPostService(repo, service.DraftStatusPassthrough),
		service.NewListingService(repo),
		nil,
	))
	ts := httptest.NewServer(srv.Engine())
	t.Cleanup(ts.Close)
	return client.New(ts.URL+"/api/blogs", ts.Client())
}

func TestHandle_EditSaveListPublish(t *testing.T) {
	api := newAPI(t)
	session := editor.NewSession(api, editor.WithDebounce(time.Hour))
	defer session.Close()
	ctx := context.Background()
	var out bytes.Buffer

	assert.False(t, handle(ctx, &out, api, session, "title first post"))
	assert.False(t, handle(ctx, &out, api, session, `content line one\nline two`))
	assert.False(t, handle(ctx, &out, api, session, "tags go, web"))
	assert.False(t, handle(ctx, &out, api, session, "save"))
	require.Equal(t, editor.StateSaved, session.State())
	require.NotEmpty(t, session.ID())

	out.Reset()
	handle(ctx, &out, api, session, "list")
	assert.Contains(t, out.String(), "[Draft]")
	assert.Contains(t, out.String(), "First post")
	assert.Contains(t, out.String(), "#web")

	out.Reset()
	handle(ctx, &out, api, session, "show")
	assert.Contains(t, out.String(), "line one\nline two")

	handle(ctx, &out, api, session, "publish")
	select {
	case <-session.Done():
	default:
		t.Fatal("publish did not end the session")
	}

	out.Reset()
	handle(ctx, &out, api, session, "list published")
	assert.Contains(t, out.String(), "[Published]")
	assert.NotContains(t, out.String(), "[Draft]")
}

func TestHandle_QuitAndUnknown(t *testing.T) {
	api := newAPI(t)
	session := editor.NewSession(api)
	defer session.Close()
	var out bytes.Buffer

	assert.True(t, handle(context.Background(), &out, api, session, "quit"))
	assert.False(t, handle(context.Background(), &out, api, session, "frobnicate"))
	assert.Contains(t, out.String(), "commands:")
}

func TestRepl_StopsAfterPublish(t *testing.T) {
	api := newAPI(t)
	session := editor.NewSession(api, editor.WithDebounce(time.Hour))
	defer session.Close()

	in := strings.NewReader("title hello\npublish\n")
	var out bytes.Buffer

	require.NoError(t, repl(context.Background(), in, &out, api, session))
	assert.Equal(t, editor.StatePublished, session.State())
	assert.Equal(t, "hello", session.Snapshot().Title)
}

func TestHandle_ListOrdersByStatus(t *testing.T) {
	api := newAPI(t)
	ctx := context.Background()

	_, err := api.Publish(ctx, client.PublishPayload{Title: "live", Tags: []string{}})
	require.NoError(t, err)
	_, err = api.SaveDraft(ctx, client.DraftPayload{Title: "pending", Tags: []string{}})
	require.NoError(t, err)

	session := editor.NewSession(api)
	defer session.Close()
	var out bytes.Buffer

	handle(ctx, &out, api, session, "list")
	assert.Less(t, strings.Index(out.String(), "Pending"), strings.Index(out.String(), "Live"))

	out.Reset()
	handle(ctx, &out, api, session, "list published")
	assert.Less(t, strings.Index(out.String(), "Live"), strings.Index(out.String(), "Pending"))
}
