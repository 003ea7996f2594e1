package main

import (
	"context"
	"testing"

	"github.com/klass-lk/inkpost/internal/config"
	"github.com/klass-lk/inkpost/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenStorage_Memory(t *testing.T) {
	st, err := openStorage(context.Background(), config.StorageConfig{Driver: "memory"})
	require.NoError(t, err)
	defer st.close()

	assert.NotNil(t, st.repo)
	assert.Nil(t, st.health)
	assert.Nil(t, st.mongoDB)
	assert.Nil(t, st.dynamo)
}

func TestOpenCache(t *testing.T) {
	ctx := context.Background()
	memory := &storage{close: func() {}}

	t.Run("disabled", func(t *testing.T) {
		service, closeFn, err := openCache(ctx, config.CacheConfig{Driver: "none"}, memory)
		require.NoError(t, err)
		defer closeFn()
		assert.Nil(t, service)
	})

	tests := []struct {
		driver string
		msg    string
	}{
		{driver: "mongo", msg: "needs storage driver mongo"},
		{driver: "dynamodb", msg: "needs storage driver dynamodb"},
		{driver: "memcached", msg: "unknown cache driver"},
	}
	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			service, closeFn, err := openCache(ctx, config.CacheConfig{Driver: tt.driver}, memory)
			defer closeFn()
			assert.Nil(t, service)
			assert.ErrorContains(t, err, tt.msg)
		})
	}

	t.Run("dynamodb shares the storage client", func(t *testing.T) {
		client, err := store.NewDynamoDBClient(ctx, store.NewDynamoDBConfig().
			WithEndpoint("http://127.0.0.1:8000").
			WithStaticCredentials("dummy", "dummy"))
		require.NoError(t, err)

		st := &storage{dynamo: client, dynamoTable: "inkpost", close: func() {}}
		service, closeFn, err := openCache(ctx, config.CacheConfig{Driver: "dynamodb"}, st)
		require.NoError(t, err)
		defer closeFn()
		assert.NotNil(t, service)
	})
}
