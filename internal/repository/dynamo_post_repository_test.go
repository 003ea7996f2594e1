package repository

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"testing"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/klass-lk/inkpost/internal/model"
	"github.com/klass-lk/inkpost/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcddb "github.com/testcontainers/testcontainers-go/modules/dynamodb"
)

func setupDynamo(t *testing.T) *dynamodb.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping DynamoDB integration test in short mode")
	}

	ctx := context.Background()
	container, err := tcddb.Run(ctx, "amazon/dynamodb-local:2.2.1")
	if err != nil {
		t.Skipf("Could not start dynamodb container: %v", err)
	}
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	cfg := store.NewDynamoDBConfig().
		WithEndpoint("http://"+endpoint).
		WithStaticCredentials("dummy", "dummy")
	client, err := store.NewDynamoDBClient(ctx, cfg)
	require.NoError(t, err)
	return client
}

func TestDynamoPostRepository(t *testing.T) {
	client := setupDynamo(t)
	ctx := context.Background()

	n := 0
	runPostRepositoryContract(t, func(t *testing.T) PostRepository {
		n++
		cfg := store.NewDynamoDBConfig().WithTableName(fmt.Sprintf("posts-test-%d", n))
		require.NoError(t, store.EnsureTable(ctx, client, cfg))
		return NewDynamoPostRepository(client, cfg.TableName)
	})
}

func TestDynamoPostRepository_StoreUnavailable(t *testing.T) {
	ctx := context.Background()
	cfg := store.NewDynamoDBConfig().
		WithEndpoint("http://127.0.0.1:1").
		WithStaticCredentials("dummy", "dummy")
	client, err := store.NewDynamoDBClient(ctx, cfg)
	require.NoError(t, err)

	repo := NewDynamoPostRepository(client, "posts")
	_, err = repo.Create(ctx, model.PostFields{Title: "lost"})
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func responseError(status int, err error) error {
	return &awshttp.ResponseError{
		ResponseError: &smithyhttp.ResponseError{
			Response: &smithyhttp.Response{Response: &http.Response{StatusCode: status}},
			Err:      err,
		},
	}
}

func TestDynamoError(t *testing.T) {
	refused := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}

	tests := []struct {
		name        string
		err         error
		unavailable bool
		notFound    bool
	}{
		{
			name:     "condition failed",
			err:      &types.ConditionalCheckFailedException{},
			notFound: true,
		},
		{
			name:        "dial error inside a zero status response",
			err:         fmt.Errorf("operation error DynamoDB: PutItem, %w", responseError(0, refused)),
			unavailable: true,
		},
		{
			name:        "zero status without a net error",
			err:         responseError(0, errors.New("exceeded maximum number of attempts")),
			unavailable: true,
		},
		{
			name:        "deadline exceeded",
			err:         fmt.Errorf("get item: %w", context.DeadlineExceeded),
			unavailable: true,
		},
		{
			name:        "no response at all",
			err:         errors.New("resolve endpoint"),
			unavailable: true,
		},
		{
			name: "service answered",
			err:  responseError(http.StatusBadRequest, &types.ResourceNotFoundException{}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := dynamoError(tt.err)

			assert.Equal(t, tt.notFound, errors.Is(err, ErrPostNotFound))
			assert.Equal(t, tt.unavailable, errors.Is(err, ErrStoreUnavailable))
			if !tt.notFound {
				assert.Error(t, err)
			}
		})
	}
}
