package repository

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/klass-lk/inkpost/internal/model"
	"github.com/klass-lk/inkpost/internal/store"
	pkgerrors "github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// postPartition is the single partition all posts live in; sk is the post id.
const postPartition = "Post"

type dynamoPostItem struct {
	PK string `dynamodbav:"pk"`
	model.Post
}

type DynamoPostRepository struct {
	client    store.DynamoDBAPI
	tableName string
	now       func() time.Time
}

func NewDynamoPostRepository(client store.DynamoDBAPI, tableName string) *DynamoPostRepository {
	return &DynamoPostRepository{
		client:    client,
		tableName: tableName,
		now:       model.Now,
	}
}

func (r *DynamoPostRepository) Create(ctx context.Context, fields model.PostFields) (model.Post, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	now := r.now()
	post := model.Post{
		ID:        primitive.NewObjectID().Hex(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	fields.Apply(&post)

	item, err := attributevalue.MarshalMap(dynamoPostItem{PK: postPartition, Post: post})
	if err != nil {
		return model.Post{}, pkgerrors.WithStack(err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	if err != nil {
		return model.Post{}, dynamoError(err)
	}
	return post, nil
}

func (r *DynamoPostRepository) UpdateByID(ctx context.Context, id string, fields model.PostFields) (model.Post, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var changes model.Post
	fields.Apply(&changes)

	values, err := attributevalue.MarshalMap(map[string]interface{}{
		":title":     changes.Title,
		":content":   changes.Content,
		":tags":      changes.Tags,
		":status":    changes.Status,
		":updatedAt": r.now(),
	})
	if err != nil {
		return model.Post{}, pkgerrors.WithStack(err)
	}

	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 postKey(id),
		ConditionExpression: aws.String("attribute_exists(pk)"),
		UpdateExpression:    aws.String("SET #title = :title, #content = :content, #tags = :tags, #status = :status, #updatedAt = :updatedAt"),
		ExpressionAttributeNames: map[string]string{
			"#title":     "title",
			"#content":   "content",
			"#tags":      "tags",
			"#status":    "status",
			"#updatedAt": "updatedAt",
		},
		ExpressionAttributeValues: values,
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		return model.Post{}, dynamoError(err)
	}
	return decodePostItem(out.Attributes)
}

func (r *DynamoPostRepository) GetByID(ctx context.Context, id string) (model.Post, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            postKey(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return model.Post{}, dynamoError(err)
	}
	if out.Item == nil {
		return model.Post{}, ErrPostNotFound
	}
	return decodePostItem(out.Item)
}

func (r *DynamoPostRepository) ListAll(ctx context.Context) ([]model.Post, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	posts := []model.Post{}
	var startKey map[string]types.AttributeValue
	for {
		out, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(r.tableName),
			KeyConditionExpression: aws.String("pk = :pk"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": &types.AttributeValueMemberS{Value: postPartition},
			},
			ExclusiveStartKey: startKey,
			ConsistentRead:    aws.Bool(true),
		})
		if err != nil {
			return nil, dynamoError(err)
		}
		for _, item := range out.Items {
			post, err := decodePostItem(item)
			if err != nil {
				return nil, err
			}
			posts = append(posts, post)
		}
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		startKey = out.LastEvaluatedKey
	}

	sortByID(posts)
	sortByRecency(posts)
	return posts, nil
}

func postKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"pk": &types.AttributeValueMemberS{Value: postPartition},
		"sk": &types.AttributeValueMemberS{Value: id},
	}
}

func decodePostItem(item map[string]types.AttributeValue) (model.Post, error) {
	var decoded dynamoPostItem
	if err := attributevalue.UnmarshalMap(item, &decoded); err != nil {
		return model.Post{}, pkgerrors.WithStack(err)
	}
	if decoded.Tags == nil {
		decoded.Tags = []string{}
	}
	return decoded.Post, nil
}

func dynamoError(err error) error {
	var conditionFailed *types.ConditionalCheckFailedException
	if errors.As(err, &conditionFailed) {
		return ErrPostNotFound
	}
	if unreachable(err) {
		return pkgerrors.WithStack(unavailable(err))
	}
	return pkgerrors.WithStack(err)
}

// unreachable reports failures where DynamoDB never answered. The SDK still
// wraps dial errors in a ResponseError, with status code 0.
func unreachable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var responseErr *awshttp.ResponseError
	if !errors.As(err, &responseErr) {
		return true
	}
	if responseErr.ResponseError == nil || responseErr.Response == nil || responseErr.Response.Response == nil {
		return true
	}
	return responseErr.HTTPStatusCode() == 0
}
