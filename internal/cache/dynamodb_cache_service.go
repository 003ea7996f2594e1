package cache

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/klass-lk/inkpost/internal/store"
)

const (
	dynamoEntryPrefix  = "CACHE#"
	dynamoTagPrefix    = "CACHETAG#"
	dynamoEntrySortKey = "DATA"
)

// dynamoCacheItem is one cached response: pk CACHE#<key>, sk DATA.
type dynamoCacheItem struct {
	PK        string   `dynamodbav:"pk"`
	SK        string   `dynamodbav:"sk"`
	Data      []byte   `dynamodbav:"data"`
	Tags      []string `dynamodbav:"tags,omitempty"`
	TTL       int64    `dynamodbav:"ttl"`
	CreatedAt int64    `dynamodbav:"createdAt"`
}

// TagEntry links a tag to a cached key: pk CACHETAG#<tag>, sk <key>.
type TagEntry struct {
	PK        string `dynamodbav:"pk"`
	SK        string `dynamodbav:"sk"`
	TTL       int64  `dynamodbav:"ttl"`
	CreatedAt int64  `dynamodbav:"createdAt"`
}

// DynamoDBCacheService keeps cache entries and tag links in the pk/sk table the
// posts use, in partitions of their own.
type DynamoDBCacheService struct {
	client    store.DynamoDBAPI
	tableName string
	codec     *Codec
	now       func() time.Time
}

func NewDynamoDBCacheService(client store.DynamoDBAPI, tableName string, codec *Codec) *DynamoDBCacheService {
	return &DynamoDBCacheService{client: client, tableName: tableName, codec: codec, now: time.Now}
}

func (s *DynamoDBCacheService) Set(ctx context.Context, key string, data []byte, tags []string, duration time.Duration) error {
	now := s.now()
	ttl := now.Add(duration).Unix()

	if err := s.put(ctx, dynamoCacheItem{
		PK:        dynamoEntryPrefix + key,
		SK:        dynamoEntrySortKey,
		Data:      s.codec.Compress(data),
		Tags:      tags,
		TTL:       ttl,
		CreatedAt: now.Unix(),
	}); err != nil {
		return err
	}

	for _, tag := range tags {
		if err := s.put(ctx, TagEntry{
			PK:        dynamoTagPrefix + tag,
			SK:        key,
			TTL:       ttl,
			CreatedAt: now.Unix(),
		}); err != nil {
			return err
		}
	}
	return nil
}

func (s *DynamoDBCacheService) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key:       itemKey(dynamoEntryPrefix+key, dynamoEntrySortKey),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Item) == 0 {
		return nil, nil
	}

	var item dynamoCacheItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, err
	}
	if s.now().Unix() > item.TTL {
		_ = s.delete(ctx, item.PK, item.SK)
		return nil, nil
	}
	return s.codec.Decompress(item.Data)
}

func (s *DynamoDBCacheService) Invalidate(ctx context.Context, tags ...string) error {
	var errs []error
	for _, tag := range tags {
		entries, err := s.tagEntries(ctx, dynamoTagPrefix+tag)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, entry := range entries {
			if err := s.delete(ctx, dynamoEntryPrefix+entry.SK, dynamoEntrySortKey); err != nil {
				errs = append(errs, err)
			}
			if err := s.delete(ctx, entry.PK, entry.SK); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (s *DynamoDBCacheService) tagEntries(ctx context.Context, pk string) ([]TagEntry, error) {
	var entries []TagEntry
	var startKey map[string]types.AttributeValue
	for {
		out, err := s.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(s.tableName),
			KeyConditionExpression: aws.String("pk = :pk"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": &types.AttributeValueMemberS{Value: pk},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, err
		}

		var page []TagEntry
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, err
		}
		entries = append(entries, page...)

		if len(out.LastEvaluatedKey) == 0 {
			return entries, nil
		}
		startKey = out.LastEvaluatedKey
	}
}

func (s *DynamoDBCacheService) put(ctx context.Context, item interface{}) error {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return err
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      av,
	})
	return err
}

func (s *DynamoDBCacheService) delete(ctx context.Context, pk, sk string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key:       itemKey(pk, sk),
	})
	return err
}

func itemKey(pk, sk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"pk": &types.AttributeValueMemberS{Value: pk},
		"sk": &types.AttributeValueMemberS{Value: sk},
	}
}
