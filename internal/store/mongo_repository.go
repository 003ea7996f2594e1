package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	singleOpTimeout = 5 * time.Second
	multiOpTimeout  = 10 * time.Second
)

type MongoRepository[T Document] struct {
	collection *mongo.Collection
}

// NewMongoRepository uses the document's collection name unless one is given.
func NewMongoRepository[T Document](db *mongo.Database, collection ...string) *MongoRepository[T] {
	var doc T
	name := doc.GetCollectionName()
	if len(collection) > 0 && collection[0] != "" {
		name = collection[0]
	}
	return &MongoRepository[T]{
		collection: db.Collection(name),
	}
}

func (r *MongoRepository[T]) FindById(ctx context.Context, id string) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, singleOpTimeout)
	defer cancel()

	var result T
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&result)
	return result, err
}

func (r *MongoRepository[T]) Save(ctx context.Context, doc T) error {
	ctx, cancel := context.WithTimeout(ctx, singleOpTimeout)
	defer cancel()
	_, err := r.collection.InsertOne(ctx, doc)
	return err
}

func (r *MongoRepository[T]) SaveOrUpdate(ctx context.Context, doc T) error {
	ctx, cancel := context.WithTimeout(ctx, singleOpTimeout)
	defer cancel()
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": documentID(doc)}, doc, options.Replace().SetUpsert(true))
	return err
}

// SetById applies a $set and returns the document as it is after the update.
// mongo.ErrNoDocuments is returned when id does not resolve.
func (r *MongoRepository[T]) SetById(ctx context.Context, id string, fields bson.M) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, singleOpTimeout)
	defer cancel()

	var result T
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": fields}, opts).Decode(&result)
	return result, err
}

func (r *MongoRepository[T]) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, singleOpTimeout)
	defer cancel()
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (r *MongoRepository[T]) DeleteBy(ctx context.Context, field string, value interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, singleOpTimeout)
	defer cancel()
	_, err := r.collection.DeleteMany(ctx, bson.M{field: value})
	return err
}

// FindAll returns every document, optionally sorted by a single field.
func (r *MongoRepository[T]) FindAll(ctx context.Context, sort ...SortField) ([]T, error) {
	var opts []*options.FindOptions
	if len(sort) > 0 && sort[0].Field != "" {
		direction := 1
		if sort[0].Direction < 0 {
			direction = -1
		}
		opts = append(opts, options.Find().SetSort(bson.D{{Key: sort[0].Field, Value: direction}}))
	}
	return r.find(ctx, bson.M{}, opts...)
}

func (r *MongoRepository[T]) find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]T, error) {
	ctx, cancel := context.WithTimeout(ctx, multiOpTimeout)
	defer cancel()

	cursor, err := r.collection.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	results := []T{}
	if err = cursor.All(ctx, &results); err != nil {
		return nil, err
	}
	return results, nil
}
