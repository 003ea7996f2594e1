package repository

import (
	"context"
	"errors"
	"time"

	"github.com/klass-lk/inkpost/internal/model"
	"github.com/klass-lk/inkpost/internal/store"
	pkgerrors "github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type MongoPostRepository struct {
	*store.MongoRepository[model.Post]
	now func() time.Time
}

func NewMongoPostRepository(database *mongo.Database) *MongoPostRepository {
	return &MongoPostRepository{
		MongoRepository: store.NewMongoRepository[model.Post](database, "posts"),
		now:             model.Now,
	}
}

func (r *MongoPostRepository) Create(ctx context.Context, fields model.PostFields) (model.Post, error) {
	now := r.now()
	post := model.Post{
		ID:        primitive.NewObjectID().Hex(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	fields.Apply(&post)

	if err := r.Save(ctx, post); err != nil {
		return model.Post{}, mongoError(err)
	}
	return post, nil
}

func (r *MongoPostRepository) UpdateByID(ctx context.Context, id string, fields model.PostFields) (model.Post, error) {
	var changes model.Post
	fields.Apply(&changes)

	post, err := r.SetById(ctx, id, bson.M{
		"title":      changes.Title,
		"content":    changes.Content,
		"tags":       changes.Tags,
		"status":     changes.Status,
		"updated_at": r.now(),
	})
	if err != nil {
		return model.Post{}, mongoError(err)
	}
	return post, nil
}

func (r *MongoPostRepository) GetByID(ctx context.Context, id string) (model.Post, error) {
	post, err := r.FindById(ctx, id)
	if err != nil {
		return model.Post{}, mongoError(err)
	}
	return post, nil
}

func (r *MongoPostRepository) ListAll(ctx context.Context) ([]model.Post, error) {
	posts, err := r.FindAll(ctx, store.SortField{Field: "updated_at", Direction: -1})
	if err != nil {
		return nil, mongoError(err)
	}
	return posts, nil
}

func mongoError(err error) error {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrPostNotFound
	case mongo.IsNetworkError(err), mongo.IsTimeout(err), errors.Is(err, mongo.ErrClientDisconnected):
		return pkgerrors.WithStack(unavailable(err))
	default:
		return pkgerrors.WithStack(err)
	}
}
