// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"errors"
	"time"

	"scribe/internal/models"
	"scribe/internal/observability"
	"scribe/internal/validation"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PostsCollection is the collection holding post documents.
const PostsCollection = "posts"

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, input models.PostInput) (*models.Post, error)
	List(ctx context.Context) ([]*models.Post, error)
	GetByID(ctx context.Context, id string) (*models.Post, error)
}

// postRepository implements PostRepository
type postRepository struct {
	collection *mongo.Collection
	now        func() time.Time
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *mongo.Database) PostRepository {
	return &postRepository{collection: db.Collection(PostsCollection), now: time.Now}
}

// EnsurePostIndexes creates the index backing the list ordering.
func EnsurePostIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(PostsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "createdAt", Value: 1}},
		Options: options.Index().SetName("createdAt_1"),
	})
	return err
}

func (r *postRepository) Create(ctx context.Context, input models.PostInput) (post *models.Post, err error) {
	ctx, span := observability.StartStoreSpan(ctx, "Create", PostsCollection)
	defer func() { observability.EndSpan(span, err) }()

	input, err = validation.Post(input)
	if err != nil {
		return nil, err
	}

	post = models.NewPost(input, r.now())
	if _, err = r.collection.InsertOne(ctx, post); err != nil {
		logStoreError(ctx, "create", err)
		return nil, models.NewStoreError("Error saving post", err)
	}

	return post, nil
}

func (r *postRepository) List(ctx context.Context) (posts []*models.Post, err error) {
	ctx, span := observability.StartStoreSpan(ctx, "List", PostsCollection)
	defer func() { observability.EndSpan(span, err) }()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		logStoreError(ctx, "list", err)
		return nil, models.NewStoreError("Error loading posts", err)
	}
	defer cursor.Close(ctx)

	posts = make([]*models.Post, 0)
	if err = cursor.All(ctx, &posts); err != nil {
		logStoreError(ctx, "list", err)
		return nil, models.NewStoreError("Error loading posts", err)
	}

	return posts, nil
}

func (r *postRepository) GetByID(ctx context.Context, id string) (post *models.Post, err error) {
	ctx, span := observability.StartStoreSpan(ctx, "GetByID", PostsCollection)
	defer func() { observability.EndSpan(span, err) }()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, models.NewInvalidIDError(id)
	}

	post = &models.Post{}
	if err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(post); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.NewNotFoundError("Post", id)
		}
		logStoreError(ctx, "get", err)
		return nil, models.NewStoreError("Error loading post", err)
	}

	return post, nil
}

func logStoreError(ctx context.Context, operation string, err error) {
	observability.Logger.ErrorContext(ctx, "repository error",
		"collection", PostsCollection,
		"operation", operation,
		"error", err,
	)
}
