// Package database manages connections to the document store and the rate-limit store.
package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"scribe/internal/config"
	"scribe/internal/observability"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Store owns the Mongo client shared by every repository.
// It is opened once at startup and closed on shutdown.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect opens a client for cfg.MongoURI and verifies it with a ping.
// Both steps share cfg.MongoConnectTimeout.
func Connect(ctx context.Context, cfg *config.Config) (*Store, error) {
	if cfg == nil || cfg.MongoURI == "" {
		return nil, config.ErrMissingMongoURI
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.MongoConnectTimeout)
	defer cancel()

	opts := options.Client().
		ApplyURI(cfg.MongoURI).
		SetAppName(observability.ServiceName).
		SetServerSelectionTimeout(cfg.MongoConnectTimeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	observability.Logger.Info("MongoDB connected successfully", "database", cfg.MongoDB)

	return NewStore(client, cfg.MongoDB), nil
}

// NewStore wraps an already connected client.
func NewStore(client *mongo.Client, database string) *Store {
	return &Store{client: client, db: client.Database(database)}
}

// Database returns the application database.
func (s *Store) Database() *mongo.Database {
	return s.db
}

// Ping checks that the primary is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.client == nil {
		return errors.New("mongo client is not initialized")
	}
	return s.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client, waiting at most five seconds for in-flight operations.
func (s *Store) Close(ctx context.Context) error {
	if s == nil || s.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
