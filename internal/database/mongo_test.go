package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"scribe/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnect_RequiresURI(t *testing.T) {
	store, err := Connect(context.Background(), &config.Config{MongoConnectTimeout: time.Second})
	require.Error(t, err)
	assert.Nil(t, store)
	assert.True(t, errors.Is(err, config.ErrMissingMongoURI))
}

func TestConnect_UnreachableServerFails(t *testing.T) {
	cfg := &config.Config{
		MongoURI:            "mongodb://127.0.0.1:1/?connect=direct",
		MongoDB:             "blog",
		MongoConnectTimeout: 300 * time.Millisecond,
	}

	start := time.Now()
	store, err := Connect(context.Background(), cfg)
	require.Error(t, err)
	assert.Nil(t, store)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestStore_NilSafe(t *testing.T) {
	var s *Store
	assert.Error(t, s.Ping(context.Background()))
	assert.NoError(t, s.Close(context.Background()))
}
