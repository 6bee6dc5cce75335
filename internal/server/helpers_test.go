package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sort"
	"sync"
	"testing"
	"time"

	"scribe/internal/config"
	"scribe/internal/models"
	"scribe/internal/repository"
	"scribe/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// memoryPostRepository keeps posts in memory and applies the same input rules as the Mongo adapter.
type memoryPostRepository struct {
	mu    sync.Mutex
	posts map[primitive.ObjectID]*models.Post
	clock time.Time
}

func newMemoryPostRepository() *memoryPostRepository {
	return &memoryPostRepository{
		posts: make(map[primitive.ObjectID]*models.Post),
		clock: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (r *memoryPostRepository) Create(_ context.Context, input models.PostInput) (*models.Post, error) {
	input, err := validation.Post(input)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.clock = r.clock.Add(time.Second)
	post := models.NewPost(input, r.clock)
	r.posts[post.ID] = post
	return post, nil
}

func (r *memoryPostRepository) List(context.Context) ([]*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	posts := make([]*models.Post, 0, len(r.posts))
	for _, p := range r.posts {
		posts = append(posts, p)
	}
	sort.Slice(posts, func(i, j int) bool { return posts[i].CreatedAt.Before(posts[j].CreatedAt) })
	return posts, nil
}

func (r *memoryPostRepository) GetByID(_ context.Context, id string) (*models.Post, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, models.NewInvalidIDError(id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	post, ok := r.posts[oid]
	if !ok {
		return nil, models.NewNotFoundError("Post", id)
	}
	return post, nil
}

func (r *memoryPostRepository) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.posts)
}

// mockPostRepository is a mock of the PostRepository interface
type mockPostRepository struct {
	mock.Mock
}

func (m *mockPostRepository) Create(ctx context.Context, input models.PostInput) (*models.Post, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Post), args.Error(1)
}

func (m *mockPostRepository) List(ctx context.Context) ([]*models.Post, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Post), args.Error(1)
}

func (m *mockPostRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Post), args.Error(1)
}

type stubStore struct {
	pingErr error
	closed  bool
}

func (s *stubStore) Ping(context.Context) error { return s.pingErr }

func (s *stubStore) Close(context.Context) error {
	s.closed = true
	return nil
}

var errStoreDown = errors.New("server selection error: connection refused")

func testConfig() *config.Config {
	return &config.Config{
		Port:            "5000",
		Env:             "test",
		AllowedOrigins:  "*",
		CreateRateLimit: 10,
	}
}

type testDeps struct {
	cfg   *config.Config
	store *stubStore
	redis *redis.Client
}

func newTestApp(t *testing.T, repo repository.PostRepository, opts ...func(*testDeps)) (*fiber.App, *Server) {
	t.Helper()

	deps := &testDeps{cfg: testConfig(), store: &stubStore{}}
	for _, opt := range opts {
		opt(deps)
	}

	s := NewServerWithDeps(deps.cfg, deps.store, repo, deps.redis)
	return s.NewApp(), s
}

func doRequest(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, string) {
	t.Helper()
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()
	return resp, string(body)
}
