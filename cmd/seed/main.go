// Command seed fills the configured MongoDB database with demo posts.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"scribe/internal/config"
	"scribe/internal/database"
	"scribe/internal/models"
	"scribe/internal/observability"
	"scribe/internal/repository"
	"scribe/internal/seed"
)

func main() {
	numPosts := flag.Int("posts", 20, "Number of posts to generate")
	fixtures := flag.String("file", "", "YAML fixture file to load instead of generating posts")
	fakerSeed := flag.Int64("seed", 0, "Seed for generated content (0 picks a random seed)")
	flag.Parse()

	os.Exit(run(*numPosts, *fixtures, *fakerSeed))
}

func run(numPosts int, fixtures string, fakerSeed int64) int {
	cfg, err := config.LoadConfig()
	if err != nil {
		observability.Logger.Error("Failed to load configuration", slog.String("error", err.Error()))
		return 1
	}
	logger := observability.InitLogger(cfg.Env, cfg.LogLevel)

	posts, err := loadPosts(numPosts, fixtures, fakerSeed)
	if err != nil {
		logger.Error("Failed to prepare posts", slog.String("error", err.Error()))
		return 1
	}

	ctx := context.Background()
	store, err := database.Connect(ctx, cfg)
	if err != nil {
		logger.Error("Failed to connect to database", slog.String("error", err.Error()))
		return 1
	}
	defer func() { _ = store.Close(context.Background()) }()

	if err := repository.EnsurePostIndexes(ctx, store.Database()); err != nil {
		logger.Warn("failed to ensure post indexes", slog.String("error", err.Error()))
	}

	n, err := seed.NewSeeder(repository.NewPostRepository(store.Database())).Run(ctx, posts)
	if err != nil {
		logger.Error("Seeding failed", slog.Int("created", n), slog.String("error", err.Error()))
		return 1
	}

	logger.Info("Seeding complete", slog.Int("created", n), slog.String("database", cfg.MongoDB))
	return 0
}

func loadPosts(numPosts int, fixtures string, fakerSeed int64) ([]models.PostInput, error) {
	if fixtures == "" {
		return seed.Generate(numPosts, fakerSeed), nil
	}

	f, err := os.Open(fixtures)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	return seed.LoadFixtures(f)
}
