// Package seed creates demo posts for development databases, either generated
// with gofakeit or loaded from a YAML fixture file.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"scribe/internal/models"
	"scribe/internal/observability"
	"scribe/internal/repository"

	"github.com/brianvoe/gofakeit/v6"
	"gopkg.in/yaml.v3"
)

// ErrNoFixtures is returned when a fixture file contains no posts.
var ErrNoFixtures = errors.New("fixture file contains no posts")

type fixtureFile struct {
	Posts []models.PostInput `yaml:"posts"`
}

// LoadFixtures decodes a YAML document of the form:
//
//	posts:
//	  - title: Hello
//	    content: "Some *markdown*"
func LoadFixtures(r io.Reader) ([]models.PostInput, error) {
	var file fixtureFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoFixtures
		}
		return nil, fmt.Errorf("decode fixtures: %w", err)
	}
	if len(file.Posts) == 0 {
		return nil, ErrNoFixtures
	}
	return file.Posts, nil
}

// Generate builds n posts with fake content. A zero seed picks a random one.
func Generate(n int, seed int64) []models.PostInput {
	faker := gofakeit.New(seed)

	posts := make([]models.PostInput, 0, n)
	for i := 0; i < n; i++ {
		post := models.PostInput{
			Title:   strings.TrimSuffix(faker.Sentence(faker.Number(3, 7)), "."),
			Content: fakeMarkdown(faker),
		}
		// Most real posts carry a summary; about a third carry a cover image.
		if faker.Number(1, 4) > 1 {
			post.Description = faker.Sentence(12)
		}
		if faker.Number(1, 3) == 1 {
			post.Image = fmt.Sprintf("https://picsum.photos/seed/%s/800/450", faker.UUID())
		}
		posts = append(posts, post)
	}
	return posts
}

func fakeMarkdown(faker *gofakeit.Faker) string {
	var b strings.Builder
	b.WriteString(faker.Paragraph(1, 3, 12, " "))
	b.WriteString("\n\n## ")
	b.WriteString(strings.TrimSuffix(faker.Sentence(3), "."))
	b.WriteString("\n\n")
	for i := 0; i < 3; i++ {
		b.WriteString("- ")
		b.WriteString(faker.HackerPhrase())
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(faker.Paragraph(1, 4, 14, " "))
	if faker.Bool() {
		b.WriteString("\n\n```go\nfmt.Println(\"")
		b.WriteString(faker.Word())
		b.WriteString("\")\n```\n")
	}
	return b.String()
}

// Seeder persists posts through the regular repository so seeded data obeys the same rules as user input.
type Seeder struct {
	repo repository.PostRepository
}

// NewSeeder creates a Seeder bound to repo.
func NewSeeder(repo repository.PostRepository) *Seeder {
	return &Seeder{repo: repo}
}

// Run creates every post in order and stops at the first failure.
// It returns how many posts were stored.
func (s *Seeder) Run(ctx context.Context, posts []models.PostInput) (int, error) {
	for i, input := range posts {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		if _, err := s.repo.Create(ctx, input); err != nil {
			return i, fmt.Errorf("seed post %d (%q): %w", i+1, input.Title, err)
		}
	}

	observability.Logger.InfoContext(ctx, "seeded posts", slog.Int("count", len(posts)))
	return len(posts), nil
}
