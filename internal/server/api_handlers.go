package server

import (
	"scribe/internal/models"
	"scribe/internal/observability"

	"github.com/gofiber/fiber/v2"
)

// ListPosts handles GET /api/posts
func (s *Server) ListPosts(c *fiber.Ctx) error {
	posts, err := s.postRepo.List(c.UserContext())
	if err != nil {
		return models.RespondWithError(c, models.StatusFor(err), err)
	}

	return c.JSON(posts)
}

// GetPost handles GET /api/posts/:id
func (s *Server) GetPost(c *fiber.Ctx) error {
	id := c.Params("id")

	post, err := s.postRepo.GetByID(c.UserContext(), id)
	if err != nil {
		// Malformed ids are reported exactly like unknown ones.
		if models.HasCode(err, models.CodeInvalidID) {
			err = models.NewNotFoundError("Post", id)
		}
		return models.RespondWithError(c, models.StatusFor(err), err)
	}

	return c.JSON(post)
}

// CreatePost handles POST /api/posts
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var input models.PostInput
	if err := c.BodyParser(&input); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body", nil))
	}

	post, err := s.postRepo.Create(c.UserContext(), input)
	if err != nil {
		return models.RespondWithError(c, models.StatusFor(err), err)
	}

	observability.PostsCreated.WithLabelValues("api").Inc()

	return c.Status(fiber.StatusCreated).JSON(post)
}
