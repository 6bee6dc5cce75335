package server

import (
	"log/slog"

	"scribe/internal/models"
	"scribe/internal/observability"

	"github.com/gofiber/fiber/v2"
)

// Home handles GET /
func (s *Server) Home(c *fiber.Ctx) error {
	posts, err := s.postRepo.List(c.UserContext())
	if err != nil {
		return sendText(c, fiber.StatusInternalServerError, "Error loading posts")
	}

	return c.Render("index", fiber.Map{
		"posts":         posts,
		"excerptLength": excerptLength,
	})
}

// NewPostForm handles GET /new-post
func (s *Server) NewPostForm(c *fiber.Ctx) error {
	return c.Render("newpost", fiber.Map{
		"title": "New post",
	})
}

// SubmitNewPost handles POST /new-post. Every failure, including invalid
// input, is reported as 400 with the same message.
func (s *Server) SubmitNewPost(c *fiber.Ctx) error {
	var input models.PostInput
	if err := c.BodyParser(&input); err != nil {
		observability.Logger.InfoContext(c.UserContext(), "rejected new post form", slog.String("error", err.Error()))
		return sendText(c, fiber.StatusBadRequest, "Error saving post")
	}

	if _, err := s.postRepo.Create(c.UserContext(), input); err != nil {
		if models.HasCode(err, models.CodeValidation) {
			observability.Logger.InfoContext(c.UserContext(), "rejected new post form", slog.String("error", err.Error()))
		}
		return sendText(c, fiber.StatusBadRequest, "Error saving post")
	}

	observability.PostsCreated.WithLabelValues("form").Inc()

	return c.Redirect("/", fiber.StatusFound)
}

// ShowPost handles GET /post/:id
func (s *Server) ShowPost(c *fiber.Ctx) error {
	post, err := s.postRepo.GetByID(c.UserContext(), c.Params("id"))
	switch {
	case models.HasCode(err, models.CodeNotFound):
		return sendText(c, fiber.StatusNotFound, "Post not found")
	case err != nil:
		return sendText(c, fiber.StatusInternalServerError, "Error loading post")
	}

	return c.Render("post", fiber.Map{
		"title": post.Title,
		"post":  post,
	})
}
