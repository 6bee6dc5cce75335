package server

import (
	"net/http"
	"time"

	"scribe/internal/markdown"
	"scribe/web"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/html/v2"
)

const excerptLength = 200

func newViewEngine() *html.Engine {
	engine := html.NewFileSystem(http.FS(web.Views()), ".html")
	for name, fn := range templateFuncs() {
		engine.AddFunc(name, fn)
	}
	return engine
}

func templateFuncs() map[string]any {
	return map[string]any{
		"markdown":  markdown.ToHTML,
		"excerpt":   markdown.Excerpt,
		"chromaCSS": markdown.ChromaCSS,
		"date":      formatDate,
		"isoDate":   isoDate,
	}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("January 2, 2006")
}

func isoDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func sendText(c *fiber.Ctx, status int, message string) error {
	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return c.Status(status).SendString(message)
}
