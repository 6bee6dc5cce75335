// Package markdown renders post bodies to HTML and derives plain-text excerpts.
package markdown

import (
	stdhtml "html"
	"html/template"
	"io"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	md "github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/ast"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

const lastGoodBreakRatio = 0.8

var (
	markdownCodeBlockPattern      = regexp.MustCompile("(?s)```.*?```")
	markdownImagePattern          = regexp.MustCompile(`!\[.*?\]\(.*?\)`)
	markdownHorizontalRulePattern = regexp.MustCompile(`(?m)^---+$`)
	markdownBoldPattern           = regexp.MustCompile(`\*\*(.*?)\*\*`)
	markdownItalicPattern         = regexp.MustCompile(`[*_](.*?)[*_]`)
	markdownHeadingPattern        = regexp.MustCompile(`(?m)^#{1,6}\s+(.*?)$`)
	markdownInlineCodePattern     = regexp.MustCompile("`(.*?)`")
	markdownLinkPattern           = regexp.MustCompile(`\[(.*?)\]\(.*?\)`)
	markdownBlockquotePattern     = regexp.MustCompile(`(?m)^\s*>\s*(.*?)$`)
	markdownListPattern           = regexp.MustCompile(`(?m)^\s*(?:[-*+]|\d+\.)\s+`)
	htmlTagPattern                = regexp.MustCompile(`<[^>]*>`)
)

// ToHTML renders markdown to HTML. Raw HTML in the source is dropped and
// fenced code blocks are highlighted with chroma CSS classes.
func ToHTML(input string) template.HTML {
	if strings.TrimSpace(input) == "" {
		return template.HTML("")
	}

	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	doc := p.Parse([]byte(input))
	sanitizeLinks(doc)

	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{
		Flags:          mdhtml.CommonFlags | mdhtml.SkipHTML,
		RenderNodeHook: renderNodeHook,
	})

	return template.HTML(md.Render(doc, renderer))
}

// Excerpt returns at most maxChars runes of plain text, cut on a word boundary when possible.
func Excerpt(input string, maxChars int) string {
	if maxChars < 1 {
		return ""
	}

	clean := toPlainText(input)
	if clean == "" {
		return ""
	}

	if utf8.RuneCountInString(clean) <= maxChars {
		return clean
	}

	return truncateRunes(clean, maxChars)
}

func toPlainText(markdown string) string {
	text := markdown
	text = markdownCodeBlockPattern.ReplaceAllString(text, " ")
	text = markdownImagePattern.ReplaceAllString(text, " ")
	text = markdownHorizontalRulePattern.ReplaceAllString(text, " ")
	text = markdownBoldPattern.ReplaceAllString(text, "$1")
	text = markdownItalicPattern.ReplaceAllString(text, "$1")
	text = markdownHeadingPattern.ReplaceAllString(text, "\n$1\n")
	text = markdownInlineCodePattern.ReplaceAllString(text, "$1")
	text = markdownLinkPattern.ReplaceAllString(text, "$1")
	text = markdownBlockquotePattern.ReplaceAllString(text, "$1")
	text = markdownListPattern.ReplaceAllString(text, "")
	text = htmlTagPattern.ReplaceAllString(text, "")

	return strings.Join(strings.Fields(text), " ")
}

func truncateRunes(text string, maxChars int) string {
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}

	truncateAt := maxChars
	minBreak := int(float64(maxChars) * lastGoodBreakRatio)
	for idx := maxChars - 1; idx >= minBreak; idx-- {
		if unicode.IsSpace(runes[idx]) {
			truncateAt = idx
			break
		}
	}

	truncated := strings.TrimSpace(string(runes[:truncateAt]))
	if truncated == "" {
		truncated = strings.TrimSpace(string(runes[:maxChars]))
	}

	return truncated + "..."
}

// sanitizeLinks neutralizes link and image destinations with a scheme other than
// http, https or mailto. Absolute http(s) links open in a new tab without
// leaking the referrer.
func sanitizeLinks(doc ast.Node) {
	ast.WalkFunc(doc, func(node ast.Node, entering bool) ast.WalkStatus {
		if !entering {
			return ast.GoToNext
		}

		switch n := node.(type) {
		case *ast.Image:
			if !isSafeDestination(n.Destination) {
				n.Destination = nil
			}
		case *ast.Link:
			if !isSafeDestination(n.Destination) {
				n.Destination = []byte("#")
				return ast.GoToNext
			}
			href := strings.ToLower(string(n.Destination))
			if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
				n.AdditionalAttributes = append(n.AdditionalAttributes,
					`target="_blank"`, `rel="nofollow noopener noreferrer"`)
			}
		}
		return ast.GoToNext
	})
}

// isSafeDestination allows relative references and the http, https and mailto schemes.
// Whitespace and control characters are ignored, as browsers do when resolving a scheme.
func isSafeDestination(dest []byte) bool {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return -1
		}
		return r
	}, strings.ToLower(string(dest)))

	colon := strings.IndexByte(cleaned, ':')
	if colon < 0 {
		return true
	}
	// A colon after a path, query or fragment separator is not a scheme.
	if sep := strings.IndexAny(cleaned, "/?#"); sep >= 0 && sep < colon {
		return true
	}

	switch cleaned[:colon] {
	case "http", "https", "mailto":
		return true
	default:
		return false
	}
}

func renderNodeHook(writer io.Writer, node ast.Node, entering bool) (ast.WalkStatus, bool) {
	if !entering {
		return ast.GoToNext, false
	}

	switch typedNode := node.(type) {
	case *ast.CodeBlock:
		renderCodeBlock(writer, typedNode)
		return ast.SkipChildren, true
	case *ast.Code:
		_, _ = io.WriteString(writer, `<code class="inline-code">`)
		_, _ = io.WriteString(writer, stdhtml.EscapeString(string(typedNode.Literal)))
		_, _ = io.WriteString(writer, `</code>`)
		return ast.SkipChildren, true
	default:
		return ast.GoToNext, false
	}
}

func renderCodeBlock(writer io.Writer, block *ast.CodeBlock) {
	code := string(block.Literal)
	lexer := pickLexer(codeLanguage(block.Info), code)
	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		renderPlainCodeBlock(writer, code)
		return
	}

	formatter := chromahtml.New(chromahtml.WithClasses(true))
	if err := formatter.Format(writer, styles.Fallback, iterator); err != nil {
		renderPlainCodeBlock(writer, code)
	}
}

func renderPlainCodeBlock(writer io.Writer, code string) {
	_, _ = io.WriteString(writer, `<pre class="chroma"><code>`)
	_, _ = io.WriteString(writer, stdhtml.EscapeString(code))
	_, _ = io.WriteString(writer, `</code></pre>`)
}

func pickLexer(language string, code string) chroma.Lexer {
	if language != "" {
		if lexer := lexers.Get(language); lexer != nil {
			return lexer
		}
	}
	if lexer := lexers.Analyse(code); lexer != nil {
		return lexer
	}
	return lexers.Fallback
}

func codeLanguage(info []byte) string {
	fields := strings.Fields(string(info))
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(fields[0])
}
