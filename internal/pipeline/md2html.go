package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"
)

// ErrHTMLConversion indicates Markdown to HTML conversion failed.
var ErrHTMLConversion = errors.New("HTML conversion failed")

// HighlightStyle is the chroma style used for code block classes.
const HighlightStyle = "github"

var (
	// classPattern limits class attributes to chroma tokens and language markers.
	classPattern = regexp.MustCompile(`^[A-Za-z0-9 _-]+$`)

	// languagePattern strips anything that could break out of a class attribute.
	languagePattern = regexp.MustCompile(`[^A-Za-z0-9_+-]`)
)

// MarkdownRenderer abstracts Markdown to HTML fragment conversion.
type MarkdownRenderer interface {
	Render(ctx context.Context, content string) (string, error)
}

// GoldmarkRenderer converts Markdown to a sanitized HTML fragment using
// goldmark (pure Go) and bluemonday.
type GoldmarkRenderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// NewGoldmarkRenderer creates a GoldmarkRenderer with GFM extensions, footnotes
// and class-based syntax highlighting.
func NewGoldmarkRenderer() *GoldmarkRenderer {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,      // Tables, strikethrough, autolinks, task lists
			extension.Footnote, // [^1] footnotes
			highlighting.NewHighlighting(
				highlighting.WithStyle(HighlightStyle),
				highlighting.WithFormatOptions(
					chromahtml.WithClasses(true),
				),
				highlighting.WithWrapperRenderer(wrapCodeBlock),
			),
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
			html.WithXHTML(),
			// WithUnsafe is not set: raw HTML in the source is omitted.
		),
	)
	return &GoldmarkRenderer{md: md, policy: newPolicy()}
}

// newPolicy extends the UGC policy with the markup the renderer itself emits.
func newPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class").Matching(classPattern).OnElements("span", "pre", "code", "div")
	p.AllowAttrs("type").Matching(regexp.MustCompile(`^checkbox$`)).OnElements("input")
	p.AllowAttrs("checked", "disabled").OnElements("input")
	return p
}

// wrapCodeBlock wraps every fenced code block in a div tagged with its language.
func wrapCodeBlock(w util.BufWriter, c highlighting.CodeBlockContext, entering bool) {
	if !entering {
		_, _ = w.WriteString("</div>\n")
		return
	}

	class := "highlight"
	if lang, ok := c.Language(); ok {
		if name := languagePattern.ReplaceAllString(string(lang), ""); name != "" {
			class += " language-" + name
		}
	}
	_, _ = w.WriteString(`<div class="` + class + `">`)
}

// Render converts Markdown content to a sanitized HTML fragment.
// Supports context cancellation via goroutine + select pattern since
// goldmark doesn't natively support context.
func (r *GoldmarkRenderer) Render(ctx context.Context, content string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	type result struct {
		html string
		err  error
	}

	done := make(chan result, 1)

	go func() {
		var buf bytes.Buffer
		if err := r.md.Convert([]byte(normalizeLineEndings(content)), &buf); err != nil {
			done <- result{err: fmt.Errorf("%w: %v", ErrHTMLConversion, err)}
			return
		}
		done <- result{html: string(r.policy.SanitizeBytes(buf.Bytes()))}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-done:
		return res.html, res.err
	}
}

// Compile-time interface check.
var _ MarkdownRenderer = (*GoldmarkRenderer)(nil)

// normalizeLineEndings rewrites \r\n and lone \r as \n.
func normalizeLineEndings(content string) string {
	return strings.ReplaceAll(strings.ReplaceAll(content, "\r\n", "\n"), "\r", "\n")
}
