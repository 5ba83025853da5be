package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"strings"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/styles"

	"github.com/alnah/go-md2pdf-live/internal/assets"
)

// Sentinel errors for document templating.
var (
	ErrTemplateLoad   = errors.New("failed to load document template")
	ErrTemplateRender = errors.New("failed to render document template")
)

// DefaultTitle is used when no title is supplied.
const DefaultTitle = "Markdown Document"

// documentData is the data passed to the document template.
type documentData struct {
	Title string
	CSS   template.CSS
	Body  template.HTML
}

// Templater wraps an HTML fragment in a complete HTML5 document.
type Templater struct {
	tmpl *template.Template
	css  template.CSS
}

// NewTemplater creates a Templater from the embedded document template and
// style sheet. The chroma class style sheet is appended to the base style.
func NewTemplater() (*Templater, error) {
	return newTemplater(assets.NewEmbeddedLoader())
}

func newTemplater(loader assets.Loader) (*Templater, error) {
	doc, err := assets.Load(loader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemplateLoad, err)
	}
	tmpl, err := template.New(assets.DefaultTemplateName).Parse(doc.Template)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemplateLoad, err)
	}

	var css strings.Builder
	css.WriteString(doc.Style)
	css.WriteString("\n/* Code highlighting */\n")
	formatter := chromahtml.New(chromahtml.WithClasses(true))
	if err := formatter.WriteCSS(&css, styles.Get(HighlightStyle)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemplateLoad, err)
	}

	return &Templater{
		tmpl: tmpl,
		css:  template.CSS(css.String()), // #nosec G203 -- embedded asset, not user input
	}, nil
}

// Apply renders a complete HTML document with the given title and sanitized
// fragment. An empty or whitespace-only title falls back to DefaultTitle.
func (t *Templater) Apply(ctx context.Context, title, fragment string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	title = strings.TrimSpace(title)
	if title == "" {
		title = DefaultTitle
	}

	var buf bytes.Buffer
	err := t.tmpl.Execute(&buf, documentData{
		Title: title,
		CSS:   t.css,
		Body:  template.HTML(fragment), // #nosec G203 -- sanitized by GoldmarkRenderer
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTemplateRender, err)
	}
	return buf.String(), nil
}
