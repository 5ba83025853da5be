package assets

import (
	"errors"
	"fmt"
)

// Sentinel errors for asset lookups.
var (
	ErrStyleNotFound    = errors.New("style not found")
	ErrTemplateNotFound = errors.New("template not found")
	ErrInvalidAssetName = errors.New("invalid asset name")
)

// Names of the built-in assets.
const (
	DefaultStyleName    = "document"
	DefaultTemplateName = "document"
)

// Loader resolves styles and templates by bare name, without extension.
type Loader interface {
	LoadStyle(name string) (string, error)
	LoadTemplate(name string) (string, error)
}

// Document is the raw material of the printable page: an html/template
// source expecting Title, CSS and Body, plus its base style sheet.
type Document struct {
	Template string
	Style    string
}

// Load fetches the default document template and style from l.
func Load(l Loader) (Document, error) {
	tmpl, err := l.LoadTemplate(DefaultTemplateName)
	if err != nil {
		return Document{}, fmt.Errorf("loading template: %w", err)
	}
	style, err := l.LoadStyle(DefaultStyleName)
	if err != nil {
		return Document{}, fmt.Errorf("loading style: %w", err)
	}
	return Document{Template: tmpl, Style: style}, nil
}
