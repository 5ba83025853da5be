// Package yamlutil reads and writes md2pdf config documents.
//
// Decoding overlays a document onto a pre-filled value, so a config file only
// lists the settings it changes. Keys the target does not declare are errors
// quoting the offending line: a misspelled "maxConcurent" fails loudly.
package yamlutil

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/goccy/go-yaml"
)

// MaxDocumentSize bounds a config document in bytes.
var MaxDocumentSize = 64 << 10

var (
	ErrEmptyDocument    = errors.New("empty config document")
	ErrDocumentTooLarge = errors.New("config document too large")
	ErrInvalidDocument  = errors.New("invalid config document")
)

// Decode overlays data onto dst, a non-nil pointer usually holding defaults.
func Decode(data []byte, dst any) error {
	switch {
	case dst == nil:
		return fmt.Errorf("%w: nil destination", ErrInvalidDocument)
	case len(data) > MaxDocumentSize:
		return fmt.Errorf("%w: %d bytes, limit %d", ErrDocumentTooLarge, len(data), MaxDocumentSize)
	case len(bytes.TrimSpace(data)) == 0:
		return ErrEmptyDocument
	}

	if err := yaml.UnmarshalWithOptions(data, dst, yaml.Strict()); err != nil {
		return fmt.Errorf("%w:\n%s", ErrInvalidDocument, yaml.FormatError(err, false, true))
	}
	return nil
}

// Encode renders v the way config files are written by hand: block style,
// indented sequences.
func Encode(v any) ([]byte, error) {
	out, err := yaml.MarshalWithOptions(v, yaml.IndentSequence(true), yaml.UseLiteralStyleIfMultiline(true))
	if err != nil {
		return nil, fmt.Errorf("encoding config document: %w", err)
	}
	return out, nil
}
