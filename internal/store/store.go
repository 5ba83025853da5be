// Package store implements md2pdf.Store backends for uploaded Markdown files:
// a local directory, process memory, Redis and Google Cloud Storage.
//
// All backends share the id scheme "markdown-<xid>" and report unknown ids
// with md2pdf.ErrNotFound, malformed ids with md2pdf.ErrInvalidInput and
// backend failures with md2pdf.ErrStorageFailure.
package store

import (
	"fmt"
	"regexp"

	"github.com/rs/xid"

	md2pdf "github.com/alnah/go-md2pdf-live"
)

// IDPrefix starts every generated upload id.
const IDPrefix = "markdown-"

// maxIDLength bounds ids used as file, key or object names.
const maxIDLength = 128

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// NewID returns a fresh, sortable upload id.
func NewID() string {
	return IDPrefix + xid.New().String()
}

// ValidateID rejects ids that could escape a directory, key space or bucket
// prefix.
func ValidateID(id string) error {
	if id == "" {
		return md2pdf.ErrMissingSourceID
	}
	if len(id) > maxIDLength || !idPattern.MatchString(id) {
		return fmt.Errorf("%w: %q", md2pdf.ErrInvalidSourceID, id)
	}
	return nil
}

func notFound(id string) error {
	return fmt.Errorf("%w: %s", md2pdf.ErrNotFound, id)
}

func storageFailure(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", md2pdf.ErrStorageFailure, op, err)
}
