package md2pdf

import (
	"strings"
	"unicode"
)

// Fallback names used when a title yields no usable filename.
const (
	previewFilename = "preview.pdf"
	fallbackPrefix  = "markdown_"
)

// SanitizeFilename turns a title into a filename stem: characters other than
// letters, digits, spaces, hyphens and underscores are dropped, then runs of
// whitespace collapse to a single underscore. Returns "" when nothing remains.
func SanitizeFilename(title string) string {
	var kept strings.Builder
	for _, r := range title {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' || unicode.IsSpace(r) {
			kept.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(kept.String()), "_")
}

// filenameFor derives the artifact filename. title is the explicit or
// derived title; an empty title means none was available.
func filenameFor(src Source, title string) string {
	if stem := SanitizeFilename(title); stem != "" {
		return stem + ".pdf"
	}
	if src.Kind == SourceInline {
		return previewFilename
	}
	return fallbackPrefix + src.ID + ".pdf"
}
