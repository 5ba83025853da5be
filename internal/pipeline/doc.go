// Package pipeline turns Markdown into a printable HTML document.
//
// The pipeline has two pure stages:
//   - MarkdownRenderer: Markdown text to a sanitized HTML fragment (goldmark,
//     chroma highlighting, bluemonday sanitization)
//   - Templater: fragment and title to a complete HTML5 document using the
//     embedded style sheet and template from internal/assets
//
// Both stages are deterministic: the same input always yields the same bytes.
// PDF generation happens in the root md2pdf package, which hands the templated
// document to a headless browser.
package pipeline
