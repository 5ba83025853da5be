// Package assets provides the style sheet and HTML template used to turn a
// rendered Markdown fragment into a printable document.
//
// Assets are embedded at compile time. Nothing they reference may require a
// network fetch, since the browser loads the page from a local file.
//
// # Directory Structure
//
//	styles/
//	└── {name}.css           # CSS styles (e.g., document.css)
//	templates/
//	└── {name}.html          # html/template documents (e.g., document.html)
//
// # Names
//
// Names are a single path element of letters, digits, '-' and '_'. Anything
// else, including an extension, fails with ErrInvalidAssetName.
package assets
