package md2pdf

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Page format names accepted by Options.PageFormat (case-insensitive).
const (
	PageFormatA3      = "A3"
	PageFormatA4      = "A4"
	PageFormatA5      = "A5"
	PageFormatLetter  = "Letter"
	PageFormatLegal   = "Legal"
	PageFormatTabloid = "Tabloid"
)

// Defaults applied to unset options.
const (
	DefaultPageFormat = PageFormatA4
	DefaultMargin     = "1in"
)

// paperSize holds portrait dimensions in inches.
type paperSize struct {
	width, height float64
}

var paperSizes = map[string]paperSize{
	"a3":      {11.69, 16.54},
	"a4":      {8.27, 11.69},
	"a5":      {5.83, 8.27},
	"letter":  {8.5, 11},
	"legal":   {8.5, 14},
	"tabloid": {11, 17},
}

// Units accepted in margin lengths, as inches per unit.
var marginUnits = map[string]float64{
	"in": 1,
	"cm": 1 / 2.54,
	"mm": 1 / 25.4,
	"pt": 1.0 / 72,
	"px": 1.0 / 96,
}

// marginPattern matches a non-negative CSS length. A bare number is pixels.
var marginPattern = regexp.MustCompile(`^\s*(\d+(?:\.\d+)?|\.\d+)\s*(in|cm|mm|pt|px)?\s*$`)

// Margins holds per-side CSS lengths such as "1in", "2.5cm" or "72pt".
// Empty sides default to DefaultMargin.
type Margins struct {
	Top    string `json:"top,omitempty"`
	Right  string `json:"right,omitempty"`
	Bottom string `json:"bottom,omitempty"`
	Left   string `json:"left,omitempty"`
}

// Options configures page layout for a single conversion. The zero value is
// valid and yields A4 portrait, 1in margins, backgrounds printed and CSS
// @page sizes honored.
type Options struct {
	PageFormat        string   `json:"pageFormat,omitempty"`
	PrintBackground   *bool    `json:"printBackground,omitempty"`
	Margins           *Margins `json:"margins,omitempty"`
	PreferCSSPageSize *bool    `json:"preferCSSPageSize,omitempty"`
	Landscape         bool     `json:"landscape,omitempty"`
}

// UnmarshalJSON accepts "format" as an alias of "pageFormat" and "margin" as
// an alias of "margins".
func (o *Options) UnmarshalJSON(data []byte) error {
	type plain Options
	var aux struct {
		plain
		Format string   `json:"format"`
		Margin *Margins `json:"margin"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*o = Options(aux.plain)
	if o.PageFormat == "" {
		o.PageFormat = aux.Format
	}
	if o.Margins == nil {
		o.Margins = aux.Margin
	}
	return nil
}

// Validate checks the page format and margins without rendering anything.
func (o Options) Validate() error {
	_, err := o.resolve()
	return err
}

// printOptions is the resolved, engine-neutral form of Options.
// All lengths are in inches.
type printOptions struct {
	PaperWidth        float64
	PaperHeight       float64
	MarginTop         float64
	MarginRight       float64
	MarginBottom      float64
	MarginLeft        float64
	PrintBackground   bool
	PreferCSSPageSize bool
	Landscape         bool
}

// resolve applies defaults and converts lengths to inches.
func (o Options) resolve() (printOptions, error) {
	format := o.PageFormat
	if strings.TrimSpace(format) == "" {
		format = DefaultPageFormat
	}
	size, ok := paperSizes[strings.ToLower(strings.TrimSpace(format))]
	if !ok {
		return printOptions{}, fmt.Errorf("%w: %q (must be A3, A4, A5, Letter, Legal or Tabloid)", ErrInvalidPageFormat, o.PageFormat)
	}

	p := printOptions{
		PaperWidth:        size.width,
		PaperHeight:       size.height,
		PrintBackground:   boolOr(o.PrintBackground, true),
		PreferCSSPageSize: boolOr(o.PreferCSSPageSize, true),
		Landscape:         o.Landscape,
	}

	var m Margins
	if o.Margins != nil {
		m = *o.Margins
	}
	sides := []struct {
		name  string
		value string
		dst   *float64
	}{
		{"top", m.Top, &p.MarginTop},
		{"right", m.Right, &p.MarginRight},
		{"bottom", m.Bottom, &p.MarginBottom},
		{"left", m.Left, &p.MarginLeft},
	}
	for _, side := range sides {
		v, err := parseLength(side.value)
		if err != nil {
			return printOptions{}, fmt.Errorf("%w: %s %v", ErrInvalidMargin, side.name, err)
		}
		*side.dst = v
	}

	// Chrome swaps the paper axes itself in landscape mode.
	width, height := p.PaperWidth, p.PaperHeight
	if p.Landscape {
		width, height = height, width
	}
	if p.MarginLeft+p.MarginRight >= width || p.MarginTop+p.MarginBottom >= height {
		return printOptions{}, fmt.Errorf("%w: margins leave no printable area on %s", ErrInvalidMargin, format)
	}

	return p, nil
}

// parseLength converts a CSS length to inches. Empty means DefaultMargin.
func parseLength(s string) (float64, error) {
	if strings.TrimSpace(s) == "" {
		s = DefaultMargin
	}
	match := marginPattern.FindStringSubmatch(strings.ToLower(s))
	if match == nil {
		return 0, fmt.Errorf("%q (use a length in in, cm, mm, pt or px)", s)
	}
	n, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0, fmt.Errorf("%q: %v", s, err)
	}
	unit := match[2]
	if unit == "" {
		unit = "px"
	}
	return n * marginUnits[unit], nil
}

func boolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}

// SourceKind distinguishes stored uploads from inline text.
type SourceKind int

const (
	SourceUploaded SourceKind = iota
	SourceInline
)

// Source is the Markdown input of a single conversion.
type Source struct {
	Kind SourceKind
	ID   string // SourceUploaded
	Text string // SourceInline
}

// Disposition tells the delivery surface how the artifact is meant to be shown.
type Disposition string

const (
	DispositionAttachment Disposition = "attachment"
	DispositionInline     Disposition = "inline"
)

// MIMETypePDF is the media type of every Artifact.
const MIMETypePDF = "application/pdf"

// Artifact is a rendered PDF. It is produced once and never mutated by the
// Converter; ownership passes to the caller.
type Artifact struct {
	PDF         []byte
	Filename    string
	MIMEType    string
	Disposition Disposition
	// Pages is the page count, or 0 when the PDF could not be inspected.
	Pages int
}

// Len returns the PDF size in bytes.
func (a *Artifact) Len() int {
	return len(a.PDF)
}

// MaterializeRequest converts a stored upload for download.
type MaterializeRequest struct {
	SourceID string  `json:"-"`
	Title    string  `json:"title,omitempty"`
	Options  Options `json:"options,omitempty"`
}

// PreviewRequest converts inline text for display.
type PreviewRequest struct {
	Text    string  `json:"text"`
	Title   string  `json:"title,omitempty"`
	Options Options `json:"options,omitempty"`
}

// StoredFile is an uploaded Markdown file held by a Store.
type StoredFile struct {
	ID         string
	Name       string
	Data       []byte
	Size       int64
	UploadedAt time.Time
}

// Stem returns the original file name without directory or extension.
func (f *StoredFile) Stem() string {
	base := filepath.Base(strings.ReplaceAll(f.Name, `\`, "/"))
	if base == "." || base == "/" {
		return ""
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Store holds uploaded Markdown files.
//
// Get and Delete return an error wrapping ErrNotFound for unknown ids and
// ErrInvalidInput for malformed ids. Implementations must be safe for
// concurrent use.
type Store interface {
	Put(ctx context.Context, data []byte, originalName string) (string, error)
	Get(ctx context.Context, id string) (*StoredFile, error)
	Delete(ctx context.Context, id string) error
}
