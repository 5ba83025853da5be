package md2pdf

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by Converter wraps at most one of these;
// use KindOf to classify an error chain.
var (
	ErrInvalidInput           = errors.New("invalid input")
	ErrNotFound               = errors.New("not found")
	ErrRendererUnavailable    = errors.New("renderer unavailable")
	ErrRenderTimeout          = errors.New("render timed out")
	ErrRenderProducedNoOutput = errors.New("render produced no output")
	ErrStorageFailure         = errors.New("storage failure")
)

// Input validation errors.
var (
	ErrEmptyContent      = fmt.Errorf("%w: content cannot be empty", ErrInvalidInput)
	ErrContentTooLarge   = fmt.Errorf("%w: content too large", ErrInvalidInput)
	ErrInvalidEncoding   = fmt.Errorf("%w: content is not valid UTF-8", ErrInvalidInput)
	ErrMissingSourceID   = fmt.Errorf("%w: file id is required", ErrInvalidInput)
	ErrInvalidSourceID   = fmt.Errorf("%w: invalid file id", ErrInvalidInput)
	ErrInvalidPageFormat = fmt.Errorf("%w: invalid page format", ErrInvalidInput)
	ErrInvalidMargin     = fmt.Errorf("%w: invalid margin", ErrInvalidInput)
	ErrInvalidEngine     = fmt.Errorf("%w: invalid renderer engine", ErrInvalidInput)
)

// Renderer errors.
var (
	ErrBrowserLaunch = fmt.Errorf("%w: failed to launch browser", ErrRendererUnavailable)
	ErrPageLoad      = fmt.Errorf("%w: failed to load page", ErrRendererUnavailable)
	ErrPDFGeneration = fmt.Errorf("%w: PDF generation failed", ErrRendererUnavailable)
)

// Kind classifies a conversion failure.
type Kind int

// Kinds in order of declaration. KindInternal covers errors that carry no
// kind sentinel (panics, cancellation, programmer errors).
const (
	KindInternal Kind = iota
	KindInvalidInput
	KindNotFound
	KindRendererUnavailable
	KindRenderTimeout
	KindRenderProducedNoOutput
	KindStorageFailure
)

var kindNames = map[Kind]string{
	KindInternal:               "Internal",
	KindInvalidInput:           "InvalidInput",
	KindNotFound:               "NotFound",
	KindRendererUnavailable:    "RendererUnavailable",
	KindRenderTimeout:          "RenderTimeout",
	KindRenderProducedNoOutput: "RenderProducedNoOutput",
	KindStorageFailure:         "StorageFailure",
}

var kindMessages = map[Kind]string{
	KindInternal:               "Something went wrong",
	KindInvalidInput:           "Invalid request",
	KindNotFound:               "File not found. Please upload the file first.",
	KindRendererUnavailable:    "PDF renderer is unavailable",
	KindRenderTimeout:          "PDF rendering took too long",
	KindRenderProducedNoOutput: "PDF rendering produced no output",
	KindStorageFailure:         "File storage failed",
}

var kindSentinels = map[Kind]error{
	KindInvalidInput:           ErrInvalidInput,
	KindNotFound:               ErrNotFound,
	KindRendererUnavailable:    ErrRendererUnavailable,
	KindRenderTimeout:          ErrRenderTimeout,
	KindRenderProducedNoOutput: ErrRenderProducedNoOutput,
	KindStorageFailure:         ErrStorageFailure,
}

// String returns the kind name used on the wire.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return kindNames[KindInternal]
}

// PublicMessage returns a message safe to show to end users.
func (k Kind) PublicMessage() string {
	if msg, ok := kindMessages[k]; ok {
		return msg
	}
	return kindMessages[KindInternal]
}

// Sentinel returns the sentinel error for the kind, or nil for KindInternal.
func (k Kind) Sentinel() error {
	return kindSentinels[k]
}

// ParseKind maps a wire name back to a Kind. Unknown names yield KindInternal.
func ParseKind(name string) Kind {
	for k, n := range kindNames {
		if n == name {
			return k
		}
	}
	return KindInternal
}

// KindOf reports the kind of the first kind sentinel found in err's chain.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrRenderTimeout):
		return KindRenderTimeout
	case errors.Is(err, ErrRenderProducedNoOutput):
		return KindRenderProducedNoOutput
	case errors.Is(err, ErrRendererUnavailable):
		return KindRendererUnavailable
	case errors.Is(err, ErrStorageFailure):
		return KindStorageFailure
	}
	return KindInternal
}

// ConversionError records the stage a conversion failed in.
type ConversionError struct {
	Stage Stage
	Err   error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage.action(), e.Err)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

// failAt wraps err in a ConversionError unless it already carries one.
func failAt(stage Stage, err error) error {
	var convErr *ConversionError
	if errors.As(err, &convErr) {
		return err
	}
	return &ConversionError{Stage: stage, Err: err}
}
