// Package client talks to a running md2pdf-live server.
//
// Failed calls return *APIError, which unwraps to the md2pdf kind sentinel
// carried in the response envelope, so md2pdf.KindOf and errors.Is work the
// same on both sides of the wire.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	md2pdf "github.com/alnah/go-md2pdf-live"
	"github.com/alnah/go-md2pdf-live/internal/fileutil"
)

// DefaultTimeout bounds a single HTTP call, render included.
const DefaultTimeout = 60 * time.Second

// ErrInvalidBaseURL is returned by New for non-http(s) URLs.
var ErrInvalidBaseURL = errors.New("server URL must start with http:// or https://")

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Kind    md2pdf.Kind
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d (%s): %s", e.Status, e.Kind, e.Message)
}

// Unwrap returns the kind sentinel, or nil for KindInternal.
func (e *APIError) Unwrap() error {
	return e.Kind.Sentinel()
}

// UploadedFile describes a stored upload.
type UploadedFile struct {
	ID           string    `json:"id"`
	OriginalName string    `json:"originalName"`
	Size         int64     `json:"size"`
	UploadedAt   time.Time `json:"uploadedAt"`
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// Client calls the server API. It is safe for concurrent use.
type Client struct {
	base *url.URL
	http *http.Client
}

// New returns a Client for the server at baseURL, e.g. "http://localhost:3001".
func New(baseURL string, opts ...Option) (*Client, error) {
	if !fileutil.IsURL(baseURL) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, baseURL)
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBaseURL, err)
	}

	c := &Client{
		base: u,
		http: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Health checks that the server answers /health.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/health", nil, "")
	if err != nil {
		return err
	}
	return drain(resp)
}

// Upload stores a Markdown file and returns its description.
func (c *Client) Upload(ctx context.Context, name string, data []byte) (*UploadedFile, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("markdown", name)
	if err != nil {
		return nil, fmt.Errorf("building upload: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("building upload: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("building upload: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, "/api/upload", &buf, w.FormDataContentType())
	if err != nil {
		return nil, err
	}
	var out struct {
		File UploadedFile `json:"file"`
	}
	if err := decodeJSON(resp, &out); err != nil {
		return nil, err
	}
	return &out.File, nil
}

// Delete removes a stored upload.
func (c *Client) Delete(ctx context.Context, id string) error {
	resp, err := c.do(ctx, http.MethodDelete, "/api/upload/"+url.PathEscape(id), nil, "")
	if err != nil {
		return err
	}
	return drain(resp)
}

// Convert materializes a stored upload into a downloadable PDF.
func (c *Client) Convert(ctx context.Context, req md2pdf.MaterializeRequest) (*md2pdf.Artifact, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}
	resp, err := c.do(ctx, http.MethodPost, "/api/convert/"+url.PathEscape(req.SourceID), bytes.NewReader(body), "application/json")
	if err != nil {
		return nil, err
	}
	return readArtifact(resp)
}

// Preview renders inline Markdown into a PDF meant for display.
func (c *Client) Preview(ctx context.Context, req md2pdf.PreviewRequest) (*md2pdf.Artifact, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}
	resp, err := c.do(ctx, http.MethodPost, "/api/convert/preview", bytes.NewReader(body), "application/json")
	if err != nil {
		return nil, err
	}
	return readArtifact(resp)
}

// do sends the request and turns non-2xx responses into *APIError.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %v", md2pdf.ErrRendererUnavailable, err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer func() { _ = resp.Body.Close() }()
	return nil, parseAPIError(resp)
}

// errorEnvelope mirrors the server's error body.
type errorEnvelope struct {
	Error struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"error"`
}

func parseAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var env errorEnvelope
	if json.Unmarshal(data, &env) == nil && env.Error.Message != "" {
		apiErr.Kind = md2pdf.ParseKind(env.Error.Kind)
		apiErr.Message = env.Error.Message
	} else {
		apiErr.Kind = kindForStatus(resp.StatusCode)
	}
	return apiErr
}

// kindForStatus classifies responses without an envelope, e.g. from a proxy.
func kindForStatus(code int) md2pdf.Kind {
	switch code {
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge:
		return md2pdf.KindInvalidInput
	case http.StatusNotFound:
		return md2pdf.KindNotFound
	case http.StatusServiceUnavailable, http.StatusBadGateway:
		return md2pdf.KindRendererUnavailable
	case http.StatusGatewayTimeout:
		return md2pdf.KindRenderTimeout
	}
	return md2pdf.KindInternal
}

func readArtifact(resp *http.Response) (*md2pdf.Artifact, error) {
	defer func() { _ = resp.Body.Close() }()

	pdf, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading PDF: %w", err)
	}
	if len(pdf) == 0 {
		return nil, md2pdf.ErrRenderProducedNoOutput
	}

	art := &md2pdf.Artifact{
		PDF:         pdf,
		MIMEType:    md2pdf.MIMETypePDF,
		Disposition: md2pdf.DispositionAttachment,
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		if mt, _, err := mime.ParseMediaType(ct); err == nil {
			art.MIMEType = mt
		}
	}
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if disp, params, err := mime.ParseMediaType(cd); err == nil {
			art.Disposition = md2pdf.Disposition(disp)
			art.Filename = params["filename"]
		}
	}
	if n, err := strconv.Atoi(resp.Header.Get("X-PDF-Pages")); err == nil {
		art.Pages = n
	}
	return art, nil
}

func decodeJSON(resp *http.Response, v any) error {
	defer func() { _ = resp.Body.Close() }()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func drain(resp *http.Response) error {
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}
