package server

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gofiber/fiber/v2"

	md2pdf "github.com/alnah/go-md2pdf-live"
)

// HeaderPDFPages carries the page count of a delivered PDF when known.
const HeaderPDFPages = "X-PDF-Pages"

// UploadField is the multipart field holding the Markdown file.
const UploadField = "markdown"

var (
	allowedExtensions = map[string]bool{".md": true, ".markdown": true, ".txt": true}
	allowedMIMETypes  = map[string]bool{
		"text/markdown":            true,
		"text/x-markdown":          true,
		"text/plain":               true,
		"application/octet-stream": true,
	}
)

type healthResponse struct {
	Status    string  `json:"status"`
	Timestamp string  `json:"timestamp"`
	Uptime    float64 `json:"uptime"`
	Version   string  `json:"version,omitempty"`
}

type fileInfo struct {
	ID           string    `json:"id"`
	OriginalName string    `json:"originalName"`
	Size         int64     `json:"size"`
	UploadedAt   time.Time `json:"uploadedAt"`
	MIMEType     string    `json:"mimeType,omitempty"`
}

type uploadResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	File    fileInfo `json:"file"`
}

type statusResponse struct {
	Success bool      `json:"success"`
	FileID  string    `json:"fileId"`
	Status  string    `json:"status"`
	Message string    `json:"message"`
	File    *fileInfo `json:"file,omitempty"`
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type statsResponse struct {
	Success  bool         `json:"success"`
	Renderer md2pdf.Stats `json:"renderer"`
}

// previewBody accepts the text under "content" or "text".
type previewBody struct {
	Content string         `json:"content"`
	Text    string         `json:"text"`
	Title   string         `json:"title"`
	Options md2pdf.Options `json:"options"`
}

type convertBody struct {
	Title   string         `json:"title"`
	Options md2pdf.Options `json:"options"`
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(healthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(s.started).Seconds(),
		Version:   s.opts.Version,
	})
}

func (s *Server) handleUpload(c *fiber.Ctx) error {
	fh, err := c.FormFile(UploadField)
	if err != nil {
		return fmt.Errorf("%w: no file uploaded in field %q", md2pdf.ErrInvalidInput, UploadField)
	}
	if !acceptedUpload(fh) {
		return fmt.Errorf("%w: only Markdown files (.md, .markdown, .txt) are allowed", md2pdf.ErrInvalidInput)
	}
	if fh.Size > int64(s.opts.MaxUploadBytes) {
		return fmt.Errorf("%w (%d bytes, max %d)", md2pdf.ErrContentTooLarge, fh.Size, s.opts.MaxUploadBytes)
	}

	data, err := readUpload(fh, s.opts.MaxUploadBytes)
	if err != nil {
		return err
	}

	mt := mimetype.Detect(data)
	switch {
	case len(bytes.TrimSpace(data)) == 0:
		return md2pdf.ErrEmptyContent
	case !isText(mt):
		return fmt.Errorf("%w: uploaded file is not text (detected %s)", md2pdf.ErrInvalidInput, mt.String())
	case !utf8.Valid(data):
		return md2pdf.ErrInvalidEncoding
	}

	id, err := s.store.Put(c.UserContext(), data, fh.Filename)
	if err != nil {
		return err
	}

	return c.JSON(uploadResponse{
		Success: true,
		Message: "File uploaded successfully",
		File: fileInfo{
			ID:           id,
			OriginalName: fh.Filename,
			Size:         int64(len(data)),
			UploadedAt:   time.Now().UTC(),
			MIMEType:     mt.String(),
		},
	})
}

func (s *Server) handleUploadStatus(c *fiber.Ctx) error {
	return s.fileStatus(c, "uploaded")
}

func (s *Server) handleConvertStatus(c *fiber.Ctx) error {
	return s.fileStatus(c, "ready")
}

func (s *Server) fileStatus(c *fiber.Ctx, status string) error {
	id := c.Params("fileId")
	f, err := s.store.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(statusResponse{
		Success: true,
		FileID:  id,
		Status:  status,
		Message: "File is ready for conversion",
		File: &fileInfo{
			ID:           f.ID,
			OriginalName: f.Name,
			Size:         f.Size,
			UploadedAt:   f.UploadedAt,
		},
	})
}

func (s *Server) handleDelete(c *fiber.Ctx) error {
	if err := s.store.Delete(c.UserContext(), c.Params("fileId")); err != nil {
		return err
	}
	return c.JSON(messageResponse{Success: true, Message: "File deleted successfully"})
}

func (s *Server) handlePreview(c *fiber.Ctx) error {
	var body previewBody
	if err := decodeBody(c, &body); err != nil {
		return err
	}
	text := body.Content
	if text == "" {
		text = body.Text
	}

	art, err := s.conv.Preview(c.UserContext(), md2pdf.PreviewRequest{
		Text:    text,
		Title:   body.Title,
		Options: body.Options,
	})
	if err != nil {
		return err
	}
	return sendArtifact(c, art)
}

func (s *Server) handleMaterialize(c *fiber.Ctx) error {
	var body convertBody
	if err := decodeBody(c, &body); err != nil {
		return err
	}

	art, err := s.conv.Materialize(c.UserContext(), md2pdf.MaterializeRequest{
		SourceID: c.Params("fileId"),
		Title:    body.Title,
		Options:  body.Options,
	})
	if err != nil {
		return err
	}
	return sendArtifact(c, art)
}

func (s *Server) handleHTMLPreview(c *fiber.Ctx) error {
	doc, err := s.conv.RenderHTML(c.UserContext(), c.Params("fileId"), c.Query("title"))
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderCacheControl, "no-store")
	c.Type("html", "utf-8")
	return c.SendString(doc)
}

func (s *Server) handleStats(c *fiber.Ctx) error {
	return c.JSON(statsResponse{Success: true, Renderer: s.conv.Stats()})
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

// acceptedUpload mirrors the browser-side filter: a Markdown extension or a
// text MIME type declared by the client.
func acceptedUpload(fh *multipart.FileHeader) bool {
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if allowedExtensions[ext] {
		return true
	}
	mediaType, _, _ := strings.Cut(fh.Header.Get(fiber.HeaderContentType), ";")
	return allowedMIMETypes[strings.ToLower(strings.TrimSpace(mediaType))]
}

// readUpload reads at most limit bytes; a longer file is ErrContentTooLarge.
func readUpload(fh *multipart.FileHeader, limit int) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: opening upload: %v", md2pdf.ErrInvalidInput, err)
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(io.LimitReader(f, int64(limit)+1))
	if err != nil {
		return nil, fmt.Errorf("%w: reading upload: %v", md2pdf.ErrInvalidInput, err)
	}
	if len(data) > limit {
		return nil, fmt.Errorf("%w (max %d bytes)", md2pdf.ErrContentTooLarge, limit)
	}
	return data, nil
}

// isText reports whether the sniffed type or one of its ancestors is textual.
func isText(mt *mimetype.MIME) bool {
	for m := mt; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), "text/") || m.Is("application/json") {
			return true
		}
	}
	return false
}

// decodeBody decodes an optional JSON body with the app's decoder.
func decodeBody(c *fiber.Ctx, v any) error {
	body := c.Body()
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := c.App().Config().JSONDecoder(body, v); err != nil {
		return fmt.Errorf("%w: malformed JSON body: %v", md2pdf.ErrInvalidInput, err)
	}
	return nil
}

func sendArtifact(c *fiber.Ctx, art *md2pdf.Artifact) error {
	c.Set(fiber.HeaderContentType, art.MIMEType)
	c.Set(fiber.HeaderContentDisposition, contentDisposition(art.Disposition, art.Filename))
	c.Set(fiber.HeaderCacheControl, "no-store")
	if art.Pages > 0 {
		c.Set(HeaderPDFPages, strconv.Itoa(art.Pages))
	}
	return c.Send(art.PDF)
}

// contentDisposition builds the header value with an ASCII filename and, for
// non-ASCII names, an RFC 5987 filename* parameter.
func contentDisposition(disp md2pdf.Disposition, name string) string {
	ascii := strings.Map(func(r rune) rune {
		if r < 0x20 || r > 0x7e || r == '"' || r == '\\' {
			return '_'
		}
		return r
	}, name)

	v := string(disp) + `; filename="` + ascii + `"`
	if ascii != name {
		v += "; filename*=UTF-8''" + url.PathEscape(name)
	}
	return v
}
