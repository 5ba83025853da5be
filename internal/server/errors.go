package server

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	md2pdf "github.com/alnah/go-md2pdf-live"
	"github.com/alnah/go-md2pdf-live/internal/logging"
)

// kindRateLimited is the wire kind of limiter rejections. It has no Kind
// constant because the converter never produces it.
const kindRateLimited = "RateLimited"

// errorResponse is the JSON envelope of every failed request.
type errorResponse struct {
	Success bool        `json:"success"`
	Error   errorDetail `json:"error"`
}

type errorDetail struct {
	Code    int    `json:"code"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(k md2pdf.Kind) int {
	switch k {
	case md2pdf.KindInvalidInput:
		return fiber.StatusBadRequest
	case md2pdf.KindNotFound:
		return fiber.StatusNotFound
	case md2pdf.KindRendererUnavailable:
		return fiber.StatusServiceUnavailable
	case md2pdf.KindRenderTimeout:
		return fiber.StatusGatewayTimeout
	}
	return fiber.StatusInternalServerError
}

// kindForStatus classifies fiber's own errors (unknown routes, body limits).
func kindForStatus(code int) md2pdf.Kind {
	switch {
	case code == fiber.StatusNotFound:
		return md2pdf.KindNotFound
	case code >= 400 && code < 500:
		return md2pdf.KindInvalidInput
	}
	return md2pdf.KindInternal
}

// errorHandler writes the JSON envelope. Production hides 5xx messages
// behind the kind's public message; development adds the full chain.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	var (
		code int
		kind md2pdf.Kind
		msg  string
	)

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		kind = kindForStatus(code)
		msg = fe.Message
	} else {
		kind = md2pdf.KindOf(err)
		code = StatusFor(kind)
		msg = err.Error()
	}

	detail := errorDetail{Code: code, Kind: kind.String(), Message: msg}
	if code >= fiber.StatusInternalServerError {
		logging.Error("Request failed",
			"error", err, "kind", kind.String(), "path", c.Path(), "request_id", requestID(c))
		if s.opts.Production {
			detail.Message = kind.PublicMessage()
		}
	} else {
		logging.Warn("Request rejected",
			"error", err, "kind", kind.String(), "path", c.Path(), "request_id", requestID(c))
	}
	if !s.opts.Production {
		detail.Detail = err.Error()
	}

	return c.Status(code).JSON(errorResponse{Error: detail})
}

// rateLimited is the limiter's LimitReached handler.
func rateLimited(c *fiber.Ctx) error {
	logging.Warn("Rate limit exceeded", "ip", c.IP(), "path", c.Path())
	return c.Status(fiber.StatusTooManyRequests).JSON(errorResponse{
		Error: errorDetail{
			Code:    fiber.StatusTooManyRequests,
			Kind:    kindRateLimited,
			Message: "Too many requests from this IP, please try again later.",
		},
	})
}
