package preview

import (
	"sync"
	"sync/atomic"

	md2pdf "github.com/alnah/go-md2pdf-live"
)

// Handle is a displayable artifact produced for one request token.
// Release runs the release hook exactly once, however often it is called.
type Handle struct {
	art     *md2pdf.Artifact
	content string
	token   uint64

	hook     func(*md2pdf.Artifact)
	once     sync.Once
	released atomic.Bool
}

func newHandle(art *md2pdf.Artifact, content string, token uint64, hook func(*md2pdf.Artifact)) *Handle {
	return &Handle{art: art, content: content, token: token, hook: hook}
}

// Artifact returns the rendered PDF. It must not be used after Release.
func (h *Handle) Artifact() *md2pdf.Artifact {
	return h.art
}

// Content returns the text the artifact was rendered from.
func (h *Handle) Content() string {
	return h.content
}

// Token returns the request token the artifact was produced for.
func (h *Handle) Token() uint64 {
	return h.token
}

// Release gives the artifact back. Safe to call more than once.
func (h *Handle) Release() {
	h.once.Do(func() {
		h.released.Store(true)
		if h.hook != nil {
			h.hook(h.art)
		}
	})
}

// Released reports whether Release has run.
func (h *Handle) Released() bool {
	return h.released.Load()
}
