package store

import (
	"context"
	"sync"
	"time"

	md2pdf "github.com/alnah/go-md2pdf-live"
)

var _ md2pdf.Store = (*Memory)(nil)

// Memory keeps uploads in process memory. Used by the CLI and tests.
type Memory struct {
	mu    sync.RWMutex
	files map[string]md2pdf.StoredFile
	now   func() time.Time
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{files: make(map[string]md2pdf.StoredFile), now: time.Now}
}

func (m *Memory) Put(ctx context.Context, data []byte, originalName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id := NewID()
	f := md2pdf.StoredFile{
		ID:         id,
		Name:       originalName,
		Data:       append([]byte(nil), data...),
		Size:       int64(len(data)),
		UploadedAt: m.now().UTC(),
	}

	m.mu.Lock()
	m.files[id] = f
	m.mu.Unlock()
	return id, nil
}

// Get returns a copy; callers may modify it freely.
func (m *Memory) Get(ctx context.Context, id string) (*md2pdf.StoredFile, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	f, ok := m.files[id]
	m.mu.RUnlock()
	if !ok {
		return nil, notFound(id)
	}
	f.Data = append([]byte(nil), f.Data...)
	return &f, nil
}

func (m *Memory) Delete(ctx context.Context, id string) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[id]; !ok {
		return notFound(id)
	}
	delete(m.files, id)
	return nil
}

// Len returns the number of stored files.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.files)
}
