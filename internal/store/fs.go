package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	md2pdf "github.com/alnah/go-md2pdf-live"
	"github.com/alnah/go-md2pdf-live/internal/fileutil"
)

var _ md2pdf.Store = (*FS)(nil)

const (
	dataExt = ".md"
	metaExt = ".json"
)

// fsMeta is the sidecar written next to each upload.
type fsMeta struct {
	Name       string    `json:"originalName"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// FS stores each upload as <id>.md with a <id>.json metadata sidecar.
type FS struct {
	dir string
	now func() time.Time
}

// NewFS uses dir, creating it if needed. An empty dir creates a fresh
// directory under the system temp dir.
func NewFS(dir string) (*FS, error) {
	if dir == "" {
		d, err := os.MkdirTemp("", "md2pdf-uploads-*")
		if err != nil {
			return nil, storageFailure("creating upload dir", err)
		}
		dir = d
	} else if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, storageFailure("creating upload dir", err)
	}
	return &FS{dir: dir, now: time.Now}, nil
}

// Dir returns the upload directory.
func (s *FS) Dir() string {
	return s.dir
}

func (s *FS) path(id, ext string) string {
	return filepath.Join(s.dir, id+ext)
}

func (s *FS) Put(ctx context.Context, data []byte, originalName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	id := NewID()
	meta, err := json.Marshal(fsMeta{
		Name:       originalName,
		Size:       int64(len(data)),
		UploadedAt: s.now().UTC(),
	})
	if err != nil {
		return "", storageFailure("encoding metadata", err)
	}

	// Data first: a sidecar without data would be reported as a broken upload.
	if err := fileutil.WriteFileAtomic(s.path(id, dataExt), data, 0o600); err != nil {
		return "", storageFailure("writing upload", err)
	}
	if err := fileutil.WriteFileAtomic(s.path(id, metaExt), meta, 0o600); err != nil {
		_ = os.Remove(s.path(id, dataExt))
		return "", storageFailure("writing metadata", err)
	}
	return id, nil
}

func (s *FS) Get(ctx context.Context, id string) (*md2pdf.StoredFile, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(s.path(id, metaExt))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, storageFailure("reading metadata", err)
	}
	var meta fsMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, storageFailure("decoding metadata", err)
	}

	data, err := os.ReadFile(s.path(id, dataExt))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, storageFailure("reading upload", err)
	}

	return &md2pdf.StoredFile{
		ID:         id,
		Name:       meta.Name,
		Data:       data,
		Size:       int64(len(data)),
		UploadedAt: meta.UploadedAt,
	}, nil
}

func (s *FS) Delete(ctx context.Context, id string) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	errData := os.Remove(s.path(id, dataExt))
	errMeta := os.Remove(s.path(id, metaExt))
	if errors.Is(errData, fs.ErrNotExist) && errors.Is(errMeta, fs.ErrNotExist) {
		return notFound(id)
	}
	for _, err := range []error{errData, errMeta} {
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return storageFailure("deleting upload", err)
		}
	}
	return nil
}

// Prune deletes uploads older than maxAge and returns how many were removed.
func (s *FS) Prune(ctx context.Context, maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, storageFailure("listing uploads", err)
	}

	cutoff := s.now().Add(-maxAge)
	removed := 0
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		id, ok := strings.CutSuffix(e.Name(), metaExt)
		if !ok || e.IsDir() || ValidateID(id) != nil {
			continue
		}

		raw, err := os.ReadFile(filepath.Join(s.dir, e.Name()))
		if err != nil {
			continue
		}
		var meta fsMeta
		if err := json.Unmarshal(raw, &meta); err != nil || meta.UploadedAt.After(cutoff) {
			continue
		}
		if err := s.Delete(ctx, id); err != nil && !errors.Is(err, md2pdf.ErrNotFound) {
			return removed, fmt.Errorf("pruning %s: %w", id, err)
		}
		removed++
	}
	return removed, nil
}
