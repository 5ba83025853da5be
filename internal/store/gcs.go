package store

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"

	md2pdf "github.com/alnah/go-md2pdf-live"
)

var _ md2pdf.Store = (*GCS)(nil)

// gcsNameKey is the object metadata key holding the original file name.
const gcsNameKey = "original-name"

// errIDCollision means an object with a freshly generated id already exists.
var errIDCollision = errors.New("object already exists")

// GCS stores each upload as one object under prefix in a bucket.
type GCS struct {
	bucket *storage.BucketHandle
	prefix string
}

// NewGCS uses bucket through client. The caller owns the client.
func NewGCS(client *storage.Client, bucket, prefix string) *GCS {
	return &GCS{bucket: client.Bucket(bucket), prefix: prefix}
}

func (s *GCS) objectName(id string) string {
	return path.Join(s.prefix, id+dataExt)
}

func (s *GCS) Put(ctx context.Context, data []byte, originalName string) (string, error) {
	id := NewID()

	// DoesNotExist makes a duplicate id fail instead of overwriting.
	w := s.bucket.Object(s.objectName(id)).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.ContentType = "text/markdown; charset=utf-8"
	w.Metadata = map[string]string{gcsNameKey: originalName}

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", classifyGCSErr(ctx, id, "gcs write", err)
	}
	if err := w.Close(); err != nil {
		return "", classifyGCSErr(ctx, id, "gcs finalize", err)
	}
	return id, nil
}

func (s *GCS) Get(ctx context.Context, id string) (*md2pdf.StoredFile, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}

	r, err := s.bucket.Object(s.objectName(id)).NewReader(ctx)
	if err != nil {
		return nil, classifyGCSErr(ctx, id, "gcs open", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, classifyGCSErr(ctx, id, "gcs read", err)
	}

	attrs, err := s.bucket.Object(s.objectName(id)).Attrs(ctx)
	if err != nil {
		return nil, classifyGCSErr(ctx, id, "gcs attrs", err)
	}

	return &md2pdf.StoredFile{
		ID:         id,
		Name:       attrs.Metadata[gcsNameKey],
		Data:       data,
		Size:       int64(len(data)),
		UploadedAt: attrs.Created,
	}, nil
}

func (s *GCS) Delete(ctx context.Context, id string) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	if err := s.bucket.Object(s.objectName(id)).Delete(ctx); err != nil {
		return classifyGCSErr(ctx, id, "gcs delete", err)
	}
	return nil
}

// classifyGCSErr maps client errors onto the store error kinds.
func classifyGCSErr(ctx context.Context, id, op string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, storage.ErrObjectNotExist) {
		return notFound(id)
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusNotFound:
			return notFound(id)
		case http.StatusPreconditionFailed:
			return storageFailure(op, errIDCollision)
		}
	}
	return storageFailure(op, err)
}
