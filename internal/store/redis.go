package store

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	md2pdf "github.com/alnah/go-md2pdf-live"
)

var _ md2pdf.Store = (*Redis)(nil)

// DefaultRedisTTL is how long uploads live in Redis unless configured.
const DefaultRedisTTL = 24 * time.Hour

const redisKeyPrefix = "md2pdf:upload:"

// Hash fields of an upload.
const (
	fieldName       = "name"
	fieldData       = "data"
	fieldSize       = "size"
	fieldUploadedAt = "uploadedAt"
)

// Redis stores each upload as a hash with a TTL, so several service
// instances can share uploads.
type Redis struct {
	client redis.UniversalClient
	ttl    time.Duration
	now    func() time.Time
}

// NewRedis wraps an existing client. The caller owns the client.
// A non-positive ttl uses DefaultRedisTTL.
func NewRedis(client redis.UniversalClient, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultRedisTTL
	}
	return &Redis{client: client, ttl: ttl, now: time.Now}
}

func redisKey(id string) string {
	return redisKeyPrefix + id
}

func (s *Redis) Put(ctx context.Context, data []byte, originalName string) (string, error) {
	id := NewID()
	key := redisKey(id)

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, map[string]any{
			fieldName:       originalName,
			fieldData:       data,
			fieldSize:       len(data),
			fieldUploadedAt: s.now().UTC().Format(time.RFC3339Nano),
		})
		pipe.Expire(ctx, key, s.ttl)
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", storageFailure("redis put", err)
	}
	return id, nil
}

func (s *Redis) Get(ctx context.Context, id string) (*md2pdf.StoredFile, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}

	fields, err := s.client.HGetAll(ctx, redisKey(id)).Result()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, storageFailure("redis get", err)
	}
	data, ok := fields[fieldData]
	if !ok {
		return nil, notFound(id)
	}

	f := &md2pdf.StoredFile{
		ID:   id,
		Name: fields[fieldName],
		Data: []byte(data),
		Size: int64(len(data)),
	}
	if n, err := strconv.ParseInt(fields[fieldSize], 10, 64); err == nil {
		f.Size = n
	}
	if ts, err := time.Parse(time.RFC3339Nano, fields[fieldUploadedAt]); err == nil {
		f.UploadedAt = ts
	}
	return f, nil
}

func (s *Redis) Delete(ctx context.Context, id string) error {
	if err := ValidateID(id); err != nil {
		return err
	}

	n, err := s.client.Del(ctx, redisKey(id)).Result()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return storageFailure("redis delete", err)
	}
	if n == 0 {
		return notFound(id)
	}
	return nil
}

// Ping checks connectivity. Used by the health endpoint.
func (s *Redis) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return storageFailure("redis ping", err)
	}
	return nil
}
