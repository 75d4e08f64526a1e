// Package storage keeps photo and avatar bytes in a private bucket and hands
// out time-limited URLs for reading them.
package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultSignedURLTTL is how long a signed URL stays valid unless configured otherwise
const DefaultSignedURLTTL = time.Hour

// ErrNotFound is returned when an object does not exist
var ErrNotFound = errors.New("object not found")

// BlobStore is the object storage used for uploads
type BlobStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// PhotoKey builds a unique object key for an upload. The original extension
// is kept so downloads get a sensible name.
func PhotoKey(prefix, originalFilename string) string {
	ext := strings.ToLower(path.Ext(path.Base(strings.ReplaceAll(originalFilename, "\\", "/"))))
	if len(ext) > 10 {
		ext = ""
	}
	return path.Join(prefix, time.Now().UTC().Format("2006/01"), uuid.NewString()+ext)
}
