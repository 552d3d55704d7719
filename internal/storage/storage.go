// Package storage holds uploaded report images. Objects are addressed by a
// generated key and are never overwritten.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrObjectExists   = errors.New("object already exists")
	ErrObjectNotFound = errors.New("object not found")
	ErrInvalidKey     = errors.New("invalid object key")
)

// ObjectStore is the subset of a blob store the report gateway needs.
type ObjectStore interface {
	// Put stores data under key and fails with ErrObjectExists instead of
	// replacing an existing object.
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, string, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

var extByMIME = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}

var mimeByExt = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"webp": "image/webp",
}

// NewObjectKey returns "<unix-millis>-<random>.<ext>". The extension comes
// from the original file name when it has a known image extension and from
// the content type otherwise.
func NewObjectKey(now time.Time, filename, contentType string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return fmt.Sprintf("%d-%s.%s", now.UnixMilli(), suffix, extension(filename, contentType))
}

func extension(filename, contentType string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(filename), "."))
	if _, ok := mimeByExt[ext]; ok {
		return ext
	}
	if ext, ok := extByMIME[contentType]; ok {
		return ext
	}
	return "bin"
}

// ContentTypeForKey guesses the MIME type of a stored object from its key.
func ContentTypeForKey(key string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(key), "."))
	if ct, ok := mimeByExt[ext]; ok {
		return ct
	}
	return "application/octet-stream"
}

// ValidKey rejects anything that could escape the bucket.
func ValidKey(key string) bool {
	if key == "" || len(key) > 255 {
		return false
	}
	if strings.ContainsAny(key, `/\`) || strings.Contains(key, "..") {
		return false
	}
	return key[0] != '.'
}

// URLResolver maps object keys to publicly fetchable URLs.
type URLResolver struct {
	baseURL string
	bucket  string
}

func NewURLResolver(baseURL, bucket string) *URLResolver {
	return &URLResolver{baseURL: strings.TrimRight(baseURL, "/"), bucket: bucket}
}

// Resolve never fails; the object is assumed to exist.
func (r *URLResolver) Resolve(key string) string {
	return r.baseURL + "/images/" + r.bucket + "/" + key
}
