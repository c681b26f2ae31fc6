package services

import (
	"context"
	"io"
	"net/url"
	"strings"
	"time"
)

// StoredObject is the store's view of an object.
type StoredObject struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// ObjectStore is the set of bucket operations the file manager consumes. An
// implementation is bound to one bucket at construction.
type ObjectStore interface {
	// List returns every object whose key starts with prefix, in store order.
	List(ctx context.Context, prefix string) ([]StoredObject, error)
	// Put creates or overwrites key. size may be -1 when unknown.
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (StoredObject, error)
	Delete(ctx context.Context, key string) error
	// Copy duplicates srcKey to dstKey, overwriting dstKey if present.
	Copy(ctx context.Context, srcKey, dstKey string) (StoredObject, error)
	// Stat reads the size and modification time of key.
	Stat(ctx context.Context, key string) (StoredObject, error)
}

// escapeKey path-escapes each segment of an object key, keeping the slashes.
// S3 reads a literal "+" in a path as a space, so it is escaped too.
func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = strings.ReplaceAll(url.PathEscape(p), "+", "%2B")
	}
	return strings.Join(parts, "/")
}

// PublicURLs builds direct links to objects in a public-read bucket.
type PublicURLs struct {
	base string
}

func NewPublicURLs(base string) PublicURLs {
	return PublicURLs{base: strings.TrimSuffix(base, "/")}
}

// URL returns the public link for key, or "" when no base is known.
func (p PublicURLs) URL(key string) string {
	if p.base == "" {
		return ""
	}
	return p.base + "/" + escapeKey(key)
}
