package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// ErrNotFound is returned when a key does not exist in the store.
var ErrNotFound = errors.New("object not found")

// ObjectStore is the backend-neutral blob contract. Keys are
// slash-separated path-like strings; implementations reject keys that
// would escape the configured root.
type ObjectStore interface {
	// Upload writes all bytes under key. Overwrites are permitted but the
	// pipeline never issues them.
	Upload(ctx context.Context, key string, data io.Reader, contentType string) error
	// Download returns a reader positioned at byte 0, or ErrNotFound.
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	// PresignedURL returns a time-bounded read URL, or ErrNotFound.
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	// Delete is idempotent; an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// SanitizeKey validates and normalises an object key. Rejects empty
// keys, absolute paths and any ".." component.
func SanitizeKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", fmt.Errorf("empty object key")
	}
	if strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return "", fmt.Errorf("invalid object key %q", key)
		}
	}
	return key, nil
}

// ReadAll downloads a key fully into memory.
func ReadAll(ctx context.Context, store ObjectStore, key string) ([]byte, error) {
	rc, err := store.Download(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
