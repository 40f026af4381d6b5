package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// FileSystemStoreOptions configures the local object store.
type FileSystemStoreOptions struct {
	RootPath string
	// GatewayBaseURL is prepended to synthesised pre-signed URLs, which
	// point through the gateway's file-serving endpoint.
	GatewayBaseURL string
}

// FileSystemStore implements ObjectStore on a directory rooted at
// RootPath. Pre-signed URLs are gateway routes; the TTL is
// documentation only and not enforced in dev.
type FileSystemStore struct {
	root    string
	baseURL string
}

// NewFileSystemStore creates the local store, creating RootPath if needed.
func NewFileSystemStore(opts FileSystemStoreOptions) (*FileSystemStore, error) {
	if opts.RootPath == "" {
		return nil, fmt.Errorf("storage root path is required")
	}
	if err := os.MkdirAll(opts.RootPath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}

	log.Info().Str("root", opts.RootPath).Msg("Filesystem object store initialized")

	return &FileSystemStore{
		root:    opts.RootPath,
		baseURL: strings.TrimRight(opts.GatewayBaseURL, "/"),
	}, nil
}

func (s *FileSystemStore) path(key string) (string, error) {
	key, err := SanitizeKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(key)), nil
}

// Upload writes all bytes to a temp file and renames it into place so
// concurrent readers never observe a torn object.
func (s *FileSystemStore) Upload(ctx context.Context, key string, data io.Reader, contentType string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create object directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := io.Copy(tmp, data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write object bytes: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to persist object: %w", err)
	}

	log.Debug().Str("key", key).Msg("Object written to filesystem store")
	return nil
}

// Download opens the stored file, positioned at byte 0.
func (s *FileSystemStore) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to open object: %w", err)
	}
	return f, nil
}

// PresignedURL synthesises a gateway file-serving URL for the key. The
// key is URL-encoded segment-by-segment with slashes preserved.
func (s *FileSystemStore) PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	path, err := s.path(key)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return "", fmt.Errorf("failed to stat object: %w", err)
	}

	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return fmt.Sprintf("%s/api/v1/jobs/files/%s", s.baseURL, strings.Join(segments, "/")), nil
}

// Delete removes the stored file; an absent key is not an error.
func (s *FileSystemStore) Delete(ctx context.Context, key string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}
