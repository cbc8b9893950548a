package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// LocalBackend writes objects under a directory. It serves development
// setups and tests.
type LocalBackend struct {
	basePath string
	baseURL  string
}

var _ Backend = (*LocalBackend)(nil)

// NewLocal creates basePath if needed. Returned URLs are baseURL + key, or
// file:// URLs when baseURL is empty.
func NewLocal(basePath, baseURL string) (*LocalBackend, error) {
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("resolve storage path: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &LocalBackend{basePath: abs, baseURL: baseURL}, nil
}

// Upload writes data to basePath/key.
func (l *LocalBackend) Upload(ctx context.Context, data []byte, key, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key, err := cleanKey(key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	dest := filepath.Join(l.basePath, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	tmp := dest + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	if l.baseURL != "" {
		return joinURL(l.baseURL, key), nil
	}
	return "file://" + filepath.ToSlash(dest), nil
}
