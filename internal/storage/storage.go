// Package storage uploads rendered media and archives to object storage.
package storage

import (
	"context"
	"errors"
	"strings"
)

// ErrUploadFailed wraps every backend upload failure.
var ErrUploadFailed = errors.New("upload failed")

// Backend stores objects and returns the URL they are reachable at.
type Backend interface {
	Upload(ctx context.Context, data []byte, key, contentType string) (string, error)
}

// cleanKey strips leading slashes and rejects keys that escape their root.
func cleanKey(key string) (string, error) {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if key == "" {
		return "", errors.New("object key is required")
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." {
			return "", errors.New("object key must not contain '..'")
		}
	}
	return key, nil
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}
