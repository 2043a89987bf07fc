// Package objstore keeps uploaded binary objects (avatars) either on local
// disk or in an S3-compatible bucket.
package objstore

import (
	"context"
	"errors"
	"strings"
)

// ErrInvalidKey is returned for keys that could escape the storage root.
var ErrInvalidKey = errors.New("objstore: invalid key")

// Store puts, locates and removes objects by key.
type Store interface {
	Put(ctx context.Context, key, contentType string, data []byte) error
	// URL returns a location a client can fetch the object from.
	URL(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

func checkKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "..") || strings.Contains(key, `\`) {
		return ErrInvalidKey
	}
	return nil
}
