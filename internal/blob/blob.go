// Package blob abstracts binary asset storage (uploaded and generated
// images). The store is an optional dependency; when absent the actor
// surfaces a configuration-specific error instead of failing silently.
package blob

import (
	"context"
	"errors"
)

var (
	// ErrNotConfigured reports that no asset store binding exists.
	ErrNotConfigured = errors.New("asset storage is not configured")
	// ErrNotFound reports an absent object.
	ErrNotFound = errors.New("object not found")
)

// Object is one stored asset.
type Object struct {
	Key         string
	Data        []byte
	ContentType string
}

// Store is durable key→object storage with list-by-prefix and delete.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) (Object, error)
	List(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, key string) error
}
