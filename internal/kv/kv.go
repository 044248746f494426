// Package kv abstracts the durable key→bytes store backing the
// session/project actor. Implementations must make Put visible to any
// later Get on the same store before returning.
package kv

import (
	"context"
	"errors"
)

// ErrNotFound reports an absent key.
var ErrNotFound = errors.New("key not found")

// Store is durable key→bytes storage with list-by-prefix.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]string, error)
}
