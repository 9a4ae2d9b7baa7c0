// Package storage defines where referer databases are loaded from. The
// classifier itself never performs I/O; a Provider hands it the raw database
// bytes, whichever backend they live in.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when the requested object does not exist.
var ErrNotFound = errors.New("object not found")

// Provider returns the raw bytes of a named database object.
type Provider interface {
	Load(ctx context.Context, name string) ([]byte, error)
}

// Watcher is implemented by providers that can report changes to an object.
// Watch blocks until ctx ends, calling onChange after each modification.
type Watcher interface {
	Watch(ctx context.Context, name string, onChange func()) error
}
