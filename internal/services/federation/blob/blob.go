// Package blob defines the contract for photo byte storage.
package blob

import (
	"context"
	"io"
)

// Store persists photo bytes under opaque keys. Implementations must treat
// keys as flat identifiers chosen by the caller.
type Store interface {
	// Put writes the full contents of reader under key, replacing any
	// previous object.
	Put(ctx context.Context, key string, reader io.Reader) (int64, error)
	// Open returns a reader for the object at key.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes the object at key. Deleting a missing object is an
	// error so callers can log the discrepancy.
	Delete(ctx context.Context, key string) error
}
