package secstore

import (
	"context"
	"errors"
)

// ErrNotFound indicates the requested key is absent from the store.
var ErrNotFound = errors.New("secstore: key not found")

// Store persists opaque keyed blobs. Implementations must treat values as
// sensitive material: wallet connection descriptors and sub-wallet ledgers
// are stored through this interface.
type Store interface {
	Save(ctx context.Context, key string, value []byte) error
	// Load returns the stored value or ErrNotFound.
	Load(ctx context.Context, key string) ([]byte, error)
	// Delete removes the key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
