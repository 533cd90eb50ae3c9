// Package kvstore provides the persistent key-value layer used by the
// session, profile and cart stores. Values are opaque byte blobs; the Codec
// wrapper adds JSON encoding and a version envelope on top of any backend.
package kvstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key has no value.
var ErrNotFound = errors.New("kvstore: key not found")

// Store is the backend contract. Implementations must be safe for
// concurrent use.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
	Close() error
}

// Logical keys for persisted application state.
const (
	KeySession   = "session"
	KeyProfile   = "profile"
	KeyCart      = "cart"
	KeyLoginData = "login_data"
)
