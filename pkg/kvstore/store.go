// Package kvstore defines the key-value contract focusdeck collections
// persist through, with an in-memory implementation for tests.
package kvstore

import "context"

// Store defines the versioned key-value contract all collections persist
// through. Values are opaque strings; callers own serialization.
type Store interface {
	// Get retrieves the value for a key. The second return is false when the
	// key has never been written.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores a value under a key, overwriting any previous value.
	Set(ctx context.Context, key, value string) error
	// SetMulti stores several key-value pairs as one atomic unit. Either all
	// pairs are durable or none are.
	SetMulti(ctx context.Context, pairs map[string]string) error
	// Delete removes a key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
