package ports

import (
	"context"
	"time"
)

// Store is the shared keyed store. It is the only cross-request
// mutable state the service owns; GetDel must be atomic so that two
// racing consumers of the same key see at most one hit.
type Store interface {
	// Set writes a value under key. A zero ttl means no expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Get retrieves a value. A missing key yields ("", false, nil).
	Get(ctx context.Context, key string) (string, bool, error)

	// GetDel atomically retrieves and deletes a value. A missing key
	// yields ("", false, nil).
	GetDel(ctx context.Context, key string) (string, bool, error)

	// Del removes a key. Deleting a missing key is not an error.
	Del(ctx context.Context, key string) error

	// AddToSet adds a member to an unordered set under key.
	AddToSet(ctx context.Context, key, member string) error

	// SetMembers returns all members of the set under key.
	SetMembers(ctx context.Context, key string) ([]string, error)
}
