package object

import "context"

// Store is durable blob storage addressed by key. Implementations must treat
// deletion of an absent key as success so retries and concurrent sweeps stay
// idempotent.
type Store interface {
	// Put uploads the file at localPath to the given key, overwriting any
	// existing object.
	Put(ctx context.Context, localPath string, key string) error

	// Delete removes the object at key.
	Delete(ctx context.Context, key string) error

	// PublicURL returns the externally reachable URL for a key.
	PublicURL(key string) string
}
