package statestore

import "time"

// Store is a component-scoped key/value store with per-key TTL.
// Implementations MUST be safe for concurrent use by multiple transform
// instances.
type Store interface {
	// Get retrieves the value at (component, key). ok is false if the
	// key is absent or has expired.
	Get(component, key string) (value string, ok bool, err error)

	// Set writes value at (component, key). A zero ttl means the key
	// never expires on its own (the aggregating transform's checkpoint
	// keys, for instance, live until explicitly deleted on flush).
	Set(component, key, value string, ttl time.Duration) error

	// Delete removes (component, key). Deleting an absent key is not an
	// error.
	Delete(component, key string) error

	// Close releases underlying resources.
	Close() error
}
