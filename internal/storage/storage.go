// Package storage provides the key-value persistence adapter consumed by
// the repositories. Repositories serialize whole collections to JSON and
// store them under a fixed key; any Store implementation can back them.
package storage

// Store is a process-wide key-value blob store. There are no transactions
// across keys; concurrent writers to the same key are last-write-wins.
type Store interface {
	// Load reads the payload stored under key. A missing key is not an
	// error: it returns ok=false so callers can fall back to a default.
	Load(key string) (value []byte, ok bool, err error)

	// Save writes the payload under key, replacing any previous value.
	Save(key string, value []byte) error

	// Remove deletes the key and reports whether it existed.
	Remove(key string) (bool, error)

	// Close releases underlying resources.
	Close() error
}
