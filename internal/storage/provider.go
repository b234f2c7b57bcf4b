// Package storage is the durable boundary for the persisted envelopes.
package storage

import "context"

// Record keys used by the Adapter.
const (
	KeyAppData   = "app-data"
	KeyAppConfig = "app-config"
)

// Backend stores whole records by key. Each Put replaces the previous value.
type Backend interface {
	// Get returns the stored bytes, or apperr.ErrNotFound when key was never written.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put atomically replaces the record stored under key.
	Put(ctx context.Context, key string, value []byte) error
	// Close releases backend resources.
	Close() error
}

var (
	_ Backend = (*FS)(nil)
	_ Backend = (*SQLite)(nil)
)
