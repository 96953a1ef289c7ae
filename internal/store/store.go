// Package store provides the opaque document store the surrounding
// application consumes: create/read/update/delete of JSON documents keyed by
// collection and key. The chat core never depends on it; persistence stays an
// external concern.
package store

import (
	"context"
	"errors"
	"fmt"

	"replichat/internal/config"
)

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrInvalidConfig is returned when a driver is missing required settings.
	ErrInvalidConfig = errors.New("invalid store configuration")
)

// Store is the collection-keyed document store contract. Documents are
// JSON-marshaled opaquely; drivers never interpret them.
type Store interface {
	Put(ctx context.Context, collection, key string, doc interface{}) error
	Get(ctx context.Context, collection, key string, out interface{}) error
	Delete(ctx context.Context, collection, key string) error
	List(ctx context.Context, collection string) ([]string, error)
	Close() error
}

// New creates a store for the configured driver.
func New(cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "memory":
		return NewMemory(), nil
	case "sqlite":
		if cfg.Path == "" {
			return nil, fmt.Errorf("%w: sqlite driver requires store.path", ErrInvalidConfig)
		}
		return NewSQLite(cfg.Path)
	default:
		return nil, fmt.Errorf("%w: unknown driver %q", ErrInvalidConfig, cfg.Driver)
	}
}
