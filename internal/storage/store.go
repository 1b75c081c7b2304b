// Package storage is the durable key-value capability the session is
// persisted through. Implementations write and clear groups of keys as one
// unit.
package storage

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by Get when the key holds no value.
	ErrNotFound = errors.New("key not found")

	// ErrCorrupt is returned by Get when the persisted document cannot be
	// decoded. Writes replace such a document instead of failing.
	ErrCorrupt = errors.New("stored session is unreadable")
)

// Store persists string values by key.
type Store interface {
	// Get returns the value for key or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set writes all values as a single unit: either every key is written or none.
	Set(ctx context.Context, values map[string]string) error

	// Clear removes keys as a single unit. Absent keys are not an error.
	Clear(ctx context.Context, keys ...string) error
}
