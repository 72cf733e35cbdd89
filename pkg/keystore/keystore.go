// Package keystore provides a keyed string store with an atomic claim
// operation. The run orchestrator uses it as the idempotency index and the
// dispatch/webhook layers use it as the pipeline correlation index; backing
// it with an atomic store eliminates duplicate runs under racing requests.
package keystore

import (
	"context"
	"errors"
)

// ErrKeyNotFound indicates the key has no stored value.
var ErrKeyNotFound = errors.New("key not found")

type KeyStore interface {
	// Get returns the value stored for key, or ErrKeyNotFound.
	Get(ctx context.Context, key string) (string, error)

	// PutIfAbsent stores value under key only when the key is vacant. It
	// returns the winning value and whether this call stored it. Existing
	// entries are never mutated in place.
	PutIfAbsent(ctx context.Context, key, value string) (string, bool, error)

	// Delete removes the key. Releasing an idempotency claim is only done
	// when run creation fails after the claim succeeded.
	Delete(ctx context.Context, key string) error

	Close(ctx context.Context) error
}

// IsKeyNotFound checks if an error indicates a missing key.
func IsKeyNotFound(err error) bool {
	return errors.Is(err, ErrKeyNotFound)
}
