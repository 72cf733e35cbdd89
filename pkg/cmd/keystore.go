package cmd

import (
	"fmt"
	"strings"

	"github.com/caselab/runway/pkg/keystore"
	"github.com/caselab/runway/pkg/keystore/memory"
	"github.com/caselab/runway/pkg/keystore/redis"
)

// NewKeyStore builds a key store from a URL. redis:// URLs get the shared
// Redis store; anything else falls back to the in-process store, which is
// only safe for a single instance.
func NewKeyStore(url, prefix string) (keystore.KeyStore, error) {
	if strings.HasPrefix(url, "redis://") || strings.HasPrefix(url, "rediss://") {
		store, err := redis.NewKeyStore(url, prefix)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize redis key store: %w", err)
		}

		return store, nil
	}

	return memory.NewKeyStore(), nil
}
