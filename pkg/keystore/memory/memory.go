// Package memory provides an in-process keystore implementation for tests
// and single-node deployments.
package memory

import (
	"context"
	"sync"

	"github.com/caselab/runway/pkg/keystore"
)

// KeyStore implements keystore.KeyStore with a mutex-guarded map. PutIfAbsent
// is atomic within the process.
type KeyStore struct {
	mu     sync.Mutex
	values map[string]string
}

// NewKeyStore creates an empty in-memory keystore.
func NewKeyStore() *KeyStore {
	return &KeyStore{
		values: make(map[string]string),
	}
}

func (s *KeyStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	value, ok := s.values[key]
	if !ok {
		return "", keystore.ErrKeyNotFound
	}

	return value, nil
}

func (s *KeyStore) PutIfAbsent(_ context.Context, key, value string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.values[key]; ok {
		return existing, false, nil
	}

	s.values[key] = value

	return value, true, nil
}

func (s *KeyStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, key)

	return nil
}

func (s *KeyStore) Close(_ context.Context) error {
	return nil
}
