// Package redis provides a redis-backed keystore implementation. SETNX gives
// the atomic compare-and-set the idempotency index needs across processes.
package redis

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/caselab/runway/pkg/keystore"
)

// KeyStore implements keystore.KeyStore on a redis instance. Keys are
// namespaced with a prefix so the idempotency and correlation indexes can
// share one database.
type KeyStore struct {
	client goredis.UniversalClient
	prefix string
}

// NewKeyStore creates a keystore from a redis URL (redis://host:port/db).
func NewKeyStore(url, prefix string) (*KeyStore, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	return &KeyStore{
		client: goredis.NewClient(opts),
		prefix: prefix,
	}, nil
}

// NewKeyStoreWithClient creates a keystore on an existing client, used when
// several stores share one connection.
func NewKeyStoreWithClient(client goredis.UniversalClient, prefix string) *KeyStore {
	return &KeyStore{
		client: client,
		prefix: prefix,
	}
}

func (s *KeyStore) key(key string) string {
	return s.prefix + ":" + key
}

func (s *KeyStore) Get(ctx context.Context, key string) (string, error) {
	value, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, goredis.Nil) {
		return "", keystore.ErrKeyNotFound
	}

	if err != nil {
		return "", fmt.Errorf("redis get failed: %w", err)
	}

	return value, nil
}

func (s *KeyStore) PutIfAbsent(ctx context.Context, key, value string) (string, bool, error) {
	stored, err := s.client.SetNX(ctx, s.key(key), value, 0).Result()
	if err != nil {
		return "", false, fmt.Errorf("redis setnx failed: %w", err)
	}

	if stored {
		return value, true, nil
	}

	existing, err := s.Get(ctx, key)
	if err != nil {
		// The winning entry disappeared between SETNX and GET; report the
		// claim as lost with no winner rather than guessing.
		return "", false, err
	}

	return existing, false, nil
}

func (s *KeyStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("redis del failed: %w", err)
	}

	return nil
}

func (s *KeyStore) Close(_ context.Context) error {
	return s.client.Close()
}
