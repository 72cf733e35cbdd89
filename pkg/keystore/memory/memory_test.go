package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caselab/runway/pkg/keystore"
)

func TestGetMissingKey(t *testing.T) {
	store := NewKeyStore()

	_, err := store.Get(context.Background(), "missing")
	assert.True(t, keystore.IsKeyNotFound(err))
}

func TestPutIfAbsent(t *testing.T) {
	store := NewKeyStore()
	ctx := context.Background()

	winner, stored, err := store.PutIfAbsent(ctx, "k", "first")
	require.NoError(t, err)
	assert.True(t, stored)
	assert.Equal(t, "first", winner)

	winner, stored, err = store.PutIfAbsent(ctx, "k", "second")
	require.NoError(t, err)
	assert.False(t, stored)
	assert.Equal(t, "first", winner)

	value, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "first", value)
}

func TestDelete(t *testing.T) {
	store := NewKeyStore()
	ctx := context.Background()

	_, _, err := store.PutIfAbsent(ctx, "k", "v")
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, "k"))

	_, err = store.Get(ctx, "k")
	assert.True(t, keystore.IsKeyNotFound(err))

	// Deleting an absent key is not an error.
	assert.NoError(t, store.Delete(ctx, "k"))
}

func TestPutIfAbsentSingleWinnerUnderContention(t *testing.T) {
	store := NewKeyStore()
	ctx := context.Background()

	const goroutines = 32

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, stored, err := store.PutIfAbsent(ctx, "contended", "v")
			assert.NoError(t, err)

			if stored {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, 1, wins)
}
