package storage

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testStoreContract exercises the behaviour every Store backend shares.
func testStoreContract(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("missing key", func(t *testing.T) {
		_, err := s.Get(ctx, "absent")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("set then get", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "translation_rate_limit", `{"used_count":1}`))

		value, err := s.Get(ctx, "translation_rate_limit")
		require.NoError(t, err)
		assert.Equal(t, `{"used_count":1}`, value)
	})

	t.Run("overwrite", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "overwrite", "first"))
		require.NoError(t, s.Set(ctx, "overwrite", "second"))

		value, err := s.Get(ctx, "overwrite")
		require.NoError(t, err)
		assert.Equal(t, "second", value)
	})

	t.Run("keys are independent", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "a", "1"))
		require.NoError(t, s.Set(ctx, "b", "2"))

		a, err := s.Get(ctx, "a")
		require.NoError(t, err)
		b, err := s.Get(ctx, "b")
		require.NoError(t, err)
		assert.Equal(t, "1", a)
		assert.Equal(t, "2", b)
	})

	t.Run("concurrent writers", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := range 10 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, s.Set(ctx, fmt.Sprintf("concurrent-%d", i), fmt.Sprint(i)))
			}()
		}
		wg.Wait()

		for i := range 10 {
			value, err := s.Get(ctx, fmt.Sprintf("concurrent-%d", i))
			require.NoError(t, err)
			assert.Equal(t, fmt.Sprint(i), value)
		}
	})

	t.Run("ping", func(t *testing.T) {
		assert.NoError(t, s.Ping(ctx))
	})
}
