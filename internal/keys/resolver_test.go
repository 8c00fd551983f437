package keys

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTenantResolver(t *testing.T) {
	ctx := context.Background()

	t.Run("first binding wins", func(t *testing.T) {
		store := newMemStore()
		store.addTenant("noro")
		first, second := uuid.New(), uuid.New()
		store.bind("u1", first)
		store.bind("u1", second)

		id, found, err := TenantResolver{FallbackSlug: "noro"}.Resolve(ctx, store, Actor{UserID: "u1"})
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, first, id)
	})

	t.Run("falls back to slug", func(t *testing.T) {
		store := newMemStore()
		fallback := store.addTenant("noro")

		id, found, err := TenantResolver{FallbackSlug: "noro"}.Resolve(ctx, store, Actor{UserID: "u2"})
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, fallback, id)
	})

	t.Run("anonymous actor uses fallback", func(t *testing.T) {
		store := newMemStore()
		fallback := store.addTenant("noro")

		id, found, err := TenantResolver{FallbackSlug: "noro"}.Resolve(ctx, store, Actor{})
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, fallback, id)
	})

	t.Run("nothing found", func(t *testing.T) {
		store := newMemStore()

		id, found, err := TenantResolver{FallbackSlug: "noro"}.Resolve(ctx, store, Actor{UserID: "u3"})
		require.NoError(t, err)
		assert.False(t, found)
		assert.Equal(t, uuid.Nil, id)
	})

	t.Run("store failure", func(t *testing.T) {
		store := newMemStore()
		store.addTenant("noro")
		store.bindingErr = errors.New("connection reset")

		_, found, err := TenantResolver{FallbackSlug: "noro"}.Resolve(ctx, store, Actor{UserID: "u4"})
		assert.Error(t, err)
		assert.False(t, found)
	})
}
