package registry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinywideclouds/go-apns/registry"
)

func TestMemoryRegistry(t *testing.T) {
	ctx := context.Background()
	reg := registry.NewMemoryRegistry()

	t.Run("Register is an upsert", func(t *testing.T) {
		require.NoError(t, reg.Register(ctx, "user-1", "token-a"))
		require.NoError(t, reg.Register(ctx, "user-1", "token-a"))
		require.NoError(t, reg.Register(ctx, "user-1", "token-b"))

		tokens, err := reg.Tokens(ctx, "user-1")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"token-a", "token-b"}, tokens)
	})

	t.Run("Unregister removes one token", func(t *testing.T) {
		require.NoError(t, reg.Unregister(ctx, "user-1", "token-a"))

		tokens, err := reg.Tokens(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, []string{"token-b"}, tokens)
	})

	t.Run("Unknown recipient yields no tokens", func(t *testing.T) {
		tokens, err := reg.Tokens(ctx, "nobody")
		require.NoError(t, err)
		assert.Empty(t, tokens)
	})

	t.Run("Unregister of unknown token is a no-op", func(t *testing.T) {
		assert.NoError(t, reg.Unregister(ctx, "nobody", "nothing"))
	})
}
