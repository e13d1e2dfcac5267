// Package storetest holds the conformance suite every credstore driver runs.
// Driver test files call Run with a factory so the same contract is enforced
// across memory, file, sqlite and redis backends.
package storetest

import (
	"context"
	"testing"

	"github.com/lodestar-hq/lodestar-go/pkg/credstore"
	"github.com/stretchr/testify/require"
)

// Factory returns a fresh, empty store. Cleanup is handled via t.Cleanup.
type Factory func(t *testing.T) credstore.Store

// Run exercises the Store contract against the given factory.
func Run(t *testing.T, factory Factory) {
	t.Run("empty store reads as absent", func(t *testing.T) {
		s := factory(t)
		ctx := context.Background()

		access, err := s.Get(ctx, credstore.KindAccess)
		require.NoError(t, err)
		require.Empty(t, access)

		refresh, err := s.Get(ctx, credstore.KindRefresh)
		require.NoError(t, err)
		require.Empty(t, refresh)
	})

	t.Run("set then get round-trips", func(t *testing.T) {
		s := factory(t)
		ctx := context.Background()

		require.NoError(t, s.Set(ctx, credstore.KindAccess, "T1"))
		require.NoError(t, s.Set(ctx, credstore.KindRefresh, "T2"))

		access, err := s.Get(ctx, credstore.KindAccess)
		require.NoError(t, err)
		require.Equal(t, "T1", access)

		refresh, err := s.Get(ctx, credstore.KindRefresh)
		require.NoError(t, err)
		require.Equal(t, "T2", refresh)
	})

	t.Run("entries are independent", func(t *testing.T) {
		s := factory(t)
		ctx := context.Background()

		require.NoError(t, s.Set(ctx, credstore.KindAccess, "only-access"))

		refresh, err := s.Get(ctx, credstore.KindRefresh)
		require.NoError(t, err)
		require.Empty(t, refresh)
	})

	t.Run("set overwrites", func(t *testing.T) {
		s := factory(t)
		ctx := context.Background()

		require.NoError(t, s.Set(ctx, credstore.KindAccess, "old"))
		require.NoError(t, s.Set(ctx, credstore.KindAccess, "new"))

		access, err := s.Get(ctx, credstore.KindAccess)
		require.NoError(t, err)
		require.Equal(t, "new", access)
	})

	t.Run("clear removes the pair", func(t *testing.T) {
		s := factory(t)
		ctx := context.Background()

		require.NoError(t, s.Set(ctx, credstore.KindAccess, "T1"))
		require.NoError(t, s.Set(ctx, credstore.KindRefresh, "T2"))
		require.NoError(t, s.Clear(ctx))

		access, err := s.Get(ctx, credstore.KindAccess)
		require.NoError(t, err)
		require.Empty(t, access)

		refresh, err := s.Get(ctx, credstore.KindRefresh)
		require.NoError(t, err)
		require.Empty(t, refresh)
	})

	t.Run("clear is idempotent", func(t *testing.T) {
		s := factory(t)
		ctx := context.Background()

		require.NoError(t, s.Clear(ctx))

		require.NoError(t, s.Set(ctx, credstore.KindAccess, "T1"))
		require.NoError(t, s.Clear(ctx))
		require.NoError(t, s.Clear(ctx))

		access, err := s.Get(ctx, credstore.KindAccess)
		require.NoError(t, err)
		require.Empty(t, access)
	})

	t.Run("rejects unknown kinds", func(t *testing.T) {
		s := factory(t)
		ctx := context.Background()

		_, err := s.Get(ctx, credstore.Kind("id_token"))
		require.ErrorIs(t, err, credstore.ErrInvalidKind)

		err = s.Set(ctx, credstore.Kind("id_token"), "x")
		require.ErrorIs(t, err, credstore.ErrInvalidKind)
	})
}
