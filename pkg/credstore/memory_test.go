package credstore_test

import (
	"context"
	"testing"

	"github.com/lodestar-hq/lodestar-go/pkg/credstore"
	"github.com/lodestar-hq/lodestar-go/pkg/credstore/storetest"
	"github.com/stretchr/testify/require"
)

func TestMemoryConformance(t *testing.T) {
	t.Parallel()

	storetest.Run(t, func(t *testing.T) credstore.Store {
		return credstore.NewMemory()
	})
}

func TestMemoryClosed(t *testing.T) {
	t.Parallel()

	s := credstore.NewMemory()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, credstore.KindAccess, "T1"))
	require.NoError(t, s.Close())

	_, err := s.Get(ctx, credstore.KindAccess)
	require.ErrorIs(t, err, credstore.ErrClosed)

	err = s.Set(ctx, credstore.KindAccess, "T2")
	require.ErrorIs(t, err, credstore.ErrClosed)

	err = s.Clear(ctx)
	require.ErrorIs(t, err, credstore.ErrClosed)
}
