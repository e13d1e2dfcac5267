package session_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lodestar-hq/lodestar-go/internal/apitest"
	"github.com/lodestar-hq/lodestar-go/pkg/credstore"
	"github.com/lodestar-hq/lodestar-go/pkg/lodestar"
)

// TestRefreshKeepsOmittedRefreshToken: a refresh response without a
// refresh_token means the old one stays valid, so the stored one must
// survive the write.
func TestRefreshKeepsOmittedRefreshToken(t *testing.T) {
	t.Parallel()
	h := setupSession(t)
	tokens := h.signIn(t)

	ctx := context.Background()
	fresh, err := h.client.Refresh(ctx, tokens.RefreshToken)
	require.NoError(t, err)
	require.Empty(t, fresh.RefreshToken, "fake API should omit refresh_token without rotation")
	require.NoError(t, h.manager.StoreTokens(ctx, fresh))

	require.Equal(t, fresh.AccessToken, h.storedToken(t, credstore.KindAccess))
	require.Equal(t, tokens.RefreshToken, h.storedToken(t, credstore.KindRefresh))
	h.waitAuthenticated(t)
}

func TestRefreshWithRotation(t *testing.T) {
	t.Parallel()
	h := setupSession(t, withAPIOptions(apitest.WithRefreshRotation()))
	tokens := h.signIn(t)

	ctx := context.Background()
	fresh, err := h.client.Refresh(ctx, tokens.RefreshToken)
	require.NoError(t, err)
	require.NotEmpty(t, fresh.RefreshToken)
	require.NotEqual(t, tokens.RefreshToken, fresh.RefreshToken)
	require.NoError(t, h.manager.StoreTokens(ctx, fresh))

	require.Equal(t, fresh.RefreshToken, h.storedToken(t, credstore.KindRefresh))

	// The rotated-out token is gone on the server side.
	_, err = h.client.Refresh(ctx, tokens.RefreshToken)
	var apiErr *lodestar.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, 401, apiErr.StatusCode)
}

// TestStaleRefreshRejection: a 401 from /auth/refresh is an auth-endpoint
// rejection, not a session expiry, so nothing is torn down automatically.
func TestStaleRefreshRejection(t *testing.T) {
	t.Parallel()
	h := setupSession(t)
	h.signIn(t)

	_, err := h.client.Refresh(context.Background(), "no-such-refresh-token")
	var apiErr *lodestar.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, 401, apiErr.StatusCode)

	require.Equal(t, 0, h.rec.redirectCount())
	require.True(t, h.manager.State().Authenticated())
	require.NotEmpty(t, h.storedToken(t, credstore.KindAccess))
}
