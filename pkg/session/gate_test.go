package session

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lodestar-hq/lodestar-go/pkg/credstore"
	"github.com/lodestar-hq/lodestar-go/pkg/lodestar"
)

func TestGateOpensImmediatelyWithoutToken(t *testing.T) {
	t.Parallel()

	creds := NewCredentials(credstore.NewMemory())
	profile := NewProfileSource(userFetcher(&lodestar.User{ID: "u1"}))
	gate := NewGate(creds, profile, time.Second, slog.Default())

	gate.Run(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, gate.Wait(ctx))

	// No token means no fetch.
	select {
	case <-gate.Ready():
	default:
		t.Fatal("gate not ready")
	}
}

func TestGateSettlesOnProfileSuccess(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	creds := NewCredentials(credstore.NewMemory())
	require.NoError(t, creds.StoreTokens(ctx, "access-1", "refresh-1"))

	fetcher := userFetcher(&lodestar.User{ID: "u1"})
	profile := NewProfileSource(fetcher)
	gate := NewGate(creds, profile, 5*time.Second, slog.Default())

	gate.Run(ctx)

	waitCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, gate.Wait(waitCtx))
	require.Equal(t, 1, fetcher.callCount())
	require.NotNil(t, profile.Snapshot().User)
}

func TestGateSettlesOnProfileError(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	creds := NewCredentials(credstore.NewMemory())
	require.NoError(t, creds.StoreTokens(ctx, "access-1", "refresh-1"))

	profile := NewProfileSource(errFetcher(errors.New("boom")))
	gate := NewGate(creds, profile, 5*time.Second, slog.Default())

	gate.Run(ctx)

	waitCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, gate.Wait(waitCtx))
	require.Error(t, profile.Snapshot().Err)
}

func TestGateTimesOutOnHangingFetch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	creds := NewCredentials(credstore.NewMemory())
	require.NoError(t, creds.StoreTokens(ctx, "access-1", "refresh-1"))

	hang := make(chan struct{})
	defer close(hang)
	profile := NewProfileSource(&fakeFetcher{fn: func(context.Context) (*lodestar.User, error) {
		<-hang
		return nil, errors.New("too late")
	}})
	gate := NewGate(creds, profile, 50*time.Millisecond, slog.Default())

	start := time.Now()
	gate.Run(ctx)

	waitCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, gate.Wait(waitCtx))
	require.Less(t, time.Since(start), 500*time.Millisecond)

	// The unvalidated token is dropped.
	require.False(t, creds.HasAccessToken())
}

func TestGateLateSettlementCannotReauthenticate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := credstore.NewMemory()
	creds := NewCredentials(store)
	require.NoError(t, creds.StoreTokens(ctx, "access-1", "refresh-1"))

	hang := make(chan struct{})
	profile := NewProfileSource(&fakeFetcher{fn: func(context.Context) (*lodestar.User, error) {
		<-hang
		return &lodestar.User{ID: "u1"}, nil
	}})
	state := NewState(creds)
	sync := NewSynchronizer(creds, state, profile, slog.Default())
	defer sync.Start(ctx)()

	gate := NewGate(creds, profile, 50*time.Millisecond, slog.Default())
	gate.Run(ctx)

	waitCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, gate.Wait(waitCtx))
	require.False(t, creds.HasAccessToken())

	// The fetch finally succeeds, but the timeout already committed to
	// an unauthenticated session.
	close(hang)
	time.Sleep(100 * time.Millisecond)
	require.False(t, state.Authenticated())
	require.False(t, creds.HasAccessToken())
}

func TestGateSettlesOnPanickingFetcher(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	creds := NewCredentials(credstore.NewMemory())
	require.NoError(t, creds.StoreTokens(ctx, "access-1", "refresh-1"))

	profile := NewProfileSource(&fakeFetcher{fn: func(context.Context) (*lodestar.User, error) {
		panic("fetch exploded")
	}})
	gate := NewGate(creds, profile, 5*time.Second, slog.Default())

	gate.Run(ctx)

	waitCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, gate.Wait(waitCtx))
}

func TestGateOpensEvenWhenItsOwnRunPanics(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	creds := NewCredentials(credstore.NewMemory())
	require.NoError(t, creds.StoreTokens(ctx, "access-1", "refresh-1"))

	// A nil profile makes run fall over immediately. The gate must still
	// open and the credentials must be dropped.
	gate := NewGate(creds, nil, time.Second, slog.Default())
	gate.Run(ctx)

	waitCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, gate.Wait(waitCtx))
	require.False(t, creds.HasAccessToken())
}

func TestGateAbortResolvesAndDropsCredentials(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	creds := NewCredentials(credstore.NewMemory())
	require.NoError(t, creds.StoreTokens(ctx, "access-1", "refresh-1"))

	fetcher := userFetcher(&lodestar.User{ID: "u1"})
	profile := NewProfileSource(fetcher)
	gate := NewGate(creds, profile, 5*time.Second, slog.Default())

	gate.Abort(ctx)

	waitCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, gate.Wait(waitCtx))
	require.False(t, creds.HasAccessToken())

	// Aborting consumed the one shot; running after cannot fetch.
	gate.Run(ctx)
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, 0, fetcher.callCount())
}

func TestGateRunIsOneShot(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	creds := NewCredentials(credstore.NewMemory())
	require.NoError(t, creds.StoreTokens(ctx, "access-1", "refresh-1"))

	fetcher := userFetcher(&lodestar.User{ID: "u1"})
	profile := NewProfileSource(fetcher)
	gate := NewGate(creds, profile, 5*time.Second, slog.Default())

	gate.Run(ctx)
	gate.Run(ctx)
	gate.Run(ctx)

	waitCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, gate.Wait(waitCtx))
	require.Equal(t, 1, fetcher.callCount())
}

func TestGateWaitHonorsContext(t *testing.T) {
	t.Parallel()

	creds := NewCredentials(credstore.NewMemory())
	profile := NewProfileSource(userFetcher(nil))
	gate := NewGate(creds, profile, time.Hour, slog.Default())

	// Never run, so the gate never opens on its own.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, gate.Wait(ctx), context.DeadlineExceeded)
}
