package session

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultInitTimeout bounds how long session initialization waits for the
// first profile settlement before opening the gate anyway.
const DefaultInitTimeout = 5 * time.Second

// Gate marks the moment the session is ready to be consulted: either the
// stored token produced a profile outcome, or there was no token, or the
// wait timed out. The gate opens exactly once and never blocks forever,
// whatever the profile fetch does, including panicking.
type Gate struct {
	creds   *Credentials
	profile *ProfileSource
	timeout time.Duration
	log     *slog.Logger
	done    chan struct{}
	once    sync.Once
}

// NewGate builds a gate over creds and profile. A non-positive timeout
// falls back to DefaultInitTimeout.
func NewGate(creds *Credentials, profile *ProfileSource, timeout time.Duration, log *slog.Logger) *Gate {
	if timeout <= 0 {
		timeout = DefaultInitTimeout
	}
	return &Gate{
		creds:   creds,
		profile: profile,
		timeout: timeout,
		log:     log,
		done:    make(chan struct{}),
	}
}

// Run starts the initialization sequence in the background. Only the first
// of Run and Abort does anything.
func (g *Gate) Run(ctx context.Context) {
	g.once.Do(func() {
		go g.run(ctx)
	})
}

// Abort resolves the gate when the initialization sequence cannot even
// begin, typically because the stored pair could not be read. The pair is
// dropped so a later read cannot resurrect it. Only the first of Abort and
// Run does anything.
func (g *Gate) Abort(ctx context.Context) {
	g.once.Do(func() {
		defer close(g.done)
		g.log.Warn("session init aborted, dropping credentials")
		if err := g.creds.Clear(context.WithoutCancel(ctx)); err != nil {
			g.log.Error("credential clear failed", "error", err)
		}
	})
}

// Ready returns a channel that closes when initialization settled.
func (g *Gate) Ready() <-chan struct{} {
	return g.done
}

// Wait blocks until initialization settled or ctx is done.
func (g *Gate) Wait(ctx context.Context) error {
	select {
	case <-g.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *Gate) run(ctx context.Context) {
	defer close(g.done)
	defer func() {
		if r := recover(); r != nil {
			g.log.Error("session init panicked, dropping credentials", "panic", r)
			if err := g.creds.Clear(context.WithoutCancel(ctx)); err != nil {
				g.log.Error("credential clear failed", "error", err)
			}
		}
	}()

	// 1. Without a stored token there is no session to restore.
	if !g.creds.HasAccessToken() {
		g.log.Debug("session init: no stored token")
		return
	}

	// 2. Watch for the first settled snapshot, then trigger the fetch.
	// Subscribing first means a fetch that settles immediately is not
	// missed.
	settled := make(chan struct{}, 1)
	unsub := g.profile.Watch(func() {
		snap := g.profile.Snapshot()
		if snap.Loading {
			return
		}
		if snap.User != nil || snap.Err != nil {
			select {
			case settled <- struct{}{}:
			default:
			}
		}
	})
	defer unsub()

	g.profile.Load(ctx)

	// 3. First settlement wins: a result, the timeout, or cancellation.
	timer := time.NewTimer(g.timeout)
	defer timer.Stop()
	select {
	case <-settled:
		g.log.Debug("session init settled")
	case <-timer.C:
		// The stored token could not be validated in time. Drop it: a
		// late settlement may still update state, but it can no longer
		// authenticate this session.
		g.log.Warn("session init timed out, dropping credentials", "timeout", g.timeout)
		if err := g.creds.Clear(context.WithoutCancel(ctx)); err != nil {
			g.log.Error("credential clear failed", "error", err)
		}
	case <-ctx.Done():
		g.log.Debug("session init canceled", "error", ctx.Err())
	}
}
