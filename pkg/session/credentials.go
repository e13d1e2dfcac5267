package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/lodestar-hq/lodestar-go/pkg/credstore"
	"github.com/lodestar-hq/lodestar-go/pkg/watch"
)

// Credentials keeps the session's token pair in memory, backed by a
// credstore.Store for persistence. Reads are served from the in-memory
// mirror so hot paths like the request transport never touch the store.
//
// Every mutation notifies watchers, including writes that stored the same
// values again. Observers that derive state from the tokens must re-derive
// on every event, not just on value changes.
type Credentials struct {
	store credstore.Store
	rev   *watch.Value[uint64]

	mu      sync.Mutex
	access  string
	refresh string
	seq     uint64
}

// NewCredentials wraps store. Call Load before first use to hydrate the
// mirror from a previous run.
func NewCredentials(store credstore.Store) *Credentials {
	return &Credentials{
		store: store,
		rev:   watch.NewValue[uint64](0),
	}
}

// Load reads both tokens from the backing store into the mirror. Missing
// entries load as empty strings.
func (c *Credentials) Load(ctx context.Context) error {
	access, err := c.store.Get(ctx, credstore.KindAccess)
	if err != nil {
		return fmt.Errorf("load access token: %w", err)
	}
	refresh, err := c.store.Get(ctx, credstore.KindRefresh)
	if err != nil {
		return fmt.Errorf("load refresh token: %w", err)
	}

	c.mu.Lock()
	c.access = access
	c.refresh = refresh
	c.mu.Unlock()
	return nil
}

// AccessToken returns the mirrored access token, empty when signed out.
func (c *Credentials) AccessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.access
}

// RefreshToken returns the mirrored refresh token, empty when signed out.
func (c *Credentials) RefreshToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refresh
}

// HasAccessToken reports whether an access token is currently held.
func (c *Credentials) HasAccessToken() bool {
	return c.AccessToken() != ""
}

// StoreTokens persists a token pair and updates the mirror. An empty
// refresh token keeps the stored one, matching refresh responses that omit
// refresh_token when the old one stays valid.
func (c *Credentials) StoreTokens(ctx context.Context, access, refresh string) error {
	c.mu.Lock()
	if err := c.store.Set(ctx, credstore.KindAccess, access); err != nil {
		c.mu.Unlock()
		return fmt.Errorf("store access token: %w", err)
	}
	c.access = access
	if refresh != "" {
		if err := c.store.Set(ctx, credstore.KindRefresh, refresh); err != nil {
			c.mu.Unlock()
			return fmt.Errorf("store refresh token: %w", err)
		}
		c.refresh = refresh
	}
	seq := c.bumpLocked()
	c.mu.Unlock()

	c.rev.Set(seq)
	return nil
}

// Clear removes both tokens from the store and the mirror. Clearing an
// already-empty pair still notifies watchers.
func (c *Credentials) Clear(ctx context.Context) error {
	c.mu.Lock()
	if err := c.store.Clear(ctx); err != nil {
		c.mu.Unlock()
		return fmt.Errorf("clear credentials: %w", err)
	}
	c.access = ""
	c.refresh = ""
	seq := c.bumpLocked()
	c.mu.Unlock()

	c.rev.Set(seq)
	return nil
}

// Watch registers fn to run after every mutation. The returned function
// cancels the registration.
func (c *Credentials) Watch(fn func()) func() {
	return c.rev.Subscribe(func(uint64) { fn() })
}

// Close releases the backing store.
func (c *Credentials) Close() error {
	return c.store.Close()
}

func (c *Credentials) bumpLocked() uint64 {
	c.seq++
	return c.seq
}
