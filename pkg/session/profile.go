package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/lodestar-hq/lodestar-go/pkg/lodestar"
	"github.com/lodestar-hq/lodestar-go/pkg/watch"
)

// errNoProfile marks a fetch that produced neither a user nor an error. A
// snapshot must settle as one or the other, or observers would treat it as
// never fetched and fetch again forever.
var errNoProfile = errors.New("session: profile fetch returned no user")

// ProfileFetcher fetches the authenticated user's profile. *lodestar.Client
// satisfies it.
type ProfileFetcher interface {
	Me(ctx context.Context) (*lodestar.User, error)
}

// Snapshot is the last known outcome of a profile fetch. The zero Snapshot
// means the profile has never been fetched. While a fetch is in flight,
// Loading is true and User carries the previous value, if any.
type Snapshot struct {
	User    *lodestar.User
	Err     error
	Loading bool
}

// ProfileSource fetches the profile and publishes each outcome to watchers.
// Concurrent Load calls share one request. Reset detaches whatever is in
// flight, so a fetch started before a credential change can never publish
// into the session that follows it.
type ProfileSource struct {
	fetcher ProfileFetcher
	rev     *watch.Value[uint64]
	group   singleflight.Group

	mu  sync.Mutex
	cur Snapshot
	gen uint64
	seq uint64
}

// NewProfileSource fetches through fetcher.
func NewProfileSource(fetcher ProfileFetcher) *ProfileSource {
	return &ProfileSource{
		fetcher: fetcher,
		rev:     watch.NewValue[uint64](0),
	}
}

// Snapshot returns the current fetch outcome.
func (p *ProfileSource) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cur
}

// Watch registers fn to run after every snapshot change. The returned
// function cancels the registration.
func (p *ProfileSource) Watch(fn func()) func() {
	return p.rev.Subscribe(func(uint64) { fn() })
}

// Load starts a profile fetch in the background and publishes the outcome.
// Calls made while a fetch is in flight do not issue another request: the
// snapshot check skips them, and the flight group collapses any that race
// past it. A panicking fetcher publishes as an error.
func (p *ProfileSource) Load(ctx context.Context) {
	p.mu.Lock()
	if p.cur.Loading {
		p.mu.Unlock()
		return
	}
	gen := p.gen
	p.cur = Snapshot{User: p.cur.User, Loading: true}
	seq := p.bumpLocked()
	p.mu.Unlock()
	p.rev.Set(seq)

	go func() {
		var user *lodestar.User
		err := func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("profile fetch panicked: %v", r)
				}
			}()
			v, err, _ := p.group.Do("me", func() (any, error) {
				return p.fetcher.Me(ctx)
			})
			if err != nil {
				return err
			}
			user = v.(*lodestar.User)
			return nil
		}()

		if err == nil && user == nil {
			err = errNoProfile
		}
		next := Snapshot{User: user, Err: err}
		if err != nil {
			next.User = nil
		}
		p.publish(gen, next)
	}()
}

// Reset forgets the snapshot and detaches any in-flight fetch. It does not
// notify watchers; the caller follows up with the event that warranted the
// reset, typically a credential change.
func (p *ProfileSource) Reset() {
	p.mu.Lock()
	p.gen++
	p.cur = Snapshot{}
	p.mu.Unlock()
	p.group.Forget("me")
}

// publish installs next unless the source was reset after gen was taken.
func (p *ProfileSource) publish(gen uint64, next Snapshot) {
	p.mu.Lock()
	if gen != p.gen {
		p.mu.Unlock()
		return
	}
	p.cur = next
	seq := p.bumpLocked()
	p.mu.Unlock()
	p.rev.Set(seq)
}

func (p *ProfileSource) bumpLocked() uint64 {
	p.seq++
	return p.seq
}
