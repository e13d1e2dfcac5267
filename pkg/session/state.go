package session

import (
	"github.com/lodestar-hq/lodestar-go/pkg/lodestar"
	"github.com/lodestar-hq/lodestar-go/pkg/watch"
)

// State is the observable session state: the current user and the derived
// authenticated flag. Authenticated is true exactly while a user is known
// and an access token is held, and is recomputed after every user or
// credential event, so the flag can only ever lag a mutation by the length
// of its own notification.
type State struct {
	creds  *Credentials
	user   *watch.Value[*lodestar.UserSummary]
	authed *watch.Value[bool]
}

// NewState derives state from creds. The credential subscription lives as
// long as the state itself.
func NewState(creds *Credentials) *State {
	s := &State{
		creds:  creds,
		user:   watch.NewValue[*lodestar.UserSummary](nil),
		authed: watch.NewValue(false),
	}
	creds.Watch(s.recompute)
	return s
}

// CurrentUser returns the last synchronized profile summary, nil when
// signed out.
func (s *State) CurrentUser() *lodestar.UserSummary {
	return s.user.Get()
}

// Authenticated reports whether a user is known and a token is held.
func (s *State) Authenticated() bool {
	return s.authed.Get()
}

// WatchUser observes user changes. Callbacks may repeat a value.
func (s *State) WatchUser(fn func(*lodestar.UserSummary)) func() {
	return s.user.Subscribe(fn)
}

// WatchAuthenticated observes the authenticated flag. Callbacks may repeat
// a value.
func (s *State) WatchAuthenticated(fn func(bool)) func() {
	return s.authed.Subscribe(fn)
}

func (s *State) setUser(u *lodestar.UserSummary) {
	s.user.Set(u)
	s.recompute()
}

func (s *State) recompute() {
	s.authed.Set(s.user.Get() != nil && s.creds.HasAccessToken())
}
