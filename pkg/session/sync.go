package session

import (
	"context"
	"log/slog"
)

// Synchronizer keeps session state aligned with the credential store and
// the profile source. It re-evaluates after every credential or profile
// event and applies one rule per evaluation:
//
//   - no access token held: nothing to do
//   - a fetch is in flight: wait for it
//   - the profile is known: project its summary into session state
//   - the fetch failed while a token is held: drop the credentials, since
//     a token that cannot identify its user does not authenticate anyone
//   - a token is held but the profile was never fetched: start a fetch
//
// Note the failure rule clears credentials, not the user: the last known
// profile stays visible while Authenticated goes false.
type Synchronizer struct {
	creds   *Credentials
	state   *State
	profile *ProfileSource
	log     *slog.Logger
}

// NewSynchronizer wires the three session parts together without starting
// anything.
func NewSynchronizer(creds *Credentials, state *State, profile *ProfileSource, log *slog.Logger) *Synchronizer {
	return &Synchronizer{
		creds:   creds,
		state:   state,
		profile: profile,
		log:     log,
	}
}

// Start subscribes to credential and profile events and runs one initial
// evaluation. The returned function cancels both subscriptions.
func (s *Synchronizer) Start(ctx context.Context) func() {
	unsubCreds := s.creds.Watch(func() { s.reevaluate(ctx) })
	unsubProfile := s.profile.Watch(func() { s.reevaluate(ctx) })
	s.reevaluate(ctx)

	return func() {
		unsubCreds()
		unsubProfile()
	}
}

func (s *Synchronizer) reevaluate(ctx context.Context) {
	if !s.creds.HasAccessToken() {
		return
	}

	snap := s.profile.Snapshot()
	switch {
	case snap.Loading:
		return
	case snap.User != nil:
		s.state.setUser(snap.User.Summary())
	case snap.Err != nil:
		s.log.Warn("profile fetch failed, dropping credentials", "error", snap.Err)
		if err := s.creds.Clear(ctx); err != nil {
			s.log.Error("credential clear failed", "error", err)
		}
	default:
		s.profile.Load(ctx)
	}
}
