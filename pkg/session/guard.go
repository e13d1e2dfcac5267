package session

import "context"

// Guard gates entry to destinations that require an authenticated session.
// It waits for initialization to settle before answering, so a page load
// with a stored token is not bounced to login while the profile is still
// on the wire.
type Guard struct {
	state *State
	gate  *Gate
}

// Check blocks until initialization settles, then reports whether the
// session may proceed to an authenticated destination. The error is ctx's,
// when the wait is abandoned.
func (g *Guard) Check(ctx context.Context) (bool, error) {
	if err := g.gate.Wait(ctx); err != nil {
		return false, err
	}
	return g.state.Authenticated(), nil
}
