// Package credstore persists the session's credential pair: one access token
// and one refresh token, stored as two independent string entries. Drivers
// range from an in-memory map to encrypted-file, SQLite and Redis backends;
// all of them honor the same contract, most importantly that Clear removes
// the whole pair and is idempotent.
package credstore

import (
	"context"
	"errors"
)

// Kind selects one of the two credential entries. The values double as the
// storage keys, matching the platform's conventional layout.
type Kind string

const (
	KindAccess  Kind = "access_token"
	KindRefresh Kind = "refresh_token"
)

var (
	// ErrClosed reports use of a store after Close.
	ErrClosed = errors.New("credstore: closed")

	// ErrInvalidKind reports a Kind outside access/refresh.
	ErrInvalidKind = errors.New("credstore: invalid kind")
)

// Store is the credential persistence contract.
//
// Get returns the stored value for kind, or an empty string with a nil error
// when no entry exists. Absence is a normal state, not a failure. Set writes
// or overwrites a single entry without validating the token shape. Clear
// removes both entries; clearing an already-empty store is a no-op.
type Store interface {
	Get(ctx context.Context, kind Kind) (string, error)
	Set(ctx context.Context, kind Kind, value string) error
	Clear(ctx context.Context) error
	Close() error
}

// ValidKind reports whether kind is one of the two known entries.
func ValidKind(kind Kind) bool {
	return kind == KindAccess || kind == KindRefresh
}
