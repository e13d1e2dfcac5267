package credstore

import (
	"context"
	"sync"
)

// Memory is the in-process Store. It is the default for SDK consumers that
// scope credentials to a single run, and the workhorse for tests.
type Memory struct {
	mu      sync.Mutex
	entries map[Kind]string
	closed  bool
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{entries: make(map[Kind]string)}
}

func (m *Memory) Get(_ context.Context, kind Kind) (string, error) {
	if !ValidKind(kind) {
		return "", ErrInvalidKind
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return "", ErrClosed
	}
	return m.entries[kind], nil
}

func (m *Memory) Set(_ context.Context, kind Kind, value string) error {
	if !ValidKind(kind) {
		return ErrInvalidKind
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.entries[kind] = value
	return nil
}

func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	delete(m.entries, KindAccess)
	delete(m.entries, KindRefresh)
	return nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
