package filelock

import (
	"context"
	"sync"
)

// Memory implements ports.LockProvider in process memory. Tests use it to
// simulate lock contention and holder crashes deterministically instead
// of depending on real filesystem timing.
type Memory struct {
	mu    sync.Mutex
	locks map[string]chan struct{}

	// Acquired, when non-nil, receives each path as its lock is taken.
	Acquired chan string
}

// NewMemory creates an in-memory lock provider.
func NewMemory() *Memory {
	return &Memory{locks: make(map[string]chan struct{})}
}

// Acquire takes the named lock, honoring ctx cancellation while blocked.
func (m *Memory) Acquire(ctx context.Context, path string) (func(), error) {
	for {
		m.mu.Lock()
		held, ok := m.locks[path]
		if !ok {
			ch := make(chan struct{})
			m.locks[path] = ch
			m.mu.Unlock()
			if m.Acquired != nil {
				m.Acquired <- path
			}
			var once sync.Once
			return func() {
				once.Do(func() {
					m.mu.Lock()
					delete(m.locks, path)
					m.mu.Unlock()
					close(ch)
				})
			}, nil
		}
		m.mu.Unlock()

		select {
		case <-held:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Held reports whether the named lock is currently taken.
func (m *Memory) Held(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.locks[path]
	return ok
}
