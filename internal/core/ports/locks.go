package ports

import "context"

//go:generate go run go.uber.org/mock/mockgen -source=locks.go -destination=mocks/mock_locks.go -package=mocks

// LockProvider hands out exclusive, named, cross-process locks. The
// package cache scopes one lock per (cache root, name, version) so
// concurrent invocations never race on the same fetch.
type LockProvider interface {
	// Acquire takes the lock named by path, blocking until it is held or
	// ctx expires. The returned release function must be called exactly
	// once. A ctx deadline hit surfaces as context.DeadlineExceeded;
	// the cache maps it to ErrCacheLockTimeout.
	Acquire(ctx context.Context, path string) (release func(), err error)
}
