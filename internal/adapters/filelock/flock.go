// Package filelock provides cross-process lock providers: an advisory
// file lock backed by the OS and an in-memory fake for tests.
package filelock

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"go.trai.ch/zerr"
)

// retryInterval is how often a blocked Acquire re-attempts the lock.
const retryInterval = 100 * time.Millisecond

// Flock implements ports.LockProvider with OS advisory file locks
// (gofrs/flock). The lock is tied to the holding process: a crashed
// holder's lock is released by the kernel, so waiters are never starved
// by a stale lock and no side-channel staleness detection is needed.
type Flock struct{}

// New creates a file-lock provider.
func New() *Flock {
	return &Flock{}
}

// Acquire takes the advisory lock at path, polling until it is held or
// ctx expires. The lock file's parent directory is created if missing;
// the lock file itself outlives the lock, which is why cache lock files
// live alongside their entry directories rather than inside them.
func (f *Flock) Acquire(ctx context.Context, path string) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, zerr.Wrap(err, "failed to create lock directory")
	}

	fl := flock.New(path)
	ok, err := fl.TryLockContext(ctx, retryInterval)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ctx.Err()
	}
	return func() {
		_ = fl.Unlock()
	}, nil
}
