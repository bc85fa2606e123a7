package filelock_test

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/grip/internal/adapters/filelock"
)

func TestMemory_MutualExclusion(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		m := filelock.NewMemory()
		ctx := context.Background()

		release, err := m.Acquire(ctx, "pkg/1.0.0.lock")
		require.NoError(t, err)
		require.True(t, m.Held("pkg/1.0.0.lock"))

		var second atomic.Bool
		go func() {
			rel, err := m.Acquire(ctx, "pkg/1.0.0.lock")
			if err != nil {
				return
			}
			second.Store(true)
			rel()
		}()

		// The second acquirer stays blocked until the first releases.
		synctest.Wait()
		assert.False(t, second.Load())

		release()
		synctest.Wait()
		assert.True(t, second.Load())
		assert.False(t, m.Held("pkg/1.0.0.lock"))
	})
}

func TestMemory_CancelWhileBlocked(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		m := filelock.NewMemory()
		release, err := m.Acquire(context.Background(), "pkg.lock")
		require.NoError(t, err)
		defer release()

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		_, err = m.Acquire(ctx, "pkg.lock")
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestMemory_ReleaseIdempotent(t *testing.T) {
	m := filelock.NewMemory()
	release, err := m.Acquire(context.Background(), "pkg.lock")
	require.NoError(t, err)

	release()
	release()
	assert.False(t, m.Held("pkg.lock"))
}

func TestMemory_IndependentPaths(t *testing.T) {
	m := filelock.NewMemory()
	relA, err := m.Acquire(context.Background(), "a.lock")
	require.NoError(t, err)
	defer relA()

	// A lock on one path never blocks another path.
	relB, err := m.Acquire(context.Background(), "b.lock")
	require.NoError(t, err)
	relB()
}

func TestFlock_AcquireRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pkg", "1.0.0.lock")
	f := filelock.New()

	release, err := f.Acquire(context.Background(), path)
	require.NoError(t, err)
	release()

	// Released locks are immediately re-acquirable.
	release, err = f.Acquire(context.Background(), path)
	require.NoError(t, err)
	release()
}

func TestFlock_BlockedAcquireHonorsDeadline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pkg.lock")
	f := filelock.New()

	release, err := f.Acquire(context.Background(), path)
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
	defer cancel()

	_, err = f.Acquire(ctx, path)
	assert.Error(t, err)
}
