package lock_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/sift/internal/adapters/lock"
	"go.trai.ch/sift/internal/core/domain"
	"go.trai.ch/sift/internal/core/ports"
	"go.trai.ch/sift/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func newManager(t *testing.T) (*lock.Manager, *mocks.MockLogger) {
	t.Helper()
	log := mocks.NewMockLogger(gomock.NewController(t))
	m := lock.NewManager(log)
	m.SetClock(time.Now, 5*time.Millisecond)
	return m, log
}

func req(runID string) ports.LockRequest {
	return ports.LockRequest{Kind: domain.LockAudit, RunID: runID, StaleAfter: time.Minute}
}

func writeLock(t *testing.T, root string, info domain.LockInfo) string {
	t.Helper()
	path := filepath.Join(domain.LocksPath(root), string(info.Kind)+".lock")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	data, err := json.Marshal(info)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestManager_AcquireRelease(t *testing.T) {
	root := t.TempDir()
	m, _ := newManager(t)

	h, err := m.Acquire(root, req("run-1"))
	require.NoError(t, err)
	assert.Equal(t, "run-1", h.RunID())
	assert.True(t, m.Owns(h))

	held, holder, err := m.IsHeld(root, domain.LockAudit)
	require.NoError(t, err)
	assert.True(t, held)
	assert.Equal(t, os.Getpid(), holder.PID)

	_, err = m.Acquire(root, req("run-2"))
	require.ErrorIs(t, err, domain.ErrLockBusy)

	// Other lock kinds are independent.
	cov, err := m.Acquire(root, ports.LockRequest{Kind: domain.LockCoverage, RunID: "run-2"})
	require.NoError(t, err)
	require.NoError(t, m.Release(cov))

	require.NoError(t, m.Release(h))
	require.NoError(t, m.Release(h), "release is idempotent")
	assert.False(t, m.Owns(h))

	held, _, err = m.IsHeld(root, domain.LockAudit)
	require.NoError(t, err)
	assert.False(t, held)
}

func TestManager_StaleLockIsReclaimed(t *testing.T) {
	root := t.TempDir()
	m, log := newManager(t)

	writeLock(t, root, domain.LockInfo{
		Kind:       domain.LockAudit,
		PID:        4242,
		RunID:      "crashed",
		AcquiredAt: time.Now().Add(-2 * time.Minute),
		StaleAfter: time.Minute,
	})

	log.EXPECT().Warn(gomock.Any()).Times(2)

	held, holder, err := m.IsHeld(root, domain.LockAudit)
	require.NoError(t, err)
	assert.False(t, held)
	assert.Equal(t, 4242, holder.PID)

	h, err := m.Acquire(root, req("run-1"))
	require.NoError(t, err)
	assert.True(t, m.Owns(h))
}

func TestManager_UnparsableLockUsesMtime(t *testing.T) {
	root := t.TempDir()
	m, log := newManager(t)

	path := filepath.Join(domain.LocksPath(root), "audit.lock")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte("12345\n"), 0o600))

	_, err := m.Acquire(root, req("run-1"))
	require.ErrorIs(t, err, domain.ErrLockBusy)

	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(path, old, old))

	log.EXPECT().Warn(gomock.Any())
	h, err := m.Acquire(root, req("run-1"))
	require.NoError(t, err)
	assert.True(t, m.Owns(h))
}

func TestManager_ReleaseRespectsFencing(t *testing.T) {
	root := t.TempDir()
	m, _ := newManager(t)

	h, err := m.Acquire(root, req("run-1"))
	require.NoError(t, err)

	// Another run reclaimed the lock in the meantime.
	writeLock(t, root, domain.LockInfo{Kind: domain.LockAudit, RunID: "run-2", AcquiredAt: time.Now()})

	assert.False(t, m.Owns(h))
	require.NoError(t, m.Release(h))

	held, holder, err := m.IsHeld(root, domain.LockAudit)
	require.NoError(t, err)
	assert.True(t, held)
	assert.Equal(t, "run-2", holder.RunID)
}

func TestManager_AcquireWait(t *testing.T) {
	t.Run("gives up after the wait", func(t *testing.T) {
		root := t.TempDir()
		m, _ := newManager(t)

		_, err := m.Acquire(root, req("holder"))
		require.NoError(t, err)

		start := time.Now()
		_, err = m.AcquireWait(t.Context(), root, req("waiter"), 30*time.Millisecond)
		require.ErrorIs(t, err, domain.ErrLockBusy)
		assert.Less(t, time.Since(start), 5*time.Second)
	})

	t.Run("succeeds once the holder releases", func(t *testing.T) {
		root := t.TempDir()
		m, _ := newManager(t)

		holder, err := m.Acquire(root, req("holder"))
		require.NoError(t, err)

		go func() {
			time.Sleep(20 * time.Millisecond)
			_ = m.Release(holder)
		}()

		h, err := m.AcquireWait(t.Context(), root, req("waiter"), 5*time.Second)
		require.NoError(t, err)
		assert.Equal(t, "waiter", h.RunID())
	})
}
