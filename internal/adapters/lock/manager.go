// Package lock implements cross-process locks as exclusively created files
// under .sift/locks.
package lock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"go.trai.ch/sift/internal/core/domain"
	"go.trai.ch/sift/internal/core/ports"
	"go.trai.ch/zerr"
)

// DefaultPollInterval is how often AcquireWait retries a busy lock.
const DefaultPollInterval = 100 * time.Millisecond

var _ ports.LockManager = (*Manager)(nil)

// Manager implements ports.LockManager. It assumes a single host: staleness
// is judged from the recorded acquisition time only.
type Manager struct {
	logger   ports.Logger
	now      func() time.Time
	pid      int
	hostname string
	poll     time.Duration
}

// NewManager creates a Manager for the current process.
func NewManager(logger ports.Logger) *Manager {
	host, _ := os.Hostname()
	return &Manager{
		logger:   logger,
		now:      time.Now,
		pid:      os.Getpid(),
		hostname: host,
		poll:     DefaultPollInterval,
	}
}

// Acquire creates the lock file with O_EXCL. An existing stale lock is
// removed with a warning and the creation retried once.
func (m *Manager) Acquire(root string, req ports.LockRequest) (*domain.LockHandle, error) {
	path := lockPath(root, req.Kind)
	if err := os.MkdirAll(filepath.Dir(path), domain.DirPerm); err != nil {
		return nil, zerr.Wrap(err, domain.ErrLockCreateFailed.Error())
	}

	info := domain.LockInfo{
		Kind:       req.Kind,
		PID:        m.pid,
		RunID:      req.RunID,
		Hostname:   m.hostname,
		AcquiredAt: m.now().UTC(),
		StaleAfter: req.StaleAfter,
	}

	for attempt := 0; ; attempt++ {
		err := createExclusive(path, info)
		if err == nil {
			return &domain.LockHandle{Kind: req.Kind, Path: path, Info: info}, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, zerr.With(zerr.Wrap(err, domain.ErrLockCreateFailed.Error()), "path", path)
		}

		holder, stale, err := m.inspect(path, req.StaleAfter)
		if err != nil {
			return nil, err
		}
		if holder == nil {
			// Released between our create and the read.
			if attempt == 0 {
				continue
			}
			return nil, busyError(req.Kind, nil)
		}
		if !stale || attempt > 0 {
			return nil, busyError(req.Kind, holder)
		}

		m.warnStale(holder)
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, zerr.With(zerr.Wrap(err, domain.ErrLockReleaseFailed.Error()), "path", path)
		}
	}
}

// AcquireWait polls Acquire until it succeeds, wait elapses or ctx is done.
// Only lock contention is retried.
func (m *Manager) AcquireWait(
	ctx context.Context,
	root string,
	req ports.LockRequest,
	wait time.Duration,
) (*domain.LockHandle, error) {
	deadline := m.now().Add(wait)
	ticker := time.NewTicker(m.poll)
	defer ticker.Stop()

	for {
		h, err := m.Acquire(root, req)
		if err == nil || !errors.Is(err, domain.ErrLockBusy) {
			return h, err
		}
		if !m.now().Before(deadline) {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, errors.Join(err, ctx.Err())
		case <-ticker.C:
		}
	}
}

// Release removes the lock file if it still carries the handle's run id.
// A lock reclaimed by another run is left alone.
func (m *Manager) Release(h *domain.LockHandle) error {
	if h == nil {
		return nil
	}
	if !m.Owns(h) {
		return nil
	}
	if err := os.Remove(h.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return zerr.With(zerr.Wrap(err, domain.ErrLockReleaseFailed.Error()), "path", h.Path)
	}
	return nil
}

// IsHeld reports whether a live lock of kind exists and returns its holder.
// A stale lock is reported as released after logging a warning.
func (m *Manager) IsHeld(root string, kind domain.LockKind) (bool, *domain.LockInfo, error) {
	holder, stale, err := m.inspect(lockPath(root, kind), 0)
	if err != nil || holder == nil {
		return false, nil, err
	}
	if stale {
		m.warnStale(holder)
		return false, holder, nil
	}
	return true, holder, nil
}

// Owns reports whether the lock file exists and carries the handle's run id.
func (m *Manager) Owns(h *domain.LockHandle) bool {
	if h == nil {
		return false
	}
	info, err := readInfo(h.Path)
	return err == nil && info != nil && info.RunID == h.Info.RunID && info.Kind == h.Kind
}

// inspect reads the lock at path. Unparsable lock files are judged by their
// modification time against fallbackStale.
func (m *Manager) inspect(path string, fallbackStale time.Duration) (*domain.LockInfo, bool, error) {
	info, err := readInfo(path)
	if err == nil {
		if info == nil {
			return nil, false, nil
		}
		return info, info.IsStale(m.now()), nil
	}
	if !errors.Is(err, errUnparsable) {
		return nil, false, err
	}

	st, statErr := os.Stat(path)
	if errors.Is(statErr, fs.ErrNotExist) {
		return nil, false, nil
	}
	if statErr != nil {
		return nil, false, zerr.With(zerr.Wrap(statErr, domain.ErrLockReadFailed.Error()), "path", path)
	}
	holder := &domain.LockInfo{AcquiredAt: st.ModTime(), StaleAfter: fallbackStale}
	return holder, holder.IsStale(m.now()), nil
}

func (m *Manager) warnStale(holder *domain.LockInfo) {
	m.logger.Warn(fmt.Sprintf(
		"reclaiming stale %s lock held by pid %d since %s (stale after %s)",
		holder.Kind, holder.PID, holder.AcquiredAt.Format(time.RFC3339), holder.StaleAfter,
	))
}

var errUnparsable = errors.New("unparsable lock file")

func readInfo(path string) (*domain.LockInfo, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is below .sift/locks
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrLockReadFailed.Error()), "path", path)
	}
	var info domain.LockInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, errUnparsable
	}
	return &info, nil
}

func createExclusive(path string, info domain.LockInfo) error {
	data, err := json.Marshal(info)
	if err != nil {
		return err
	}
	//nolint:gosec // path is below .sift/locks
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, domain.PrivateFilePerm)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return err
	}
	return nil
}

func busyError(kind domain.LockKind, holder *domain.LockInfo) error {
	err := zerr.With(zerr.Wrap(domain.ErrLockBusy, "cannot acquire lock"), "kind", string(kind))
	if holder != nil {
		err = zerr.With(zerr.With(err, "holder_pid", holder.PID), "holder_run", holder.RunID)
	}
	return err
}

func lockPath(root string, kind domain.LockKind) string {
	return filepath.Join(domain.LocksPath(root), string(kind)+".lock")
}
