package ports

import (
	"context"
	"time"

	"go.trai.ch/sift/internal/core/domain"
)

// LockRequest describes a lock acquisition.
type LockRequest struct {
	Kind  domain.LockKind
	RunID string
	// StaleAfter is recorded in the lock file. Zero never expires.
	StaleAfter time.Duration
}

// LockManager provides cross-process mutual exclusion through lock files.
//
//go:generate mockgen -source=lock.go -destination=mocks/mock_lock.go -package=mocks
type LockManager interface {
	// Acquire takes the lock or fails with domain.ErrLockBusy. A stale lock
	// is reclaimed with a warning.
	Acquire(root string, req LockRequest) (*domain.LockHandle, error)

	// AcquireWait retries Acquire until it succeeds, wait elapses or ctx is done.
	AcquireWait(ctx context.Context, root string, req LockRequest, wait time.Duration) (*domain.LockHandle, error)

	// Release removes the lock if it still belongs to the handle. Releasing
	// twice is a no-op.
	Release(h *domain.LockHandle) error

	// IsHeld reports whether a live lock of the given kind exists. Stale locks count as released.
	IsHeld(root string, kind domain.LockKind) (bool, *domain.LockInfo, error)

	// Owns reports whether the lock file still carries the handle's run id.
	Owns(h *domain.LockHandle) bool
}
