package domain

import "time"

// LockKind names one of the cross-process locks.
type LockKind string

const (
	// LockAudit guards a full audit run and its finalization.
	LockAudit LockKind = "audit"
	// LockCoverage guards test execution of the coverage engine.
	LockCoverage LockKind = "coverage"
)

// LockInfo is the content of a lock file.
type LockInfo struct {
	Kind       LockKind      `json:"kind"`
	PID        int           `json:"pid"`
	RunID      string        `json:"run_id"`
	Hostname   string        `json:"hostname,omitempty"`
	AcquiredAt time.Time     `json:"acquired_at"`
	StaleAfter time.Duration `json:"stale_after"`
}

// IsStale reports whether the lock is older than its staleness window.
// A zero window never expires.
func (l LockInfo) IsStale(now time.Time) bool {
	return l.StaleAfter > 0 && now.Sub(l.AcquiredAt) > l.StaleAfter
}

// Age returns how long the lock has been held.
func (l LockInfo) Age(now time.Time) time.Duration {
	return now.Sub(l.AcquiredAt)
}

// LockHandle is returned by a successful acquisition and is required to release it.
type LockHandle struct {
	Kind LockKind
	Path string
	Info LockInfo
}

// RunID returns the fencing token of the handle.
func (h *LockHandle) RunID() string {
	if h == nil {
		return ""
	}
	return h.Info.RunID
}
