package lock

import "time"

// SetClock replaces the clock and the poll interval.
func (m *Manager) SetClock(now func() time.Time, poll time.Duration) {
	m.now = now
	m.poll = poll
}

// SetPID overrides the recorded process id.
func (m *Manager) SetPID(pid int) {
	m.pid = pid
}
