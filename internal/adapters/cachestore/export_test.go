package cachestore

import "time"

// SetNow replaces the clock used for CreatedAt.
func (s *Store) SetNow(now func() time.Time) {
	s.now = now
}

// Filename exposes the document path of a (tool, domain) pair.
func (s *Store) Filename(root, tool, domainName string) string {
	return s.filename(root, tool, domainName)
}
