package ports

import (
	"encoding/json"

	"go.trai.ch/sift/internal/core/domain"
)

// CacheStore persists tool results keyed by (tool, domain).
// Every method takes the project root the .sift directory lives under.
//
//go:generate mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks
type CacheStore interface {
	// Get returns the cached payload when an entry for key exists and is
	// servable for the current fingerprint. Otherwise it returns the reason
	// of the miss. Corrupt documents are misses, never errors.
	Get(root string, key domain.CacheKey, current domain.Fingerprint) (json.RawMessage, domain.MissReason)

	// Peek returns the stored entry regardless of its validity.
	// Returns nil, nil if not found.
	Peek(root, tool, domainName string) (*domain.CacheEntry, error)

	// Put atomically replaces the entry for entry.Key.
	Put(root string, entry domain.CacheEntry) error

	// Entries lists every readable entry of a tool, sorted by domain.
	Entries(root, tool string) ([]domain.CacheEntry, error)

	// Tools lists the tools that have a cache namespace.
	Tools(root string) ([]string, error)

	// Clear removes every cache entry.
	Clear(root string) error

	// ClearTool removes the cache entries of one tool.
	ClearTool(root, tool string) error
}
