// Package cachestore persists tool results as one JSON document per (tool, domain).
package cachestore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	siftfs "go.trai.ch/sift/internal/adapters/fs"
	"go.trai.ch/sift/internal/core/domain"
	"go.trai.ch/sift/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.CacheStore = (*Store)(nil)

// Store implements ports.CacheStore under <root>/.sift/cache/<tool>/.
type Store struct {
	logger ports.Logger
	now    func() time.Time
}

// NewStore creates a Store. Corrupt documents are reported through logger.
func NewStore(logger ports.Logger) *Store {
	return &Store{logger: logger, now: time.Now}
}

// Get returns the payload of a servable entry or the reason of the miss.
func (s *Store) Get(root string, key domain.CacheKey, current domain.Fingerprint) (json.RawMessage, domain.MissReason) {
	entry, err := s.read(s.filename(root, key.Tool, key.Domain))
	switch {
	case errors.Is(err, domain.ErrCacheCorrupt):
		s.logger.Warn(fmt.Sprintf("ignoring corrupt cache entry for %s/%s: %v", key.Tool, key.Domain, err))
		return nil, domain.MissCorrupt
	case err != nil:
		s.logger.Warn(fmt.Sprintf("ignoring unreadable cache entry for %s/%s: %v", key.Tool, key.Domain, err))
		return nil, domain.MissAbsent
	case entry != nil && (entry.Key.Tool != key.Tool || entry.Key.Domain != key.Domain):
		return nil, domain.MissAbsent
	}

	if reason := entry.Check(key, current); reason != domain.MissNone {
		return nil, reason
	}
	return entry.Payload, domain.MissNone
}

// Peek returns the stored entry without validating it. Returns nil, nil if not found.
func (s *Store) Peek(root, tool, domainName string) (*domain.CacheEntry, error) {
	return s.read(s.filename(root, tool, domainName))
}

// Put atomically replaces the entry stored for entry.Key.
func (s *Store) Put(root string, entry domain.CacheEntry) error {
	if entry.Key.ToolVersionHash == "" {
		return zerr.With(domain.ErrMissingToolVersion, "tool", entry.Key.Tool)
	}
	entry.Version = domain.CacheSchemaVersion
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now().UTC()
	}
	if len(entry.Payload) == 0 {
		entry.Payload = json.RawMessage("null")
	}
	if entry.Fingerprint == nil {
		entry.Fingerprint = domain.Fingerprint{}
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return zerr.Wrap(err, domain.ErrCacheWriteFailed.Error())
	}

	path := s.filename(root, entry.Key.Tool, entry.Key.Domain)
	if err := siftfs.WriteFileAtomic(path, data, domain.FilePerm); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrCacheWriteFailed.Error()), "tool", entry.Key.Tool)
	}
	return nil
}

// Entries returns every readable entry of tool sorted by domain.
// Corrupt documents are skipped with a warning.
func (s *Store) Entries(root, tool string) ([]domain.CacheEntry, error) {
	dir := filepath.Join(domain.CachePath(root), tool)
	files, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrCacheReadFailed.Error()), "tool", tool)
	}

	var entries []domain.CacheEntry
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}
		entry, err := s.read(filepath.Join(dir, f.Name()))
		if err != nil {
			s.logger.Warn(fmt.Sprintf("skipping cache entry %s/%s: %v", tool, f.Name(), err))
			continue
		}
		if entry != nil {
			entries = append(entries, *entry)
		}
	}
	slices.SortFunc(entries, func(a, b domain.CacheEntry) int {
		return strings.Compare(a.Key.Domain, b.Key.Domain)
	})
	return entries, nil
}

// Tools lists the tools that own a cache directory, sorted.
func (s *Store) Tools(root string) ([]string, error) {
	dirs, err := os.ReadDir(domain.CachePath(root))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, zerr.Wrap(err, domain.ErrCacheReadFailed.Error())
	}

	var tools []string
	for _, d := range dirs {
		if d.IsDir() {
			tools = append(tools, d.Name())
		}
	}
	return tools, nil
}

// Clear removes the whole cache directory.
func (s *Store) Clear(root string) error {
	if err := os.RemoveAll(domain.CachePath(root)); err != nil {
		return zerr.Wrap(err, domain.ErrCacheClearFailed.Error())
	}
	return nil
}

// ClearTool removes the cache directory of one tool.
func (s *Store) ClearTool(root, tool string) error {
	if err := os.RemoveAll(filepath.Join(domain.CachePath(root), tool)); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrCacheClearFailed.Error()), "tool", tool)
	}
	return nil
}

func (s *Store) read(path string) (*domain.CacheEntry, error) {
	//nolint:gosec // path is built from the cache directory and a hashed name
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrCacheReadFailed.Error()), "path", path)
	}

	var entry domain.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, zerr.With(errors.Join(domain.ErrCacheCorrupt, err), "path", path)
	}
	return &entry, nil
}

// filename hashes the domain so arbitrary domain names map to safe file names.
func (s *Store) filename(root, tool, domainName string) string {
	name := strconv.FormatUint(xxhash.Sum64String(domainName), 16)
	return filepath.Join(domain.CachePath(root), tool, name+".json")
}
