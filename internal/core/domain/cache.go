package domain

import (
	"encoding/json"
	"time"
)

// CacheSchemaVersion is bumped whenever the layout of a cache document changes.
const CacheSchemaVersion = 1

// RunStatus is the status recorded with a cache entry.
type RunStatus string

const (
	// RunSuccess marks a result that may be served from cache.
	RunSuccess RunStatus = "success"
	// RunFailed marks a run that reported failures. It is never served.
	RunFailed RunStatus = "failed"
	// RunError marks a run that crashed. It is never served.
	RunError RunStatus = "error"
)

// CacheKey identifies the validity scope of a cache entry.
type CacheKey struct {
	Tool            string `json:"tool"`
	Domain          string `json:"domain"`
	ConfigSignature string `json:"config_signature"`
	ToolVersionHash string `json:"tool_version_hash"`
}

// CacheEntry is one persisted (tool, domain) result.
type CacheEntry struct {
	Version     int             `json:"version"`
	Key         CacheKey        `json:"key"`
	Fingerprint Fingerprint     `json:"fingerprint"`
	Payload     json.RawMessage `json:"payload"`
	Status      RunStatus       `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
}

// MissReason explains why a cache lookup did not produce a payload.
type MissReason string

const (
	// MissNone means the entry is servable.
	MissNone MissReason = ""
	// MissAbsent means no entry exists.
	MissAbsent MissReason = "absent"
	// MissCorrupt means the stored document could not be parsed.
	MissCorrupt MissReason = "corrupt"
	// MissSchema means the entry was written by another schema version.
	MissSchema MissReason = "schema"
	// MissStatus means the last run did not succeed.
	MissStatus MissReason = "status"
	// MissConfig means the config signature changed.
	MissConfig MissReason = "config"
	// MissToolVersion means the tool implementation changed.
	MissToolVersion MissReason = "tool_version"
	// MissFingerprint means a file in the domain changed.
	MissFingerprint MissReason = "fingerprint"
)

// Check reports whether the entry may be served for key and the current
// fingerprint. Only successful entries with matching key and fingerprint
// are servable.
func (e *CacheEntry) Check(key CacheKey, current Fingerprint) MissReason {
	switch {
	case e == nil:
		return MissAbsent
	case e.Version != CacheSchemaVersion:
		return MissSchema
	case e.Status != RunSuccess:
		return MissStatus
	case e.Key.ConfigSignature != key.ConfigSignature:
		return MissConfig
	case e.Key.ToolVersionHash != key.ToolVersionHash:
		return MissToolVersion
	case !e.Fingerprint.Equal(current):
		return MissFingerprint
	default:
		return MissNone
	}
}
