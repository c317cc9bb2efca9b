package domain

import (
	"encoding/json"
	"slices"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
)

// CoverageMode selects how domain test suites are scheduled.
type CoverageMode string

const (
	// CoverageParallel runs domain suites in a bounded worker pool.
	CoverageParallel CoverageMode = "parallel"
	// CoverageSerial runs one suite at a time.
	CoverageSerial CoverageMode = "serial"
)

// CoverageTool is the name the coverage engine registers under.
const CoverageTool = "coverage"

// ScanConfig lists where unmapped source files are searched for.
type ScanConfig struct {
	Roots      []string `json:"roots"`
	Extensions []string `json:"extensions"`
}

// LockConfig tunes the lock manager.
type LockConfig struct {
	StaleAfter time.Duration `json:"stale_after"`
	Wait       time.Duration `json:"wait"`
}

// WatchConfig tunes watch mode.
type WatchConfig struct {
	Debounce    time.Duration `json:"debounce"`
	MinInterval time.Duration `json:"min_interval"`
}

// CoverageConfig configures the coverage engine.
type CoverageConfig struct {
	Enabled bool          `json:"enabled"`
	Tier    Tier          `json:"tier"`
	Mode    CoverageMode  `json:"mode"`
	Workers int           `json:"workers"`
	Command []string      `json:"cmd"`
	Sources []string      `json:"sources"`
	Timeout time.Duration `json:"timeout"`
}

// ScriptTool is a configured external analysis tool.
type ScriptTool struct {
	Descriptor ToolDescriptor
	Command    []string
}

// Project is the loaded, validated project configuration.
type Project struct {
	Root     string
	Workers  int
	Strict   bool
	Exclude  []string
	Scan     ScanConfig
	Lock     LockConfig
	Watch    WatchConfig
	Domains  *DomainMap
	Tools    []ScriptTool
	Coverage CoverageConfig
}

// Descriptor returns the descriptor the coverage engine registers with.
// The engine keeps its own per-domain cache, so the tool itself is not cacheable.
func (c CoverageConfig) Descriptor() ToolDescriptor {
	return ToolDescriptor{
		Name:    CoverageTool,
		Tier:    c.Tier,
		Scope:   []string{GlobalScope},
		Sources: slices.Clone(c.Sources),
		Config: map[string]any{
			"cmd":  c.Command,
			"mode": string(c.Mode),
		},
	}
}

// Descriptors returns the descriptors of every configured tool, including
// the coverage engine when it is enabled.
func (p *Project) Descriptors() []ToolDescriptor {
	out := make([]ToolDescriptor, 0, len(p.Tools)+1)
	for _, t := range p.Tools {
		out = append(out, t.Descriptor)
	}
	if p.Coverage.Enabled {
		out = append(out, p.Coverage.Descriptor())
	}
	return out
}

// Signature hashes the JSON encoding of parts. Maps are encoded with
// sorted keys so the result is stable.
func Signature(parts ...any) string {
	h := xxhash.New()
	for _, p := range parts {
		data, err := json.Marshal(p)
		if err != nil {
			// Unencodable parts still change the signature.
			data = []byte(err.Error())
		}
		_, _ = h.Write(data)
		_, _ = h.Write([]byte{0})
	}
	return strconv.FormatUint(h.Sum64(), 16)
}
