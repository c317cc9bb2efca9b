package domain

import (
	"encoding/json"
	"io"
	"maps"
	"slices"
	"time"
)

// Tier is one of the three levels of audit thoroughness.
type Tier int

const (
	// TierQuick runs only the cheapest scanners.
	TierQuick Tier = 1
	// TierStandard is the default audit depth.
	TierStandard Tier = 2
	// TierFull adds the expensive tools, including test coverage.
	TierFull Tier = 3
)

// Valid reports whether t is one of the three known tiers.
func (t Tier) Valid() bool {
	return t >= TierQuick && t <= TierFull
}

func (t Tier) String() string {
	switch t {
	case TierQuick:
		return "quick"
	case TierStandard:
		return "standard"
	case TierFull:
		return "full"
	default:
		return "unknown"
	}
}

// GlobalScope is the scope value of tools that read the whole project rather than single domains.
const GlobalScope = "global"

// ToolDescriptor is the static description of an analysis tool.
// Descriptors are built once at startup and never mutated afterwards.
type ToolDescriptor struct {
	Name      string
	Tier      Tier
	DependsOn []string
	Cacheable bool
	// Scope lists the domains the tool reads, or the single value GlobalScope.
	Scope []string
	// Group names a mutual-exclusion group. Tools sharing a group never run concurrently.
	Group string
	// Sources are the tool's own implementation files, hashed into the cache key.
	Sources []string
	Timeout time.Duration
	// Config is the tool specific config subtree. It is part of the config signature.
	Config map[string]any
}

// IsGlobal reports whether the tool reads the whole project.
func (d ToolDescriptor) IsGlobal() bool {
	return len(d.Scope) == 0 || slices.Contains(d.Scope, GlobalScope)
}

// Clone returns a deep copy so registry callers cannot mutate shared slices.
func (d ToolDescriptor) Clone() ToolDescriptor {
	d.DependsOn = slices.Clone(d.DependsOn)
	d.Scope = slices.Clone(d.Scope)
	d.Sources = slices.Clone(d.Sources)
	d.Config = maps.Clone(d.Config)
	return d
}

// ToolStatus is the outcome of one tool invocation.
type ToolStatus string

const (
	// ToolSuccess means the tool ran and reported no problems.
	ToolSuccess ToolStatus = "success"
	// ToolFailed means the tool ran and reported findings or errors.
	ToolFailed ToolStatus = "failed"
	// ToolCrashed means the tool exited abnormally or timed out.
	ToolCrashed ToolStatus = "crashed"
	// ToolSkipped means the tool did not run at all.
	ToolSkipped ToolStatus = "skipped"
)

// RunStatus converts a tool status to the status recorded in the cache.
func (s ToolStatus) RunStatus() RunStatus {
	switch s {
	case ToolSuccess:
		return RunSuccess
	case ToolFailed:
		return RunFailed
	default:
		return RunError
	}
}

// DependencyResult is what a dependent tool receives from one prerequisite.
//
// Dependencies express data availability, not success: a dependent runs even
// when its prerequisite failed or crashed. In that case Status carries the
// prerequisite's status and Payload is JSON null.
type DependencyResult struct {
	Status  ToolStatus      `json:"status"`
	Payload json.RawMessage `json:"payload"`
}

// ToolInput is passed to a tool invocation.
type ToolInput struct {
	Root string
	// Domain is the domain being scanned, or GlobalScope.
	Domain       string
	SourcePaths  []string
	Tier         Tier
	Dependencies map[string]DependencyResult
	// Output receives the tool's diagnostic output. It may be nil.
	Output io.Writer
}

// ToolOutcome is the result of one tool invocation.
type ToolOutcome struct {
	Status  ToolStatus
	Payload json.RawMessage
	// Err describes a failure or crash. It is nil on success.
	Err error
	// Coverage is set by the coverage engine only.
	Coverage *CoverageSummary
}
