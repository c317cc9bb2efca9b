package domain

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"
)

// RunState is a state of the tier orchestrator.
type RunState string

const (
	// StateIdle is the state before and after a run.
	StateIdle RunState = "idle"
	// StateRunningTier1 executes tier 1 tools.
	StateRunningTier1 RunState = "running_tier_1"
	// StateRunningTier2 executes tier 2 tools.
	StateRunningTier2 RunState = "running_tier_2"
	// StateRunningTier3 executes tier 3 tools.
	StateRunningTier3 RunState = "running_tier_3"
	// StateFinalizing writes the aggregate artifacts.
	StateFinalizing RunState = "finalizing"
	// StateAborted is terminal and entered on unrecoverable errors.
	StateAborted RunState = "aborted"
)

// StateForTier returns the running state of a tier.
func StateForTier(t Tier) RunState {
	return RunState(fmt.Sprintf("running_tier_%d", t))
}

// CanTransition reports whether the orchestrator may move from s to next.
// Tiers are entered in ascending order, Finalizing follows any tier, and
// every non-terminal state may abort.
func (s RunState) CanTransition(next RunState) bool {
	if s == StateAborted {
		return false
	}
	if next == StateAborted {
		return true
	}
	switch s {
	case StateIdle:
		return next == StateRunningTier1
	case StateRunningTier1:
		return next == StateRunningTier2 || next == StateFinalizing || next == StateIdle
	case StateRunningTier2:
		return next == StateRunningTier3 || next == StateFinalizing || next == StateIdle
	case StateRunningTier3:
		return next == StateFinalizing || next == StateIdle
	case StateFinalizing:
		return next == StateIdle
	default:
		return false
	}
}

// DomainResult is the outcome of a domain-scoped tool for one domain.
type DomainResult struct {
	Status  ToolStatus      `json:"status"`
	Payload json.RawMessage `json:"payload"`
	Cached  bool            `json:"-"`
	Error   string          `json:"error,omitempty"`
}

// ToolResult is the orchestrator's record of one tool in one run.
type ToolResult struct {
	Tool     string
	Tier     Tier
	Status   ToolStatus
	Payload  json.RawMessage
	Domains  map[string]DomainResult
	Error    string
	Cached   bool
	Duration time.Duration
	Coverage *CoverageSummary
}

// AuditStatus is the overall status of a run.
type AuditStatus string

const (
	// AuditClean means every tool succeeded.
	AuditClean AuditStatus = "clean"
	// AuditCompletedWithFailures means the run completed but some tools failed or crashed.
	AuditCompletedWithFailures AuditStatus = "completed_with_failures"
	// AuditAborted means the run stopped before completing.
	AuditAborted AuditStatus = "aborted"
)

// FailureKind distinguishes reported findings from crashes.
type FailureKind string

const (
	// FailureFindings is a ToolFailure.
	FailureFindings FailureKind = "failure"
	// FailureCrash is a ToolCrash.
	FailureCrash FailureKind = "crash"
)

// Failure is one entry of the failure list in the results document.
type Failure struct {
	Tool    string      `json:"tool"`
	Domain  string      `json:"domain,omitempty"`
	Tier    Tier        `json:"tier"`
	Kind    FailureKind `json:"kind"`
	Message string      `json:"message,omitempty"`
}

// ToolReport is the deterministic per-tool section of the results document.
type ToolReport struct {
	Tier    Tier                    `json:"tier"`
	Status  ToolStatus              `json:"status"`
	Payload json.RawMessage         `json:"payload"`
	Domains map[string]DomainResult `json:"domains,omitempty"`
}

// ResultsVersion is the schema version of the results document.
const ResultsVersion = 1

// AuditReport is the aggregate results document. It only contains values
// that are a pure function of the inputs so repeated runs on an unchanged
// tree produce identical bytes.
type AuditReport struct {
	Version  int                   `json:"version"`
	Tier     Tier                  `json:"tier"`
	Status   AuditStatus           `json:"status"`
	Tools    map[string]ToolReport `json:"tools"`
	Failures []Failure             `json:"failures"`
	Coverage *CoverageSummary      `json:"coverage,omitempty"`
}

// BuildReport aggregates tool results into the results document.
func BuildReport(tier Tier, results []ToolResult, aborted bool) AuditReport {
	report := AuditReport{
		Version:  ResultsVersion,
		Tier:     tier,
		Status:   AuditClean,
		Tools:    make(map[string]ToolReport, len(results)),
		Failures: []Failure{},
	}

	for _, r := range results {
		payload := r.Payload
		if len(payload) == 0 {
			payload = json.RawMessage("null")
		}
		report.Tools[r.Tool] = ToolReport{
			Tier:    r.Tier,
			Status:  r.Status,
			Payload: payload,
			Domains: r.Domains,
		}
		if r.Coverage != nil {
			report.Coverage = r.Coverage
		}
		report.Failures = append(report.Failures, failuresOf(r)...)
	}

	slices.SortFunc(report.Failures, func(a, b Failure) int {
		if c := strings.Compare(a.Tool, b.Tool); c != 0 {
			return c
		}
		return strings.Compare(a.Domain, b.Domain)
	})

	switch {
	case aborted:
		report.Status = AuditAborted
	case len(report.Failures) > 0:
		report.Status = AuditCompletedWithFailures
	}
	return report
}

func failuresOf(r ToolResult) []Failure {
	var out []Failure
	if len(r.Domains) > 0 {
		for _, name := range sortedKeys(r.Domains) {
			d := r.Domains[name]
			if kind, ok := failureKind(d.Status); ok {
				out = append(out, Failure{Tool: r.Tool, Domain: name, Tier: r.Tier, Kind: kind, Message: d.Error})
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	if kind, ok := failureKind(r.Status); ok {
		out = append(out, Failure{Tool: r.Tool, Tier: r.Tier, Kind: kind, Message: r.Error})
	}
	return out
}

func failureKind(s ToolStatus) (FailureKind, bool) {
	switch s {
	case ToolFailed:
		return FailureFindings, true
	case ToolCrashed:
		return FailureCrash, true
	default:
		return "", false
	}
}

// ToolRunInfo is the volatile per-tool record of a run.
type ToolRunInfo struct {
	Tool       string     `json:"tool"`
	Status     ToolStatus `json:"status"`
	Cached     bool       `json:"cached"`
	DurationMs int64      `json:"duration_ms"`
}

// RunInfo is the volatile metadata of a run, written next to the results document.
type RunInfo struct {
	RunID      string                         `json:"run_id"`
	Tier       Tier                           `json:"tier"`
	Status     AuditStatus                    `json:"status"`
	StartedAt  time.Time                      `json:"started_at"`
	FinishedAt time.Time                      `json:"finished_at"`
	Tools      []ToolRunInfo                  `json:"tools"`
	Coverage   map[string]DomainCoverageState `json:"coverage_domains,omitempty"`
}
