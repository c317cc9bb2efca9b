package domain_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/sift/internal/core/domain"
)

func TestFingerprint(t *testing.T) {
	a := domain.NewFingerprint([]domain.FileFingerprint{
		{Path: "b.go", MtimeNanos: 2, SizeBytes: 20},
		{Path: "a.go", MtimeNanos: 1, SizeBytes: 10},
	})
	b := domain.NewFingerprint([]domain.FileFingerprint{
		{Path: "a.go", MtimeNanos: 1, SizeBytes: 10},
		{Path: "b.go", MtimeNanos: 2, SizeBytes: 20},
	})

	assert.Equal(t, "a.go", a[0].Path)
	assert.True(t, a.Equal(b))
	assert.Equal(t, a.Digest(), b.Digest())

	touched := domain.NewFingerprint([]domain.FileFingerprint{
		{Path: "a.go", MtimeNanos: 5, SizeBytes: 10},
		{Path: "c.go", MtimeNanos: 1, SizeBytes: 1},
	})
	assert.False(t, a.Equal(touched))
	assert.NotEqual(t, a.Digest(), touched.Digest())

	added, removed, modified := a.Diff(touched)
	assert.Equal(t, []string{"c.go"}, added)
	assert.Equal(t, []string{"b.go"}, removed)
	assert.Equal(t, []string{"a.go"}, modified)

	resized := domain.NewFingerprint([]domain.FileFingerprint{
		{Path: "a.go", MtimeNanos: 1, SizeBytes: 11},
		{Path: "b.go", MtimeNanos: 2, SizeBytes: 20},
	})
	assert.False(t, a.Equal(resized))
}

func TestCacheEntry_Check(t *testing.T) {
	fp := domain.NewFingerprint([]domain.FileFingerprint{{Path: "a.go", MtimeNanos: 1, SizeBytes: 1}})
	key := domain.CacheKey{Tool: "t", Domain: "core", ConfigSignature: "cfg", ToolVersionHash: "v1"}
	valid := func() *domain.CacheEntry {
		return &domain.CacheEntry{
			Version:     domain.CacheSchemaVersion,
			Key:         key,
			Fingerprint: fp,
			Payload:     json.RawMessage(`{}`),
			Status:      domain.RunSuccess,
		}
	}

	tests := []struct {
		name   string
		mutate func(e *domain.CacheEntry) *domain.CacheEntry
		fp     domain.Fingerprint
		want   domain.MissReason
	}{
		{"servable", func(e *domain.CacheEntry) *domain.CacheEntry { return e }, fp, domain.MissNone},
		{"absent", func(*domain.CacheEntry) *domain.CacheEntry { return nil }, fp, domain.MissAbsent},
		{"failed run", func(e *domain.CacheEntry) *domain.CacheEntry { e.Status = domain.RunFailed; return e }, fp, domain.MissStatus},
		{"crashed run", func(e *domain.CacheEntry) *domain.CacheEntry { e.Status = domain.RunError; return e }, fp, domain.MissStatus},
		{"config changed", func(e *domain.CacheEntry) *domain.CacheEntry { e.Key.ConfigSignature = "old"; return e }, fp, domain.MissConfig},
		{"tool changed", func(e *domain.CacheEntry) *domain.CacheEntry { e.Key.ToolVersionHash = "v0"; return e }, fp, domain.MissToolVersion},
		{"schema changed", func(e *domain.CacheEntry) *domain.CacheEntry { e.Version = 0; return e }, fp, domain.MissSchema},
		{"file changed", func(e *domain.CacheEntry) *domain.CacheEntry { return e }, domain.Fingerprint{}, domain.MissFingerprint},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.mutate(valid()).Check(key, tt.fp))
		})
	}
}

func TestCoverageSet(t *testing.T) {
	core := domain.NewCoverageFragment("core", map[string]domain.FileCoverage{
		"core/a.go":   {Lines: []int{1, 2, 3, 4}, Hits: []int{1, 2}},
		"shared/x.go": {Lines: []int{10, 11}, Hits: []int{10}},
	})
	ui := domain.NewCoverageFragment("ui", map[string]domain.FileCoverage{
		"ui/b.go":     {Lines: []int{1, 2}, Hits: []int{2, 2}},
		"shared/x.go": {Lines: []int{10, 11}, Hits: []int{11}},
	})

	assert.Equal(t, 6, core.TotalLines)
	assert.Equal(t, 3, core.CoveredLines)
	assert.Equal(t, 50.0, core.Percent())
	assert.Equal(t, []int{2}, ui.Files["ui/b.go"].Hits)

	set := domain.NewCoverageSet()
	set.Add(core)
	set.Add(ui)

	merged := set.Merged()
	assert.Equal(t, domain.GlobalScope, merged.Domain)
	assert.Equal(t, []int{10, 11}, merged.Files["shared/x.go"].Hits)
	assert.Equal(t, 8, merged.TotalLines)
	assert.Equal(t, 5, merged.CoveredLines)
	assert.Equal(t, 62.5, merged.Percent())

	// Re-adding a domain replaces its contribution instead of adding to it.
	coreAgain := domain.NewCoverageFragment("core", map[string]domain.FileCoverage{
		"core/a.go": {Lines: []int{1, 2, 3, 4}, Hits: []int{1, 2, 3, 4}},
	})
	set.Add(coreAgain)
	merged = set.Merged()
	assert.Equal(t, []string{"core", "ui"}, set.Domains())
	assert.Equal(t, []int{11}, merged.Files["shared/x.go"].Hits)
	assert.Equal(t, 8, merged.TotalLines)
	assert.Equal(t, 6, merged.CoveredLines)
	assert.Equal(t, 75.0, merged.Percent())

	assert.Equal(t, 0.0, domain.NewCoverageSet().Merged().Percent())
}

func TestBuildReport(t *testing.T) {
	results := []domain.ToolResult{
		{Tool: "docs", Tier: 1, Status: domain.ToolSuccess, Payload: json.RawMessage(`{"ok":true}`), Cached: true},
		{
			Tool: "imports", Tier: 1, Status: domain.ToolFailed,
			Domains: map[string]domain.DomainResult{
				"ui":   {Status: domain.ToolFailed, Error: "2 unused imports"},
				"core": {Status: domain.ToolSuccess},
			},
		},
		{Tool: "legacy", Tier: 2, Status: domain.ToolCrashed, Error: "timeout"},
	}

	report := domain.BuildReport(domain.TierStandard, results, false)
	assert.Equal(t, domain.AuditCompletedWithFailures, report.Status)
	require.Len(t, report.Failures, 2)
	assert.Equal(t, domain.Failure{Tool: "imports", Domain: "ui", Tier: 1, Kind: domain.FailureFindings, Message: "2 unused imports"}, report.Failures[0])
	assert.Equal(t, domain.FailureCrash, report.Failures[1].Kind)
	assert.JSONEq(t, "null", string(report.Tools["legacy"].Payload))

	clean := domain.BuildReport(domain.TierQuick, results[:1], false)
	assert.Equal(t, domain.AuditClean, clean.Status)
	assert.NotNil(t, clean.Failures)

	aborted := domain.BuildReport(domain.TierQuick, results[:1], true)
	assert.Equal(t, domain.AuditAborted, aborted.Status)
}

func TestRunState_CanTransition(t *testing.T) {
	assert.True(t, domain.StateIdle.CanTransition(domain.StateRunningTier1))
	assert.False(t, domain.StateIdle.CanTransition(domain.StateRunningTier2))
	assert.True(t, domain.StateRunningTier1.CanTransition(domain.StateRunningTier2))
	assert.True(t, domain.StateRunningTier1.CanTransition(domain.StateFinalizing))
	assert.False(t, domain.StateRunningTier2.CanTransition(domain.StateRunningTier1))
	assert.True(t, domain.StateRunningTier3.CanTransition(domain.StateAborted))
	assert.False(t, domain.StateAborted.CanTransition(domain.StateIdle))
	assert.True(t, domain.StateFinalizing.CanTransition(domain.StateIdle))
	assert.Equal(t, domain.StateRunningTier2, domain.StateForTier(domain.TierStandard))
}

func TestLockInfo_IsStale(t *testing.T) {
	now := time.Now()
	info := domain.LockInfo{AcquiredAt: now.Add(-2 * time.Minute), StaleAfter: time.Minute}
	assert.True(t, info.IsStale(now))

	info.StaleAfter = time.Hour
	assert.False(t, info.IsStale(now))

	info.StaleAfter = 0
	assert.False(t, info.IsStale(now))
}

func TestSignature(t *testing.T) {
	a := domain.Signature(map[string]any{"x": 1, "y": []string{"a"}}, "tool")
	b := domain.Signature(map[string]any{"y": []string{"a"}, "x": 1}, "tool")
	c := domain.Signature(map[string]any{"x": 2, "y": []string{"a"}}, "tool")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
