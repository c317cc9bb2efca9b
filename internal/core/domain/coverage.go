package domain

import (
	"math"
	"slices"
)

// FileCoverage holds the executable and the covered lines of one file.
// Both slices are sorted and free of duplicates.
type FileCoverage struct {
	Lines []int `json:"lines"`
	Hits  []int `json:"hits"`
}

// CoverageFragment is the coverage produced by one domain's tests.
type CoverageFragment struct {
	Domain       string                  `json:"domain"`
	Files        map[string]FileCoverage `json:"files"`
	TotalLines   int                     `json:"total_lines"`
	CoveredLines int                     `json:"covered_lines"`
}

// NewCoverageFragment normalizes the per-file line sets and computes the totals.
// Hit lines that are not listed as executable are added to the executable set.
func NewCoverageFragment(domainName string, files map[string]FileCoverage) CoverageFragment {
	frag := CoverageFragment{
		Domain: domainName,
		Files:  make(map[string]FileCoverage, len(files)),
	}
	for path, fc := range files {
		lines := sortedUnique(append(slices.Clone(fc.Lines), fc.Hits...))
		hits := sortedUnique(slices.Clone(fc.Hits))
		frag.Files[path] = FileCoverage{Lines: lines, Hits: hits}
		frag.TotalLines += len(lines)
		frag.CoveredLines += len(hits)
	}
	return frag
}

// Percent returns covered/total as a percentage rounded to two decimals.
// An empty fragment reports zero.
func (f CoverageFragment) Percent() float64 {
	return percent(f.CoveredLines, f.TotalLines)
}

// CoverageSet accumulates fragments keyed by domain. Adding a fragment for
// a domain that is already present replaces it.
type CoverageSet struct {
	fragments map[string]CoverageFragment
}

// NewCoverageSet returns an empty set.
func NewCoverageSet() *CoverageSet {
	return &CoverageSet{fragments: make(map[string]CoverageFragment)}
}

// Add stores frag, replacing any fragment of the same domain.
func (s *CoverageSet) Add(frag CoverageFragment) {
	s.fragments[frag.Domain] = frag
}

// Domains returns the domains present in the set, sorted.
func (s *CoverageSet) Domains() []string {
	return sortedKeys(s.fragments)
}

// Get returns the fragment stored for a domain.
func (s *CoverageSet) Get(domainName string) (CoverageFragment, bool) {
	f, ok := s.fragments[domainName]
	return f, ok
}

// Merged unions every fragment per file into one aggregate fragment.
func (s *CoverageSet) Merged() CoverageFragment {
	lines := make(map[string][]int)
	hits := make(map[string][]int)
	for _, name := range s.Domains() {
		for path, fc := range s.fragments[name].Files {
			lines[path] = append(lines[path], fc.Lines...)
			hits[path] = append(hits[path], fc.Hits...)
		}
	}

	files := make(map[string]FileCoverage, len(lines))
	for path := range lines {
		files[path] = FileCoverage{Lines: lines[path], Hits: hits[path]}
	}
	return NewCoverageFragment(GlobalScope, files)
}

// DomainCoverageState tells where a domain's fragment came from in a run.
type DomainCoverageState string

const (
	// CoverageFresh means the domain's tests ran in this invocation.
	CoverageFresh DomainCoverageState = "fresh"
	// CoverageCached means the fragment was served from cache.
	CoverageCached DomainCoverageState = "cached"
	// CoverageFailed means the domain's tests failed or crashed.
	CoverageFailed DomainCoverageState = "failed"
	// CoverageSkipped means the domain could not be run, e.g. because the coverage lock was busy.
	CoverageSkipped DomainCoverageState = "skipped"
)

// Outcome collapses fresh and cached into "ok" so the value does not
// depend on whether a fragment was recomputed.
func (s DomainCoverageState) Outcome() string {
	switch s {
	case CoverageFailed, CoverageSkipped:
		return string(s)
	default:
		return "ok"
	}
}

// DomainCoverage is the per-domain line of a coverage summary.
// State is volatile and kept out of the results document.
type DomainCoverage struct {
	Domain       string              `json:"domain"`
	State        DomainCoverageState `json:"-"`
	Outcome      string              `json:"outcome"`
	TotalLines   int                 `json:"total_lines"`
	CoveredLines int                 `json:"covered_lines"`
	Percent      float64             `json:"percent"`
}

// CoverageSummary is the deterministic coverage section of the results document.
type CoverageSummary struct {
	Percent      float64          `json:"percent"`
	TotalLines   int              `json:"total_lines"`
	CoveredLines int              `json:"covered_lines"`
	Files        int              `json:"files"`
	Domains      []DomainCoverage `json:"domains"`
}

func percent(covered, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(covered)/float64(total)*10000) / 100
}

func sortedUnique(in []int) []int {
	slices.Sort(in)
	out := slices.Compact(in)
	if out == nil {
		return []int{}
	}
	return out
}
