package domain

import (
	"path"
	"path/filepath"
	"slices"
	"strings"

	"go.trai.ch/zerr"
)

// UnmappedDomain collects every source file that matches no declared domain.
// It is always considered changed.
const UnmappedDomain = "unmapped"

// DomainSpec describes the directories of one domain and the tests that exercise it.
type DomainSpec struct {
	Sources []string `json:"sources"`
	Tests   []string `json:"tests"`
	Markers []string `json:"markers,omitempty"`
	// Serial marks suites that must not run concurrently with other suites.
	Serial bool `json:"serial,omitempty"`
}

// TestDirs returns the directories named by the test patterns, with a
// trailing "/..." wildcard removed.
func (s DomainSpec) TestDirs() []string {
	dirs := make([]string, 0, len(s.Tests))
	for _, t := range s.Tests {
		dirs = append(dirs, normalizePath(strings.TrimSuffix(filepath.ToSlash(t), "/...")))
	}
	slices.Sort(dirs)
	return slices.Compact(dirs)
}

// Paths returns the source and test directories whose files make up the
// domain's fingerprint.
func (s DomainSpec) Paths() []string {
	paths := append(slices.Clone(s.Sources), s.TestDirs()...)
	slices.Sort(paths)
	return slices.Compact(paths)
}

// TestSelection is the set of tests to execute for a set of stale domains.
type TestSelection struct {
	Domains    []string
	TestPaths  []string
	MarkerExpr string
}

// DomainMap maps source directories to logical domains. It is read-only after construction.
type DomainMap struct {
	domains map[string]DomainSpec
	// crossDomain["a"] = ["b"] means the tests of a exercise the code of b.
	crossDomain map[string][]string
	prefixes    []domainPrefix
}

type domainPrefix struct {
	prefix string
	domain string
}

// NewDomainMap validates the table and builds the mapper.
// Source directories must not overlap across domains and cross-domain
// references must name declared domains.
func NewDomainMap(domains map[string]DomainSpec, crossDomain map[string][]string) (*DomainMap, error) {
	m := &DomainMap{
		domains:     make(map[string]DomainSpec, len(domains)),
		crossDomain: make(map[string][]string, len(crossDomain)),
	}

	owner := make(map[string]string)
	for _, name := range sortedKeys(domains) {
		if name == UnmappedDomain || name == GlobalScope {
			return nil, zerr.With(ErrReservedDomain, "domain", name)
		}
		spec := domains[name]
		spec.Sources = normalizePaths(spec.Sources)
		spec.Tests = slices.Clone(spec.Tests)
		spec.Markers = slices.Clone(spec.Markers)
		m.domains[name] = spec

		for _, src := range spec.Sources {
			if other, ok := owner[src]; ok {
				return nil, zerr.With(zerr.With(ErrDomainOverlap, "path", src), "domains", other+","+name)
			}
			owner[src] = name
			m.prefixes = append(m.prefixes, domainPrefix{prefix: src, domain: name})
		}
	}

	// Nested source directories are ambiguous as well: a file below both
	// would belong to two domains.
	for _, a := range m.prefixes {
		for _, b := range m.prefixes {
			if a.domain != b.domain && isWithin(b.prefix, a.prefix) {
				return nil, zerr.With(zerr.With(ErrDomainOverlap, "path", b.prefix), "domains", a.domain+","+b.domain)
			}
		}
	}

	slices.SortFunc(m.prefixes, func(a, b domainPrefix) int {
		return len(b.prefix) - len(a.prefix)
	})

	for _, name := range sortedKeys(crossDomain) {
		if _, ok := m.domains[name]; !ok {
			return nil, zerr.With(ErrUnknownDomain, "domain", name)
		}
		for _, dep := range crossDomain[name] {
			if _, ok := m.domains[dep]; !ok {
				return nil, zerr.With(zerr.With(ErrUnknownDomain, "domain", dep), "referenced_by", name)
			}
		}
		m.crossDomain[name] = slices.Clone(crossDomain[name])
	}

	return m, nil
}

// Names returns the declared domain names, sorted.
func (m *DomainMap) Names() []string {
	return sortedKeys(m.domains)
}

// Spec returns the spec of a declared domain.
func (m *DomainMap) Spec(name string) (DomainSpec, bool) {
	s, ok := m.domains[name]
	return s, ok
}

// MapSourceDomain returns the domain owning path, matched by the longest
// source prefix. Paths outside every domain map to UnmappedDomain.
func (m *DomainMap) MapSourceDomain(p string) string {
	p = normalizePath(p)
	for _, dp := range m.prefixes {
		if isWithin(p, dp.prefix) {
			return dp.domain
		}
	}
	return UnmappedDomain
}

// IsMapped reports whether p belongs to a domain, either as a source file or
// as part of a domain's test directories.
func (m *DomainMap) IsMapped(p string) bool {
	if m.MapSourceDomain(p) != UnmappedDomain {
		return true
	}
	p = normalizePath(p)
	for _, spec := range m.domains {
		for _, dir := range spec.TestDirs() {
			if isWithin(p, dir) {
				return true
			}
		}
	}
	return false
}

// ExpandStale adds every domain whose tests exercise a stale domain,
// following the cross-domain table transitively.
func (m *DomainMap) ExpandStale(stale []string) []string {
	set := make(map[string]bool, len(stale))
	queue := slices.Clone(stale)
	for _, d := range stale {
		set[d] = true
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, name := range sortedKeys(m.crossDomain) {
			if set[name] || !slices.Contains(m.crossDomain[name], current) {
				continue
			}
			set[name] = true
			queue = append(queue, name)
		}
	}

	return sortedKeys(set)
}

// TestsFor returns the minimal test selection covering the given domains
// after cross-domain expansion. Unknown domains are ignored.
func (m *DomainMap) TestsFor(domains []string) TestSelection {
	expanded := m.ExpandStale(domains)

	var sel TestSelection
	var markers []string
	for _, name := range expanded {
		spec, ok := m.domains[name]
		if !ok {
			continue
		}
		sel.Domains = append(sel.Domains, name)
		sel.TestPaths = append(sel.TestPaths, spec.Tests...)
		markers = append(markers, spec.Markers...)
	}

	slices.Sort(sel.TestPaths)
	sel.TestPaths = slices.Compact(sel.TestPaths)
	slices.Sort(markers)
	sel.MarkerExpr = strings.Join(slices.Compact(markers), " or ")
	return sel
}

func isWithin(p, prefix string) bool {
	if prefix == "." {
		return true
	}
	return p == prefix || strings.HasPrefix(p, prefix+"/")
}

func normalizePath(p string) string {
	return path.Clean(filepath.ToSlash(p))
}

func normalizePaths(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		out = append(out, normalizePath(p))
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
