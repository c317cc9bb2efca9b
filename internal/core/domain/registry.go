package domain

import (
	"regexp"
	"slices"

	"go.trai.ch/zerr"
)

var validToolNameRegex = regexp.MustCompile("^[a-zA-Z0-9_-]+$")

// Registry is the validated, immutable table of tool descriptors.
type Registry struct {
	tools      map[string]ToolDescriptor
	order      []string
	dependents map[string][]string
}

// NewRegistry validates the descriptors and returns a registry.
// It rejects duplicate or malformed names, invalid tiers, unknown
// dependencies, dependencies on a later tier and dependency cycles.
func NewRegistry(descriptors ...ToolDescriptor) (*Registry, error) {
	r := &Registry{
		tools:      make(map[string]ToolDescriptor, len(descriptors)),
		dependents: make(map[string][]string),
	}

	for _, d := range descriptors {
		if !validToolNameRegex.MatchString(d.Name) {
			return nil, zerr.With(ErrInvalidToolName, "tool", d.Name)
		}
		if _, exists := r.tools[d.Name]; exists {
			return nil, zerr.With(ErrToolAlreadyRegistered, "tool", d.Name)
		}
		if !d.Tier.Valid() {
			return nil, zerr.With(zerr.With(ErrInvalidTier, "tool", d.Name), "tier", int(d.Tier))
		}
		r.tools[d.Name] = d.Clone()
	}

	for _, name := range r.sortedNames() {
		d := r.tools[name]
		for _, dep := range d.DependsOn {
			target, ok := r.tools[dep]
			if !ok {
				return nil, zerr.With(zerr.With(ErrMissingDependency, "tool", name), "dependency", dep)
			}
			if target.Tier > d.Tier {
				return nil, zerr.With(zerr.With(ErrDependencyTier, "tool", name), "dependency", dep)
			}
			r.dependents[dep] = append(r.dependents[dep], name)
		}
	}

	if err := r.sort(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Registry) sortedNames() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// sort performs a depth-first topological sort in name order so the
// resulting order is stable across runs.
func (r *Registry) sort() error {
	r.order = make([]string, 0, len(r.tools))
	visited := make(map[string]int) // 0: unvisited, 1: visiting, 2: visited
	var path []string

	var visit func(u string) error
	visit = func(u string) error {
		visited[u] = 1
		path = append(path, u)

		deps := slices.Clone(r.tools[u].DependsOn)
		slices.Sort(deps)
		for _, dep := range deps {
			switch visited[dep] {
			case 1:
				return buildCycleError(path, dep)
			case 0:
				if err := visit(dep); err != nil {
					return err
				}
			}
		}

		visited[u] = 2
		path = path[:len(path)-1]
		r.order = append(r.order, u)
		return nil
	}

	for _, name := range r.sortedNames() {
		if visited[name] == 0 {
			if err := visit(name); err != nil {
				return err
			}
		}
	}
	return nil
}

func buildCycleError(path []string, dep string) error {
	start := slices.Index(path, dep)
	cyclePath := ""
	for _, node := range path[start:] {
		cyclePath += node + " -> "
	}
	cyclePath += dep
	return zerr.With(ErrCycleDetected, "cycle", cyclePath)
}

// Order returns all tool names in dependency order.
func (r *Registry) Order() []string {
	return slices.Clone(r.order)
}

// InTier returns the descriptors of tier t in dependency order.
func (r *Registry) InTier(t Tier) []ToolDescriptor {
	var out []ToolDescriptor
	for _, name := range r.order {
		if d := r.tools[name]; d.Tier == t {
			out = append(out, d.Clone())
		}
	}
	return out
}

// Dependents returns the names of tools that declare name as a dependency, sorted.
func (r *Registry) Dependents(name string) []string {
	deps := slices.Clone(r.dependents[name])
	slices.Sort(deps)
	return deps
}
