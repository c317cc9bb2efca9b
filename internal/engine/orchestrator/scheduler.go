package orchestrator

import (
	"context"
	"encoding/json"
	"slices"

	"go.trai.ch/sift/internal/core/domain"
)

// tierScheduler runs the tools of one tier in dependency order with a
// bounded number of active tools. Tools sharing a group never overlap.
type tierScheduler struct {
	r           *run
	tools       map[string]domain.ToolDescriptor
	inDegree    map[string]int
	ready       []string
	active      int
	busyGroups  map[string]bool
	resultsCh   chan domain.ToolResult
	parallelism int
}

func newTierScheduler(r *run, descriptors []domain.ToolDescriptor) *tierScheduler {
	s := &tierScheduler{
		r:           r,
		tools:       make(map[string]domain.ToolDescriptor, len(descriptors)),
		inDegree:    make(map[string]int, len(descriptors)),
		busyGroups:  make(map[string]bool),
		resultsCh:   make(chan domain.ToolResult, r.workers),
		parallelism: r.workers,
	}
	for _, d := range descriptors {
		s.tools[d.Name] = d
	}

	// Dependencies of earlier tiers have already completed.
	for _, d := range descriptors {
		degree := 0
		for _, dep := range d.DependsOn {
			if _, ok := s.tools[dep]; ok {
				degree++
			}
		}
		s.inDegree[d.Name] = degree
		if degree == 0 {
			s.ready = append(s.ready, d.Name)
		}
	}
	return s
}

func (s *tierScheduler) run(ctx context.Context) error {
	for s.active > 0 || (len(s.ready) > 0 && ctx.Err() == nil) {
		s.schedule(ctx)

		if s.active == 0 {
			continue
		}
		// Once canceled, running tools are expected to return promptly.
		if ctx.Err() != nil {
			s.handleResult(<-s.resultsCh)
			continue
		}
		select {
		case res := <-s.resultsCh:
			s.handleResult(res)
		case <-ctx.Done():
		}
	}
	return ctx.Err()
}

func (s *tierScheduler) schedule(ctx context.Context) {
	for i := 0; i < len(s.ready) && s.active < s.parallelism && ctx.Err() == nil; {
		d := s.tools[s.ready[i]]
		if d.Group != "" && s.busyGroups[d.Group] {
			i++
			continue
		}
		s.ready = slices.Delete(s.ready, i, i+1)
		if d.Group != "" {
			s.busyGroups[d.Group] = true
		}
		s.active++

		deps := s.r.dependencyResults(d)
		go func() {
			s.resultsCh <- s.r.executeTool(ctx, d, deps)
		}()
	}
}

func (s *tierScheduler) handleResult(res domain.ToolResult) {
	s.active--
	if g := s.tools[res.Tool].Group; g != "" {
		delete(s.busyGroups, g)
	}
	s.r.results[res.Tool] = res

	for _, dep := range s.r.registry.Dependents(res.Tool) {
		if _, ok := s.tools[dep]; !ok {
			continue
		}
		s.inDegree[dep]--
		if s.inDegree[dep] == 0 {
			s.ready = append(s.ready, dep)
		}
	}
}

// dependencyResults snapshots what d's prerequisites produced. Payloads of
// prerequisites that did not succeed are replaced by JSON null.
func (r *run) dependencyResults(d domain.ToolDescriptor) map[string]domain.DependencyResult {
	out := make(map[string]domain.DependencyResult, len(d.DependsOn))
	for _, name := range d.DependsOn {
		res, ok := r.results[name]
		if !ok {
			out[name] = domain.DependencyResult{Status: domain.ToolSkipped, Payload: json.RawMessage("null")}
			continue
		}
		payload := res.Payload
		if res.Status != domain.ToolSuccess || len(payload) == 0 {
			payload = json.RawMessage("null")
		}
		out[name] = domain.DependencyResult{Status: res.Status, Payload: payload}
	}
	return out
}

func allSucceeded(deps map[string]domain.DependencyResult) bool {
	for _, d := range deps {
		if d.Status != domain.ToolSuccess {
			return false
		}
	}
	return true
}
