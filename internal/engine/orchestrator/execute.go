package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"go.trai.ch/sift/internal/core/domain"
	"go.trai.ch/sift/internal/core/ports"
	"go.trai.ch/zerr"
)

// commander is implemented by tools that run a configured command. The
// command is part of the cache signature.
type commander interface {
	Command() []string
}

// statusRank orders statuses from best to worst.
var statusRank = map[domain.ToolStatus]int{
	domain.ToolSuccess: 0,
	domain.ToolSkipped: 1,
	domain.ToolFailed:  2,
	domain.ToolCrashed: 3,
}

// scopeOutcome is the outcome of a tool for one scope value.
type scopeOutcome struct {
	domain.ToolOutcome
	cached bool
}

// executeTool runs d once per scope value, serving cached payloads where
// possible. A panicking tool is recorded as crashed.
func (r *run) executeTool(ctx context.Context, d domain.ToolDescriptor, deps map[string]domain.DependencyResult) (res domain.ToolResult) {
	start := r.o.now()
	ctx, span := r.o.tracer.Start(ctx, d.Name)
	defer span.End()

	res = domain.ToolResult{Tool: d.Name, Tier: d.Tier}
	defer func() {
		res.Duration = r.o.now().Sub(start)
		span.SetAttribute("sift.status", string(res.Status))
		span.SetAttribute("sift.cached", res.Cached)
	}()
	defer zerr.Defer(func(err error) {
		err = zerr.With(zerr.Wrap(err, domain.ErrToolCrash.Error()), "tool", d.Name)
		span.RecordError(err)
		res.Status = domain.ToolCrashed
		res.Payload = nil
		res.Error = err.Error()
	})

	tool := r.tools[d.Name]
	version := r.toolVersion(d)

	if d.IsGlobal() {
		out := r.runScope(ctx, span, d, tool, domain.GlobalScope, deps, version)
		res.Status = out.Status
		res.Payload = out.Payload
		res.Cached = out.cached
		res.Coverage = out.Coverage
		if out.Err != nil {
			res.Error = out.Err.Error()
			span.RecordError(out.Err)
		}
		return res
	}

	res.Domains = make(map[string]domain.DomainResult, len(d.Scope))
	payloads := make(map[string]json.RawMessage, len(d.Scope))
	res.Status = domain.ToolSuccess
	res.Cached = true
	var errs []error
	for _, name := range d.Scope {
		out := r.runScope(ctx, span, d, tool, name, deps, version)
		dr := domain.DomainResult{Status: out.Status, Payload: out.Payload, Cached: out.cached}
		if out.Err != nil {
			dr.Error = out.Err.Error()
			errs = append(errs, zerr.With(out.Err, "domain", name))
		}
		res.Domains[name] = dr
		payloads[name] = nullIfEmpty(out.Payload)
		if statusRank[out.Status] > statusRank[res.Status] {
			res.Status = out.Status
		}
		res.Cached = res.Cached && out.cached
	}

	if data, err := json.Marshal(payloads); err == nil {
		res.Payload = data
	}
	if len(errs) > 0 {
		span.RecordError(errors.Join(errs...))
	}
	return res
}

// runScope runs the tool for one domain, or for the whole project when
// scope is domain.GlobalScope.
func (r *run) runScope(
	ctx context.Context,
	out io.Writer,
	d domain.ToolDescriptor,
	tool ports.Tool,
	scope string,
	deps map[string]domain.DependencyResult,
	version string,
) scopeOutcome {
	fingerprintPaths, sourcePaths := r.scopePaths(scope)
	in := domain.ToolInput{
		Root:         r.project.Root,
		Domain:       scope,
		SourcePaths:  sourcePaths,
		Tier:         d.Tier,
		Dependencies: deps,
		Output:       out,
	}

	if !d.Cacheable || version == "" {
		return scopeOutcome{ToolOutcome: tool.Run(ctx, in)}
	}

	root := r.project.Root
	fp, err := r.o.detector.Fingerprint(ctx, root, fingerprintPaths, r.project.Exclude)
	if err != nil {
		r.o.logger.Warn("cache bypassed for " + d.Name + ": " + err.Error())
		return scopeOutcome{ToolOutcome: tool.Run(ctx, in)}
	}

	key := domain.CacheKey{
		Tool:            d.Name,
		Domain:          scope,
		ConfigSignature: r.configSignature(d, tool, scope, deps),
		ToolVersionHash: version,
	}
	if payload, miss := r.o.store.Get(root, key, fp); miss == domain.MissNone {
		return scopeOutcome{
			ToolOutcome: domain.ToolOutcome{Status: domain.ToolSuccess, Payload: payload},
			cached:      true,
		}
	}

	outcome := tool.Run(ctx, in)

	// A canceled run or a failed prerequisite leaves nothing worth keeping.
	if ctx.Err() == nil && allSucceeded(deps) {
		entry := domain.CacheEntry{
			Version:     domain.CacheSchemaVersion,
			Key:         key,
			Fingerprint: fp,
			Payload:     nullIfEmpty(outcome.Payload),
			Status:      outcome.Status.RunStatus(),
			CreatedAt:   r.o.now(),
		}
		if err := r.o.store.Put(root, entry); err != nil {
			r.o.logger.Warn("failed to cache " + d.Name + ": " + err.Error())
		}
	}
	return scopeOutcome{ToolOutcome: outcome}
}

// scopePaths returns the paths fingerprinted for the cache and the paths
// handed to the tool.
func (r *run) scopePaths(scope string) (fingerprint, sources []string) {
	if scope == domain.GlobalScope {
		return r.project.Scan.Roots, r.project.Scan.Roots
	}
	spec, ok := r.project.Domains.Spec(scope)
	if !ok {
		return nil, nil
	}
	return spec.Paths(), spec.Sources
}

// toolVersion hashes the tool's implementation files. An empty result
// disables caching for this run.
func (r *run) toolVersion(d domain.ToolDescriptor) string {
	if !d.Cacheable {
		return ""
	}
	version, err := r.o.detector.ToolVersion(r.project.Root, d.Sources)
	if err != nil {
		r.o.logger.Warn("cache bypassed for " + d.Name + ": " + err.Error())
		return ""
	}
	return version
}

// configSignature folds everything besides file content that influences a
// tool's result: the descriptor with its config subtree, the command, the
// exclusion list, the scope's definition and the prerequisite payloads.
func (r *run) configSignature(d domain.ToolDescriptor, tool ports.Tool, scope string, deps map[string]domain.DependencyResult) string {
	var command []string
	if c, ok := tool.(commander); ok {
		command = c.Command()
	}

	var scopeDef any = r.project.Scan
	if scope != domain.GlobalScope {
		spec, _ := r.project.Domains.Spec(scope)
		scopeDef = spec
	}

	depDigests := make(map[string]string, len(deps))
	for name, dep := range deps {
		depDigests[name] = domain.Signature(dep.Status, dep.Payload)
	}

	return domain.Signature(d, command, r.project.Exclude, scope, scopeDef, depDigests)
}

func nullIfEmpty(p json.RawMessage) json.RawMessage {
	if len(strings.TrimSpace(string(p))) == 0 {
		return json.RawMessage("null")
	}
	return p
}
