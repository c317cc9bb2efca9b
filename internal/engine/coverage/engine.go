// Package coverage re-runs the tests of changed domains and merges their
// coverage with the cached fragments of unchanged domains.
package coverage

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.trai.ch/sift/internal/core/domain"
	"go.trai.ch/sift/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// Factory builds coverage engines bound to a loaded project.
type Factory struct {
	detector ports.ChangeDetector
	store    ports.CacheStore
	locks    ports.LockManager
	executor ports.Executor
	parser   ports.CoverageParser
	logger   ports.Logger
}

// NewFactory creates a Factory.
func NewFactory(
	detector ports.ChangeDetector,
	store ports.CacheStore,
	locks ports.LockManager,
	executor ports.Executor,
	parser ports.CoverageParser,
	logger ports.Logger,
) *Factory {
	return &Factory{
		detector: detector,
		store:    store,
		locks:    locks,
		executor: executor,
		parser:   parser,
		logger:   logger,
	}
}

// Option configures an Engine.
type Option func(*Engine)

// WithSerial runs every domain suite one at a time.
func WithSerial() Option {
	return func(e *Engine) { e.serial = true }
}

// WithPTY attaches test runners to a pseudo-terminal.
func WithPTY(enabled bool) Option {
	return func(e *Engine) { e.pty = enabled }
}

// WithClearCache drops the coverage cache once the coverage lock is held
// and re-runs every domain.
func WithClearCache() Option {
	return func(e *Engine) { e.clearCache = true }
}

// New returns the engine for project.
func (f *Factory) New(project *domain.Project, opts ...Option) *Engine {
	e := &Engine{
		Factory: f,
		project: project,
		serial:  project.Coverage.Mode == domain.CoverageSerial,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var _ ports.Tool = (*Engine)(nil)

// Engine is the coverage tool. It is registered with the orchestrator like
// any other tool and can also be run on its own through Collect.
type Engine struct {
	*Factory
	project *domain.Project
	serial  bool
	pty     bool
	newID   func() string

	clearCache bool
}

// Descriptor returns the coverage tool descriptor.
func (e *Engine) Descriptor() domain.ToolDescriptor {
	return e.project.Coverage.Descriptor()
}

// Run implements ports.Tool.
func (e *Engine) Run(ctx context.Context, in domain.ToolInput) domain.ToolOutcome {
	return e.Collect(ctx, in.Output)
}

// domainRun is the outcome of one domain in a collection.
type domainRun struct {
	fragment domain.CoverageFragment
	state    domain.DomainCoverageState
	err      error
	// crashed marks a runner that failed for a reason other than failing tests.
	crashed bool
}

// Collect brings the coverage of every domain up to date and returns the
// merged summary. Test output is written to out, which may be nil.
func (e *Engine) Collect(ctx context.Context, out io.Writer) domain.ToolOutcome {
	if out == nil {
		out = io.Discard
	}
	out = &syncWriter{w: out}
	root := e.project.Root
	cfg := e.project.Coverage

	version, err := e.detector.ToolVersion(root, cfg.Sources)
	if err != nil {
		return crashed(err)
	}

	plan, err := e.plan(ctx, version)
	if err != nil {
		return crashed(err)
	}

	runs := make(map[string]*domainRun, len(plan.names))
	for name, frag := range plan.cached {
		runs[name] = &domainRun{fragment: frag, state: domain.CoverageCached}
	}

	if len(plan.stale) > 0 {
		sel := e.project.Domains.TestsFor(plan.stale)
		e.logger.Info("coverage: running tests for " + joinNames(sel.Domains))

		handle, err := e.locks.AcquireWait(ctx, root, ports.LockRequest{
			Kind:       domain.LockCoverage,
			RunID:      e.newID(),
			StaleAfter: e.project.Lock.StaleAfter,
		}, e.project.Lock.Wait)
		switch {
		case errors.Is(err, domain.ErrLockBusy):
			e.logger.Warn("coverage: another run holds the coverage lock, stale domains are skipped")
			for _, name := range plan.stale {
				runs[name] = &domainRun{state: domain.CoverageSkipped, err: zerr.Wrap(domain.ErrCoverageLockBusy, "tests not run")}
			}
		case err != nil:
			return crashed(err)
		default:
			defer func() {
				if err := e.locks.Release(handle); err != nil {
					e.logger.Warn("coverage: " + err.Error())
				}
			}()
			if e.clearCache {
				if err := e.store.ClearTool(root, domain.CoverageTool); err != nil {
					return crashed(err)
				}
				e.logger.Info("coverage cache cleared")
			}
			for name, run := range e.execute(ctx, plan, version, out) {
				runs[name] = run
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return crashed(err)
	}
	return summarize(plan.names, runs)
}

// plan is the partition of domains computed before any test runs.
type plan struct {
	names   []string
	current map[string]domain.Fingerprint
	cached  map[string]domain.CoverageFragment
	stale   []string
}

func (e *Engine) plan(ctx context.Context, version string) (*plan, error) {
	root := e.project.Root
	dm := e.project.Domains
	p := &plan{cached: make(map[string]domain.CoverageFragment)}
	if dm == nil {
		return p, nil
	}
	p.names = dm.Names()

	previous := make(map[string]domain.Fingerprint, len(p.names))
	var latest *domain.CacheEntry
	for _, name := range p.names {
		entry, err := e.store.Peek(root, domain.CoverageTool, name)
		if err != nil || entry == nil {
			continue
		}
		previous[name] = entry.Fingerprint
		if latest == nil || entry.CreatedAt.After(latest.CreatedAt) {
			latest = entry
		}
	}

	changes, err := e.detector.ChangedDomains(ctx, e.project, previous)
	if err != nil {
		return nil, err
	}
	p.current = changes.Current

	invalidateAll := changes.IsChanged(domain.UnmappedDomain)
	if latest != nil {
		codeChanged, err := e.detector.ToolCodeChanged(root, e.project.Coverage.Sources, latest.Key.ToolVersionHash)
		if err != nil {
			return nil, err
		}
		if codeChanged {
			e.logger.Info("coverage: engine sources changed, invalidating every domain")
			invalidateAll = true
		}
	}

	var stale []string
	for _, name := range p.names {
		if prev, ok := previous[name]; ok && changes.IsChanged(name) {
			if msg := describeChange(name, prev, p.current[name]); msg != "" {
				e.logger.Info(msg)
			}
		}
		if e.clearCache || invalidateAll || changes.IsChanged(name) {
			stale = append(stale, name)
			continue
		}
		payload, reason := e.store.Get(root, e.key(name, version), p.current[name])
		if reason != domain.MissNone {
			stale = append(stale, name)
			continue
		}
		var frag domain.CoverageFragment
		if err := json.Unmarshal(payload, &frag); err != nil {
			stale = append(stale, name)
			continue
		}
		p.cached[name] = frag
	}

	p.stale = dm.ExpandStale(stale)
	for _, name := range p.stale {
		delete(p.cached, name)
	}
	return p, nil
}

// describeChange lists the files of a domain that changed since its cached run.
func describeChange(name string, prev, next domain.Fingerprint) string {
	added, removed, modified := prev.Diff(next)
	var parts []string
	for _, c := range []struct {
		label string
		paths []string
	}{{"added", added}, {"removed", removed}, {"modified", modified}} {
		if len(c.paths) > 0 {
			parts = append(parts, c.label+" "+strings.Join(c.paths, ", "))
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return "coverage: " + name + " changed, " + strings.Join(parts, "; ")
}

func (e *Engine) key(name, version string) domain.CacheKey {
	spec, _ := e.project.Domains.Spec(name)
	return domain.CacheKey{
		Tool:            domain.CoverageTool,
		Domain:          name,
		ConfigSignature: domain.Signature(e.project.Coverage.Command, spec),
		ToolVersionHash: version,
	}
}

// execute runs the stale domains. Suites marked serial, or every suite in
// serial mode, run one at a time after the pool.
func (e *Engine) execute(ctx context.Context, p *plan, version string, out io.Writer) map[string]*domainRun {
	var (
		mu      sync.Mutex
		results = make(map[string]*domainRun, len(p.stale))
		pooled  []string
		serial  []string
	)

	for _, name := range p.stale {
		spec, _ := e.project.Domains.Spec(name)
		if e.serial || spec.Serial {
			serial = append(serial, name)
		} else {
			pooled = append(pooled, name)
		}
	}

	workers := e.project.Coverage.Workers
	if workers <= 0 {
		workers = 1
	}
	var g errgroup.Group
	g.SetLimit(workers)
	for _, name := range pooled {
		g.Go(func() error {
			run := e.runDomain(ctx, name, out)
			e.persist(ctx, name, version, p.current[name], run)
			mu.Lock()
			results[name] = run
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	for _, name := range serial {
		if ctx.Err() != nil {
			break
		}
		run := e.runDomain(ctx, name, out)
		e.persist(ctx, name, version, p.current[name], run)
		results[name] = run
	}
	return results
}

// persist stores the domain's fragment. Failed and crashed runs are stored
// with a non-success status so they are re-run until they pass.
func (e *Engine) persist(ctx context.Context, name, version string, fp domain.Fingerprint, run *domainRun) {
	if ctx.Err() != nil {
		return
	}
	payload, err := json.Marshal(run.fragment)
	if err != nil {
		e.logger.Warn("coverage: " + err.Error())
		return
	}
	status := domain.RunSuccess
	switch {
	case run.crashed:
		status = domain.RunError
	case run.state == domain.CoverageFailed:
		status = domain.RunFailed
	}
	entry := domain.CacheEntry{
		Key:         e.key(name, version),
		Fingerprint: fp,
		Payload:     payload,
		Status:      status,
	}
	if err := e.store.Put(e.project.Root, entry); err != nil {
		e.logger.Warn("coverage: " + err.Error())
	}
}

func summarize(names []string, runs map[string]*domainRun) domain.ToolOutcome {
	set := domain.NewCoverageSet()
	for _, name := range names {
		if run, ok := runs[name]; ok && run.state.Outcome() == "ok" {
			set.Add(run.fragment)
		}
	}
	merged := set.Merged()

	summary := &domain.CoverageSummary{
		Percent:      merged.Percent(),
		TotalLines:   merged.TotalLines,
		CoveredLines: merged.CoveredLines,
		Files:        len(merged.Files),
		Domains:      make([]domain.DomainCoverage, 0, len(names)),
	}

	var errs []error
	var incomplete []string
	for _, name := range names {
		run, ok := runs[name]
		if !ok {
			run = &domainRun{state: domain.CoverageSkipped}
		}
		line := domain.DomainCoverage{Domain: name, State: run.state, Outcome: run.state.Outcome()}
		if frag, ok := set.Get(name); ok {
			line.TotalLines = frag.TotalLines
			line.CoveredLines = frag.CoveredLines
			line.Percent = frag.Percent()
		}
		summary.Domains = append(summary.Domains, line)

		if line.Outcome != "ok" {
			incomplete = append(incomplete, name)
			if run.err != nil {
				errs = append(errs, zerr.With(run.err, "domain", name))
			}
		}
	}

	payload, _ := json.Marshal(summary)
	outcome := domain.ToolOutcome{Status: domain.ToolSuccess, Payload: payload, Coverage: summary}
	if len(incomplete) > 0 {
		outcome.Status = domain.ToolFailed
		err := zerr.With(zerr.Wrap(domain.ErrToolFailure, "coverage incomplete for "+joinNames(incomplete)), "domains", incomplete)
		outcome.Err = errors.Join(append([]error{err}, errs...)...)
	}
	return outcome
}

// syncWriter serializes writes of concurrently running suites.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

func crashed(err error) domain.ToolOutcome {
	return domain.ToolOutcome{
		Status:  domain.ToolCrashed,
		Payload: json.RawMessage("null"),
		Err:     zerr.With(zerr.Wrap(err, domain.ErrToolCrash.Error()), "tool", domain.CoverageTool),
	}
}

func joinNames(names []string) string {
	sorted := slices.Clone(names)
	slices.Sort(sorted)
	return strings.Join(sorted, ", ")
}
