// Package orchestrator runs the registered tools tier by tier and
// finalizes the aggregate results of an audit.
package orchestrator

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.trai.ch/sift/internal/core/domain"
	"go.trai.ch/sift/internal/core/ports"
	"go.trai.ch/zerr"
)

// Orchestrator drives audit runs. It is safe to reuse across runs but a
// single run is never shared between goroutines.
type Orchestrator struct {
	detector ports.ChangeDetector
	store    ports.CacheStore
	locks    ports.LockManager
	reporter ports.Reporter
	metrics  ports.MetricsWriter
	tracer   ports.Tracer
	logger   ports.Logger

	now      func() time.Time
	newRunID func() string
}

// New creates an Orchestrator.
func New(
	detector ports.ChangeDetector,
	store ports.CacheStore,
	locks ports.LockManager,
	reporter ports.Reporter,
	metrics ports.MetricsWriter,
	tracer ports.Tracer,
	logger ports.Logger,
) *Orchestrator {
	return &Orchestrator{
		detector: detector,
		store:    store,
		locks:    locks,
		reporter: reporter,
		metrics:  metrics,
		tracer:   tracer,
		logger:   logger,
		now:      time.Now,
		newRunID: uuid.NewString,
	}
}

// WithTracer returns a copy of the orchestrator reporting spans to tracer.
func (o *Orchestrator) WithTracer(tracer ports.Tracer) *Orchestrator {
	c := *o
	c.tracer = tracer
	return &c
}

// Options select what a run does.
type Options struct {
	// Tier is the highest tier to run.
	Tier domain.Tier
	// Workers bounds concurrently running tools. Zero uses the project setting.
	Workers int
	// Strict fails the run when a tool crashed or a tier-3 tool failed.
	Strict bool
	// ClearCache drops every cache entry once the audit lock is acquired.
	// A run without the lock leaves the cache alone.
	ClearCache bool
}

// Result describes a completed or aborted run.
type Result struct {
	RunID  string
	Report domain.AuditReport
	Info   domain.RunInfo
	// Finalized is set when the aggregate documents were written by this run.
	Finalized bool
	// Standalone is set when another run held the audit lock.
	Standalone bool
}

// Run executes tiers 1 through opts.Tier. The audit lock is taken when the
// first tier starts and released on every exit path. Finalization only
// happens when this run still owns the lock after the last tier.
//
// A run that completes returns a nil error even when tools failed, unless
// strict mode applies. Aborted runs return an error wrapping
// domain.ErrAuditAborted together with the partial result.
func (o *Orchestrator) Run(ctx context.Context, project *domain.Project, tools []ports.Tool, opts Options) (result *Result, err error) {
	if !opts.Tier.Valid() {
		return nil, zerr.With(zerr.Wrap(domain.ErrInvalidTier, "requested tier"), "tier", int(opts.Tier))
	}

	registry, byName, err := newRegistry(tools)
	if err != nil {
		return nil, errors.Join(domain.ErrConfigInvalid, err)
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = project.Workers
	}
	if workers <= 0 {
		workers = 1
	}

	r := &run{
		o:         o,
		project:   project,
		registry:  registry,
		tools:     byName,
		opts:      opts,
		workers:   workers,
		id:        o.newRunID(),
		startedAt: o.now(),
		state:     domain.StateIdle,
		results:   make(map[string]domain.ToolResult),
	}

	defer r.releaseLock()
	defer zerr.Defer(func(perr error) {
		result, err = r.abort(zerr.Wrap(perr, "audit panicked"))
	})

	for tier := domain.TierQuick; tier <= opts.Tier; tier++ {
		if err := r.runTier(ctx, tier); err != nil {
			return r.abort(err)
		}
	}
	return r.complete()
}

func newRegistry(tools []ports.Tool) (*domain.Registry, map[string]ports.Tool, error) {
	descriptors := make([]domain.ToolDescriptor, 0, len(tools))
	byName := make(map[string]ports.Tool, len(tools))
	for _, t := range tools {
		d := t.Descriptor()
		descriptors = append(descriptors, d)
		byName[d.Name] = t
	}
	registry, err := domain.NewRegistry(descriptors...)
	if err != nil {
		return nil, nil, err
	}
	return registry, byName, nil
}

// run holds the state of one invocation of Orchestrator.Run.
type run struct {
	o        *Orchestrator
	project  *domain.Project
	registry *domain.Registry
	tools    map[string]ports.Tool
	opts     Options
	workers  int

	id         string
	startedAt  time.Time
	state      domain.RunState
	handle     *domain.LockHandle
	standalone bool
	finalized  bool

	// results is only written by the scheduler loop.
	results map[string]domain.ToolResult
}

func (r *run) transition(next domain.RunState) error {
	if !r.state.CanTransition(next) {
		return zerr.With(
			zerr.Wrap(domain.ErrInvalidTransition, string(r.state)+" -> "+string(next)),
			"run_id", r.id,
		)
	}
	r.state = next
	return nil
}

func (r *run) runTier(ctx context.Context, tier domain.Tier) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.transition(domain.StateForTier(tier)); err != nil {
		return err
	}
	if err := r.ensureLock(ctx); err != nil {
		return err
	}

	descriptors := r.registry.InTier(tier)
	if len(descriptors) == 0 {
		return nil
	}

	names := make([]string, 0, len(descriptors))
	deps := make(map[string][]string, len(descriptors))
	for _, d := range descriptors {
		names = append(names, d.Name)
		deps[d.Name] = slices.Clone(d.DependsOn)
	}
	r.o.tracer.EmitPlan(ctx, tier, names, deps)

	ctx, span := r.o.tracer.Start(ctx, "tier "+strconv.Itoa(int(tier)), ports.WithQuiet())
	defer span.End()
	span.SetAttribute("sift.state", string(r.state))
	span.SetAttribute("sift.run_id", r.id)

	if err := newTierScheduler(r, descriptors).run(ctx); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// ensureLock takes the audit lock the first time a tier starts. Contention
// switches the run to standalone mode instead of failing it.
func (r *run) ensureLock(ctx context.Context) error {
	if r.handle != nil || r.standalone {
		return nil
	}

	h, err := r.o.locks.AcquireWait(ctx, r.project.Root, ports.LockRequest{
		Kind:       domain.LockAudit,
		RunID:      r.id,
		StaleAfter: r.project.Lock.StaleAfter,
	}, r.project.Lock.Wait)
	switch {
	case err == nil:
		r.handle = h
		return r.clearCache()
	case errors.Is(err, domain.ErrLockBusy):
		r.standalone = true
		r.o.logger.Warn("another audit holds the lock, this run will not write results")
		if r.opts.ClearCache {
			r.o.logger.Warn("cache not cleared while another audit runs")
		}
		return nil
	default:
		return err
	}
}

// clearCache drops the cache once the audit lock is held.
func (r *run) clearCache() error {
	if !r.opts.ClearCache {
		return nil
	}
	if err := r.o.store.Clear(r.project.Root); err != nil {
		return err
	}
	r.o.logger.Info("cache cleared")
	return nil
}

func (r *run) releaseLock() {
	if r.handle == nil {
		return
	}
	if err := r.o.locks.Release(r.handle); err != nil {
		r.o.logger.Error(err)
	}
}

// complete aggregates the results, finalizes when allowed and applies
// strict mode.
func (r *run) complete() (*Result, error) {
	report := domain.BuildReport(r.opts.Tier, r.orderedResults(), false)
	info := r.runInfo(report)
	result := &Result{
		RunID:      r.id,
		Report:     report,
		Info:       info,
		Standalone: r.standalone,
	}

	if r.handle != nil {
		if err := r.transition(domain.StateFinalizing); err != nil {
			return r.abort(err)
		}
		err := r.finalize(report, info)
		switch {
		case err == nil:
			result.Finalized = true
		case errors.Is(err, domain.ErrFinalizeNotOwner):
			r.o.logger.Warn("audit lock was taken over by another run, results were not written")
		default:
			return r.abort(err)
		}
	}

	if err := r.transition(domain.StateIdle); err != nil {
		return r.abort(err)
	}

	if r.opts.Strict || r.project.Strict {
		if n := strictViolations(report); n > 0 {
			return result, zerr.With(zerr.Wrap(domain.ErrStrictFailures, "strict mode"), "failures", n)
		}
	}
	return result, nil
}

// finalize writes the aggregate documents. It runs at most once per run
// and only while the run owns the audit lock.
func (r *run) finalize(report domain.AuditReport, info domain.RunInfo) error {
	if r.finalized {
		return domain.ErrAlreadyFinalized
	}
	if !r.o.locks.Owns(r.handle) {
		return domain.ErrFinalizeNotOwner
	}
	r.finalized = true

	root := r.project.Root
	if err := r.o.reporter.WriteResults(root, report); err != nil {
		return err
	}
	if err := r.o.reporter.WriteRun(root, info); err != nil {
		return err
	}
	return r.o.metrics.WriteMetrics(root, report, info)
}

func (r *run) abort(cause error) (*Result, error) {
	if r.state != domain.StateAborted {
		_ = r.transition(domain.StateAborted)
	}
	r.o.logger.Error(zerr.With(zerr.Wrap(cause, domain.ErrAuditAborted.Error()), "run_id", r.id))

	report := domain.BuildReport(r.opts.Tier, r.orderedResults(), true)
	return &Result{
		RunID:      r.id,
		Report:     report,
		Info:       r.runInfo(report),
		Standalone: r.standalone,
	}, errors.Join(domain.ErrAuditAborted, cause)
}

func (r *run) orderedResults() []domain.ToolResult {
	out := make([]domain.ToolResult, 0, len(r.results))
	for _, name := range r.registry.Order() {
		if res, ok := r.results[name]; ok {
			out = append(out, res)
		}
	}
	return out
}

func (r *run) runInfo(report domain.AuditReport) domain.RunInfo {
	info := domain.RunInfo{
		RunID:      r.id,
		Tier:       r.opts.Tier,
		Status:     report.Status,
		StartedAt:  r.startedAt,
		FinishedAt: r.o.now(),
		Tools:      make([]domain.ToolRunInfo, 0, len(r.results)),
	}

	names := make([]string, 0, len(r.results))
	for name := range r.results {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		res := r.results[name]
		info.Tools = append(info.Tools, domain.ToolRunInfo{
			Tool:       name,
			Status:     res.Status,
			Cached:     res.Cached,
			DurationMs: res.Duration.Milliseconds(),
		})
		if res.Coverage == nil {
			continue
		}
		if info.Coverage == nil {
			info.Coverage = make(map[string]domain.DomainCoverageState)
		}
		for _, d := range res.Coverage.Domains {
			info.Coverage[d.Domain] = d.State
		}
	}
	return info
}

// strictViolations counts crashes in any tier and failures in tier 3.
func strictViolations(report domain.AuditReport) int {
	n := 0
	for _, f := range report.Failures {
		if f.Kind == domain.FailureCrash || f.Tier == domain.TierFull {
			n++
		}
	}
	return n
}
